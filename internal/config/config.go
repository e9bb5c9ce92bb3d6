package config

import (
	"errors"
	"os"
	"strings"
	"time"
)

// Config carries every runtime setting. It is built once in main and passed
// by reference into the components that need it; nothing reads the
// environment after startup.
type Config struct {
	Addr        string
	PGDSN       string
	CORSOrigins []string

	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	TokenIssuer   string

	// Email→role assignments applied at federated sign-in.
	RoleAssignments map[string]string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	OIDCIssuerURL      string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PublicURL string

	AIEndpoint string
	AIAPIKey   string
}

// Load reads VOICEUP_* environment variables with defaults suitable for
// local development. Secrets have no defaults; Validate enforces them.
func Load() Config {
	return Config{
		Addr:        getenv("VOICEUP_ADDR", ":8080"),
		PGDSN:       getenv("VOICEUP_PG_DSN", ""),
		CORSOrigins: splitList(os.Getenv("VOICEUP_CORS_ORIGINS")),

		AccessSecret:  getenv("VOICEUP_ACCESS_SECRET", ""),
		RefreshSecret: getenv("VOICEUP_REFRESH_SECRET", ""),
		AccessTTL:     getenvDuration("VOICEUP_ACCESS_TTL", 24*time.Hour),
		RefreshTTL:    getenvDuration("VOICEUP_REFRESH_TTL", 7*24*time.Hour),
		TokenIssuer:   getenv("VOICEUP_TOKEN_ISSUER", "voiceup"),

		RoleAssignments: parseAssignments(os.Getenv("VOICEUP_ROLE_ASSIGNMENTS")),

		GoogleClientID:     getenv("VOICEUP_GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getenv("VOICEUP_GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getenv("VOICEUP_GOOGLE_REDIRECT_URL", ""),
		OIDCIssuerURL:      getenv("VOICEUP_OIDC_ISSUER", "https://accounts.google.com"),

		S3Bucket:    getenv("VOICEUP_S3_BUCKET", ""),
		S3Region:    getenv("VOICEUP_S3_REGION", "us-east-1"),
		S3Endpoint:  getenv("VOICEUP_S3_ENDPOINT", ""),
		S3PublicURL: getenv("VOICEUP_S3_PUBLIC_URL", ""),

		AIEndpoint: getenv("VOICEUP_AI_ENDPOINT", ""),
		AIAPIKey:   getenv("VOICEUP_AI_API_KEY", ""),
	}
}

// Validate rejects configurations the auth core cannot run with.
func (c Config) Validate() error {
	if c.AccessSecret == "" || c.RefreshSecret == "" {
		return errors.New("config: VOICEUP_ACCESS_SECRET and VOICEUP_REFRESH_SECRET are required")
	}
	if c.AccessSecret == c.RefreshSecret {
		return errors.New("config: access and refresh secrets must differ")
	}
	return nil
}

// parseAssignments parses "email=role,email=role" pairs. Malformed pairs
// are skipped rather than failing startup.
func parseAssignments(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		email, role, ok := strings.Cut(pair, "=")
		email = strings.TrimSpace(strings.ToLower(email))
		role = strings.TrimSpace(strings.ToLower(role))
		if !ok || email == "" || role == "" {
			continue
		}
		out[email] = role
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getenv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
