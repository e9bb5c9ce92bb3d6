// Package sso exchanges Google OAuth authorization codes for verified
// identity profiles via OpenID Connect discovery.
package sso

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"voiceup.org/internal/auth"
)

const googleIssuer = "https://accounts.google.com"

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// IssuerURL overrides the discovery endpoint, for tests.
	IssuerURL string
}

func (c Config) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != ""
}

// Provider wraps the discovered OAuth2 endpoints and the ID token
// verifier for one upstream identity provider.
type Provider struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
}

func NewGoogleProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("sso: client id, client secret and redirect url are required")
	}
	issuer := cfg.IssuerURL
	if issuer == "" {
		issuer = googleIssuer
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("sso: discover provider: %w", err)
	}
	return &Provider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// AuthCodeURL returns the upstream consent URL bound to state.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state)
}

// Exchange trades the authorization code for tokens, verifies the ID
// token and maps its claims to a profile.
func (p *Provider) Exchange(ctx context.Context, code string) (auth.FederatedProfile, error) {
	var profile auth.FederatedProfile

	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return profile, fmt.Errorf("sso: exchange code: %w", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return profile, fmt.Errorf("sso: missing id_token in response")
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return profile, fmt.Errorf("sso: verify id token: %w", err)
	}

	var claims struct {
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return profile, fmt.Errorf("sso: parse claims: %w", err)
	}
	if claims.Email == "" {
		return profile, fmt.Errorf("sso: missing email in id token")
	}

	profile = auth.FederatedProfile{
		Subject:    idToken.Subject,
		Email:      claims.Email,
		GivenName:  claims.GivenName,
		FamilyName: claims.FamilyName,
	}
	return profile, nil
}

// NewState returns a random URL-safe value for CSRF binding.
func NewState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("sso: generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
