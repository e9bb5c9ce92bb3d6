package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"voiceup.org/internal/ai"
	"voiceup.org/internal/auth"
	"voiceup.org/internal/config"
	"voiceup.org/internal/httpapi"
	"voiceup.org/internal/issues"
	"voiceup.org/internal/obs"
	"voiceup.org/internal/sso"
	"voiceup.org/internal/storage"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

const maxRequestBody = 12 << 20 // multipart photo uploads

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	ctx := context.Background()

	// Postgres when a DSN is configured, in-memory stores otherwise so the
	// service can run without infrastructure in development.
	var (
		db           *sql.DB
		accountStore auth.IdentityStore
		issueStore   issues.Store
	)
	if cfg.PGDSN != "" {
		var err error
		db, err = sql.Open("pgx", cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		accountStore = auth.NewPGStore(db)
		issueStore = issues.NewPGStore(db)
	} else {
		log.Println("VOICEUP_PG_DSN is empty, using in-memory stores")
		accountStore = auth.NewMemoryStore()
		issueStore = issues.NewMemoryStore()
	}

	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret:  cfg.AccessSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		Issuer:        cfg.TokenIssuer,
	})
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}

	authSvc, err := auth.NewService(accountStore, tokens, auth.NewPasswordHasher(0),
		auth.WithRoleAssignments(cfg.RoleAssignments))
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	var issueOpts []issues.ServiceOption
	if s3cfg := (storage.Config{
		Bucket:        cfg.S3Bucket,
		Region:        cfg.S3Region,
		Endpoint:      cfg.S3Endpoint,
		PublicBaseURL: cfg.S3PublicURL,
	}); s3cfg.Enabled() {
		uploader, err := storage.NewS3(ctx, s3cfg)
		if err != nil {
			log.Fatalf("s3: %v", err)
		}
		issueOpts = append(issueOpts, issues.WithUploader(uploader))
	} else {
		log.Println("object storage not configured, photo uploads disabled")
	}

	if aicfg := (ai.Config{APIKey: cfg.AIAPIKey, BaseURL: cfg.AIEndpoint}); aicfg.Enabled() {
		scorer, err := ai.NewClient(aicfg)
		if err != nil {
			log.Fatalf("ai client: %v", err)
		}
		issueOpts = append(issueOpts, issues.WithScorer(scorer))
	} else {
		log.Println("ai scoring not configured, reports get a zero severity score")
	}

	issueSvc := issues.NewService(issueStore, issueOpts...)

	var apiOpts []httpapi.Option
	if ssocfg := (sso.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		IssuerURL:    cfg.OIDCIssuerURL,
	}); ssocfg.Enabled() {
		google, err := sso.NewGoogleProvider(ctx, ssocfg)
		if err != nil {
			log.Fatalf("google sso: %v", err)
		}
		apiOpts = append(apiOpts, httpapi.WithGoogle(google))
	} else {
		log.Println("google sign-in not configured")
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, authSvc, issueSvc, apiOpts...)

	handler := api.Handler()
	handler = httpapi.MaxBodyBytes(handler, maxRequestBody)
	handler = httpapi.CORS(handler, cfg.CORSOrigins)
	handler = httpapi.SecurityHeaders(handler)
	handler = httpapi.Logging(handler)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting voiceup-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
