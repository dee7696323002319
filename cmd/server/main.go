// Command server runs the dolmetsch protocol-translation gateway.
//
// Configuration is layered: built-in defaults, then a YAML config file,
// then DOLMETSCH_* environment overrides. The config file is found via
// the -config flag, DOLMETSCH_CONFIG, ./config.yaml, or
// /etc/dolmetsch/config.yaml, in that order.
//
// The most common settings as environment variables:
//
//	DOLMETSCH_BACKEND_URL - generate-content backend URL (required)
//	DOLMETSCH_PROJECT     - backend project identifier
//	DOLMETSCH_API_KEY     - backend bearer token
//	DOLMETSCH_MODEL       - default model name
//	DOLMETSCH_PORT        - listen port (default: 8080)
//	DOLMETSCH_STORAGE     - usage store: "memory", "postgres" or "none"
//	DOLMETSCH_DEBUG       - debug categories, or "true" for all
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/rhuss/dolmetsch/pkg/auth"
	"github.com/rhuss/dolmetsch/pkg/auth/apikey"
	authjwt "github.com/rhuss/dolmetsch/pkg/auth/jwt"
	"github.com/rhuss/dolmetsch/pkg/auth/noop"
	"github.com/rhuss/dolmetsch/pkg/config"
	"github.com/rhuss/dolmetsch/pkg/debug"
	"github.com/rhuss/dolmetsch/pkg/engine"
	"github.com/rhuss/dolmetsch/pkg/observability"
	"github.com/rhuss/dolmetsch/pkg/provider/cloudcode"
	"github.com/rhuss/dolmetsch/pkg/storage/memory"
	"github.com/rhuss/dolmetsch/pkg/storage/postgres"
	"github.com/rhuss/dolmetsch/pkg/transport"
	transporthttp "github.com/rhuss/dolmetsch/pkg/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env for local development; ignored when absent.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	setupLogging(cfg.Logging)

	debugSpec := ""
	if cfg.Observability.Debug {
		debugSpec = "all"
	}
	debug.Init(debugSpec)

	// Create provider.
	prov, err := cloudcode.New(cloudcode.Config{
		BaseURL: cfg.Backend.BaseURL,
		Project: cfg.Backend.Project,
		APIKey:  cfg.Backend.APIKey,
		Timeout: cfg.Backend.Timeout,
	})
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}
	defer prov.Close()

	// Create optional usage store.
	store, err := buildStore(cfg.Storage)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	// Create engine.
	eng, err := engine.New(prov, store, engine.Config{
		DefaultModel: cfg.Backend.DefaultModel,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	// HTTP middleware: metrics first so it observes auth rejections too.
	var httpMW []func(http.Handler) http.Handler
	if cfg.Observability.Metrics {
		httpMW = append(httpMW, observability.MetricsMiddleware)
	}
	httpMW = append(httpMW, buildAuthMiddleware(cfg.Auth))

	srv := transporthttp.NewServer(eng, store, prov,
		transporthttp.WithAddr(cfg.Server.Addr()),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodyBytes),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithLogger(slog.Default()),
		transporthttp.WithHTTPMiddleware(httpMW...),
	)

	slog.Info("starting gateway",
		"addr", cfg.Server.Addr(),
		"backend", cfg.Backend.BaseURL,
		"project", cfg.Backend.Project,
		"model", cfg.Backend.DefaultModel,
		"storage", cfg.Storage.Type,
		"auth", cfg.Auth.Type,
	)

	return srv.ListenAndServe()
}

// setupLogging installs the default slog handler per the logging config.
func setupLogging(cfg config.LoggingConfig) {
	opts := &slog.HandlerOptions{Level: debug.ParseLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// buildStore creates the usage store, or nil when storage is disabled.
func buildStore(cfg config.StorageConfig) (transport.UsageStore, error) {
	switch cfg.Type {
	case "none":
		slog.Info("usage storage disabled")
		return nil, nil
	case "postgres":
		store, err := postgres.New(context.Background(), postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("creating postgres store: %w", err)
		}
		slog.Info("usage storage enabled", "type", "postgres")
		return store, nil
	default:
		slog.Info("usage storage enabled", "type", "memory", "max_records", cfg.MaxRecords)
		return memory.New(cfg.MaxRecords), nil
	}
}

// buildAuthMiddleware assembles the auth chain and rate limiter from
// config. With auth type "none" the chain still runs a no-op
// authenticator so downstream code always sees an identity.
func buildAuthMiddleware(cfg config.AuthConfig) func(http.Handler) http.Handler {
	chain := &auth.AuthChain{DefaultDecision: auth.No}

	switch cfg.Type {
	case "apikey":
		entries := make([]apikey.RawKeyEntry, 0, len(cfg.APIKeys))
		for i, k := range cfg.APIKeys {
			identity := auth.Identity{
				Subject:     k.Subject,
				ServiceTier: k.ServiceTier,
			}
			if identity.Subject == "" {
				identity.Subject = fmt.Sprintf("apikey-%d", i+1)
			}
			if identity.ServiceTier == "" {
				identity.ServiceTier = "default"
			}
			if k.TenantID != "" {
				identity.Metadata = map[string]string{"tenant_id": k.TenantID}
			}
			entries = append(entries, apikey.RawKeyEntry{Key: k.Key, Identity: identity})
		}
		chain.Authenticators = []auth.Authenticator{apikey.New(entries)}
	case "jwt":
		chain.Authenticators = []auth.Authenticator{authjwt.New(authjwt.Config{
			Issuer:      cfg.JWT.Issuer,
			Audience:    cfg.JWT.Audience,
			JWKSURL:     cfg.JWT.JWKSURL,
			UserClaim:   cfg.JWT.UserClaim,
			TenantClaim: cfg.JWT.TenantClaim,
			ScopesClaim: cfg.JWT.ScopesClaim,
			CacheTTL:    cfg.JWT.CacheTTL,
		})}
	default:
		chain.Authenticators = []auth.Authenticator{&noop.Authenticator{}}
	}

	var limiter auth.RateLimiter
	if len(cfg.RateLimits) > 0 || cfg.DefaultRPM > 0 {
		tiers := make(map[string]auth.TierConfig, len(cfg.RateLimits))
		for tier, rpm := range cfg.RateLimits {
			tiers[tier] = auth.TierConfig{RequestsPerMinute: rpm}
		}
		limiter = auth.NewInProcessLimiter(tiers, cfg.DefaultRPM)
	}

	return auth.Middleware(chain, limiter, auth.DefaultBypassEndpoints)
}
