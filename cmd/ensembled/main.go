// Command ensembled runs the ensemble orchestration server.
//
// Tools are served over MCP on stdio by default, or over the streamable
// HTTP transport when server.transport is "http". Configuration is read
// from a YAML file (-config, ENSEMBLE_CONFIG, or a discovered
// config.yaml) with ENSEMBLE_* environment overrides.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ensembled/ensemble/pkg/auth"
	"github.com/ensembled/ensemble/pkg/auth/apikey"
	authjwt "github.com/ensembled/ensemble/pkg/auth/jwt"
	"github.com/ensembled/ensemble/pkg/config"
	"github.com/ensembled/ensemble/pkg/engine"
	"github.com/ensembled/ensemble/pkg/observability"
	"github.com/ensembled/ensemble/pkg/provider"
	"github.com/ensembled/ensemble/pkg/provider/openrouter"
	"github.com/ensembled/ensemble/pkg/provider/scripted"
	"github.com/ensembled/ensemble/pkg/storage"
	"github.com/ensembled/ensemble/pkg/storage/cached"
	"github.com/ensembled/ensemble/pkg/storage/memory"
	"github.com/ensembled/ensemble/pkg/storage/postgres"
	transportmcp "github.com/ensembled/ensemble/pkg/transport/mcp"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	// On stdio, stdout belongs to the MCP protocol; log to stderr.
	if cfg.Server.Transport == "stdio" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	}

	prov, err := newProvider(cfg)
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}
	defer prov.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating context store: %w", err)
	}
	defer store.Close()

	eng, err := engine.New(prov, store, engine.Config{
		DefaultModels:     cfg.Engine.DefaultModels,
		DefaultModelCount: cfg.Engine.DefaultModelCount,
		SynthesisModel:    cfg.Engine.SynthesisModel,
		ConsensusModel:    cfg.Engine.ConsensusModel,
		ConclusionModel:   cfg.Engine.ConclusionModel,
		ClassifierModel:   cfg.Engine.ClassifierModel,
		DefaultMaxRounds:  cfg.Engine.MaxRounds,
		HistoryLimit:      cfg.Engine.HistoryLimit,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	srv, err := transportmcp.NewServer(eng, store, prov)
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	if cfg.Server.Transport == "stdio" {
		return srv.Run(ctx)
	}
	return runHTTP(ctx, cfg, srv)
}

// newProvider builds the completion backend named by the configuration.
func newProvider(cfg *config.Config) (provider.Provider, error) {
	switch cfg.Provider.Type {
	case "scripted":
		slog.Info("using scripted provider")
		return scripted.New(nil), nil
	default:
		return openrouter.New(openrouter.Config{
			BaseURL:      cfg.Provider.BaseURL,
			APIKey:       cfg.Provider.APIKey,
			DefaultModel: cfg.Provider.DefaultModel,
			Timeout:      cfg.Provider.Timeout,
			Referer:      cfg.Provider.Referer,
			Title:        cfg.Provider.Title,
		})
	}
}

// newStore builds the context store named by the configuration. The
// postgres store gets a read-through history cache unless disabled.
func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "postgres":
		pg, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, err
		}
		if cfg.Storage.Cache.Enabled {
			slog.Info("storage enabled", "type", "postgres", "cache_conversations", cfg.Storage.Cache.MaxConversations)
			return cached.New(pg, cfg.Storage.Cache.MaxConversations), nil
		}
		slog.Info("storage enabled", "type", "postgres")
		return pg, nil
	default:
		slog.Info("storage enabled", "type", "memory", "max_size", cfg.Storage.MaxSize)
		return memory.New(cfg.Storage.MaxSize), nil
	}
}

// newAuthChain builds the authenticator chain named by the configuration.
func newAuthChain(cfg *config.Config) *auth.Chain {
	switch cfg.Auth.Type {
	case "apikey":
		keys := make([]apikey.Key, 0, len(cfg.Auth.APIKeys))
		for _, k := range cfg.Auth.APIKeys {
			keys = append(keys, apikey.Key{
				Token: k.Key,
				Identity: auth.Identity{
					Subject: k.Subject,
					Tenant:  k.TenantID,
					Tier:    k.ServiceTier,
				},
			})
		}
		return &auth.Chain{
			Authenticators: []auth.Authenticator{apikey.New(keys)},
			Fallback:       auth.Denied,
		}
	case "jwt":
		return &auth.Chain{
			Authenticators: []auth.Authenticator{authjwt.New(authjwt.Config{
				Secret:   cfg.Auth.JWT.Secret,
				Issuer:   cfg.Auth.JWT.Issuer,
				Audience: cfg.Auth.JWT.Audience,
			})},
			Fallback: auth.Denied,
		}
	default:
		return &auth.Chain{
			Authenticators: []auth.Authenticator{auth.Anonymous{}},
			Fallback:       auth.Granted,
		}
	}
}

// runHTTP serves MCP over the streamable HTTP transport with auth,
// metrics, and health endpoints.
func runHTTP(ctx context.Context, cfg *config.Config, srv *transportmcp.Server) error {
	chain := newAuthChain(cfg)

	var limiter auth.Limiter
	if len(cfg.Auth.RateLimits) > 0 {
		limiter = auth.NewTierLimiter(cfg.Auth.RateLimits, 0)
	}

	mux := http.NewServeMux()
	mux.Handle("/", srv.HTTPHandler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	if cfg.Observability.Metrics.Enabled {
		mux.Handle("GET "+cfg.Observability.Metrics.Path, promhttp.Handler())
	}

	handler := auth.Middleware(chain, limiter, auth.DefaultBypassEndpoints)(
		observability.MetricsMiddleware(mux))

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			"port", cfg.Server.Port,
			"provider", cfg.Provider.Type,
			"storage", cfg.Storage.Type,
			"auth", cfg.Auth.Type)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
