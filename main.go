package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/sync/errgroup"

	"github.com/skillup-bharat/server/internal/api"
	"github.com/skillup-bharat/server/internal/coach/gamification"
	"github.com/skillup-bharat/server/internal/coach/gateway"
	"github.com/skillup-bharat/server/internal/coach/model"
	"github.com/skillup-bharat/server/internal/coach/scenarios"
	"github.com/skillup-bharat/server/internal/coach/session"
	"github.com/skillup-bharat/server/internal/coach/turn"
	"github.com/skillup-bharat/server/internal/core"
	logx "github.com/skillup-bharat/server/pkg/logger"
	pkgredis "github.com/skillup-bharat/server/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

// AppConfig defines all configurable parameters of the service,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	Server model.ServerConfig

	// Infrastructure, only used with SESSION_STORE=redis
	Redis pkgredis.Config

	// LLM provider; a missing key leaves the gateway in fallback mode
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	Coach   model.CoachModelConfig
	Session model.SessionConfig
}

func main() {
	// Load .env file
	envErr := godotenv.Load(".env")

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Init()
		logx.Fatal().Err(err).Msg("Failed to process environment config")
	}

	logx.Init(logx.LoggerOpts{
		Environment: core.ParseEnvironment(cfg.Environment),
		Level:       cfg.LogLevel,
	})
	if envErr != nil {
		logx.Warn().Err(envErr).Msg("Could not load .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logx.Fatal().Err(err).Msg("Server stopped with error")
	}
	logx.Info().Msg("Server stopped successfully")
}

func run(ctx context.Context, cfg AppConfig) error {
	store, sweeper, closeStore, err := newSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	catalog := scenarios.Default()
	gw := gateway.New(ctx, cfg.APIKey, cfg.BaseURL, cfg.Coach)
	orch := turn.NewOrchestrator(catalog, gw, store, gamification.NewEngine())

	handler := api.NewHandler(orch, catalog, store)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewRouter(handler, logx.Logger(), cfg.Server.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logx.Info().Str("addr", srv.Addr).Str("model", cfg.Coach.Model).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if sweeper != nil {
		g.Go(func() error {
			return session.RunJanitor(gctx, sweeper, cfg.Session.SweepInterval, cfg.Session.IdleTTL)
		})
	}

	g.Go(func() error {
		// Wait for shutdown signal or a failed sibling.
		<-gctx.Done()
		logx.Info().Msg("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newSessionStore returns the configured store, its in-process sweeper (nil
// when the backend expires keys itself) and a close function.
func newSessionStore(ctx context.Context, cfg AppConfig) (session.Store, session.Sweeper, func(), error) {
	switch cfg.Session.Store {
	case model.SessionStoreRedis:
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return nil, nil, nil, err
		}
		logx.Info().Dur("idle_ttl", cfg.Session.IdleTTL).Msg("Using Redis session store")
		return session.NewRedisStore(rdb, cfg.Session.IdleTTL), nil, func() { _ = rdb.Close() }, nil
	default:
		if cfg.Session.Store != model.SessionStoreMemory {
			logx.Warn().Str("store", cfg.Session.Store).Msg("Unknown SESSION_STORE; using memory")
		}
		mem := session.NewMemoryStore()
		return mem, mem, func() {}, nil
	}
}
