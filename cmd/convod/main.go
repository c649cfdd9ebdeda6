// Command convod serves the tool-augmented conversation service: an HTTP
// edge over a turn orchestrator, a durable conversation store, and local
// plus optional remote (MCP) tools.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/relaydeck/convod/config"
	"github.com/relaydeck/convod/convo"
	"github.com/relaydeck/convod/httpserver"
	"github.com/relaydeck/convod/metrics"
	"github.com/relaydeck/convod/model"
	"github.com/relaydeck/convod/observability"
	"github.com/relaydeck/convod/session"
	"github.com/relaydeck/convod/store"
	"github.com/relaydeck/convod/toolbus/mcp"
	"github.com/relaydeck/convod/tools"
)

func main() {
	// Missing .env is fine; the environment may be set by the runtime.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("load config")
	}

	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, cleanup, err := newStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("init store")
	}
	defer cleanup()

	modelClient := model.NewClient(model.Config{
		BaseURL: cfg.ModelBaseURL,
		APIKey:  cfg.ModelAPIKey,
		Name:    cfg.ModelName,
		Timeout: cfg.ModelTimeout(),
	})

	registry := tools.NewRegistry()
	registerBuiltinTools(registry)

	var invoker tools.Invoker = registry
	if cfg.MCPServerURL != "" {
		logger.Info().Str("url", cfg.MCPServerURL).Msg("bridging remote tool server")
		invoker = tools.NewMux(registry, mcp.NewClient(cfg.MCPServerURL))
	}

	observer := observability.NewMultiObserver(
		observability.NewZerologObserver(logger),
		metrics.NewObserver(),
	)

	orch := convo.New(modelClient, invoker,
		convo.WithObserver(observer),
		convo.WithMaxRounds(cfg.MaxToolRounds),
		convo.WithSystemPrompt(cfg.SystemPrompt),
	)
	router := session.NewRouter(st, orch)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           httpserver.NewRouter(router, invoker, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("model", cfg.ModelName).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// newStore selects the persistence backend: Postgres when DATABASE_URL is
// set, JSON files under StorePath otherwise.
func newStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		return store.NewFileStore(cfg.StorePath), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	pg := store.NewPostgresStore(pool)
	if err := pg.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pg, pool.Close, nil
}
