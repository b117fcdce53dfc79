package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vanshika/indica/backend/internal/bootstrap"
	"github.com/vanshika/indica/backend/internal/config"
	"github.com/vanshika/indica/backend/internal/logging"
	"github.com/vanshika/indica/backend/internal/metrics"
	"github.com/vanshika/indica/backend/internal/server"
	"github.com/vanshika/indica/backend/internal/session"
	sessionsqlite "github.com/vanshika/indica/backend/internal/session/sqlite"
)

const pruneInterval = time.Minute

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err == nil {
		err = cfg.Session.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	clients, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build remote clients", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := clients.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", "error", err)
		}
	}()

	store, closeStore, err := buildSessionStore(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to open session store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	codec, err := session.NewCodec(cfg.Session.Secret)
	if err != nil {
		logger.Error("invalid session secret", "error", err)
		os.Exit(1)
	}

	recorder := metrics.New(true)
	manager, err := session.NewManager(store, codec, clients.WizardFactory(cfg, recorder, logger), cfg.Session.TTL, logger)
	if err != nil {
		logger.Error("failed to create session manager", "error", err)
		os.Exit(1)
	}

	pruneCtx, stopPrune := context.WithCancel(ctx)
	defer stopPrune()
	go manager.Run(pruneCtx, pruneInterval)

	health := server.DependencyHealth{"sessions": manager}
	if clients.Referrals != nil {
		health["graph"] = clients.Referrals
	}

	deps := server.RouterDependencies{
		Health: health,
		Onboarding: server.NewOnboardingHandlers(logger, manager, server.CookieSettings{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.SecureOnly,
		}, cfg.Onboarding.FrontendURL),
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowCredentials: true,
	}
	if cfg.HTTP.MetricsEnabled {
		deps.Metrics = recorder.Handler()
	}

	srv := server.New(logger, cfg.HTTP, server.NewRouter(logger, deps))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildSessionStore(ctx context.Context, logger *slog.Logger, cfg config.Config) (session.Store, func(), error) {
	if cfg.Session.StorePath == "" {
		logger.Info("SESSION_STORE_PATH not set, keeping sessions in memory")
		return session.NewMemoryStore(), func() {}, nil
	}
	store, err := sessionsqlite.Open(ctx, cfg.Session.StorePath)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing session store failed", "error", err)
		}
	}, nil
}
