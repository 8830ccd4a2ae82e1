package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/classboard/notify-worker/internal/api"
	"github.com/classboard/notify-worker/internal/config"
	"github.com/classboard/notify-worker/internal/db"
	"github.com/classboard/notify-worker/internal/dispatcher"
	"github.com/classboard/notify-worker/internal/featuregate"
	"github.com/classboard/notify-worker/internal/mailer"
	"github.com/classboard/notify-worker/internal/metrics"
	"github.com/classboard/notify-worker/internal/ratelimiter"
	"github.com/classboard/notify-worker/internal/repository"
	"github.com/classboard/notify-worker/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if cfg.DryRun {
		logger.Info("dry-run mode: sends are simulated, no real email leaves this service")
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	queueRepo := repository.NewPgQueueRepository(pool)
	flagRepo := repository.NewPgFlagRepository(pool)
	gate := featuregate.New(flagRepo, cfg.FeatureFlagKey, logger)
	mail := mailer.NewHTTPMailer(
		cfg.MailerEndpoint, cfg.MailerAPIKey, cfg.MailerFrom,
		cfg.AppBaseURL, cfg.DryRun, cfg.MailerTimeout,
	)
	limiter := ratelimiter.New(cfg.SendRatePerSec)
	svc := service.NewQueueService(queueRepo, logger)

	onSent, onFailed, onClaimLost := m.DispatcherHooks()
	disp := dispatcher.New(
		queueRepo, gate, mail, limiter,
		cfg.BatchSize, cfg.DryRun, logger,
		dispatcher.MetricHooks{
			OnSent:      onSent,
			OnFailed:    onFailed,
			OnClaimLost: onClaimLost,
		},
	)

	// ---- optional internal poller ----
	// Context for background goroutines; cancelled on shutdown signal.
	pollerCtx, cancelPoller := context.WithCancel(ctx)
	defer cancelPoller()

	if cfg.DispatchInterval > 0 {
		poller := dispatcher.NewPoller(disp, cfg.DispatchInterval, logger)
		go poller.Run(pollerCtx)
	}

	// ---- HTTP server ----
	router := api.NewRouter(disp, svc, m.ObserveRun, reg, cfg.TriggerSecret, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop the internal poller; an in-flight run finishes its current row
	//    at the next ctx check.
	cancelPoller()

	logger.Info("server stopped cleanly")
}
