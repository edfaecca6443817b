package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adgen/config"
	"adgen/internal/database"
	"adgen/internal/logging"
	"adgen/internal/repository"
	"adgen/internal/router"
	"adgen/internal/service"
	"adgen/internal/ws"
	"adgen/pkg/aigen"
	"adgen/pkg/cloudinary"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Log.Level, cfg.IsProduction())

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("database")
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.WithError(err).Fatal("migrate")
	}

	var cloud cloudinary.Client
	if cfg.Cloudinary.CloudName != "" && cfg.Cloudinary.APIKey != "" && cfg.Cloudinary.APISecret != "" {
		cloud, err = cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		if err != nil {
			logger.WithError(err).Fatal("cloudinary")
		}
	} else {
		logger.Warn("cloudinary not configured: only provider-hosted media can be stored")
	}

	provider, err := newProvider(&cfg.Generation)
	if err != nil {
		logger.WithError(err).Fatal("generation provider")
	}
	logger.WithField("provider", cfg.Generation.Provider).Info("generation provider ready")
	if cfg.Reconcile.StaleAfter <= cfg.Generation.Timeout {
		logger.WithFields(logrus.Fields{
			"stale_after": cfg.Reconcile.StaleAfter,
			"timeout":     cfg.Generation.Timeout,
		}).Warn("reconcile stale window does not exceed the generation timeout; in-flight generations may be refunded")
	}

	hub := ws.NewAssetHub()
	gen := service.NewMediaGenerator(provider, cloud, cfg.Cloudinary.Folder)
	engine := router.Setup(cfg, db, gen, cloud, hub, logger)

	var reconciler *service.ReconcileService
	if cfg.Reconcile.Enabled {
		reconciler = service.NewReconcileService(
			repository.NewLedgerRepository(db),
			repository.NewAssetRepository(db),
			repository.NewPendingRefundRepository(db),
			cfg.Reconcile.StaleAfter,
			cfg.Reconcile.BatchSize,
			logging.Component(logger, "reconciler"),
		)
		reconciler.SetNotifier(hub)
		reconciler.SetRetryPolicy(cfg.Reconcile.MaxAttempts, cfg.Reconcile.RetryBackoff)
		if err := reconciler.Start(cfg.Reconcile.Schedule); err != nil {
			logger.WithError(err).Fatal("reconciler")
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("listen")
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	// in-flight generations settle before the process exits
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Generation.Timeout+10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("server shutdown")
	}
	if reconciler != nil {
		reconciler.Stop(ctx)
	}
	logger.Info("server stopped")
}

func newProvider(cfg *config.GenerationConfig) (aigen.Provider, error) {
	switch cfg.Provider {
	case "openrouter":
		if cfg.APIKey == "" {
			return nil, errors.New("OPEN_ROUTER_API_KEY is required for the openrouter provider")
		}
		return aigen.NewOpenRouterProvider(cfg.BaseURL, cfg.APIKey, cfg.PhotoModel, cfg.VideoModel), nil
	case "", "stub":
		return aigen.StubProvider{}, nil
	default:
		return nil, errors.New("unknown GENERATION_PROVIDER " + cfg.Provider)
	}
}
