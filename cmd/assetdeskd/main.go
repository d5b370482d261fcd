package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"assetdesk-backend/config"
	"assetdesk-backend/internal/api"
	"assetdesk-backend/internal/bankuploads"
	"assetdesk-backend/internal/db"
	"assetdesk-backend/internal/notification"
	"assetdesk-backend/internal/session"
	"assetdesk-backend/internal/store"
	"assetdesk-backend/internal/upstream"
	"assetdesk-backend/internal/wizard"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("configuration loaded", zap.String("path", configPath))

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	appStore := store.NewGormStore(gormDB)
	logger.Info("database initialized")

	client, err := upstream.New(cfg.Upstream, logger.Named("upstream"))
	if err != nil {
		logger.Fatal("failed to create upstream client", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Push is optional: without VAPID keys saved assets are not broadcast.
	var webpushOptions *webpush.Options
	var publisher wizard.Publisher
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions, logger.Named("push"))
		pool.Start(ctx)
		publisher = pool
	} else {
		logger.Warn("VAPID keys are not configured, push notifications are disabled")
	}

	sessions := session.NewManager(client, publisher, cfg.Wizard.SessionTTL, logger.Named("wizard"))

	router := api.NewRouter(cfg.Server, api.Deps{
		Store:     appStore,
		Webpush:   webpushOptions,
		Sessions:  sessions,
		Assets:    client,
		Dropdowns: client,
		LastView:  bankuploads.NewService(appStore, client, logger.Named("bankuploads")),
		Log:       logger,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("HTTP server Shutdown", zap.Error(err))
	}

	logger.Info("server gracefully stopped")
}
