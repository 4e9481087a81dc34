package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"

	"github.com/clothhaven/storefront/internal/backend"
	"github.com/clothhaven/storefront/internal/catalog"
	"github.com/clothhaven/storefront/internal/httpserver"
	"github.com/clothhaven/storefront/internal/httpserver/middleware"
	"github.com/clothhaven/storefront/internal/inventory"
	"github.com/clothhaven/storefront/internal/platform/config"
	"github.com/clothhaven/storefront/internal/platform/observability"
)

func main() {
	rootCtx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("storefront")

	service, err := buildBackend(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise backend", zap.Error(err))
	}

	aggregator, err := catalog.NewAggregator(catalog.Deps{
		Products:    service,
		Images:      service,
		Variants:    service,
		Options:     catalog.Options{PlaceholderImageURL: cfg.Catalog.PlaceholderImageURL},
		Concurrency: cfg.Catalog.Concurrency,
		Logger:      logger.Named("catalog"),
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog", zap.Error(err))
	}

	console, err := inventory.NewConsole(service, logger)
	if err != nil {
		logger.Fatal("failed to initialise inventory console", zap.Error(err))
	}
	defer console.Close()

	authenticator, err := buildAuthenticator(rootCtx, cfg.Firebase.ProjectID, logger)
	if err != nil {
		logger.Fatal("failed to initialise authenticator", zap.Error(err))
	}

	srv := httpserver.New(httpserver.Config{
		Address:       cfg.Server.Address,
		BasePath:      cfg.Admin.BasePath,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		IdleTimeout:   cfg.Server.IdleTimeout,
		Authenticator: authenticator,
		QuantityCap:   cfg.Catalog.QuantityCap,
		Logger:        logger,
		Catalog:       aggregator,
		Cart:          service,
		Console:       console,
	})

	ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	logger.Info("storefront listening",
		zap.String("addr", cfg.Server.Address),
		zap.String("admin_base_path", cfg.Admin.BasePath),
		zap.Bool("memory_backend", cfg.UsesMemoryBackend()),
	)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	console.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		cancel()
		stop()
		os.Exit(1)
	}
}

func buildBackend(cfg config.Config, logger *zap.Logger) (backend.Service, error) {
	if cfg.UsesMemoryBackend() {
		logger.Warn("STOREFRONT_BACKEND_BASE_URL not set; serving the in-memory demo catalog")
		return backend.NewDemoMemory(), nil
	}
	return backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout,
		backend.WithLogger(logger.Named("backend")),
		backend.WithInstruments(observability.NewClientInstruments(logger.Named("backend"))),
	)
}

func buildAuthenticator(ctx context.Context, projectID string, logger *zap.Logger) (middleware.Authenticator, error) {
	if projectID == "" {
		logger.Warn("STOREFRONT_FIREBASE_PROJECT_ID not set; using passthrough authenticator")
		return nil, nil
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase auth client: %w", err)
	}

	authenticator, err := middleware.NewFirebaseAuthenticator(client)
	if err != nil {
		return nil, err
	}

	logger.Info("Firebase authenticator enabled", zap.String("project", projectID))
	return authenticator, nil
}
