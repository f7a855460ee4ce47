package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/core"
	"fintrack/internal/events"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger, nil)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	// Local subscribers see every event before it leaves the process.
	bus := events.NewBus()
	eventLog := logger.WithComponent(applog.ComponentEvents)
	bus.Subscribe("", func(ctx context.Context, ev events.Event) error {
		eventLog.DebugContext(ctx, "Event published",
			applog.FieldEventType, ev.Type,
			applog.FieldUserID, ev.UserID,
			applog.FieldRecordID, ev.RecordID)
		return nil
	})

	metricsCache := cache.NewLRUCache[[]core.BudgetMetrics](cfg.CacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager(logger.WithComponent(applog.ComponentCache))
	cacheManager.Register(metricsCache)
	cacheManager.StartCleanup(cfg.CacheTTL)

	// Broker delivery runs off the request path.
	outbox := events.NewAsync(result.Publisher, 1024, 5*time.Second, func(ev events.Event, err error) {
		eventLog.Error("Failed to deliver event",
			applog.FieldError, err,
			applog.FieldEventType, ev.Type,
			applog.FieldUserID, ev.UserID)
	})

	svc := services.NewBudgetService(result.Repository,
		services.WithPublisher(events.Fanout{bus, outbox}),
		services.WithMetricsCache(metricsCache),
		services.WithLogger(logger))

	srv := apphttp.NewServer(":"+cfg.Port, svc, logger, apphttp.Options{
		BillsHorizon: cfg.BillsHorizon,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) error {
		err := srv.Shutdown(ctx)
		cacheManager.Stop()
		return errors.Join(err, outbox.Close(ctx), result.Cleanup())
	})

	logger.Info("Starting fintrack server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
