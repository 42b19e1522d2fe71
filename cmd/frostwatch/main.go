// Package main is the entry point for the FrostWatch service.
//
// It loads configuration, builds the forecast pipeline, the sensor cache,
// the alert dispatcher, and the job scheduler, then serves the HTTP surface
// until a shutdown signal arrives. When DATABASE_URL is set, predictions
// and farmers are persisted in Postgres; otherwise both are kept in process
// memory.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"frostwatch/internal/alerts"
	"frostwatch/internal/api"
	"frostwatch/internal/config"
	"frostwatch/internal/db"
	"frostwatch/internal/external"
	"frostwatch/internal/forecast"
	"frostwatch/internal/metrics"
	"frostwatch/internal/scheduler"
	"frostwatch/internal/sensors"
	"frostwatch/internal/store"
	"frostwatch/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so main() can cleanly exit on error.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("frostwatch starting",
		"environment", cfg.Environment,
		"service", cfg.Service,
		"port", cfg.Server.Port,
	)

	clock := types.RealClock{}
	collector := metrics.NewCollector("frostwatch", prometheus.DefaultRegisterer)

	// Storage: Postgres when configured, in-process otherwise.
	var (
		predictions types.PredictionRepository
		farmers     types.FarmerDirectory
		pool        *pgxpool.Pool
	)
	if url := cfg.Database.URL.Unmask(); url != "" {
		poolCfg, err := pgxpool.ParseConfig(url)
		if err != nil {
			return fmt.Errorf("parsing database url: %w", err)
		}
		poolCfg.MaxConns = int32(cfg.Database.MaxConns)
		poolCfg.MinConns = int32(cfg.Database.MinConns)
		poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime

		pool, err = pgxpool.NewWithConfig(context.Background(), poolCfg)
		if err != nil {
			return fmt.Errorf("creating database pool: %w", err)
		}
		defer pool.Close()

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := db.Migrate(migrateCtx, pool); err != nil {
			return fmt.Errorf("migrating database schema: %w", err)
		}

		predictions = db.NewPredictionRepository(pool, clock)
		farmers = db.NewFarmerRepository(pool)
		logger.Info("using postgres storage")
	} else {
		predictions = store.NewPredictionStore(clock)
		farmers = store.NewFarmerStore()
		logger.Info("using in-memory storage", "reason", "DATABASE_URL not set")
	}

	// Upstream clients.
	sensorClient := external.NewSensorClient(
		&http.Client{Timeout: cfg.Sensor.ClientTimeout},
		external.SensorClientConfig{
			ServerURL:     cfg.Sensor.ServerURL,
			ApplicationID: cfg.Sensor.ApplicationID,
			APIKey:        cfg.Sensor.APIKey,
			DeviceIDs:     cfg.Sensor.DeviceIDs,
			Logger:        logger,
		},
	)
	twilioClient := external.NewTwilioClient(
		&http.Client{Timeout: cfg.Twilio.ClientTimeout},
		external.TwilioClientConfig{
			AccountSID: cfg.Twilio.AccountSID,
			AuthToken:  cfg.Twilio.AuthToken,
			FromNumber: cfg.Twilio.WhatsAppNumber,
			Logger:     logger,
		},
	)

	// Domain components.
	cache := sensors.NewCache(sensors.CacheConfig{
		Source:  sensorClient,
		Window:  cfg.Sensor.CacheWindow,
		Clock:   clock,
		Logger:  logger,
		Metrics: collector,
	})
	generator := forecast.NewGenerator(forecast.GeneratorConfig{
		Sensors:      sensorClient,
		Repo:         predictions,
		SignalA:      forecast.NewBaselineModel(types.ModelSignalA, forecast.SignalACoefficients),
		SignalB:      forecast.NewBaselineModel(types.ModelSignalB, forecast.SignalBCoefficients),
		WindowDays:   cfg.Forecast.WindowDays,
		ModelTimeout: cfg.Forecast.ModelTimeout,
		Clock:        clock,
		Logger:       logger,
		Metrics:      collector,
	})
	dispatcher := alerts.NewDispatcher(alerts.DispatcherConfig{
		Predictions: predictions,
		Directory:   farmers,
		Sender:      twilioClient,
		Concurrency: cfg.Alert.SendConcurrency,
		Clock:       clock,
		Logger:      logger,
		Metrics:     collector,
	})

	// Scheduled jobs.
	sched := scheduler.New(scheduler.Config{
		Clock:   clock,
		Logger:  logger,
		Metrics: collector,
	})
	scheduler.RegisterStandardJobs(sched, generator, cache, alerts.NewDailyAlertJob(farmers, dispatcher))
	sched.Start()
	defer sched.Stop()

	// HTTP surface.
	srv, err := api.NewServer(api.ServerConfig{
		Logger:         logger,
		Metrics:        collector,
		Clock:          clock,
		RequestTimeout: cfg.Server.RequestTimeout,
		Service:        cfg.Service,
		Generator:      generator,
		Predictions:    predictions,
		Farmers:        farmers,
		SensorCache:    cache,
		Dispatcher:     dispatcher,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}
