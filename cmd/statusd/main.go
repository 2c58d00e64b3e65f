package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dashlens/resilience-core/internal/api"
	"github.com/dashlens/resilience-core/internal/degradation"
	"github.com/dashlens/resilience-core/internal/detector"
	"github.com/dashlens/resilience-core/internal/fallback"
	"github.com/dashlens/resilience-core/internal/features"
	"github.com/dashlens/resilience-core/internal/opqueue"
	"github.com/dashlens/resilience-core/pkg/config"
	"github.com/dashlens/resilience-core/pkg/logging"
	"github.com/dashlens/resilience-core/pkg/metrics"
	"github.com/dashlens/resilience-core/pkg/tracing"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logger, err := logging.NewLogger(&logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      cfg.Logging.Output,
		ServiceName: "statusd",
		Version:     version,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logging.SetGlobalLogger(logger)

	// Initialize tracing
	tracer, err := tracing.NewTracingService(&tracing.Config{
		ServiceName:    "statusd",
		ServiceVersion: version,
		Environment:    os.Getenv("ENVIRONMENT"),
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err.Error())
		os.Exit(1)
	}

	// Initialize metrics
	m := metrics.NewMetrics(&metrics.Config{
		Namespace: cfg.Metrics.Namespace,
		Enabled:   cfg.Metrics.Enabled,
	})

	// Connectivity detection
	det := detector.NewDetector(cfg, detector.Options{
		Logger:  logger,
		Metrics: m,
		Tracer:  tracer,
	})

	// Degradation control and feature availability
	degrader := degradation.NewController(cfg.Degradation, logger, m)
	registry := features.NewRegistry(defaultFeatures(), logger, m)

	// Optional Redis-backed queue journal
	var journal opqueue.Journal
	if cfg.Fallback.EnableJournal {
		j, err := opqueue.NewRedisJournal(cfg.Redis, logger)
		if err != nil {
			logger.Warn("queue journal unavailable, continuing without it", "error", err.Error())
		} else {
			journal = j
			defer j.Close()
		}
	}

	// Fallback execution
	fb := fallback.NewManager(cfg.Fallback, fallback.Options{
		Detector: det,
		Degrader: degrader,
		Features: registry,
		Journal:  journal,
		Logger:   logger,
		Metrics:  m,
		Tracer:   tracer,
	})
	fb.Start(context.Background())

	det.Start()

	server := api.NewServer(cfg, det, degrader, registry, fb, logger, m)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error("server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err.Error())
	}

	fb.Stop(ctx)
	det.Destroy()

	if err := tracer.Shutdown(ctx); err != nil {
		logger.Warn("tracer shutdown failed", "error", err.Error())
	}

	logger.Info("exited")
}

// defaultFeatures declares the dashboard features this service gates.
func defaultFeatures() []features.FeatureConfig {
	return []features.FeatureConfig{
		{
			FeatureID: "dashboard-overview",
			Essential: true,
			Fallback:  features.FallbackDegrade,
			MinLevel:  degradation.LevelReadOnly,
			Message:   "Showing cached overview data.",
		},
		{
			FeatureID: "live-metrics",
			Fallback:  features.FallbackDegrade,
			MinLevel:  degradation.LevelLimited,
			Message:   "Live metrics are paused while offline.",
			Alternatives: []string{
				"dashboard-overview",
			},
		},
		{
			FeatureID: "report-export",
			Fallback:  features.FallbackQueue,
			MinLevel:  degradation.LevelFull,
			Message:   "Exports will run when the connection returns.",
		},
		{
			FeatureID: "annotations",
			Fallback:  features.FallbackQueue,
			MinLevel:  degradation.LevelMinimal,
			Message:   "Annotations are saved locally and synced later.",
		},
		{
			FeatureID: "admin-settings",
			Fallback:  features.FallbackDisable,
			MinLevel:  degradation.LevelFull,
			Message:   "Settings cannot be changed while degraded.",
		},
	}
}
