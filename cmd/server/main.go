package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"f1league/internal/cache"
	"f1league/internal/calendar"
	"f1league/internal/client"
	"f1league/internal/config"
	"f1league/internal/metrics"
	"f1league/internal/models"
	"f1league/internal/notify"
	"f1league/internal/repository"
	"f1league/internal/scheduler"
	"f1league/internal/server"
	"f1league/internal/settlement"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	setupLogger()

	log.Info().Msg("Starting F1 league prediction server")

	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	// Result feed client
	feed := client.NewClient(cfg.FeedBaseURL, cfg.FeedTimeout)
	log.Info().Str("base_url", cfg.FeedBaseURL).Msg("Result feed client initialized")

	// Database
	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to run schema migration")
	}

	// Redis cache. The server degrades to feed-only lookups without it.
	redisCache, err := cache.NewRedisCache(cache.Config{
		Host:     cfg.RedisHost,
		Port:     strconv.Itoa(cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
		redisCache = nil
	} else {
		defer redisCache.Close()
	}

	// Season calendar, the source of truth for the deadline gate
	cal, err := calendar.LoadFile(cfg.CalendarPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.CalendarPath).Msg("Failed to load race calendar")
	}

	var notifier settlement.Notifier = notify.Noop{}
	if cfg.NotifyEnabled {
		notifier = notify.NewWebhook(cfg.NotifyWebhookURL, 10*time.Second)
		log.Info().Msg("Webhook notifications enabled")
	}

	settler := settlement.New(
		db.Predictions,
		db.Users,
		db.Rounds,
		db,
		feed,
		notifier,
		models.DefaultRoster(),
		cfg.FeedSeason,
	)

	// Metrics server
	if cfg.EnableMetrics {
		go startMetricsServer(cfg.MetricsPort)
	}

	// Uptime gauge
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Background settlement and cache refresh
	sched := scheduler.NewScheduler(cfg, cal, settler, feed, redisCache)
	if cfg.EnableScheduler {
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	// API server
	srv := server.NewServer(cfg, db, settler, cal, feed, redisCache)
	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("API server stopped")
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info().Msg("Shutting down...")
	if cfg.EnableScheduler {
		sched.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("API server shutdown failed")
	}

	log.Info().Msg("Server shutdown complete")
}

// setupLogger configures the zerolog logger
func setupLogger() {
	// Pretty console logging in development
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	// Set log level
	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	log.Info().Int("port", port).Msg("Starting metrics server")

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
