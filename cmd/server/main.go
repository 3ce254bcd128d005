package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/network-analytics/internal/config"
	"github.com/network-analytics/internal/domain"
	"github.com/network-analytics/internal/handler"
	"github.com/network-analytics/internal/kafka"
	"github.com/network-analytics/internal/postgres"
	"github.com/network-analytics/internal/presence"
	"github.com/network-analytics/internal/redis"
	"github.com/network-analytics/internal/report"
	"github.com/network-analytics/internal/service"
	"github.com/network-analytics/internal/session"
	"github.com/network-analytics/internal/websocket"
	"github.com/network-analytics/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the snapshot channel
	logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
	channel, err := redis.NewChannel(&cfg.Redis, cfg.Presence.Channel, logger)
	if err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer channel.Close()
	logger.Info("connected to Redis")

	// Initialize PostgreSQL
	logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	repo, err := postgres.NewRepository(&cfg.Postgres, cfg.Instance.ID, logger)
	if err != nil {
		logger.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to PostgreSQL")

	// Run database migrations
	if err := repo.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub initialized")

	// Initialize local state
	sessions := session.NewTracker()
	store := presence.NewStore()
	pool := worker.NewPool(cfg.Worker.Count, cfg.Worker.QueueSize, logger)

	// Initialize services
	analytics := service.NewAnalytics(repo, pool, sessions, store, logger)

	// Subscribe to the fleet snapshot channel
	err = channel.Subscribe(ctx, func(snap domain.InstanceSnapshot) {
		store.Upsert(snap)
		snaps := store.SnapshotAll()
		wsHub.BroadcastPresence(websocket.PresenceUpdate{
			Instances:     len(snaps),
			PlayersOnline: len(report.Flatten(snaps)),
			TimeSent:      snap.TimeSent,
		})
	})
	if err != nil {
		logger.Error("failed to subscribe to snapshot channel", "error", err)
		os.Exit(1)
	}

	// Start the publish and sweep timers
	builder := presence.NewBuilder(cfg.Instance.ID, sessions)
	publisher := presence.NewPublisher(builder, channel,
		cfg.Presence.PublishMinInterval, cfg.Presence.PublishMaxInterval, logger)
	sweeper := presence.NewSweeper(store, cfg.Presence.SweepInterval, cfg.Presence.SnapshotTTL, logger)

	if err := publisher.Start(ctx); err != nil {
		logger.Error("failed to start publisher", "error", err)
		os.Exit(1)
	}
	if err := sweeper.Start(ctx); err != nil {
		logger.Error("failed to start sweeper", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka consumer for player event ingestion
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		var err error
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, analytics, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		} else {
			if err := kafkaConsumer.Start(); err != nil {
				logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
				kafkaConsumer = nil
			} else {
				logger.Info("Kafka consumer started successfully")
			}
		}
	}

	// Initialize HTTP handler with WebSocket hub
	httpHandler := handler.NewHandler(analytics, wsHub, cfg.Server.AuthToken, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port, "instance_id", cfg.Instance.ID)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the timers first so no new work is produced
	publisher.Stop()
	sweeper.Stop()

	// Stop Kafka consumer
	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	// Stop WebSocket hub
	wsHub.Stop()

	// Let in-flight repository work finish
	pool.Shutdown()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}
