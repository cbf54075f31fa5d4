package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"treasury/internal/amqp"
	"treasury/internal/config"
	"treasury/internal/log"
	"treasury/internal/notify"
	"treasury/internal/services"
	"treasury/internal/storage"
	"treasury/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting treasury")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	store, err := storage.New(cfg.DataDir, cfg.CompressThreshold, cfg.OptimizeThreshold, services.CriticalDocuments()...)
	if err != nil {
		logger.Error("Failed to initialize document store", "error", err, "dir", cfg.DataDir)
		os.Exit(1)
	}
	store.OptimizeStartup()

	// AMQP is optional; the ledger runs fine without an event consumer.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			defer client.Close()
			events = client
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - document change events will not be published")
	}

	ledger, err := services.NewLedgerService(store, events)
	if err != nil {
		logger.Error("Failed to load ledger", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ledger.EnsureAdminUser(ctx, cfg.AdminPassword); err != nil {
		logger.Error("Failed to ensure admin user", "error", err)
		os.Exit(1)
	}

	reminders := worker.NewReminderWorker(ledger, notify.LogNotifier{}, cfg.ReminderHour)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return reminders.Run(ctx)
	})

	logger.Info("Treasury running",
		"data_dir", cfg.DataDir,
		"reminder_hour", cfg.ReminderHour)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Shutdown with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Treasury stopped")
}
