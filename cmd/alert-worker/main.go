package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"finledger/internal/amqp"
	"finledger/internal/config"
	applog "finledger/internal/log"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	applog.SetupDefault(slog.LevelInfo)
	logger := applog.New(applog.Config{Component: applog.ComponentAMQP})

	logger.Info("Starting alert-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the alert worker")
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP broker", "error", err, "url", cfg.AMQPURL)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Consuming alerts", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

	err = client.ConsumeAlerts(ctx, func(ctx context.Context, msg *amqp.AlertMessage) error {
		switch msg.Type {
		case amqp.AlertLargeTransaction:
			logger.InfoContext(ctx, "Large transaction alert",
				"user_id", msg.UserID,
				"category", msg.Category,
				"amount", msg.Amount)
		case amqp.AlertBudgetThreshold:
			logger.InfoContext(ctx, "Budget threshold alert",
				"user_id", msg.UserID,
				"budget_id", msg.BudgetID,
				"category", msg.Category,
				"percent", msg.Percent)
		default:
			logger.WarnContext(ctx, "Unknown alert type", "type", msg.Type, "user_id", msg.UserID)
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		logger.Error("Alert consumption stopped", "error", err)
		os.Exit(1)
	}

	logger.Info("Alert-worker shutdown complete")
}
