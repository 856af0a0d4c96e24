package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finledger/internal/backend"
	"finledger/internal/config"
	"finledger/internal/core"
	applog "finledger/internal/log"
	"finledger/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	applog.SetupDefault(slog.LevelInfo)
	logger := applog.New(applog.Config{Component: applog.ComponentWorker})

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	store, err := backend.Open(cfg)
	if err != nil {
		logger.Error("Failed to open data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	materializer := services.NewMaterializer(store, services.NewConverter(store))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Recurring materializer configured", "interval", cfg.RecurringInterval)

	// Catch up immediately on startup, then on every tick.
	runOnce(ctx, logger, store, materializer)

	ticker := time.NewTicker(cfg.RecurringInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Recurring-worker shutdown complete")
			return
		case <-ticker.C:
			runOnce(ctx, logger, store, materializer)
		}
	}
}

// runOnce materializes due rules for every user. A failure for one user
// does not stop the others.
func runOnce(ctx context.Context, logger *applog.Logger, store backend.Store, m *services.Materializer) {
	userIDs, err := store.ListUserIDs(ctx)
	if err != nil {
		logger.Error("Failed to list users", "error", err)
		return
	}

	asOf := core.DateOf(time.Now())
	total := 0
	for _, userID := range userIDs {
		created, err := m.MaterializeDue(ctx, userID, asOf)
		if err != nil {
			logger.Error("Materialization failed", "error", err, "user_id", userID)
			continue
		}
		total += created
	}

	logger.Info("Materialization pass complete",
		"users", len(userIDs),
		"transactions_created", total,
		"as_of", asOf.Key())
}
