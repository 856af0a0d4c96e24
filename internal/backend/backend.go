// Package backend selects and opens the configured ledger store.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finledger/internal/config"
	"finledger/internal/core"
	"finledger/internal/storage"
	"finledger/internal/storage/memory"
)

// Store is the full persistence surface the application is built
// against. Both the SQLite repository and the in-memory store satisfy
// it.
type Store interface {
	Close() error

	CreateUser(ctx context.Context, u *core.User) error
	GetUser(ctx context.Context, id int64) (core.User, error)
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
	UpdateUserPassword(ctx context.Context, userID int64, hash string) error
	DeleteUser(ctx context.Context, userID int64) error
	ListUserIDs(ctx context.Context) ([]int64, error)

	CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	GetSessionUser(ctx context.Context, token string, now time.Time) (int64, error)
	DeleteSession(ctx context.Context, token string) error

	CreateTransaction(ctx context.Context, tx *core.Transaction) error
	UpdateTransaction(ctx context.Context, tx core.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id int64) error
	GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error)

	CreateBudget(ctx context.Context, b *core.Budget) error
	UpdateBudget(ctx context.Context, b core.Budget) error
	DeleteBudget(ctx context.Context, userID, id int64) error
	ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error)

	CreateCategory(ctx context.Context, c *core.Category) error
	ListCategories(ctx context.Context, userID int64) ([]core.Category, error)
	DeleteCategory(ctx context.Context, userID, id int64) error

	CreateCategoryRule(ctx context.Context, rule *core.CategoryRule) error
	ListCategoryRules(ctx context.Context, userID int64) ([]core.CategoryRule, error)
	DeleteCategoryRule(ctx context.Context, userID, id int64) error

	UpsertRate(ctx context.Context, rate core.CurrencyRate) error
	GetRate(ctx context.Context, userID int64, code string) (core.CurrencyRate, error)
	ListRates(ctx context.Context, userID int64) ([]core.CurrencyRate, error)
	DeleteRate(ctx context.Context, userID int64, code string) error

	GetSettings(ctx context.Context, userID int64) (core.UserSettings, error)
	SaveSettings(ctx context.Context, s core.UserSettings) error

	GetSavingsGoal(ctx context.Context, userID int64) (core.SavingsGoal, error)
	SaveSavingsGoal(ctx context.Context, g *core.SavingsGoal) error

	CreateRecurringRule(ctx context.Context, rule *core.RecurringRule) error
	UpdateRecurringRule(ctx context.Context, rule core.RecurringRule) error
	DeleteRecurringRule(ctx context.Context, userID, id int64) error
	ListRecurringRules(ctx context.Context, userID int64) ([]core.RecurringRule, error)
	ListDueRecurringRules(ctx context.Context, userID int64, asOf core.Date) ([]core.RecurringRule, error)
	UpdateRuleNextRun(ctx context.Context, userID, id int64, next core.Date) error
	ApplyRuleCatchUp(ctx context.Context, rule core.RecurringRule, occurrences []core.Transaction, next core.Date) error
}

// Open creates the store selected by cfg.DataBackend.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.DataBackend {
	case "memory":
		slog.Info("Initialized memory backend", "backend", cfg.DataBackend)
		return memory.NewStore(), nil
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		slog.Info("Initialized sqlite backend", "backend", cfg.DataBackend, "path", cfg.SQLiteDBPath)
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
	}
}
