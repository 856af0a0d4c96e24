// Package services implements the financial core: currency conversion,
// category resolution, recurring-rule materialization, aggregation and
// forecasting. Every function takes an explicit store and owner id; no
// package-level state is held between calls.
package services

import (
	"context"

	"finledger/internal/core"
)

// TransactionReader reads transactions matching an explicit filter.
type TransactionReader interface {
	ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error)
}

// TransactionWriter mutates the transaction ledger.
type TransactionWriter interface {
	CreateTransaction(ctx context.Context, tx *core.Transaction) error
	UpdateTransaction(ctx context.Context, tx core.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id int64) error
	GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error)
}

// BudgetReader lists a user's budgets.
type BudgetReader interface {
	ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error)
}

// RateReader supplies per-user currency rates and settings.
type RateReader interface {
	GetRate(ctx context.Context, userID int64, code string) (core.CurrencyRate, error)
	GetSettings(ctx context.Context, userID int64) (core.UserSettings, error)
}

// CategoryRuleReader lists a user's keyword rules.
type CategoryRuleReader interface {
	ListCategoryRules(ctx context.Context, userID int64) ([]core.CategoryRule, error)
}

// RecurringReader lists a user's recurring rules.
type RecurringReader interface {
	ListRecurringRules(ctx context.Context, userID int64) ([]core.RecurringRule, error)
}

// MaterializerStore is the mutation surface of the recurring
// materializer. ApplyRuleCatchUp must be atomic: either all occurrence
// transactions are inserted and next_run advanced, or nothing changes.
type MaterializerStore interface {
	ListDueRecurringRules(ctx context.Context, userID int64, asOf core.Date) ([]core.RecurringRule, error)
	ApplyRuleCatchUp(ctx context.Context, rule core.RecurringRule, occurrences []core.Transaction, next core.Date) error
}
