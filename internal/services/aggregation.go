package services

import (
	"context"
	"fmt"
	"sort"

	"finledger/internal/core"
)

// Aggregator computes derived read-side views over the ledger. It holds
// no state of its own: every result is a function of current store
// contents plus arguments.
type Aggregator struct {
	store interface {
		TransactionReader
		BudgetReader
	}
}

func NewAggregator(store interface {
	TransactionReader
	BudgetReader
}) *Aggregator {
	return &Aggregator{store: store}
}

// CategoryTotals returns the signed per-category sum of normalized
// amounts inside the optional date range: expenses negative, income
// positive. Sorted by category name for deterministic output.
func (a *Aggregator) CategoryTotals(ctx context.Context, userID int64, start, end *core.Date) ([]core.CategoryTotal, error) {
	txs, err := a.store.ListTransactions(ctx, core.TransactionFilter{UserID: userID, Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	totals := make(map[string]float64)
	for _, tx := range txs {
		totals[tx.Category] += tx.SignedNormalized()
	}

	out := make([]core.CategoryTotal, 0, len(totals))
	for category, total := range totals {
		out = append(out, core.CategoryTotal{Category: category, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

// MonthlyTotals groups income and expense by calendar month (YYYY-MM),
// ascending, inside the optional date range.
func (a *Aggregator) MonthlyTotals(ctx context.Context, userID int64, start, end *core.Date) ([]core.MonthTotal, error) {
	txs, err := a.store.ListTransactions(ctx, core.TransactionFilter{UserID: userID, Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	byMonth := make(map[string]*core.MonthTotal)
	for _, tx := range txs {
		key := tx.Date.MonthKey()
		mt, ok := byMonth[key]
		if !ok {
			mt = &core.MonthTotal{Month: key}
			byMonth[key] = mt
		}
		amount := tx.Normalized()
		if tx.Kind == core.Expense {
			mt.Expense += amount
		} else {
			mt.Income += amount
		}
		mt.Net += tx.SignedNormalized()
	}

	out := make([]core.MonthTotal, 0, len(byMonth))
	for _, mt := range byMonth {
		out = append(out, *mt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

// BalanceSeries is the chronological running total over the user's full
// history, one point per transaction. It ignores any date filter on
// purpose: a balance only means something from the beginning.
func (a *Aggregator) BalanceSeries(ctx context.Context, userID int64) ([]core.BalancePoint, error) {
	txs, err := a.store.ListTransactions(ctx, core.TransactionFilter{UserID: userID, Sort: core.SortDateAsc})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	points := make([]core.BalancePoint, 0, len(txs))
	running := 0.0
	for _, tx := range txs {
		running += tx.SignedNormalized()
		points = append(points, core.BalancePoint{Date: tx.Date, Balance: running})
	}
	return points, nil
}

// BudgetProgress reports consumption for every budget active on asOf.
// Spent sums normalized expense amounts within the budget period and
// category filter; percent is clamped to 999 and a zero-amount budget
// reports 0 rather than dividing by zero.
func (a *Aggregator) BudgetProgress(ctx context.Context, userID int64, asOf core.Date) ([]core.BudgetProgress, error) {
	budgets, err := a.store.ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	var out []core.BudgetProgress
	for _, b := range budgets {
		if !b.ActiveOn(asOf) {
			continue
		}
		txs, err := a.store.ListTransactions(ctx, core.TransactionFilter{
			UserID:   userID,
			Start:    &b.PeriodStart,
			End:      &b.PeriodEnd,
			Category: b.Category,
			Kind:     core.Expense,
		})
		if err != nil {
			return nil, fmt.Errorf("list budget transactions: %w", err)
		}

		spent := 0.0
		for _, tx := range txs {
			spent += tx.Normalized()
		}

		percent := 0.0
		if b.Amount > 0 {
			percent = spent / b.Amount * 100
			if percent > 999 {
				percent = 999
			}
		}
		out = append(out, core.BudgetProgress{Budget: b, Spent: spent, Percent: percent})
	}
	return out, nil
}

// NetTotal is income minus expense over the optional range, normalized.
func (a *Aggregator) NetTotal(ctx context.Context, userID int64, start, end *core.Date) (float64, error) {
	txs, err := a.store.ListTransactions(ctx, core.TransactionFilter{UserID: userID, Start: start, End: end})
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}

	total := 0.0
	for _, tx := range txs {
		total += tx.SignedNormalized()
	}
	return total, nil
}
