package services

import (
	"context"
	"fmt"

	"finledger/internal/core"
)

// trailingWindowDays is the window the daily drift is averaged over.
const trailingWindowDays = 90

// Forecaster projects future balance from recent history plus scheduled
// recurring impacts. The projection is a heuristic, not a guarantee: a
// flat per-day average, no seasonality, no confidence bounds.
type Forecaster struct {
	store interface {
		TransactionReader
		RecurringReader
	}
	converter *Converter
}

func NewForecaster(store interface {
	TransactionReader
	RecurringReader
}, converter *Converter) *Forecaster {
	return &Forecaster{store: store, converter: converter}
}

// Forecast projects the balance for the next days consecutive days
// starting the day after today. The starting balance is the full-history
// net total; each projected day adds the trailing-90-day average daily
// net, plus the signed base amount of every recurring rule that hits
// that day (a hit is a non-negative whole multiple of the rule's
// frequency step since its next_run).
func (f *Forecaster) Forecast(ctx context.Context, userID int64, today core.Date, days int) ([]core.ForecastPoint, error) {
	if days <= 0 {
		return nil, nil
	}

	txs, err := f.store.ListTransactions(ctx, core.TransactionFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	balance := 0.0
	windowStart := today.AddDays(-trailingWindowDays)
	windowNet := 0.0
	for _, tx := range txs {
		signed := tx.SignedNormalized()
		balance += signed
		// Half-open window (windowStart, today]: exactly 90 days feed the
		// 90-day divisor.
		if tx.Date.After(windowStart.Time) && !tx.Date.After(today.Time) {
			windowNet += signed
		}
	}
	drift := windowNet / trailingWindowDays

	rules, err := f.store.ListRecurringRules(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring rules: %w", err)
	}

	// Pre-convert each rule's amount once; rates are per-user constants.
	signedBase := make([]float64, len(rules))
	for i, rule := range rules {
		base, err := f.converter.ToBase(ctx, userID, rule.Amount, rule.Currency)
		if err != nil {
			return nil, fmt.Errorf("convert rule %d amount: %w", rule.ID, err)
		}
		signedBase[i] = rule.Kind.Sign() * base
	}

	points := make([]core.ForecastPoint, 0, days)
	for i := 1; i <= days; i++ {
		day := today.AddDays(i)
		balance += drift
		for j, rule := range rules {
			step := rule.Frequency.StepDays()
			if step <= 0 {
				continue
			}
			since := day.DaysSince(rule.NextRun)
			if since >= 0 && since%step == 0 {
				balance += signedBase[j]
			}
		}
		points = append(points, core.ForecastPoint{Date: day, Balance: balance})
	}
	return points, nil
}
