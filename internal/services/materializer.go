package services

import (
	"context"
	"fmt"
	"log/slog"

	"finledger/internal/core"
)

// Materializer expands due recurring rules into concrete ledger
// transactions, advancing each rule's next occurrence as it goes.
type Materializer struct {
	store     MaterializerStore
	converter *Converter
}

func NewMaterializer(store MaterializerStore, converter *Converter) *Materializer {
	return &Materializer{store: store, converter: converter}
}

// MaterializeDue catches up every rule owned by userID whose next_run is
// on or before asOf. Each due rule yields one transaction per missed
// occurrence, dated at that occurrence, and the rule's next_run ends up
// strictly after asOf. The whole catch-up of one rule is applied
// atomically, so a retry after a partial failure cannot duplicate
// occurrences. Calling twice with the same asOf inserts nothing the
// second time.
//
// Returns the number of transactions created.
func (m *Materializer) MaterializeDue(ctx context.Context, userID int64, asOf core.Date) (int, error) {
	due, err := m.store.ListDueRecurringRules(ctx, userID, asOf)
	if err != nil {
		return 0, fmt.Errorf("list due rules: %w", err)
	}

	created := 0
	for _, rule := range due {
		occurrences, next, err := m.expand(ctx, rule, asOf)
		if err != nil {
			return created, fmt.Errorf("expand rule %d (%s): %w", rule.ID, rule.Name, err)
		}
		if len(occurrences) == 0 {
			continue
		}

		if err := m.store.ApplyRuleCatchUp(ctx, rule, occurrences, next); err != nil {
			return created, fmt.Errorf("apply rule %d (%s): %w", rule.ID, rule.Name, err)
		}
		created += len(occurrences)

		slog.InfoContext(ctx, "Materialized recurring rule",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
			"occurrences", len(occurrences),
			"next_run", next.Key())
	}

	return created, nil
}

// expand computes the occurrence transactions for one rule up to asOf,
// plus the advanced next_run. Pure except for the currency lookup.
func (m *Materializer) expand(ctx context.Context, rule core.RecurringRule, asOf core.Date) ([]core.Transaction, core.Date, error) {
	step := rule.Frequency.StepDays()
	if step <= 0 {
		return nil, core.Date{}, core.ErrInvalidFrequency
	}

	base, err := m.converter.ToBase(ctx, rule.UserID, rule.Amount, rule.Currency)
	if err != nil {
		return nil, core.Date{}, fmt.Errorf("convert amount: %w", err)
	}

	description := rule.Description
	if description == "" {
		description = "Recurring: " + rule.Name
	}

	var occurrences []core.Transaction
	next := rule.NextRun
	for !next.After(asOf.Time) {
		amountBase := base
		occurrences = append(occurrences, core.Transaction{
			UserID:      rule.UserID,
			Date:        next,
			Kind:        rule.Kind,
			Category:    rule.Category,
			Amount:      rule.Amount,
			Currency:    rule.Currency,
			AmountBase:  &amountBase,
			Description: description,
		})
		next = next.AddDays(step)
	}
	return occurrences, next, nil
}
