package storage

import (
	"context"
	"fmt"

	"finledger/internal/core"
)

// ApplyRuleCatchUp inserts the occurrence transactions and advances the
// rule's next_run in one database transaction. Either everything lands
// or nothing does, so a retried catch-up cannot double-insert.
func (r *SQLiteRepository) ApplyRuleCatchUp(ctx context.Context, rule core.RecurringRule, occurrences []core.Transaction, next core.Date) error {
	return r.WithTx(ctx, func(tx *SQLiteRepository) error {
		for i := range occurrences {
			if err := tx.CreateTransaction(ctx, &occurrences[i]); err != nil {
				return fmt.Errorf("insert occurrence %s: %w", occurrences[i].Date.Key(), err)
			}
		}
		if err := tx.UpdateRuleNextRun(ctx, rule.UserID, rule.ID, next); err != nil {
			return fmt.Errorf("advance next run: %w", err)
		}
		return nil
	})
}
