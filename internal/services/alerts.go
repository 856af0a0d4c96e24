package services

import (
	"context"
	"log/slog"

	"finledger/internal/amqp"
	"finledger/internal/core"
)

// AlertPublisher evaluates a user's alert thresholds after a write and
// publishes the numeric findings to the alerts queue. It never fails the
// triggering request: a broken broker only costs the notification.
type AlertPublisher struct {
	rates      RateReader
	aggregator *Aggregator
	client     *amqp.Client
}

func NewAlertPublisher(rates RateReader, aggregator *Aggregator, client *amqp.Client) *AlertPublisher {
	return &AlertPublisher{rates: rates, aggregator: aggregator, client: client}
}

// TransactionCreated checks the large-transaction and budget-percentage
// thresholds for a freshly written transaction.
func (p *AlertPublisher) TransactionCreated(ctx context.Context, tx core.Transaction) {
	if p.client == nil {
		return
	}

	settings, err := p.rates.GetSettings(ctx, tx.UserID)
	if err != nil {
		slog.WarnContext(ctx, "Alert check skipped, settings unavailable", "error", err, "user_id", tx.UserID)
		return
	}

	if settings.LargeTxThreshold > 0 && tx.Normalized() >= settings.LargeTxThreshold {
		msg := amqp.NewLargeTransactionAlert(tx.UserID, tx.Category, tx.Normalized())
		if err := p.client.PublishAlert(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish large-transaction alert", "error", err, "user_id", tx.UserID)
		}
	}

	if settings.BudgetAlertPercent <= 0 || tx.Kind != core.Expense {
		return
	}

	progress, err := p.aggregator.BudgetProgress(ctx, tx.UserID, tx.Date)
	if err != nil {
		slog.WarnContext(ctx, "Alert check skipped, budget progress unavailable", "error", err, "user_id", tx.UserID)
		return
	}
	for _, bp := range progress {
		if bp.Budget.Category != "" && bp.Budget.Category != tx.Category {
			continue
		}
		if bp.Percent >= settings.BudgetAlertPercent {
			msg := amqp.NewBudgetThresholdAlert(tx.UserID, bp.Budget.ID, bp.Budget.Category, bp.Percent)
			if err := p.client.PublishAlert(ctx, msg); err != nil {
				slog.ErrorContext(ctx, "Failed to publish budget alert", "error", err, "user_id", tx.UserID)
			}
		}
	}
}
