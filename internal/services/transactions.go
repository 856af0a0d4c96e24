package services

import (
	"context"
	"fmt"
	"log/slog"

	"finledger/internal/core"
)

// TransactionService orchestrates ledger writes: category resolution,
// base-amount computation, validation, persistence, and alert checks.
type TransactionService struct {
	store     TransactionWriter
	resolver  *Resolver
	converter *Converter
	alerts    *AlertPublisher
}

func NewTransactionService(store TransactionWriter, resolver *Resolver, converter *Converter, alerts *AlertPublisher) *TransactionService {
	return &TransactionService{
		store:     store,
		resolver:  resolver,
		converter: converter,
		alerts:    alerts,
	}
}

// Create resolves the category, computes the base-currency amount, and
// persists the transaction. The returned transaction carries its ID and
// the derived fields.
func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	category, err := s.resolver.Resolve(ctx, tx.UserID, tx.Description, tx.Category)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("resolve category: %w", err)
	}
	tx.Category = category

	if err := s.fillBase(ctx, &tx); err != nil {
		return core.Transaction{}, err
	}

	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.store.CreateTransaction(ctx, &tx); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		"id", tx.ID,
		"user_id", tx.UserID,
		"kind", string(tx.Kind),
		"category", tx.Category,
		"amount", tx.Amount)

	if s.alerts != nil {
		s.alerts.TransactionCreated(ctx, tx)
	}
	return tx, nil
}

// Update rewrites an existing transaction, recomputing the base amount
// for the possibly changed currency or amount.
func (s *TransactionService) Update(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := s.fillBase(ctx, &tx); err != nil {
		return core.Transaction{}, err
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return tx, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, userID, id)
}

func (s *TransactionService) fillBase(ctx context.Context, tx *core.Transaction) error {
	base, err := s.converter.ToBase(ctx, tx.UserID, tx.Amount, tx.Currency)
	if err != nil {
		return fmt.Errorf("convert to base: %w", err)
	}
	tx.AmountBase = &base
	return nil
}
