package services

import (
	"context"
	"errors"
	"testing"

	"finledger/internal/core"
	"finledger/internal/storage"
	"finledger/internal/storage/memory"
)

func newTestTransactionService(store *memory.Store) *TransactionService {
	converter := NewConverter(store)
	return NewTransactionService(store, NewResolver(store), converter, nil)
}

func TestTransactionCreateFillsDerivedFields(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	rule := core.CategoryRule{UserID: 1, Keyword: "grocer", Category: "Food"}
	if err := store.CreateCategoryRule(ctx, &rule); err != nil {
		t.Fatalf("create rule: %v", err)
	}
	if err := store.UpsertRate(ctx, core.CurrencyRate{UserID: 1, Code: "USD", RateToBase: 0.9}); err != nil {
		t.Fatalf("upsert rate: %v", err)
	}

	svc := newTestTransactionService(store)
	tx, err := svc.Create(ctx, core.Transaction{
		UserID:      1,
		Date:        core.NewDate(2024, 4, 2),
		Kind:        core.Expense,
		Amount:      100,
		Currency:    "USD",
		Description: "corner grocer",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tx.ID == 0 {
		t.Error("created transaction has no id")
	}
	if tx.Category != "Food" {
		t.Errorf("Category = %q, want Food", tx.Category)
	}
	if tx.AmountBase == nil || *tx.AmountBase != 90 {
		t.Errorf("AmountBase = %v, want 90", tx.AmountBase)
	}
}

func TestTransactionCreateRejectsInvalid(t *testing.T) {
	svc := newTestTransactionService(memory.NewStore())
	_, err := svc.Create(context.Background(), core.Transaction{
		UserID: 1,
		Date:   core.NewDate(2024, 4, 2),
		Kind:   core.Expense,
		Amount: -5,
	})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("err = %v, want ErrInvalidAmount", err)
	}
}

func TestTransactionUpdateRecomputesBase(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	if err := store.UpsertRate(ctx, core.CurrencyRate{UserID: 1, Code: "USD", RateToBase: 0.8}); err != nil {
		t.Fatalf("upsert rate: %v", err)
	}

	svc := newTestTransactionService(store)
	tx, err := svc.Create(ctx, core.Transaction{
		UserID:   1,
		Date:     core.NewDate(2024, 4, 2),
		Kind:     core.Expense,
		Category: "Food",
		Amount:   50,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	tx.Amount = 100
	tx.Currency = "USD"
	updated, err := svc.Update(ctx, tx)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.AmountBase == nil || *updated.AmountBase != 80 {
		t.Errorf("AmountBase = %v, want 80", updated.AmountBase)
	}
}

func TestTransactionDeleteOtherUser(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newTestTransactionService(store)

	tx, err := svc.Create(ctx, core.Transaction{
		UserID:   1,
		Date:     core.NewDate(2024, 4, 2),
		Kind:     core.Expense,
		Category: "Food",
		Amount:   10,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete(ctx, 2, tx.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("delete as other user: err = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, 1, tx.ID); err != nil {
		t.Errorf("delete as owner: %v", err)
	}
}
