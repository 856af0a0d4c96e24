package services

import (
	"context"
	"testing"

	"finledger/internal/core"
	"finledger/internal/storage/memory"
)

func newTestMaterializer(store *memory.Store) *Materializer {
	return NewMaterializer(store, NewConverter(store))
}

func TestMaterializeDueMonthlyCatchUp(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	rule := core.RecurringRule{
		UserID:    1,
		Name:      "Rent",
		Kind:      core.Expense,
		Amount:    800,
		Category:  "Housing",
		Frequency: core.Monthly,
		NextRun:   core.NewDate(2024, 1, 1),
	}
	if err := store.CreateRecurringRule(ctx, &rule); err != nil {
		t.Fatalf("create rule: %v", err)
	}

	m := newTestMaterializer(store)
	created, err := m.MaterializeDue(ctx, 1, core.NewDate(2024, 3, 15))
	if err != nil {
		t.Fatalf("MaterializeDue: %v", err)
	}
	if created != 3 {
		t.Fatalf("created = %d, want 3", created)
	}

	txs, err := store.ListTransactions(ctx, core.TransactionFilter{UserID: 1, Sort: core.SortDateAsc})
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	wantDates := []string{"2024-01-01", "2024-01-31", "2024-03-01"}
	if len(txs) != len(wantDates) {
		t.Fatalf("got %d transactions, want %d", len(txs), len(wantDates))
	}
	for i, want := range wantDates {
		if got := txs[i].Date.Key(); got != want {
			t.Errorf("transaction %d date = %s, want %s", i, got, want)
		}
		if txs[i].Category != "Housing" || txs[i].Amount != 800 {
			t.Errorf("transaction %d = %+v, want Housing/800", i, txs[i])
		}
		if txs[i].Description != "Recurring: Rent" {
			t.Errorf("transaction %d description = %q", i, txs[i].Description)
		}
	}

	rules, err := store.ListRecurringRules(ctx, 1)
	if err != nil {
		t.Fatalf("list rules: %v", err)
	}
	if got := rules[0].NextRun.Key(); got != "2024-03-31" {
		t.Errorf("next_run = %s, want 2024-03-31", got)
	}
}

func TestMaterializeDueIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	rule := core.RecurringRule{
		UserID:    1,
		Name:      "Gym",
		Kind:      core.Expense,
		Amount:    30,
		Category:  "Health",
		Frequency: core.Weekly,
		NextRun:   core.NewDate(2024, 5, 1),
	}
	if err := store.CreateRecurringRule(ctx, &rule); err != nil {
		t.Fatalf("create rule: %v", err)
	}

	m := newTestMaterializer(store)
	asOf := core.NewDate(2024, 5, 20)

	first, err := m.MaterializeDue(ctx, 1, asOf)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first != 3 {
		t.Fatalf("first run created %d, want 3", first)
	}

	second, err := m.MaterializeDue(ctx, 1, asOf)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second != 0 {
		t.Errorf("second run created %d, want 0", second)
	}

	txs, err := store.ListTransactions(ctx, core.TransactionFilter{UserID: 1})
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txs) != 3 {
		t.Errorf("total transactions = %d, want 3", len(txs))
	}
}

func TestMaterializeDueConvertsToBase(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	if err := store.UpsertRate(ctx, core.CurrencyRate{UserID: 1, Code: "USD", RateToBase: 0.9}); err != nil {
		t.Fatalf("upsert rate: %v", err)
	}
	rule := core.RecurringRule{
		UserID:    1,
		Name:      "Subscription",
		Kind:      core.Expense,
		Amount:    10,
		Currency:  "USD",
		Category:  "Entertainment",
		Frequency: core.Daily,
		NextRun:   core.NewDate(2024, 6, 1),
	}
	if err := store.CreateRecurringRule(ctx, &rule); err != nil {
		t.Fatalf("create rule: %v", err)
	}

	m := newTestMaterializer(store)
	if _, err := m.MaterializeDue(ctx, 1, core.NewDate(2024, 6, 2)); err != nil {
		t.Fatalf("MaterializeDue: %v", err)
	}

	txs, err := store.ListTransactions(ctx, core.TransactionFilter{UserID: 1})
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	for _, tx := range txs {
		if tx.AmountBase == nil || *tx.AmountBase != 9 {
			t.Errorf("amount_base = %v, want 9", tx.AmountBase)
		}
	}
}

func TestMaterializeDueSkipsFutureRules(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	rule := core.RecurringRule{
		UserID:    1,
		Name:      "Salary",
		Kind:      core.Income,
		Amount:    2500,
		Category:  "Income",
		Frequency: core.Monthly,
		NextRun:   core.NewDate(2024, 7, 1),
	}
	if err := store.CreateRecurringRule(ctx, &rule); err != nil {
		t.Fatalf("create rule: %v", err)
	}

	m := newTestMaterializer(store)
	created, err := m.MaterializeDue(ctx, 1, core.NewDate(2024, 6, 30))
	if err != nil {
		t.Fatalf("MaterializeDue: %v", err)
	}
	if created != 0 {
		t.Errorf("created = %d, want 0", created)
	}
}
