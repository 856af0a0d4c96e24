package services

import (
	"context"
	"math"
	"testing"

	"finledger/internal/core"
	"finledger/internal/storage/memory"
)

func seedTransactions(t *testing.T, store *memory.Store, txs []core.Transaction) {
	t.Helper()
	ctx := context.Background()
	for i := range txs {
		if err := store.CreateTransaction(ctx, &txs[i]); err != nil {
			t.Fatalf("seed transaction %d: %v", i, err)
		}
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCategoryTotals(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedTransactions(t, store, []core.Transaction{
		{UserID: 1, Date: core.NewDate(2024, 1, 5), Kind: core.Expense, Category: "Food", Amount: 50},
		{UserID: 1, Date: core.NewDate(2024, 1, 12), Kind: core.Expense, Category: "Food", Amount: 30},
		{UserID: 1, Date: core.NewDate(2024, 1, 1), Kind: core.Income, Category: "Income", Amount: 2000},
		{UserID: 1, Date: core.NewDate(2024, 2, 1), Kind: core.Expense, Category: "Housing", Amount: 800},
		{UserID: 2, Date: core.NewDate(2024, 1, 5), Kind: core.Expense, Category: "Food", Amount: 999},
	})

	agg := NewAggregator(store)
	got, err := agg.CategoryTotals(ctx, 1, nil, nil)
	if err != nil {
		t.Fatalf("CategoryTotals: %v", err)
	}

	want := []core.CategoryTotal{
		{Category: "Food", Total: -80},
		{Category: "Housing", Total: -800},
		{Category: "Income", Total: 2000},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d totals, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Category != want[i].Category || !approx(got[i].Total, want[i].Total) {
			t.Errorf("totals[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCategoryTotalsRange(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedTransactions(t, store, []core.Transaction{
		{UserID: 1, Date: core.NewDate(2024, 1, 5), Kind: core.Expense, Category: "Food", Amount: 50},
		{UserID: 1, Date: core.NewDate(2024, 2, 5), Kind: core.Expense, Category: "Food", Amount: 70},
	})

	agg := NewAggregator(store)
	start := core.NewDate(2024, 2, 1)
	end := core.NewDate(2024, 2, 28)
	got, err := agg.CategoryTotals(ctx, 1, &start, &end)
	if err != nil {
		t.Fatalf("CategoryTotals: %v", err)
	}
	if len(got) != 1 || !approx(got[0].Total, -70) {
		t.Errorf("got %+v, want single Food total -70", got)
	}
}

func TestMonthlyTotals(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedTransactions(t, store, []core.Transaction{
		{UserID: 1, Date: core.NewDate(2024, 1, 1), Kind: core.Income, Category: "Income", Amount: 2000},
		{UserID: 1, Date: core.NewDate(2024, 1, 15), Kind: core.Expense, Category: "Food", Amount: 300},
		{UserID: 1, Date: core.NewDate(2024, 2, 10), Kind: core.Expense, Category: "Housing", Amount: 800},
	})

	agg := NewAggregator(store)
	got, err := agg.MonthlyTotals(ctx, 1, nil, nil)
	if err != nil {
		t.Fatalf("MonthlyTotals: %v", err)
	}
	want := []core.MonthTotal{
		{Month: "2024-01", Income: 2000, Expense: 300, Net: 1700},
		{Month: "2024-02", Income: 0, Expense: 800, Net: -800},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d months, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Month != want[i].Month || !approx(got[i].Income, want[i].Income) ||
			!approx(got[i].Expense, want[i].Expense) || !approx(got[i].Net, want[i].Net) {
			t.Errorf("months[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestBalanceSeries(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedTransactions(t, store, []core.Transaction{
		{UserID: 1, Date: core.NewDate(2024, 1, 1), Kind: core.Income, Category: "Income", Amount: 1000},
		{UserID: 1, Date: core.NewDate(2024, 1, 10), Kind: core.Expense, Category: "Food", Amount: 200},
		{UserID: 1, Date: core.NewDate(2024, 1, 20), Kind: core.Expense, Category: "Housing", Amount: 300},
	})

	agg := NewAggregator(store)
	got, err := agg.BalanceSeries(ctx, 1)
	if err != nil {
		t.Fatalf("BalanceSeries: %v", err)
	}
	wantBalances := []float64{1000, 800, 500}
	if len(got) != len(wantBalances) {
		t.Fatalf("got %d points, want %d", len(got), len(wantBalances))
	}
	for i, want := range wantBalances {
		if !approx(got[i].Balance, want) {
			t.Errorf("points[%d].Balance = %v, want %v", i, got[i].Balance, want)
		}
	}
}

func TestBudgetProgress(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedTransactions(t, store, []core.Transaction{
		{UserID: 1, Date: core.NewDate(2024, 3, 5), Kind: core.Expense, Category: "Food", Amount: 350},
		{UserID: 1, Date: core.NewDate(2024, 3, 10), Kind: core.Income, Category: "Income", Amount: 1000},
		{UserID: 1, Date: core.NewDate(2024, 4, 1), Kind: core.Expense, Category: "Food", Amount: 999},
	})
	budget := core.Budget{
		UserID:      1,
		PeriodStart: core.NewDate(2024, 3, 1),
		PeriodEnd:   core.NewDate(2024, 3, 31),
		Category:    "Food",
		Amount:      400,
	}
	if err := store.CreateBudget(ctx, &budget); err != nil {
		t.Fatalf("create budget: %v", err)
	}

	agg := NewAggregator(store)
	got, err := agg.BudgetProgress(ctx, 1, core.NewDate(2024, 3, 15))
	if err != nil {
		t.Fatalf("BudgetProgress: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d budgets, want 1", len(got))
	}
	if !approx(got[0].Spent, 350) {
		t.Errorf("Spent = %v, want 350", got[0].Spent)
	}
	if !approx(got[0].Percent, 87.5) {
		t.Errorf("Percent = %v, want 87.5", got[0].Percent)
	}

	// Outside the budget period nothing is active.
	got, err = agg.BudgetProgress(ctx, 1, core.NewDate(2024, 5, 1))
	if err != nil {
		t.Fatalf("BudgetProgress: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d budgets outside period, want 0", len(got))
	}
}

func TestBudgetProgressClamp(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedTransactions(t, store, []core.Transaction{
		{UserID: 1, Date: core.NewDate(2024, 3, 5), Kind: core.Expense, Category: "Food", Amount: 100000},
	})
	budget := core.Budget{
		UserID:      1,
		PeriodStart: core.NewDate(2024, 3, 1),
		PeriodEnd:   core.NewDate(2024, 3, 31),
		Category:    "Food",
		Amount:      10,
	}
	if err := store.CreateBudget(ctx, &budget); err != nil {
		t.Fatalf("create budget: %v", err)
	}

	agg := NewAggregator(store)
	got, err := agg.BudgetProgress(ctx, 1, core.NewDate(2024, 3, 15))
	if err != nil {
		t.Fatalf("BudgetProgress: %v", err)
	}
	if len(got) != 1 || got[0].Percent != 999 {
		t.Errorf("Percent = %+v, want clamp at 999", got)
	}
}

func TestNetTotalMatchesCategoryTotals(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	usd := 90.0
	seedTransactions(t, store, []core.Transaction{
		{UserID: 1, Date: core.NewDate(2024, 1, 1), Kind: core.Income, Category: "Income", Amount: 2000},
		{UserID: 1, Date: core.NewDate(2024, 1, 5), Kind: core.Expense, Category: "Food", Amount: 100, Currency: "USD", AmountBase: &usd},
		{UserID: 1, Date: core.NewDate(2024, 1, 9), Kind: core.Expense, Category: "Travel", Amount: 410},
	})

	agg := NewAggregator(store)
	net, err := agg.NetTotal(ctx, 1, nil, nil)
	if err != nil {
		t.Fatalf("NetTotal: %v", err)
	}
	if !approx(net, 1500) {
		t.Errorf("NetTotal = %v, want 1500", net)
	}

	totals, err := agg.CategoryTotals(ctx, 1, nil, nil)
	if err != nil {
		t.Fatalf("CategoryTotals: %v", err)
	}
	sum := 0.0
	for _, ct := range totals {
		sum += ct.Total
	}
	if !approx(sum, net) {
		t.Errorf("sum of category totals = %v, net total = %v", sum, net)
	}
}
