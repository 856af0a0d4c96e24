package services

import (
	"context"
	"testing"

	"finledger/internal/core"
	"finledger/internal/storage/memory"
)

func TestForecastDriftOnly(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	today := core.NewDate(2024, 6, 1)

	// Net +900 inside the trailing window gives a +10/day drift.
	seedTransactions(t, store, []core.Transaction{
		{UserID: 1, Date: today.AddDays(-10), Kind: core.Income, Category: "Income", Amount: 1000},
		{UserID: 1, Date: today.AddDays(-5), Kind: core.Expense, Category: "Food", Amount: 100},
	})

	f := NewForecaster(store, NewConverter(store))
	points, err := f.Forecast(ctx, 1, today, 3)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("got %d points, want 3", len(points))
	}
	wantBalances := []float64{910, 920, 930}
	for i, want := range wantBalances {
		if !approx(points[i].Balance, want) {
			t.Errorf("points[%d].Balance = %v, want %v", i, points[i].Balance, want)
		}
		if wantDate := today.AddDays(i + 1).Key(); points[i].Date.Key() != wantDate {
			t.Errorf("points[%d].Date = %s, want %s", i, points[i].Date.Key(), wantDate)
		}
	}
}

func TestForecastOldHistoryOutsideWindow(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	today := core.NewDate(2024, 6, 1)

	// Only contributes to the starting balance, not to the drift.
	seedTransactions(t, store, []core.Transaction{
		{UserID: 1, Date: today.AddDays(-200), Kind: core.Income, Category: "Income", Amount: 500},
	})

	f := NewForecaster(store, NewConverter(store))
	points, err := f.Forecast(ctx, 1, today, 2)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	for i, p := range points {
		if !approx(p.Balance, 500) {
			t.Errorf("points[%d].Balance = %v, want flat 500", i, p.Balance)
		}
	}
}

func TestForecastWindowBoundary(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	today := core.NewDate(2024, 6, 1)

	// Exactly 90 days back sits on the window edge and stays out of the
	// drift; 89 days back is the oldest day that counts.
	seedTransactions(t, store, []core.Transaction{
		{UserID: 1, Date: today.AddDays(-90), Kind: core.Income, Category: "Income", Amount: 900},
		{UserID: 1, Date: today.AddDays(-89), Kind: core.Income, Category: "Income", Amount: 90},
	})

	f := NewForecaster(store, NewConverter(store))
	points, err := f.Forecast(ctx, 1, today, 2)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	// Starting balance 990, drift 90/90 = 1/day.
	wantBalances := []float64{991, 992}
	for i, want := range wantBalances {
		if !approx(points[i].Balance, want) {
			t.Errorf("points[%d].Balance = %v, want %v", i, points[i].Balance, want)
		}
	}
}

func TestForecastRecurringHits(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	today := core.NewDate(2024, 6, 1)

	rule := core.RecurringRule{
		UserID:    1,
		Name:      "Rent",
		Kind:      core.Expense,
		Amount:    700,
		Category:  "Housing",
		Frequency: core.Weekly,
		NextRun:   today.AddDays(2),
	}
	if err := store.CreateRecurringRule(ctx, &rule); err != nil {
		t.Fatalf("create rule: %v", err)
	}

	f := NewForecaster(store, NewConverter(store))
	points, err := f.Forecast(ctx, 1, today, 10)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}

	// Day 2 is the first hit, day 9 the second; no drift with an empty ledger.
	wantBalances := []float64{0, -700, -700, -700, -700, -700, -700, -700, -1400, -1400}
	for i, want := range wantBalances {
		if !approx(points[i].Balance, want) {
			t.Errorf("points[%d].Balance = %v, want %v", i, points[i].Balance, want)
		}
	}
}

func TestForecastZeroDays(t *testing.T) {
	store := memory.NewStore()
	f := NewForecaster(store, NewConverter(store))
	points, err := f.Forecast(context.Background(), 1, core.NewDate(2024, 6, 1), 0)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(points) != 0 {
		t.Errorf("got %d points, want 0", len(points))
	}
}
