package main

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"finledger/internal/backend"
	"finledger/internal/core"
)

// seedDemoData inserts a demo user with a few months of activity so a
// fresh install has something to look at. Login: demo / demo-password.
func seedDemoData(ctx context.Context, store backend.Store) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("demo-password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	user := core.User{Username: "demo", Email: "demo@example.com", PasswordHash: string(hash)}
	if err := store.CreateUser(ctx, &user); err != nil {
		return fmt.Errorf("create demo user: %w", err)
	}

	for _, name := range core.DefaultCategories {
		cat := core.Category{UserID: user.ID, Name: name}
		if err := store.CreateCategory(ctx, &cat); err != nil {
			return fmt.Errorf("create category %s: %w", name, err)
		}
	}

	rules := []core.CategoryRule{
		{UserID: user.ID, Keyword: "grocery", Category: "Food"},
		{UserID: user.ID, Keyword: "uber", Category: "Transportation"},
		{UserID: user.ID, Keyword: "netflix", Category: "Entertainment"},
	}
	for i := range rules {
		if err := store.CreateCategoryRule(ctx, &rules[i]); err != nil {
			return fmt.Errorf("create category rule: %w", err)
		}
	}

	txs := []core.Transaction{
		{UserID: user.ID, Date: core.NewDate(2024, 1, 1), Kind: core.Income, Category: "Income", Amount: 2500, Description: "Salary"},
		{UserID: user.ID, Date: core.NewDate(2024, 1, 3), Kind: core.Expense, Category: "Housing", Amount: 800, Description: "Rent"},
		{UserID: user.ID, Date: core.NewDate(2024, 1, 8), Kind: core.Expense, Category: "Food", Amount: 64.2, Description: "Grocery run"},
		{UserID: user.ID, Date: core.NewDate(2024, 1, 15), Kind: core.Expense, Category: "Entertainment", Amount: 12.99, Description: "Netflix"},
		{UserID: user.ID, Date: core.NewDate(2024, 2, 1), Kind: core.Income, Category: "Income", Amount: 2500, Description: "Salary"},
		{UserID: user.ID, Date: core.NewDate(2024, 2, 3), Kind: core.Expense, Category: "Housing", Amount: 800, Description: "Rent"},
		{UserID: user.ID, Date: core.NewDate(2024, 2, 14), Kind: core.Expense, Category: "Food", Amount: 85.5, Description: "Dinner out"},
	}
	for i := range txs {
		if err := store.CreateTransaction(ctx, &txs[i]); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
	}

	budget := core.Budget{
		UserID:      user.ID,
		PeriodStart: core.NewDate(2024, 1, 1),
		PeriodEnd:   core.NewDate(2024, 12, 31),
		Category:    "Food",
		Amount:      3000,
	}
	if err := store.CreateBudget(ctx, &budget); err != nil {
		return fmt.Errorf("create budget: %w", err)
	}

	rule := core.RecurringRule{
		UserID:    user.ID,
		Name:      "Rent",
		Kind:      core.Expense,
		Amount:    800,
		Category:  "Housing",
		Frequency: core.Monthly,
		NextRun:   core.NewDate(2024, 3, 1),
	}
	if err := store.CreateRecurringRule(ctx, &rule); err != nil {
		return fmt.Errorf("create recurring rule: %w", err)
	}

	goal := core.SavingsGoal{UserID: user.ID, Name: "Emergency fund", TargetAmount: 5000, CurrentAmount: 1200}
	if err := store.SaveSavingsGoal(ctx, &goal); err != nil {
		return fmt.Errorf("create savings goal: %w", err)
	}

	return nil
}
