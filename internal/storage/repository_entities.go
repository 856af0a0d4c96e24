package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"finledger/internal/core"
)

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c *core.Category) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, color) VALUES (?, ?, ?)`,
		c.UserID, c.Name, c.Color)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("category id: %w", err)
	}
	c.ID = id
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, user_id, name, color FROM categories WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) CreateCategoryRule(ctx context.Context, rule *core.CategoryRule) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO category_rules (user_id, keyword, category) VALUES (?, ?, ?)`,
		rule.UserID, rule.Keyword, rule.Category)
	if err != nil {
		return fmt.Errorf("insert category rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("category rule id: %w", err)
	}
	rule.ID = id
	return nil
}

func (r *SQLiteRepository) ListCategoryRules(ctx context.Context, userID int64) ([]core.CategoryRule, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, user_id, keyword, category FROM category_rules WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list category rules: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryRule
	for rows.Next() {
		var rule core.CategoryRule
		if err := rows.Scan(&rule.ID, &rule.UserID, &rule.Keyword, &rule.Category); err != nil {
			return nil, fmt.Errorf("scan category rule: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteCategoryRule(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM category_rules WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete category rule: %w", err)
	}
	return requireRow(res)
}

// UpsertRate creates or replaces the user's rate for a currency code.
func (r *SQLiteRepository) UpsertRate(ctx context.Context, rate core.CurrencyRate) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO currency_rates (user_id, code, rate_to_base) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, code) DO UPDATE SET rate_to_base = excluded.rate_to_base`,
		rate.UserID, rate.Code, rate.RateToBase)
	if err != nil {
		return fmt.Errorf("upsert rate: %w", err)
	}
	return nil
}

// GetRate returns the user's rate for code, or ErrNotFound.
func (r *SQLiteRepository) GetRate(ctx context.Context, userID int64, code string) (core.CurrencyRate, error) {
	var rate core.CurrencyRate
	err := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, code, rate_to_base FROM currency_rates WHERE user_id = ? AND code = ?`,
		userID, code).Scan(&rate.ID, &rate.UserID, &rate.Code, &rate.RateToBase)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CurrencyRate{}, ErrNotFound
	}
	if err != nil {
		return core.CurrencyRate{}, fmt.Errorf("get rate: %w", err)
	}
	return rate, nil
}

func (r *SQLiteRepository) ListRates(ctx context.Context, userID int64) ([]core.CurrencyRate, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, user_id, code, rate_to_base FROM currency_rates WHERE user_id = ? ORDER BY code`, userID)
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	defer rows.Close()

	var out []core.CurrencyRate
	for rows.Next() {
		var rate core.CurrencyRate
		if err := rows.Scan(&rate.ID, &rate.UserID, &rate.Code, &rate.RateToBase); err != nil {
			return nil, fmt.Errorf("scan rate: %w", err)
		}
		out = append(out, rate)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteRate(ctx context.Context, userID int64, code string) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM currency_rates WHERE user_id = ? AND code = ?`, userID, code)
	if err != nil {
		return fmt.Errorf("delete rate: %w", err)
	}
	return requireRow(res)
}

// GetSettings returns the user's settings, falling back to defaults when
// no row exists yet.
func (r *SQLiteRepository) GetSettings(ctx context.Context, userID int64) (core.UserSettings, error) {
	s := core.UserSettings{UserID: userID, BaseCurrency: "EUR"}
	err := r.q.QueryRowContext(ctx,
		`SELECT base_currency, saved_filter, large_tx_threshold, budget_alert_percent
		 FROM user_settings WHERE user_id = ?`, userID).
		Scan(&s.BaseCurrency, &s.SavedFilter, &s.LargeTxThreshold, &s.BudgetAlertPercent)
	if errors.Is(err, sql.ErrNoRows) {
		return s, nil
	}
	if err != nil {
		return core.UserSettings{}, fmt.Errorf("get settings: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) SaveSettings(ctx context.Context, s core.UserSettings) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, base_currency, saved_filter, large_tx_threshold, budget_alert_percent)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		     base_currency = excluded.base_currency,
		     saved_filter = excluded.saved_filter,
		     large_tx_threshold = excluded.large_tx_threshold,
		     budget_alert_percent = excluded.budget_alert_percent`,
		s.UserID, s.BaseCurrency, s.SavedFilter, s.LargeTxThreshold, s.BudgetAlertPercent)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// GetSavingsGoal returns the user's goal, or ErrNotFound when none is set.
func (r *SQLiteRepository) GetSavingsGoal(ctx context.Context, userID int64) (core.SavingsGoal, error) {
	var g core.SavingsGoal
	var deadline sql.NullString
	err := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, name, target_amount, current_amount, deadline
		 FROM savings_goals WHERE user_id = ?`, userID).
		Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &deadline)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsGoal{}, ErrNotFound
	}
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("get savings goal: %w", err)
	}
	if deadline.Valid && deadline.String != "" {
		d, err := core.ParseDate(deadline.String)
		if err != nil {
			return core.SavingsGoal{}, fmt.Errorf("parse goal deadline: %w", err)
		}
		g.Deadline = &d
	}
	return g, nil
}

// SaveSavingsGoal creates or replaces the user's single goal.
func (r *SQLiteRepository) SaveSavingsGoal(ctx context.Context, g *core.SavingsGoal) error {
	var deadline any
	if g.Deadline != nil {
		deadline = g.Deadline.Key()
	}
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO savings_goals (user_id, name, target_amount, current_amount, deadline)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		     name = excluded.name,
		     target_amount = excluded.target_amount,
		     current_amount = excluded.current_amount,
		     deadline = excluded.deadline`,
		g.UserID, g.Name, g.TargetAmount, g.CurrentAmount, deadline)
	if err != nil {
		return fmt.Errorf("save savings goal: %w", err)
	}
	if g.ID == 0 {
		if id, err := res.LastInsertId(); err == nil {
			g.ID = id
		}
	}
	return nil
}

func (r *SQLiteRepository) CreateRecurringRule(ctx context.Context, rule *core.RecurringRule) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO recurring_rules (user_id, name, kind, amount, currency, category, description, frequency, next_run)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.UserID, rule.Name, string(rule.Kind), rule.Amount, rule.Currency,
		rule.Category, rule.Description, string(rule.Frequency), rule.NextRun.Key())
	if err != nil {
		return fmt.Errorf("insert recurring rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("recurring rule id: %w", err)
	}
	rule.ID = id
	return nil
}

func (r *SQLiteRepository) UpdateRecurringRule(ctx context.Context, rule core.RecurringRule) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE recurring_rules
		 SET name = ?, kind = ?, amount = ?, currency = ?, category = ?, description = ?, frequency = ?, next_run = ?
		 WHERE id = ? AND user_id = ?`,
		rule.Name, string(rule.Kind), rule.Amount, rule.Currency, rule.Category,
		rule.Description, string(rule.Frequency), rule.NextRun.Key(), rule.ID, rule.UserID)
	if err != nil {
		return fmt.Errorf("update recurring rule: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteRecurringRule(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM recurring_rules WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete recurring rule: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) ListRecurringRules(ctx context.Context, userID int64) ([]core.RecurringRule, error) {
	return r.queryRules(ctx,
		`SELECT id, user_id, name, kind, amount, currency, category, description, frequency, next_run
		 FROM recurring_rules WHERE user_id = ? ORDER BY next_run, id`, userID)
}

// ListDueRecurringRules returns the user's rules with next_run on or
// before asOf.
func (r *SQLiteRepository) ListDueRecurringRules(ctx context.Context, userID int64, asOf core.Date) ([]core.RecurringRule, error) {
	return r.queryRules(ctx,
		`SELECT id, user_id, name, kind, amount, currency, category, description, frequency, next_run
		 FROM recurring_rules WHERE user_id = ? AND next_run <= ? ORDER BY next_run, id`,
		userID, asOf.Key())
}

// UpdateRuleNextRun advances a rule's next occurrence.
func (r *SQLiteRepository) UpdateRuleNextRun(ctx context.Context, userID, id int64, next core.Date) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE recurring_rules SET next_run = ? WHERE id = ? AND user_id = ?`,
		next.Key(), id, userID)
	if err != nil {
		return fmt.Errorf("update rule next run: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) queryRules(ctx context.Context, query string, args ...any) ([]core.RecurringRule, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recurring rules: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringRule
	for rows.Next() {
		var rule core.RecurringRule
		var next string
		if err := rows.Scan(&rule.ID, &rule.UserID, &rule.Name, &rule.Kind, &rule.Amount,
			&rule.Currency, &rule.Category, &rule.Description, &rule.Frequency, &next); err != nil {
			return nil, fmt.Errorf("scan recurring rule: %w", err)
		}
		if rule.NextRun, err = core.ParseDate(next); err != nil {
			return nil, fmt.Errorf("parse rule next run: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}
