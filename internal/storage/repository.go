package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"finledger/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row owned by the user does not exist.
var ErrNotFound = errors.New("not found")

// dbtx is satisfied by both *sql.DB and *sql.Tx so repository methods can
// run either standalone or inside a transaction started by WithTx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRepository struct {
	db *sql.DB
	q  dbtx
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, q: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// WithTx runs fn against a transaction-scoped copy of the repository.
// The transaction commits when fn returns nil and rolls back otherwise.
func (r *SQLiteRepository) WithTx(ctx context.Context, fn func(*SQLiteRepository) error) error {
	if r.db == nil {
		return fmt.Errorf("repository already transaction-scoped")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	scoped := &SQLiteRepository{q: tx}
	if err := fn(scoped); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Transaction rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CreateTransaction inserts tx and fills in its assigned ID.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx *core.Transaction) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO transactions (user_id, date, kind, category, amount, currency, amount_base, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.UserID, tx.Date.Key(), string(tx.Kind), tx.Category, tx.Amount, tx.Currency, tx.AmountBase, tx.Description)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("transaction id: %w", err)
	}
	tx.ID = id
	return nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE transactions
		 SET date = ?, kind = ?, category = ?, amount = ?, currency = ?, amount_base = ?, description = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		tx.Date.Key(), string(tx.Kind), tx.Category, tx.Amount, tx.Currency, tx.AmountBase, tx.Description,
		tx.ID, tx.UserID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, date, kind, category, amount, currency, amount_base, description
		 FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// ListTransactions reads transactions matching the filter, ordered per
// filter.Sort (date descending by default).
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, user_id, date, kind, category, amount, currency, amount_base, description
		FROM transactions WHERE user_id = ?`)
	args := []any{f.UserID}

	if f.Start != nil {
		sb.WriteString(" AND date >= ?")
		args = append(args, f.Start.Key())
	}
	if f.End != nil {
		sb.WriteString(" AND date <= ?")
		args = append(args, f.End.Key())
	}
	if f.Category != "" {
		sb.WriteString(" AND category = ?")
		args = append(args, f.Category)
	}
	if f.Kind != "" {
		sb.WriteString(" AND kind = ?")
		args = append(args, string(f.Kind))
	}

	switch f.Sort {
	case core.SortDateAsc:
		sb.WriteString(" ORDER BY date ASC, id ASC")
	case core.SortAmountAsc:
		sb.WriteString(" ORDER BY amount ASC, id ASC")
	case core.SortAmountDesc:
		sb.WriteString(" ORDER BY amount DESC, id ASC")
	default:
		sb.WriteString(" ORDER BY date DESC, id DESC")
	}
	if f.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, f.Limit)
	}

	rows, err := r.q.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b *core.Budget) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO budgets (user_id, period_start, period_end, category, amount)
		 VALUES (?, ?, ?, ?, ?)`,
		b.UserID, b.PeriodStart.Key(), b.PeriodEnd.Key(), b.Category, b.Amount)
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("budget id: %w", err)
	}
	b.ID = id
	return nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE budgets SET period_start = ?, period_end = ?, category = ?, amount = ?
		 WHERE id = ? AND user_id = ?`,
		b.PeriodStart.Key(), b.PeriodEnd.Key(), b.Category, b.Amount, b.ID, b.UserID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return requireRow(res)
}

// ListBudgets returns the user's budgets, most recently ending first.
func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, user_id, period_start, period_end, category, amount
		 FROM budgets WHERE user_id = ? ORDER BY period_end DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		var start, end string
		if err := rows.Scan(&b.ID, &b.UserID, &start, &end, &b.Category, &b.Amount); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		if b.PeriodStart, err = core.ParseDate(start); err != nil {
			return nil, fmt.Errorf("parse budget start: %w", err)
		}
		if b.PeriodEnd, err = core.ParseDate(end); err != nil {
			return nil, fmt.Errorf("parse budget end: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var tx core.Transaction
	var date string
	var base sql.NullFloat64
	if err := row.Scan(&tx.ID, &tx.UserID, &date, &tx.Kind, &tx.Category,
		&tx.Amount, &tx.Currency, &base, &tx.Description); err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	tx.Date = d
	if base.Valid {
		v := base.Float64
		tx.AmountBase = &v
	}
	return tx, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
