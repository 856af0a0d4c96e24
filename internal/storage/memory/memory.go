// Package memory provides an in-memory ledger store with the same
// surface as the SQLite repository. It backs tests and the "memory"
// backend; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"finledger/internal/core"
	"finledger/internal/storage"
)

type Store struct {
	mu sync.Mutex

	nextID int64

	users        map[int64]core.User
	sessions     map[string]session
	transactions map[int64]core.Transaction
	budgets      map[int64]core.Budget
	categories   map[int64]core.Category
	rules        map[int64]core.CategoryRule
	recurring    map[int64]core.RecurringRule
	rates        map[int64]core.CurrencyRate
	settings     map[int64]core.UserSettings
	goals        map[int64]core.SavingsGoal // keyed by user id
}

type session struct {
	userID    int64
	expiresAt time.Time
}

func NewStore() *Store {
	return &Store{
		users:        make(map[int64]core.User),
		sessions:     make(map[string]session),
		transactions: make(map[int64]core.Transaction),
		budgets:      make(map[int64]core.Budget),
		categories:   make(map[int64]core.Category),
		rules:        make(map[int64]core.CategoryRule),
		recurring:    make(map[int64]core.RecurringRule),
		rates:        make(map[int64]core.CurrencyRate),
		settings:     make(map[int64]core.UserSettings),
		goals:        make(map[int64]core.SavingsGoal),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateUser(_ context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.id()
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return core.User{}, storage.ErrNotFound
}

func (s *Store) UpdateUserPassword(_ context.Context, userID int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	u.PasswordHash = hash
	s.users[userID] = u
	return nil
}

// DeleteUser removes the user and every owned record, mirroring the
// SQLite schema's cascade rules.
func (s *Store) DeleteUser(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return storage.ErrNotFound
	}
	delete(s.users, userID)
	for id, tx := range s.transactions {
		if tx.UserID == userID {
			delete(s.transactions, id)
		}
	}
	for id, b := range s.budgets {
		if b.UserID == userID {
			delete(s.budgets, id)
		}
	}
	for id, c := range s.categories {
		if c.UserID == userID {
			delete(s.categories, id)
		}
	}
	for id, r := range s.rules {
		if r.UserID == userID {
			delete(s.rules, id)
		}
	}
	for id, r := range s.recurring {
		if r.UserID == userID {
			delete(s.recurring, id)
		}
	}
	for id, r := range s.rates {
		if r.UserID == userID {
			delete(s.rates, id)
		}
	}
	for token, sess := range s.sessions {
		if sess.userID == userID {
			delete(s.sessions, token)
		}
	}
	delete(s.settings, userID)
	delete(s.goals, userID)
	return nil
}

func (s *Store) ListUserIDs(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.users))
	for id := range s.users {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Store) CreateSession(_ context.Context, token string, userID int64, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *Store) GetSessionUser(_ context.Context, token string, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok || !sess.expiresAt.After(now) {
		return 0, storage.ErrNotFound
	}
	return sess.userID, nil
}

func (s *Store) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, tx *core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.ID = s.id()
	s.transactions[tx.ID] = *tx
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.transactions[tx.ID]
	if !ok || existing.UserID != tx.UserID {
		return storage.ErrNotFound
	}
	s.transactions[tx.ID] = tx
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok || tx.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok || tx.UserID != userID {
		return core.Transaction{}, storage.ErrNotFound
	}
	return tx, nil
}

func (s *Store) ListTransactions(_ context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Transaction
	for _, tx := range s.transactions {
		if f.Matches(tx) {
			out = append(out, tx)
		}
	}

	switch f.Sort {
	case core.SortDateAsc:
		sort.Slice(out, func(i, j int) bool {
			if !out[i].Date.Equal(out[j].Date.Time) {
				return out[i].Date.Before(out[j].Date.Time)
			}
			return out[i].ID < out[j].ID
		})
	case core.SortAmountAsc:
		sort.Slice(out, func(i, j int) bool { return out[i].Amount < out[j].Amount })
	case core.SortAmountDesc:
		sort.Slice(out, func(i, j int) bool { return out[i].Amount > out[j].Amount })
	default:
		sort.Slice(out, func(i, j int) bool {
			if !out[i].Date.Equal(out[j].Date.Time) {
				return out[i].Date.After(out[j].Date.Time)
			}
			return out[i].ID > out[j].ID
		})
	}

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) CreateBudget(_ context.Context, b *core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.id()
	s.budgets[b.ID] = *b
	return nil
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.budgets[b.ID]
	if !ok || existing.UserID != b.UserID {
		return storage.ErrNotFound
	}
	s.budgets[b.ID] = b
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.budgets, id)
	return nil
}

func (s *Store) ListBudgets(_ context.Context, userID int64) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PeriodEnd.Equal(out[j].PeriodEnd.Time) {
			return out[i].PeriodEnd.After(out[j].PeriodEnd.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, c *core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.categories[c.ID] = *c
	return nil
}

func (s *Store) ListCategories(_ context.Context, userID int64) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) DeleteCategory(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok || c.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) CreateCategoryRule(_ context.Context, rule *core.CategoryRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rule.ID = s.id()
	s.rules[rule.ID] = *rule
	return nil
}

func (s *Store) ListCategoryRules(_ context.Context, userID int64) ([]core.CategoryRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.CategoryRule
	for _, r := range s.rules {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteCategoryRule(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[id]
	if !ok || r.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.rules, id)
	return nil
}

func (s *Store) UpsertRate(_ context.Context, rate core.CurrencyRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.rates {
		if existing.UserID == rate.UserID && existing.Code == rate.Code {
			rate.ID = id
			s.rates[id] = rate
			return nil
		}
	}
	rate.ID = s.id()
	s.rates[rate.ID] = rate
	return nil
}

func (s *Store) GetRate(_ context.Context, userID int64, code string) (core.CurrencyRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rates {
		if r.UserID == userID && r.Code == code {
			return r, nil
		}
	}
	return core.CurrencyRate{}, storage.ErrNotFound
}

func (s *Store) ListRates(_ context.Context, userID int64) ([]core.CurrencyRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.CurrencyRate
	for _, r := range s.rates {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) DeleteRate(_ context.Context, userID int64, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.rates {
		if r.UserID == userID && r.Code == code {
			delete(s.rates, id)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *Store) GetSettings(_ context.Context, userID int64) (core.UserSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.settings[userID]; ok {
		return st, nil
	}
	return core.UserSettings{UserID: userID, BaseCurrency: "EUR"}, nil
}

func (s *Store) SaveSettings(_ context.Context, st core.UserSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[st.UserID] = st
	return nil
}

func (s *Store) GetSavingsGoal(_ context.Context, userID int64) (core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[userID]
	if !ok {
		return core.SavingsGoal{}, storage.ErrNotFound
	}
	return g, nil
}

func (s *Store) SaveSavingsGoal(_ context.Context, g *core.SavingsGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == 0 {
		g.ID = s.id()
	}
	s.goals[g.UserID] = *g
	return nil
}

func (s *Store) CreateRecurringRule(_ context.Context, rule *core.RecurringRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rule.ID = s.id()
	s.recurring[rule.ID] = *rule
	return nil
}

func (s *Store) UpdateRecurringRule(_ context.Context, rule core.RecurringRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.recurring[rule.ID]
	if !ok || existing.UserID != rule.UserID {
		return storage.ErrNotFound
	}
	s.recurring[rule.ID] = rule
	return nil
}

func (s *Store) DeleteRecurringRule(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recurring[id]
	if !ok || r.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.recurring, id)
	return nil
}

func (s *Store) ListRecurringRules(_ context.Context, userID int64) ([]core.RecurringRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rulesLocked(userID, nil), nil
}

func (s *Store) ListDueRecurringRules(_ context.Context, userID int64, asOf core.Date) ([]core.RecurringRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rulesLocked(userID, &asOf), nil
}

func (s *Store) rulesLocked(userID int64, dueBy *core.Date) []core.RecurringRule {
	var out []core.RecurringRule
	for _, r := range s.recurring {
		if r.UserID != userID {
			continue
		}
		if dueBy != nil && r.NextRun.After(dueBy.Time) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextRun.Equal(out[j].NextRun.Time) {
			return out[i].NextRun.Before(out[j].NextRun.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) UpdateRuleNextRun(_ context.Context, userID, id int64, next core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recurring[id]
	if !ok || r.UserID != userID {
		return storage.ErrNotFound
	}
	r.NextRun = next
	s.recurring[id] = r
	return nil
}

// ApplyRuleCatchUp inserts occurrences and advances the rule under one
// lock hold; the mutex gives the same all-or-nothing view a database
// transaction would.
func (s *Store) ApplyRuleCatchUp(_ context.Context, rule core.RecurringRule, occurrences []core.Transaction, next core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recurring[rule.ID]
	if !ok || r.UserID != rule.UserID {
		return storage.ErrNotFound
	}
	for i := range occurrences {
		occurrences[i].ID = s.id()
		s.transactions[occurrences[i].ID] = occurrences[i]
	}
	r.NextRun = next
	s.recurring[rule.ID] = r
	return nil
}
