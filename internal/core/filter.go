package core

// Sort orders accepted by TransactionFilter.
const (
	SortDateDesc   = "date_desc"
	SortDateAsc    = "date_asc"
	SortAmountAsc  = "amount_asc"
	SortAmountDesc = "amount_desc"
)

// TransactionFilter is an explicit query specification for reading
// transactions: owner, optional inclusive date range, optional category
// and kind, optional sort and limit. A nil Start or End leaves that side
// of the range open.
type TransactionFilter struct {
	UserID   int64
	Start    *Date
	End      *Date
	Category string
	Kind     Kind
	Sort     string
	Limit    int
}

// Matches reports whether tx satisfies every set field of the filter.
func (f TransactionFilter) Matches(tx Transaction) bool {
	if tx.UserID != f.UserID {
		return false
	}
	if f.Start != nil && tx.Date.Before(f.Start.Time) {
		return false
	}
	if f.End != nil && tx.Date.After(f.End.Time) {
		return false
	}
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	if f.Kind != "" && tx.Kind != f.Kind {
		return false
	}
	return true
}

// CategoryTotal is a signed per-category sum in base currency.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// MonthTotal is a signed per-month net, keyed YYYY-MM.
type MonthTotal struct {
	Month   string  `json:"month"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Net     float64 `json:"net"`
}

// BalancePoint is one step of the running-balance series.
type BalancePoint struct {
	Date    Date    `json:"date"`
	Balance float64 `json:"balance"`
}

// BudgetProgress pairs a budget with what has been spent inside its
// period so far.
type BudgetProgress struct {
	Budget  Budget  `json:"budget"`
	Spent   float64 `json:"spent"`
	Percent float64 `json:"percent"`
}

// ForecastPoint is one projected day of the forecast series.
type ForecastPoint struct {
	Date    Date    `json:"date"`
	Balance float64 `json:"balance"`
}
