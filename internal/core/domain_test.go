package core

import (
	"testing"
)

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		UserID:   1,
		Date:     NewDate(2024, 1, 15),
		Kind:     Expense,
		Category: "Food",
		Amount:   12.5,
	}

	tests := []struct {
		name    string
		mutate  func(tx *Transaction)
		wantErr bool
	}{
		{name: "valid expense", mutate: func(*Transaction) {}, wantErr: false},
		{name: "valid income", mutate: func(tx *Transaction) { tx.Kind = Income }, wantErr: false},
		{name: "zero amount", mutate: func(tx *Transaction) { tx.Amount = 0 }, wantErr: true},
		{name: "negative amount", mutate: func(tx *Transaction) { tx.Amount = -5 }, wantErr: true},
		{name: "bad kind", mutate: func(tx *Transaction) { tx.Kind = "transfer" }, wantErr: true},
		{name: "empty category", mutate: func(tx *Transaction) { tx.Category = "  " }, wantErr: true},
		{name: "zero date", mutate: func(tx *Transaction) { tx.Date = Date{} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mutate(&tx)
			err := tx.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalized(t *testing.T) {
	base := 42.0
	withBase := Transaction{Amount: 50, AmountBase: &base}
	if got := withBase.Normalized(); got != 42.0 {
		t.Errorf("Normalized() = %v, want 42", got)
	}

	withoutBase := Transaction{Amount: 50}
	if got := withoutBase.Normalized(); got != 50.0 {
		t.Errorf("Normalized() fallback = %v, want 50", got)
	}

	expense := Transaction{Amount: 50, Kind: Expense}
	if got := expense.SignedNormalized(); got != -50.0 {
		t.Errorf("SignedNormalized() expense = %v, want -50", got)
	}
	income := Transaction{Amount: 50, Kind: Income}
	if got := income.SignedNormalized(); got != 50.0 {
		t.Errorf("SignedNormalized() income = %v, want 50", got)
	}
}

func TestBudgetActiveOn(t *testing.T) {
	b := Budget{
		PeriodStart: NewDate(2024, 1, 1),
		PeriodEnd:   NewDate(2024, 1, 31),
		Amount:      400,
	}

	tests := []struct {
		name string
		on   Date
		want bool
	}{
		{"first day", NewDate(2024, 1, 1), true},
		{"last day", NewDate(2024, 1, 31), true},
		{"inside", NewDate(2024, 1, 15), true},
		{"before", NewDate(2023, 12, 31), false},
		{"after", NewDate(2024, 2, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.ActiveOn(tt.on); got != tt.want {
				t.Errorf("ActiveOn(%s) = %v, want %v", tt.on.Key(), got, tt.want)
			}
		})
	}
}

func TestFrequencyStepDays(t *testing.T) {
	if Daily.StepDays() != 1 || Weekly.StepDays() != 7 || Monthly.StepDays() != 30 {
		t.Errorf("unexpected step days: daily=%d weekly=%d monthly=%d",
			Daily.StepDays(), Weekly.StepDays(), Monthly.StepDays())
	}
}

func TestSavingsGoalPercent(t *testing.T) {
	tests := []struct {
		name    string
		target  float64
		current float64
		want    float64
	}{
		{"zero target", 0, 100, 0},
		{"halfway", 200, 100, 50},
		{"overshoot clamped", 10, 1000, 999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := SavingsGoal{Name: "g", TargetAmount: tt.target, CurrentAmount: tt.current}
			if got := g.Percent(); got != tt.want {
				t.Errorf("Percent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"12.34", 12.34, false},
		{"12,34", 12.34, false},
		{" 100 ", 100, false},
		{"0", 0, true},
		{"-5", 0, true},
		{"+5", 0, true},
		{"abc", 0, true},
		{"", 0, true},
		{"1.2.3", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAmount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseAmount(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFilterMatches(t *testing.T) {
	start := NewDate(2024, 1, 1)
	end := NewDate(2024, 1, 31)
	tx := Transaction{UserID: 1, Date: NewDate(2024, 1, 15), Kind: Expense, Category: "Food", Amount: 10}

	tests := []struct {
		name string
		f    TransactionFilter
		want bool
	}{
		{"owner only", TransactionFilter{UserID: 1}, true},
		{"wrong owner", TransactionFilter{UserID: 2}, false},
		{"in range", TransactionFilter{UserID: 1, Start: &start, End: &end}, true},
		{"category match", TransactionFilter{UserID: 1, Category: "Food"}, true},
		{"category mismatch", TransactionFilter{UserID: 1, Category: "Travel"}, false},
		{"kind mismatch", TransactionFilter{UserID: 1, Kind: Income}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.Matches(tx); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDateHelpers(t *testing.T) {
	d := NewDate(2024, 1, 1)
	if got := d.AddDays(30).Key(); got != "2024-01-31" {
		t.Errorf("AddDays(30) = %s, want 2024-01-31", got)
	}
	if got := d.MonthKey(); got != "2024-01" {
		t.Errorf("MonthKey() = %s, want 2024-01", got)
	}
	if got := NewDate(2024, 3, 15).DaysSince(d); got != 74 {
		t.Errorf("DaysSince() = %d, want 74", got)
	}
}
