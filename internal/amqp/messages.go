package amqp

import (
	"encoding/json"
	"time"
)

// Alert types routed through the alerts queue.
const (
	AlertLargeTransaction = "large_transaction"
	AlertBudgetThreshold  = "budget_threshold"
)

// AlertMessage carries the numeric inputs of an alert decision to the
// alert worker. Delivery (mail, push, ...) is the worker's concern; this
// side only supplies the figures.
type AlertMessage struct {
	Type      string    `json:"type"`
	UserID    int64     `json:"user_id"`
	Category  string    `json:"category,omitempty"`
	Amount    float64   `json:"amount,omitempty"`
	BudgetID  int64     `json:"budget_id,omitempty"`
	Percent   float64   `json:"percent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLargeTransactionAlert flags a single transaction whose base amount
// crossed the user's threshold.
func NewLargeTransactionAlert(userID int64, category string, amount float64) *AlertMessage {
	return &AlertMessage{
		Type:      AlertLargeTransaction,
		UserID:    userID,
		Category:  category,
		Amount:    amount,
		Timestamp: time.Now(),
	}
}

// NewBudgetThresholdAlert flags a budget whose consumption crossed the
// user's percentage threshold.
func NewBudgetThresholdAlert(userID, budgetID int64, category string, percent float64) *AlertMessage {
	return &AlertMessage{
		Type:      AlertBudgetThreshold,
		UserID:    userID,
		BudgetID:  budgetID,
		Category:  category,
		Percent:   percent,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *AlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AlertMessageFromJSON creates a message from JSON bytes.
func AlertMessageFromJSON(data []byte) (*AlertMessage, error) {
	var msg AlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
