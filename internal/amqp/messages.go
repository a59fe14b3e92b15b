package amqp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// BudgetAlertMessage is the wire form of an over-budget notification. It
// carries everything a display collaborator needs without another lookup.
type BudgetAlertMessage struct {
	Username  string          `json:"username"`
	Category  string          `json:"category"`
	Ceiling   decimal.Decimal `json:"ceiling"`
	Spent     decimal.Decimal `json:"spent"`
	Year      int             `json:"year"`
	Month     int             `json:"month"`
	Timestamp time.Time       `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetAlertMessageFromJSON creates a message from JSON bytes
func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
