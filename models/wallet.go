package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds a user's spendable balance. Debited at order commit,
// credited back on payment failure; the balance never goes negative.
type Wallet struct {
	UserID    string          `gorm:"primaryKey" json:"user_id"`
	Balance   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}
