package models

import "time"

// TransactionType is the direction of a wallet movement.
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// Wallet is a user's virtual balance.
type Wallet struct {
	UserID    string    `json:"user_id"`
	Balance   float64   `json:"balance"`
	Verified  bool      `json:"verified"`
	CanRent   bool      `json:"can_rent"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transaction is a single ledger entry of a wallet.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Type        TransactionType `json:"type"`
	Amount      float64         `json:"amount"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Coupon is a percentage discount won on the spin wheel.
type Coupon struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Percent   float64   `json:"percent"`
	Label     string    `json:"label"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}
