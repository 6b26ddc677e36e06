package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

const (
	TransactionTypePurchase = "purchase"
	TransactionTypeWin      = "win"
	TransactionTypeDeposit  = "deposit"
	TransactionTypeWithdraw = "withdraw"

	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
	TransactionStatusCancelled = "cancelled"
)

type Transaction struct {
	bun.BaseModel `bun:"table:wallet_transaction"`
	ID            string          `bun:"id,pk" json:"id"`
	UserID        string          `bun:"user_id,notnull" json:"user_id"`
	Type          string          `bun:"type,notnull" json:"type"`
	Amount        decimal.Decimal `bun:"amount,type:numeric(14,2),notnull" json:"amount"`
	Description   string          `bun:"description" json:"description"`
	GameSessionID *string         `bun:"game_session_id" json:"game_session_id"`
	Status        string          `bun:"status,notnull,default:'pending'" json:"status"`
	ExternalID    *string         `bun:"external_id" json:"external_id"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// IsCredit reports whether the transaction adds to the wallet balance.
func (t *Transaction) IsCredit() bool {
	return t.Type == TransactionTypeDeposit || t.Type == TransactionTypeWin
}

func ValidTransactionType(v string) bool {
	switch v {
	case TransactionTypePurchase, TransactionTypeWin, TransactionTypeDeposit, TransactionTypeWithdraw:
		return true
	}
	return false
}

type TransactionFilter struct {
	Page
	UserID string
	Type   string
	Status string
}

type TransactionSum struct {
	Type  string          `bun:"type" json:"type"`
	Total decimal.Decimal `bun:"total" json:"total"`
	Count int             `bun:"count" json:"count"`
}

type FinancialSummary struct {
	Days  int              `json:"days"`
	Since time.Time        `json:"since"`
	Items []TransactionSum `json:"items"`
	Net   decimal.Decimal  `json:"net"`
}

type WithdrawLimit struct {
	Allowed   bool `json:"allowed"`
	DoneToday int  `json:"done_today"`
	MaxPerDay int  `json:"max_per_day"`
	Remaining int  `json:"remaining"`
}

type WithdrawRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	PayoutKey string          `json:"payout_key"`
}

type DepositRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// PaymentNotification is what the payment provider posts to the webhook.
type PaymentNotification struct {
	ExternalID    string `json:"external_id"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}
