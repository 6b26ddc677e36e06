package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

const (
	UserRoleUser  = "user"
	UserRoleAdmin = "admin"
)

type User struct {
	bun.BaseModel `bun:"table:user_profile"`
	ID            string          `bun:"id,pk" json:"id"`
	Username      string          `bun:"username" json:"username"`
	Email         string          `bun:"email" json:"email"`
	Role          string          `bun:"role,notnull,default:'user'" json:"role"`
	WalletBalance decimal.Decimal `bun:"wallet_balance,type:numeric(14,2),notnull,default:0" json:"wallet_balance"`
	TotalSpent    decimal.Decimal `bun:"total_spent,type:numeric(14,2),notnull,default:0" json:"total_spent"`
	TotalWon      decimal.Decimal `bun:"total_won,type:numeric(14,2),notnull,default:0" json:"total_won"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// UserFromAuth only use in middleware
type UserFromAuth struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type WalletInfo struct {
	Balance    decimal.Decimal `json:"balance"`
	TotalSpent decimal.Decimal `json:"total_spent"`
	TotalWon   decimal.Decimal `json:"total_won"`
	NetResult  decimal.Decimal `json:"net_result"`
}

// LedgerMismatch is a user whose cached balance disagrees with the transaction history.
type LedgerMismatch struct {
	UserID        string          `bun:"user_id" json:"user_id"`
	WalletBalance decimal.Decimal `bun:"wallet_balance" json:"wallet_balance"`
	LedgerBalance decimal.Decimal `bun:"ledger_balance" json:"ledger_balance"`
}
