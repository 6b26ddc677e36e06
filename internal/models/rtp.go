package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type CategoryRTP struct {
	bun.BaseModel `bun:"table:category_rtp,alias:category_rtp"`
	ID            int64           `bun:"id,pk,autoincrement" json:"id"`
	CategoryID    int64           `bun:"category_id,notnull,unique" json:"category_id"`
	CurrentRTP    decimal.Decimal `bun:"current_rtp,type:numeric(7,2),notnull,default:0" json:"current_rtp"`
	TotalInvested decimal.Decimal `bun:"total_invested,type:numeric(16,2),notnull,default:0" json:"total_invested"`
	TotalPaid     decimal.Decimal `bun:"total_paid,type:numeric(16,2),notnull,default:0" json:"total_paid"`
	UpdatedAt     time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}
