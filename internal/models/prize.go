package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

const (
	PrizeTypeCash    = "cash"
	PrizeTypeProduct = "product"
)

type Prize struct {
	bun.BaseModel     `bun:"table:scratch_prize"`
	ID                int64           `bun:"id,pk,autoincrement" json:"id"`
	CategoryID        int64           `bun:"category_id,notnull" json:"category_id"`
	Name              string          `bun:"name,notnull" json:"name"`
	ImageURL          string          `bun:"image_url" json:"image_url"`
	Value             decimal.Decimal `bun:"value,type:numeric(12,2),notnull" json:"value"`
	ProbabilityWeight int             `bun:"probability_weight,notnull,default:1" json:"probability_weight"`
	Type              string          `bun:"type,notnull,default:'cash'" json:"type"`
	Active            bool            `bun:"active,notnull,default:true" json:"active"`
	CreatedAt         time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt         time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// PrizeSummary is the public view of a prize, weights stay private.
type PrizeSummary struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	ImageURL string          `json:"image_url"`
	Value    decimal.Decimal `json:"value"`
	Type     string          `json:"type"`
}

func (p *Prize) Summary() *PrizeSummary {
	if p == nil {
		return nil
	}
	return &PrizeSummary{ID: p.ID, Name: p.Name, ImageURL: p.ImageURL, Value: p.Value, Type: p.Type}
}

type PrizeInput struct {
	CategoryID        int64           `json:"category_id"`
	Name              string          `json:"name"`
	ImageURL          string          `json:"image_url"`
	Value             decimal.Decimal `json:"value"`
	ProbabilityWeight *int            `json:"probability_weight"`
	Type              string          `json:"type"`
}

type PrizeUpdate struct {
	Name              *string          `json:"name"`
	ImageURL          *string          `json:"image_url"`
	Value             *decimal.Decimal `json:"value"`
	ProbabilityWeight *int             `json:"probability_weight"`
	Type              *string          `json:"type"`
	Active            *bool            `json:"active"`
}

func (u *PrizeUpdate) Empty() bool {
	return u.Name == nil && u.ImageURL == nil && u.Value == nil && u.ProbabilityWeight == nil &&
		u.Type == nil && u.Active == nil
}
