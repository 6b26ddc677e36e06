package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type Category struct {
	bun.BaseModel `bun:"table:scratch_category"`
	ID            int64           `bun:"id,pk,autoincrement" json:"id"`
	Name          string          `bun:"name,notnull" json:"name"`
	Slug          string          `bun:"slug,notnull,unique" json:"slug"`
	Description   string          `bun:"description" json:"description"`
	Price         decimal.Decimal `bun:"price,type:numeric(12,2),notnull" json:"price"`
	MaxReward     decimal.Decimal `bun:"max_reward,type:numeric(12,2),notnull" json:"max_reward"`
	RTPPercentage int             `bun:"rtp_percentage,notnull,default:85" json:"rtp_percentage"`
	Active        bool            `bun:"active,notnull,default:true" json:"active"`
	BannerURL     string          `bun:"banner_url" json:"banner_url"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	TotalGames int `bun:"-" json:"total_games,omitempty"`
}

// CategoryDetail is a category with its public prize list.
type CategoryDetail struct {
	Category
	Rewards []PrizeSummary `json:"rewards"`
}

type CategorySummary struct {
	Name  string          `json:"name"`
	Slug  string          `json:"slug"`
	Price decimal.Decimal `json:"price"`
}

func (c *Category) Summary() CategorySummary {
	return CategorySummary{Name: c.Name, Slug: c.Slug, Price: c.Price}
}

// CategoryInput is the payload accepted when creating a category.
type CategoryInput struct {
	Name          string          `json:"name"`
	Slug          string          `json:"slug"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	MaxReward     decimal.Decimal `json:"max_reward"`
	RTPPercentage *int            `json:"rtp_percentage"`
	BannerURL     string          `json:"banner_url"`
}

// CategoryUpdate carries the fields an administrator may change. Nil means untouched.
type CategoryUpdate struct {
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	MaxReward     *decimal.Decimal `json:"max_reward"`
	RTPPercentage *int             `json:"rtp_percentage"`
	BannerURL     *string          `json:"banner_url"`
	Active        *bool            `json:"active"`
}

func (u *CategoryUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Price == nil && u.MaxReward == nil &&
		u.RTPPercentage == nil && u.BannerURL == nil && u.Active == nil
}

type CategoryStats struct {
	TotalGames    int             `bun:"total_games" json:"total_games"`
	TotalWins     int             `bun:"total_wins" json:"total_wins"`
	WinRate       decimal.Decimal `bun:"-" json:"win_rate"`
	TotalInvested decimal.Decimal `bun:"-" json:"total_invested"`
	TotalPaid     decimal.Decimal `bun:"-" json:"total_paid"`
	CurrentRTP    decimal.Decimal `bun:"-" json:"current_rtp"`
}
