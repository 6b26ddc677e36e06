package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// GridCell is one of the nine scratch positions. A nil cell is an empty position.
type GridCell struct {
	PrizeID  int64           `json:"prize_id"`
	Name     string          `json:"name"`
	ImageURL string          `json:"image_url"`
	Value    decimal.Decimal `json:"value"`
	Type     string          `json:"type"`
}

func NewGridCell(p *Prize) *GridCell {
	return &GridCell{PrizeID: p.ID, Name: p.Name, ImageURL: p.ImageURL, Value: p.Value, Type: p.Type}
}

type Grid []*GridCell

// Count returns how many cells show the given prize.
func (g Grid) Count(prizeID int64) int {
	n := 0
	for _, cell := range g {
		if cell != nil && cell.PrizeID == prizeID {
			n++
		}
	}
	return n
}

type GameSession struct {
	bun.BaseModel `bun:"table:game_session,alias:game_session"`
	ID            string          `bun:"id,pk" json:"id"`
	UserID        string          `bun:"user_id,notnull" json:"user_id"`
	CategoryID    int64           `bun:"category_id,notnull" json:"category_id"`
	PrizeID       *int64          `bun:"prize_id" json:"prize_id"`
	AmountSpent   decimal.Decimal `bun:"amount_spent,type:numeric(12,2),notnull" json:"amount_spent"`
	AmountWon     decimal.Decimal `bun:"amount_won,type:numeric(12,2),notnull,default:0" json:"amount_won"`
	GridData      Grid            `bun:"grid_data,type:jsonb" json:"grid_data"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	CompletedAt   *time.Time      `bun:"completed_at" json:"completed_at"`

	Category *CategorySummary `bun:"-" json:"category,omitempty"`
	Prize    *PrizeSummary    `bun:"-" json:"prize,omitempty"`
}

func (s *GameSession) Won() bool {
	return s.PrizeID != nil && s.AmountWon.IsPositive()
}

type GameSessionFilter struct {
	Page
	UserID     string
	CategoryID int64
	OnlyWins   bool
}

// PurchaseResult is returned to the caller after a scratch card is bought.
type PurchaseResult struct {
	SessionID   string          `json:"session_id"`
	Category    CategorySummary `json:"category"`
	Prize       *PrizeSummary   `json:"prize"`
	Grid        Grid            `json:"grid"`
	AmountSpent decimal.Decimal `json:"amount_spent"`
	AmountWon   decimal.Decimal `json:"amount_won"`
	CreatedAt   time.Time       `json:"created_at"`
	Replayed    bool            `json:"replayed,omitempty"`
}
