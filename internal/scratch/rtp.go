package scratch

import (
	"github.com/shopspring/decimal"

	"scratchcard/internal/models"
)

var hundred = decimal.NewFromInt(100)

type RTPState struct {
	TotalInvested decimal.Decimal
	TotalPaid     decimal.Decimal
}

func StateOf(row *models.CategoryRTP) RTPState {
	if row == nil {
		return RTPState{}
	}
	return RTPState{TotalInvested: row.TotalInvested, TotalPaid: row.TotalPaid}
}

// Percent is paid/invested*100 rounded to two places, zero before any investment.
func (s RTPState) Percent() decimal.Decimal {
	if !s.TotalInvested.IsPositive() {
		return decimal.Zero
	}
	return s.TotalPaid.Mul(hundred).DivRound(s.TotalInvested, 2)
}

func (s RTPState) Current() float64 {
	return s.Percent().InexactFloat64()
}

// Apply returns the state after one purchase at price that paid out won.
func (s RTPState) Apply(price, won decimal.Decimal) RTPState {
	return RTPState{
		TotalInvested: s.TotalInvested.Add(price),
		TotalPaid:     s.TotalPaid.Add(won),
	}
}
