package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money goes out with two fraction digits, "10.00" rather than "10".
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func (c CategorySummary) MarshalJSON() ([]byte, error) {
	type alias CategorySummary
	return json.Marshal(struct {
		alias
		Price string `json:"price"`
	}{alias(c), money(c.Price)})
}

func (p PrizeSummary) MarshalJSON() ([]byte, error) {
	type alias PrizeSummary
	return json.Marshal(struct {
		alias
		Value string `json:"value"`
	}{alias(p), money(p.Value)})
}

func (c GridCell) MarshalJSON() ([]byte, error) {
	type alias GridCell
	return json.Marshal(struct {
		alias
		Value string `json:"value"`
	}{alias(c), money(c.Value)})
}

func (r PurchaseResult) MarshalJSON() ([]byte, error) {
	type alias PurchaseResult
	return json.Marshal(struct {
		alias
		AmountSpent string `json:"amount_spent"`
		AmountWon   string `json:"amount_won"`
	}{alias(r), money(r.AmountSpent), money(r.AmountWon)})
}

func (s GameSession) MarshalJSON() ([]byte, error) {
	type alias GameSession
	return json.Marshal(struct {
		alias
		AmountSpent string `json:"amount_spent"`
		AmountWon   string `json:"amount_won"`
	}{alias(s), money(s.AmountSpent), money(s.AmountWon)})
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	type alias Transaction
	return json.Marshal(struct {
		alias
		Amount string `json:"amount"`
	}{alias(t), money(t.Amount)})
}

func (w WalletInfo) MarshalJSON() ([]byte, error) {
	type alias WalletInfo
	return json.Marshal(struct {
		alias
		Balance    string `json:"balance"`
		TotalSpent string `json:"total_spent"`
		TotalWon   string `json:"total_won"`
		NetResult  string `json:"net_result"`
	}{alias(w), money(w.Balance), money(w.TotalSpent), money(w.TotalWon), money(w.NetResult)})
}
