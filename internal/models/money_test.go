package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPurchaseResultMoneyHasTwoDecimals(t *testing.T) {
	prize := &Prize{ID: 3, Name: "Twenty", Value: decimal.NewFromInt(20), Type: PrizeTypeCash}
	result := PurchaseResult{
		SessionID:   "s1",
		Category:    CategorySummary{Name: "Green", Slug: "green", Price: decimal.NewFromInt(10)},
		Prize:       prize.Summary(),
		Grid:        Grid{NewGridCell(prize), nil},
		AmountSpent: decimal.NewFromInt(10),
		AmountWon:   decimal.RequireFromString("20.5"),
		CreatedAt:   time.Date(2024, 5, 20, 15, 0, 0, 0, time.UTC),
	}

	b, err := json.Marshal(result)
	if err != nil {
		t.Fatal(err)
	}
	out := string(b)
	for _, want := range []string{
		`"session_id":"s1"`,
		`"amount_spent":"10.00"`,
		`"amount_won":"20.50"`,
		`"price":"10.00"`,
		`"value":"20.00"`,
		`"slug":"green"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}
	if strings.Count(out, `"amount_won"`) != 1 {
		t.Errorf("amount_won repeated in %s", out)
	}
}

func TestGridRoundTripsThroughJSON(t *testing.T) {
	prize := &Prize{ID: 3, Name: "Twenty", Value: decimal.RequireFromString("20.00"), Type: PrizeTypeCash}
	b, err := json.Marshal(Grid{NewGridCell(prize), nil})
	if err != nil {
		t.Fatal(err)
	}

	var grid Grid
	if err := json.Unmarshal(b, &grid); err != nil {
		t.Fatal(err)
	}
	if len(grid) != 2 || grid[1] != nil || grid[0].PrizeID != 3 || !grid[0].Value.Equal(prize.Value) {
		t.Fatalf("grid = %s", b)
	}
}

func TestWalletInfoMoney(t *testing.T) {
	b, err := json.Marshal(WalletInfo{
		Balance:    decimal.RequireFromString("12.3"),
		TotalSpent: decimal.NewFromInt(40),
		TotalWon:   decimal.NewFromInt(25),
		NetResult:  decimal.NewFromInt(-15),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"balance":"12.30","total_spent":"40.00","total_won":"25.00","net_result":"-15.00"}`
	if string(b) != want {
		t.Fatalf("json = %s, want %s", b, want)
	}
}
