package services

import (
	"context"
	"errors"
	"testing"

	"github.com/samber/do"
)

func TestCatalogHidesInactive(t *testing.T) {
	store := newMemStore()
	cheap := store.addCategory("cheap", "1.00", true)
	store.addCategory("premium", "50.00", true)
	store.addCategory("retired", "5.00", false)
	store.addPrize(cheap.ID, "Ten", "10.00", 2)
	hidden := store.addPrize(cheap.ID, "Old", "5.00", 1)
	hidden.Active = false

	catalog := do.MustInvoke[*ServiceCatalog](newTestContainer(t, store, nil))
	ctx := context.Background()

	categories, err := catalog.ListCategories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(categories) != 2 || categories[0].Slug != "cheap" || categories[1].Slug != "premium" {
		t.Fatalf("categories = %+v", categories)
	}

	if _, err := catalog.GetCategory(ctx, "retired"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("inactive category error = %v, want ErrNotFound", err)
	}

	detail, err := catalog.GetCategory(ctx, "cheap")
	if err != nil {
		t.Fatal(err)
	}
	if len(detail.Rewards) != 1 || detail.Rewards[0].Name != "Ten" {
		t.Fatalf("rewards = %+v", detail.Rewards)
	}
}

func TestCategoryStats(t *testing.T) {
	_, purchase, _, _ := forcedWinFixture(t)
	catalog := do.MustInvoke[*ServiceCatalog](purchase.container)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := purchase.Buy(ctx, "u1", "green", ""); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := catalog.GetCategoryStats(ctx, "green")
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalGames != 2 || stats.TotalWins != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	if !stats.WinRate.Equal(dec("100")) {
		t.Fatalf("win rate = %s", stats.WinRate)
	}
	if !stats.TotalInvested.Equal(dec("1020")) || !stats.TotalPaid.Equal(dec("40")) {
		t.Fatalf("totals = %s/%s", stats.TotalInvested, stats.TotalPaid)
	}
	// 40 / 1020 * 100
	if !stats.CurrentRTP.Equal(dec("3.92")) {
		t.Fatalf("current rtp = %s, want 3.92", stats.CurrentRTP)
	}
}

func TestWinRate(t *testing.T) {
	tests := []struct {
		wins, games int
		want        string
	}{
		{0, 0, "0"},
		{1, 3, "33.33"},
		{2, 3, "66.67"},
		{5, 5, "100"},
	}
	for _, tt := range tests {
		if got := winRate(tt.wins, tt.games); !got.Equal(dec(tt.want)) {
			t.Errorf("winRate(%d, %d) = %s, want %s", tt.wins, tt.games, got, tt.want)
		}
	}
}
