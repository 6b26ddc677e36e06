package scratch

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
)

func TestComposeGridTiers(t *testing.T) {
	engine := NewEngine(DefaultConfig(), rand.NewSource(10))

	cases := []struct {
		value int64
		want  int
	}{
		{1500, 3},
		{1000, 3},
		{500, 4},
		{100, 4},
		{50, 5},
	}

	for _, c := range cases {
		prizes := newPrizes([]int64{c.value, 1, 2, 3}, []int{1, 1, 1, 1})
		winner := prizes[0]

		grid := engine.ComposeGrid(&winner, prizes)
		if len(grid) != GridSize {
			t.Fatalf("value %d: grid has %d cells", c.value, len(grid))
		}
		if got := grid.Count(winner.ID); got != c.want {
			t.Errorf("value %d: winner appears %d times, want %d", c.value, got, c.want)
		}
		for _, cell := range grid {
			if cell == nil {
				t.Fatalf("value %d: unexpected empty cell", c.value)
			}
		}
	}
}

func TestComposeGridNoWinner(t *testing.T) {
	engine := NewEngine(DefaultConfig(), rand.NewSource(11))
	prizes := newPrizes([]int64{10, 20, 30}, []int{1, 1, 1})

	for i := 0; i < 200; i++ {
		grid := engine.ComposeGrid(nil, prizes)
		if len(grid) != GridSize {
			t.Fatalf("grid has %d cells", len(grid))
		}
		for _, cell := range grid {
			if cell == nil {
				t.Fatal("decoy pool is not empty, no cell should be blank")
			}
		}
	}
}

func TestComposeGridEmptyPools(t *testing.T) {
	engine := NewEngine(DefaultConfig(), rand.NewSource(12))

	grid := engine.ComposeGrid(nil, nil)
	if len(grid) != GridSize {
		t.Fatalf("grid has %d cells", len(grid))
	}
	for _, cell := range grid {
		if cell != nil {
			t.Fatal("no prizes, every cell should be blank")
		}
	}

	only := newPrizes([]int64{250}, []int{1})
	grid = engine.ComposeGrid(&only[0], only)
	blank := 0
	for _, cell := range grid {
		if cell == nil {
			blank++
		}
	}
	if grid.Count(only[0].ID) != 4 || blank != 5 {
		t.Fatalf("got %d winners and %d blanks, want 4 and 5", grid.Count(only[0].ID), blank)
	}
}

func TestComposeGridShufflesWinnerPositions(t *testing.T) {
	engine := NewEngine(DefaultConfig(), rand.NewSource(13))
	prizes := newPrizes([]int64{50, 1}, []int{1, 1})
	winner := prizes[0]

	positions := map[int]bool{}
	for i := 0; i < 100; i++ {
		grid := engine.ComposeGrid(&winner, prizes)
		for pos, cell := range grid {
			if cell.PrizeID == winner.ID {
				positions[pos] = true
			}
		}
	}
	if len(positions) != GridSize {
		t.Fatalf("winner only seen at %d positions", len(positions))
	}
}

func TestWinnerCopies(t *testing.T) {
	if WinnerCopies(decimal.RequireFromString("999.99")) != 4 {
		t.Fatal("999.99 should show four copies")
	}
	if WinnerCopies(decimal.RequireFromString("99.99")) != 5 {
		t.Fatal("99.99 should show five copies")
	}
}
