package scratch

import (
	"github.com/shopspring/decimal"

	"scratchcard/internal/models"
)

const GridSize = 9

var (
	tierHigh = decimal.NewFromInt(1000)
	tierMid  = decimal.NewFromInt(100)
)

// WinnerCopies is how many cells show a winning prize of the given value.
func WinnerCopies(value decimal.Decimal) int {
	switch {
	case value.GreaterThanOrEqual(tierHigh):
		return 3
	case value.GreaterThanOrEqual(tierMid):
		return 4
	}
	return 5
}

// ComposeGrid lays the outcome out on nine cells. Decoys are drawn with
// replacement from the other prizes and the whole grid is shuffled.
func (e *Engine) ComposeGrid(winner *models.Prize, prizes []models.Prize) models.Grid {
	grid := make(models.Grid, 0, GridSize)

	decoys := prizes
	if winner != nil {
		for i := 0; i < WinnerCopies(winner.Value); i++ {
			grid = append(grid, models.NewGridCell(winner))
		}

		decoys = make([]models.Prize, 0, len(prizes))
		for _, p := range prizes {
			if p.ID != winner.ID {
				decoys = append(decoys, p)
			}
		}
	}

	for len(grid) < GridSize {
		if len(decoys) == 0 {
			grid = append(grid, nil)
			continue
		}
		p := decoys[e.intn(len(decoys))]
		grid = append(grid, models.NewGridCell(&p))
	}

	e.shuffle(len(grid), func(i, j int) {
		grid[i], grid[j] = grid[j], grid[i]
	})
	return grid
}
