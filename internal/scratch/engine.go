// Package scratch decides scratch card outcomes and lays out their grids.
// Nothing here touches storage; callers pass in the prize set and the RTP totals.
package scratch

import (
	"math/rand"
	"sync"
	"time"

	"github.com/mroth/weightedrand/v2"
	"github.com/shopspring/decimal"

	"scratchcard/internal/models"
)

const (
	DefaultTargetRTP          = 85
	DefaultLossWeightRatio    = 0.6
	DefaultWinValueMultiplier = 3
)

type Band int

const (
	BandNone Band = iota
	BandForced
	BandHigh
	BandMedium
	BandCooling
	BandNormal
)

func (b Band) String() string {
	switch b {
	case BandForced:
		return "forced"
	case BandHigh:
		return "high"
	case BandMedium:
		return "medium"
	case BandCooling:
		return "cooling"
	case BandNormal:
		return "normal"
	}
	return "none"
}

type Config struct {
	TargetRTP float64
	// LossWeightRatio sizes the implicit no-win bucket as a share of the summed prize weights.
	LossWeightRatio float64
	// WinValueMultiplier caps steered wins to prizes worth at most price times this.
	WinValueMultiplier int64
	// FirstPlayForcedWin keeps the steering bands active while a category has no invested total.
	FirstPlayForcedWin bool
}

func DefaultConfig() Config {
	return Config{
		TargetRTP:          DefaultTargetRTP,
		LossWeightRatio:    DefaultLossWeightRatio,
		WinValueMultiplier: DefaultWinValueMultiplier,
		FirstPlayForcedWin: true,
	}
}

type Outcome struct {
	Prize *models.Prize
	Band  Band
	RTP   float64
}

func (o Outcome) Won() bool {
	return o.Prize != nil
}

type Engine struct {
	cfg Config

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewEngine builds an engine. A nil source seeds from the clock.
func NewEngine(cfg Config, src rand.Source) *Engine {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	if cfg.TargetRTP <= 0 {
		cfg.TargetRTP = DefaultTargetRTP
	}
	if cfg.LossWeightRatio < 0 {
		cfg.LossWeightRatio = DefaultLossWeightRatio
	}
	if cfg.WinValueMultiplier <= 0 {
		cfg.WinValueMultiplier = DefaultWinValueMultiplier
	}
	return &Engine{cfg: cfg, rnd: rand.New(src)}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// DecideOutcome picks the prize won by one purchase, or none.
func (e *Engine) DecideOutcome(prizes []models.Prize, state RTPState, price decimal.Decimal) Outcome {
	prizes = eligible(prizes)
	current := state.Current()
	if len(prizes) == 0 {
		return Outcome{Band: BandNone, RTP: current}
	}

	gap := e.cfg.TargetRTP - current
	steer := e.cfg.FirstPlayForcedWin || state.TotalInvested.IsPositive()

	if steer {
		switch {
		case gap > 10:
			return Outcome{Prize: e.pickCapped(prizes, price), Band: BandForced, RTP: current}
		case gap > 5:
			if e.roll() < 0.7 {
				return Outcome{Prize: e.pickCapped(prizes, price), Band: BandHigh, RTP: current}
			}
		case gap > 2:
			if e.roll() < 0.3 {
				return Outcome{Prize: e.pickCapped(prizes, price), Band: BandMedium, RTP: current}
			}
		case current > e.cfg.TargetRTP+5:
			if e.roll() < 0.2 {
				return Outcome{Prize: e.pick(prizes, 0), Band: BandCooling, RTP: current}
			}
			return Outcome{Band: BandCooling, RTP: current}
		}
	}

	loss := LossWeight(prizes, e.cfg.LossWeightRatio)
	return Outcome{Prize: e.pick(prizes, loss), Band: BandNormal, RTP: current}
}

// LossWeight is the implicit no-win weight for a prize set.
func LossWeight(prizes []models.Prize, ratio float64) int {
	total := 0
	for _, p := range prizes {
		total += p.ProbabilityWeight
	}
	return int(float64(total) * ratio)
}

func (e *Engine) pickCapped(prizes []models.Prize, price decimal.Decimal) *models.Prize {
	limit := price.Mul(decimal.NewFromInt(e.cfg.WinValueMultiplier))
	capped := make([]models.Prize, 0, len(prizes))
	for _, p := range prizes {
		if p.Value.LessThanOrEqual(limit) {
			capped = append(capped, p)
		}
	}
	if len(capped) == 0 {
		capped = prizes
	}
	return e.pick(capped, 0)
}

// pick draws one prize by weight. A positive loss weight adds a no-win bucket.
func (e *Engine) pick(prizes []models.Prize, loss int) *models.Prize {
	const lossIndex = -1

	choices := make([]weightedrand.Choice[int, int], 0, len(prizes)+1)
	for i, p := range prizes {
		choices = append(choices, weightedrand.NewChoice(i, p.ProbabilityWeight))
	}
	if loss > 0 {
		choices = append(choices, weightedrand.NewChoice(lossIndex, loss))
	}

	chooser, err := weightedrand.NewChooser(choices...)
	if err != nil {
		return nil
	}

	e.mu.Lock()
	i := chooser.PickSource(e.rnd)
	e.mu.Unlock()
	if i == lossIndex {
		return nil
	}
	p := prizes[i]
	return &p
}

func eligible(prizes []models.Prize) []models.Prize {
	out := make([]models.Prize, 0, len(prizes))
	for _, p := range prizes {
		if p.ProbabilityWeight > 0 {
			out = append(out, p)
		}
	}
	return out
}

func (e *Engine) roll() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rnd.Float64()
}

func (e *Engine) intn(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rnd.Intn(n)
}

func (e *Engine) shuffle(n int, swap func(i, j int)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rnd.Shuffle(n, swap)
}
