package main

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"

	"scratchcard/internal/datastore"
	"scratchcard/internal/models"
	"scratchcard/internal/scratch"
	"scratchcard/internal/services"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

func main() {
	app := &cli.App{
		Name:  "simulate",
		Usage: "play a category many times against the outcome engine without recording purchases",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "slug",
				Usage:    "category to simulate",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "runs",
				Value: 100000,
			},
			&cli.Int64Flag{
				Name:  "seed",
				Usage: "random seed, the clock when 0",
			},
			&cli.BoolFlag{
				Name:  "from-zero",
				Usage: "start from an empty RTP state instead of the stored one",
			},
		},
		Action: simulate,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type result struct {
	runs     int
	wins     int
	invested decimal.Decimal
	paid     decimal.Decimal
	bands    map[scratch.Band]int
	prizes   map[string]int
}

func simulate(c *cli.Context) error {
	vs, err := env.EnvsRequired("DB_DSN")
	if err != nil {
		return err
	}
	for _, k := range []string{"SCRATCH_TARGET_RTP", "SCRATCH_LOSS_WEIGHT_RATIO", "SCRATCH_WIN_VALUE_MULTIPLIER", "SCRATCH_FIRST_PLAY_FORCED_WIN"} {
		vs[k] = os.Getenv(k)
	}
	settings, err := services.LoadSettings(vs)
	if err != nil {
		return err
	}

	ctx := context.Background()
	db := getDb(vs["DB_DSN"])
	defer db.Close()

	category, err := datastore.GetCategoryBySlug(ctx, db, c.String("slug"))
	if err != nil {
		return fmt.Errorf("category %s: %w", c.String("slug"), err)
	}
	prizes, err := datastore.ListPrizes(ctx, db, category.ID, true)
	if err != nil {
		return err
	}

	state := scratch.RTPState{}
	if !c.Bool("from-zero") {
		row, err := datastore.GetOrCreateRTP(ctx, db, category.ID)
		if err != nil {
			return err
		}
		state = scratch.StateOf(row)
	}

	seed := c.Int64("seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	engine := scratch.NewEngine(settings.Engine, rand.NewSource(seed))

	res := run(engine, category, prizes, state, c.Int("runs"))
	report(category, settings.Engine, res, seed)
	return nil
}

func run(engine *scratch.Engine, category *models.Category, prizes []models.Prize, state scratch.RTPState, runs int) *result {
	res := &result{
		bands:  map[scratch.Band]int{},
		prizes: map[string]int{},
	}

	for i := 0; i < runs; i++ {
		outcome := engine.DecideOutcome(prizes, state, category.Price)
		won := decimal.Zero
		if outcome.Won() {
			won = outcome.Prize.Value
			res.wins++
			res.prizes[outcome.Prize.Name]++
		}
		res.bands[outcome.Band]++
		res.invested = res.invested.Add(category.Price)
		res.paid = res.paid.Add(won)
		state = state.Apply(category.Price, won)
		res.runs++
	}
	return res
}

func report(category *models.Category, cfg scratch.Config, res *result, seed int64) {
	empirical := scratch.RTPState{TotalInvested: res.invested, TotalPaid: res.paid}

	fmt.Printf("category   %s (%s) price %s\n", category.Name, category.Slug, category.Price.StringFixed(2))
	fmt.Printf("seed       %d\n", seed)
	fmt.Printf("runs       %d\n", res.runs)
	fmt.Printf("target RTP %.2f%%\n", cfg.TargetRTP)
	fmt.Printf("RTP        %s%%\n", empirical.Percent().StringFixed(2))
	if res.runs > 0 {
		fmt.Printf("win rate   %.2f%%\n", float64(res.wins)*100/float64(res.runs))
	}

	fmt.Println("bands")
	bands := make([]scratch.Band, 0, len(res.bands))
	for b := range res.bands {
		bands = append(bands, b)
	}
	sort.Slice(bands, func(i, j int) bool { return bands[i] < bands[j] })
	for _, b := range bands {
		fmt.Printf("  %-8s %d\n", b, res.bands[b])
	}

	fmt.Println("prizes")
	names := make([]string, 0, len(res.prizes))
	for name := range res.prizes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return res.prizes[names[i]] > res.prizes[names[j]] })
	for _, name := range names {
		fmt.Printf("  %-12s %d\n", name, res.prizes[name])
	}
}

func getDb(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithPassword(os.Getenv("DB_PASSWORD")),
	))

	return bun.NewDB(sqldb, pgdialect.New())
}
