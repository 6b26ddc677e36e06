package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"scratchcard/internal/datastore"
	"scratchcard/internal/models"
)

type seedPrize struct {
	Name     string          `json:"name"`
	ImageURL string          `json:"image_url"`
	Value    decimal.Decimal `json:"value"`
	Weight   int             `json:"probability_weight"`
	Type     string          `json:"type"`
}

type seedCategory struct {
	Name          string          `json:"name"`
	Slug          string          `json:"slug"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	MaxReward     decimal.Decimal `json:"max_reward"`
	RTPPercentage int             `json:"rtp_percentage"`
	Prizes        []seedPrize     `json:"prizes"`
}

func cash(name string, value int64, weight int) seedPrize {
	return seedPrize{Name: name, Value: decimal.NewFromInt(value), Weight: weight, Type: models.PrizeTypeCash}
}

var defaultCatalog = []seedCategory{
	{
		Name:          "Raspa Green",
		Slug:          "raspa-green",
		Description:   "Entry card, small prizes often",
		Price:         decimal.NewFromInt(1),
		MaxReward:     decimal.NewFromInt(100),
		RTPPercentage: 85,
		Prizes: []seedPrize{
			cash("R$ 1", 1, 40),
			cash("R$ 2", 2, 25),
			cash("R$ 5", 5, 10),
			cash("R$ 10", 10, 4),
			cash("R$ 100", 100, 1),
		},
	},
	{
		Name:          "Raspa Gold",
		Slug:          "raspa-gold",
		Description:   "Bigger card, bigger prizes",
		Price:         decimal.NewFromInt(5),
		MaxReward:     decimal.NewFromInt(1000),
		RTPPercentage: 85,
		Prizes: []seedPrize{
			cash("R$ 5", 5, 40),
			cash("R$ 10", 10, 20),
			cash("R$ 25", 25, 8),
			cash("R$ 50", 50, 3),
			cash("R$ 1.000", 1000, 1),
		},
	},
}

func commandSeedCatalog() *cli.Command {
	return &cli.Command{
		Name:        "seed-catalog",
		Description: "Insert categories and prizes, skipping slugs that already exist",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "input",
				Usage: "json file with a list of categories, the built-in catalog when empty",
			},
		},
		Action: func(c *cli.Context) error {
			catalog := defaultCatalog
			if path := c.String("input"); path != "" {
				b, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				catalog = nil
				if err := json.Unmarshal(b, &catalog); err != nil {
					return err
				}
			}

			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				return err
			}
			defer db.Close()

			for _, seed := range catalog {
				logger := log.WithField("category", seed.Slug)

				_, err := datastore.GetCategoryBySlug(ctx, db, seed.Slug)
				if err == nil {
					logger.Info("category exists, skipped")
					continue
				}
				if !errors.Is(err, sql.ErrNoRows) {
					return err
				}

				category := &models.Category{
					Name:          seed.Name,
					Slug:          seed.Slug,
					Description:   seed.Description,
					Price:         seed.Price,
					MaxReward:     seed.MaxReward,
					RTPPercentage: seed.RTPPercentage,
					Active:        true,
				}
				if category.RTPPercentage == 0 {
					category.RTPPercentage = 85
				}
				if err := datastore.InsertCategory(ctx, db, category); err != nil {
					return err
				}

				for _, p := range seed.Prizes {
					if !p.Value.IsPositive() || p.Weight <= 0 {
						logger.WithField("prize", p.Name).Warn("prize without value or weight, skipped")
						continue
					}
					prize := &models.Prize{
						CategoryID:        category.ID,
						Name:              p.Name,
						ImageURL:          p.ImageURL,
						Value:             p.Value,
						ProbabilityWeight: p.Weight,
						Type:              p.Type,
						Active:            true,
					}
					if prize.Type == "" {
						prize.Type = models.PrizeTypeCash
					}
					if err := datastore.InsertPrize(ctx, db, prize); err != nil {
						return err
					}
				}
				logger.WithField("prizes", len(seed.Prizes)).Info("category seeded")
			}

			return nil
		},
	}
}
