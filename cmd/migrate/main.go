package main

import (
	"context"
	"database/sql"
	"os"

	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"

	"scratchcard/internal/datastore"
	"scratchcard/internal/models"
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
		Name: "migrate",
		Before: func(c *cli.Context) error {
			_, err := env.EnvsRequired("DB_DSN")
			return err
		},
		Commands: []*cli.Command{
			commandMigration(),
			commandConfigMigration(),
			commandSeedCatalog(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandMigration() *cli.Command {
	return &cli.Command{
		Name: "migrate",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				return err
			}
			defer db.Close()

			steps := []struct {
				name string
				run  func(context.Context, *bun.DB) error
			}{
				{"config", datastore.CreateTableConfig},
				{"user", datastore.CreateTableUser},
				{"scratch_category", datastore.CreateTableCategory},
				{"scratch_prize", datastore.CreateTablePrize},
				{"category_rtp", datastore.CreateTableCategoryRTP},
				{"game_session", datastore.CreateTableGameSession},
				{"transaction", datastore.CreateTableTransaction},
			}
			for _, step := range steps {
				if err := step.run(ctx, db); err != nil {
					log.WithError(err).WithField("table", step.name).Error("create table failed")
					return err
				}
				log.WithField("table", step.name).Info("table ready")
			}

			log.Info("Migration success")
			return nil
		},
	}
}

// insert default configs to db
func commandConfigMigration() *cli.Command {
	return &cli.Command{
		Name:        "migrate-config",
		Description: "Insert default configs to db",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				return err
			}
			defer db.Close()

			configs := []models.Config{
				{Key: services.CONFIG_SERVER_MODE, Value: services.SERVER_MODE_PRODUCTION},
				{Key: services.CONFIG_CRONJOB_RECONCILE, Value: "@every 5m"},
				{Key: services.CONFIG_CRONJOB_LEDGER_AUDIT, Value: "@every 1h"},
				{Key: services.CONFIG_RECONCILE_BATCH_SIZE, Value: "100"},
			}

			for _, config := range configs {
				if err := datastore.InsertConfig(ctx, db, config); err != nil {
					log.WithError(err).WithField("key", config.Key).Warn("config not inserted")
				}
			}

			log.Info("Migration success")
			return nil
		},
	}
}

func getDb() (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(os.Getenv("DB_DSN")),
		pgdriver.WithPassword(os.Getenv("DB_PASSWORD")),
	))

	db := bun.NewDB(sqldb, pgdialect.New())
	return db, nil
}
