package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"scratchcard/internal/datastore"
	"scratchcard/internal/interfaces"
	"scratchcard/internal/pkg/caching"
	"scratchcard/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/db"
	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/samber/do"
	log "github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"
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

type CronJob interface {
	Start(cronRunner *cron.Cron) error
}

func main() {
	app := &cli.App{
		Name: "cronjob",
		Commands: []*cli.Command{
			commandCronjob(),
			commandRunOnce(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandCronjob() *cli.Command {
	return &cli.Command{
		Name: "cron",
		Action: func(c *cli.Context) error {
			container, err := newContainer()
			if err != nil {
				return err
			}

			jobs, err := newJobs(container)
			if err != nil {
				return err
			}

			cronRunner := cron.New(cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})))
			for _, job := range jobs {
				if err := job.Start(cronRunner); err != nil {
					return err
				}
			}

			log.Info("Start cronjob")
			cronRunner.Start()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			<-cronRunner.Stop().Done()
			log.Info("Cronjob stopped")
			return nil
		},
	}
}

// run-once executes the jobs immediately, for operators fixing a backlog by hand.
func commandRunOnce() *cli.Command {
	return &cli.Command{
		Name: "run-once",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "batch size, 0 uses the configured one",
			},
		},
		Action: func(c *cli.Context) error {
			container, err := newContainer()
			if err != nil {
				return err
			}

			serviceReconcile, err := do.Invoke[*services.ServiceReconcile](container)
			if err != nil {
				return err
			}

			report, err := serviceReconcile.ReconcileWins(c.Context, c.Int("limit"))
			if err != nil {
				return err
			}
			log.WithFields(log.Fields{
				"scanned":  report.Scanned,
				"credited": report.Credited,
				"failed":   report.Failed,
			}).Info("reconcile finished")

			mismatches, err := serviceReconcile.AuditLedger(c.Context, 0)
			if err != nil {
				return err
			}
			log.WithField("mismatches", len(mismatches)).Info("ledger audit finished")
			return nil
		},
	}
}

func newContainer() (*do.Injector, error) {
	if _, err := env.EnvsRequired("DB_DSN"); err != nil {
		return nil, err
	}

	injector := do.New()

	do.Provide(injector, func(i *do.Injector) (*bun.DB, error) {
		return getDb()
	})

	do.ProvideNamed(injector, "db-readonly", func(i *do.Injector) (*bun.DB, error) {
		return do.Invoke[*bun.DB](i)
	})

	do.Provide(injector, func(i *do.Injector) (caching.Cache, error) {
		dbRedis, err := getRedis()
		if err != nil {
			return nil, err
		}
		return caching.NewCacheRedis(dbRedis, false)
	})

	do.Provide(injector, func(i *do.Injector) (caching.ReadOnlyCache, error) {
		return do.Invoke[caching.Cache](i)
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.LedgerStore, error) {
		postgresDB, err := do.Invoke[*bun.DB](i)
		if err != nil {
			return nil, err
		}
		return datastore.NewStore(postgresDB, nil), nil
	})

	do.Provide(injector, services.NewServiceConfig)
	do.Provide(injector, services.NewServiceReconcile)

	return injector, nil
}

func getDb() (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(os.Getenv("DB_DSN")),
		pgdriver.WithPassword(os.Getenv("DB_PASSWORD")),
	))

	db := bun.NewDB(sqldb, pgdialect.New())
	return db, nil
}

func getRedis() (redis.UniversalClient, error) {
	clusterRedisCache := os.Getenv("CLUSTER_REDIS_CACHE")
	if clusterRedisCache != "" {
		clusterOpts, err := redis.ParseClusterURL(clusterRedisCache)
		if err != nil {
			return nil, err
		}
		return redis.NewClusterClient(clusterOpts), nil
	}

	return db.InitRedis(&db.RedisConfig{
		URL: os.Getenv("REDIS_CACHE"),
	})
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(keysAndValues []interface{}) log.Fields {
	f := log.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if k, ok := keysAndValues[i].(string); ok {
			f[k] = keysAndValues[i+1]
		}
	}
	return f
}
