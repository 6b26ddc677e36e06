package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"scratchcard/internal/api/handler"
	"scratchcard/internal/datastore"
	"scratchcard/internal/datastore/redis_store"
	"scratchcard/internal/interfaces"
	"scratchcard/internal/pkg/caching"
	"scratchcard/internal/pkg/limiter"
	"scratchcard/internal/pkg/locker"
	"scratchcard/internal/scratch"
	"scratchcard/internal/services"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/hiendaovinh/toolkit/pkg/db"
	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	log "github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
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

// optional settings read from the environment on top of the required ones
var optionalEnvs = []string{
	"API_MODE",
	"API_ORIGINS",
	"IDENTITY_URL",
	"PAYMENT_WEBHOOK_SECRET",
	"SCRATCH_TARGET_RTP",
	"SCRATCH_LOSS_WEIGHT_RATIO",
	"SCRATCH_WIN_VALUE_MULTIPLIER",
	"SCRATCH_FIRST_PLAY_FORCED_WIN",
	"WITHDRAW_MIN_AMOUNT",
	"WITHDRAW_MAX_PER_DAY",
	"TIMEZONE",
	"IDEMPOTENCY_TTL",
	"RATE_LIMIT_PURCHASE_USER",
	"RATE_LIMIT_PURCHASE_IP",
}

func main() {
	vs, err := env.EnvsRequired(
		"JWT_SECRET",
		"DB_DSN",
	)
	if err != nil {
		log.Fatal(err)
	}

	container := NewContainer(vs)

	app := &cli.App{
		Name: "api",
		Commands: []*cli.Command{
			commandServer(container),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandServer(container *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "start the web server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: "0.0.0.0:8080",
				Usage: "serve address",
			},
		},
		Action: func(c *cli.Context) error {
			vs := do.MustInvokeNamed[map[string]string](container, "envs")
			router, err := handler.New(&handler.Config{
				Container: container,
				Mode:      vs["API_MODE"],
				Origins:   strings.Split(vs["API_ORIGINS"], ","),
			})
			if err != nil {
				log.WithError(err).Error("router setup failed")
				return err
			}

			srv := &http.Server{
				Addr:    c.String("addr"),
				Handler: router,
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errWg, errCtx := errgroup.WithContext(ctx)

			errWg.Go(func() error {
				log.Infof("ListenAndServe: %s (%s)", c.String("addr"), vs["API_MODE"])
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					return err
				}
				return nil
			})

			errWg.Go(func() error {
				<-errCtx.Done()
				return srv.Shutdown(context.TODO())
			})

			err = errWg.Wait()
			if shutdownErr := container.Shutdown(); shutdownErr != nil {
				log.WithError(shutdownErr).Warn("container shutdown")
			}
			return err
		},
	}
}

func NewContainer(vs map[string]string) *do.Injector {
	injector := do.New()
	for _, k := range optionalEnvs {
		vs[k] = os.Getenv(k)
	}

	if vs["API_MODE"] == "" {
		vs["API_MODE"] = services.SERVER_MODE_PRODUCTION
	}
	if vs["API_ORIGINS"] == "" {
		vs["API_ORIGINS"] = "*"
	}

	do.ProvideNamedValue(injector, "envs", vs)

	do.Provide(injector, func(i *do.Injector) (*bun.DB, error) {
		sqldb := sql.OpenDB(pgdriver.NewConnector(
			pgdriver.WithDSN(os.Getenv("DB_DSN")),
			pgdriver.WithPassword(os.Getenv("DB_PASSWORD")),
		))

		db := bun.NewDB(sqldb, pgdialect.New())
		return db, nil
	})

	do.ProvideNamed(injector, "db-readonly", func(i *do.Injector) (*bun.DB, error) {
		dsn := os.Getenv("DB_DSN_READONLY")
		if dsn == "" {
			return do.Invoke[*bun.DB](i)
		}

		sqldb := sql.OpenDB(pgdriver.NewConnector(
			pgdriver.WithDSN(dsn),
			pgdriver.WithPassword(os.Getenv("DB_PASSWORD_READONLY")),
		))

		db := bun.NewDB(sqldb, pgdialect.New())
		return db, nil
	})

	do.ProvideNamed(injector, "redis-db", redisProvider("CLUSTER_REDIS_DB", "REDIS_DB"))
	do.ProvideNamed(injector, "redis-cache", redisProvider("CLUSTER_REDIS_CACHE", "REDIS_CACHE"))
	do.ProvideNamed(injector, "redis-limiter", redisProvider("CLUSTER_REDIS_LIMITER", "REDIS_LIMITER"))
	do.ProvideNamed(injector, "redis-mutex", redisProvider("CLUSTER_REDIS_MUTEX", "REDIS_MUTEX"))

	do.ProvideNamed(injector, "redis-cache-readonly", func(i *do.Injector) (redis.UniversalClient, error) {
		var clusterOpts *redis.ClusterOptions
		var err error
		clusterCacheRedisReadOnlyURL := os.Getenv("CLUSTER_REDIS_CACHE_READONLY")
		if clusterCacheRedisReadOnlyURL != "" {
			clusterOpts, err = redis.ParseClusterURL(clusterCacheRedisReadOnlyURL)
		} else {
			clusterCacheRedisURL := os.Getenv("CLUSTER_REDIS_CACHE")
			if clusterCacheRedisURL != "" {
				clusterOpts, err = redis.ParseClusterURL(clusterCacheRedisURL)
			}
		}

		if err != nil {
			return nil, err
		}
		if clusterOpts != nil {
			clusterOpts.ReadOnly = true
			return redis.NewClusterClient(clusterOpts), nil
		}

		url := os.Getenv("REDIS_CACHE_READONLY")
		if url == "" {
			return do.InvokeNamed[redis.UniversalClient](i, "redis-cache")
		}
		return db.InitRedis(&db.RedisConfig{URL: url})
	})

	do.Provide(injector, func(i *do.Injector) (caching.Cache, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-cache")
		if err != nil {
			return nil, err
		}

		return caching.NewCacheRedis(dbRedis, false)
	})

	do.Provide(injector, func(i *do.Injector) (caching.ReadOnlyCache, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-cache-readonly")
		if err != nil {
			return nil, err
		}

		return caching.NewCacheRedis(dbRedis, false)
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.Limiter, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-limiter")
		if err != nil {
			return nil, err
		}

		return limiter.NewLimiter(dbRedis)
	})

	do.Provide(injector, func(i *do.Injector) (*redsync.Redsync, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-mutex")
		if err != nil {
			return nil, err
		}

		pool := goredis.NewPool(dbRedis)
		rs := redsync.New(pool)
		return rs, nil
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.Locker, error) {
		rs, err := do.Invoke[*redsync.Redsync](i)
		if err != nil {
			return nil, err
		}

		return locker.NewRedsync(rs), nil
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.IdempotencyStore, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-db")
		if err != nil {
			return nil, err
		}

		return redis_store.NewIdempotencyStore(dbRedis), nil
	})

	do.Provide(injector, func(i *do.Injector) (*datastore.Store, error) {
		postgresDB, err := do.Invoke[*bun.DB](i)
		if err != nil {
			return nil, err
		}

		readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](i, "db-readonly")
		if err != nil {
			return nil, err
		}

		return datastore.NewStore(postgresDB, readonlyPostgresDB), nil
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.CatalogStore, error) {
		return do.Invoke[*datastore.Store](i)
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.LedgerStore, error) {
		return do.Invoke[*datastore.Store](i)
	})

	do.Provide(injector, func(i *do.Injector) (*services.Settings, error) {
		return services.LoadSettings(vs)
	})

	do.Provide(injector, func(i *do.Injector) (*scratch.Engine, error) {
		settings, err := do.Invoke[*services.Settings](i)
		if err != nil {
			return nil, err
		}

		return scratch.NewEngine(settings.Engine, nil), nil
	})

	do.Provide(injector, func(i *do.Injector) (*services.Authentication, error) {
		return services.NewAuthentication(vs["JWT_SECRET"], vs["IDENTITY_URL"])
	})

	do.Provide(injector, services.NewServiceConfig)
	do.Provide(injector, services.NewServiceUser)
	do.Provide(injector, services.NewServiceCatalog)
	do.Provide(injector, services.NewServicePurchase)
	do.Provide(injector, services.NewServiceGame)
	do.Provide(injector, services.NewServiceWallet)
	do.Provide(injector, services.NewServiceAdmin)
	do.Provide(injector, services.NewServiceReconcile)

	return injector
}

func redisProvider(clusterKey, urlKey string) do.Provider[redis.UniversalClient] {
	return func(i *do.Injector) (redis.UniversalClient, error) {
		clusterURL := os.Getenv(clusterKey)
		if clusterURL != "" {
			clusterOpts, err := redis.ParseClusterURL(clusterURL)
			if err != nil {
				return nil, err
			}
			return redis.NewClusterClient(clusterOpts), nil
		}

		return db.InitRedis(&db.RedisConfig{
			URL: os.Getenv(urlKey),
		})
	}
}
