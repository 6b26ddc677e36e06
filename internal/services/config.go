package services

import (
	"context"
	"strconv"

	"scratchcard/internal/datastore"
	"scratchcard/internal/models"
	"scratchcard/internal/pkg/caching"

	"github.com/samber/do"
	"github.com/uptrace/bun"
)

// ServiceConfig reads runtime tunables from the config table through the cache.
type ServiceConfig struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache
}

func NewServiceConfig(container *do.Injector) (*ServiceConfig, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	readOnlyCache, err := do.Invoke[caching.ReadOnlyCache](container)
	if err != nil {
		return nil, err
	}

	return &ServiceConfig{container, postgresDB, readonlyPostgresDB, cache, readOnlyCache}, nil
}

func (service *ServiceConfig) GetStringConfig(ctx context.Context, key string, defaultValue string) (string, error) {
	callback := func() (string, error) {
		config, err := datastore.GetConfigByKey(ctx, service.readonlyPostgresDB, key)
		if err != nil {
			return defaultValue, err
		}
		return config.Value, nil
	}

	value, err := caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyConfig(key), CACHE_TTL_5_MINS, callback)
	if err != nil {
		return defaultValue, err
	}

	return value, nil
}

func (service *ServiceConfig) GetIntConfig(ctx context.Context, key string, defaultValue int) (int, error) {
	value, err := service.GetStringConfig(ctx, key, strconv.Itoa(defaultValue))
	if err != nil {
		return defaultValue, err
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, err
	}

	return intValue, nil
}

func (service *ServiceConfig) ListConfigs(ctx context.Context) ([]models.Config, error) {
	configs, err := datastore.ListConfigs(ctx, service.readonlyPostgresDB)
	if err != nil {
		return nil, storageFailure("list configs", err, nil)
	}
	return configs, nil
}

func (service *ServiceConfig) SetConfig(ctx context.Context, key string, value string) (*models.Config, error) {
	if key == "" {
		return nil, invalid("config key is required")
	}

	config, err := datastore.UpsertConfig(ctx, service.postgresDB, &models.Config{Key: key, Value: value})
	if err != nil {
		return nil, storageFailure("set config", err, nil)
	}

	// nolint:errcheck
	service.cache.Delete(ctx, DBKeyConfig(key))
	return config, nil
}
