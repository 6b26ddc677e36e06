package datastore

import (
	"context"

	"github.com/uptrace/bun"

	"scratchcard/internal/models"
)

func CreateTableConfig(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Config)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

// InsertConfig keeps an existing value untouched.
func InsertConfig(ctx context.Context, db bun.IDB, config models.Config) error {
	_, err := db.NewInsert().Model(&config).On("CONFLICT (key) DO NOTHING").Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

func GetConfigByKey(ctx context.Context, db bun.IDB, key string) (*models.Config, error) {
	var config models.Config
	err := db.NewSelect().Model(&config).Where("key = ?", key).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func ListConfigs(ctx context.Context, db bun.IDB) ([]models.Config, error) {
	configs := []models.Config{}
	err := db.NewSelect().Model(&configs).Order("key ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return configs, nil
}

func UpsertConfig(ctx context.Context, db bun.IDB, config *models.Config) (*models.Config, error) {
	_, err := db.NewInsert().Model(config).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return config, nil
}
