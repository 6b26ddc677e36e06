package datastore

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"

	"scratchcard/internal/models"
)

func CreateTableCategory(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Category)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Category)(nil)).Index("index_scratch_category_active_price").IfNotExists().Column("active", "price").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func ListCategories(ctx context.Context, db bun.IDB, onlyActive bool) ([]models.Category, error) {
	categories := []models.Category{}
	q := db.NewSelect().Model(&categories)
	if onlyActive {
		q = q.Where("active = ?", true)
	}
	err := q.Order("price ASC", "id ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func GetCategoryBySlug(ctx context.Context, db bun.IDB, slug string) (*models.Category, error) {
	var category models.Category
	err := db.NewSelect().Model(&category).Where("slug = ?", slug).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func GetCategoryByID(ctx context.Context, db bun.IDB, id int64) (*models.Category, error) {
	var category models.Category
	err := db.NewSelect().Model(&category).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func InsertCategory(ctx context.Context, db bun.IDB, category *models.Category) error {
	_, err := db.NewInsert().Model(category).Returning("*").Exec(ctx)
	return err
}

func UpdateCategory(ctx context.Context, db bun.IDB, id int64, u *models.CategoryUpdate) (*models.Category, error) {
	q := db.NewUpdate().Model((*models.Category)(nil)).
		Set("updated_at = current_timestamp").
		Where("id = ?", id)

	if u.Name != nil {
		q = q.Set("name = ?", *u.Name)
	}
	if u.Description != nil {
		q = q.Set("description = ?", *u.Description)
	}
	if u.Price != nil {
		q = q.Set("price = ?", *u.Price)
	}
	if u.MaxReward != nil {
		q = q.Set("max_reward = ?", *u.MaxReward)
	}
	if u.RTPPercentage != nil {
		q = q.Set("rtp_percentage = ?", *u.RTPPercentage)
	}
	if u.BannerURL != nil {
		q = q.Set("banner_url = ?", *u.BannerURL)
	}
	if u.Active != nil {
		q = q.Set("active = ?", *u.Active)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, sql.ErrNoRows
	}

	return GetCategoryByID(ctx, db, id)
}

func CountGamesByCategory(ctx context.Context, db bun.IDB) (map[int64]int, error) {
	var rows []struct {
		CategoryID int64 `bun:"category_id"`
		Total      int   `bun:"total"`
	}
	err := db.NewSelect().Model((*models.GameSession)(nil)).
		Column("category_id").
		ColumnExpr("count(*) AS total").
		Group("category_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	counts := make(map[int64]int, len(rows))
	for _, row := range rows {
		counts[row.CategoryID] = row.Total
	}
	return counts, nil
}

func GetCategoryStats(ctx context.Context, db bun.IDB, categoryID int64) (*models.CategoryStats, error) {
	var stats models.CategoryStats
	err := db.NewSelect().Model((*models.GameSession)(nil)).
		ColumnExpr("count(*) AS total_games").
		ColumnExpr("count(*) FILTER (WHERE amount_won > 0) AS total_wins").
		Where("category_id = ?", categoryID).
		Scan(ctx, &stats)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func CountActiveCategories(ctx context.Context, db bun.IDB) (int, error) {
	return db.NewSelect().Model((*models.Category)(nil)).Where("active = ?", true).Count(ctx)
}
