package datastore

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"

	"scratchcard/internal/models"
)

func CreateTablePrize(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Prize)(nil)).
		IfNotExists().
		ForeignKey(`("category_id") REFERENCES "scratch_category" ("id")`).
		Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Prize)(nil)).Index("index_scratch_prize_category_active").IfNotExists().Column("category_id", "active").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// ListPrizes returns a category's prizes, cheapest first.
func ListPrizes(ctx context.Context, db bun.IDB, categoryID int64, onlyActive bool) ([]models.Prize, error) {
	prizes := []models.Prize{}
	q := db.NewSelect().Model(&prizes).Where("category_id = ?", categoryID)
	if onlyActive {
		q = q.Where("active = ?", true)
	}
	err := q.Order("value ASC", "id ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return prizes, nil
}

func GetPrize(ctx context.Context, db bun.IDB, id int64) (*models.Prize, error) {
	var prize models.Prize
	err := db.NewSelect().Model(&prize).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &prize, nil
}

func InsertPrize(ctx context.Context, db bun.IDB, prize *models.Prize) error {
	_, err := db.NewInsert().Model(prize).Returning("*").Exec(ctx)
	return err
}

func UpdatePrize(ctx context.Context, db bun.IDB, id int64, u *models.PrizeUpdate) (*models.Prize, error) {
	q := db.NewUpdate().Model((*models.Prize)(nil)).
		Set("updated_at = current_timestamp").
		Where("id = ?", id)

	if u.Name != nil {
		q = q.Set("name = ?", *u.Name)
	}
	if u.ImageURL != nil {
		q = q.Set("image_url = ?", *u.ImageURL)
	}
	if u.Value != nil {
		q = q.Set("value = ?", *u.Value)
	}
	if u.ProbabilityWeight != nil {
		q = q.Set("probability_weight = ?", *u.ProbabilityWeight)
	}
	if u.Type != nil {
		q = q.Set("type = ?", *u.Type)
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

	return GetPrize(ctx, db, id)
}
