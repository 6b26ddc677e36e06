package datastore

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"scratchcard/internal/models"
)

const rtpRecomputeExpr = `current_rtp = CASE
	WHEN category_rtp.total_invested + EXCLUDED.total_invested > 0
	THEN ROUND((category_rtp.total_paid + EXCLUDED.total_paid) * 100 / (category_rtp.total_invested + EXCLUDED.total_invested), 2)
	ELSE 0 END`

func CreateTableCategoryRTP(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.CategoryRTP)(nil)).
		IfNotExists().
		ForeignKey(`("category_id") REFERENCES "scratch_category" ("id")`).
		Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

// GetOrCreateRTP returns the category's RTP row, inserting a zeroed one first if needed.
func GetOrCreateRTP(ctx context.Context, db bun.IDB, categoryID int64) (*models.CategoryRTP, error) {
	row := &models.CategoryRTP{CategoryID: categoryID}
	_, err := db.NewInsert().Model(row).On("CONFLICT (category_id) DO NOTHING").Exec(ctx)
	if err != nil {
		return nil, err
	}

	var rtp models.CategoryRTP
	err = db.NewSelect().Model(&rtp).Where("category_id = ?", categoryID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &rtp, nil
}

// incrementRTP adds to the counters in place so concurrent purchases never overwrite each other.
func incrementRTP(ctx context.Context, db bun.IDB, categoryID int64, invested, paid decimal.Decimal) error {
	row := &models.CategoryRTP{
		CategoryID:    categoryID,
		TotalInvested: invested,
		TotalPaid:     paid,
	}
	if invested.IsPositive() {
		row.CurrentRTP = paid.Mul(decimal.NewFromInt(100)).DivRound(invested, 2)
	}

	_, err := db.NewInsert().Model(row).
		On("CONFLICT (category_id) DO UPDATE").
		Set("total_invested = category_rtp.total_invested + EXCLUDED.total_invested").
		Set("total_paid = category_rtp.total_paid + EXCLUDED.total_paid").
		Set(rtpRecomputeExpr).
		Set("updated_at = current_timestamp").
		Exec(ctx)
	return err
}
