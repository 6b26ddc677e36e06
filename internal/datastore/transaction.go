package datastore

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"scratchcard/internal/models"
)

func CreateTableTransaction(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Transaction)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "user_profile" ("id")`).
		ForeignKey(`("game_session_id") REFERENCES "game_session" ("id")`).
		Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Transaction)(nil)).Index("index_wallet_transaction_user_created").IfNotExists().Column("user_id", "created_at").Exec(ctx)
	if err != nil {
		return err
	}

	// one purchase and at most one win per session
	_, err = db.NewCreateIndex().Model((*models.Transaction)(nil)).
		Index("index_wallet_transaction_session_type").
		Unique().
		IfNotExists().
		Column("game_session_id", "type").
		Where("game_session_id IS NOT NULL").
		Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Transaction)(nil)).
		Index("index_wallet_transaction_external_id").
		Unique().
		IfNotExists().
		Column("external_id").
		Where("external_id IS NOT NULL").
		Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertTransaction(ctx context.Context, db bun.IDB, txn *models.Transaction) error {
	_, err := db.NewInsert().Model(txn).Returning("*").Exec(ctx)
	return err
}

func GetTransaction(ctx context.Context, db bun.IDB, id string) (*models.Transaction, error) {
	var txn models.Transaction
	err := db.NewSelect().Model(&txn).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func GetTransactionByExternalID(ctx context.Context, db bun.IDB, externalID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := db.NewSelect().Model(&txn).Where("external_id = ?", externalID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func ListTransactions(ctx context.Context, db bun.IDB, filter models.TransactionFilter) ([]models.Transaction, int, error) {
	page := filter.Page.Normalize()
	txns := []models.Transaction{}
	q := db.NewSelect().Model(&txns)
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	count, err := q.Order("created_at DESC").Limit(page.Limit).Offset(page.Offset()).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return txns, count, nil
}

// CountWithdrawalsSince counts pending and completed withdrawals created at or after since.
func CountWithdrawalsSince(ctx context.Context, db bun.IDB, userID string, since time.Time) (int, error) {
	return db.NewSelect().Model((*models.Transaction)(nil)).
		Where("user_id = ?", userID).
		Where("type = ?", models.TransactionTypeWithdraw).
		Where("status IN (?)", bun.In([]string{models.TransactionStatusPending, models.TransactionStatusCompleted})).
		Where("created_at >= ?", since).
		Count(ctx)
}

// SumTransactions totals completed transactions per type. An empty userID covers every user.
func SumTransactions(ctx context.Context, db bun.IDB, userID string, since time.Time) ([]models.TransactionSum, error) {
	sums := []models.TransactionSum{}
	q := db.NewSelect().Model((*models.Transaction)(nil)).
		Column("type").
		ColumnExpr("COALESCE(SUM(amount), 0) AS total").
		ColumnExpr("count(*) AS count").
		Where("status = ?", models.TransactionStatusCompleted)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}

	err := q.Group("type").Order("type ASC").Scan(ctx, &sums)
	if err != nil {
		return nil, err
	}
	return sums, nil
}

func sumByType(sums []models.TransactionSum, kind string) decimal.Decimal {
	for _, s := range sums {
		if s.Type == kind {
			return s.Total
		}
	}
	return decimal.Zero
}

func updateTransactionStatus(ctx context.Context, db bun.IDB, txn *models.Transaction) error {
	_, err := db.NewUpdate().Model((*models.Transaction)(nil)).
		Set("status = ?", txn.Status).
		Set("external_id = ?", txn.ExternalID).
		Set("updated_at = current_timestamp").
		Where("id = ?", txn.ID).
		Exec(ctx)
	return err
}
