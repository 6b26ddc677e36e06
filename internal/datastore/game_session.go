package datastore

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"scratchcard/internal/models"
)

func CreateTableGameSession(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.GameSession)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "user_profile" ("id")`).
		ForeignKey(`("category_id") REFERENCES "scratch_category" ("id")`).
		Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.GameSession)(nil)).Index("index_game_session_user_created").IfNotExists().Column("user_id", "created_at").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.GameSession)(nil)).Index("index_game_session_category").IfNotExists().Column("category_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertGameSession(ctx context.Context, db bun.IDB, session *models.GameSession) error {
	_, err := db.NewInsert().Model(session).Returning("*").Exec(ctx)
	return err
}

func GetGameSession(ctx context.Context, db bun.IDB, id string) (*models.GameSession, error) {
	var session models.GameSession
	err := db.NewSelect().Model(&session).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func ListGameSessions(ctx context.Context, db bun.IDB, filter models.GameSessionFilter) ([]models.GameSession, int, error) {
	page := filter.Page.Normalize()
	sessions := []models.GameSession{}
	q := db.NewSelect().Model(&sessions)
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.CategoryID > 0 {
		q = q.Where("category_id = ?", filter.CategoryID)
	}
	if filter.OnlyWins {
		q = q.Where("amount_won > 0")
	}

	count, err := q.Order("created_at DESC").Limit(page.Limit).Offset(page.Offset()).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return sessions, count, nil
}

// CompleteGameSession stamps completed_at once. Later calls leave the first stamp.
func CompleteGameSession(ctx context.Context, db bun.IDB, id string, at time.Time) error {
	_, err := db.NewUpdate().Model((*models.GameSession)(nil)).
		Set("completed_at = ?", at).
		Where("id = ?", id).
		Where("completed_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}

	exists, err := db.NewSelect().Model((*models.GameSession)(nil)).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return sql.ErrNoRows
	}
	return nil
}

// ListUnpaidWins finds winning sessions that never got their win transaction.
func ListUnpaidWins(ctx context.Context, db bun.IDB, limit int) ([]models.GameSession, error) {
	sessions := []models.GameSession{}
	err := db.NewSelect().Model(&sessions).
		Where("amount_won > 0").
		Where("prize_id IS NOT NULL").
		Where("NOT EXISTS (SELECT 1 FROM wallet_transaction AS t WHERE t.game_session_id = game_session.id AND t.type = ?)", models.TransactionTypeWin).
		Order("created_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

type gameTotals struct {
	TotalGames   int             `bun:"total_games"`
	TotalWins    int             `bun:"total_wins"`
	GamesRevenue decimal.Decimal `bun:"games_revenue"`
	GamesPayouts decimal.Decimal `bun:"games_payouts"`
}

func sumGames(ctx context.Context, db bun.IDB) (*gameTotals, error) {
	var totals gameTotals
	err := db.NewSelect().Model((*models.GameSession)(nil)).
		ColumnExpr("count(*) AS total_games").
		ColumnExpr("count(*) FILTER (WHERE amount_won > 0) AS total_wins").
		ColumnExpr("COALESCE(SUM(amount_spent), 0) AS games_revenue").
		ColumnExpr("COALESCE(SUM(amount_won), 0) AS games_payouts").
		Scan(ctx, &totals)
	if err != nil {
		return nil, err
	}
	return &totals, nil
}
