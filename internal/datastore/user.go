package datastore

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"scratchcard/internal/interfaces"
	"scratchcard/internal/models"
)

func CreateTableUser(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.User)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewRaw(`
		alter table user_profile
			drop constraint if exists user_profile_wallet_balance_check,
			add constraint user_profile_wallet_balance_check check (wallet_balance >= 0);`).Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func FindOrCreateUser(ctx context.Context, db bun.IDB, user *models.User) (*models.User, error) {
	_, err := db.NewInsert().Model(user).On("CONFLICT (id) DO NOTHING").Exec(ctx)
	if err != nil {
		return nil, err
	}

	return GetUserByID(ctx, db, user.ID)
}

func GetUserByID(ctx context.Context, db bun.IDB, id string) (*models.User, error) {
	var user models.User
	err := db.NewSelect().Model(&user).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func ListUsers(ctx context.Context, db bun.IDB, page models.Page) ([]models.User, int, error) {
	page = page.Normalize()
	users := []models.User{}
	count, err := db.NewSelect().Model(&users).
		Order("created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return users, count, nil
}

func CountUsers(ctx context.Context, db bun.IDB) (int, error) {
	return db.NewSelect().Model((*models.User)(nil)).Count(ctx)
}

// debitBalance takes amount off the wallet only when the balance covers it.
func debitBalance(ctx context.Context, db bun.IDB, userID string, amount decimal.Decimal, spent bool) error {
	q := db.NewUpdate().Model((*models.User)(nil)).
		Set("wallet_balance = wallet_balance - ?", amount).
		Set("updated_at = current_timestamp").
		Where("id = ?", userID).
		Where("wallet_balance >= ?", amount)
	if spent {
		q = q.Set("total_spent = total_spent + ?", amount)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return interfaces.ErrBalanceTooLow
	}
	return nil
}

func creditBalance(ctx context.Context, db bun.IDB, userID string, amount decimal.Decimal, won bool) error {
	q := db.NewUpdate().Model((*models.User)(nil)).
		Set("wallet_balance = wallet_balance + ?", amount).
		Set("updated_at = current_timestamp").
		Where("id = ?", userID)
	if won {
		q = q.Set("total_won = total_won + ?", amount)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Pending withdrawals count as debits: the amount is reserved from the wallet at request time.
const ledgerMismatchQuery = `
	SELECT u.id AS user_id, u.wallet_balance, COALESCE(l.balance, 0) AS ledger_balance
	FROM user_profile AS u
	LEFT JOIN (
		SELECT user_id, SUM(CASE WHEN type IN ('deposit', 'win') THEN amount ELSE -amount END) AS balance
		FROM wallet_transaction
		WHERE status = 'completed' OR (type = 'withdraw' AND status = 'pending')
		GROUP BY user_id
	) AS l ON l.user_id = u.id
	WHERE u.wallet_balance <> COALESCE(l.balance, 0)
	ORDER BY u.id
	LIMIT ?`

func ListLedgerMismatches(ctx context.Context, db bun.IDB, limit int) ([]models.LedgerMismatch, error) {
	rows := []models.LedgerMismatch{}
	err := db.NewRaw(ledgerMismatchQuery, limit).Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
