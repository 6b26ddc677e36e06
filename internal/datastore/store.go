package datastore

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"scratchcard/internal/interfaces"
	"scratchcard/internal/models"
)

// Store is the postgres implementation of the catalog and ledger stores.
// Reads that tolerate replica lag go to readonly.
type Store struct {
	db       *bun.DB
	readonly *bun.DB
}

var (
	_ interfaces.CatalogStore = (*Store)(nil)
	_ interfaces.LedgerStore  = (*Store)(nil)
)

func NewStore(db *bun.DB, readonly *bun.DB) *Store {
	if readonly == nil {
		readonly = db
	}
	return &Store{db: db, readonly: readonly}
}

func (s *Store) ListCategories(ctx context.Context, onlyActive bool) ([]models.Category, error) {
	return ListCategories(ctx, s.readonly, onlyActive)
}

func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return GetCategoryBySlug(ctx, s.db, slug)
}

func (s *Store) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	return GetCategoryByID(ctx, s.db, id)
}

func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	return InsertCategory(ctx, s.db, category)
}

func (s *Store) UpdateCategory(ctx context.Context, id int64, update *models.CategoryUpdate) (*models.Category, error) {
	return UpdateCategory(ctx, s.db, id, update)
}

func (s *Store) CountGamesByCategory(ctx context.Context) (map[int64]int, error) {
	return CountGamesByCategory(ctx, s.readonly)
}

func (s *Store) ListPrizes(ctx context.Context, categoryID int64, onlyActive bool) ([]models.Prize, error) {
	return ListPrizes(ctx, s.db, categoryID, onlyActive)
}

func (s *Store) GetPrize(ctx context.Context, id int64) (*models.Prize, error) {
	return GetPrize(ctx, s.db, id)
}

func (s *Store) CreatePrize(ctx context.Context, prize *models.Prize) error {
	return InsertPrize(ctx, s.db, prize)
}

func (s *Store) UpdatePrize(ctx context.Context, id int64, update *models.PrizeUpdate) (*models.Prize, error) {
	return UpdatePrize(ctx, s.db, id, update)
}

func (s *Store) GetOrCreateRTP(ctx context.Context, categoryID int64) (*models.CategoryRTP, error) {
	return GetOrCreateRTP(ctx, s.db, categoryID)
}

func (s *Store) GetCategoryStats(ctx context.Context, categoryID int64) (*models.CategoryStats, error) {
	return GetCategoryStats(ctx, s.readonly, categoryID)
}

func (s *Store) FindOrCreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	return FindOrCreateUser(ctx, s.db, user)
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	return GetUserByID(ctx, s.db, id)
}

func (s *Store) ListUsers(ctx context.Context, page models.Page) ([]models.User, int, error) {
	return ListUsers(ctx, s.readonly, page)
}

func (s *Store) RecordPurchase(ctx context.Context, session *models.GameSession, purchase *models.Transaction) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := debitBalance(ctx, tx, purchase.UserID, purchase.Amount, true); err != nil {
			return err
		}

		if err := incrementRTP(ctx, tx, session.CategoryID, session.AmountSpent, decimal.Zero); err != nil {
			return err
		}

		if err := InsertGameSession(ctx, tx, session); err != nil {
			return err
		}

		return InsertTransaction(ctx, tx, purchase)
	})
}

func (s *Store) RecordWin(ctx context.Context, categoryID int64, win *models.Transaction) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := InsertTransaction(ctx, tx, win); err != nil {
			return err
		}

		if err := creditBalance(ctx, tx, win.UserID, win.Amount, true); err != nil {
			return err
		}

		return incrementRTP(ctx, tx, categoryID, decimal.Zero, win.Amount)
	})
}

func (s *Store) GetGameSession(ctx context.Context, id string) (*models.GameSession, error) {
	return GetGameSession(ctx, s.db, id)
}

func (s *Store) ListGameSessions(ctx context.Context, filter models.GameSessionFilter) ([]models.GameSession, int, error) {
	return ListGameSessions(ctx, s.readonly, filter)
}

func (s *Store) CompleteGameSession(ctx context.Context, id string, at time.Time) error {
	return CompleteGameSession(ctx, s.db, id, at)
}

func (s *Store) ListUnpaidWins(ctx context.Context, limit int) ([]models.GameSession, error) {
	return ListUnpaidWins(ctx, s.db, limit)
}

func (s *Store) Credit(ctx context.Context, txn *models.Transaction) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := InsertTransaction(ctx, tx, txn); err != nil {
			return err
		}
		return creditBalance(ctx, tx, txn.UserID, txn.Amount, false)
	})
}

func (s *Store) ReserveWithdrawal(ctx context.Context, txn *models.Transaction) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := debitBalance(ctx, tx, txn.UserID, txn.Amount, false); err != nil {
			return err
		}
		return InsertTransaction(ctx, tx, txn)
	})
}

func (s *Store) SettleWithdrawal(ctx context.Context, id string, status string, externalID *string) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().Model(&txn).Where("id = ?", id).For("UPDATE").Scan(ctx)
		if err != nil {
			return err
		}

		if txn.Type != models.TransactionTypeWithdraw || txn.Status != models.TransactionStatusPending {
			return interfaces.ErrStateConflict
		}

		txn.Status = status
		if externalID != nil {
			txn.ExternalID = externalID
		}
		if err := updateTransactionStatus(ctx, tx, &txn); err != nil {
			return err
		}

		if status == models.TransactionStatusFailed || status == models.TransactionStatusCancelled {
			return creditBalance(ctx, tx, txn.UserID, txn.Amount, false)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return GetTransaction(ctx, s.db, id)
}

func (s *Store) GetTransactionByExternalID(ctx context.Context, externalID string) (*models.Transaction, error) {
	return GetTransactionByExternalID(ctx, s.db, externalID)
}

func (s *Store) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int, error) {
	return ListTransactions(ctx, s.readonly, filter)
}

func (s *Store) CountWithdrawalsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	return CountWithdrawalsSince(ctx, s.db, userID, since)
}

func (s *Store) SumTransactions(ctx context.Context, userID string, since time.Time) ([]models.TransactionSum, error) {
	return SumTransactions(ctx, s.readonly, userID, since)
}

func (s *Store) GetGeneralStats(ctx context.Context) (*models.GeneralStats, error) {
	users, err := CountUsers(ctx, s.readonly)
	if err != nil {
		return nil, err
	}

	games, err := sumGames(ctx, s.readonly)
	if err != nil {
		return nil, err
	}

	sums, err := SumTransactions(ctx, s.readonly, "", time.Time{})
	if err != nil {
		return nil, err
	}

	active, err := CountActiveCategories(ctx, s.readonly)
	if err != nil {
		return nil, err
	}

	stats := &models.GeneralStats{
		TotalUsers:       users,
		TotalGames:       games.TotalGames,
		TotalWins:        games.TotalWins,
		GamesRevenue:     games.GamesRevenue,
		GamesPayouts:     games.GamesPayouts,
		HouseEdge:        decimal.Zero,
		TotalDeposits:    sumByType(sums, models.TransactionTypeDeposit),
		TotalWithdrawals: sumByType(sums, models.TransactionTypeWithdraw),
		ActiveCategories: active,
	}
	if games.GamesRevenue.IsPositive() {
		stats.HouseEdge = games.GamesRevenue.Sub(games.GamesPayouts).Mul(decimal.NewFromInt(100)).DivRound(games.GamesRevenue, 2)
	}
	return stats, nil
}

func (s *Store) ListLedgerMismatches(ctx context.Context, limit int) ([]models.LedgerMismatch, error) {
	return ListLedgerMismatches(ctx, s.readonly, limit)
}
