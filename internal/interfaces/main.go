package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis_rate/v10"

	"scratchcard/internal/models"
)

var (
	// ErrBalanceTooLow is returned when a conditional debit finds less than the amount.
	ErrBalanceTooLow = errors.New("balance too low")
	// ErrStateConflict is returned when a row is not in the state an update expects.
	ErrStateConflict = errors.New("state conflict")
)

type Limiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) error
}

// Locker hands out exclusive per-key locks. The returned func releases the lock.
type Locker interface {
	Obtain(ctx context.Context, key string) (func(), error)
}

// IdempotencyStore remembers which game session answered a client request key.
// Get returns an empty id when the key is unknown.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key string, sessionID string, ttl time.Duration) error
}

// CatalogStore reads and maintains categories, prizes and their RTP rows.
// Missing rows surface as sql.ErrNoRows.
type CatalogStore interface {
	ListCategories(ctx context.Context, onlyActive bool) ([]models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, id int64, update *models.CategoryUpdate) (*models.Category, error)
	CountGamesByCategory(ctx context.Context) (map[int64]int, error)

	ListPrizes(ctx context.Context, categoryID int64, onlyActive bool) ([]models.Prize, error)
	GetPrize(ctx context.Context, id int64) (*models.Prize, error)
	CreatePrize(ctx context.Context, prize *models.Prize) error
	UpdatePrize(ctx context.Context, id int64, update *models.PrizeUpdate) (*models.Prize, error)

	GetOrCreateRTP(ctx context.Context, categoryID int64) (*models.CategoryRTP, error)
	GetCategoryStats(ctx context.Context, categoryID int64) (*models.CategoryStats, error)
}

// LedgerStore owns balances, game sessions and transactions. Every method that
// moves money updates the cached wallet totals in the same database transaction.
type LedgerStore interface {
	FindOrCreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, page models.Page) ([]models.User, int, error)

	// RecordPurchase debits the price if the balance covers it, bumps the
	// category's invested total and inserts the session with its purchase row.
	RecordPurchase(ctx context.Context, session *models.GameSession, purchase *models.Transaction) error
	// RecordWin credits a win linked to a session and bumps the category's paid total.
	RecordWin(ctx context.Context, categoryID int64, win *models.Transaction) error

	GetGameSession(ctx context.Context, id string) (*models.GameSession, error)
	ListGameSessions(ctx context.Context, filter models.GameSessionFilter) ([]models.GameSession, int, error)
	CompleteGameSession(ctx context.Context, id string, at time.Time) error
	ListUnpaidWins(ctx context.Context, limit int) ([]models.GameSession, error)

	// Credit inserts a completed credit transaction and adds it to the balance.
	Credit(ctx context.Context, txn *models.Transaction) error
	// ReserveWithdrawal debits the amount if the balance covers it and inserts the pending withdrawal.
	ReserveWithdrawal(ctx context.Context, txn *models.Transaction) error
	// SettleWithdrawal moves a pending withdrawal to status. Failed and cancelled refund the amount.
	SettleWithdrawal(ctx context.Context, id string, status string, externalID *string) (*models.Transaction, error)

	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	GetTransactionByExternalID(ctx context.Context, externalID string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int, error)
	CountWithdrawalsSince(ctx context.Context, userID string, since time.Time) (int, error)
	SumTransactions(ctx context.Context, userID string, since time.Time) ([]models.TransactionSum, error)

	GetGeneralStats(ctx context.Context) (*models.GeneralStats, error)
	ListLedgerMismatches(ctx context.Context, limit int) ([]models.LedgerMismatch, error)
}
