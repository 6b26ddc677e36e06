package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"scratchcard/internal/interfaces"
	"scratchcard/internal/models"
	"scratchcard/internal/scratch"

	"github.com/samber/do"
)

type ServicePurchase struct {
	container   *do.Injector
	settings    *Settings
	engine      *scratch.Engine
	catalog     interfaces.CatalogStore
	ledger      interfaces.LedgerStore
	locker      interfaces.Locker
	idempotency interfaces.IdempotencyStore
	now         func() time.Time
}

func NewServicePurchase(container *do.Injector) (*ServicePurchase, error) {
	settings, err := do.Invoke[*Settings](container)
	if err != nil {
		return nil, err
	}

	engine, err := do.Invoke[*scratch.Engine](container)
	if err != nil {
		return nil, err
	}

	catalog, err := do.Invoke[interfaces.CatalogStore](container)
	if err != nil {
		return nil, err
	}

	ledger, err := do.Invoke[interfaces.LedgerStore](container)
	if err != nil {
		return nil, err
	}

	locker, err := do.Invoke[interfaces.Locker](container)
	if err != nil {
		return nil, err
	}

	idempotency, err := do.Invoke[interfaces.IdempotencyStore](container)
	if err != nil {
		return nil, err
	}

	return &ServicePurchase{container, settings, engine, catalog, ledger, locker, idempotency, time.Now}, nil
}

// Buy purchases one scratch card of the category for the user. Once the session
// is stored the result is final: a failure to record the win credit is logged
// for reconciliation and the game result is still returned.
func (service *ServicePurchase) Buy(ctx context.Context, userID string, slug string, idempotencyKey string) (*models.PurchaseResult, error) {
	unlock, err := service.locker.Obtain(ctx, LockKeyUserWallet(userID))
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("wallet lock not obtained")
		return nil, ErrWalletLocked
	}
	defer unlock()

	if idempotencyKey != "" {
		result, err := service.replay(ctx, userID, idempotencyKey)
		if err != nil || result != nil {
			return result, err
		}
	}

	category, err := service.catalog.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, lookupFailure("get category", "category "+slug, err, log.Fields{"category": slug})
	}
	if !category.Active {
		return nil, notFound("category " + slug)
	}

	user, err := service.ledger.GetUser(ctx, userID)
	if err != nil {
		return nil, lookupFailure("get user", "user "+userID, err, log.Fields{"user_id": userID})
	}
	if user.WalletBalance.LessThan(category.Price) {
		return nil, ErrInsufficientBalance
	}

	var (
		prizes []models.Prize
		rtp    *models.CategoryRTP
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prizes, err = service.catalog.ListPrizes(gCtx, category.ID, true)
		return err
	})
	g.Go(func() error {
		var err error
		rtp, err = service.catalog.GetOrCreateRTP(gCtx, category.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storageFailure("load prizes and rtp", err, log.Fields{"category": slug})
	}

	outcome := service.engine.DecideOutcome(prizes, scratch.StateOf(rtp), category.Price)
	grid := service.engine.ComposeGrid(outcome.Prize, prizes)

	session := &models.GameSession{
		ID:          uuid.NewString(),
		UserID:      userID,
		CategoryID:  category.ID,
		AmountSpent: category.Price,
		AmountWon:   decimal.Zero,
		GridData:    grid,
		CreatedAt:   service.now(),
	}
	if outcome.Won() {
		session.PrizeID = &outcome.Prize.ID
		session.AmountWon = outcome.Prize.Value
	}

	purchase := &models.Transaction{
		ID:            uuid.NewString(),
		UserID:        userID,
		Type:          models.TransactionTypePurchase,
		Amount:        category.Price,
		Description:   fmt.Sprintf("Purchase: %s", category.Name),
		GameSessionID: &session.ID,
		Status:        models.TransactionStatusCompleted,
	}

	if err := service.ledger.RecordPurchase(ctx, session, purchase); err != nil {
		if errors.Is(err, interfaces.ErrBalanceTooLow) {
			return nil, ErrInsufficientBalance
		}
		return nil, storageFailure("record purchase", err, log.Fields{"user_id": userID, "category": slug})
	}

	log.WithFields(log.Fields{
		"session_id": session.ID,
		"user_id":    userID,
		"category":   slug,
		"band":       outcome.Band.String(),
		"rtp":        outcome.RTP,
		"won":        session.AmountWon.StringFixed(2),
	}).Info("scratch card purchased")

	if outcome.Won() {
		if err := recordWin(ctx, service.ledger, session, outcome.Prize.Name); err != nil {
			log.WithFields(log.Fields{
				"session_id": session.ID,
				"user_id":    userID,
				"category":   slug,
				"amount":     session.AmountWon.StringFixed(2),
			}).WithError(err).Error(ErrPartialWrite.Error())
		}
	}

	if idempotencyKey != "" {
		if err := service.idempotency.Save(ctx, DBKeyPurchaseIdempotency(userID, idempotencyKey), session.ID, service.settings.IdempotencyTTL); err != nil {
			log.WithError(err).WithField("session_id", session.ID).Warn("idempotency key not saved")
		}
	}

	return &models.PurchaseResult{
		SessionID:   session.ID,
		Category:    category.Summary(),
		Prize:       outcome.Prize.Summary(),
		Grid:        grid,
		AmountSpent: session.AmountSpent,
		AmountWon:   session.AmountWon,
		CreatedAt:   session.CreatedAt,
	}, nil
}

func recordWin(ctx context.Context, ledger interfaces.LedgerStore, session *models.GameSession, prizeName string) error {
	return ledger.RecordWin(ctx, session.CategoryID, &models.Transaction{
		ID:            uuid.NewString(),
		UserID:        session.UserID,
		Type:          models.TransactionTypeWin,
		Amount:        session.AmountWon,
		Description:   fmt.Sprintf("Prize: %s", prizeName),
		GameSessionID: &session.ID,
		Status:        models.TransactionStatusCompleted,
	})
}

// replay rebuilds the result of a purchase already answered for the key. It
// never decides a new outcome.
func (service *ServicePurchase) replay(ctx context.Context, userID string, key string) (*models.PurchaseResult, error) {
	sessionID, err := service.idempotency.Get(ctx, DBKeyPurchaseIdempotency(userID, key))
	if err != nil {
		return nil, storageFailure("read idempotency key", err, log.Fields{"user_id": userID})
	}
	if sessionID == "" {
		return nil, nil
	}

	session, err := service.ledger.GetGameSession(ctx, sessionID)
	if err != nil {
		return nil, lookupFailure("get game session", "game "+sessionID, err, log.Fields{"session_id": sessionID})
	}
	if session.UserID != userID {
		return nil, notFound("game " + sessionID)
	}

	category, err := service.catalog.GetCategoryByID(ctx, session.CategoryID)
	if err != nil {
		return nil, lookupFailure("get category", "category", err, log.Fields{"session_id": sessionID})
	}

	return &models.PurchaseResult{
		SessionID:   session.ID,
		Category:    category.Summary(),
		Prize:       prizeFromGrid(session),
		Grid:        session.GridData,
		AmountSpent: session.AmountSpent,
		AmountWon:   session.AmountWon,
		CreatedAt:   session.CreatedAt,
		Replayed:    true,
	}, nil
}

// prizeFromGrid recovers the won prize from the stored grid, so history stays
// accurate after a prize is edited.
func prizeFromGrid(session *models.GameSession) *models.PrizeSummary {
	if session.PrizeID == nil {
		return nil
	}
	for _, cell := range session.GridData {
		if cell != nil && cell.PrizeID == *session.PrizeID {
			return &models.PrizeSummary{
				ID:       cell.PrizeID,
				Name:     cell.Name,
				ImageURL: cell.ImageURL,
				Value:    cell.Value,
				Type:     cell.Type,
			}
		}
	}
	return &models.PrizeSummary{ID: *session.PrizeID, Value: session.AmountWon}
}
