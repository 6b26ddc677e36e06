package services

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"scratchcard/internal/interfaces"
	"scratchcard/internal/models"

	"github.com/samber/do"
)

type ServiceGame struct {
	container *do.Injector
	catalog   interfaces.CatalogStore
	ledger    interfaces.LedgerStore
	now       func() time.Time
}

func NewServiceGame(container *do.Injector) (*ServiceGame, error) {
	catalog, err := do.Invoke[interfaces.CatalogStore](container)
	if err != nil {
		return nil, err
	}

	ledger, err := do.Invoke[interfaces.LedgerStore](container)
	if err != nil {
		return nil, err
	}

	return &ServiceGame{container, catalog, ledger, time.Now}, nil
}

func (service *ServiceGame) GetUserGameHistory(ctx context.Context, userID string, page models.Page) (*models.Paginated[models.GameSession], error) {
	return service.ListGames(ctx, models.GameSessionFilter{Page: page, UserID: userID})
}

// ListGames is shared by the player history and the admin game list.
func (service *ServiceGame) ListGames(ctx context.Context, filter models.GameSessionFilter) (*models.Paginated[models.GameSession], error) {
	filter.Page = filter.Page.Normalize()
	sessions, total, err := service.ledger.ListGameSessions(ctx, filter)
	if err != nil {
		return nil, storageFailure("list game sessions", err, log.Fields{"user_id": filter.UserID})
	}

	if err := service.enrich(ctx, sessions); err != nil {
		return nil, err
	}
	return models.NewPaginated(sessions, filter.Page, total), nil
}

// GetGameDetails returns one of the user's own sessions. Sessions of other users are reported as missing.
func (service *ServiceGame) GetGameDetails(ctx context.Context, userID string, sessionID string) (*models.GameSession, error) {
	session, err := service.ownSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	sessions := []models.GameSession{*session}
	if err := service.enrich(ctx, sessions); err != nil {
		return nil, err
	}
	return &sessions[0], nil
}

// CompleteGame marks the card as fully scratched. Completing twice keeps the first timestamp.
func (service *ServiceGame) CompleteGame(ctx context.Context, userID string, sessionID string) (*models.GameSession, error) {
	if _, err := service.ownSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	if err := service.ledger.CompleteGameSession(ctx, sessionID, service.now()); err != nil {
		return nil, lookupFailure("complete game session", "game "+sessionID, err, log.Fields{"session_id": sessionID})
	}
	return service.GetGameDetails(ctx, userID, sessionID)
}

func (service *ServiceGame) ownSession(ctx context.Context, userID string, sessionID string) (*models.GameSession, error) {
	session, err := service.ledger.GetGameSession(ctx, sessionID)
	if err != nil {
		return nil, lookupFailure("get game session", "game "+sessionID, err, log.Fields{"session_id": sessionID})
	}
	if session.UserID != userID {
		return nil, notFound("game " + sessionID)
	}
	return session, nil
}

func (service *ServiceGame) enrich(ctx context.Context, sessions []models.GameSession) error {
	categories := map[int64]*models.CategorySummary{}
	for i := range sessions {
		s := &sessions[i]
		summary, ok := categories[s.CategoryID]
		if !ok {
			category, err := service.catalog.GetCategoryByID(ctx, s.CategoryID)
			if err != nil {
				return storageFailure("get category", err, log.Fields{"category_id": s.CategoryID})
			}
			v := category.Summary()
			summary = &v
			categories[s.CategoryID] = summary
		}
		s.Category = summary
		s.Prize = prizeFromGrid(s)
	}
	return nil
}
