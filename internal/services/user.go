package services

import (
	"context"

	log "github.com/sirupsen/logrus"

	"scratchcard/internal/interfaces"
	"scratchcard/internal/models"

	"github.com/samber/do"
)

type ServiceUser struct {
	container *do.Injector
	ledger    interfaces.LedgerStore
}

func NewServiceUser(container *do.Injector) (*ServiceUser, error) {
	ledger, err := do.Invoke[interfaces.LedgerStore](container)
	if err != nil {
		return nil, err
	}

	return &ServiceUser{container, ledger}, nil
}

// FindOrCreateUser returns the wallet profile of an authenticated identity, opening an empty one on first sight.
func (service *ServiceUser) FindOrCreateUser(ctx context.Context, auth *models.UserFromAuth) (*models.User, error) {
	role := models.UserRoleUser
	if auth.Role == models.UserRoleAdmin {
		role = models.UserRoleAdmin
	}

	user, err := service.ledger.FindOrCreateUser(ctx, &models.User{
		ID:       auth.ID,
		Username: auth.Username,
		Email:    auth.Email,
		Role:     role,
	})
	if err != nil {
		return nil, storageFailure("find or create user", err, log.Fields{"user_id": auth.ID})
	}
	return user, nil
}
