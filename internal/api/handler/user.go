package handler

import (
	"scratchcard/internal/models"
	"scratchcard/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupUser struct {
	container *do.Injector
}

// Me returns the caller's profile, opening a wallet the first time a new identity shows up.
func (gr *groupUser) Me(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return restAbort(c, nil, err)
	}

	serviceWallet, err := do.Invoke[*services.ServiceWallet](gr.container)
	if err != nil {
		return restAbort(c, nil, err)
	}

	wallet, err := serviceWallet.GetWalletInfo(ctx, user.ID)
	if err != nil {
		return restAbort(c, nil, err)
	}

	return restAbort(c, struct {
		User   *models.User       `json:"user"`
		Wallet *models.WalletInfo `json:"wallet"`
	}{user, wallet}, nil)
}
