package handler

import (
	"scratchcard/internal/models"
	"scratchcard/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

const headerIdempotencyKey = "Idempotency-Key"

type groupScratch struct {
	container *do.Injector
}

func (gr *groupScratch) ListCategories(c echo.Context) error {
	serviceCatalog, err := do.Invoke[*services.ServiceCatalog](gr.container)
	if err != nil {
		return restAbort(c, nil, err)
	}

	categories, err := serviceCatalog.ListCategories(c.Request().Context())
	return restAbort(c, categories, err)
}

func (gr *groupScratch) GetCategory(c echo.Context) error {
	serviceCatalog, err := do.Invoke[*services.ServiceCatalog](gr.container)
	if err != nil {
		return restAbort(c, nil, err)
	}

	category, err := serviceCatalog.GetCategory(c.Request().Context(), c.Param("slug"))
	return restAbort(c, category, err)
}

func (gr *groupScratch) GetRewards(c echo.Context) error {
	serviceCatalog, err := do.Invoke[*services.ServiceCatalog](gr.container)
	if err != nil {
		return restAbort(c, nil, err)
	}

	rewards, err := serviceCatalog.GetCategoryRewards(c.Request().Context(), c.Param("slug"))
	return restAbort(c, rewards, err)
}

func (gr *groupScratch) GetStats(c echo.Context) error {
	serviceCatalog, err := do.Invoke[*services.ServiceCatalog](gr.container)
	if err != nil {
		return restAbort(c, nil, err)
	}

	stats, err := serviceCatalog.GetCategoryStats(c.Request().Context(), c.Param("slug"))
	return restAbort(c, stats, err)
}

func (gr *groupScratch) Purchase(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return restAbort(c, nil, err)
	}

	servicePurchase, err := do.Invoke[*services.ServicePurchase](gr.container)
	if err != nil {
		return restAbort(c, nil, err)
	}

	result, err := servicePurchase.Buy(ctx, user.ID, c.Param("slug"), c.Request().Header.Get(headerIdempotencyKey))
	return restAbort(c, result, err)
}

func (gr *groupScratch) History(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return restAbort(c, nil, err)
	}

	var page models.Page
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &page); err != nil {
		return restAbort(c, nil, badRequest(err))
	}

	serviceGame, err := do.Invoke[*services.ServiceGame](gr.container)
	if err != nil {
		return restAbort(c, nil, err)
	}

	history, err := serviceGame.GetUserGameHistory(ctx, user.ID, page)
	return restAbort(c, history, err)
}

func (gr *groupScratch) GameDetails(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return restAbort(c, nil, err)
	}

	serviceGame, err := do.Invoke[*services.ServiceGame](gr.container)
	if err != nil {
		return restAbort(c, nil, err)
	}

	session, err := serviceGame.GetGameDetails(ctx, user.ID, c.Param("id"))
	return restAbort(c, session, err)
}

func (gr *groupScratch) CompleteGame(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return restAbort(c, nil, err)
	}

	serviceGame, err := do.Invoke[*services.ServiceGame](gr.container)
	if err != nil {
		return restAbort(c, nil, err)
	}

	session, err := serviceGame.CompleteGame(ctx, user.ID, c.Param("id"))
	return restAbort(c, session, err)
}
