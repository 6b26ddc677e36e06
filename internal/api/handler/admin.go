package handler

import (
	"strconv"

	"scratchcard/internal/models"
	"scratchcard/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/samber/do"
	"github.com/shopspring/decimal"
)

type groupAdmin struct {
	container *do.Injector
}

type addBalanceRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type processWithdrawRequest struct {
	Status     string  `json:"status"`
	ExternalID *string `json:"external_id"`
}

type setConfigRequest struct {
	Value string `json:"value"`
}

func paramID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, badRequest(err)
	}
	return id, nil
}

func (gr *groupAdmin) service(c echo.Context) (*services.ServiceAdmin, error) {
	return do.Invoke[*services.ServiceAdmin](gr.container)
}

func (gr *groupAdmin) Stats(c echo.Context) error {
	serviceAdmin, err := gr.service(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	stats, err := serviceAdmin.GetGeneralStats(c.Request().Context())
	return restAbort(c, stats, err)
}

func (gr *groupAdmin) Users(c echo.Context) error {
	serviceAdmin, err := gr.service(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	var page models.Page
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &page); err != nil {
		return restAbort(c, nil, badRequest(err))
	}

	users, err := serviceAdmin.ListUsers(c.Request().Context(), page)
	return restAbort(c, users, err)
}

func (gr *groupAdmin) AddUserBalance(c echo.Context) error {
	serviceAdmin, err := gr.service(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	var req addBalanceRequest
	if err := c.Bind(&req); err != nil {
		return restAbort(c, nil, badRequest(err))
	}

	txn, err := serviceAdmin.AddUserBalance(c.Request().Context(), c.Param("id"), req.Amount, req.Description)
	return restAbort(c, txn, err)
}

func (gr *groupAdmin) Categories(c echo.Context) error {
	serviceAdmin, err := gr.service(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	categories, err := serviceAdmin.ListCategories(c.Request().Context())
	return restAbort(c, categories, err)
}

func (gr *groupAdmin) CreateCategory(c echo.Context) error {
	serviceAdmin, err := gr.service(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	var input models.CategoryInput
	if err := c.Bind(&input); err != nil {
		return restAbort(c, nil, badRequest(err))
	}

	category, err := serviceAdmin.CreateCategory(c.Request().Context(), &input)
	return restAbort(c, category, err)
}

func (gr *groupAdmin) UpdateCategory(c echo.Context) error {
	serviceAdmin, err := gr.service(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	id, err := paramID(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	var update models.CategoryUpdate
	if err := (&echo.DefaultBinder{}).BindBody(c, &update); err != nil {
		return restAbort(c, nil, badRequest(err))
	}

	category, err := serviceAdmin.UpdateCategory(c.Request().Context(), id, &update)
	return restAbort(c, category, err)
}

func (gr *groupAdmin) DeactivateCategory(c echo.Context) error {
	serviceAdmin, err := gr.service(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	id, err := paramID(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	category, err := serviceAdmin.DeactivateCategory(c.Request().Context(), id)
	return restAbort(c, category, err)
}

func (gr *groupAdmin) Prizes(c echo.Context) error {
	serviceAdmin, err := gr.service(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	id, err := paramID(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	prizes, err := serviceAdmin.ListPrizes(c.Request().Context(), id)
	return restAbort(c, prizes, err)
}

func (gr *groupAdmin) CreatePrize(c echo.Context) error {
	serviceAdmin, err := gr.service(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	var input models.PrizeInput
	if err := c.Bind(&input); err != nil {
		return restAbort(c, nil, badRequest(err))
	}

	prize, err := serviceAdmin.CreatePrize(c.Request().Context(), &input)
	return restAbort(c, prize, err)
}

func (gr *groupAdmin) UpdatePrize(c echo.Context) error {
	serviceAdmin, err := gr.service(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	id, err := paramID(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	var update models.PrizeUpdate
	if err := (&echo.DefaultBinder{}).BindBody(c, &update); err != nil {
		return restAbort(c, nil, badRequest(err))
	}

	prize, err := serviceAdmin.UpdatePrize(c.Request().Context(), id, &update)
	return restAbort(c, prize, err)
}

func (gr *groupAdmin) DeactivatePrize(c echo.Context) error {
	serviceAdmin, err := gr.service(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	id, err := paramID(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	prize, err := serviceAdmin.DeactivatePrize(c.Request().Context(), id)
	return restAbort(c, prize, err)
}

func (gr *groupAdmin) Games(c echo.Context) error {
	serviceAdmin, err := gr.service(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	var filter models.GameSessionFilter
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &filter.Page); err != nil {
		return restAbort(c, nil, badRequest(err))
	}
	filter.UserID = c.QueryParam("user_id")
	filter.OnlyWins = c.QueryParam("only_wins") == "true"
	if v := c.QueryParam("category_id"); v != "" {
		if filter.CategoryID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return restAbort(c, nil, badRequest(err))
		}
	}

	games, err := serviceAdmin.ListGames(c.Request().Context(), filter)
	return restAbort(c, games, err)
}

func (gr *groupAdmin) Transactions(c echo.Context) error {
	serviceAdmin, err := gr.service(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	var filter models.TransactionFilter
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &filter.Page); err != nil {
		return restAbort(c, nil, badRequest(err))
	}
	filter.UserID = c.QueryParam("user_id")
	filter.Type = c.QueryParam("type")
	filter.Status = c.QueryParam("status")

	txns, err := serviceAdmin.ListTransactions(c.Request().Context(), filter)
	return restAbort(c, txns, err)
}

func (gr *groupAdmin) ProcessWithdraw(c echo.Context) error {
	serviceWallet, err := do.Invoke[*services.ServiceWallet](gr.container)
	if err != nil {
		return restAbort(c, nil, err)
	}

	var req processWithdrawRequest
	if err := c.Bind(&req); err != nil {
		return restAbort(c, nil, badRequest(err))
	}

	txn, err := serviceWallet.ProcessWithdraw(c.Request().Context(), c.Param("id"), req.Status, req.ExternalID)
	return restAbort(c, txn, err)
}

func (gr *groupAdmin) Configs(c echo.Context) error {
	serviceConfig, err := do.Invoke[*services.ServiceConfig](gr.container)
	if err != nil {
		return restAbort(c, nil, err)
	}

	configs, err := serviceConfig.ListConfigs(c.Request().Context())
	return restAbort(c, configs, err)
}

func (gr *groupAdmin) SetConfig(c echo.Context) error {
	serviceConfig, err := do.Invoke[*services.ServiceConfig](gr.container)
	if err != nil {
		return restAbort(c, nil, err)
	}

	var req setConfigRequest
	if err := c.Bind(&req); err != nil {
		return restAbort(c, nil, badRequest(err))
	}

	config, err := serviceConfig.SetConfig(c.Request().Context(), c.Param("key"), req.Value)
	return restAbort(c, config, err)
}

func (gr *groupAdmin) Reconcile(c echo.Context) error {
	serviceReconcile, err := do.Invoke[*services.ServiceReconcile](gr.container)
	if err != nil {
		return restAbort(c, nil, err)
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	report, err := serviceReconcile.ReconcileWins(c.Request().Context(), limit)
	return restAbort(c, report, err)
}

func (gr *groupAdmin) LedgerAudit(c echo.Context) error {
	serviceReconcile, err := do.Invoke[*services.ServiceReconcile](gr.container)
	if err != nil {
		return restAbort(c, nil, err)
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	mismatches, err := serviceReconcile.AuditLedger(c.Request().Context(), limit)
	return restAbort(c, mismatches, err)
}
