package handler

import (
	"strconv"

	"scratchcard/internal/models"
	"scratchcard/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupWallet struct {
	container *do.Injector
}

func (gr *groupWallet) resolve(c echo.Context) (*models.User, *services.ServiceWallet, error) {
	user, err := ResolveValidUser(c.Request().Context(), gr.container)
	if err != nil {
		return nil, nil, err
	}

	serviceWallet, err := do.Invoke[*services.ServiceWallet](gr.container)
	if err != nil {
		return nil, nil, err
	}
	return user, serviceWallet, nil
}

func (gr *groupWallet) Info(c echo.Context) error {
	user, serviceWallet, err := gr.resolve(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	info, err := serviceWallet.GetWalletInfo(c.Request().Context(), user.ID)
	return restAbort(c, info, err)
}

func (gr *groupWallet) Transactions(c echo.Context) error {
	user, serviceWallet, err := gr.resolve(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	var page models.Page
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &page); err != nil {
		return restAbort(c, nil, badRequest(err))
	}

	txns, err := serviceWallet.GetTransactionHistory(c.Request().Context(), user.ID, page, c.QueryParam("type"))
	return restAbort(c, txns, err)
}

func (gr *groupWallet) Transaction(c echo.Context) error {
	user, serviceWallet, err := gr.resolve(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	txn, err := serviceWallet.GetTransaction(c.Request().Context(), user.ID, c.Param("id"))
	return restAbort(c, txn, err)
}

func (gr *groupWallet) Deposit(c echo.Context) error {
	user, serviceWallet, err := gr.resolve(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	var req models.DepositRequest
	if err := c.Bind(&req); err != nil {
		return restAbort(c, nil, badRequest(err))
	}

	txn, err := serviceWallet.AddBalance(c.Request().Context(), user.ID, req.Amount, req.Description)
	return restAbort(c, txn, err)
}

func (gr *groupWallet) Withdraw(c echo.Context) error {
	user, serviceWallet, err := gr.resolve(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	var req models.WithdrawRequest
	if err := c.Bind(&req); err != nil {
		return restAbort(c, nil, badRequest(err))
	}

	txn, err := serviceWallet.RequestWithdraw(c.Request().Context(), user.ID, &req)
	return restAbort(c, txn, err)
}

func (gr *groupWallet) WithdrawLimits(c echo.Context) error {
	user, serviceWallet, err := gr.resolve(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	limit, err := serviceWallet.CanWithdraw(c.Request().Context(), user.ID)
	return restAbort(c, limit, err)
}

func (gr *groupWallet) Summary(c echo.Context) error {
	user, serviceWallet, err := gr.resolve(c)
	if err != nil {
		return restAbort(c, nil, err)
	}

	days := 0
	if v := c.QueryParam("days"); v != "" {
		if days, err = strconv.Atoi(v); err != nil {
			return restAbort(c, nil, badRequest(err))
		}
	}

	summary, err := serviceWallet.GetFinancialSummary(c.Request().Context(), user.ID, days)
	return restAbort(c, summary, err)
}

// PaymentWebhook is called by the payout provider, not by players.
func (gr *groupWallet) PaymentWebhook(c echo.Context) error {
	var n models.PaymentNotification
	if err := c.Bind(&n); err != nil {
		return restAbort(c, nil, badRequest(err))
	}

	serviceWallet, err := do.Invoke[*services.ServiceWallet](gr.container)
	if err != nil {
		return restAbort(c, nil, err)
	}

	txn, err := serviceWallet.HandlePaymentNotification(c.Request().Context(), &n)
	return restAbort(c, txn, err)
}
