package handler

import (
	"errors"
	"fmt"

	"scratchcard/internal/pkg/limiter"
	"scratchcard/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
)

var errInternal = errors.New("internal error")

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", services.ErrValidation, err)
}

// restAbort writes data or the classified err. Outside debug mode storage
// and unexpected failures only show a generic message.
func restAbort(c echo.Context, data any, err error) error {
	if err == nil {
		return httpx.RestAbort(c, data, nil)
	}

	var limitErr *services.WithdrawLimitError
	if errors.As(err, &limitErr) && data == nil {
		data = limitErr.Limit
	}
	return httpx.RestAbort(c, data, classify(err, c.Echo().Debug))
}

func classify(err error, debug bool) error {
	switch {
	case errors.Is(err, errUnauthenticated), errors.Is(err, errInvalidToken), errors.Is(err, services.ErrForbidden):
		return errorx.Wrap(err, errorx.Authn)
	case errors.Is(err, limiter.ErrRateLimited):
		return errorx.Wrap(err, errorx.RateLimiting)
	case errors.Is(err, services.ErrValidation):
		return errorx.Wrap(err, errorx.Validation)
	case errors.Is(err, services.ErrNotFound):
		return errorx.Wrap(err, errorx.NotExist)
	case errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, services.ErrWithdrawLimit),
		errors.Is(err, services.ErrWalletLocked),
		errors.Is(err, services.ErrInvalidState):
		return errorx.Wrap(err, errorx.Invalid)
	case errors.Is(err, services.ErrUnavailable):
		if debug {
			return errorx.Wrap(err, errorx.Service)
		}
		return errorx.Wrap(services.ErrUnavailable, errorx.Service)
	}

	if debug {
		return errorx.Wrap(err, errorx.Service)
	}
	return errorx.Wrap(errInternal, errorx.Service)
}
