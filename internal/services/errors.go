package services

import (
	"database/sql"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"scratchcard/internal/models"
)

var (
	ErrValidation          = errors.New("invalid request")
	ErrNotFound            = errors.New("not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnavailable         = errors.New("service temporarily unavailable")
	ErrPartialWrite        = errors.New("win credit not recorded")
	ErrWithdrawLimit       = errors.New("daily withdrawal limit reached")
	ErrWalletLocked        = errors.New("wallet is busy with another operation")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidState        = errors.New("invalid state transition")
)

// WithdrawLimitError reports the daily counters alongside the rejection.
type WithdrawLimitError struct {
	Limit models.WithdrawLimit
}

func (e *WithdrawLimitError) Error() string {
	return fmt.Sprintf("%s: %d of %d withdrawals used today", ErrWithdrawLimit, e.Limit.DoneToday, e.Limit.MaxPerDay)
}

func (e *WithdrawLimitError) Unwrap() error {
	return ErrWithdrawLimit
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

// storageFailure logs the underlying error and hands the caller a generic one.
func storageFailure(op string, err error, fields log.Fields) error {
	log.WithFields(fields).WithError(err).WithField("op", op).Error("storage failure")
	return fmt.Errorf("%w (%s)", ErrUnavailable, op)
}

// lookupFailure maps a missing row to ErrNotFound and anything else to ErrUnavailable.
func lookupFailure(op string, what string, err error, fields log.Fields) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(what)
	}
	return storageFailure(op, err, fields)
}
