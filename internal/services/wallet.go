package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"scratchcard/internal/interfaces"
	"scratchcard/internal/models"
	"scratchcard/internal/pkg"

	"github.com/samber/do"
)

const (
	DEFAULT_DEPOSIT_DESCRIPTION  = "Manual deposit"
	DEFAULT_WITHDRAW_DESCRIPTION = "Withdraw"
)

type ServiceWallet struct {
	container *do.Injector
	settings  *Settings
	ledger    interfaces.LedgerStore
	locker    interfaces.Locker
	now       func() time.Time
}

func NewServiceWallet(container *do.Injector) (*ServiceWallet, error) {
	settings, err := do.Invoke[*Settings](container)
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

	return &ServiceWallet{container, settings, ledger, locker, time.Now}, nil
}

func (service *ServiceWallet) GetWalletInfo(ctx context.Context, userID string) (*models.WalletInfo, error) {
	user, err := service.ledger.GetUser(ctx, userID)
	if err != nil {
		return nil, lookupFailure("get user", "user "+userID, err, log.Fields{"user_id": userID})
	}

	return &models.WalletInfo{
		Balance:    user.WalletBalance,
		TotalSpent: user.TotalSpent,
		TotalWon:   user.TotalWon,
		NetResult:  user.TotalWon.Sub(user.TotalSpent),
	}, nil
}

func (service *ServiceWallet) GetTransactionHistory(ctx context.Context, userID string, page models.Page, kind string) (*models.Paginated[models.Transaction], error) {
	return service.ListTransactions(ctx, models.TransactionFilter{Page: page, UserID: userID, Type: kind})
}

func (service *ServiceWallet) ListTransactions(ctx context.Context, filter models.TransactionFilter) (*models.Paginated[models.Transaction], error) {
	if filter.Type != "" && !models.ValidTransactionType(filter.Type) {
		return nil, invalid("unknown transaction type %q", filter.Type)
	}
	if filter.Status != "" && !validTransactionStatus(filter.Status) {
		return nil, invalid("unknown transaction status %q", filter.Status)
	}

	filter.Page = filter.Page.Normalize()
	txns, total, err := service.ledger.ListTransactions(ctx, filter)
	if err != nil {
		return nil, storageFailure("list transactions", err, log.Fields{"user_id": filter.UserID})
	}
	return models.NewPaginated(txns, filter.Page, total), nil
}

// GetTransaction returns one of the user's own transactions.
func (service *ServiceWallet) GetTransaction(ctx context.Context, userID string, txnID string) (*models.Transaction, error) {
	txn, err := service.ledger.GetTransaction(ctx, txnID)
	if err != nil {
		return nil, lookupFailure("get transaction", "transaction "+txnID, err, log.Fields{"transaction_id": txnID})
	}
	if txn.UserID != userID {
		return nil, notFound("transaction " + txnID)
	}
	return txn, nil
}

// AddBalance records a completed deposit and credits it.
func (service *ServiceWallet) AddBalance(ctx context.Context, userID string, amount decimal.Decimal, description string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, invalid("amount must be positive")
	}
	if amount.Exponent() < -2 {
		return nil, invalid("amount has more than two decimal places")
	}
	if description == "" {
		description = DEFAULT_DEPOSIT_DESCRIPTION
	}

	txn := &models.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        models.TransactionTypeDeposit,
		Amount:      amount,
		Description: description,
		Status:      models.TransactionStatusCompleted,
	}
	if err := service.ledger.Credit(ctx, txn); err != nil {
		return nil, lookupFailure("credit deposit", "user "+userID, err, log.Fields{"user_id": userID})
	}

	log.WithFields(log.Fields{"user_id": userID, "amount": amount.StringFixed(2)}).Info("deposit recorded")
	return txn, nil
}

// CanWithdraw counts today's pending and completed withdrawals against the daily cap.
func (service *ServiceWallet) CanWithdraw(ctx context.Context, userID string) (*models.WithdrawLimit, error) {
	since := pkg.StartOfDay(service.now(), service.settings.Location)
	done, err := service.ledger.CountWithdrawalsSince(ctx, userID, since)
	if err != nil {
		return nil, storageFailure("count withdrawals", err, log.Fields{"user_id": userID})
	}

	maxPerDay := service.settings.WithdrawMaxPerDay
	remaining := maxPerDay - done
	if remaining < 0 {
		remaining = 0
	}
	return &models.WithdrawLimit{
		Allowed:   remaining > 0,
		DoneToday: done,
		MaxPerDay: maxPerDay,
		Remaining: remaining,
	}, nil
}

// RequestWithdraw reserves the amount as a pending withdrawal and settles it
// right away, standing in for the payout provider. If settling fails the
// withdrawal stays pending for the payment webhook.
func (service *ServiceWallet) RequestWithdraw(ctx context.Context, userID string, req *models.WithdrawRequest) (*models.Transaction, error) {
	payoutKey := strings.TrimSpace(req.PayoutKey)
	if req.Amount.LessThan(service.settings.WithdrawMinAmount) {
		return nil, invalid("minimum withdrawal is %s", service.settings.WithdrawMinAmount.StringFixed(2))
	}
	if req.Amount.Exponent() < -2 {
		return nil, invalid("amount has more than two decimal places")
	}
	if payoutKey == "" {
		return nil, invalid("payout key is required")
	}

	unlock, err := service.locker.Obtain(ctx, LockKeyUserWallet(userID))
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("wallet lock not obtained")
		return nil, ErrWalletLocked
	}
	defer unlock()

	limit, err := service.CanWithdraw(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !limit.Allowed {
		return nil, &WithdrawLimitError{Limit: *limit}
	}

	user, err := service.ledger.GetUser(ctx, userID)
	if err != nil {
		return nil, lookupFailure("get user", "user "+userID, err, log.Fields{"user_id": userID})
	}
	if user.WalletBalance.LessThan(req.Amount) {
		return nil, ErrInsufficientBalance
	}

	txn := &models.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        models.TransactionTypeWithdraw,
		Amount:      req.Amount,
		Description: fmt.Sprintf("%s - PIX: %s", DEFAULT_WITHDRAW_DESCRIPTION, payoutKey),
		Status:      models.TransactionStatusPending,
	}
	if err := service.ledger.ReserveWithdrawal(ctx, txn); err != nil {
		if errors.Is(err, interfaces.ErrBalanceTooLow) {
			return nil, ErrInsufficientBalance
		}
		return nil, storageFailure("reserve withdrawal", err, log.Fields{"user_id": userID})
	}

	settled, err := service.ledger.SettleWithdrawal(ctx, txn.ID, models.TransactionStatusCompleted, nil)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{"user_id": userID, "transaction_id": txn.ID}).Error("withdrawal left pending")
		return txn, nil
	}

	log.WithFields(log.Fields{"user_id": userID, "transaction_id": txn.ID, "amount": req.Amount.StringFixed(2)}).Info("withdrawal completed")
	return settled, nil
}

// ProcessWithdraw moves a pending withdrawal to completed, failed or cancelled.
// Failed and cancelled give the reserved amount back.
func (service *ServiceWallet) ProcessWithdraw(ctx context.Context, txnID string, status string, externalID *string) (*models.Transaction, error) {
	switch status {
	case models.TransactionStatusCompleted, models.TransactionStatusFailed, models.TransactionStatusCancelled:
	default:
		return nil, invalid("status must be completed, failed or cancelled")
	}

	txn, err := service.ledger.SettleWithdrawal(ctx, txnID, status, externalID)
	if err != nil {
		if errors.Is(err, interfaces.ErrStateConflict) {
			return nil, fmt.Errorf("%w: transaction %s is not a pending withdrawal", ErrInvalidState, txnID)
		}
		return nil, lookupFailure("settle withdrawal", "transaction "+txnID, err, log.Fields{"transaction_id": txnID})
	}

	log.WithFields(log.Fields{"transaction_id": txnID, "status": status}).Info("withdrawal processed")
	return txn, nil
}

// HandlePaymentNotification applies a payout provider callback. Repeated
// notifications for an already settled withdrawal are accepted unchanged.
func (service *ServiceWallet) HandlePaymentNotification(ctx context.Context, n *models.PaymentNotification) (*models.Transaction, error) {
	status, ok := providerStatus(n.Status)
	if !ok {
		return nil, invalid("unknown payment status %q", n.Status)
	}

	var (
		txn *models.Transaction
		err error
	)
	switch {
	case n.TransactionID != "":
		txn, err = service.ledger.GetTransaction(ctx, n.TransactionID)
	case n.ExternalID != "":
		txn, err = service.ledger.GetTransactionByExternalID(ctx, n.ExternalID)
	default:
		return nil, invalid("transaction_id or external_id is required")
	}
	if err != nil {
		return nil, lookupFailure("get transaction", "transaction", err, log.Fields{"external_id": n.ExternalID})
	}

	if txn.Status == status {
		return txn, nil
	}

	var externalID *string
	if n.ExternalID != "" {
		externalID = &n.ExternalID
	}
	return service.ProcessWithdraw(ctx, txn.ID, status, externalID)
}

func (service *ServiceWallet) GetFinancialSummary(ctx context.Context, userID string, days int) (*models.FinancialSummary, error) {
	if days <= 0 {
		days = DEFAULT_SUMMARY_DAYS
	}
	if days > MAX_SUMMARY_DAYS {
		return nil, invalid("days must be at most %d", MAX_SUMMARY_DAYS)
	}

	since := pkg.DaysAgo(service.now(), days, service.settings.Location)
	sums, err := service.ledger.SumTransactions(ctx, userID, since)
	if err != nil {
		return nil, storageFailure("sum transactions", err, log.Fields{"user_id": userID})
	}

	net := decimal.Zero
	for _, s := range sums {
		switch s.Type {
		case models.TransactionTypeDeposit, models.TransactionTypeWin:
			net = net.Add(s.Total)
		case models.TransactionTypePurchase, models.TransactionTypeWithdraw:
			net = net.Sub(s.Total)
		}
	}
	if sums == nil {
		sums = []models.TransactionSum{}
	}

	return &models.FinancialSummary{Days: days, Since: since, Items: sums, Net: net}, nil
}

func providerStatus(v string) (string, bool) {
	switch strings.ToLower(v) {
	case "completed", "paid", "approved":
		return models.TransactionStatusCompleted, true
	case "failed", "refused", "rejected":
		return models.TransactionStatusFailed, true
	case "cancelled", "canceled":
		return models.TransactionStatusCancelled, true
	}
	return "", false
}

func validTransactionStatus(v string) bool {
	switch v {
	case models.TransactionStatusPending, models.TransactionStatusCompleted, models.TransactionStatusFailed, models.TransactionStatusCancelled:
		return true
	}
	return false
}
