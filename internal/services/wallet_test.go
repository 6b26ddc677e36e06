package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samber/do"

	"scratchcard/internal/models"
)

func newTestWallet(t *testing.T, store *memStore) *ServiceWallet {
	t.Helper()
	wallet := do.MustInvoke[*ServiceWallet](newTestContainer(t, store, nil))
	wallet.now = func() time.Time { return testNow }
	return wallet
}

func TestRequestWithdrawDailyLimit(t *testing.T) {
	store := newMemStore()
	store.addUser("u1", "1000.00")
	wallet := newTestWallet(t, store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		txn, err := wallet.RequestWithdraw(ctx, "u1", &models.WithdrawRequest{Amount: dec("10.00"), PayoutKey: "key@example.com"})
		if err != nil {
			t.Fatalf("withdrawal %d: %v", i+1, err)
		}
		if txn.Status != models.TransactionStatusCompleted {
			t.Fatalf("withdrawal %d status = %s", i+1, txn.Status)
		}
	}

	_, err := wallet.RequestWithdraw(ctx, "u1", &models.WithdrawRequest{Amount: dec("10.00"), PayoutKey: "key@example.com"})
	var limitErr *WithdrawLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("4th withdrawal error = %v, want WithdrawLimitError", err)
	}
	if !errors.Is(err, ErrWithdrawLimit) {
		t.Fatal("WithdrawLimitError must unwrap to ErrWithdrawLimit")
	}
	if limitErr.Limit.DoneToday != 3 || limitErr.Limit.Remaining != 0 || limitErr.Limit.Allowed {
		t.Fatalf("limit = %+v, want done 3 remaining 0", limitErr.Limit)
	}
	if got := store.balance("u1"); !got.Equal(dec("970")) {
		t.Fatalf("balance = %s, want 970.00", got)
	}
}

func TestCanWithdrawIgnoresYesterday(t *testing.T) {
	store := newMemStore()
	store.addUser("u1", "100.00")
	wallet := newTestWallet(t, store)

	store.txns = append(store.txns, &models.Transaction{
		ID: "old", UserID: "u1", Type: models.TransactionTypeWithdraw, Amount: dec("10"),
		Status: models.TransactionStatusCompleted, CreatedAt: testNow.Add(-24 * time.Hour),
	}, &models.Transaction{
		ID: "failed", UserID: "u1", Type: models.TransactionTypeWithdraw, Amount: dec("10"),
		Status: models.TransactionStatusFailed, CreatedAt: testNow,
	})

	limit, err := wallet.CanWithdraw(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if limit.DoneToday != 0 || limit.Remaining != 3 || !limit.Allowed {
		t.Fatalf("limit = %+v", limit)
	}
}

func TestRequestWithdrawValidation(t *testing.T) {
	store := newMemStore()
	store.addUser("u1", "15.00")
	wallet := newTestWallet(t, store)

	tests := []struct {
		name string
		req  models.WithdrawRequest
		want error
	}{
		{"below minimum", models.WithdrawRequest{Amount: dec("9.99"), PayoutKey: "k"}, ErrValidation},
		{"empty key", models.WithdrawRequest{Amount: dec("10.00"), PayoutKey: "  "}, ErrValidation},
		{"three decimals", models.WithdrawRequest{Amount: dec("10.001"), PayoutKey: "k"}, ErrValidation},
		{"over balance", models.WithdrawRequest{Amount: dec("20.00"), PayoutKey: "k"}, ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			if _, err := wallet.RequestWithdraw(context.Background(), "u1", &req); !errors.Is(err, tt.want) {
				t.Fatalf("RequestWithdraw() error = %v, want %v", err, tt.want)
			}
		})
	}

	if len(store.txns) != 0 {
		t.Fatalf("rejected withdrawals persisted %d transactions", len(store.txns))
	}
}

func TestProcessWithdrawRefundsAndGuardsState(t *testing.T) {
	store := newMemStore()
	store.addUser("u1", "100.00")
	wallet := newTestWallet(t, store)
	ctx := context.Background()

	pending := &models.Transaction{ID: "w1", UserID: "u1", Type: models.TransactionTypeWithdraw, Amount: dec("40"), Status: models.TransactionStatusPending}
	if err := store.ReserveWithdrawal(ctx, pending); err != nil {
		t.Fatal(err)
	}
	if got := store.balance("u1"); !got.Equal(dec("60")) {
		t.Fatalf("balance after reserve = %s", got)
	}

	if _, err := wallet.ProcessWithdraw(ctx, "w1", models.TransactionStatusPending, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("pending target error = %v, want ErrValidation", err)
	}

	txn, err := wallet.ProcessWithdraw(ctx, "w1", models.TransactionStatusFailed, nil)
	if err != nil {
		t.Fatal(err)
	}
	if txn.Status != models.TransactionStatusFailed {
		t.Fatalf("status = %s", txn.Status)
	}
	if got := store.balance("u1"); !got.Equal(dec("100")) {
		t.Fatalf("balance after refund = %s, want 100.00", got)
	}

	if _, err := wallet.ProcessWithdraw(ctx, "w1", models.TransactionStatusCompleted, nil); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second transition error = %v, want ErrInvalidState", err)
	}
	if _, err := wallet.ProcessWithdraw(ctx, "nope", models.TransactionStatusCompleted, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown transaction error = %v, want ErrNotFound", err)
	}
}

func TestHandlePaymentNotification(t *testing.T) {
	store := newMemStore()
	store.addUser("u1", "100.00")
	wallet := newTestWallet(t, store)
	ctx := context.Background()

	if err := store.ReserveWithdrawal(ctx, &models.Transaction{ID: "w1", UserID: "u1", Type: models.TransactionTypeWithdraw, Amount: dec("25"), Status: models.TransactionStatusPending}); err != nil {
		t.Fatal(err)
	}

	n := &models.PaymentNotification{TransactionID: "w1", ExternalID: "psp-1", Status: "PAID"}
	txn, err := wallet.HandlePaymentNotification(ctx, n)
	if err != nil {
		t.Fatal(err)
	}
	if txn.Status != models.TransactionStatusCompleted || txn.ExternalID == nil || *txn.ExternalID != "psp-1" {
		t.Fatalf("txn = %+v", txn)
	}

	// providers retry, a repeat must not fail
	again, err := wallet.HandlePaymentNotification(ctx, &models.PaymentNotification{ExternalID: "psp-1", Status: "paid"})
	if err != nil {
		t.Fatalf("repeated notification: %v", err)
	}
	if again.ID != "w1" {
		t.Fatalf("resolved %s, want w1", again.ID)
	}

	if _, err := wallet.HandlePaymentNotification(ctx, &models.PaymentNotification{TransactionID: "w1", Status: "weird"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown status error = %v", err)
	}
	if got := store.balance("u1"); !got.Equal(dec("75")) {
		t.Fatalf("balance = %s, want 75.00", got)
	}
}

func TestLedgerInvariantAcrossOperations(t *testing.T) {
	store, purchase, category, _ := forcedWinFixture(t)
	store.addPrize(category.ID, "Hundred", "100.00", 3)
	wallet := do.MustInvoke[*ServiceWallet](purchase.container)
	wallet.now = func() time.Time { return testNow }
	reconcile := do.MustInvoke[*ServiceReconcile](purchase.container)
	ctx := context.Background()

	// the fixture balance predates the ledger
	store.insert(&models.Transaction{ID: "opening", UserID: "u1", Type: models.TransactionTypeDeposit, Amount: dec("50.00"), Status: models.TransactionStatusCompleted})

	if _, err := wallet.AddBalance(ctx, "u1", dec("200.00"), ""); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 12; i++ {
		if _, err := purchase.Buy(ctx, "u1", "green", ""); err != nil {
			t.Fatalf("purchase %d: %v", i, err)
		}
	}
	if _, err := wallet.RequestWithdraw(ctx, "u1", &models.WithdrawRequest{Amount: dec("15.50"), PayoutKey: "k"}); err != nil {
		t.Fatal(err)
	}
	if err := store.ReserveWithdrawal(ctx, &models.Transaction{ID: "w-fail", UserID: "u1", Type: models.TransactionTypeWithdraw, Amount: dec("12"), Status: models.TransactionStatusPending}); err != nil {
		t.Fatal(err)
	}
	if _, err := wallet.ProcessWithdraw(ctx, "w-fail", models.TransactionStatusCancelled, nil); err != nil {
		t.Fatal(err)
	}

	mismatches, err := reconcile.AuditLedger(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(mismatches) != 0 {
		t.Fatalf("ledger mismatches: %+v", mismatches)
	}

	info, err := wallet.GetWalletInfo(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !info.NetResult.Equal(info.TotalWon.Sub(info.TotalSpent)) || !info.TotalSpent.Equal(dec("120")) {
		t.Fatalf("wallet info = %+v", info)
	}
}

func TestGetFinancialSummary(t *testing.T) {
	store := newMemStore()
	store.addUser("u1", "0")
	wallet := newTestWallet(t, store)
	ctx := context.Background()

	if _, err := wallet.AddBalance(ctx, "u1", dec("100"), "pix"); err != nil {
		t.Fatal(err)
	}
	if _, err := wallet.RequestWithdraw(ctx, "u1", &models.WithdrawRequest{Amount: dec("30"), PayoutKey: "k"}); err != nil {
		t.Fatal(err)
	}

	summary, err := wallet.GetFinancialSummary(ctx, "u1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Days != DEFAULT_SUMMARY_DAYS || len(summary.Items) != 2 {
		t.Fatalf("summary = %+v", summary)
	}
	if !summary.Net.Equal(dec("70")) {
		t.Fatalf("net = %s, want 70", summary.Net)
	}

	if _, err := wallet.GetFinancialSummary(ctx, "u1", MAX_SUMMARY_DAYS+1); !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestTransactionHistoryScopedToUser(t *testing.T) {
	store := newMemStore()
	store.addUser("u1", "0")
	store.addUser("u2", "0")
	wallet := newTestWallet(t, store)
	ctx := context.Background()

	deposit, err := wallet.AddBalance(ctx, "u1", dec("5"), "")
	if err != nil {
		t.Fatal(err)
	}
	if deposit.Description != DEFAULT_DEPOSIT_DESCRIPTION {
		t.Fatalf("description = %q", deposit.Description)
	}

	if _, err := wallet.GetTransaction(ctx, "u2", deposit.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign transaction error = %v, want ErrNotFound", err)
	}
	page, err := wallet.GetTransactionHistory(ctx, "u2", models.Page{}, "")
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 0 || len(page.Items) != 0 {
		t.Fatalf("u2 history = %+v", page)
	}
	if _, err := wallet.GetTransactionHistory(ctx, "u1", models.Page{}, "bonus"); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown type error = %v", err)
	}
	if _, err := wallet.AddBalance(ctx, "u1", dec("-1"), ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("negative deposit error = %v", err)
	}
}
