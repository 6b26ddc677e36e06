package services

import (
	"context"

	log "github.com/sirupsen/logrus"

	"scratchcard/internal/interfaces"
	"scratchcard/internal/models"

	"github.com/samber/do"
)

type ReconcileReport struct {
	Scanned  int `json:"scanned"`
	Credited int `json:"credited"`
	Failed   int `json:"failed"`
}

type ServiceReconcile struct {
	container *do.Injector
	ledger    interfaces.LedgerStore
}

func NewServiceReconcile(container *do.Injector) (*ServiceReconcile, error) {
	ledger, err := do.Invoke[interfaces.LedgerStore](container)
	if err != nil {
		return nil, err
	}

	return &ServiceReconcile{container, ledger}, nil
}

// ReconcileWins records the missing win credit of sessions that won but whose
// credit failed after the purchase was stored. The amount comes from the
// stored session, the outcome is never decided again.
func (service *ServiceReconcile) ReconcileWins(ctx context.Context, limit int) (*ReconcileReport, error) {
	if limit <= 0 {
		limit = DEFAULT_RECONCILE_BATCH_SIZE
	}

	sessions, err := service.ledger.ListUnpaidWins(ctx, limit)
	if err != nil {
		return nil, storageFailure("list unpaid wins", err, nil)
	}

	report := &ReconcileReport{Scanned: len(sessions)}
	for i := range sessions {
		session := &sessions[i]
		name := "reconciled"
		if prize := prizeFromGrid(session); prize != nil && prize.Name != "" {
			name = prize.Name
		}

		fields := log.Fields{"session_id": session.ID, "user_id": session.UserID, "amount": session.AmountWon.StringFixed(2)}
		if err := recordWin(ctx, service.ledger, session, name); err != nil {
			report.Failed++
			log.WithFields(fields).WithError(err).Error("win credit still not recorded")
			continue
		}
		report.Credited++
		log.WithFields(fields).Info("win credit reconciled")
	}
	return report, nil
}

// AuditLedger logs every user whose balance differs from the signed sum of
// their transactions and returns them.
func (service *ServiceReconcile) AuditLedger(ctx context.Context, limit int) ([]models.LedgerMismatch, error) {
	if limit <= 0 {
		limit = DEFAULT_LEDGER_AUDIT_BATCH
	}

	mismatches, err := service.ledger.ListLedgerMismatches(ctx, limit)
	if err != nil {
		return nil, storageFailure("ledger audit", err, nil)
	}

	for _, m := range mismatches {
		log.WithFields(log.Fields{
			"user_id":        m.UserID,
			"wallet_balance": m.WalletBalance.StringFixed(2),
			"ledger_balance": m.LedgerBalance.StringFixed(2),
		}).Error("wallet balance disagrees with ledger")
	}
	return mismatches, nil
}
