package main

import (
	"context"

	"scratchcard/internal/services"

	"github.com/robfig/cron/v3"
	"github.com/samber/do"
	log "github.com/sirupsen/logrus"
)

const (
	defaultReconcileSchedule   = "@every 5m"
	defaultLedgerAuditSchedule = "@every 1h"
)

func newJobs(container *do.Injector) ([]CronJob, error) {
	serviceConfig, err := do.Invoke[*services.ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	serviceReconcile, err := do.Invoke[*services.ServiceReconcile](container)
	if err != nil {
		return nil, err
	}

	return []CronJob{
		&ReconcileJob{serviceConfig, serviceReconcile},
		&LedgerAuditJob{serviceConfig, serviceReconcile},
	}, nil
}

// ReconcileJob credits wins whose ledger row was lost after the purchase committed.
type ReconcileJob struct {
	config    *services.ServiceConfig
	reconcile *services.ServiceReconcile
}

func (j *ReconcileJob) Start(cronRunner *cron.Cron) error {
	ctx := context.Background()
	timeline, err := j.config.GetStringConfig(ctx, services.CONFIG_CRONJOB_RECONCILE, defaultReconcileSchedule)
	if err != nil {
		log.WithError(err).Warn("reconcile schedule not loaded, using default")
	}
	if timeline == "" {
		timeline = defaultReconcileSchedule
	}

	_, err = cronRunner.AddFunc(timeline, j.runScheduledTask)
	if err != nil {
		return err
	}
	log.WithField("cron", timeline).Info("Reconcile cronjob scheduled")
	return nil
}

func (j *ReconcileJob) runScheduledTask() {
	ctx := context.Background()
	limit, err := j.config.GetIntConfig(ctx, services.CONFIG_RECONCILE_BATCH_SIZE, services.DEFAULT_RECONCILE_BATCH_SIZE)
	if err != nil {
		log.WithError(err).Debug("reconcile batch size not configured")
	}

	report, err := j.reconcile.ReconcileWins(ctx, limit)
	if err != nil {
		log.WithError(err).Error("reconcile wins")
		return
	}
	if report.Scanned > 0 {
		log.WithFields(log.Fields{
			"scanned":  report.Scanned,
			"credited": report.Credited,
			"failed":   report.Failed,
		}).Info("reconcile wins finished")
	}
}

type LedgerAuditJob struct {
	config    *services.ServiceConfig
	reconcile *services.ServiceReconcile
}

func (j *LedgerAuditJob) Start(cronRunner *cron.Cron) error {
	ctx := context.Background()
	timeline, err := j.config.GetStringConfig(ctx, services.CONFIG_CRONJOB_LEDGER_AUDIT, defaultLedgerAuditSchedule)
	if err != nil {
		log.WithError(err).Warn("ledger audit schedule not loaded, using default")
	}
	if timeline == "" {
		timeline = defaultLedgerAuditSchedule
	}

	_, err = cronRunner.AddFunc(timeline, j.runScheduledTask)
	if err != nil {
		return err
	}
	log.WithField("cron", timeline).Info("Ledger audit cronjob scheduled")
	return nil
}

func (j *LedgerAuditJob) runScheduledTask() {
	mismatches, err := j.reconcile.AuditLedger(context.Background(), 0)
	if err != nil {
		log.WithError(err).Error("ledger audit")
		return
	}
	log.WithField("mismatches", len(mismatches)).Info("ledger audit finished")
}
