package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/repairdesk-backend/internal/payments"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
)

const defaultAuditPageSize = 100

type balanceAuditor interface {
	AuditBalances(ctx context.Context, afterID uuid.UUID, limit int) (*payments.AuditPage, error)
}

type driftRecorder interface {
	SetLedgerDrift(orders int)
}

type LedgerAuditJobParams struct {
	Logger   *logger.Logger
	Auditor  balanceAuditor
	Metrics  driftRecorder
	PageSize int
}

// NewLedgerAuditJob walks every order and reports those whose stored balance
// no longer matches their payments. It never repairs a balance.
func NewLedgerAuditJob(params LedgerAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Auditor == nil {
		return nil, fmt.Errorf("balance auditor required")
	}
	size := params.PageSize
	if size <= 0 {
		size = defaultAuditPageSize
	}
	return &ledgerAuditJob{
		logg:     params.Logger,
		auditor:  params.Auditor,
		metrics:  params.Metrics,
		pageSize: size,
	}, nil
}

type ledgerAuditJob struct {
	logg     *logger.Logger
	auditor  balanceAuditor
	metrics  driftRecorder
	pageSize int
}

func (j *ledgerAuditJob) Name() string { return "ledger-audit" }

func (j *ledgerAuditJob) Run(ctx context.Context) error {
	checked, drifted := 0, 0
	cursor := uuid.Nil
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := j.auditor.AuditBalances(ctx, cursor, j.pageSize)
		if err != nil {
			return fmt.Errorf("ledger audit after %s: %w", cursor, err)
		}
		checked += page.Checked
		drifted += len(page.Drifted)
		if page.Checked < j.pageSize {
			break
		}
		cursor = page.LastID
	}

	if j.metrics != nil {
		j.metrics.SetLedgerDrift(drifted)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"orders_checked": checked,
		"orders_drifted": drifted,
	})
	if drifted > 0 {
		j.logg.Warn(logCtx, "ledger audit found drifted balances")
		return nil
	}
	j.logg.Info(logCtx, "ledger audit complete")
	return nil
}
