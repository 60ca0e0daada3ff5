package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
)

const defaultOutboxRetentionDays = 30

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Repository    outboxRetentionRepo
	RetentionDays int
	// ParkedAttempts is the attempt count at which the publisher gave up on a row.
	ParkedAttempts int
	Now            func() time.Time
}

// NewOutboxRetentionJob prunes delivered and parked outbox rows so the
// publisher's scan stays small.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if params.ParkedAttempts <= 0 {
		return nil, fmt.Errorf("parked attempt count required")
	}
	days := params.RetentionDays
	if days <= 0 {
		days = defaultOutboxRetentionDays
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &outboxRetentionJob{
		logg:           params.Logger,
		db:             params.DB,
		repo:           params.Repository,
		retention:      time.Duration(days) * 24 * time.Hour,
		parkedAttempts: params.ParkedAttempts,
		now:            now,
	}, nil
}

type outboxRetentionJob struct {
	logg           *logger.Logger
	db             txRunner
	repo           outboxRetentionRepo
	retention      time.Duration
	parkedAttempts int
	now            func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeletePublishedBefore(ctx, tx, cutoff, j.parkedAttempts)
		deleted = rows
		return err
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":          cutoff,
		"parked_attempts": j.parkedAttempts,
		"rows_deleted":    deleted,
	}), "outbox retention cleanup complete")
	return nil
}
