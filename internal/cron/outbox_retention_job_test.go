package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
)

func TestOutboxRetentionJobUsesCutoffAndParkedAttempts(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:         logger.Nop(),
		DB:             passthroughTx{},
		Repository:     repo,
		ParkedAttempts: 10,
		Now:            func() time.Time { return now },
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, repo.called)
	assert.Equal(t, now.Add(-defaultOutboxRetentionDays*24*time.Hour), repo.lastCutoff)
	assert.Equal(t, 10, repo.minAttempts)
}

func TestOutboxRetentionJobCustomRetention(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:         logger.Nop(),
		DB:             passthroughTx{},
		Repository:     repo,
		RetentionDays:  7,
		ParkedAttempts: 3,
		Now:            func() time.Time { return now },
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), repo.lastCutoff)
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:         logger.Nop(),
		DB:             passthroughTx{},
		Repository:     &fakeOutboxRetentionRepo{err: errors.New("boom")},
		ParkedAttempts: 10,
	})
	require.NoError(t, err)
	assert.Error(t, job.Run(context.Background()))
}

func TestNewOutboxRetentionJobRequiresParkedAttempts(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.Nop(),
		DB:         passthroughTx{},
		Repository: &fakeOutboxRetentionRepo{},
	})
	assert.Error(t, err)
}

type fakeOutboxRetentionRepo struct {
	lastCutoff  time.Time
	minAttempts int
	called      int
	err         error
}

func (f *fakeOutboxRetentionRepo) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	f.minAttempts = minAttemptCount
	if f.err != nil {
		return 0, f.err
	}
	return 7, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
