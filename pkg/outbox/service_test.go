package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairdesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
)

func TestEmitWritesEnvelopeInsideTransaction(t *testing.T) {
	client := dbtest.New(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, logger.Nop())

	orderID := uuid.New()
	branchID := uuid.New()
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateServiceOrder,
			AggregateID:   orderID,
			BranchID:      branchID,
			Actor:         &ActorRef{UserID: uuid.New(), Role: "front_desk"},
			Data:          map[string]string{"order_number": "OS-CEN-261015-00001"},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, client.DB().Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, orderID, rows[0].AggregateID)
	require.Equal(t, branchID, rows[0].BranchID)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	require.Equal(t, 1, envelope.Version)
	require.NotEmpty(t, envelope.EventID)
	require.Equal(t, "order.created", envelope.EventType)
	require.Equal(t, branchID, envelope.BranchID)
	require.JSONEq(t, `{"order_number":"OS-CEN-261015-00001"}`, string(envelope.Data))
}

func TestEmitRolledBackWithTransaction(t *testing.T) {
	client := dbtest.New(t)
	svc := NewService(NewRepository(client.DB()), nil)

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderDeleted,
			AggregateType: enums.AggregateServiceOrder,
			AggregateID:   uuid.New(),
			BranchID:      uuid.New(),
			Data:          struct{}{},
		}); err != nil {
			return err
		}
		return errors.New("later step failed")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestEmitRejectsMissingTxAndUnknownType(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	require.Error(t, svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventOrderCreated}))

	client := dbtest.New(t)
	require.Error(t, svc.Emit(context.Background(), client.DB(), DomainEvent{EventType: "order.unknown"}))
	require.Error(t, svc.Emit(context.Background(), client.DB(), DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateServiceOrder,
		AggregateID:   uuid.New(),
	}), "branch id is required")
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	client := dbtest.New(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
			return svc.Emit(ctx, tx, DomainEvent{
				EventType:     enums.EventPaymentRecorded,
				AggregateType: enums.AggregatePayment,
				AggregateID:   uuid.New(),
				BranchID:      uuid.New(),
				Data:          map[string]int{"n": i},
			})
		}))
	}

	pending, err := repo.CountPending(ctx, 3)
	require.NoError(t, err)
	require.EqualValues(t, 2, pending)

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		if err != nil {
			return err
		}
		require.Len(t, rows, 2)
		if err := repo.MarkPublishedTx(tx, rows[0].ID); err != nil {
			return err
		}
		return repo.MarkTerminalTx(tx, rows[1].ID, errors.New("bad payload"), 3)
	}))

	pending, err = repo.CountPending(ctx, 3)
	require.NoError(t, err)
	require.Zero(t, pending)
}

func TestMarkFailedIncrementsAttempts(t *testing.T) {
	client := dbtest.New(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()

	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateServiceOrder,
		AggregateID:   uuid.New(),
		BranchID:      uuid.New(),
		Payload:       json.RawMessage(`{}`),
	}
	require.NoError(t, repo.Insert(client.DB(), row))
	require.NoError(t, repo.MarkFailedTx(client.DB(), row.ID, errors.New("pubsub unavailable")))

	var stored models.OutboxEvent
	require.NoError(t, client.DB().WithContext(ctx).First(&stored, "id = ?", row.ID).Error)
	require.Equal(t, 1, stored.AttemptCount)
	require.NotNil(t, stored.LastError)
	require.Equal(t, "pubsub unavailable", *stored.LastError)
}

func TestDeletePublishedBeforeKeepsPendingRows(t *testing.T) {
	client := dbtest.New(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cutoff := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)

	insert := func(createdAt time.Time, publishedAt *time.Time, attempts int) uuid.UUID {
		row := models.OutboxEvent{
			ID:            uuid.New(),
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateServiceOrder,
			AggregateID:   uuid.New(),
			BranchID:      uuid.New(),
			Payload:       json.RawMessage(`{}`),
			CreatedAt:     createdAt,
			PublishedAt:   publishedAt,
			AttemptCount:  attempts,
		}
		require.NoError(t, repo.Insert(client.DB(), row))
		return row.ID
	}
	insert(old, &old, 0)
	insert(old, nil, 10)
	pending := insert(old, nil, 2)
	fresh := insert(recent, &recent, 0)

	deleted, err := repo.DeletePublishedBefore(ctx, nil, cutoff, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, client.DB().Order("created_at ASC").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	require.Equal(t, pending, remaining[0].ID)
	require.Equal(t, fresh, remaining[1].ID)
}
