package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
)

// Service records order history entries.
type Service interface {
	// Append writes one entry on tx, which must be the transaction of the change it describes.
	Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.OrderHistoryEntry, error)
	List(ctx context.Context, orderID uuid.UUID, ascending bool) ([]models.OrderHistoryEntry, error)
	Count(ctx context.Context, orderID uuid.UUID) (int64, error)
}

// AppendInput captures one immutable history entry.
type AppendInput struct {
	OrderID        uuid.UUID
	ActorUserID    *uuid.UUID
	PreviousStatus *enums.OrderStatus
	NewStatus      enums.OrderStatus
	Action         enums.HistoryAction
	Note           *string
	Payload        models.HistoryPayload
	At             time.Time
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("history repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.OrderHistoryEntry, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for history append")
	}
	if input.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if !input.NewStatus.IsValid() {
		return nil, fmt.Errorf("invalid order status %q", input.NewStatus)
	}
	if !input.Action.IsValid() {
		return nil, fmt.Errorf("invalid history action %q", input.Action)
	}
	if input.Action == enums.HistoryActionCreation && input.PreviousStatus != nil {
		return nil, fmt.Errorf("creation entry cannot carry a previous status")
	}
	if input.Action != enums.HistoryActionCreation && input.PreviousStatus == nil {
		return nil, fmt.Errorf("previous status is required for %s entries", input.Action)
	}

	at := input.At
	if at.IsZero() {
		at = s.now()
	}
	entry := &models.OrderHistoryEntry{
		ID:             uuid.New(),
		OrderID:        input.OrderID,
		ActorUserID:    input.ActorUserID,
		PreviousStatus: input.PreviousStatus,
		NewStatus:      input.NewStatus,
		Action:         input.Action,
		Note:           input.Note,
		Payload:        input.Payload,
		CreatedAt:      at.UTC(),
	}
	if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
	}
	return entry, nil
}

func (s *service) List(ctx context.Context, orderID uuid.UUID, ascending bool) ([]models.OrderHistoryEntry, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	entries, err := s.repo.ListByOrderID(ctx, orderID, ascending)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order history")
	}
	return entries, nil
}

func (s *service) Count(ctx context.Context, orderID uuid.UUID) (int64, error) {
	count, err := s.repo.CountByOrderID(ctx, orderID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count order history")
	}
	return count, nil
}
