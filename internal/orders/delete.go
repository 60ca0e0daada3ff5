package orders

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairdesk-backend/internal/tenancy"
	"github.com/angelmondragon/repairdesk-backend/pkg/db"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/angelmondragon/repairdesk-backend/pkg/outbox"
	"github.com/angelmondragon/repairdesk-backend/pkg/outbox/payloads"
)

// DeleteOrder removes an order with its photos, payments and history. Only
// owners and managers may do this. Stored images are removed after commit on
// a best-effort basis.
func (s *service) DeleteOrder(ctx context.Context, scope tenancy.Scope, orderID uuid.UUID) error {
	if err := requireScope(scope); err != nil {
		return err
	}
	if !scope.Role.CanAdminister() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only owners and managers can delete orders")
	}

	var objectKeys []string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, scope.BranchID, orderID)
		if err != nil {
			return notFound(err, "order not found")
		}
		photos, err := repo.ListPhotos(ctx, order.ID)
		if err != nil {
			return db.Classify(err, "load order photos")
		}
		for _, p := range photos {
			objectKeys = append(objectKeys, p.ObjectKey)
		}
		if order.SignatureKey != nil {
			objectKeys = append(objectKeys, *order.SignatureKey)
		}

		deleted, err := repo.DeleteCascade(ctx, order.ID)
		if err != nil {
			return db.Classify(err, "delete order")
		}
		if deleted == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDeleted,
			AggregateType: enums.AggregateServiceOrder,
			AggregateID:   order.ID,
			BranchID:      order.BranchID,
			Actor:         actorRef(scope),
			OccurredAt:    s.now(),
			Data: payloads.OrderDeletedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				BranchID:    order.BranchID,
			},
		})
	})
	if err != nil {
		return db.Classify(err, "delete order")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":  orderID.String(),
		"branch_id": scope.BranchID.String(),
	})
	if cleanupErr := s.removeObjects(ctx, objectKeys); cleanupErr != nil {
		s.logg.Error(ctx, "order.deleted with orphaned blobs", cleanupErr)
	}
	s.logg.Info(ctx, "order.deleted")
	return nil
}

func (s *service) removeObjects(ctx context.Context, keys []string) error {
	if s.blobs == nil || len(keys) == 0 {
		return nil
	}
	var errs error
	for _, key := range keys {
		errs = multierr.Append(errs, s.blobs.Delete(ctx, key))
	}
	return errs
}
