package orders

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairdesk-backend/internal/history"
	"github.com/angelmondragon/repairdesk-backend/internal/tenancy"
	"github.com/angelmondragon/repairdesk-backend/pkg/db"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/angelmondragon/repairdesk-backend/pkg/outbox"
	"github.com/angelmondragon/repairdesk-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/repairdesk-backend/pkg/storage"
)

const (
	signatureKind = storage.KindSignature
	photoKind     = storage.KindPhoto
)

// AddPhoto uploads a device photo and records it with one history entry.
func (s *service) AddPhoto(ctx context.Context, scope tenancy.Scope, orderID uuid.UUID, input AddPhotoInput) (*models.OrderPhoto, error) {
	if err := requireScope(scope); err != nil {
		return nil, err
	}
	if len(input.Data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "photo is required")
	}
	if _, err := s.GetOrder(ctx, scope, orderID); err != nil {
		return nil, err
	}

	object, err := s.uploadImage(ctx, scope.BranchID, orderID, photoKind, input.Data, s.cfg.MaxPhotoBytes)
	if err != nil {
		return nil, err
	}

	var photo *models.OrderPhoto
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, scope.BranchID, orderID)
		if err != nil {
			return notFound(err, "order not found")
		}

		now := s.now()
		photo = &models.OrderPhoto{
			ID:          uuid.New(),
			OrderID:     order.ID,
			URL:         object.URL,
			ObjectKey:   object.Key,
			ContentType: object.ContentType,
			Caption:     trimmedOrNil(input.Caption),
			CreatedAt:   now,
		}
		if err := repo.CreatePhoto(ctx, photo); err != nil {
			return db.Classify(err, "insert order photo")
		}

		actor := scope.UserID
		status := order.Status
		if _, err := s.history.Append(ctx, tx, history.AppendInput{
			OrderID:        order.ID,
			ActorUserID:    &actor,
			PreviousStatus: &status,
			NewStatus:      status,
			Action:         enums.HistoryActionOther,
			Note:           photo.Caption,
			Payload: models.HistoryPayload{Photo: &models.PhotoPayload{
				PhotoID: photo.ID,
				URL:     photo.URL,
			}},
			At: now,
		}); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPhotoAdded,
			AggregateType: enums.AggregateServiceOrder,
			AggregateID:   order.ID,
			BranchID:      order.BranchID,
			Actor:         actorRef(scope),
			OccurredAt:    now,
			Data: payloads.OrderPhotoAddedEvent{
				OrderID:  order.ID,
				BranchID: order.BranchID,
				PhotoID:  photo.ID,
				URL:      photo.URL,
			},
		})
	})
	if txErr != nil {
		return nil, s.discardUpload(ctx, "add_photo", object, db.Classify(txErr, "add order photo"))
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": orderID.String(),
		"photo_id": photo.ID.String(),
	}), "order.photo_added")
	return photo, nil
}

// uploadImage sniffs and stores an image. An empty payload is not an error
// and yields no object.
func (s *service) uploadImage(ctx context.Context, branchID, orderID uuid.UUID, kind storage.Kind, data []byte, maxBytes int) (*storage.Object, error) {
	if len(data) == 0 {
		return nil, nil
	}
	detected, err := storage.SniffImage(data, maxBytes)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid image").
			WithDetails(map[string]any{"kind": string(kind)})
	}
	if s.blobs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "blob store not configured")
	}
	key := storage.ObjectKey(branchID, orderID, kind, detected.Extension())
	object, err := s.blobs.Put(ctx, key, detected.String(), data)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "object_key", key), "blob upload failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload image")
	}
	return &object, nil
}

// discardUpload removes an object whose database write failed. When the
// removal fails as well the object is orphaned and the caller gets
// PARTIAL_WRITE naming it.
func (s *service) discardUpload(ctx context.Context, operation string, object *storage.Object, cause error) error {
	if object == nil {
		return cause
	}
	delErr := s.blobs.Delete(ctx, object.Key)
	if delErr == nil {
		return cause
	}
	s.metrics.PartialWrite(operation)
	combined := multierr.Append(cause, delErr)
	s.logg.Error(s.logg.WithFields(ctx, map[string]any{
		"operation":  operation,
		"object_key": object.Key,
	}), "orphaned blob after failed write", combined)

	code := pkgerrors.CodeDependency
	if typed := pkgerrors.As(cause); typed != nil {
		code = typed.Code()
	}
	return pkgerrors.Wrap(pkgerrors.CodePartialWrite, combined, "write failed and uploaded image could not be removed").
		WithDetails(map[string]any{
			"operation":  operation,
			"object_key": object.Key,
			"object_url": object.URL,
			"cause_code": string(code),
		})
}
