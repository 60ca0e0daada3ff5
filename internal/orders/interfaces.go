package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/outbox"
	"github.com/angelmondragon/repairdesk-backend/pkg/pagination"
	"github.com/angelmondragon/repairdesk-backend/pkg/storage"
)

// Repository defines persistence operations for service orders. Every read
// takes the owning branch so a foreign order is indistinguishable from a
// missing one.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.ServiceOrder) error
	FindByID(ctx context.Context, branchID, orderID uuid.UUID) (*models.ServiceOrder, error)
	// FindByIDForUpdate locks the order row until the surrounding tx ends.
	FindByIDForUpdate(ctx context.Context, branchID, orderID uuid.UUID) (*models.ServiceOrder, error)
	FindByNumber(ctx context.Context, branchID uuid.UUID, orderNumber string) (*models.ServiceOrder, error)
	List(ctx context.Context, branchID uuid.UUID, params pagination.Params, filters ListFilters) (*pagination.Page[models.ServiceOrder], error)
	FindDetail(ctx context.Context, branchID, orderID uuid.UUID) (*OrderDetail, error)
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	PaymentAmounts(ctx context.Context, orderID uuid.UUID) ([]decimal.Decimal, error)
	CreatePhoto(ctx context.Context, photo *models.OrderPhoto) error
	ListPhotos(ctx context.Context, orderID uuid.UUID) ([]models.OrderPhoto, error)
	// DeleteCascade removes history, payments, photos and the order itself.
	DeleteCascade(ctx context.Context, orderID uuid.UUID) (int64, error)
	// ListForAudit pages through orders of every branch by id. Operator jobs only.
	ListForAudit(ctx context.Context, afterID uuid.UUID, limit int) ([]models.ServiceOrder, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// BlobStore keeps signature and photo images. The engine stores only the returned reference.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (storage.Object, error)
	Delete(ctx context.Context, key string) error
}
