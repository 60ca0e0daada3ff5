package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/angelmondragon/repairdesk-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.ServiceOrder) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, branchID, orderID uuid.UUID) (*models.ServiceOrder, error) {
	var order models.ServiceOrder
	err := r.db.WithContext(ctx).
		Where("id = ? AND branch_id = ?", orderID, branchID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, branchID, orderID uuid.UUID) (*models.ServiceOrder, error) {
	var order models.ServiceOrder
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND branch_id = ?", orderID, branchID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByNumber(ctx context.Context, branchID uuid.UUID, orderNumber string) (*models.ServiceOrder, error) {
	var order models.ServiceOrder
	err := r.db.WithContext(ctx).
		Where("order_number = ? AND branch_id = ?", orderNumber, branchID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns orders newest intake first.
func (r *repository) List(ctx context.Context, branchID uuid.UUID, params pagination.Params, filters ListFilters) (*pagination.Page[models.ServiceOrder], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := r.db.WithContext(ctx).
		Model(&models.ServiceOrder{}).
		Where("branch_id = ?", branchID)
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.CustomerID != nil {
		query = query.Where("customer_id = ?", *filters.CustomerID)
	}
	if cursor != nil {
		query = query.Where("(intake_at < ? OR (intake_at = ? AND id <= ?))", cursor.At, cursor.At, cursor.ID)
	}

	var rows []models.ServiceOrder
	if err := query.
		Order("intake_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	items, next := pagination.Trim(rows, params.Limit, func(o models.ServiceOrder) pagination.Cursor {
		return pagination.Cursor{At: o.IntakeAt, ID: o.ID}
	})
	return &pagination.Page[models.ServiceOrder]{Items: items, NextCursor: next}, nil
}

func (r *repository) Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.ServiceOrder{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

// PaymentAmounts is plucked rather than summed in SQL so money stays in decimal.
func (r *repository) PaymentAmounts(ctx context.Context, orderID uuid.UUID) ([]decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ?", orderID).
		Pluck("amount", &amounts).Error
	if err != nil {
		return nil, err
	}
	return amounts, nil
}

func (r *repository) ListForAudit(ctx context.Context, afterID uuid.UUID, limit int) ([]models.ServiceOrder, error) {
	var rows []models.ServiceOrder
	query := r.db.WithContext(ctx).Order("id ASC").Limit(pagination.NormalizeLimit(limit))
	if afterID != uuid.Nil {
		query = query.Where("id > ?", afterID)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreatePhoto(ctx context.Context, photo *models.OrderPhoto) error {
	return r.db.WithContext(ctx).Create(photo).Error
}

func (r *repository) ListPhotos(ctx context.Context, orderID uuid.UUID) ([]models.OrderPhoto, error) {
	var photos []models.OrderPhoto
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&photos).Error
	if err != nil {
		return nil, err
	}
	return photos, nil
}

func (r *repository) DeleteCascade(ctx context.Context, orderID uuid.UUID) (int64, error) {
	db := r.db.WithContext(ctx)
	dependents := []any{&models.OrderHistoryEntry{}, &models.Payment{}, &models.OrderPhoto{}}
	for _, model := range dependents {
		if err := db.Where("order_id = ?", orderID).Delete(model).Error; err != nil {
			return 0, err
		}
	}
	res := db.Where("id = ?", orderID).Delete(&models.ServiceOrder{})
	return res.RowsAffected, res.Error
}
