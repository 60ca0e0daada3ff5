package customers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
)

// Repository persists customers keyed by (branch_id, phone).
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertIfAbsent(ctx context.Context, customer *models.Customer) (bool, error)
	FindByPhone(ctx context.Context, branchID uuid.UUID, phone string) (*models.Customer, error)
	FindByID(ctx context.Context, branchID, id uuid.UUID) (*models.Customer, error)
	Update(ctx context.Context, branchID, id uuid.UUID, updates map[string]any) error
	CountOrders(ctx context.Context, id uuid.UUID) (int64, error)
	Delete(ctx context.Context, branchID, id uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// InsertIfAbsent inserts customer unless the branch already has its phone.
// It reports whether a row was written.
func (r *repository) InsertIfAbsent(ctx context.Context, customer *models.Customer) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "branch_id"}, {Name: "phone"}},
			DoNothing: true,
		}).
		Create(customer)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindByPhone(ctx context.Context, branchID uuid.UUID, phone string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Where("branch_id = ? AND phone = ?", branchID, phone).
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) FindByID(ctx context.Context, branchID, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Where("id = ? AND branch_id = ?", id, branchID).
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) Update(ctx context.Context, branchID, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ? AND branch_id = ?", id, branchID).
		Updates(updates).Error
}

func (r *repository) CountOrders(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ServiceOrder{}).
		Where("customer_id = ?", id).
		Count(&count).Error
	return count, err
}

func (r *repository) Delete(ctx context.Context, branchID, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND branch_id = ?", id, branchID).
		Delete(&models.Customer{})
	return res.RowsAffected, res.Error
}
