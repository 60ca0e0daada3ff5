package tenancy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
)

// Repository reads memberships and applies tenant/branch lifecycle changes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListMemberships(ctx context.Context, userID uuid.UUID) ([]membershipRow, error)
	FindTenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error)
	DisableTenant(ctx context.Context, tenantID uuid.UUID, at time.Time) (int64, error)
	FindBranch(ctx context.Context, branchID uuid.UUID) (*models.Branch, error)
	CountBranchOrders(ctx context.Context, branchID uuid.UUID) (int64, error)
	DeleteBranch(ctx context.Context, branchID uuid.UUID) error
	ListTenantMembers(ctx context.Context, tenantID uuid.UUID) ([]memberRef, error)
	ListBranchMembers(ctx context.Context, branchID uuid.UUID) ([]memberRef, error)
}

// memberRef identifies one staff membership whose cached scope may need clearing.
type memberRef struct {
	UserID   uuid.UUID
	BranchID uuid.UUID
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

func (r *repository) ListMemberships(ctx context.Context, userID uuid.UUID) ([]membershipRow, error) {
	var rows []membershipRow
	err := r.db.WithContext(ctx).
		Table("staff_members AS sm").
		Select(`sm.user_id AS user_id,
			sm.branch_id AS branch_id,
			sm.role AS role,
			sm.active AS active,
			b.code AS branch_code,
			b.active AS branch_active,
			b.tenant_id AS tenant_id,
			t.disabled_at AS tenant_disabled_at`).
		Joins("JOIN branches b ON b.id = sm.branch_id").
		Joins("JOIN tenants t ON t.id = b.tenant_id").
		Where("sm.user_id = ?", userID).
		Order("b.code ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindTenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).Where("id = ?", tenantID).First(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *repository) DisableTenant(ctx context.Context, tenantID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("id = ? AND disabled_at IS NULL", tenantID).
		Updates(map[string]any{"disabled_at": at, "updated_at": at})
	return res.RowsAffected, res.Error
}

func (r *repository) FindBranch(ctx context.Context, branchID uuid.UUID) (*models.Branch, error) {
	var branch models.Branch
	if err := r.db.WithContext(ctx).Where("id = ?", branchID).First(&branch).Error; err != nil {
		return nil, err
	}
	return &branch, nil
}

func (r *repository) CountBranchOrders(ctx context.Context, branchID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ServiceOrder{}).
		Where("branch_id = ?", branchID).
		Count(&count).Error
	return count, err
}

// DeleteBranch removes the branch with its staff, customers, catalog and
// numbering rows. Orders are never removed here; a remaining order makes the
// final delete fail on its foreign key.
func (r *repository) DeleteBranch(ctx context.Context, branchID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	for _, model := range []any{
		&models.OrderSequence{},
		&models.BrandModel{},
		&models.EquipmentType{},
		&models.Customer{},
		&models.StaffMember{},
	} {
		if err := db.Where("branch_id = ?", branchID).Delete(model).Error; err != nil {
			return err
		}
	}
	return db.Where("id = ?", branchID).Delete(&models.Branch{}).Error
}

func (r *repository) ListTenantMembers(ctx context.Context, tenantID uuid.UUID) ([]memberRef, error) {
	var rows []memberRef
	err := r.db.WithContext(ctx).
		Table("staff_members AS sm").
		Select("sm.user_id AS user_id, sm.branch_id AS branch_id").
		Joins("JOIN branches b ON b.id = sm.branch_id").
		Where("b.tenant_id = ?", tenantID).
		Scan(&rows).Error
	return rows, err
}

func (r *repository) ListBranchMembers(ctx context.Context, branchID uuid.UUID) ([]memberRef, error) {
	var rows []memberRef
	err := r.db.WithContext(ctx).
		Table("staff_members").
		Select("user_id, branch_id").
		Where("branch_id = ?", branchID).
		Scan(&rows).Error
	return rows, err
}
