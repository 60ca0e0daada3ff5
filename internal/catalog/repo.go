package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
)

// Repository persists the branch catalog of equipment types and brand/models.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertEquipmentTypeIfAbsent(ctx context.Context, row *models.EquipmentType) (bool, error)
	FindEquipmentType(ctx context.Context, branchID uuid.UUID, name string) (*models.EquipmentType, error)
	InsertBrandModelIfAbsent(ctx context.Context, row *models.BrandModel) (bool, error)
	FindBrandModel(ctx context.Context, branchID uuid.UUID, brand, model string) (*models.BrandModel, error)
	IncrementEquipmentTypeUsage(ctx context.Context, id uuid.UUID) error
	IncrementBrandModelUsage(ctx context.Context, id uuid.UUID) error
	ListEquipmentTypes(ctx context.Context, branchID uuid.UUID, prefix string, limit int) ([]models.EquipmentType, error)
	ListBrandModels(ctx context.Context, branchID uuid.UUID, brand string, limit int) ([]models.BrandModel, error)
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

func (r *repository) InsertEquipmentTypeIfAbsent(ctx context.Context, row *models.EquipmentType) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "branch_id"}, {Name: "name"}},
			DoNothing: true,
		}).
		Create(row)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) FindEquipmentType(ctx context.Context, branchID uuid.UUID, name string) (*models.EquipmentType, error) {
	var row models.EquipmentType
	if err := r.db.WithContext(ctx).
		Where("branch_id = ? AND name = ?", branchID, name).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) InsertBrandModelIfAbsent(ctx context.Context, row *models.BrandModel) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "branch_id"}, {Name: "brand"}, {Name: "model"}},
			DoNothing: true,
		}).
		Create(row)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) FindBrandModel(ctx context.Context, branchID uuid.UUID, brand, model string) (*models.BrandModel, error) {
	var row models.BrandModel
	if err := r.db.WithContext(ctx).
		Where("branch_id = ? AND brand = ? AND model = ?", branchID, brand, model).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) IncrementEquipmentTypeUsage(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.EquipmentType{}).
		Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
}

func (r *repository) IncrementBrandModelUsage(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.BrandModel{}).
		Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
}

func (r *repository) ListEquipmentTypes(ctx context.Context, branchID uuid.UUID, prefix string, limit int) ([]models.EquipmentType, error) {
	query := r.db.WithContext(ctx).Where("branch_id = ?", branchID)
	if prefix != "" {
		query = query.Where(`name LIKE ? ESCAPE '\'`, likePrefix(prefix))
	}
	var rows []models.EquipmentType
	if err := query.Order("usage_count DESC, name ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePrefix matches values starting with prefix, taking its wildcards literally.
func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

func (r *repository) ListBrandModels(ctx context.Context, branchID uuid.UUID, brand string, limit int) ([]models.BrandModel, error) {
	query := r.db.WithContext(ctx).Where("branch_id = ?", branchID)
	if brand != "" {
		query = query.Where("brand = ?", brand)
	}
	var rows []models.BrandModel
	if err := query.Order("usage_count DESC, brand ASC, model ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
