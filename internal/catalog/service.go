package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairdesk-backend/pkg/db"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
	"github.com/angelmondragon/repairdesk-backend/pkg/pagination"
)

// Service resolves catalog labels to rows and serves intake suggestions.
// Resolve* and IncrementUsage take the caller's transaction; a nil tx runs on
// the base connection.
type Service interface {
	ResolveEquipmentType(ctx context.Context, tx *gorm.DB, branchID uuid.UUID, name string) (*models.EquipmentType, error)
	ResolveBrandModel(ctx context.Context, tx *gorm.DB, branchID uuid.UUID, brand, model string) (*models.BrandModel, error)
	IncrementUsage(ctx context.Context, tx *gorm.DB, equipmentTypeID uuid.UUID, brandModelID *uuid.UUID) error
	ListEquipmentTypes(ctx context.Context, branchID uuid.UUID, prefix string, limit int) ([]models.EquipmentType, error)
	ListBrandModels(ctx context.Context, branchID uuid.UUID, brand string, limit int) ([]models.BrandModel, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("catalog repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) ResolveEquipmentType(ctx context.Context, tx *gorm.DB, branchID uuid.UUID, name string) (*models.EquipmentType, error) {
	canonical := CanonicalName(name)
	if canonical == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "equipment type is required").
			WithDetails(map[string]any{"field": "equipment_type"})
	}
	repo := s.repo.WithTx(tx)

	candidate := &models.EquipmentType{ID: uuid.New(), BranchID: branchID, Name: canonical}
	created, err := repo.InsertEquipmentTypeIfAbsent(ctx, candidate)
	if err != nil {
		return nil, db.Classify(err, "create equipment type")
	}
	if created {
		s.logg.Info(s.logg.WithField(ctx, "equipment_type", canonical), "catalog.equipment_type_created")
		return candidate, nil
	}
	row, err := repo.FindEquipmentType(ctx, branchID, canonical)
	if err != nil {
		return nil, db.Classify(err, "load equipment type")
	}
	return row, nil
}

// ResolveBrandModel accepts a brand, a model, or both; a missing half is stored empty.
func (s *service) ResolveBrandModel(ctx context.Context, tx *gorm.DB, branchID uuid.UUID, brand, model string) (*models.BrandModel, error) {
	canonicalBrand := CanonicalName(brand)
	canonicalModel := CanonicalName(model)
	if canonicalBrand == "" && canonicalModel == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "brand or model is required")
	}
	repo := s.repo.WithTx(tx)

	candidate := &models.BrandModel{ID: uuid.New(), BranchID: branchID, Brand: canonicalBrand, Model: canonicalModel}
	created, err := repo.InsertBrandModelIfAbsent(ctx, candidate)
	if err != nil {
		return nil, db.Classify(err, "create brand model")
	}
	if created {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"brand": canonicalBrand,
			"model": canonicalModel,
		}), "catalog.brand_model_created")
		return candidate, nil
	}
	row, err := repo.FindBrandModel(ctx, branchID, canonicalBrand, canonicalModel)
	if err != nil {
		return nil, db.Classify(err, "load brand model")
	}
	return row, nil
}

func (s *service) IncrementUsage(ctx context.Context, tx *gorm.DB, equipmentTypeID uuid.UUID, brandModelID *uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	if err := repo.IncrementEquipmentTypeUsage(ctx, equipmentTypeID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment equipment type usage")
	}
	if brandModelID != nil {
		if err := repo.IncrementBrandModelUsage(ctx, *brandModelID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment brand model usage")
		}
	}
	return nil
}

func (s *service) ListEquipmentTypes(ctx context.Context, branchID uuid.UUID, prefix string, limit int) ([]models.EquipmentType, error) {
	rows, err := s.repo.ListEquipmentTypes(ctx, branchID, CanonicalName(prefix), pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list equipment types")
	}
	return rows, nil
}

func (s *service) ListBrandModels(ctx context.Context, branchID uuid.UUID, brand string, limit int) ([]models.BrandModel, error) {
	rows, err := s.repo.ListBrandModels(ctx, branchID, CanonicalName(brand), pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list brand models")
	}
	return rows, nil
}
