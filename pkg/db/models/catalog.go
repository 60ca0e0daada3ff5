package models

import (
	"time"

	"github.com/google/uuid"
)

// EquipmentType is a branch catalog entry keyed by its canonical uppercase name.
type EquipmentType struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BranchID   uuid.UUID `gorm:"column:branch_id;type:uuid;not null"`
	Name       string    `gorm:"column:name;not null"`
	UsageCount int64     `gorm:"column:usage_count;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BrandModel is a branch catalog entry keyed by its canonical (brand, model) pair.
type BrandModel struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BranchID   uuid.UUID `gorm:"column:branch_id;type:uuid;not null"`
	Brand      string    `gorm:"column:brand;not null"`
	Model      string    `gorm:"column:model;not null"`
	UsageCount int64     `gorm:"column:usage_count;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
