package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the company that owns one or more branches. Tenants are
// soft-disabled, never removed while branches exist.
type Tenant struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string     `gorm:"column:name;not null"`
	LegalName  *string    `gorm:"column:legal_name"`
	TaxID      *string    `gorm:"column:tax_id"`
	Email      *string    `gorm:"column:email"`
	Phone      *string    `gorm:"column:phone"`
	Address    *string    `gorm:"column:address"`
	DisabledAt *time.Time `gorm:"column:disabled_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// IsDisabled reports whether the tenant has been soft-disabled.
func (t Tenant) IsDisabled() bool {
	return t.DisabledAt != nil
}

// Branch is a physical location; customers, catalogs and orders are scoped to it.
type Branch struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  uuid.UUID `gorm:"column:tenant_id;type:uuid;not null"`
	Name      string    `gorm:"column:name;not null"`
	Code      string    `gorm:"column:code;not null"`
	Phone     *string   `gorm:"column:phone"`
	Email     *string   `gorm:"column:email"`
	Address   *string   `gorm:"column:address"`
	Active    bool      `gorm:"column:active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
