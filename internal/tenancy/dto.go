package tenancy

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
)

// Scope is the resolved tenant/branch context every engine operation runs under.
type Scope struct {
	UserID     uuid.UUID       `json:"user_id"`
	TenantID   uuid.UUID       `json:"tenant_id"`
	BranchID   uuid.UUID       `json:"branch_id"`
	BranchCode string          `json:"branch_code"`
	Role       enums.StaffRole `json:"role"`
}

// membershipRow is one staff membership joined with its branch and tenant.
type membershipRow struct {
	UserID           uuid.UUID
	BranchID         uuid.UUID
	Role             enums.StaffRole
	Active           bool
	BranchCode       string
	BranchActive     bool
	TenantID         uuid.UUID
	TenantDisabledAt *time.Time
}

func (m membershipRow) usable() bool {
	return m.Active && m.BranchActive && m.TenantDisabledAt == nil
}

func (m membershipRow) scope() Scope {
	return Scope{
		UserID:     m.UserID,
		TenantID:   m.TenantID,
		BranchID:   m.BranchID,
		BranchCode: m.BranchCode,
		Role:       m.Role,
	}
}
