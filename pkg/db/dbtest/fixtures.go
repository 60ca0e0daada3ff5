package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/repairdesk-backend/pkg/db"
	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
)

// Tenant inserts an enabled tenant.
func Tenant(t *testing.T, client *db.Client, name string) models.Tenant {
	t.Helper()
	tenant := models.Tenant{ID: uuid.New(), Name: name}
	if err := client.DB().Create(&tenant).Error; err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	return tenant
}

// Branch inserts an active branch under tenantID.
func Branch(t *testing.T, client *db.Client, tenantID uuid.UUID, code string) models.Branch {
	t.Helper()
	branch := models.Branch{ID: uuid.New(), TenantID: tenantID, Name: "Branch " + code, Code: code, Active: true}
	if err := client.DB().Create(&branch).Error; err != nil {
		t.Fatalf("seed branch: %v", err)
	}
	return branch
}

// Staff inserts an active membership for a fresh user id.
func Staff(t *testing.T, client *db.Client, branchID uuid.UUID, role enums.StaffRole) models.StaffMember {
	t.Helper()
	return Membership(t, client, uuid.New(), branchID, role)
}

// Membership inserts an active membership for userID.
func Membership(t *testing.T, client *db.Client, userID, branchID uuid.UUID, role enums.StaffRole) models.StaffMember {
	t.Helper()
	member := models.StaffMember{ID: uuid.New(), UserID: userID, BranchID: branchID, Role: role, Active: true}
	if err := client.DB().Create(&member).Error; err != nil {
		t.Fatalf("seed staff member: %v", err)
	}
	return member
}

// Workspace is a tenant with one branch and a front-desk member, the common
// starting point for engine tests.
type Workspace struct {
	Tenant models.Tenant
	Branch models.Branch
	Staff  models.StaffMember
}

func NewWorkspace(t *testing.T, client *db.Client, code string) Workspace {
	t.Helper()
	tenant := Tenant(t, client, "Tenant "+code)
	branch := Branch(t, client, tenant.ID, code)
	staff := Staff(t, client, branch.ID, enums.StaffRoleFrontDesk)
	return Workspace{Tenant: tenant, Branch: branch, Staff: staff}
}

// Clock returns a deterministic UTC clock that advances one second per call.
func Clock(start time.Time) func() time.Time {
	current := start.UTC()
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}
