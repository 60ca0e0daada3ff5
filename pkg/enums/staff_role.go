package enums

import "fmt"

// StaffRole represents a branch-level permissions role.
type StaffRole string

const (
	StaffRoleOwner      StaffRole = "owner"
	StaffRoleManager    StaffRole = "manager"
	StaffRoleTechnician StaffRole = "technician"
	StaffRoleFrontDesk  StaffRole = "front_desk"
)

var validStaffRoles = []StaffRole{
	StaffRoleOwner,
	StaffRoleManager,
	StaffRoleTechnician,
	StaffRoleFrontDesk,
}

// String implements fmt.Stringer.
func (r StaffRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known StaffRole.
func (r StaffRole) IsValid() bool {
	for _, candidate := range validStaffRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanAdminister reports whether the role may run destructive admin operations.
func (r StaffRole) CanAdminister() bool {
	return r == StaffRoleOwner || r == StaffRoleManager
}

// ParseStaffRole converts raw input into a StaffRole.
func ParseStaffRole(value string) (StaffRole, error) {
	for _, candidate := range validStaffRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid staff role %q", value)
}
