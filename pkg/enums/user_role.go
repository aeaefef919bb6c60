package enums

import "fmt"

// UserRole represents an agency-level permissions role.
type UserRole string

const (
	UserRoleSuperuser     UserRole = "superuser"
	UserRoleAgencyOwner   UserRole = "agency_owner"
	UserRoleAgencyManager UserRole = "agency_manager"
	UserRoleStaff         UserRole = "staff"
)

var validUserRoles = []UserRole{
	UserRoleSuperuser,
	UserRoleAgencyOwner,
	UserRoleAgencyManager,
	UserRoleStaff,
}

// String implements fmt.Stringer.
func (u UserRole) String() string {
	return string(u)
}

// IsAgencyAdmin reports whether the role can manage shifts and assignments
// for its agency.
func (u UserRole) IsAgencyAdmin() bool {
	return u == UserRoleAgencyOwner || u == UserRoleAgencyManager
}

// IsValid reports whether the value is a known UserRole.
func (u UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
