package enums

import "fmt"

type UserRole string

const (
	RoleConsumer UserRole = "consumer"
	RoleShop     UserRole = "shop"
	RoleDriver   UserRole = "driver"
	RoleWorkshop UserRole = "workshop"
	RoleAdmin    UserRole = "admin"
	RoleSystem   UserRole = "system"
)

var validUserRoles = []UserRole{
	RoleConsumer,
	RoleShop,
	RoleDriver,
	RoleWorkshop,
	RoleAdmin,
	RoleSystem,
}

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseUserRole(value string) (UserRole, error) {
	role := UserRole(value)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid user role %q", value)
	}
	return role, nil
}
