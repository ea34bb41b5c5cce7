package enums

import (
	"fmt"
	"strings"
)

// RoleSet is a bitset of the roles a user can hold. Roles are additive:
// a blogger remains a customer, staff may also be a blogger.
type RoleSet uint8

const (
	RoleCustomer RoleSet = 1 << iota
	RoleBlogger
	RoleStaff
)

var roleNames = map[RoleSet]string{
	RoleCustomer: "customer",
	RoleBlogger:  "blogger",
	RoleStaff:    "staff",
}

var allRoles = []RoleSet{RoleCustomer, RoleBlogger, RoleStaff}

// Has reports whether the set contains the given role.
func (r RoleSet) Has(role RoleSet) bool {
	return r&role != 0
}

// Grant returns the set with the given role added.
func (r RoleSet) Grant(role RoleSet) RoleSet {
	return r | role
}

// IsValid reports whether the set contains only known role bits.
func (r RoleSet) IsValid() bool {
	known := RoleSet(0)
	for _, role := range allRoles {
		known |= role
	}
	return r != 0 && r&^known == 0
}

// Names returns the role names present in the set, in declaration order.
func (r RoleSet) Names() []string {
	names := make([]string, 0, len(allRoles))
	for _, role := range allRoles {
		if r.Has(role) {
			names = append(names, roleNames[role])
		}
	}
	return names
}

// String implements fmt.Stringer.
func (r RoleSet) String() string {
	return strings.Join(r.Names(), ",")
}

// ParseRoleSet converts a comma-separated role list into a RoleSet.
func ParseRoleSet(value string) (RoleSet, error) {
	var set RoleSet
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		matched := false
		for role, name := range roleNames {
			if name == part {
				set |= role
				matched = true
				break
			}
		}
		if !matched {
			return 0, fmt.Errorf("invalid role %q", part)
		}
	}
	if set == 0 {
		return 0, fmt.Errorf("empty role set %q", value)
	}
	return set, nil
}
