package auth

import "strings"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSubAdmin Role = "subAdmin"
	RoleOwner    Role = "owner"
	RoleUser     Role = "user"
)

// allRoles fixes the bit position of every role inside a RoleSet.
var allRoles = [...]Role{RoleAdmin, RoleSubAdmin, RoleOwner, RoleUser}

func (r Role) bit() RoleSet {
	for i, known := range allRoles {
		if known == r {
			return 1 << i
		}
	}
	return 0
}

func (r Role) IsValid() bool {
	return r.bit() != 0
}

func ParseRole(s string) (Role, bool) {
	r := Role(strings.TrimSpace(s))
	return r, r.IsValid()
}

// RoleSet is an allow-list of roles. The zero value admits nobody.
type RoleSet uint8

func Roles(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s |= r.bit()
	}
	return s
}

func (s RoleSet) Allows(r Role) bool {
	b := r.bit()
	return b != 0 && s&b == b
}

func (s RoleSet) Members() []Role {
	out := make([]Role, 0, len(allRoles))
	for _, r := range allRoles {
		if s.Allows(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s RoleSet) String() string {
	members := s.Members()
	parts := make([]string, len(members))
	for i, r := range members {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}

// Route allow-lists.
var (
	Staff     = Roles(RoleAdmin, RoleSubAdmin)
	Managers  = Roles(RoleAdmin, RoleSubAdmin, RoleOwner)
	Tenants   = Roles(RoleUser)
	Everybody = Roles(allRoles[:]...)
)
