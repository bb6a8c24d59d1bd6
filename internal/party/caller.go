package party

import (
	"sort"

	"github.com/google/uuid"
)

// Role is a platform-level role carried by an authenticated user.
type Role string

const (
	RoleBuyer   Role = "buyer"
	RoleSeller  Role = "seller"
	RoleAdvisor Role = "advisor"
	RoleAdmin   Role = "admin"
)

// RoleSet is a set of platform roles. Users can hold several roles at once
// (an advisor may also sell a business of their own).
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from role names, ignoring unknown values.
func NewRoleSet(names ...string) RoleSet {
	set := make(RoleSet, len(names))
	for _, name := range names {
		switch Role(name) {
		case RoleBuyer, RoleSeller, RoleAdvisor, RoleAdmin:
			set[Role(name)] = struct{}{}
		}
	}
	return set
}

// Has reports whether the set contains the role.
func (s RoleSet) Has(role Role) bool {
	_, ok := s[role]
	return ok
}

// Add inserts a role into the set.
func (s RoleSet) Add(role Role) {
	s[role] = struct{}{}
}

// Strings returns the roles in stable order.
func (s RoleSet) Strings() []string {
	out := make([]string, 0, len(s))
	for role := range s {
		out = append(out, string(role))
	}
	sort.Strings(out)
	return out
}

// Caller is the identity resolved by the auth subsystem for a request.
// The deal engine trusts it for every authorization check; which side of a
// particular deal the caller sits on is decided against the deal record,
// not against these platform roles.
type Caller struct {
	UserID uuid.UUID
	Name   string
	Roles  RoleSet
}
