package party

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRoleSetIgnoresUnknownRoles(t *testing.T) {
	set := NewRoleSet("seller", "buyer", "superuser", "")

	assert.True(t, set.Has(RoleSeller))
	assert.True(t, set.Has(RoleBuyer))
	assert.False(t, set.Has(RoleAdvisor))
	assert.Equal(t, []string{"buyer", "seller"}, set.Strings())
}

func TestRoleSetAdd(t *testing.T) {
	set := NewRoleSet("buyer")
	set.Add(RoleAdvisor)

	assert.True(t, set.Has(RoleAdvisor))
	assert.Equal(t, []string{"advisor", "buyer"}, set.Strings())
}
