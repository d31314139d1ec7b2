package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy_Enum(t *testing.T) {
	p := DefaultPolicy()

	assert.Len(t, p.Permissions(), 12)
	assert.Len(t, p.AllPermissions(), 12)
	assert.True(t, p.IsKnown(PermAuditLogs))
	assert.False(t, p.IsKnown("billing"))
	assert.Equal(t, []string{"billing"}, p.Unknown(PermissionSet{PermBlogs, "billing"}))
}

func TestDefaultPolicy_SystemRoles(t *testing.T) {
	p := DefaultPolicy()
	roles := p.SystemRoles()
	require.Len(t, roles, 3)

	assert.Equal(t, RoleSuperAdmin, roles[0].RoleID)
	assert.True(t, roles[0].Permissions.HasAll(p.SuperAdminFloor()...))
	assert.Len(t, roles[0].Permissions, 12)

	for _, id := range []string{RoleSuperAdmin, RoleAdmin, RoleContentWriter} {
		assert.True(t, p.IsReservedRoleID(id), id)
	}
	assert.False(t, p.IsReservedRoleID("editor"))
}

func TestDefaultPolicy_ReturnsCopies(t *testing.T) {
	p := DefaultPolicy()
	roles := p.SystemRoles()
	roles[0].Permissions[0] = "tampered"

	assert.NotEqual(t, Permission("tampered"), p.SystemRoles()[0].Permissions[0])

	floor := p.SuperAdminFloor()
	floor[0] = "tampered"
	assert.Equal(t, PermUserManagement, p.SuperAdminFloor()[0])
}
