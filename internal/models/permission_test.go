package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissionSet_HasAnyHasAll(t *testing.T) {
	set := PermissionSet{PermBlogs, PermTeam}

	assert.True(t, set.HasAny(PermProjects, PermTeam))
	assert.False(t, set.HasAny(PermProjects))
	assert.False(t, set.HasAny())
	assert.True(t, set.HasAll(PermBlogs, PermTeam))
	assert.False(t, set.HasAll(PermBlogs, PermProjects))
	assert.True(t, set.HasAll())
}

func TestPermissionSet_Diff(t *testing.T) {
	old := PermissionSet{PermBlogs, PermTeam}
	next := PermissionSet{PermTeam, PermProjects}

	added, removed := old.Diff(next)
	assert.Equal(t, PermissionSet{PermProjects}, added)
	assert.Equal(t, PermissionSet{PermBlogs}, removed)
}

func TestPermissionSet_EqualIgnoresOrderAndDuplicates(t *testing.T) {
	a := PermissionSet{PermBlogs, PermTeam, PermBlogs}
	b := PermissionSet{PermTeam, PermBlogs}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(PermissionSet{PermTeam}))
}

func TestAuditEventTypes(t *testing.T) {
	types := AuditEventTypes()
	assert.Len(t, types, 12)
	for _, et := range types {
		assert.True(t, AuditEventType(et.Value).Valid(), et.Value)
		assert.NotEmpty(t, et.Label)
	}
	assert.False(t, AuditEventType("login_maybe").Valid())
}

func TestContentCollectionPermission(t *testing.T) {
	p, ok := CollectionRequests.Permission()
	assert.True(t, ok)
	assert.Equal(t, PermRequests, p)

	_, ok = ContentCollection("secrets").Permission()
	assert.False(t, ok)
}
