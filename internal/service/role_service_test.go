package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/cms_api/internal/cache"
	"github.com/GTDGit/cms_api/internal/models"
	"github.com/GTDGit/cms_api/internal/testutil"
)

func TestRoleService_SeedSystemRolesIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roles := testutil.NewRoleStore()
	svc := NewRoleService(roles, f.users, nil, f.audit, f.policy)

	n, err := svc.SeedSystemRoles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Operator edits survive a reseed.
	edited, err := roles.Get(ctx, models.RoleAdmin)
	require.NoError(t, err)
	edited.Permissions = models.PermissionSet{models.PermBlogs}
	require.NoError(t, roles.Update(ctx, edited))

	n, err = svc.SeedSystemRoles(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := roles.Get(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.PermissionSet{models.PermBlogs}, got.Permissions)
	assert.True(t, got.IsSystemRole)
}

func TestRoleService_ResolveRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resolved, err := f.role.ResolveRole(ctx, models.RoleContentWriter)
	require.NoError(t, err)
	assert.True(t, resolved.IsSystemRole)
	assert.Equal(t, "Content Writer", resolved.DisplayName)
	assert.True(t, resolved.Permissions.HasAll(models.PermBlogs, models.PermWhitepapers, models.PermAdminPanelAccess))

	_, err = f.role.ResolveRole(ctx, "ghost")
	assertAppError(t, err, 404, "ROLE_NOT_FOUND")
}

func TestRoleService_ResolveRoleUsesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rc := cache.WrapRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { rc.Close() })
	svc := NewRoleService(f.roles, f.users, cache.NewRoleCache(rc, time.Minute), f.audit, f.policy)

	f.addCustomRole(t, "editor", models.PermBlogs, models.PermAdminPanelAccess)

	_, err := svc.ResolveRole(ctx, "editor")
	require.NoError(t, err)
	before := f.roles.Gets
	_, err = svc.ResolveRole(ctx, "editor")
	require.NoError(t, err)
	assert.Equal(t, before, f.roles.Gets, "second resolve should be served from cache")

	_, err = svc.UpdateRole(ctx, superAdmin(), "editor", UpdateRoleRequest{
		Permissions: &models.PermissionSet{models.PermTeam, models.PermAdminPanelAccess},
	})
	require.NoError(t, err)

	resolved, err := svc.ResolveRole(ctx, "editor")
	require.NoError(t, err)
	assert.Equal(t, models.PermissionSet{models.PermTeam, models.PermAdminPanelAccess}, resolved.Permissions)
}

func TestRoleService_ResolveRoleSurvivesCacheOutage(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	rc := cache.WrapRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { rc.Close() })
	svc := NewRoleService(f.roles, f.users, cache.NewRoleCache(rc, time.Minute), f.audit, f.policy)
	mr.Close()

	resolved, err := svc.ResolveRole(context.Background(), models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, resolved.RoleID)
}

func TestRoleService_CreateRoleValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addCustomRole(t, "editor", models.PermBlogs)

	tests := []struct {
		name   string
		actor  Actor
		req    CreateRoleRequest
		status int
		code   string
	}{
		{"not super admin", Actor{Username: "a", Role: models.RoleAdmin},
			CreateRoleRequest{RoleID: "seo", DisplayName: "SEO", Permissions: models.PermissionSet{models.PermBlogs}},
			403, "SUPER_ADMIN_REQUIRED"},
		{"reserved id", superAdmin(),
			CreateRoleRequest{RoleID: "admin", DisplayName: "Admin", Permissions: models.PermissionSet{models.PermBlogs}},
			400, "RESERVED_ROLE_ID"},
		{"bad id", superAdmin(),
			CreateRoleRequest{RoleID: "Bad-Id", DisplayName: "Bad", Permissions: models.PermissionSet{models.PermBlogs}},
			400, "INVALID_ROLE_ID"},
		{"short id", superAdmin(),
			CreateRoleRequest{RoleID: "ab", DisplayName: "Bad", Permissions: models.PermissionSet{models.PermBlogs}},
			400, "INVALID_ROLE_ID"},
		{"empty display name", superAdmin(),
			CreateRoleRequest{RoleID: "seo", DisplayName: "  ", Permissions: models.PermissionSet{models.PermBlogs}},
			400, "INVALID_DISPLAY_NAME"},
		{"no permissions", superAdmin(),
			CreateRoleRequest{RoleID: "seo", DisplayName: "SEO"},
			400, "PERMISSIONS_REQUIRED"},
		{"unknown permission", superAdmin(),
			CreateRoleRequest{RoleID: "seo", DisplayName: "SEO", Permissions: models.PermissionSet{models.PermBlogs, "launch_missiles"}},
			400, "INVALID_PERMISSIONS"},
		{"exists", superAdmin(),
			CreateRoleRequest{RoleID: "editor", DisplayName: "Editor", Permissions: models.PermissionSet{models.PermBlogs}},
			409, "ROLE_EXISTS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.role.CreateRole(ctx, tt.actor, tt.req)
			assertAppError(t, err, tt.status, tt.code)
		})
	}

	assert.Empty(t, f.audits.ByType(models.EventRoleCreated))
}

func TestRoleService_CreateRoleReportsInvalidPermissions(t *testing.T) {
	f := newFixture(t)
	_, err := f.role.CreateRole(context.Background(), superAdmin(), CreateRoleRequest{
		RoleID: "seo", DisplayName: "SEO", Permissions: models.PermissionSet{"nope", models.PermBlogs, "other"},
	})
	appErr := assertAppError(t, err, 400, "INVALID_PERMISSIONS")
	assert.Equal(t, []string{"nope", "other"}, appErr.Details["invalidPermissions"])
}

func TestRoleService_CreateRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	role, err := f.role.CreateRole(ctx, superAdmin(), CreateRoleRequest{
		RoleID:      "seo_team",
		DisplayName: " SEO Team ",
		Permissions: models.PermissionSet{models.PermBlogs, models.PermBlogs, models.PermAnalytics},
	})
	require.NoError(t, err)
	assert.Equal(t, "SEO Team", role.DisplayName)
	assert.False(t, role.IsSystemRole)
	assert.Equal(t, models.PermissionSet{models.PermBlogs, models.PermAnalytics}, role.Permissions)
	require.NotNil(t, role.CreatedBy)
	assert.Equal(t, "root", *role.CreatedBy)

	entries := f.audits.ByType(models.EventRoleCreated)
	require.Len(t, entries, 1)
	assert.Equal(t, "seo_team", entries[0].Details["roleId"])
}

func TestRoleService_UpdateRoleCascadesToUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addCustomRole(t, "editor", models.PermBlogs, models.PermAdminPanelAccess)
	f.users.Put(testutil.NewUser("u1", "editor", models.RoleTypeCustom, models.PermBlogs, models.PermAdminPanelAccess))
	f.users.Put(testutil.NewUser("u2", "editor", models.RoleTypeCustom, models.PermBlogs, models.PermAdminPanelAccess))
	f.users.Put(testutil.NewUser("u3", models.RoleAdmin, models.RoleTypeSystem, models.PermBlogs))

	next := models.PermissionSet{models.PermTeam, models.PermWhitepapers, models.PermAdminPanelAccess}
	result, err := f.role.UpdateRole(ctx, superAdmin(), "editor", UpdateRoleRequest{Permissions: &next})
	require.NoError(t, err)
	assert.Equal(t, 2, result.AffectedUsers)
	assert.Empty(t, result.FailedUsers)

	for _, name := range []string{"u1", "u2"} {
		u, err := f.users.GetByUsername(ctx, name)
		require.NoError(t, err)
		assert.True(t, next.Equal(u.Permissions), "user %s", name)
	}
	u3, err := f.users.GetByUsername(ctx, "u3")
	require.NoError(t, err)
	assert.Equal(t, models.PermissionSet{models.PermBlogs}, u3.Permissions)

	updated := f.audits.ByType(models.EventRoleUpdated)
	require.Len(t, updated, 1)
	assert.Equal(t, models.PermissionSet{models.PermTeam, models.PermWhitepapers}, updated[0].Details["addedPermissions"])
	assert.Equal(t, models.PermissionSet{models.PermBlogs}, updated[0].Details["removedPermissions"])
	assert.Equal(t, 2, updated[0].Details["affectedUsers"])
	assert.Len(t, f.audits.ByType(models.EventPermissionsModified), 1)
}

func TestRoleService_UpdateRoleCascadeIsBestEffort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addCustomRole(t, "editor", models.PermBlogs)
	f.users.Put(testutil.NewUser("u1", "editor", models.RoleTypeCustom, models.PermBlogs))
	f.users.Put(testutil.NewUser("u2", "editor", models.RoleTypeCustom, models.PermBlogs))
	f.users.FailPermissionUpdates = map[string]bool{"u1": true}

	next := models.PermissionSet{models.PermTeam}
	result, err := f.role.UpdateRole(ctx, superAdmin(), "editor", UpdateRoleRequest{Permissions: &next})
	require.NoError(t, err)
	assert.Equal(t, 1, result.AffectedUsers)
	assert.Equal(t, []string{"u1"}, result.FailedUsers)

	role, err := f.roles.Get(ctx, "editor")
	require.NoError(t, err)
	assert.Equal(t, next, role.Permissions)

	u2, err := f.users.GetByUsername(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, next, u2.Permissions)
	u1, err := f.users.GetByUsername(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.PermissionSet{models.PermBlogs}, u1.Permissions)
}

func TestRoleService_SuperAdminFloor(t *testing.T) {
	for _, drop := range []models.Permission{models.PermUserManagement, models.PermRoleManagement, models.PermAdminPanelAccess} {
		t.Run(string(drop), func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			before, err := f.roles.Get(ctx, models.RoleSuperAdmin)
			require.NoError(t, err)

			var next models.PermissionSet
			for _, p := range f.policy.AllPermissions() {
				if p != drop {
					next = append(next, p)
				}
			}
			_, err = f.role.UpdateRole(ctx, superAdmin(), models.RoleSuperAdmin, UpdateRoleRequest{Permissions: &next})
			appErr := assertAppError(t, err, 400, "REQUIRED_PERMISSIONS_MISSING")
			assert.Equal(t, []string{string(drop)}, appErr.Details["missingPermissions"])

			after, err := f.roles.Get(ctx, models.RoleSuperAdmin)
			require.NoError(t, err)
			assert.Equal(t, before.Permissions, after.Permissions)
			assert.Empty(t, f.audits.Entries())
		})
	}
}

func TestRoleService_SuperAdminFloorEmptySet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before, err := f.roles.Get(ctx, models.RoleSuperAdmin)
	require.NoError(t, err)

	empty := models.PermissionSet{}
	_, err = f.role.UpdateRole(ctx, superAdmin(), models.RoleSuperAdmin, UpdateRoleRequest{Permissions: &empty})
	appErr := assertAppError(t, err, 400, "REQUIRED_PERMISSIONS_MISSING")
	assert.ElementsMatch(t, []string{"user_management", "role_management", "admin_panel_access"}, appErr.Details["missingPermissions"])

	after, err := f.roles.Get(ctx, models.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, before.Permissions, after.Permissions)
	assert.Empty(t, f.audits.Entries())
}

func TestRoleService_UpdateSystemRoleMetadata(t *testing.T) {
	f := newFixture(t)
	name := "Writers"
	result, err := f.role.UpdateRole(context.Background(), superAdmin(), models.RoleContentWriter, UpdateRoleRequest{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Writers", result.Role.DisplayName)
	assert.Zero(t, result.AffectedUsers)

	entries := f.audits.ByType(models.EventRoleUpdated)
	require.Len(t, entries, 1)
	assert.Empty(t, f.audits.ByType(models.EventPermissionsModified))
}

func TestRoleService_UpdateRoleNoop(t *testing.T) {
	f := newFixture(t)
	f.addCustomRole(t, "editor", models.PermBlogs)
	same := models.PermissionSet{models.PermBlogs}
	_, err := f.role.UpdateRole(context.Background(), superAdmin(), "editor", UpdateRoleRequest{Permissions: &same})
	require.NoError(t, err)
	assert.Empty(t, f.audits.Entries())
}

func TestRoleService_DeleteRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.role.DeleteRole(ctx, superAdmin(), models.RoleContentWriter)
	assertAppError(t, err, 400, "SYSTEM_ROLE_PROTECTED")
	_, err = f.roles.Get(ctx, models.RoleContentWriter)
	require.NoError(t, err)

	err = f.role.DeleteRole(ctx, superAdmin(), "ghost")
	assertAppError(t, err, 404, "ROLE_NOT_FOUND")

	f.addCustomRole(t, "editor", models.PermBlogs)
	f.users.Put(testutil.NewUser("u1", "editor", models.RoleTypeCustom, models.PermBlogs))
	f.users.Put(testutil.NewUser("u2", "editor", models.RoleTypeCustom, models.PermBlogs))

	err = f.role.DeleteRole(ctx, superAdmin(), "editor")
	appErr := assertAppError(t, err, 409, "ROLE_IN_USE")
	assert.Equal(t, 2, appErr.Details["userCount"])

	require.NoError(t, f.users.Delete(ctx, "u1"))
	require.NoError(t, f.users.Delete(ctx, "u2"))
	require.NoError(t, f.role.DeleteRole(ctx, superAdmin(), "editor"))

	_, err = f.roles.Get(ctx, "editor")
	assert.Error(t, err)
	assert.Len(t, f.audits.ByType(models.EventRoleDeleted), 1)
}

func TestRoleService_ListRolesIncludesUsage(t *testing.T) {
	f := newFixture(t)
	f.users.Put(testutil.NewUser("a1", models.RoleAdmin, models.RoleTypeSystem))
	f.users.Put(testutil.NewUser("a2", models.RoleAdmin, models.RoleTypeSystem))

	roles, err := f.role.ListRoles(context.Background())
	require.NoError(t, err)
	require.Len(t, roles, 3)
	counts := map[string]int{}
	for _, r := range roles {
		counts[r.RoleID] = r.UserCount
	}
	assert.Equal(t, 2, counts[models.RoleAdmin])
	assert.Equal(t, 0, counts[models.RoleContentWriter])
}
