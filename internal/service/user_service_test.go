package service

import (
	"context"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/cms_api/internal/models"
	"github.com/GTDGit/cms_api/internal/testutil"
	"github.com/GTDGit/cms_api/internal/utils"
)

func assertGeneratedPassword(t *testing.T, pw string) {
	t.Helper()
	assert.GreaterOrEqual(t, len(pw), 12)
	assert.LessOrEqual(t, len(pw), 16)
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case utils.IsSpecialChar(r):
			special = true
		}
	}
	assert.True(t, upper && lower && digit && special, "password %q misses a character class", pw)
}

func TestUserService_CreateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.user.CreateUser(ctx, superAdmin(), CreateUserRequest{
		Username: "bob",
		Email:    "bob@x.com",
		Role:     models.RoleAdmin,
		FullName: "Bob",
	})
	require.NoError(t, err)
	assertGeneratedPassword(t, created.GeneratedPassword)

	u := created.User
	assert.True(t, u.IsFirstLogin)
	assert.True(t, u.IsActive)
	assert.Equal(t, models.RoleTypeSystem, u.RoleType)
	adminSpec := f.policy.SystemRoles()[1]
	assert.Equal(t, adminSpec.Permissions, u.Permissions)

	stored, err := f.users.GetByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, f.hasher.Verify(created.GeneratedPassword, stored.PasswordHash))
	assert.NotContains(t, stored.PasswordHash, created.GeneratedPassword)

	entries := f.audits.ByType(models.EventUserCreated)
	require.Len(t, entries, 1)
	assert.Equal(t, "bob", *entries[0].TargetUser)
	assert.NotContains(t, entries[0].Details, "password")
}

func TestUserService_CreateUserCustomRoleAndOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addCustomRole(t, "editor", models.PermBlogs, models.PermAdminPanelAccess)

	created, err := f.user.CreateUser(ctx, superAdmin(), CreateUserRequest{Username: "ed", Email: "ed@x.com", Role: "editor"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTypeCustom, created.User.RoleType)
	assert.Equal(t, models.PermissionSet{models.PermBlogs, models.PermAdminPanelAccess}, created.User.Permissions)

	override := models.PermissionSet{models.PermTeam}
	created, err = f.user.CreateUser(ctx, superAdmin(), CreateUserRequest{Username: "ed2", Email: "ed2@x.com", Role: "editor", Permissions: &override})
	require.NoError(t, err)
	assert.Equal(t, override, created.User.Permissions)
}

func TestUserService_CreateUserValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.users.Put(testutil.NewUser("alice", models.RoleAdmin, models.RoleTypeSystem))
	bad := models.PermissionSet{"nope"}

	tests := []struct {
		name   string
		actor  Actor
		req    CreateUserRequest
		status int
		code   string
	}{
		{"not super admin", Actor{Username: "a", Role: models.RoleAdmin}, CreateUserRequest{Username: "bob", Email: "bob@x.com", Role: models.RoleAdmin}, 403, "SUPER_ADMIN_REQUIRED"},
		{"short username", superAdmin(), CreateUserRequest{Username: "bo", Email: "bob@x.com", Role: models.RoleAdmin}, 400, "INVALID_USERNAME"},
		{"bad chars", superAdmin(), CreateUserRequest{Username: "bob smith", Email: "bob@x.com", Role: models.RoleAdmin}, 400, "INVALID_USERNAME"},
		{"bad email", superAdmin(), CreateUserRequest{Username: "bob", Email: "bob@", Role: models.RoleAdmin}, 400, "INVALID_EMAIL"},
		{"missing role", superAdmin(), CreateUserRequest{Username: "bob", Email: "bob@x.com"}, 400, "INVALID_ROLE"},
		{"unknown role", superAdmin(), CreateUserRequest{Username: "bob", Email: "bob@x.com", Role: "ghost"}, 400, "INVALID_ROLE"},
		{"bad permissions", superAdmin(), CreateUserRequest{Username: "bob", Email: "bob@x.com", Role: models.RoleAdmin, Permissions: &bad}, 400, "INVALID_PERMISSIONS"},
		{"reserved username", superAdmin(), CreateUserRequest{Username: "system", Email: "sys@x.com", Role: models.RoleAdmin}, 400, "INVALID_USERNAME"},
		{"reserved username any case", superAdmin(), CreateUserRequest{Username: "System", Email: "sys@x.com", Role: models.RoleAdmin}, 400, "INVALID_USERNAME"},
		{"duplicate username", superAdmin(), CreateUserRequest{Username: "alice", Email: "new@x.com", Role: models.RoleAdmin}, 409, "USERNAME_EXISTS"},
		{"duplicate email", superAdmin(), CreateUserRequest{Username: "bob", Email: "alice@example.com", Role: models.RoleAdmin}, 409, "EMAIL_EXISTS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.user.CreateUser(ctx, tt.actor, tt.req)
			assertAppError(t, err, tt.status, tt.code)
		})
	}
	assert.Empty(t, f.audits.ByType(models.EventUserCreated))
}

func TestUserService_UpdateUserAuditsChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.users.Put(testutil.NewUser("bob", models.RoleContentWriter, models.RoleTypeSystem, models.PermBlogs))

	perms := models.PermissionSet{models.PermBlogs, models.PermTeam}
	active := false
	updated, err := f.user.UpdateUser(ctx, superAdmin(), "bob", UpdateUserRequest{
		Email:       strPtr("robert@x.com"),
		Permissions: &perms,
		IsActive:    &active,
		Phone:       strPtr("+62 811"),
	})
	require.NoError(t, err)
	assert.Equal(t, "robert@x.com", updated.Email)
	assert.False(t, updated.IsActive)

	userUpdated := f.audits.ByType(models.EventUserUpdated)
	require.Len(t, userUpdated, 1)
	changes := userUpdated[0].Details["changes"].(map[string]any)
	assert.Equal(t, map[string]any{"from": "bob@example.com", "to": "robert@x.com"}, changes["email"])
	assert.Contains(t, changes, "permissions")
	assert.Contains(t, changes, "isActive")
	assert.Contains(t, changes, "phone")
	assert.NotContains(t, changes, "fullName")

	permsModified := f.audits.ByType(models.EventPermissionsModified)
	require.Len(t, permsModified, 1)
	assert.Equal(t, models.PermissionSet{models.PermTeam}, permsModified[0].Details["addedPermissions"])
	assert.Len(t, f.audits.ByType(models.EventUserDeactivated), 1)
}

func TestUserService_UpdateUserRoleResetsPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addCustomRole(t, "editor", models.PermTeam)
	f.users.Put(testutil.NewUser("bob", models.RoleContentWriter, models.RoleTypeSystem, models.PermBlogs))

	updated, err := f.user.UpdateUser(ctx, superAdmin(), "bob", UpdateUserRequest{Role: strPtr("editor")})
	require.NoError(t, err)
	assert.Equal(t, "editor", updated.Role)
	assert.Equal(t, models.RoleTypeCustom, updated.RoleType)
	assert.Equal(t, models.PermissionSet{models.PermTeam}, updated.Permissions)

	_, err = f.user.UpdateUser(ctx, superAdmin(), "bob", UpdateUserRequest{Role: strPtr("ghost")})
	assertAppError(t, err, 400, "INVALID_ROLE")
}

func TestUserService_UpdateUserErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.users.Put(testutil.NewUser("root", models.RoleSuperAdmin, models.RoleTypeSystem))
	f.users.Put(testutil.NewUser("bob", models.RoleAdmin, models.RoleTypeSystem))
	f.users.Put(testutil.NewUser("carol", models.RoleAdmin, models.RoleTypeSystem))

	inactive := false
	_, err := f.user.UpdateUser(ctx, superAdmin(), "root", UpdateUserRequest{IsActive: &inactive})
	assertAppError(t, err, 400, "CANNOT_DEACTIVATE_SELF")

	_, err = f.user.UpdateUser(ctx, superAdmin(), "bob", UpdateUserRequest{Email: strPtr("carol@example.com")})
	assertAppError(t, err, 409, "EMAIL_EXISTS")

	_, err = f.user.UpdateUser(ctx, superAdmin(), "ghost", UpdateUserRequest{FullName: strPtr("x")})
	assertAppError(t, err, 404, "USER_NOT_FOUND")

	// Re-submitting your own email is not a conflict.
	_, err = f.user.UpdateUser(ctx, superAdmin(), "bob", UpdateUserRequest{Email: strPtr("bob@example.com")})
	require.NoError(t, err)
	assert.Empty(t, f.audits.Entries())
}

func TestUserService_DeleteUserBlocksSelf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	actors := []Actor{
		superAdmin(),
		{Username: "writer", Role: models.RoleContentWriter},
		{Username: "ed", Role: "editor"},
	}
	for _, actor := range actors {
		f.users.Put(testutil.NewUser(actor.Username, actor.Role, models.RoleTypeSystem))
		err := f.user.DeleteUser(ctx, actor, actor.Username)
		assertAppError(t, err, 400, "CANNOT_DELETE_SELF")
		_, err = f.users.GetByUsername(ctx, actor.Username)
		require.NoError(t, err)
	}
}

func TestUserService_DeleteUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.users.Put(testutil.NewUser("bob", models.RoleAdmin, models.RoleTypeSystem))

	require.NoError(t, f.user.DeleteUser(ctx, superAdmin(), "bob"))
	_, err := f.users.GetByUsername(ctx, "bob")
	assert.Error(t, err)
	assert.Len(t, f.audits.ByType(models.EventUserDeleted), 1)

	err = f.user.DeleteUser(ctx, superAdmin(), "bob")
	assertAppError(t, err, 404, "USER_NOT_FOUND")

	err = f.user.DeleteUser(ctx, Actor{Username: "x", Role: models.RoleAdmin}, "root")
	assertAppError(t, err, 403, "SUPER_ADMIN_REQUIRED")
}

func TestUserService_ResetUserPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, testutil.NewUser("bob", models.RoleAdmin, models.RoleTypeSystem))

	result, err := f.user.ResetUserPassword(ctx, superAdmin(), "bob")
	require.NoError(t, err)
	assertGeneratedPassword(t, result.GeneratedPassword)

	stored, err := f.users.GetByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, stored.IsFirstLogin)
	assert.True(t, f.hasher.Verify(result.GeneratedPassword, stored.PasswordHash))
	assert.False(t, f.hasher.Verify(testPassword, stored.PasswordHash))

	assert.Len(t, f.audits.ByType(models.EventPasswordReset), 1)
	assert.Empty(t, f.audits.ByType(models.EventPasswordChange))
}

func TestUserService_ListUsers(t *testing.T) {
	f := newFixture(t)
	f.users.Put(testutil.NewUser("bob", models.RoleAdmin, models.RoleTypeSystem))
	f.users.Put(testutil.NewUser("carol", models.RoleContentWriter, models.RoleTypeSystem))

	users, err := f.user.ListUsers(context.Background(), superAdmin(), models.UserFilter{Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)

	_, err = f.user.ListUsers(context.Background(), Actor{Username: "bob", Role: models.RoleAdmin}, models.UserFilter{})
	assertAppError(t, err, 403, "SUPER_ADMIN_REQUIRED")
}

func TestUserService_BootstrapSuperAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.user.BootstrapSuperAdmin(ctx, "owner", "owner@example.com")
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, models.RoleSuperAdmin, created.User.Role)
	assert.True(t, created.User.Permissions.HasAll(f.policy.AllPermissions()...))
	assert.True(t, created.User.IsFirstLogin)
	assert.Nil(t, created.User.CreatedBy)

	entries := f.audits.ByType(models.EventUserCreated)
	require.Len(t, entries, 1)
	assert.Equal(t, "system", entries[0].PerformedBy)

	again, err := f.user.BootstrapSuperAdmin(ctx, "other", "other@example.com")
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestUserService_CreateUserAlwaysRecordsCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// An actor whose name collides with the bootstrap actor still counts as a creator.
	actor := Actor{Username: "system", Role: models.RoleSuperAdmin}
	created, err := f.user.CreateUser(ctx, actor, CreateUserRequest{Username: "carol", Email: "carol@x.com", Role: models.RoleAdmin})
	require.NoError(t, err)
	require.NotNil(t, created.User.CreatedBy)
	assert.Equal(t, "system", *created.User.CreatedBy)

	stored, err := f.users.GetByUsername(ctx, "carol")
	require.NoError(t, err)
	require.NotNil(t, stored.CreatedBy)
}
