package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/cms_api/internal/models"
	"github.com/GTDGit/cms_api/internal/testutil"
	"github.com/GTDGit/cms_api/internal/utils"
)

func strPtr(s string) *string { return &s }

func TestAuthService_LoginSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, testutil.NewUser("alice", models.RoleAdmin, models.RoleTypeSystem, models.PermBlogs, models.PermAdminPanelAccess))

	result, err := f.auth.Login(ctx, "alice", testPassword, "192.0.2.7")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.False(t, result.RequiresPasswordReset)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), result.ExpiresAt, time.Minute)

	claims, err := f.auth.VerifyToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, models.PermissionSet{models.PermBlogs, models.PermAdminPanelAccess}, claims.Permissions)

	stored, err := f.users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)

	entries := f.audits.ByType(models.EventLoginSuccess)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].IPAddress)
	assert.Equal(t, "192.0.2.7", *entries[0].IPAddress)
}

func TestAuthService_LoginFailureDoesNotLeakExistence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, testutil.NewUser("alice", models.RoleAdmin, models.RoleTypeSystem))

	_, errWrong := f.auth.Login(ctx, "alice", "wrong", "")
	_, errMissing := f.auth.Login(ctx, "mallory", "wrong", "")

	wrong := assertAppError(t, errWrong, 400, "INVALID_CREDENTIALS")
	missing := assertAppError(t, errMissing, 400, "INVALID_CREDENTIALS")
	assert.Equal(t, wrong.Message, missing.Message)
	assert.Equal(t, "Invalid credentials", wrong.Message)

	failures := f.audits.ByType(models.EventLoginFailure)
	require.Len(t, failures, 2)
	assert.Equal(t, "alice", *failures[0].TargetUser)
	assert.Equal(t, "invalid_password", failures[0].Details["reason"])
	assert.Equal(t, "mallory", *failures[1].TargetUser)
	assert.Equal(t, "user_not_found", failures[1].Details["reason"])
}

func TestAuthService_LoginFailureKeepsSubmittedUsername(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, testutil.NewUser("alice", models.RoleAdmin, models.RoleTypeSystem))

	_, err := f.auth.Login(ctx, " alice ", "wrong", "10.0.0.1")
	assertAppError(t, err, 400, "INVALID_CREDENTIALS")
	_, err = f.auth.Login(ctx, "alice", "wrong", "10.0.0.1")
	assertAppError(t, err, 400, "INVALID_CREDENTIALS")

	failures := f.audits.ByType(models.EventLoginFailure)
	require.Len(t, failures, 2)
	assert.Equal(t, "alice", *failures[0].TargetUser)
	assert.Equal(t, " alice ", failures[0].Details["submittedUsername"])
	assert.NotContains(t, failures[1].Details, "submittedUsername")
}

func TestAuthService_LoginDeactivated(t *testing.T) {
	f := newFixture(t)
	u := testutil.NewUser("alice", models.RoleAdmin, models.RoleTypeSystem)
	u.IsActive = false
	f.addUser(t, u)

	_, err := f.auth.Login(context.Background(), "alice", testPassword, "")
	assertAppError(t, err, 403, "ACCOUNT_DEACTIVATED")

	failures := f.audits.ByType(models.EventLoginFailure)
	require.Len(t, failures, 1)
	assert.Equal(t, "account_deactivated", failures[0].Details["reason"])
}

func TestAuthService_LoginCustomRoleUsesLivePermissions(t *testing.T) {
	f := newFixture(t)
	f.addCustomRole(t, "editor", models.PermTeam, models.PermAdminPanelAccess)
	f.addUser(t, testutil.NewUser("carol", "editor", models.RoleTypeCustom, models.PermBlogs))

	result, err := f.auth.Login(context.Background(), "carol", testPassword, "")
	require.NoError(t, err)
	assert.Equal(t, models.PermissionSet{models.PermTeam, models.PermAdminPanelAccess}, result.User.Permissions)

	claims, err := f.auth.VerifyToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, models.PermissionSet{models.PermTeam, models.PermAdminPanelAccess}, claims.Permissions)
}

func TestAuthService_LoginSurvivesAuditAndLastLoginFailures(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, testutil.NewUser("alice", models.RoleAdmin, models.RoleTypeSystem))
	f.audits.FailInserts = true
	f.users.FailLastLogin = true

	result, err := f.auth.Login(context.Background(), "alice", testPassword, "")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Nil(t, result.User.LastLogin)
}

func TestAuthService_LoginFirstLoginFlag(t *testing.T) {
	f := newFixture(t)
	u := testutil.NewUser("alice", models.RoleAdmin, models.RoleTypeSystem)
	u.IsFirstLogin = true
	f.addUser(t, u)

	result, err := f.auth.Login(context.Background(), "alice", testPassword, "")
	require.NoError(t, err)
	assert.True(t, result.RequiresPasswordReset)
}

func TestAuthService_VerifyToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.auth.VerifyToken("")
	assertAppError(t, err, 401, "NO_TOKEN")

	_, err = f.auth.VerifyToken("not.a.token")
	assertAppError(t, err, 401, "INVALID_TOKEN")

	expired := utils.NewTokenManager("test-secret-with-enough-length-000", -time.Minute)
	token, _, err := expired.Issue("alice", models.RoleAdmin, nil)
	require.NoError(t, err)
	_, err = f.auth.VerifyToken(token)
	assertAppError(t, err, 401, "TOKEN_EXPIRED")

	other := utils.NewTokenManager("another-secret-with-enough-length", time.Hour)
	token, _, err = other.Issue("alice", models.RoleAdmin, nil)
	require.NoError(t, err)
	_, err = f.auth.VerifyToken(token)
	assertAppError(t, err, 401, "INVALID_TOKEN")
}

func TestAuthService_LoadCurrentUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, testutil.NewUser("alice", models.RoleAdmin, models.RoleTypeSystem))

	u, err := f.auth.LoadCurrentUser(ctx, &utils.Claims{Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = f.auth.LoadCurrentUser(ctx, &utils.Claims{Username: "ghost"})
	assertAppError(t, err, 401, "USER_NOT_FOUND")

	u.IsActive = false
	f.users.Put(u)
	_, err = f.auth.LoadCurrentUser(ctx, &utils.Claims{Username: "alice"})
	assertAppError(t, err, 403, "ACCOUNT_DEACTIVATED")
}

func TestAuthService_ResetPasswordFirstLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := testutil.NewUser("alice", models.RoleAdmin, models.RoleTypeSystem)
	u.IsFirstLogin = true
	f.addUser(t, u)
	actor := Actor{Username: "alice", Role: models.RoleAdmin}

	result, err := f.auth.ResetPassword(ctx, actor, nil, "BrandNew42x")
	require.NoError(t, err)
	assert.True(t, result.RequiresRelogin)

	stored, err := f.users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, stored.IsFirstLogin)
	assert.True(t, f.hasher.Verify("BrandNew42x", stored.PasswordHash))

	entries := f.audits.ByType(models.EventPasswordChange)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Success)
}

func TestAuthService_ResetPasswordRequiresCurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, testutil.NewUser("alice", models.RoleAdmin, models.RoleTypeSystem))
	actor := Actor{Username: "alice", Role: models.RoleAdmin}

	_, err := f.auth.ResetPassword(ctx, actor, nil, "BrandNew42x")
	assertAppError(t, err, 400, "CURRENT_PASSWORD_REQUIRED")

	_, err = f.auth.ResetPassword(ctx, actor, strPtr("Wrong1pass"), "BrandNew42x")
	assertAppError(t, err, 400, "INVALID_CURRENT_PASSWORD")

	result, err := f.auth.ResetPassword(ctx, actor, strPtr(testPassword), "BrandNew42x")
	require.NoError(t, err)
	assert.False(t, result.RequiresRelogin)
}

func TestAuthService_ResetPasswordRejectsWeakAndSame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, testutil.NewUser("alice", models.RoleAdmin, models.RoleTypeSystem))
	actor := Actor{Username: "alice", Role: models.RoleAdmin}

	_, err := f.auth.ResetPassword(ctx, actor, strPtr(testPassword), "short")
	appErr := assertAppError(t, err, 400, "WEAK_PASSWORD")
	assert.Len(t, appErr.Details["errors"], 3)

	_, err = f.auth.ResetPassword(ctx, actor, strPtr(testPassword), testPassword)
	assertAppError(t, err, 400, "SAME_PASSWORD")
}

func TestAuthService_ChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := testutil.NewUser("alice", models.RoleAdmin, models.RoleTypeSystem)
	u.IsFirstLogin = true
	f.addUser(t, u)
	actor := Actor{Username: "alice", Role: models.RoleAdmin}

	_, err := f.auth.ChangePassword(ctx, actor, "", "BrandNew42x")
	assertAppError(t, err, 400, "CURRENT_PASSWORD_REQUIRED")

	result, err := f.auth.ChangePassword(ctx, actor, testPassword, "BrandNew42x")
	require.NoError(t, err)
	assert.True(t, result.RequiresRelogin)
}
