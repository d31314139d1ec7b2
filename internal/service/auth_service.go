package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/cms_api/internal/models"
	"github.com/GTDGit/cms_api/internal/repository"
	"github.com/GTDGit/cms_api/internal/utils"
)

// Login stages, recorded in login_failure details.
const (
	stageCredentialsChecked   = "credentials-checked"
	stageAccountActiveChecked = "account-active-checked"
	stagePasswordVerified     = "password-verified"
	stageRolePermsLoaded      = "role-permissions-loaded"
	stageTokenIssued          = "token-issued"
)

var (
	errInvalidCredentials = utils.BadRequest(utils.CodeInvalidCredentials, "Invalid credentials")
	errAccountDeactivated = utils.Forbidden(utils.CodeAccountDeactivated, "Account is deactivated. Please contact an administrator.")
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token                 string       `json:"token"`
	ExpiresAt             time.Time    `json:"expiresAt"`
	User                  *models.User `json:"user"`
	RequiresPasswordReset bool         `json:"requiresPasswordReset"`
}

// PasswordResetResult tells the caller whether the session must be renewed.
type PasswordResetResult struct {
	RequiresRelogin bool `json:"requiresRelogin"`
}

// AuthService handles login, token verification and self-service passwords.
type AuthService struct {
	users  UserStore
	roles  *RoleService
	hasher *utils.PasswordHasher
	tokens *utils.TokenManager
	audit  *AuditService
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService constructs an AuthService.
func NewAuthService(users UserStore, roles *RoleService, hasher *utils.PasswordHasher, tokens *utils.TokenManager, audit *AuditService) *AuthService {
	return &AuthService{
		users:  users,
		roles:  roles,
		hasher: hasher,
		tokens: tokens,
		audit:  audit,
		now:    time.Now,
	}
}

// Login authenticates username/password and issues a session token. Unknown
// users and wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, username, password, ip string) (*LoginResult, error) {
	submitted := username
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, utils.BadRequest(utils.CodeInvalidRequest, "Username and password are required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.loginFailure(ctx, submitted, ip, stageCredentialsChecked, "lookup_failed")
			return nil, fmt.Errorf("load user %s: %w", username, err)
		}
		// Keep response time close to the wrong-password path.
		s.hasher.Verify(password, s.timingHash())
		s.loginFailure(ctx, submitted, ip, stageCredentialsChecked, "user_not_found")
		return nil, errInvalidCredentials
	}

	if !user.IsActive {
		s.loginFailure(ctx, submitted, ip, stageAccountActiveChecked, "account_deactivated")
		return nil, errAccountDeactivated
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.loginFailure(ctx, submitted, ip, stagePasswordVerified, "invalid_password")
		return nil, errInvalidCredentials
	}

	perms, err := s.effectivePermissions(ctx, user)
	if err != nil {
		s.loginFailure(ctx, submitted, ip, stageRolePermsLoaded, "role_resolution_failed")
		return nil, err
	}
	user.Permissions = perms

	token, expiresAt, err := s.tokens.Issue(user.Username, user.Role, perms)
	if err != nil {
		s.loginFailure(ctx, submitted, ip, stageTokenIssued, "token_issue_failed")
		return nil, err
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.Username, now); err != nil {
		log.Warn().Err(err).Str("username", user.Username).Msg("Failed to update last login")
	} else {
		user.LastLogin = &now
	}

	s.audit.Record(ctx, AuditEvent{
		EventType:   models.EventLoginSuccess,
		PerformedBy: user.Username,
		TargetUser:  user.Username,
		IPAddress:   ip,
		Success:     true,
		Details: map[string]any{
			"role":         user.Role,
			"isFirstLogin": user.IsFirstLogin,
		},
	})

	log.Info().Str("username", user.Username).Str("role", user.Role).Msg("Login successful")

	return &LoginResult{
		Token:                 token,
		ExpiresAt:             expiresAt,
		User:                  user,
		RequiresPasswordReset: user.IsFirstLogin,
	}, nil
}

// effectivePermissions returns the user's snapshot, except for custom roles
// whose permissions are read fresh from the roles table.
func (s *AuthService) effectivePermissions(ctx context.Context, user *models.User) (models.PermissionSet, error) {
	if user.RoleType != models.RoleTypeCustom {
		return user.Permissions, nil
	}
	resolved, err := s.roles.ResolveRoleFresh(ctx, user.Role)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			log.Warn().Str("username", user.Username).Str("role", user.Role).Msg("Custom role missing at login, using stored permissions")
			return user.Permissions, nil
		}
		return nil, err
	}
	return resolved.Permissions, nil
}

func (s *AuthService) loginFailure(ctx context.Context, submitted, ip, stage, reason string) {
	username := strings.TrimSpace(submitted)
	details := map[string]any{"reason": reason, "stage": stage}
	if submitted != username {
		details["submittedUsername"] = submitted
	}
	log.Warn().Str("username", username).Str("ip", ip).Str("reason", reason).Msg("Login failed")
	s.audit.Record(ctx, AuditEvent{
		EventType:   models.EventLoginFailure,
		PerformedBy: username,
		TargetUser:  username,
		IPAddress:   ip,
		Success:     false,
		Details:     details,
	})
}

func (s *AuthService) timingHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("timing-equalizer-password")
		if err != nil {
			log.Error().Err(err).Msg("Failed to build timing hash")
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

// VerifyToken validates a bearer token.
func (s *AuthService) VerifyToken(token string) (*utils.Claims, error) {
	claims, err := s.tokens.Verify(token)
	if err == nil {
		return claims, nil
	}
	switch {
	case errors.Is(err, utils.ErrNoToken):
		return nil, utils.Unauthorized(utils.CodeNoToken, "No token provided")
	case errors.Is(err, utils.ErrTokenExpired):
		return nil, utils.Unauthorized(utils.CodeTokenExpired, "Token has expired. Please log in again.")
	default:
		return nil, utils.Unauthorized(utils.CodeInvalidToken, "Invalid token")
	}
}

// LoadCurrentUser fetches the token subject fresh from storage.
func (s *AuthService) LoadCurrentUser(ctx context.Context, claims *utils.Claims) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.Unauthorized(utils.CodeUserNotFound, "User not found")
		}
		return nil, fmt.Errorf("load user %s: %w", claims.Username, err)
	}
	if !user.IsActive {
		return nil, errAccountDeactivated
	}
	return user, nil
}

// ResetPassword is the self-service reset. currentPassword may be nil while
// the account still has a pending first-login requirement.
func (s *AuthService) ResetPassword(ctx context.Context, actor Actor, currentPassword *string, newPassword string) (*PasswordResetResult, error) {
	user, err := s.users.GetByUsername(ctx, actor.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user %s: %w", actor.Username, err)
	}

	if !user.IsFirstLogin {
		if currentPassword == nil || *currentPassword == "" {
			return nil, utils.BadRequest(utils.CodeCurrentPwdRequired, "Current password is required")
		}
		if !s.hasher.Verify(*currentPassword, user.PasswordHash) {
			s.passwordChangeFailure(ctx, actor, "invalid_current_password")
			return nil, utils.BadRequest(utils.CodeInvalidCurrentPwd, "Current password is incorrect")
		}
	}

	return s.storeNewPassword(ctx, actor, user, newPassword, "reset")
}

// ChangePassword is the profile password change; the current password is
// always required.
func (s *AuthService) ChangePassword(ctx context.Context, actor Actor, currentPassword, newPassword string) (*PasswordResetResult, error) {
	if currentPassword == "" {
		return nil, utils.BadRequest(utils.CodeCurrentPwdRequired, "Current password is required")
	}

	user, err := s.users.GetByUsername(ctx, actor.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user %s: %w", actor.Username, err)
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		s.passwordChangeFailure(ctx, actor, "invalid_current_password")
		return nil, utils.BadRequest(utils.CodeInvalidCurrentPwd, "Current password is incorrect")
	}

	return s.storeNewPassword(ctx, actor, user, newPassword, "profile")
}

func (s *AuthService) storeNewPassword(ctx context.Context, actor Actor, user *models.User, newPassword, source string) (*PasswordResetResult, error) {
	strength := utils.ValidatePasswordStrength(newPassword)
	if !strength.Valid {
		return nil, utils.BadRequest(utils.CodeWeakPassword, strength.Errors[0]).With("errors", strength.Errors)
	}
	if s.hasher.Verify(newPassword, user.PasswordHash) {
		return nil, utils.BadRequest(utils.CodeSamePassword, "New password must be different from the current password")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdatePassword(ctx, user.Username, hash, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update password for %s: %w", user.Username, err)
	}

	wasFirstLogin := user.IsFirstLogin
	s.audit.Record(ctx, AuditEvent{
		EventType:   models.EventPasswordChange,
		PerformedBy: actor.Username,
		TargetUser:  user.Username,
		IPAddress:   actor.IPAddress,
		Success:     true,
		Details: map[string]any{
			"source":        source,
			"wasFirstLogin": wasFirstLogin,
		},
	})

	return &PasswordResetResult{RequiresRelogin: wasFirstLogin}, nil
}

func (s *AuthService) passwordChangeFailure(ctx context.Context, actor Actor, reason string) {
	s.audit.Record(ctx, AuditEvent{
		EventType:   models.EventPasswordChange,
		PerformedBy: actor.Username,
		TargetUser:  actor.Username,
		IPAddress:   actor.IPAddress,
		Success:     false,
		Details:     map[string]any{"reason": reason},
	})
}
