package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/cms_api/internal/models"
	"github.com/GTDGit/cms_api/internal/repository"
	"github.com/GTDGit/cms_api/internal/utils"
)

// bootstrapActor is recorded as performedBy for the seeded super admin. It
// cannot be taken as a username.
const bootstrapActor = "system"

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	errUsernameExists = utils.Conflict(utils.CodeUsernameExists, "Username already exists")
	errEmailExists    = utils.Conflict(utils.CodeEmailExists, "Email already exists")
)

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Username    string                `json:"username"`
	Email       string                `json:"email"`
	Role        string                `json:"role"`
	Permissions *models.PermissionSet `json:"permissions"`
	FullName    string                `json:"fullName"`
	Phone       string                `json:"phone"`
}

// UpdateUserRequest is the body of PATCH /users/:username. Nil fields are left unchanged.
type UpdateUserRequest struct {
	Email       *string               `json:"email"`
	Role        *string               `json:"role"`
	Permissions *models.PermissionSet `json:"permissions"`
	IsActive    *bool                 `json:"isActive"`
	FullName    *string               `json:"fullName"`
	Phone       *string               `json:"phone"`
}

// CreatedUser carries the one-time plaintext password of a new or reset account.
type CreatedUser struct {
	User              *models.User `json:"user"`
	GeneratedPassword string       `json:"generatedPassword"`
}

// UserService implements the super-admin user management flows.
type UserService struct {
	users  UserStore
	roles  *RoleService
	hasher *utils.PasswordHasher
	audit  *AuditService
}

// NewUserService constructs a UserService.
func NewUserService(users UserStore, roles *RoleService, hasher *utils.PasswordHasher, audit *AuditService) *UserService {
	return &UserService{users: users, roles: roles, hasher: hasher, audit: audit}
}

// ListUsers returns users matching filter, ordered by username.
func (s *UserService) ListUsers(ctx context.Context, actor Actor, filter models.UserFilter) ([]*models.User, error) {
	if !actor.IsSuperAdmin() {
		return nil, ErrSuperAdminRequired
	}
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// GetUser returns one user.
func (s *UserService) GetUser(ctx context.Context, actor Actor, username string) (*models.User, error) {
	if !actor.IsSuperAdmin() {
		return nil, ErrSuperAdminRequired
	}
	return s.getUser(ctx, username)
}

// CreateUser creates an account with a generated password, returned once.
func (s *UserService) CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*CreatedUser, error) {
	if !actor.IsSuperAdmin() {
		return nil, ErrSuperAdminRequired
	}
	createdBy := actor.Username
	return s.createUser(ctx, actor, req, &createdBy)
}

// createUser holds the shared create path. createdBy is nil only for the
// bootstrapped super admin.
func (s *UserService) createUser(ctx context.Context, actor Actor, req CreateUserRequest, createdBy *string) (*CreatedUser, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if !usernamePattern.MatchString(username) {
		return nil, utils.BadRequest(utils.CodeInvalidUsername,
			"Username must be 3-30 characters of letters, numbers and underscores").With("field", "username")
	}
	if strings.EqualFold(username, bootstrapActor) {
		return nil, utils.BadRequest(utils.CodeInvalidUsername, "Username is reserved").With("field", "username")
	}
	if !emailPattern.MatchString(email) {
		return nil, utils.BadRequest(utils.CodeInvalidEmail, "Invalid email address").With("field", "email")
	}

	role, err := s.resolveAssignableRole(ctx, req.Role)
	if err != nil {
		return nil, err
	}

	perms := role.Permissions
	if req.Permissions != nil {
		if err := s.roles.ValidatePermissions(*req.Permissions); err != nil {
			return nil, err
		}
		perms = req.Permissions.Dedupe()
	}

	if err := s.ensureUsernameFree(ctx, username); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	password, err := utils.GenerateSecurePassword()
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role.RoleID,
		RoleType:     role.RoleType(),
		Permissions:  perms,
		IsFirstLogin: true,
		IsActive:     true,
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        strings.TrimSpace(req.Phone),
		CreatedBy:    createdBy,
	}
	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, errEmailExists
		case errors.Is(err, repository.ErrDuplicate):
			return nil, errUsernameExists
		}
		return nil, fmt.Errorf("create user %s: %w", username, err)
	}

	s.audit.Record(ctx, AuditEvent{
		EventType:   models.EventUserCreated,
		PerformedBy: actor.Username,
		TargetUser:  user.Username,
		IPAddress:   actor.IPAddress,
		Success:     true,
		Details: map[string]any{
			"email":       user.Email,
			"role":        user.Role,
			"roleType":    user.RoleType,
			"permissions": user.Permissions,
		},
	})

	return &CreatedUser{User: user, GeneratedPassword: password}, nil
}

// BootstrapSuperAdmin creates the first super admin. It returns nil without
// error when a super admin already exists.
func (s *UserService) BootstrapSuperAdmin(ctx context.Context, username, email string) (*CreatedUser, error) {
	n, err := s.users.CountByRole(ctx, models.RoleSuperAdmin)
	if err != nil {
		return nil, fmt.Errorf("count super admins: %w", err)
	}
	if n > 0 {
		return nil, nil
	}
	actor := Actor{Username: bootstrapActor, Role: models.RoleSuperAdmin, IPAddress: "127.0.0.1"}
	return s.createUser(ctx, actor, CreateUserRequest{Username: username, Email: email, Role: models.RoleSuperAdmin}, nil)
}

// UpdateUser applies a partial update and audits every changed field.
func (s *UserService) UpdateUser(ctx context.Context, actor Actor, username string, req UpdateUserRequest) (*models.User, error) {
	if !actor.IsSuperAdmin() {
		return nil, ErrSuperAdminRequired
	}

	current, err := s.getUser(ctx, username)
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	changes := map[string]any{}

	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if !emailPattern.MatchString(email) {
			return nil, utils.BadRequest(utils.CodeInvalidEmail, "Invalid email address").With("field", "email")
		}
		if email != current.Email {
			if err := s.ensureEmailFree(ctx, email, username); err != nil {
				return nil, err
			}
			next.Email = email
			changes["email"] = diff(current.Email, email)
		}
	}

	roleChanged := false
	if req.Role != nil && *req.Role != current.Role {
		role, err := s.resolveAssignableRole(ctx, *req.Role)
		if err != nil {
			return nil, err
		}
		next.Role = role.RoleID
		next.RoleType = role.RoleType()
		changes["role"] = diff(current.Role, role.RoleID)
		roleChanged = true
		if req.Permissions == nil {
			next.Permissions = role.Permissions
		}
	}

	if req.Permissions != nil {
		if err := s.roles.ValidatePermissions(*req.Permissions); err != nil {
			return nil, err
		}
		next.Permissions = req.Permissions.Dedupe()
	}
	permsChanged := !next.Permissions.Equal(current.Permissions)
	if permsChanged {
		changes["permissions"] = diff(current.Permissions, next.Permissions)
	}

	deactivated := false
	if req.IsActive != nil && *req.IsActive != current.IsActive {
		if !*req.IsActive && username == actor.Username {
			return nil, utils.BadRequest(utils.CodeCannotDeactivateSelf, "You cannot deactivate your own account")
		}
		next.IsActive = *req.IsActive
		changes["isActive"] = diff(current.IsActive, *req.IsActive)
		deactivated = !*req.IsActive
	}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name != current.FullName {
			next.FullName = name
			changes["fullName"] = diff(current.FullName, name)
		}
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		if phone != current.Phone {
			next.Phone = phone
			changes["phone"] = diff(current.Phone, phone)
		}
	}

	if len(changes) == 0 {
		return current, nil
	}

	if err := s.users.Update(ctx, next); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, errEmailExists
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update user %s: %w", username, err)
	}

	s.audit.Record(ctx, AuditEvent{
		EventType:   models.EventUserUpdated,
		PerformedBy: actor.Username,
		TargetUser:  username,
		IPAddress:   actor.IPAddress,
		Success:     true,
		Details:     map[string]any{"changes": changes},
	})
	if permsChanged {
		added, removed := current.Permissions.Diff(next.Permissions)
		s.audit.Record(ctx, AuditEvent{
			EventType:   models.EventPermissionsModified,
			PerformedBy: actor.Username,
			TargetUser:  username,
			IPAddress:   actor.IPAddress,
			Success:     true,
			Details: map[string]any{
				"source":             "user_update",
				"roleChanged":        roleChanged,
				"oldPermissions":     current.Permissions,
				"newPermissions":     next.Permissions,
				"addedPermissions":   added,
				"removedPermissions": removed,
			},
		})
	}
	if deactivated {
		s.audit.Record(ctx, AuditEvent{
			EventType:   models.EventUserDeactivated,
			PerformedBy: actor.Username,
			TargetUser:  username,
			IPAddress:   actor.IPAddress,
			Success:     true,
		})
	}

	return next, nil
}

// DeleteUser removes an account. An actor can never delete itself.
func (s *UserService) DeleteUser(ctx context.Context, actor Actor, username string) error {
	if username == actor.Username {
		return utils.BadRequest(utils.CodeCannotDeleteSelf, "You cannot delete your own account")
	}
	if !actor.IsSuperAdmin() {
		return ErrSuperAdminRequired
	}

	user, err := s.getUser(ctx, username)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, username); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user %s: %w", username, err)
	}

	s.audit.Record(ctx, AuditEvent{
		EventType:   models.EventUserDeleted,
		PerformedBy: actor.Username,
		TargetUser:  username,
		IPAddress:   actor.IPAddress,
		Success:     true,
		Details: map[string]any{
			"email": user.Email,
			"role":  user.Role,
		},
	})
	return nil
}

// ResetUserPassword assigns a fresh generated password and forces the user
// to choose a new one at next login.
func (s *UserService) ResetUserPassword(ctx context.Context, actor Actor, username string) (*CreatedUser, error) {
	if !actor.IsSuperAdmin() {
		return nil, ErrSuperAdminRequired
	}

	user, err := s.getUser(ctx, username)
	if err != nil {
		return nil, err
	}

	password, err := utils.GenerateSecurePassword()
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdatePassword(ctx, username, hash, true); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("reset password for %s: %w", username, err)
	}
	user.PasswordHash = hash
	user.IsFirstLogin = true

	s.audit.Record(ctx, AuditEvent{
		EventType:   models.EventPasswordReset,
		PerformedBy: actor.Username,
		TargetUser:  username,
		IPAddress:   actor.IPAddress,
		Success:     true,
	})
	log.Info().Str("username", username).Str("performed_by", actor.Username).Msg("Password reset by administrator")

	return &CreatedUser{User: user, GeneratedPassword: password}, nil
}

func (s *UserService) resolveAssignableRole(ctx context.Context, roleID string) (*models.ResolvedRole, error) {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return nil, utils.BadRequest(utils.CodeInvalidRole, "Role is required").With("field", "role")
	}
	role, err := s.roles.ResolveRole(ctx, roleID)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			return nil, utils.BadRequest(utils.CodeInvalidRole, "Invalid role").With("field", "role")
		}
		return nil, err
	}
	return role, nil
}

func (s *UserService) ensureUsernameFree(ctx context.Context, username string) error {
	_, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return errUsernameExists
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("check username %s: %w", username, err)
	}
}

// ensureEmailFree fails if email belongs to any user other than owner.
func (s *UserService) ensureEmailFree(ctx context.Context, email, owner string) error {
	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Username == owner {
			return nil
		}
		return errEmailExists
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("check email: %w", err)
	}
}

func (s *UserService) getUser(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}
	return user, nil
}

func diff(from, to any) map[string]any {
	return map[string]any{"from": from, "to": to}
}
