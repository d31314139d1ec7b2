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

var roleIDPattern = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

const maxDisplayNameLen = 50

// CreateRoleRequest is the body of POST /roles.
type CreateRoleRequest struct {
	RoleID      string               `json:"roleId"`
	DisplayName string               `json:"displayName"`
	Description string               `json:"description"`
	Permissions models.PermissionSet `json:"permissions"`
}

// UpdateRoleRequest is the body of PATCH /roles/:roleId. Nil fields are left unchanged.
type UpdateRoleRequest struct {
	DisplayName *string               `json:"displayName"`
	Description *string               `json:"description"`
	Permissions *models.PermissionSet `json:"permissions"`
}

// RoleUpdateResult reports the outcome of a role update including the
// best-effort permission cascade.
type RoleUpdateResult struct {
	Role          *models.Role `json:"role"`
	AffectedUsers int          `json:"affectedUsers"`
	FailedUsers   []string     `json:"failedUsers,omitempty"`
}

// RoleService resolves roles to permissions and manages custom roles.
type RoleService struct {
	roles  RoleStore
	users  UserStore
	cache  RoleCacher
	audit  *AuditService
	policy *models.Policy
}

// NewRoleService constructs a RoleService. cache may be nil.
func NewRoleService(roles RoleStore, users UserStore, cache RoleCacher, audit *AuditService, policy *models.Policy) *RoleService {
	return &RoleService{roles: roles, users: users, cache: cache, audit: audit, policy: policy}
}

// Policy returns the injected permission policy.
func (s *RoleService) Policy() *models.Policy {
	return s.policy
}

// SeedSystemRoles inserts any missing system role from the policy. Existing
// rows, including operator edits, are left untouched.
func (s *RoleService) SeedSystemRoles(ctx context.Context) (int, error) {
	inserted := 0
	for _, spec := range s.policy.SystemRoles() {
		ok, err := s.roles.InsertIfMissing(ctx, &models.Role{
			RoleID:       spec.RoleID,
			DisplayName:  spec.DisplayName,
			Description:  spec.Description,
			Permissions:  spec.Permissions,
			IsSystemRole: true,
		})
		if err != nil {
			return inserted, fmt.Errorf("seed role %s: %w", spec.RoleID, err)
		}
		if ok {
			inserted++
			log.Info().Str("role_id", spec.RoleID).Msg("Seeded system role")
		}
	}
	return inserted, nil
}

// ResolveRole maps a role id to its permission set, reading through the cache.
func (s *RoleService) ResolveRole(ctx context.Context, roleID string) (*models.ResolvedRole, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, roleID)
		if err != nil {
			log.Warn().Err(err).Str("role_id", roleID).Msg("Role cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	resolved, err := s.ResolveRoleFresh(ctx, roleID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, resolved); err != nil {
			log.Warn().Err(err).Str("role_id", roleID).Msg("Role cache write failed")
		}
	}
	return resolved, nil
}

// ResolveRoleFresh resolves from the roles table, bypassing the cache.
func (s *RoleService) ResolveRoleFresh(ctx context.Context, roleID string) (*models.ResolvedRole, error) {
	role, err := s.roles.Get(ctx, roleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("get role %s: %w", roleID, err)
	}
	return &models.ResolvedRole{
		RoleID:       role.RoleID,
		DisplayName:  role.DisplayName,
		Permissions:  role.Permissions,
		IsSystemRole: role.IsSystemRole,
	}, nil
}

// ListRoles returns every role with the number of users holding it.
func (s *RoleService) ListRoles(ctx context.Context) ([]*models.RoleWithUsage, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}

	out := make([]*models.RoleWithUsage, 0, len(roles))
	for _, role := range roles {
		n, err := s.users.CountByRole(ctx, role.RoleID)
		if err != nil {
			return nil, fmt.Errorf("count users for role %s: %w", role.RoleID, err)
		}
		out = append(out, &models.RoleWithUsage{Role: *role, UserCount: n})
	}
	return out, nil
}

// GetRole returns one role with its user count.
func (s *RoleService) GetRole(ctx context.Context, roleID string) (*models.RoleWithUsage, error) {
	role, err := s.getRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	n, err := s.users.CountByRole(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("count users for role %s: %w", roleID, err)
	}
	return &models.RoleWithUsage{Role: *role, UserCount: n}, nil
}

// ValidatePermissions checks that perms only contains tokens from the enum.
func (s *RoleService) ValidatePermissions(perms models.PermissionSet) error {
	if bad := s.policy.Unknown(perms); len(bad) > 0 {
		return utils.BadRequest(utils.CodeInvalidPermissions, "Invalid permissions: "+strings.Join(bad, ", ")).
			With("invalidPermissions", bad)
	}
	return nil
}

func (s *RoleService) validateRolePermissions(perms models.PermissionSet) error {
	if len(perms) == 0 {
		return utils.BadRequest(utils.CodePermissionsRequired, "At least one permission is required")
	}
	return s.ValidatePermissions(perms)
}

func validateDisplayName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxDisplayNameLen {
		return utils.BadRequest(utils.CodeInvalidDisplayName, "Display name must be between 1 and 50 characters")
	}
	return nil
}

// CreateRole creates a custom role.
func (s *RoleService) CreateRole(ctx context.Context, actor Actor, req CreateRoleRequest) (*models.Role, error) {
	if !actor.IsSuperAdmin() {
		return nil, ErrSuperAdminRequired
	}
	if s.policy.IsReservedRoleID(req.RoleID) {
		return nil, utils.BadRequest(utils.CodeReservedRoleID, "Role ID is reserved for a system role")
	}
	if !roleIDPattern.MatchString(req.RoleID) {
		return nil, utils.BadRequest(utils.CodeInvalidRoleID,
			"Role ID must be 3-30 characters of lowercase letters, numbers and underscores")
	}
	if err := validateDisplayName(req.DisplayName); err != nil {
		return nil, err
	}
	if err := s.validateRolePermissions(req.Permissions); err != nil {
		return nil, err
	}

	if _, err := s.roles.Get(ctx, req.RoleID); err == nil {
		return nil, utils.Conflict(utils.CodeRoleExists, "Role already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check role %s: %w", req.RoleID, err)
	}

	createdBy := actor.Username
	role := &models.Role{
		RoleID:       req.RoleID,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Description:  strings.TrimSpace(req.Description),
		Permissions:  req.Permissions.Dedupe(),
		IsSystemRole: false,
		CreatedBy:    &createdBy,
	}
	if err := s.roles.Create(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, utils.Conflict(utils.CodeRoleExists, "Role already exists")
		}
		return nil, fmt.Errorf("create role %s: %w", req.RoleID, err)
	}

	s.audit.Record(ctx, AuditEvent{
		EventType:   models.EventRoleCreated,
		PerformedBy: actor.Username,
		IPAddress:   actor.IPAddress,
		Success:     true,
		Details: map[string]any{
			"roleId":      role.RoleID,
			"displayName": role.DisplayName,
			"permissions": role.Permissions,
		},
	})

	return role, nil
}

// UpdateRole edits a role. System roles may be edited but super_admin must
// keep its floor permissions. A permission change is cascaded to every user
// holding the role on a best-effort basis.
func (s *RoleService) UpdateRole(ctx context.Context, actor Actor, roleID string, req UpdateRoleRequest) (*RoleUpdateResult, error) {
	if !actor.IsSuperAdmin() {
		return nil, ErrSuperAdminRequired
	}

	role, err := s.getRole(ctx, roleID)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	updated := *role

	if req.DisplayName != nil {
		if err := validateDisplayName(*req.DisplayName); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(*req.DisplayName)
		if name != role.DisplayName {
			changes["displayName"] = diff(role.DisplayName, name)
			updated.DisplayName = name
		}
	}
	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)
		if desc != role.Description {
			changes["description"] = diff(role.Description, desc)
			updated.Description = desc
		}
	}

	permsChanged := false
	if req.Permissions != nil {
		next := req.Permissions.Dedupe()
		// The floor is checked first so an empty set reports the missing permissions.
		if roleID == models.RoleSuperAdmin {
			var missing []string
			for _, p := range s.policy.SuperAdminFloor() {
				if !next.Has(p) {
					missing = append(missing, string(p))
				}
			}
			if len(missing) > 0 {
				return nil, utils.BadRequest(utils.CodeRequiredPermsMissing,
					"Super admin role must keep: "+strings.Join(missing, ", ")).
					With("missingPermissions", missing)
			}
		}
		if err := s.validateRolePermissions(next); err != nil {
			return nil, err
		}
		if !next.Equal(role.Permissions) {
			permsChanged = true
			updated.Permissions = next
		}
	}

	result := &RoleUpdateResult{Role: &updated}
	if len(changes) == 0 && !permsChanged {
		result.Role = role
		return result, nil
	}

	if err := s.roles.Update(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("update role %s: %w", roleID, err)
	}
	s.invalidate(ctx, roleID)

	details := map[string]any{"roleId": roleID, "changes": changes}
	if permsChanged {
		added, removed := role.Permissions.Diff(updated.Permissions)
		affected, failed := s.cascadePermissions(ctx, roleID, updated.Permissions)
		result.AffectedUsers = affected
		result.FailedUsers = failed

		details["oldPermissions"] = role.Permissions
		details["newPermissions"] = updated.Permissions
		details["addedPermissions"] = added
		details["removedPermissions"] = removed
		details["affectedUsers"] = affected
		if len(failed) > 0 {
			details["failedUsers"] = failed
		}

		s.audit.Record(ctx, AuditEvent{
			EventType:   models.EventPermissionsModified,
			PerformedBy: actor.Username,
			IPAddress:   actor.IPAddress,
			Success:     len(failed) == 0,
			Details: map[string]any{
				"roleId":             roleID,
				"source":             "role_update",
				"addedPermissions":   added,
				"removedPermissions": removed,
				"affectedUsers":      affected,
			},
		})
	}

	s.audit.Record(ctx, AuditEvent{
		EventType:   models.EventRoleUpdated,
		PerformedBy: actor.Username,
		IPAddress:   actor.IPAddress,
		Success:     true,
		Details:     details,
	})

	return result, nil
}

// cascadePermissions copies perms onto every user holding roleID. Failures
// are collected and logged; users already updated stay updated.
func (s *RoleService) cascadePermissions(ctx context.Context, roleID string, perms models.PermissionSet) (int, []string) {
	users, err := s.users.ListByRole(ctx, roleID)
	if err != nil {
		log.Error().Err(err).Str("role_id", roleID).Msg("Failed to list users for permission cascade")
		return 0, nil
	}

	var failed []string
	for _, u := range users {
		if err := s.users.UpdatePermissions(ctx, u.Username, perms); err != nil {
			log.Warn().Err(err).Str("role_id", roleID).Str("username", u.Username).Msg("Permission cascade failed for user")
			failed = append(failed, u.Username)
		}
	}
	return len(users) - len(failed), failed
}

// DeleteRole removes a custom role that no user holds.
func (s *RoleService) DeleteRole(ctx context.Context, actor Actor, roleID string) error {
	if !actor.IsSuperAdmin() {
		return ErrSuperAdminRequired
	}

	role, err := s.getRole(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsSystemRole || s.policy.IsReservedRoleID(roleID) {
		return utils.BadRequest(utils.CodeSystemRoleProtected, "System roles cannot be deleted")
	}

	n, err := s.users.CountByRole(ctx, roleID)
	if err != nil {
		return fmt.Errorf("count users for role %s: %w", roleID, err)
	}
	if n > 0 {
		return utils.Conflict(utils.CodeRoleInUse, fmt.Sprintf("Role is assigned to %d user(s)", n)).
			With("userCount", n)
	}

	if err := s.roles.Delete(ctx, roleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("delete role %s: %w", roleID, err)
	}
	s.invalidate(ctx, roleID)

	s.audit.Record(ctx, AuditEvent{
		EventType:   models.EventRoleDeleted,
		PerformedBy: actor.Username,
		IPAddress:   actor.IPAddress,
		Success:     true,
		Details: map[string]any{
			"roleId":      roleID,
			"displayName": role.DisplayName,
			"permissions": role.Permissions,
		},
	})
	return nil
}

func (s *RoleService) getRole(ctx context.Context, roleID string) (*models.Role, error) {
	role, err := s.roles.Get(ctx, roleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("get role %s: %w", roleID, err)
	}
	return role, nil
}

func (s *RoleService) invalidate(ctx context.Context, roleID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, roleID); err != nil {
		log.Warn().Err(err).Str("role_id", roleID).Msg("Role cache invalidation failed")
	}
}
