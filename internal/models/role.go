package models

import "time"

// System role identifiers. These ids are reserved and cannot be used by custom roles.
const (
	RoleSuperAdmin    = "super_admin"
	RoleAdmin         = "admin"
	RoleContentWriter = "content_writer"
)

// RoleType distinguishes the fixed system roles from runtime-created ones.
type RoleType string

const (
	RoleTypeSystem RoleType = "system"
	RoleTypeCustom RoleType = "custom"
)

// Role is a named permission set.
type Role struct {
	RoleID       string        `db:"role_id" json:"roleId"`
	DisplayName  string        `db:"display_name" json:"displayName"`
	Description  string        `db:"description" json:"description"`
	Permissions  PermissionSet `db:"-" json:"permissions"`
	IsSystemRole bool          `db:"is_system_role" json:"isSystemRole"`
	CreatedBy    *string       `db:"created_by" json:"createdBy"`
	CreatedAt    time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updatedAt"`
}

// Type returns the RoleType matching IsSystemRole.
func (r *Role) Type() RoleType {
	if r.IsSystemRole {
		return RoleTypeSystem
	}
	return RoleTypeCustom
}

// ResolvedRole is the result of resolving a role id to its permissions.
type ResolvedRole struct {
	RoleID       string        `json:"roleId"`
	DisplayName  string        `json:"displayName"`
	Permissions  PermissionSet `json:"permissions"`
	IsSystemRole bool          `json:"isSystemRole"`
}

// RoleType returns the RoleType matching IsSystemRole.
func (r *ResolvedRole) RoleType() RoleType {
	if r.IsSystemRole {
		return RoleTypeSystem
	}
	return RoleTypeCustom
}

// RoleWithUsage is a role annotated with the number of users holding it.
type RoleWithUsage struct {
	Role
	UserCount int `json:"userCount"`
}
