package models

import "time"

// User is an admin panel account. Username is the immutable primary key.
type User struct {
	Username       string        `db:"username" json:"username"`
	Email          string        `db:"email" json:"email"`
	PasswordHash   string        `db:"password_hash" json:"-"`
	Role           string        `db:"role" json:"role"`
	RoleType       RoleType      `db:"role_type" json:"roleType"`
	Permissions    PermissionSet `db:"-" json:"permissions"`
	IsFirstLogin   bool          `db:"is_first_login" json:"isFirstLogin"`
	IsActive       bool          `db:"is_active" json:"isActive"`
	FullName       string        `db:"full_name" json:"fullName"`
	Phone          string        `db:"phone" json:"phone"`
	ProfilePicture string        `db:"profile_picture" json:"profilePicture"`
	CreatedBy      *string       `db:"created_by" json:"createdBy"`
	LastLogin      *time.Time    `db:"last_login" json:"lastLogin"`
	CreatedAt      time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updatedAt"`
}

// IsSuperAdmin reports whether the user holds the super_admin role.
func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (u *User) Clone() *User {
	c := *u
	c.Permissions = append(PermissionSet(nil), u.Permissions...)
	if u.CreatedBy != nil {
		v := *u.CreatedBy
		c.CreatedBy = &v
	}
	if u.LastLogin != nil {
		v := *u.LastLogin
		c.LastLogin = &v
	}
	return &c
}

// UserFilter narrows GET /users.
type UserFilter struct {
	Search   string
	Role     string
	IsActive *bool
}
