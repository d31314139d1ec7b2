package service

import (
	"context"
	"time"

	"github.com/GTDGit/cms_api/internal/models"
)

// UserStore is the persistence contract for users. Implementations return
// repository.ErrNotFound, repository.ErrDuplicate and repository.ErrDuplicateEmail.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]*models.User, error)
	ListByRole(ctx context.Context, roleID string) ([]*models.User, error)
	CountByRole(ctx context.Context, roleID string) (int, error)
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	UpdatePermissions(ctx context.Context, username string, perms models.PermissionSet) error
	UpdatePassword(ctx context.Context, username, hash string, isFirstLogin bool) error
	UpdateLastLogin(ctx context.Context, username string, at time.Time) error
	Delete(ctx context.Context, username string) error
}

// RoleStore is the persistence contract for roles.
type RoleStore interface {
	Get(ctx context.Context, roleID string) (*models.Role, error)
	List(ctx context.Context) ([]*models.Role, error)
	Create(ctx context.Context, role *models.Role) error
	InsertIfMissing(ctx context.Context, role *models.Role) (bool, error)
	Update(ctx context.Context, role *models.Role) error
	Delete(ctx context.Context, roleID string) error
}

// AuditStore is the append-only persistence contract for audit entries.
type AuditStore interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
	Query(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, error)
}

// ContentStore persists content documents. Missing documents yield repository.ErrNotFound.
type ContentStore interface {
	List(ctx context.Context, collection models.ContentCollection, limit, offset int) ([]*models.ContentItem, int, error)
	Get(ctx context.Context, collection models.ContentCollection, id string) (*models.ContentItem, error)
	Create(ctx context.Context, item *models.ContentItem) error
	Update(ctx context.Context, item *models.ContentItem) error
	Delete(ctx context.Context, collection models.ContentCollection, id string) error
}

// RoleCacher caches resolved roles. Get returns (nil, nil) on a miss.
type RoleCacher interface {
	Get(ctx context.Context, roleID string) (*models.ResolvedRole, error)
	Set(ctx context.Context, role *models.ResolvedRole) error
	Invalidate(ctx context.Context, roleID string) error
}

// ObjectStore is a blob store addressed by key.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
	KeyFromURL(url string) (string, bool)
}

// Actor identifies who performs an operation and from where.
type Actor struct {
	Username  string
	Role      string
	IPAddress string
}

// ActorFromUser builds an Actor from the authenticated user.
func ActorFromUser(u *models.User, ip string) Actor {
	return Actor{Username: u.Username, Role: u.Role, IPAddress: ip}
}

// IsSuperAdmin reports whether the actor holds the super_admin role.
func (a Actor) IsSuperAdmin() bool {
	return a.Role == models.RoleSuperAdmin
}
