// Package testutil provides in-memory stores and helpers shared by tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/GTDGit/cms_api/internal/models"
	"github.com/GTDGit/cms_api/internal/repository"
)

// ErrInjected is returned by stores configured to fail.
var ErrInjected = errors.New("injected failure")

// QuietLogs raises the global zerolog level so tests only print errors.
func QuietLogs() {
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
}

// UserStore is a concurrency-safe in-memory user table.
type UserStore struct {
	mu    sync.Mutex
	users map[string]*models.User

	// FailPermissionUpdates makes UpdatePermissions fail for the listed usernames.
	FailPermissionUpdates map[string]bool
	// FailLastLogin makes UpdateLastLogin fail.
	FailLastLogin bool
}

// NewUserStore returns a store holding copies of users.
func NewUserStore(users ...*models.User) *UserStore {
	s := &UserStore{users: map[string]*models.User{}}
	for _, u := range users {
		s.users[u.Username] = u.Clone()
	}
	return s
}

func (s *UserStore) GetByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u.Clone(), nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u.Clone(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *UserStore) List(_ context.Context, filter models.UserFilter) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	search := strings.ToLower(filter.Search)
	out := []*models.User{}
	for _, u := range s.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Username), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) &&
			!strings.Contains(strings.ToLower(u.FullName), search) {
			continue
		}
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *UserStore) ListByRole(ctx context.Context, roleID string) ([]*models.User, error) {
	return s.List(ctx, models.UserFilter{Role: roleID})
}

func (s *UserStore) CountByRole(ctx context.Context, roleID string) (int, error) {
	users, err := s.ListByRole(ctx, roleID)
	return len(users), err
}

func (s *UserStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Username]; ok {
		return repository.ErrDuplicate
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.Username] = u.Clone()
	return nil
}

func (s *UserStore) Update(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Username]; !ok {
		return repository.ErrNotFound
	}
	for _, existing := range s.users {
		if existing.Username != u.Username && existing.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	u.UpdatedAt = time.Now().UTC()
	s.users[u.Username] = u.Clone()
	return nil
}

func (s *UserStore) UpdatePermissions(_ context.Context, username string, perms models.PermissionSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPermissionUpdates[username] {
		return ErrInjected
	}
	u, ok := s.users[username]
	if !ok {
		return repository.ErrNotFound
	}
	u.Permissions = append(models.PermissionSet(nil), perms...)
	return nil
}

func (s *UserStore) UpdatePassword(_ context.Context, username, hash string, isFirstLogin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	u.IsFirstLogin = isFirstLogin
	return nil
}

func (s *UserStore) UpdateLastLogin(_ context.Context, username string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailLastLogin {
		return ErrInjected
	}
	u, ok := s.users[username]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastLogin = &at
	return nil
}

func (s *UserStore) Delete(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; !ok {
		return repository.ErrNotFound
	}
	delete(s.users, username)
	return nil
}

// Put inserts or replaces a user directly.
func (s *UserStore) Put(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Username] = u.Clone()
}

// RoleStore is an in-memory roles table.
type RoleStore struct {
	mu    sync.Mutex
	roles map[string]*models.Role

	// Gets counts calls to Get.
	Gets int
}

// NewRoleStore returns a store holding copies of roles.
func NewRoleStore(roles ...*models.Role) *RoleStore {
	s := &RoleStore{roles: map[string]*models.Role{}}
	for _, r := range roles {
		s.roles[r.RoleID] = cloneRole(r)
	}
	return s
}

// NewSeededRoleStore returns a store holding the policy's system roles.
func NewSeededRoleStore(policy *models.Policy) *RoleStore {
	s := NewRoleStore()
	for _, spec := range policy.SystemRoles() {
		s.roles[spec.RoleID] = &models.Role{
			RoleID:       spec.RoleID,
			DisplayName:  spec.DisplayName,
			Description:  spec.Description,
			Permissions:  spec.Permissions,
			IsSystemRole: true,
		}
	}
	return s
}

func cloneRole(r *models.Role) *models.Role {
	c := *r
	c.Permissions = append(models.PermissionSet(nil), r.Permissions...)
	return &c
}

func (s *RoleStore) Get(_ context.Context, roleID string) (*models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Gets++
	r, ok := s.roles[roleID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneRole(r), nil
}

func (s *RoleStore) List(_ context.Context) ([]*models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, cloneRole(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsSystemRole != out[j].IsSystemRole {
			return out[i].IsSystemRole
		}
		return out[i].RoleID < out[j].RoleID
	})
	return out, nil
}

func (s *RoleStore) Create(_ context.Context, role *models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[role.RoleID]; ok {
		return repository.ErrDuplicate
	}
	now := time.Now().UTC()
	role.CreatedAt, role.UpdatedAt = now, now
	s.roles[role.RoleID] = cloneRole(role)
	return nil
}

func (s *RoleStore) InsertIfMissing(ctx context.Context, role *models.Role) (bool, error) {
	err := s.Create(ctx, role)
	if errors.Is(err, repository.ErrDuplicate) {
		return false, nil
	}
	return err == nil, err
}

func (s *RoleStore) Update(_ context.Context, role *models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[role.RoleID]; !ok {
		return repository.ErrNotFound
	}
	role.UpdatedAt = time.Now().UTC()
	s.roles[role.RoleID] = cloneRole(role)
	return nil
}

func (s *RoleStore) Delete(_ context.Context, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[roleID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.roles, roleID)
	return nil
}

// AuditStore is an in-memory append-only audit table.
type AuditStore struct {
	mu      sync.Mutex
	entries []*models.AuditLog

	// FailInserts makes every Insert fail.
	FailInserts bool
}

// NewAuditStore returns an empty AuditStore.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Insert(_ context.Context, entry *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailInserts {
		return ErrInjected
	}
	c := *entry
	s.entries = append(s.entries, &c)
	return nil
}

func (s *AuditStore) Query(_ context.Context, f models.AuditLogFilter) ([]*models.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.AuditLog{}
	for _, e := range s.entries {
		if f.StartDate != nil && e.Timestamp.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && e.Timestamp.After(*f.EndDate) {
			continue
		}
		if f.EventType != "" && e.EventType != f.EventType {
			continue
		}
		if f.PerformedBy != "" && e.PerformedBy != f.PerformedBy {
			continue
		}
		if f.TargetUser != "" && (e.TargetUser == nil || *e.TargetUser != f.TargetUser) {
			continue
		}
		if f.After != nil && !olderThan(e, f.After) {
			continue
		}
		c := *e
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func olderThan(e *models.AuditLog, c *models.AuditCursor) bool {
	if e.Timestamp.Equal(c.Timestamp) {
		return e.ID < c.ID
	}
	return e.Timestamp.Before(c.Timestamp)
}

// Entries returns a snapshot of every stored entry in insertion order.
func (s *AuditStore) Entries() []*models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.AuditLog(nil), s.entries...)
}

// ByType returns the stored entries of one event type.
func (s *AuditStore) ByType(t models.AuditEventType) []*models.AuditLog {
	var out []*models.AuditLog
	for _, e := range s.Entries() {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}

// ContentStore is an in-memory content table.
type ContentStore struct {
	mu    sync.Mutex
	items map[string]*models.ContentItem
}

// NewContentStore returns an empty ContentStore.
func NewContentStore() *ContentStore {
	return &ContentStore{items: map[string]*models.ContentItem{}}
}

func contentKey(c models.ContentCollection, id string) string {
	return string(c) + "/" + id
}

func (s *ContentStore) List(_ context.Context, collection models.ContentCollection, limit, offset int) ([]*models.ContentItem, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := []*models.ContentItem{}
	for _, it := range s.items {
		if it.Collection == collection {
			c := *it
			all = append(all, &c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if offset >= total {
		return []*models.ContentItem{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (s *ContentStore) Get(_ context.Context, collection models.ContentCollection, id string) (*models.ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[contentKey(collection, id)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *it
	return &c, nil
}

func (s *ContentStore) Create(_ context.Context, item *models.ContentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := contentKey(item.Collection, item.ID)
	if _, ok := s.items[k]; ok {
		return repository.ErrDuplicate
	}
	now := time.Now().UTC()
	item.CreatedAt, item.UpdatedAt = now, now
	c := *item
	s.items[k] = &c
	return nil
}

func (s *ContentStore) Update(_ context.Context, item *models.ContentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := contentKey(item.Collection, item.ID)
	if _, ok := s.items[k]; !ok {
		return repository.ErrNotFound
	}
	item.UpdatedAt = time.Now().UTC()
	c := *item
	s.items[k] = &c
	return nil
}

func (s *ContentStore) Delete(_ context.Context, collection models.ContentCollection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := contentKey(collection, id)
	if _, ok := s.items[k]; !ok {
		return repository.ErrNotFound
	}
	delete(s.items, k)
	return nil
}

// ObjectStore is an in-memory blob store with URLs of the form mem://<key>.
type ObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	// FailPuts makes every Put fail.
	FailPuts bool
}

// NewObjectStore returns an empty ObjectStore.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: map[string][]byte{}}
}

func (s *ObjectStore) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPuts {
		return "", ErrInjected
	}
	s.objects[key] = append([]byte(nil), data...)
	return "mem://" + key, nil
}

func (s *ObjectStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *ObjectStore) KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, "mem://")
	return key, ok && key != ""
}

// Keys returns the stored keys, sorted.
func (s *ObjectStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewUser builds an active user with the given role and permissions.
func NewUser(username, role string, roleType models.RoleType, perms ...models.Permission) *models.User {
	return &models.User{
		Username:    username,
		Email:       fmt.Sprintf("%s@example.com", username),
		Role:        role,
		RoleType:    roleType,
		Permissions: perms,
		IsActive:    true,
	}
}
