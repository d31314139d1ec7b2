package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/cms_api/internal/models"
)

const userColumns = `username, email, password_hash, role, role_type, permissions,
	is_first_login, is_active, full_name, phone, profile_picture, created_by,
	last_login, created_at, updated_at`

// UserRepository provides data access methods for the users table.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u         models.User
		perms     []string
		createdBy sql.NullString
		lastLogin sql.NullTime
	)
	if err := row.Scan(
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.RoleType,
		pq.Array(&perms),
		&u.IsFirstLogin,
		&u.IsActive,
		&u.FullName,
		&u.Phone,
		&u.ProfilePicture,
		&createdBy,
		&lastLogin,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	u.Permissions = models.PermissionSetFromStrings(perms)
	u.CreatedBy = stringPtr(createdBy)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

// GetByUsername finds a user by primary key.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.db.QueryRowxContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// GetByEmail finds a user by exact (case-sensitive) email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowxContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 LIMIT 1`, email)
	return scanUser(row)
}

// List returns users matching filter, newest first.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]*models.User, error) {
	where, args := buildUserWhere(filter)
	query := `SELECT ` + userColumns + ` FROM users ` + where + ` ORDER BY created_at DESC`
	return r.queryUsers(ctx, query, args...)
}

func buildUserWhere(filter models.UserFilter) (string, []any) {
	where := `WHERE 1=1`
	args := []any{}
	argIdx := 1

	if s := strings.TrimSpace(filter.Search); s != "" {
		where += fmt.Sprintf(" AND (username ILIKE $%d OR email ILIKE $%d OR full_name ILIKE $%d)", argIdx, argIdx, argIdx)
		args = append(args, "%"+s+"%")
		argIdx++
	}
	if filter.Role != "" {
		where += fmt.Sprintf(" AND role = $%d", argIdx)
		args = append(args, filter.Role)
		argIdx++
	}
	if filter.IsActive != nil {
		where += fmt.Sprintf(" AND is_active = $%d", argIdx)
		args = append(args, *filter.IsActive)
	}
	return where, args
}

// ListByRole returns every user holding roleID.
func (r *UserRepository) ListByRole(ctx context.Context, roleID string) ([]*models.User, error) {
	return r.queryUsers(ctx, `SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY username`, roleID)
}

// CountByRole returns the number of users holding roleID.
func (r *UserRepository) CountByRole(ctx context.Context, roleID string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(1) FROM users WHERE role = $1`, roleID); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Create inserts a new user. A taken username yields ErrDuplicate and a taken
// email ErrDuplicateEmail.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	query := `INSERT INTO users (username, email, password_hash, role, role_type, permissions,
			is_first_login, is_active, full_name, phone, profile_picture, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		u.Username,
		u.Email,
		u.PasswordHash,
		u.Role,
		u.RoleType,
		pq.Array(u.Permissions.Strings()),
		u.IsFirstLogin,
		u.IsActive,
		u.FullName,
		u.Phone,
		u.ProfilePicture,
		nullString(u.CreatedBy),
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	return translate(err)
}

// Update writes every mutable column of u. Username and created_* never change.
func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	query := `UPDATE users
		SET email = $1, role = $2, role_type = $3, permissions = $4, is_active = $5,
			full_name = $6, phone = $7, profile_picture = $8, updated_at = NOW()
		WHERE username = $9
		RETURNING updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		u.Email,
		u.Role,
		u.RoleType,
		pq.Array(u.Permissions.Strings()),
		u.IsActive,
		u.FullName,
		u.Phone,
		u.ProfilePicture,
		u.Username,
	).Scan(&u.UpdatedAt)
	return translate(err)
}

// UpdatePermissions overwrites the permission snapshot of one user.
func (r *UserRepository) UpdatePermissions(ctx context.Context, username string, perms models.PermissionSet) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET permissions = $1, updated_at = NOW() WHERE username = $2`,
		pq.Array(perms.Strings()), username)
	return expectOne(res, err)
}

// UpdatePassword stores a new hash and the first-login flag.
func (r *UserRepository) UpdatePassword(ctx context.Context, username, hash string, isFirstLogin bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, is_first_login = $2, updated_at = NOW() WHERE username = $3`,
		hash, isFirstLogin, username)
	return expectOne(res, err)
}

// UpdateLastLogin records a successful login time.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, username string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = $1 WHERE username = $2`, at, username)
	return expectOne(res, err)
}

// Delete removes a user permanently.
func (r *UserRepository) Delete(ctx context.Context, username string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE username = $1`, username)
	return expectOne(res, err)
}
