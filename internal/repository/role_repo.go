package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/cms_api/internal/models"
)

const roleColumns = `role_id, display_name, description, permissions, is_system_role, created_by, created_at, updated_at`

// RoleRepository provides data access methods for the roles table.
type RoleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository creates a new RoleRepository.
func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func scanRole(row rowScanner) (*models.Role, error) {
	var (
		role      models.Role
		perms     []string
		createdBy sql.NullString
	)
	if err := row.Scan(
		&role.RoleID,
		&role.DisplayName,
		&role.Description,
		pq.Array(&perms),
		&role.IsSystemRole,
		&createdBy,
		&role.CreatedAt,
		&role.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	role.Permissions = models.PermissionSetFromStrings(perms)
	role.CreatedBy = stringPtr(createdBy)
	return &role, nil
}

// Get finds a role by id.
func (r *RoleRepository) Get(ctx context.Context, roleID string) (*models.Role, error) {
	row := r.db.QueryRowxContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE role_id = $1`, roleID)
	return scanRole(row)
}

// List returns system roles first, then custom roles by id.
func (r *RoleRepository) List(ctx context.Context) ([]*models.Role, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY is_system_role DESC, role_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := []*models.Role{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// Create inserts a role; an existing id yields ErrDuplicate.
func (r *RoleRepository) Create(ctx context.Context, role *models.Role) error {
	query := `INSERT INTO roles (role_id, display_name, description, permissions, is_system_role, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		role.RoleID,
		role.DisplayName,
		role.Description,
		pq.Array(role.Permissions.Strings()),
		role.IsSystemRole,
		nullString(role.CreatedBy),
	).Scan(&role.CreatedAt, &role.UpdatedAt)
	return translate(err)
}

// InsertIfMissing inserts role unless its id already exists. It reports whether a row was written.
func (r *RoleRepository) InsertIfMissing(ctx context.Context, role *models.Role) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO roles (role_id, display_name, description, permissions, is_system_role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (role_id) DO NOTHING`,
		role.RoleID, role.DisplayName, role.Description, pq.Array(role.Permissions.Strings()), role.IsSystemRole)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Update writes display name, description and permissions.
func (r *RoleRepository) Update(ctx context.Context, role *models.Role) error {
	query := `UPDATE roles SET display_name = $1, description = $2, permissions = $3, updated_at = NOW()
		WHERE role_id = $4
		RETURNING updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		role.DisplayName,
		role.Description,
		pq.Array(role.Permissions.Strings()),
		role.RoleID,
	).Scan(&role.UpdatedAt)
	return translate(err)
}

// Delete removes a role.
func (r *RoleRepository) Delete(ctx context.Context, roleID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE role_id = $1`, roleID)
	return expectOne(res, err)
}
