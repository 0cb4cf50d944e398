package accesscontrol

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"pressroom/internal/domain/identity"
	"pressroom/internal/infra/dbx"
)

var (
	ErrRoleNotFound       = errors.New("custom role not found")
	ErrDuplicateRoleName  = errors.New("a custom role with that name already exists")
	ErrAssignmentNotFound = errors.New("writer assignment not found")
)

type Store interface {
	CreateRole(ctx context.Context, role *identity.CustomRole) error
	GetRole(ctx context.Context, id int64) (*identity.CustomRole, error)
	ListRoles(ctx context.Context) ([]identity.CustomRole, error)
	SetRoleActive(ctx context.Context, id int64, active bool) error
	DeleteRole(ctx context.Context, id int64) error
	EnsurePermission(ctx context.Context, name, description string) (identity.Permission, error)
	ListPermissions(ctx context.Context) ([]identity.Permission, error)
	SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	AssignWriter(ctx context.Context, editorID, writerID int64) error
	RemoveWriter(ctx context.Context, editorID, writerID int64) error
	ListWriterIDs(ctx context.Context, editorID int64) ([]int64, error)
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{db: q}
}

func (r *Repository) CreateRole(ctx context.Context, role *identity.CustomRole) error {
	err := r.db.QueryRow(ctx, `
INSERT INTO custom_roles (name, description, is_active)
VALUES ($1, $2, $3)
RETURNING id, created_at, updated_at
`, role.Name, role.Description, role.IsActive).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateRoleName
		}
		return err
	}
	return nil
}

func (r *Repository) GetRole(ctx context.Context, id int64) (*identity.CustomRole, error) {
	var role identity.CustomRole
	err := r.db.QueryRow(ctx, `
SELECT id, name, description, is_active, created_at, updated_at
FROM custom_roles
WHERE id = $1
`, id).Scan(&role.ID, &role.Name, &role.Description, &role.IsActive, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
SELECT p.id, p.name, p.description
FROM permissions p
JOIN role_permissions rp ON rp.permission_id = p.id
WHERE rp.role_id = $1
ORDER BY p.name
`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p identity.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		role.Permissions = append(role.Permissions, p)
	}
	return &role, rows.Err()
}

func (r *Repository) ListRoles(ctx context.Context) ([]identity.CustomRole, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, name, description, is_active, created_at, updated_at
FROM custom_roles
ORDER BY name
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []identity.CustomRole
	for rows.Next() {
		var role identity.CustomRole
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsActive, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *Repository) SetRoleActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx, `
UPDATE custom_roles SET is_active = $2, updated_at = now() WHERE id = $1
`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoleNotFound
	}
	return nil
}

func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM custom_roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoleNotFound
	}
	return nil
}

func (r *Repository) EnsurePermission(ctx context.Context, name, description string) (identity.Permission, error) {
	var p identity.Permission
	err := r.db.QueryRow(ctx, `
INSERT INTO permissions (name, description)
VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
RETURNING id, name, description
`, name, description).Scan(&p.ID, &p.Name, &p.Description)
	return p, err
}

func (r *Repository) ListPermissions(ctx context.Context) ([]identity.Permission, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, name, description FROM permissions ORDER BY name
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []identity.Permission
	for rows.Next() {
		var p identity.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// SetRolePermissions replaces the role's permission set.
func (r *Repository) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return err
	}
	for _, pid := range permissionIDs {
		if _, err := r.db.Exec(ctx, `
INSERT INTO role_permissions (role_id, permission_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING
`, roleID, pid); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) AssignWriter(ctx context.Context, editorID, writerID int64) error {
	if editorID == writerID {
		return fmt.Errorf("editor %d cannot be assigned as its own writer", editorID)
	}
	_, err := r.db.Exec(ctx, `
INSERT INTO writer_assignments (editor_id, writer_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING
`, editorID, writerID)
	return err
}

func (r *Repository) RemoveWriter(ctx context.Context, editorID, writerID int64) error {
	tag, err := r.db.Exec(ctx, `
DELETE FROM writer_assignments WHERE editor_id = $1 AND writer_id = $2
`, editorID, writerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

// ListWriterIDs returns the writers delegated to an editor. The effective
// ownership set is this list plus the editor itself; policy.EffectiveOwners
// does that union.
func (r *Repository) ListWriterIDs(ctx context.Context, editorID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
SELECT writer_id FROM writer_assignments WHERE editor_id = $1 ORDER BY writer_id
`, editorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
