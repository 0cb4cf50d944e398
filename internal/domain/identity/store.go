package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"pressroom/internal/infra/dbx"
)

type Store interface {
	Create(ctx context.Context, p *Principal) error
	GetByID(ctx context.Context, id int64) (*Principal, error)
	GetByUsername(ctx context.Context, username string) (*Principal, error)
	GetByEmail(ctx context.Context, email string) (*Principal, error)
	Approve(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	Suspend(ctx context.Context, id int64, reason *string, until *time.Time) error
	Unsuspend(ctx context.Context, id int64) error
	UpdateLastLogin(ctx context.Context, id int64) error
	SetCustomRole(ctx context.Context, userID int64, roleID *int64) error
	SetPremium(ctx context.Context, userID int64, hasAccess bool, expiresAt *time.Time) error
	ListPending(ctx context.Context, limit, offset int) ([]Principal, int, error)
	List(ctx context.Context, f ListFilter, limit, offset int) ([]Principal, int, error)
	BulkApprove(ctx context.Context, ids []int64) (BulkResult, error)
	BulkSuspend(ctx context.Context, ids []int64, canSuspend func(id int64, isOwner bool) error) (BulkResult, error)
}

// ListFilter narrows the admin user listing. Zero values mean "any".
type ListFilter struct {
	Search    string // matched against username and email
	BaseRole  BaseRole
	Suspended *bool
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{db: q}
}

const principalColumns = `
u.id, u.username, u.email, u.first_name, u.last_name, u.password_hash,
u.base_role, u.is_owner, u.is_active, u.verified,
u.is_suspended, u.suspension_reason, u.suspension_until,
u.has_premium_access, u.premium_expires_at, u.show_ads, u.ad_frequency,
u.last_login, u.created_at, u.updated_at,
cr.id, cr.name, cr.description, cr.is_active, cr.created_at, cr.updated_at`

const principalFrom = `
FROM users u
LEFT JOIN custom_roles cr ON cr.id = u.custom_role_id`

func (r *Repository) Create(ctx context.Context, p *Principal) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	// New registrations sit in the pending state until an admin approves them.
	err := r.db.QueryRow(ctx, `
INSERT INTO users (username, email, first_name, last_name, password_hash, base_role, is_active, verified)
VALUES ($1, $2, $3, $4, $5, $6, false, false)
RETURNING id, created_at, updated_at
`, p.Username, p.Email, p.FirstName, p.LastName, p.Password.Hash(), RoleGeneral,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "users_username_key":
				return ErrDuplicateUsername
			default:
				return ErrDuplicateEmail
			}
		}
		return err
	}
	p.BaseRole = RoleGeneral
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Principal, error) {
	return r.getOne(ctx, `WHERE u.id = $1`, id)
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (*Principal, error) {
	return r.getOne(ctx, `WHERE u.username = $1`, username)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*Principal, error) {
	return r.getOne(ctx, `WHERE u.email = $1`, email)
}

func (r *Repository) getOne(ctx context.Context, where string, arg any) (*Principal, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	row := r.db.QueryRow(ctx, `SELECT `+principalColumns+principalFrom+` `+where, arg)
	p, err := scanPrincipal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if p.CustomRole != nil {
		perms, err := r.rolePermissions(ctx, p.CustomRole.ID)
		if err != nil {
			return nil, err
		}
		p.CustomRole.Permissions = perms
	}
	return p, nil
}

func scanPrincipal(row pgx.Row) (*Principal, error) {
	var (
		p        Principal
		hash     []byte
		roleID   *int64
		roleName, roleDesc *string
		roleActive *bool
		roleCreated, roleUpdated *time.Time
	)
	err := row.Scan(
		&p.ID, &p.Username, &p.Email, &p.FirstName, &p.LastName, &hash,
		&p.BaseRole, &p.IsOwner, &p.IsActive, &p.Verified,
		&p.IsSuspended, &p.SuspensionReason, &p.SuspensionUntil,
		&p.Premium.HasPremiumAccess, &p.Premium.PremiumExpiresAt,
		&p.Premium.AdPreferences.ShowAds, &p.Premium.AdPreferences.AdFrequency,
		&p.LastLogin, &p.CreatedAt, &p.UpdatedAt,
		&roleID, &roleName, &roleDesc, &roleActive, &roleCreated, &roleUpdated,
	)
	if err != nil {
		return nil, err
	}
	p.Password.SetHash(hash)
	if roleID != nil {
		p.CustomRole = &CustomRole{
			ID:       *roleID,
			Name:     *roleName,
			IsActive: *roleActive,
		}
		if roleDesc != nil {
			p.CustomRole.Description = *roleDesc
		}
		if roleCreated != nil {
			p.CustomRole.CreatedAt = *roleCreated
		}
		if roleUpdated != nil {
			p.CustomRole.UpdatedAt = *roleUpdated
		}
	}
	return &p, nil
}

func (r *Repository) rolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := r.db.Query(ctx, `
SELECT p.id, p.name, p.description
FROM permissions p
JOIN role_permissions rp ON rp.permission_id = p.id
WHERE rp.role_id = $1
ORDER BY p.name
`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// Approve activates a pending registration. Both flags flip in one statement
// so a concurrent read never sees is_active without verified.
func (r *Repository) Approve(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
UPDATE users
SET is_active = true, verified = true, updated_at = now()
WHERE id = $1 AND is_active = false
`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrAlreadyActive
	}
	return nil
}

// BulkApprove activates a batch of pending registrations, recording a tagged
// outcome per id. Run it inside an accounts tx so a storage failure rolls
// back the whole batch.
func (r *Repository) BulkApprove(ctx context.Context, ids []int64) (BulkResult, error) {
	var res BulkResult
	for _, id := range ids {
		var isActive bool
		err := r.db.QueryRow(ctx, `SELECT is_active FROM users WHERE id = $1`, id).Scan(&isActive)
		if errors.Is(err, pgx.ErrNoRows) {
			res.add(id, BulkNotFound, "")
			continue
		}
		if err != nil {
			return BulkResult{}, err
		}
		if isActive {
			res.add(id, BulkSkipped, "already active")
			continue
		}
		if _, err := r.db.Exec(ctx, `
UPDATE users
SET is_active = true, verified = true, updated_at = now()
WHERE id = $1
`, id); err != nil {
			return BulkResult{}, err
		}
		res.add(id, BulkUpdated, "")
	}
	return res, nil
}

// BulkSuspend flags a batch of accounts, skipping any the canSuspend check
// refuses and recording a tagged outcome per id. Same tx contract as
// BulkApprove.
func (r *Repository) BulkSuspend(ctx context.Context, ids []int64, canSuspend func(id int64, isOwner bool) error) (BulkResult, error) {
	var res BulkResult
	for _, id := range ids {
		var isOwner bool
		err := r.db.QueryRow(ctx, `SELECT is_owner FROM users WHERE id = $1`, id).Scan(&isOwner)
		if errors.Is(err, pgx.ErrNoRows) {
			res.add(id, BulkNotFound, "")
			continue
		}
		if err != nil {
			return BulkResult{}, err
		}
		if err := canSuspend(id, isOwner); err != nil {
			res.add(id, BulkSkipped, err.Error())
			continue
		}
		if _, err := r.db.Exec(ctx, `
UPDATE users
SET is_suspended = true, suspension_reason = NULL, suspension_until = NULL, updated_at = now()
WHERE id = $1
`, id); err != nil {
			return BulkResult{}, err
		}
		res.add(id, BulkUpdated, "")
	}
	return res, nil
}

// Delete removes the account outright. Rejection keeps no record.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Suspend flags the account. suspension_until is advisory only: nothing reads
// it at login time, an explicit Unsuspend is the only way back.
func (r *Repository) Suspend(ctx context.Context, id int64, reason *string, until *time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
UPDATE users
SET is_suspended = true, suspension_reason = $2, suspension_until = $3, updated_at = now()
WHERE id = $1
`, id, reason, until)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Unsuspend(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
UPDATE users
SET is_suspended = false, suspension_reason = NULL, suspension_until = NULL, updated_at = now()
WHERE id = $1
`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := r.db.Exec(ctx, `UPDATE users SET last_login = now() WHERE id = $1`, id)
	return err
}

func (r *Repository) SetCustomRole(ctx context.Context, userID int64, roleID *int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
UPDATE users SET custom_role_id = $2, updated_at = now() WHERE id = $1
`, userID, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetPremium(ctx context.Context, userID int64, hasAccess bool, expiresAt *time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
UPDATE users
SET has_premium_access = $2, premium_expires_at = $3, updated_at = now()
WHERE id = $1
`, userID, hasAccess, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListPending(ctx context.Context, limit, offset int) ([]Principal, int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var total int
	if err := r.db.QueryRow(ctx, `
SELECT COUNT(*) FROM users WHERE is_active = false AND verified = false
`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `
SELECT `+principalColumns+principalFrom+`
WHERE u.is_active = false AND u.verified = false
ORDER BY u.created_at ASC
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

func (r *Repository) List(ctx context.Context, f ListFilter, limit, offset int) ([]Principal, int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	where := `WHERE 1=1`
	args := []any{}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(` AND (u.username ILIKE $%d OR u.email ILIKE $%d)`, len(args), len(args))
	}
	if f.BaseRole != "" {
		args = append(args, string(f.BaseRole))
		where += fmt.Sprintf(` AND u.base_role = $%d`, len(args))
	}
	if f.Suspended != nil {
		args = append(args, *f.Suspended)
		where += fmt.Sprintf(` AND u.is_suspended = $%d`, len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) `+principalFrom+` `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
SELECT %s %s
%s
ORDER BY u.created_at DESC
LIMIT $%d OFFSET $%d
`, principalColumns, principalFrom, where, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}
