package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"pressroom/internal/domain/policy"
	"pressroom/internal/infra/dbx"
)

type AlbumStore interface {
	Create(ctx context.Context, al *Album) error
	GetByID(ctx context.Context, id int64) (*Album, error)
	List(ctx context.Context, scope policy.Scope, status StatusFilter, limit, offset int) ([]Album, int, error)
	Update(ctx context.Context, al *Album) error
	SetVisibility(ctx context.Context, id int64, visible bool) error
	SetArchived(ctx context.Context, id int64, archived bool) error
	Delete(ctx context.Context, id int64) error
}

type AlbumRepository struct {
	db dbx.Querier
}

func NewAlbumRepository(q dbx.Querier) *AlbumRepository {
	return &AlbumRepository{db: q}
}

const albumColumns = `
id, owner_id, title, description, cover_url, is_visible, is_archived, created_at, updated_at`

func scanAlbum(row pgx.Row) (*Album, error) {
	var al Album
	err := row.Scan(&al.ID, &al.OwnerID, &al.Title, &al.Description, &al.CoverURL,
		&al.IsVisible, &al.IsArchived, &al.CreatedAt, &al.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &al, nil
}

func (r *AlbumRepository) Create(ctx context.Context, al *Album) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return r.db.QueryRow(ctx, `
INSERT INTO albums (owner_id, title, description, cover_url, is_visible)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at, updated_at
`, al.OwnerID, al.Title, al.Description, al.CoverURL, al.IsVisible,
	).Scan(&al.ID, &al.CreatedAt, &al.UpdatedAt)
}

func (r *AlbumRepository) GetByID(ctx context.Context, id int64) (*Album, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	al, err := scanAlbum(r.db.QueryRow(ctx, `SELECT `+albumColumns+` FROM albums WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return al, nil
}

func (r *AlbumRepository) List(ctx context.Context, scope policy.Scope, status StatusFilter, limit, offset int) ([]Album, int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var args []any
	conds := []string{scopeClause(scope, "owner_id", &args)}
	switch status {
	case StatusDraft:
		conds = append(conds, "is_visible = false AND is_archived = false")
	case StatusPublished:
		conds = append(conds, "is_visible = true AND is_archived = false")
	case StatusArchived:
		conds = append(conds, "is_archived = true")
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM albums WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM albums WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		albumColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Album
	for rows.Next() {
		al, err := scanAlbum(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *al)
	}
	return out, total, rows.Err()
}

func (r *AlbumRepository) Update(ctx context.Context, al *Album) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
UPDATE albums
SET title = $2, description = $3, cover_url = $4, updated_at = now()
WHERE id = $1
`, al.ID, al.Title, al.Description, al.CoverURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AlbumRepository) SetVisibility(ctx context.Context, id int64, visible bool) error {
	return r.setFlag(ctx, id, "is_visible", visible)
}

func (r *AlbumRepository) SetArchived(ctx context.Context, id int64, archived bool) error {
	return r.setFlag(ctx, id, "is_archived", archived)
}

func (r *AlbumRepository) setFlag(ctx context.Context, id int64, column string, value bool) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx,
		fmt.Sprintf(`UPDATE albums SET %s = $2, updated_at = now() WHERE id = $1`, column),
		id, value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the album; media rows keep their album_id cleared rather
// than cascading away uploads.
func (r *AlbumRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
WITH detach AS (
    UPDATE media_items SET album_id = NULL WHERE album_id = $1
)
DELETE FROM albums WHERE id = $1
`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
