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

type MediaStore interface {
	Create(ctx context.Context, m *MediaItem) error
	GetByID(ctx context.Context, id int64) (*MediaItem, error)
	List(ctx context.Context, scope policy.Scope, kind MediaKind, limit, offset int) ([]MediaItem, int, error)
	SetVisibility(ctx context.Context, id int64, visible bool) error
	Delete(ctx context.Context, id int64) error
	BulkSetVisibility(ctx context.Context, ids []int64, visible bool, canModify func(ownerID int64) bool) (BulkResult, error)
}

type MediaRepository struct {
	db dbx.Querier
}

func NewMediaRepository(q dbx.Querier) *MediaRepository {
	return &MediaRepository{db: q}
}

const mediaColumns = `
id, owner_id, album_id, kind, title, url, public_id, is_visible, created_at, updated_at`

func scanMedia(row pgx.Row) (*MediaItem, error) {
	var m MediaItem
	err := row.Scan(&m.ID, &m.OwnerID, &m.AlbumID, &m.Kind, &m.Title, &m.URL,
		&m.PublicID, &m.IsVisible, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MediaRepository) Create(ctx context.Context, m *MediaItem) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return r.db.QueryRow(ctx, `
INSERT INTO media_items (owner_id, album_id, kind, title, url, public_id, is_visible)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at, updated_at
`, m.OwnerID, m.AlbumID, m.Kind, m.Title, m.URL, m.PublicID, m.IsVisible,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

func (r *MediaRepository) GetByID(ctx context.Context, id int64) (*MediaItem, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	m, err := scanMedia(r.db.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *MediaRepository) List(ctx context.Context, scope policy.Scope, kind MediaKind, limit, offset int) ([]MediaItem, int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var args []any
	conds := []string{scopeClause(scope, "owner_id", &args)}
	if kind != "" {
		args = append(args, kind)
		conds = append(conds, fmt.Sprintf("kind = $%d", len(args)))
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM media_items WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM media_items WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		mediaColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []MediaItem
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *m)
	}
	return out, total, rows.Err()
}

func (r *MediaRepository) SetVisibility(ctx context.Context, id int64, visible bool) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
UPDATE media_items SET is_visible = $2, updated_at = now() WHERE id = $1
`, id, visible)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MediaRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM media_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MediaRepository) BulkSetVisibility(ctx context.Context, ids []int64, visible bool, canModify func(ownerID int64) bool) (BulkResult, error) {
	var res BulkResult
	for _, id := range ids {
		var ownerID int64
		err := r.db.QueryRow(ctx, `SELECT owner_id FROM media_items WHERE id = $1`, id).Scan(&ownerID)
		if errors.Is(err, pgx.ErrNoRows) {
			res.add(id, BulkNotFound, "")
			continue
		}
		if err != nil {
			return BulkResult{}, err
		}
		if !canModify(ownerID) {
			res.add(id, BulkSkipped, "not permitted")
			continue
		}
		if err := r.SetVisibility(ctx, id, visible); err != nil {
			return BulkResult{}, err
		}
		res.add(id, BulkUpdated, "")
	}
	return res, nil
}
