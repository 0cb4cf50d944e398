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

type ArticleStore interface {
	Create(ctx context.Context, a *Article) error
	GetByID(ctx context.Context, id int64) (*Article, error)
	GetBySlug(ctx context.Context, slug string) (*Article, error)
	List(ctx context.Context, scope policy.Scope, status StatusFilter, limit, offset int) ([]Article, int, error)
	ListPublished(ctx context.Context, limit, offset int) ([]Article, int, error)
	Update(ctx context.Context, a *Article) error
	SetVisibility(ctx context.Context, id int64, visible bool) error
	SetArchived(ctx context.Context, id int64, archived bool) error
	Delete(ctx context.Context, id int64) error
	Share(ctx context.Context, id int64) error
	BulkSetVisibility(ctx context.Context, ids []int64, visible bool, canModify func(ownerID int64) bool) (BulkResult, error)
	BulkSetArchived(ctx context.Context, ids []int64, archived bool, canModify func(ownerID int64) bool) (BulkResult, error)
	BulkDelete(ctx context.Context, ids []int64, canModify func(ownerID int64) bool) (BulkResult, error)
}

type ArticleRepository struct {
	db    dbx.Querier
	slugs *SlugEncoder
}

func NewArticleRepository(q dbx.Querier, slugs *SlugEncoder) *ArticleRepository {
	return &ArticleRepository{db: q, slugs: slugs}
}

const articleColumns = `
a.id, a.owner_id, a.title, a.summary, a.body, a.is_premium, a.is_visible, a.is_archived,
COALESCE(s.count, 0), a.created_at, a.updated_at`

const articleFrom = `
FROM articles a
LEFT JOIN article_shares s ON s.article_id = a.id`

func (r *ArticleRepository) scan(row pgx.Row) (*Article, error) {
	var a Article
	err := row.Scan(&a.ID, &a.OwnerID, &a.Title, &a.Summary, &a.Body, &a.IsPremium,
		&a.IsVisible, &a.IsArchived, &a.ShareCount, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Slug = r.slugs.Encode(a.ID)
	return &a, nil
}

func (r *ArticleRepository) Create(ctx context.Context, a *Article) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := r.db.QueryRow(ctx, `
INSERT INTO articles (owner_id, title, summary, body, is_premium, is_visible)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at, updated_at
`, a.OwnerID, a.Title, a.Summary, a.Body, a.IsPremium, a.IsVisible,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return err
	}
	a.Slug = r.slugs.Encode(a.ID)
	return nil
}

func (r *ArticleRepository) GetByID(ctx context.Context, id int64) (*Article, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	a, err := r.scan(r.db.QueryRow(ctx, `SELECT `+articleColumns+articleFrom+` WHERE a.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *ArticleRepository) GetBySlug(ctx context.Context, slug string) (*Article, error) {
	id, err := r.slugs.Decode(slug)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// List applies the caller's ownership scope plus a lifecycle filter.
func (r *ArticleRepository) List(ctx context.Context, scope policy.Scope, status StatusFilter, limit, offset int) ([]Article, int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var args []any
	conds := []string{scopeClause(scope, "a.owner_id", &args)}
	switch status {
	case StatusDraft:
		conds = append(conds, "a.is_visible = false AND a.is_archived = false")
	case StatusPublished:
		conds = append(conds, "a.is_visible = true AND a.is_archived = false")
	case StatusArchived:
		conds = append(conds, "a.is_archived = true")
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM articles a WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d`,
		articleColumns, articleFrom, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Article
	for rows.Next() {
		a, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}

// ListPublished is the public feed: visible, not archived, no owner filter.
func (r *ArticleRepository) ListPublished(ctx context.Context, limit, offset int) ([]Article, int, error) {
	return r.List(ctx, policy.Scope{All: true}, StatusPublished, limit, offset)
}

func (r *ArticleRepository) Update(ctx context.Context, a *Article) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
UPDATE articles
SET title = $2, summary = $3, body = $4, is_premium = $5, updated_at = now()
WHERE id = $1
`, a.ID, a.Title, a.Summary, a.Body, a.IsPremium)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetVisibility publishes or hides. Toggling to the current value is a no-op
// that still reports success.
func (r *ArticleRepository) SetVisibility(ctx context.Context, id int64, visible bool) error {
	return r.setFlag(ctx, id, "is_visible", visible)
}

// SetArchived archives or unarchives. Unarchiving leaves is_visible as last
// set; it does not restore a pre-archive value.
func (r *ArticleRepository) SetArchived(ctx context.Context, id int64, archived bool) error {
	return r.setFlag(ctx, id, "is_archived", archived)
}

func (r *ArticleRepository) setFlag(ctx context.Context, id int64, column string, value bool) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx,
		fmt.Sprintf(`UPDATE articles SET %s = $2, updated_at = now() WHERE id = $1`, column),
		id, value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the article and its share counter in one statement. No
// soft-delete state exists.
func (r *ArticleRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
WITH shares AS (
    DELETE FROM article_shares WHERE article_id = $1
)
DELETE FROM articles WHERE id = $1
`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ArticleRepository) Share(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := r.db.Exec(ctx, `
INSERT INTO article_shares (article_id, count)
VALUES ($1, 1)
ON CONFLICT (article_id) DO UPDATE SET count = article_shares.count + 1
`, id)
	return err
}

func (r *ArticleRepository) BulkSetVisibility(ctx context.Context, ids []int64, visible bool, canModify func(ownerID int64) bool) (BulkResult, error) {
	return r.bulk(ctx, ids, canModify, func(ctx context.Context, id int64) error {
		return r.SetVisibility(ctx, id, visible)
	})
}

func (r *ArticleRepository) BulkSetArchived(ctx context.Context, ids []int64, archived bool, canModify func(ownerID int64) bool) (BulkResult, error) {
	return r.bulk(ctx, ids, canModify, func(ctx context.Context, id int64) error {
		return r.SetArchived(ctx, id, archived)
	})
}

func (r *ArticleRepository) BulkDelete(ctx context.Context, ids []int64, canModify func(ownerID int64) bool) (BulkResult, error) {
	return r.bulk(ctx, ids, canModify, r.Delete)
}

// bulk runs an operation per item, skipping items the caller may not touch
// and recording a tagged outcome for each. Run it inside a content tx so a
// storage failure rolls back the whole batch.
func (r *ArticleRepository) bulk(ctx context.Context, ids []int64, canModify func(ownerID int64) bool, op func(context.Context, int64) error) (BulkResult, error) {
	var res BulkResult
	for _, id := range ids {
		var ownerID int64
		err := r.db.QueryRow(ctx, `SELECT owner_id FROM articles WHERE id = $1`, id).Scan(&ownerID)
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
		if err := op(ctx, id); err != nil {
			return BulkResult{}, err
		}
		res.add(id, BulkUpdated, "")
	}
	return res, nil
}
