package subscriptions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"pressroom/internal/infra/dbx"
)

type Store interface {
	Create(ctx context.Context, sub *Subscription) error
	GetByID(ctx context.Context, id int64) (*Subscription, error)
	GetCurrent(ctx context.Context, userID int64) (*Subscription, error)
	Cancel(ctx context.Context, id, userID int64) error
	ExpireLapsed(ctx context.Context) (int64, error)
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{db: q}
}

// Create inserts a subscription, rejecting it when the user already has an
// active one. Check and insert are a single statement so two concurrent
// creates for the same user cannot both pass the check.
func (r *Repository) Create(ctx context.Context, sub *Subscription) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := r.db.QueryRow(ctx, `
INSERT INTO subscriptions (user_id, status, start_date, end_date, amount, auto_renew)
SELECT $1, 'active', $2, $3, $4, $5
WHERE NOT EXISTS (
    SELECT 1 FROM subscriptions WHERE user_id = $1 AND status = 'active'
)
RETURNING id, created_at, updated_at
`, sub.UserID, sub.StartDate, sub.EndDate, sub.Amount, sub.AutoRenew,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrActiveExists
		}
		return err
	}
	sub.Status = StatusActive
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Subscription, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var sub Subscription
	err := r.db.QueryRow(ctx, `
SELECT id, user_id, status, start_date, end_date, amount, auto_renew, created_at, updated_at
FROM subscriptions
WHERE id = $1
`, id).Scan(&sub.ID, &sub.UserID, &sub.Status, &sub.StartDate, &sub.EndDate,
		&sub.Amount, &sub.AutoRenew, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// GetCurrent returns the user's most recent non-expired subscription. A
// cancelled one still counts until its end date passes, so the premium gate
// can keep honoring the paid-for window.
func (r *Repository) GetCurrent(ctx context.Context, userID int64) (*Subscription, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var sub Subscription
	err := r.db.QueryRow(ctx, `
SELECT id, user_id, status, start_date, end_date, amount, auto_renew, created_at, updated_at
FROM subscriptions
WHERE user_id = $1 AND status IN ('active', 'cancelled')
ORDER BY end_date DESC
LIMIT 1
`, userID).Scan(&sub.ID, &sub.UserID, &sub.Status, &sub.StartDate, &sub.EndDate,
		&sub.Amount, &sub.AutoRenew, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// Cancel flips the status. The account's cached premium window is left alone:
// access lapses naturally at end_date.
func (r *Repository) Cancel(ctx context.Context, id, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
UPDATE subscriptions
SET status = 'cancelled', auto_renew = false, updated_at = now()
WHERE id = $1 AND user_id = $2 AND status = 'active'
`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var status Status
		err := r.db.QueryRow(ctx, `
SELECT status FROM subscriptions WHERE id = $1 AND user_id = $2
`, id, userID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrAlreadyCancelled
	}
	return nil
}

// ExpireLapsed marks subscriptions whose window has passed. Run periodically;
// the gate does not depend on it, it only keeps the table tidy.
func (r *Repository) ExpireLapsed(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
UPDATE subscriptions
SET status = 'expired', updated_at = now()
WHERE status IN ('active', 'cancelled') AND end_date < now()
`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
