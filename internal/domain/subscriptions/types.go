package subscriptions

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("subscription not found")
	ErrActiveExists      = errors.New("an active subscription already exists for this user")
	ErrAlreadyCancelled  = errors.New("subscription is already cancelled")
	QueryTimeoutDuration = time.Second * 5
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Subscription is a premium window purchased by a user. At most one
// subscription per user holds StatusActive at a time; cancelling flips the
// status but leaves the premium window to lapse naturally at EndDate.
type Subscription struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Status    Status    `json:"status"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Amount    float64   `json:"amount"`
	AutoRenew bool      `json:"auto_renew"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
