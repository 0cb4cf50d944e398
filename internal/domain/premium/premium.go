// Package premium decides whether a reader gets a content body in full or as
// a bounded preview, and derives current premium status from subscription
// state. Everything here is pure; callers fetch the principal and subscription
// and pass them in.
package premium

import (
	"time"

	"pressroom/internal/domain/identity"
	"pressroom/internal/domain/subscriptions"
)

// HasActiveAccess reports whether the principal currently holds premium
// access: a subscription (active or cancelled-but-not-lapsed) whose window
// covers now, or the cached account flag with a nil or future expiry.
// Anonymous callers are never premium.
func HasActiveAccess(now time.Time, p *identity.Principal, sub *subscriptions.Subscription) bool {
	if p == nil {
		return false
	}
	if sub != nil &&
		(sub.Status == subscriptions.StatusActive || sub.Status == subscriptions.StatusCancelled) &&
		now.Before(sub.EndDate) {
		return true
	}
	if p.Premium.HasPremiumAccess {
		if p.Premium.PremiumExpiresAt == nil || now.Before(*p.Premium.PremiumExpiresAt) {
			return true
		}
	}
	return false
}

// ShouldReveal is the gate decision for a single item: non-premium items are
// always revealed, premium items only to premium readers.
func ShouldReveal(itemIsPremium bool, readerHasAccess bool) bool {
	return !itemIsPremium || readerHasAccess
}
