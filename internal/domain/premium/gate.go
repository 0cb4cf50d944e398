package premium

import (
	"time"

	"pressroom/internal/domain/identity"
	"pressroom/internal/domain/subscriptions"
)

// Stats describes the original body regardless of truncation, so clients can
// show "1,240 words" next to a 150-word preview.
type Stats struct {
	TotalWords    int  `json:"total_words"`
	TotalChars    int  `json:"total_chars"`
	IsPremium     bool `json:"is_premium"`
	UserHasAccess bool `json:"user_has_access"`
}

// GateResult is the outcome of a gated body read. Content holds either the
// full body or the preview; the withheld bytes never leave the server.
type GateResult struct {
	Content           string `json:"content"`
	IsTruncated       bool   `json:"is_truncated"`
	ShowPremiumNotice bool   `json:"show_premium_notice"`
	Stats             Stats  `json:"stats"`
}

// GateRead applies the premium gate to a body. p and sub may be nil for
// anonymous readers.
func GateRead(now time.Time, p *identity.Principal, sub *subscriptions.Subscription, body string, itemIsPremium bool, maxWords int) GateResult {
	hasAccess := HasActiveAccess(now, p, sub)

	res := GateResult{
		Content: body,
		Stats: Stats{
			TotalWords:    CountWords(body),
			TotalChars:    CountChars(body),
			IsPremium:     itemIsPremium,
			UserHasAccess: hasAccess,
		},
	}

	if ShouldReveal(itemIsPremium, hasAccess) {
		return res
	}

	preview, truncated := Truncate(body, maxWords)
	res.Content = preview
	res.IsTruncated = truncated
	res.ShowPremiumNotice = truncated
	return res
}
