package content

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("content item not found")
	QueryTimeoutDuration = time.Second * 5
)

// Article is a news item. Draft (hidden), Published (visible) and Archived
// states per the lifecycle; archiving retains the visibility flag but public
// reads ignore it.
type Article struct {
	ID         int64     `json:"id"`
	Slug       string    `json:"slug"`
	OwnerID    int64     `json:"owner_id"`
	Title      string    `json:"title"`
	Summary    string    `json:"summary,omitempty"`
	Body       string    `json:"body,omitempty"`
	IsPremium  bool      `json:"is_premium"`
	IsVisible  bool      `json:"is_visible"`
	IsArchived bool      `json:"is_archived"`
	ShareCount int       `json:"share_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Album groups media; same lifecycle as articles but no body to gate.
type Album struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CoverURL    *string   `json:"cover_url,omitempty"`
	IsVisible   bool      `json:"is_visible"`
	IsArchived  bool      `json:"is_archived"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// MediaItem is an uploaded image or video. Media has no archive state, only
// Hidden/Visible.
type MediaItem struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	AlbumID   *int64    `json:"album_id,omitempty"`
	Kind      MediaKind `json:"kind"`
	Title     string    `json:"title,omitempty"`
	URL       string    `json:"url"`
	PublicID  string    `json:"-"`
	IsVisible bool      `json:"is_visible"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusFilter narrows listings by lifecycle state.
type StatusFilter string

const (
	StatusAny       StatusFilter = "all"
	StatusDraft     StatusFilter = "draft"
	StatusPublished StatusFilter = "published"
	StatusArchived  StatusFilter = "archived"
)

// BulkStatus tags the per-item outcome of a bulk operation, so callers can
// tell "nothing matched" apart from "some were forbidden".
type BulkStatus string

const (
	BulkUpdated  BulkStatus = "updated"
	BulkSkipped  BulkStatus = "skipped"
	BulkNotFound BulkStatus = "not_found"
)

type BulkOutcome struct {
	ID     int64      `json:"id"`
	Status BulkStatus `json:"status"`
	Reason string     `json:"reason,omitempty"`
}

type BulkResult struct {
	Outcomes []BulkOutcome `json:"outcomes"`
	Updated  int           `json:"updated"`
}

func (r *BulkResult) add(id int64, status BulkStatus, reason string) {
	r.Outcomes = append(r.Outcomes, BulkOutcome{ID: id, Status: status, Reason: reason})
	if status == BulkUpdated {
		r.Updated++
	}
}
