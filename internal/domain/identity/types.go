package identity

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound          = errors.New("account not found")
	ErrDuplicateUsername = errors.New("an account with that username already exists")
	ErrDuplicateEmail    = errors.New("an account with that email already exists")
	ErrAlreadyActive     = errors.New("account is already active")
	ErrSelfSuspension    = errors.New("an account cannot suspend itself")
	ErrOwnerSuspension   = errors.New("only the owner account may suspend the owner account")
	QueryTimeoutDuration = time.Second * 5
)

// BulkStatus tags the per-account outcome of a bulk lifecycle operation, so
// callers can tell "nothing matched" apart from "some were refused".
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

// BaseRole is the fixed role column on every account. Dynamic behavior on top
// of it comes from an optional CustomRole.
type BaseRole string

const (
	RoleGeneral   BaseRole = "general"
	RoleAdmin     BaseRole = "admin"
	RoleSuperuser BaseRole = "superuser"
)

// Reserved custom-role names that change policy behavior. Matched
// case-insensitively against CustomRole.Name.
const (
	CustomRoleSubadmin = "subadmin"
	CustomRoleEditor   = "editor"
	CustomRoleWriter   = "writer"
)

// Permission is a resource:action pair, unique by name, e.g. "news:read".
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CustomRole is an admin-defined role. One with IsActive=false must be
// treated as absent by the policy layer.
type CustomRole struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	IsActive    bool         `json:"is_active"`
	Permissions []Permission `json:"permissions,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// HasPermission reports whether the role grants the named permission.
// An inactive role grants nothing.
func (r *CustomRole) HasPermission(name string) bool {
	if r == nil || !r.IsActive {
		return false
	}
	for _, p := range r.Permissions {
		if p.Name == name {
			return true
		}
	}
	return false
}

// NameEquals compares the role name case-insensitively, honoring IsActive.
func (r *CustomRole) NameEquals(name string) bool {
	return r != nil && r.IsActive && strings.EqualFold(r.Name, name)
}

// WriterAssignment delegates listing visibility of a writer's content to an
// editor. Many-to-many; each editor's effective set is computed independently.
type WriterAssignment struct {
	EditorID   int64     `json:"editor_id"`
	WriterID   int64     `json:"writer_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// AdFrequency controls how often ads are shown to an account.
type AdFrequency string

const (
	AdFrequencyNormal  AdFrequency = "normal"
	AdFrequencyReduced AdFrequency = "reduced"
	AdFrequencyMinimal AdFrequency = "minimal"
)

// AdPreferences is the ad portion of an account's premium state.
type AdPreferences struct {
	ShowAds     bool        `json:"show_ads"`
	AdFrequency AdFrequency `json:"ad_frequency"`
}

// PremiumState is the cached premium window on an account. The authoritative
// subscription row lives in the subscriptions store; these fields let reads
// skip the join and survive a cancelled-but-not-yet-lapsed subscription.
type PremiumState struct {
	HasPremiumAccess bool          `json:"has_premium_access"`
	PremiumExpiresAt *time.Time    `json:"premium_expires_at"`
	AdPreferences    AdPreferences `json:"ad_preferences"`
}

// Principal is a user account as seen by the policy, gate and token layers.
type Principal struct {
	ID               int64        `json:"id"`
	Username         string       `json:"username"`
	Email            string       `json:"email"`
	FirstName        string       `json:"first_name,omitempty"`
	LastName         string       `json:"last_name,omitempty"`
	Password         password     `json:"-"`
	BaseRole         BaseRole     `json:"role"`
	IsOwner          bool         `json:"is_owner"`
	CustomRole       *CustomRole  `json:"custom_role,omitempty"`
	IsActive         bool         `json:"is_active"`
	Verified         bool         `json:"verified"`
	IsSuspended      bool         `json:"is_suspended"`
	SuspensionReason *string      `json:"-"`
	SuspensionUntil  *time.Time   `json:"-"`
	Premium          PremiumState `json:"premium"`
	LastLogin        *time.Time   `json:"last_login"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// password keeps the plaintext out of reach and the hash out of JSON.
type password struct {
	text *string
	hash []byte
}

func (p *password) Set(text string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(text), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	p.text = &text
	p.hash = hash

	return nil
}

func (p *password) Compare(text string) error {
	return bcrypt.CompareHashAndPassword(p.hash, []byte(text))
}

// Hash exposes the stored hash for persistence.
func (p *password) Hash() []byte { return p.hash }

// SetHash restores a hash loaded from the database.
func (p *password) SetHash(hash []byte) { p.hash = hash }
