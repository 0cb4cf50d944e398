// Package policy holds the pure access-control decisions: tier resolution,
// listing scopes, single-item authorization and default visibility. Nothing in
// here touches storage; callers pass in the principal (and, for editors, the
// delegated writer IDs) and translate the returned scope into a query filter.
package policy

import (
	"pressroom/internal/domain/identity"
)

// Tier is the closed set of effective access classes. Every request resolves
// its principal to exactly one tier and switches on it, instead of scattering
// role-name string comparisons per endpoint.
type Tier int

const (
	TierOwner Tier = iota
	TierAdmin
	TierSubadmin
	TierEditor
	TierGeneral
)

func (t Tier) String() string {
	switch t {
	case TierOwner:
		return "owner"
	case TierAdmin:
		return "admin"
	case TierSubadmin:
		return "subadmin"
	case TierEditor:
		return "editor"
	default:
		return "general"
	}
}

// ResolveTier computes the effective tier for a principal. The owner flag
// outranks everything; an inactive custom role is treated as absent.
func ResolveTier(p *identity.Principal) Tier {
	if p == nil {
		return TierGeneral
	}
	if p.IsOwner {
		return TierOwner
	}
	if p.BaseRole == identity.RoleAdmin || p.BaseRole == identity.RoleSuperuser {
		return TierAdmin
	}
	if p.CustomRole.NameEquals(identity.CustomRoleSubadmin) {
		return TierSubadmin
	}
	if p.CustomRole.NameEquals(identity.CustomRoleEditor) {
		return TierEditor
	}
	return TierGeneral
}

// IsAdminTier reports whether the tier is unrestricted for listing. Owner
// implies admin treatment for every check.
func (t Tier) IsAdminTier() bool {
	return t == TierOwner || t == TierAdmin || t == TierSubadmin
}

// Scope is the owner filter a listing query must apply. All=true means
// unrestricted. OwnGeneralAuthored additionally unions in items authored by
// GENERAL-role accounts; it is only produced by the narrowed news "all" mode.
type Scope struct {
	All               bool
	OwnerIDs          []int64
	OwnGeneralAuthored bool
}

// EffectiveOwners is the set of author IDs an editor may list content for:
// the editor itself plus its delegated writers.
func EffectiveOwners(p *identity.Principal, writerIDs []int64) []int64 {
	owners := make([]int64, 0, len(writerIDs)+1)
	owners = append(owners, p.ID)
	owners = append(owners, writerIDs...)
	return owners
}

// ListScope is the uniform listing rule, in precedence order: admin tier sees
// everything, editor tier sees its effective ownership set, everyone else sees
// only their own items. Anonymous callers get an empty scope.
func ListScope(p *identity.Principal, writerIDs []int64) Scope {
	if p == nil {
		return Scope{}
	}
	tier := ResolveTier(p)
	switch {
	case tier.IsAdminTier():
		return Scope{All: true}
	case tier == TierEditor:
		return Scope{OwnerIDs: EffectiveOwners(p, writerIDs)}
	default:
		return Scope{OwnerIDs: []int64{p.ID}}
	}
}

// NewsOwnershipMode selects the ownership filter on the news listing.
type NewsOwnershipMode string

const (
	NewsOwnershipMine NewsOwnershipMode = "mine"
	NewsOwnershipAll  NewsOwnershipMode = "all"
)

// NewsOwnershipScope handles the news "all" filter. A superuser keeps the
// unrestricted scope; an admin gets a narrowed view of its own items plus
// items authored by GENERAL-role accounts (never other admins' items). Any
// other caller or mode falls back to the uniform ListScope.
func NewsOwnershipScope(p *identity.Principal, mode NewsOwnershipMode, writerIDs []int64) Scope {
	if p == nil || mode != NewsOwnershipAll {
		return ListScope(p, writerIDs)
	}
	if p.IsOwner || p.BaseRole == identity.RoleSuperuser {
		return Scope{All: true}
	}
	if p.BaseRole == identity.RoleAdmin {
		return Scope{OwnerIDs: []int64{p.ID}, OwnGeneralAuthored: true}
	}
	return ListScope(p, writerIDs)
}

// CanModify decides update/delete on a single item: its owner or any admin
// tier. Editor delegation covers listing only, never mutation.
func CanModify(p *identity.Principal, itemOwnerID int64) bool {
	if p == nil {
		return false
	}
	if p.ID == itemOwnerID {
		return true
	}
	return ResolveTier(p).IsAdminTier()
}

// CanViewHidden is the narrow permission escape hatch: an otherwise-hidden
// item is readable by admin tier or by a custom role that explicitly holds
// the class's read permission (e.g. "news:read").
func CanViewHidden(p *identity.Principal, readPermission string) bool {
	if p == nil {
		return false
	}
	if ResolveTier(p).IsAdminTier() {
		return true
	}
	return p.CustomRole.HasPermission(readPermission)
}

// DefaultMediaVisibility is the creation default for uploaded media when the
// caller supplies no explicit value: hidden for admin-tier creators and for
// editor/writer custom roles, visible for everyone else.
func DefaultMediaVisibility(p *identity.Principal) bool {
	if p == nil {
		return true
	}
	tier := ResolveTier(p)
	if tier.IsAdminTier() || tier == TierEditor {
		return false
	}
	if p.CustomRole.NameEquals(identity.CustomRoleWriter) {
		return false
	}
	return true
}

// DefaultArticleVisibility: authored articles start hidden unless the caller
// explicitly publishes.
func DefaultArticleVisibility() bool {
	return false
}
