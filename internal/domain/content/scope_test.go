package content

import (
	"strings"
	"testing"

	"pressroom/internal/domain/policy"
)

func TestScopeClauseUnrestricted(t *testing.T) {
	var args []any
	got := scopeClause(policy.Scope{All: true}, "a.owner_id", &args)
	if got != "TRUE" || len(args) != 0 {
		t.Fatalf("got %q args=%v, want TRUE with no args", got, args)
	}
}

func TestScopeClauseEmptyMatchesNothing(t *testing.T) {
	var args []any
	got := scopeClause(policy.Scope{}, "a.owner_id", &args)
	if got != "FALSE" || len(args) != 0 {
		t.Fatalf("got %q args=%v, want FALSE with no args", got, args)
	}
}

func TestScopeClauseOwnerFilter(t *testing.T) {
	args := []any{"existing"}
	got := scopeClause(policy.Scope{OwnerIDs: []int64{1, 2}}, "a.owner_id", &args)
	if got != "a.owner_id = ANY($2)" {
		t.Fatalf("got %q, want the filter bound to the next placeholder", got)
	}
	if len(args) != 2 {
		t.Fatalf("args = %v, want the owner ids appended", args)
	}
	ids, ok := args[1].([]int64)
	if !ok || len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("bound value = %v, want [1 2]", args[1])
	}
}

func TestScopeClauseGeneralAuthoredUnion(t *testing.T) {
	var args []any
	got := scopeClause(policy.Scope{OwnerIDs: []int64{5}, OwnGeneralAuthored: true}, "a.owner_id", &args)
	if !strings.Contains(got, "a.owner_id = ANY($1)") {
		t.Fatalf("clause %q missing the owner filter", got)
	}
	if !strings.Contains(got, "base_role = 'general'") {
		t.Fatalf("clause %q missing the general-authored union", got)
	}
	if !strings.HasPrefix(got, "(") || !strings.HasSuffix(got, ")") {
		t.Fatalf("union clause must be parenthesized so AND composition stays correct: %q", got)
	}
}
