package content

import (
	"fmt"

	"pressroom/internal/domain/policy"
)

// scopeClause translates a policy scope into a SQL condition over the given
// owner column, appending bind arguments as it goes. An empty scope (an
// anonymous caller asking for an owner-filtered listing) matches nothing.
func scopeClause(s policy.Scope, ownerCol string, args *[]any) string {
	if s.All {
		return "TRUE"
	}
	if len(s.OwnerIDs) == 0 {
		return "FALSE"
	}
	*args = append(*args, s.OwnerIDs)
	cond := fmt.Sprintf("%s = ANY($%d)", ownerCol, len(*args))
	if s.OwnGeneralAuthored {
		cond = fmt.Sprintf(
			"(%s OR EXISTS (SELECT 1 FROM users au WHERE au.id = %s AND au.base_role = 'general'))",
			cond, ownerCol,
		)
	}
	return cond
}
