package goals

import (
	"fmt"

	"perftrack/internal/domain/auth"
)

// Scope bounds which goals a caller may see or act upon. The same predicate
// guards list queries and every mutating lookup, so a client-supplied goal id
// outside the caller's scope behaves exactly like a missing goal.
type Scope struct {
	UserID         string
	Role           auth.Role
	IncludeDeleted bool
}

// ScopeFor derives the caller's scope. Only administrators may opt into
// seeing soft-deleted goals.
func ScopeFor(user auth.UserContext, includeDeleted bool) Scope {
	scope := Scope{UserID: user.UserID, Role: user.Role}
	if user.Role == auth.RoleAdmin {
		scope.IncludeDeleted = includeDeleted
	}
	return scope
}

// Predicate returns a SQL condition over the aliased goals table plus its
// arguments. arg is the 1-based placeholder index the fragment starts at.
func (s Scope) Predicate(alias string, arg int) (string, []any) {
	var cond string
	var args []any

	switch s.Role {
	case auth.RoleAdmin:
		cond = "TRUE"
	case auth.RoleManager:
		cond = fmt.Sprintf(
			"(%[1]s.employee_id IN (SELECT id FROM users WHERE manager_id = $%[2]d) OR %[1]s.employee_id = $%[2]d OR %[1]s.manager_id = $%[2]d)",
			alias, arg)
		args = []any{s.UserID}
	case auth.RoleEmployee:
		cond = fmt.Sprintf("(%[1]s.employee_id = $%[2]d OR %[1]s.manager_id = $%[2]d)", alias, arg)
		args = []any{s.UserID}
	default:
		// Unrecognized role: deny everything.
		cond = "FALSE"
	}

	if !s.IncludeDeleted {
		cond = fmt.Sprintf("%s AND %s.status <> '%s'", cond, alias, StatusDeleted)
	}
	return cond, args
}
