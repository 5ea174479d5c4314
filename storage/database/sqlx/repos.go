// Package sqlxrepos provides postgres-backed repositories built on sqlx.
//
// Queries are written with "?" bindvars and passed through sqlx.DB.Rebind so
// IN expansions via sqlx.In keep working.
package sqlxrepos

import (
	"strings"

	"github.com/lib/pq"

	"github.com/tmdiniz/atende/core"
)

const pqUniqueViolation = "23505"

// isUniqueViolation reports whether err is a postgres unique constraint
// violation, optionally on a specific constraint.
func isUniqueViolation(err error, constraint string) bool {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return false
	}
	if pqErr.Code != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// orderClause renders an ORDER BY clause, falling back to the given default
// when no orderings were requested. Ordering fields come from trusted bindings,
// never raw user input.
func orderClause(orderings []core.DBOrdering, dflt string) string {
	if len(orderings) == 0 {
		return " ORDER BY " + dflt
	}
	terms := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		terms = append(terms, ord.String())
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}
