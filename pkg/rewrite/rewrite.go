// Package rewrite produces SQL text with a new row limit applied to a
// parsed statement.
//
// For the prefix (TOP) dialect family the decision table is:
//
//	CTE  existing limit  action
//	no   none            wrap in SELECT TOP n FROM ( ... )
//	no   present         substitute the literal in place
//	yes  none            append an inner_qry CTE and select from it
//	yes  present         substitute inside the main query, prepend the
//	                     prologue verbatim
//
// Substitution mutates only the integer literal's text; every other
// token re-serializes byte for byte.
package rewrite

import (
	"fmt"
	"strconv"

	"github.com/rowcap/rowcap/pkg/parse"
)

// innerQueryName is the synthesized CTE wrapping a prologue-carrying
// statement that has no limit clause of its own.
const innerQueryName = "inner_qry"

// WithLimit returns SQL text equivalent to st but capped at limit rows.
// The caller is responsible for validating that limit is positive.
// The statement's tokens may be mutated; a Statement is rewritten at
// most once.
func WithLimit(st *parse.Statement, limit int) string {
	if st.HasCTE() {
		return cteWithLimit(st, limit)
	}

	if _, ok := st.Limit(); !ok {
		return fmt.Sprintf("SELECT TOP %d FROM (\n%s\n)", limit, st.Stripped())
	}

	// Re-find against the live tokens; the construction-time result is
	// a value snapshot, not a token reference.
	if lit := parse.FindLimitToken(st.Tokens()); lit != nil {
		lit.SetValue(strconv.Itoa(limit))
	}
	return st.Tokens().Text()
}

// cteWithLimit handles the two prologue-carrying branches.
func cteWithLimit(st *parse.Statement, limit int) string {
	if _, ok := st.Limit(); !ok {
		return fmt.Sprintf("%s, %s as (\n%s\n)\nSELECT TOP %d * FROM %s",
			st.Prologue(), innerQueryName, st.Query(), limit, innerQueryName)
	}

	if lit := parse.FindLimitToken(st.QueryTokens()); lit != nil {
		lit.SetValue(strconv.Itoa(limit))
	}
	// The main-query tokens keep their leading separator whitespace, so
	// prepending the trimmed prologue reproduces the original spacing.
	return st.Prologue() + st.QueryTokens().Text()
}
