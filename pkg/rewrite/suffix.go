package rewrite

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rowcap/rowcap/pkg/lexer"
	"github.com/rowcap/rowcap/pkg/token"
)

// Suffix-family helpers for engines whose grammar caps rows with a
// trailing LIMIT clause. These serve the engine registry's non-prefix
// dialects; the prefix (TOP) logic above is the core.

// WithSuffixLimit returns sql capped at limit rows by replacing an
// existing top-level trailing LIMIT literal in place, or appending a
// LIMIT clause when none exists.
func WithSuffixLimit(sql string, limit int) (string, error) {
	stmt, err := lexer.TokenizeStatement(sql)
	if err != nil {
		return "", err
	}

	if lit := findSuffixLimit(stmt); lit != nil {
		lit.SetValue(strconv.Itoa(limit))
		return stmt.Text(), nil
	}
	return fmt.Sprintf("%s\nLIMIT %d",
		strings.Trim(stmt.Text(), " \t\r\n;"), limit), nil
}

// SuffixLimit extracts the top-level trailing LIMIT value from sql.
func SuffixLimit(sql string) (int, bool, error) {
	stmt, err := lexer.TokenizeStatement(sql)
	if err != nil {
		return 0, false, err
	}
	lit := findSuffixLimit(stmt)
	if lit == nil {
		return 0, false, nil
	}
	v, err := strconv.Atoi(lit.Value)
	if err != nil {
		return 0, false, nil
	}
	return v, true, nil
}

// findSuffixLimit scans only the statement's top level: a LIMIT inside
// a subquery does not cap the outer query.
func findSuffixLimit(stmt *token.List) *token.Token {
	for i, t := range stmt.Tokens {
		if t.Type != token.Keyword || !t.Matches("LIMIT") {
			continue
		}
		_, next := stmt.NextNonTrivial(i)
		if next != nil && next.Type == token.Integer {
			return next
		}
		return nil
	}
	return nil
}
