// Package parse wraps one tokenized SQL statement and derives its CTE
// prologue, main query, and existing row limit.
//
// The derived limit is computed once at construction and cached; a
// Statement is rewritten at most once in its lifetime, and the rewrite
// re-runs its own search against the live tokens rather than trusting
// the cached value to still reference the same token.
package parse

import (
	"strconv"
	"strings"

	"github.com/rowcap/rowcap/pkg/lexer"
	"github.com/rowcap/rowcap/pkg/log"
	"github.com/rowcap/rowcap/pkg/token"
)

// limitKeyword is the prefix row-capping keyword of the dialect.
const limitKeyword = "TOP"

// Statement is one parsed SQL statement.
type Statement struct {
	raw    string
	tokens *token.List

	// prologue is nil when the statement has no CTE. When present,
	// query begins strictly after the prologue's last token.
	prologue *token.List
	query    *token.List

	limit    int
	hasLimit bool
}

// Option configures statement parsing.
type Option func(*options)

type options struct {
	logger *log.Logger
}

// WithLogger enables diagnostic logging of the extracted prologue and
// query text during parsing.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Parse tokenizes sql and wraps its first statement. Multi-statement
// input is not an error; only the first statement is analyzed.
func Parse(sql string, opts ...Option) (*Statement, error) {
	stmt, err := lexer.TokenizeStatement(sql)
	if err != nil {
		return nil, err
	}
	return New(stmt, opts...), nil
}

// New wraps an already tokenized statement.
func New(tokens *token.List, opts ...Option) *Statement {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Statement{
		raw:    tokens.Text(),
		tokens: tokens,
	}
	s.extractCTE()

	scope := s.tokens
	if s.prologue != nil {
		scope = s.query
	}
	if lit := FindLimitToken(scope); lit != nil {
		if v, err := strconv.Atoi(lit.Value); err == nil {
			s.limit = v
			s.hasLimit = true
		}
	}

	if o.logger != nil && s.prologue != nil {
		o.logger.Parse().Debug("extracted cte prologue", "ctes", s.Prologue())
		o.logger.Parse().Debug("extracted main query", "query", s.Query())
	}
	return s
}

// extractCTE splits the statement at the first CTE-introducing keyword.
// The prologue runs through the next non-trivial token after it (the
// grouped definition list); everything after is the main query.
func (s *Statement) extractCTE() {
	for i, t := range s.tokens.Tokens {
		if t.Type != token.KeywordCTE {
			continue
		}
		j, next := s.tokens.NextNonTrivial(i)
		if next == nil {
			return
		}
		s.prologue = s.tokens.Slice(0, j+1)
		s.query = s.tokens.Slice(j+1, s.tokens.Len())
		return
	}
}

// HasCTE returns true when the statement carries a CTE prologue.
func (s *Statement) HasCTE() bool {
	return s.prologue != nil
}

// Prologue returns the CTE prologue text, trimmed of surrounding
// whitespace, or "" when there is none.
func (s *Statement) Prologue() string {
	if s.prologue == nil {
		return ""
	}
	return strings.Trim(s.prologue.Text(), " \n\t")
}

// Query returns the main query text, trimmed of surrounding
// whitespace. Without a prologue this is the whole statement.
func (s *Statement) Query() string {
	if s.prologue == nil {
		return s.Stripped()
	}
	return strings.Trim(s.query.Text(), " \n\t")
}

// Stripped returns the statement text trimmed of surrounding
// whitespace and trailing semicolons.
func (s *Statement) Stripped() string {
	return strings.Trim(s.raw, " \t\r\n;")
}

// Limit returns the cached existing row limit and whether one was
// detected at construction.
func (s *Statement) Limit() (int, bool) {
	return s.limit, s.hasLimit
}

// Tokens returns the statement's full token list.
func (s *Statement) Tokens() *token.List {
	return s.tokens
}

// QueryTokens returns the main-query token list, or the full statement
// when there is no prologue.
func (s *Statement) QueryTokens() *token.List {
	if s.prologue == nil {
		return s.tokens
	}
	return s.query
}

// limitStrategy is one surface syntax of the limiting clause. A
// strategy returns the limit's literal token, or nil when the syntax is
// absent or its shape is malformed. There is no fallback within a
// strategy: a malformed match fails the whole form.
type limitStrategy func(tokens []*token.Token) *token.Token

// limitStrategies are tried in fixed order; first match wins.
var limitStrategies = []limitStrategy{
	findFunctionLimit,
	findBareLimit,
}

// FindLimitToken searches scope for the limiting clause and returns
// its integer-literal token, or nil when no well-formed clause exists.
// The search is re-run by the rewriter against live tokens, so the
// returned token may be mutated in place.
func FindLimitToken(scope *token.List) *token.Token {
	for _, strategy := range limitStrategies {
		if lit := strategy(scope.Tokens); lit != nil {
			return lit
		}
	}
	return nil
}

// findFunctionLimit handles the call-like form TOP(n): the first
// function group led by the limiting keyword must carry a parenthesis
// group of exactly three children, the middle one the integer literal.
func findFunctionLimit(tokens []*token.Token) *token.Token {
	fn := findFunction(tokens)
	if fn == nil {
		return nil
	}
	i, _ := fn.FirstNonTrivial()
	_, args := token.NextNonTrivial(fn.Children, i)
	if args == nil || args.Type != token.Parenthesis || len(args.Children) != 3 {
		return nil
	}
	lit := args.Children[1]
	if lit.Type != token.Integer {
		return nil
	}
	return lit
}

// findFunction walks the tree depth first for the first function group
// whose leading identifier is the limiting keyword.
func findFunction(tokens []*token.Token) *token.Token {
	for _, t := range tokens {
		if t.Type == token.Function {
			if _, lead := t.FirstNonTrivial(); lead != nil && lead.Matches(limitKeyword) {
				return t
			}
		}
		if t.Type.IsGroup() {
			if fn := findFunction(t.Children); fn != nil {
				return fn
			}
		}
	}
	return nil
}

// findBareLimit handles the bare form TOP n: the first identifier equal
// to the limiting keyword must be followed by an integer literal.
func findBareLimit(tokens []*token.Token) *token.Token {
	parent, idx := findIdentifier(tokens)
	if parent == nil {
		return nil
	}
	_, next := token.NextNonTrivial(parent, idx)
	if next == nil || next.Type != token.Integer {
		return nil
	}
	return next
}

// findIdentifier walks the tree depth first for the first identifier
// matching the limiting keyword, returning its sibling slice and index
// so the caller can inspect the token that follows it.
func findIdentifier(tokens []*token.Token) ([]*token.Token, int) {
	for i, t := range tokens {
		if t.Type == token.Identifier && t.Matches(limitKeyword) {
			return tokens, i
		}
		if t.Type.IsGroup() {
			if parent, j := findIdentifier(t.Children); parent != nil {
				return parent, j
			}
		}
	}
	return nil, -1
}
