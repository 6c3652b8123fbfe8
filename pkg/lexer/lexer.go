// Package lexer turns SQL text into statements of classified token
// trees. The lexer is deliberately shallow: it classifies words,
// literals, and punctuation, groups parenthesized regions and
// function-call shapes, and isolates a leading CTE definition list.
// It does not validate grammar; unrecognized input degrades to Illegal
// leaf tokens rather than failing.
package lexer

import (
	"strings"
	"unicode"

	"github.com/rowcap/rowcap/pkg/errors"
	"github.com/rowcap/rowcap/pkg/token"
)

// keywords are the reserved words the lexer classifies as Keyword.
// TOP is intentionally absent: the limit detection strategies expect it
// classified as an identifier, in both its bare and call-like forms.
var keywords = map[string]struct{}{
	"SELECT": {}, "FROM": {}, "WHERE": {}, "AND": {}, "OR": {},
	"NOT": {}, "AS": {}, "ON": {}, "JOIN": {}, "INNER": {},
	"LEFT": {}, "RIGHT": {}, "FULL": {}, "OUTER": {}, "CROSS": {},
	"GROUP": {}, "BY": {}, "ORDER": {}, "HAVING": {}, "UNION": {},
	"ALL": {}, "DISTINCT": {}, "INSERT": {}, "INTO": {}, "VALUES": {},
	"UPDATE": {}, "SET": {}, "DELETE": {}, "MERGE": {}, "LIMIT": {},
	"OFFSET": {}, "FETCH": {}, "ASC": {}, "DESC": {}, "CASE": {},
	"WHEN": {}, "THEN": {}, "ELSE": {}, "END": {}, "BETWEEN": {},
	"IN": {}, "EXISTS": {}, "LIKE": {}, "IS": {}, "NULL": {},
	"WITH": {},
}

// queryStarters terminate a CTE definition list at statement top level.
var queryStarters = map[string]struct{}{
	"SELECT": {}, "INSERT": {}, "UPDATE": {}, "DELETE": {}, "MERGE": {},
}

// Tokenize splits sql into statements and returns one grouped token
// tree per statement. Statements consisting only of whitespace and
// comments are dropped.
func Tokenize(sql string) ([]*token.List, error) {
	s := &scanner{input: sql}
	flat, err := s.scan()
	if err != nil {
		return nil, err
	}

	var out []*token.List
	for _, stmt := range splitStatements(flat) {
		out = append(out, token.NewList(group(stmt)))
	}
	return out, nil
}

// TokenizeStatement returns the first statement of sql, or an error
// when sql contains no statement at all.
func TokenizeStatement(sql string) (*token.List, error) {
	stmts, err := Tokenize(sql)
	if err != nil {
		return nil, err
	}
	if len(stmts) == 0 {
		return nil, errors.New(errors.ErrCodeStatementEmpty, "no statement found").
			WithOp("lexer.TokenizeStatement").Err()
	}
	return stmts[0], nil
}

// scanner produces the flat leaf-token stream.
type scanner struct {
	input string
	pos   int
}

func (s *scanner) scan() ([]*token.Token, error) {
	var out []*token.Token
	for s.pos < len(s.input) {
		c := s.input[s.pos]
		start := s.pos

		switch {
		case isSpace(c):
			for s.pos < len(s.input) && isSpace(s.input[s.pos]) {
				s.pos++
			}
			out = append(out, token.NewLeaf(token.Whitespace, s.input[start:s.pos]))

		case c == '-' && s.peekAt(1) == '-':
			// Line comment, newline included so serialization stays
			// byte-faithful.
			for s.pos < len(s.input) && s.input[s.pos] != '\n' {
				s.pos++
			}
			if s.pos < len(s.input) {
				s.pos++
			}
			out = append(out, token.NewLeaf(token.Comment, s.input[start:s.pos]))

		case c == '/' && s.peekAt(1) == '*':
			end := strings.Index(s.input[s.pos+2:], "*/")
			if end < 0 {
				return nil, errors.Newf(errors.ErrCodeTokenize,
					"unterminated block comment at offset %d", start).Err()
			}
			s.pos += 2 + end + 2
			out = append(out, token.NewLeaf(token.Comment, s.input[start:s.pos]))

		case c == '\'':
			lit, err := s.scanString(start)
			if err != nil {
				return nil, err
			}
			out = append(out, lit)

		case (c == 'N' || c == 'n') && s.peekAt(1) == '\'':
			s.pos++
			lit, err := s.scanString(start)
			if err != nil {
				return nil, err
			}
			out = append(out, lit)

		case c == '[':
			end := strings.IndexByte(s.input[s.pos+1:], ']')
			if end < 0 {
				return nil, errors.Newf(errors.ErrCodeTokenize,
					"unterminated bracket identifier at offset %d", start).Err()
			}
			s.pos += 1 + end + 1
			out = append(out, token.NewLeaf(token.Identifier, s.input[start:s.pos]))

		case c == '"':
			end := strings.IndexByte(s.input[s.pos+1:], '"')
			if end < 0 {
				return nil, errors.Newf(errors.ErrCodeTokenize,
					"unterminated quoted identifier at offset %d", start).Err()
			}
			s.pos += 1 + end + 1
			out = append(out, token.NewLeaf(token.Identifier, s.input[start:s.pos]))

		case isDigit(c):
			out = append(out, s.scanNumber())

		case isWordStart(c):
			for s.pos < len(s.input) && isWordPart(s.input[s.pos]) {
				s.pos++
			}
			word := s.input[start:s.pos]
			if _, ok := keywords[strings.ToUpper(word)]; ok {
				out = append(out, token.NewLeaf(token.Keyword, word))
			} else {
				out = append(out, token.NewLeaf(token.Identifier, word))
			}

		case c == '(' || c == ')' || c == ',' || c == ';' || c == '.':
			s.pos++
			out = append(out, token.NewLeaf(token.Punctuation, string(c)))

		case isOperator(c):
			s.pos++
			// Two-character comparison operators
			if s.pos < len(s.input) {
				pair := s.input[start : s.pos+1]
				switch pair {
				case "<=", ">=", "<>", "!=", "||":
					s.pos++
				}
			}
			out = append(out, token.NewLeaf(token.Operator, s.input[start:s.pos]))

		default:
			s.pos++
			out = append(out, token.NewLeaf(token.Illegal, string(c)))
		}
	}
	return out, nil
}

// scanString consumes a single-quoted literal starting at the current
// quote, handling doubled-quote escapes. start marks the beginning of
// the token, which may precede the quote by one byte for N'...'.
func (s *scanner) scanString(start int) (*token.Token, error) {
	s.pos++ // opening quote
	for s.pos < len(s.input) {
		if s.input[s.pos] == '\'' {
			if s.peekAt(1) == '\'' {
				s.pos += 2
				continue
			}
			s.pos++
			return token.NewLeaf(token.String, s.input[start:s.pos]), nil
		}
		s.pos++
	}
	return nil, errors.Newf(errors.ErrCodeTokenize,
		"unterminated string literal at offset %d", start).Err()
}

func (s *scanner) scanNumber() *token.Token {
	start := s.pos
	typ := token.Integer
	for s.pos < len(s.input) && isDigit(s.input[s.pos]) {
		s.pos++
	}
	if s.pos < len(s.input) && s.input[s.pos] == '.' && isDigit(s.peekAt(1)) {
		typ = token.Number
		s.pos++
		for s.pos < len(s.input) && isDigit(s.input[s.pos]) {
			s.pos++
		}
	}
	if s.pos < len(s.input) && (s.input[s.pos] == 'e' || s.input[s.pos] == 'E') &&
		(isDigit(s.peekAt(1)) || ((s.peekAt(1) == '+' || s.peekAt(1) == '-') && isDigit(s.peekAt(2)))) {
		typ = token.Number
		s.pos++
		if s.input[s.pos] == '+' || s.input[s.pos] == '-' {
			s.pos++
		}
		for s.pos < len(s.input) && isDigit(s.input[s.pos]) {
			s.pos++
		}
	}
	return token.NewLeaf(typ, s.input[start:s.pos])
}

// peekAt returns the byte at offset from the current position, or 0
// past the end of input.
func (s *scanner) peekAt(offset int) byte {
	if s.pos+offset >= len(s.input) {
		return 0
	}
	return s.input[s.pos+offset]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || unicode.IsSpace(rune(c))
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isWordStart(c byte) bool {
	return c == '_' || c == '@' || c == '#' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordPart(c byte) bool {
	return isWordStart(c) || isDigit(c) || c == '$'
}

func isOperator(c byte) bool {
	switch c {
	case '+', '-', '*', '/', '%', '=', '<', '>', '!', '|', '&', '^', '~', '?':
		return true
	}
	return false
}

// splitStatements cuts the flat token stream at top-level semicolons.
// Semicolons inside parentheses do not split. Statements containing
// only trivial tokens are dropped.
func splitStatements(flat []*token.Token) [][]*token.Token {
	var out [][]*token.Token
	var cur []*token.Token
	depth := 0

	flush := func() {
		if _, t := token.NextNonTrivial(cur, -1); t != nil {
			out = append(out, cur)
		}
		cur = nil
	}

	for _, t := range flat {
		if t.Type == token.Punctuation {
			switch t.Value {
			case "(":
				depth++
			case ")":
				if depth > 0 {
					depth--
				}
			case ";":
				if depth == 0 {
					cur = append(cur, t)
					flush()
					continue
				}
			}
		}
		cur = append(cur, t)
	}
	flush()
	return out
}

// group applies the structural passes to one statement's tokens:
// parenthesis grouping, function-call grouping, and CTE isolation.
func group(stmt []*token.Token) []*token.Token {
	toks := groupParens(stmt)
	toks = groupFunctions(toks)
	toks = markCTE(toks)
	return toks
}

// groupParens folds balanced parentheses into Parenthesis group tokens,
// nesting as needed. Unbalanced opens are flattened back so the text
// round-trips; grouping is best effort, not validation.
func groupParens(toks []*token.Token) []*token.Token {
	var stack [][]*token.Token
	cur := make([]*token.Token, 0, len(toks))

	for _, t := range toks {
		switch {
		case t.Type == token.Punctuation && t.Value == "(":
			stack = append(stack, cur)
			cur = []*token.Token{t}
		case t.Type == token.Punctuation && t.Value == ")" && len(stack) > 0:
			cur = append(cur, t)
			grp := token.NewGroup(token.Parenthesis, cur)
			cur = append(stack[len(stack)-1], grp)
			stack = stack[:len(stack)-1]
		default:
			cur = append(cur, t)
		}
	}

	for len(stack) > 0 {
		parent := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cur = append(parent, cur...)
	}
	return cur
}

// groupFunctions folds an identifier immediately followed by a
// parenthesis group (no intervening whitespace) into a Function group.
// Keywords never form functions, so FROM (...) and AS (...) stay flat.
func groupFunctions(toks []*token.Token) []*token.Token {
	out := make([]*token.Token, 0, len(toks))
	for _, t := range toks {
		if t.Type == token.Parenthesis {
			t.Children = groupFunctions(t.Children)
			if n := len(out); n > 0 && out[n-1].Type == token.Identifier {
				out[n-1] = token.NewGroup(token.Function, []*token.Token{out[n-1], t})
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// markCTE reclassifies a statement-leading WITH as the CTE-introducing
// keyword and folds the definitions that follow it into a single
// CTEList group, so the prologue/main-query split can treat them as one
// token. WITH anywhere else (table hints) stays a plain keyword.
func markCTE(toks []*token.Token) []*token.Token {
	i, first := token.NextNonTrivial(toks, -1)
	if first == nil || first.Type != token.Keyword || !first.Matches("WITH") {
		return toks
	}
	first.Type = token.KeywordCTE

	j, def := token.NextNonTrivial(toks, i)
	if def == nil {
		return toks
	}

	// The definition list runs until the main query begins.
	end := len(toks)
	for k := j; k < len(toks); k++ {
		if toks[k].Type == token.Keyword {
			if _, ok := queryStarters[strings.ToUpper(toks[k].Value)]; ok {
				end = k
				break
			}
		}
	}
	// Trailing whitespace before the main query belongs to the query
	// side, so the prologue/query texts concatenate back losslessly.
	for end > j+1 && toks[end-1].IsTrivial() {
		end--
	}

	children := make([]*token.Token, end-j)
	copy(children, toks[j:end])

	out := make([]*token.Token, 0, j+1+len(toks)-end)
	out = append(out, toks[:j]...)
	out = append(out, token.NewGroup(token.CTEList, children))
	out = append(out, toks[end:]...)
	return out
}
