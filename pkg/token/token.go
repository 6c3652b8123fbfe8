// Package token defines the classified token tree produced by the SQL
// lexer. Leaf tokens carry their source text verbatim; group tokens own
// an ordered sequence of children whose concatenated text reproduces
// the grouped source byte for byte.
package token

import "strings"

// Type classifies a lexical token.
type Type int

const (
	Illegal Type = iota
	Whitespace
	Comment     // -- line comments and /* block */ comments
	Keyword     // reserved words other than the CTE introducer
	KeywordCTE  // WITH at the head of a statement
	Identifier  // names, including [bracketed] and "quoted" forms
	Integer     // 123
	Number      // 123.45, 1e6
	String      // 'literal', N'literal'
	Operator    // + - * / = < > and friends
	Punctuation // ( ) , ; .

	groupBeg
	Parenthesis // ( ... )
	Function    // identifier immediately followed by a parenthesis group
	CTEList     // the CTE definitions following the introducing keyword
	groupEnd
)

var typeNames = map[Type]string{
	Illegal:     "ILLEGAL",
	Whitespace:  "WHITESPACE",
	Comment:     "COMMENT",
	Keyword:     "KEYWORD",
	KeywordCTE:  "KEYWORD_CTE",
	Identifier:  "IDENT",
	Integer:     "INT",
	Number:      "NUMBER",
	String:      "STRING",
	Operator:    "OPERATOR",
	Punctuation: "PUNCT",
	Parenthesis: "PARENS",
	Function:    "FUNCTION",
	CTEList:     "CTE_LIST",
}

// String returns a string representation of the token type.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsGroup returns true if the token type owns child tokens.
func (t Type) IsGroup() bool {
	return t > groupBeg && t < groupEnd
}

// Token is one node of the token tree. Leaf tokens carry their source
// text in Value; group tokens carry Children and an empty Value.
type Token struct {
	Type     Type
	Value    string
	Children []*Token
}

// NewLeaf creates a leaf token.
func NewLeaf(t Type, value string) *Token {
	return &Token{Type: t, Value: value}
}

// NewGroup creates a group token owning the given children.
func NewGroup(t Type, children []*Token) *Token {
	return &Token{Type: t, Children: children}
}

// Text returns the source text of the token. For groups this is the
// concatenation of the children's text in order.
func (t *Token) Text() string {
	if !t.Type.IsGroup() {
		return t.Value
	}
	var buf strings.Builder
	for _, c := range t.Children {
		buf.WriteString(c.Text())
	}
	return buf.String()
}

// SetValue replaces a leaf token's text in place. This is how the limit
// rewrite substitutes a literal without re-tokenizing.
func (t *Token) SetValue(v string) {
	t.Value = v
}

// IsTrivial returns true for whitespace and comment tokens, which are
// skipped when looking for the "next" token.
func (t *Token) IsTrivial() bool {
	return t.Type == Whitespace || t.Type == Comment
}

// Matches compares the token's text case-insensitively against s.
// Group tokens never match.
func (t *Token) Matches(s string) bool {
	return !t.Type.IsGroup() && strings.EqualFold(t.Value, s)
}

// FirstNonTrivial returns the index and token of the first non-trivial
// child, or (-1, nil) when there is none.
func (t *Token) FirstNonTrivial() (int, *Token) {
	return NextNonTrivial(t.Children, -1)
}

// List is an ordered sequence of sibling tokens, usually one statement.
type List struct {
	Tokens []*Token
}

// NewList creates a list from a token slice.
func NewList(tokens []*Token) *List {
	return &List{Tokens: tokens}
}

// Len returns the number of top-level tokens.
func (l *List) Len() int {
	return len(l.Tokens)
}

// Text reconstructs the SQL text by concatenating every token's current
// text in order. No whitespace is added or removed, so regions the
// rewrite does not touch come back byte for byte.
func (l *List) Text() string {
	var buf strings.Builder
	for _, t := range l.Tokens {
		buf.WriteString(t.Text())
	}
	return buf.String()
}

// NextNonTrivial returns the index and token of the first non-trivial
// token after position after, or (-1, nil) when there is none.
func (l *List) NextNonTrivial(after int) (int, *Token) {
	return NextNonTrivial(l.Tokens, after)
}

// Slice returns a new list over tokens[from:to]. The tokens themselves
// are shared, not copied.
func (l *List) Slice(from, to int) *List {
	return &List{Tokens: l.Tokens[from:to]}
}

// NextNonTrivial scans tokens for the first non-trivial entry after
// position after, returning (-1, nil) when the sequence is exhausted.
func NextNonTrivial(tokens []*Token, after int) (int, *Token) {
	for i := after + 1; i < len(tokens); i++ {
		if !tokens[i].IsTrivial() {
			return i, tokens[i]
		}
	}
	return -1, nil
}
