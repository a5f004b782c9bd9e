package flinksql

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a lexical token.
type TokenType int

//nolint:revive // TOKEN_* names are intentionally ALL_CAPS for SQL token conventions
const (
	// TOKEN_EOF represents end of input.
	TOKEN_EOF TokenType = iota
	// TOKEN_ILLEGAL represents a character the lexer does not understand.
	// Illegal characters are tolerated; they never carry lineage.
	TOKEN_ILLEGAL

	TOKEN_IDENT  // orders, `orders`, "orders"
	TOKEN_NUMBER // 123, 45.67, 1e10
	TOKEN_STRING // 'hello'

	TOKEN_OP        // + - * / % = < > || and friends
	TOKEN_DOT       // .
	TOKEN_COMMA     // ,
	TOKEN_SEMICOLON // ;
	TOKEN_LPAREN    // (
	TOKEN_RPAREN    // )
	TOKEN_LBRACKET  // [
	TOKEN_RBRACKET  // ]

	// Keywords that drive lineage extraction (alphabetical).
	// Structural words (DISTRIBUTED, WATERMARK, BUCKETS...) are deliberately
	// absent: option recognizers match them by text.
	TOKEN_AS
	TOKEN_BEGIN
	TOKEN_CREATE
	TOKEN_END
	TOKEN_EXCEPT
	TOKEN_EXECUTE
	TOKEN_EXISTS
	TOKEN_FROM
	TOKEN_GROUP
	TOKEN_HAVING
	TOKEN_IF
	TOKEN_INSERT
	TOKEN_INTERSECT
	TOKEN_INTO
	TOKEN_JOIN
	TOKEN_LATERAL
	TOKEN_LIMIT
	TOKEN_MINUS
	TOKEN_NOT
	TOKEN_ON
	TOKEN_OR
	TOKEN_ORDER
	TOKEN_OVERWRITE
	TOKEN_QUALIFY
	TOKEN_RECURSIVE
	TOKEN_REPLACE
	TOKEN_SELECT
	TOKEN_SET
	TOKEN_STATEMENT
	TOKEN_TABLE
	TOKEN_TEMPORARY
	TOKEN_UNION
	TOKEN_USING
	TOKEN_VALUES
	TOKEN_VIEW
	TOKEN_WHERE
	TOKEN_WINDOW
	TOKEN_WITH
)

var tokenNames = map[TokenType]string{
	TOKEN_EOF:       "EOF",
	TOKEN_ILLEGAL:   "ILLEGAL",
	TOKEN_IDENT:     "IDENT",
	TOKEN_NUMBER:    "NUMBER",
	TOKEN_STRING:    "STRING",
	TOKEN_OP:        "OP",
	TOKEN_DOT:       ".",
	TOKEN_COMMA:     ",",
	TOKEN_SEMICOLON: ";",
	TOKEN_LPAREN:    "(",
	TOKEN_RPAREN:    ")",
	TOKEN_LBRACKET:  "[",
	TOKEN_RBRACKET:  "]",
}

var keywords = map[string]TokenType{
	"as":        TOKEN_AS,
	"begin":     TOKEN_BEGIN,
	"create":    TOKEN_CREATE,
	"end":       TOKEN_END,
	"except":    TOKEN_EXCEPT,
	"execute":   TOKEN_EXECUTE,
	"exists":    TOKEN_EXISTS,
	"from":      TOKEN_FROM,
	"group":     TOKEN_GROUP,
	"having":    TOKEN_HAVING,
	"if":        TOKEN_IF,
	"insert":    TOKEN_INSERT,
	"intersect": TOKEN_INTERSECT,
	"into":      TOKEN_INTO,
	"join":      TOKEN_JOIN,
	"lateral":   TOKEN_LATERAL,
	"limit":     TOKEN_LIMIT,
	"minus":     TOKEN_MINUS,
	"not":       TOKEN_NOT,
	"on":        TOKEN_ON,
	"or":        TOKEN_OR,
	"order":     TOKEN_ORDER,
	"overwrite": TOKEN_OVERWRITE,
	"qualify":   TOKEN_QUALIFY,
	"recursive": TOKEN_RECURSIVE,
	"replace":   TOKEN_REPLACE,
	"select":    TOKEN_SELECT,
	"set":       TOKEN_SET,
	"statement": TOKEN_STATEMENT,
	"table":     TOKEN_TABLE,
	"temporary": TOKEN_TEMPORARY,
	"union":     TOKEN_UNION,
	"using":     TOKEN_USING,
	"values":    TOKEN_VALUES,
	"view":      TOKEN_VIEW,
	"where":     TOKEN_WHERE,
	"window":    TOKEN_WINDOW,
	"with":      TOKEN_WITH,
}

func init() {
	for word, t := range keywords {
		tokenNames[t] = strings.ToUpper(word)
	}
}

// LookupIdent returns the keyword token type for a lower-cased word,
// or TOKEN_IDENT if the word is not a keyword.
func LookupIdent(word string) TokenType {
	if t, ok := keywords[word]; ok {
		return t
	}
	return TOKEN_IDENT
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", int(t))
}

// Position is a location in SQL text.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
	Offset int // 0-based byte offset
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a single lexical token.
type Token struct {
	Type    TokenType
	Literal string // identifier text without quotes, string contents, operator text
	Quoted  bool   // identifier was written with backticks or double quotes
	Pos     Position
}

// Is reports whether the token is an unquoted word equal to w, ignoring case.
// Keywords and plain identifiers both match, which lets option recognizers
// look for engine words that are not part of the keyword table.
func (t Token) Is(w string) bool {
	if t.Quoted {
		return false
	}
	if t.Type != TOKEN_IDENT && !t.IsKeyword() {
		return false
	}
	return strings.EqualFold(t.Literal, w)
}

// IsKeyword reports whether the token is one of the lineage keywords.
func (t Token) IsKeyword() bool {
	return t.Type >= TOKEN_AS
}

// IsName reports whether the token can name a table or column:
// any identifier, quoted or not.
func (t Token) IsName() bool {
	return t.Type == TOKEN_IDENT
}
