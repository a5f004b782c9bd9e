package flinksql

import "strings"

// Cursor walks a slice of tokens. Recognizers receive a cursor positioned at
// the token they may claim; a recognizer that does not match must leave the
// cursor where it found it.
type Cursor struct {
	toks []Token
	pos  int
}

// NewCursor returns a cursor over toks.
func NewCursor(toks []Token) *Cursor {
	return &Cursor{toks: toks}
}

// Done reports whether every token has been consumed.
func (c *Cursor) Done() bool {
	return c.pos >= len(c.toks)
}

// Peek returns the token n positions ahead (0 is the current token).
// Past the end it returns an EOF token.
func (c *Cursor) Peek(n int) Token {
	i := c.pos + n
	if i < 0 || i >= len(c.toks) {
		var pos Position
		if len(c.toks) > 0 {
			pos = c.toks[len(c.toks)-1].Pos
		}
		return Token{Type: TOKEN_EOF, Pos: pos}
	}
	return c.toks[i]
}

// Next consumes and returns the current token.
func (c *Cursor) Next() Token {
	tok := c.Peek(0)
	if !c.Done() {
		c.pos++
	}
	return tok
}

// Mark returns the current position for a later Reset.
func (c *Cursor) Mark() int {
	return c.pos
}

// Reset moves the cursor back to a position returned by Mark.
func (c *Cursor) Reset(mark int) {
	c.pos = mark
}

// Accept consumes the given words if the upcoming tokens match all of them,
// ignoring case. Nothing is consumed on a partial match.
func (c *Cursor) Accept(words ...string) bool {
	for i, w := range words {
		if !c.Peek(i).Is(w) {
			return false
		}
	}
	c.pos += len(words)
	return true
}

// AcceptType consumes the current token if it has type t.
func (c *Cursor) AcceptType(t TokenType) (Token, bool) {
	tok := c.Peek(0)
	if tok.Type != t {
		return tok, false
	}
	c.pos++
	return tok, true
}

// Group consumes a parenthesised group and returns the tokens between the
// parentheses. It returns false, consuming nothing, if the cursor is not at
// '(' or the group is never closed.
func (c *Cursor) Group() ([]Token, bool) {
	if c.Peek(0).Type != TOKEN_LPAREN {
		return nil, false
	}
	depth := 0
	for i := c.pos; i < len(c.toks); i++ {
		switch c.toks[i].Type {
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			depth--
			if depth == 0 {
				inner := c.toks[c.pos+1 : i]
				c.pos = i + 1
				return inner, true
			}
		}
	}
	return nil, false
}

// Rest consumes and returns every remaining token.
func (c *Cursor) Rest() []Token {
	rest := c.toks[c.pos:]
	c.pos = len(c.toks)
	return rest
}

// QualifiedName consumes a dotted name such as cat.db.tbl and returns its
// parts. It returns nil if the cursor is not at a name.
func (c *Cursor) QualifiedName() []string {
	if !c.Peek(0).IsName() && !c.Peek(0).IsKeyword() {
		return nil
	}
	parts := []string{c.Next().Literal}
	for c.Peek(0).Type == TOKEN_DOT && (c.Peek(1).IsName() || c.Peek(1).IsKeyword()) {
		c.pos++
		parts = append(parts, c.Next().Literal)
	}
	return parts
}

// splitTopLevel splits toks on commas that are not nested in parentheses
// or brackets.
func splitTopLevel(toks []Token) [][]Token {
	var (
		items [][]Token
		start int
		depth int
	)
	for i, tok := range toks {
		switch tok.Type {
		case TOKEN_LPAREN, TOKEN_LBRACKET:
			depth++
		case TOKEN_RPAREN, TOKEN_RBRACKET:
			depth--
		case TOKEN_COMMA:
			if depth == 0 {
				items = append(items, toks[start:i])
				start = i + 1
			}
		}
	}
	if start < len(toks) {
		items = append(items, toks[start:])
	}
	return items
}

// nameList returns the identifiers of a comma-separated list such as the
// inside of PRIMARY KEY (a, b).
func nameList(toks []Token) []string {
	var names []string
	for _, item := range splitTopLevel(toks) {
		if len(item) == 0 {
			continue
		}
		// Keep the last segment of a qualified column.
		names = append(names, item[len(item)-1].Literal)
	}
	return names
}

// renderTokens turns tokens back into compact SQL text.
func renderTokens(toks []Token) string {
	var b strings.Builder
	for i, tok := range toks {
		if i > 0 && needsSpace(toks[i-1], tok) {
			b.WriteByte(' ')
		}
		switch {
		case tok.Type == TOKEN_STRING:
			b.WriteString("'" + strings.ReplaceAll(tok.Literal, "'", "''") + "'")
		case tok.Quoted:
			b.WriteString("`" + strings.ReplaceAll(tok.Literal, "`", "``") + "`")
		default:
			b.WriteString(tok.Literal)
		}
	}
	return b.String()
}

func needsSpace(prev, cur Token) bool {
	switch {
	case prev.Type == TOKEN_DOT || cur.Type == TOKEN_DOT:
		return false
	case prev.Type == TOKEN_LPAREN || prev.Type == TOKEN_LBRACKET:
		return false
	case cur.Type == TOKEN_RPAREN || cur.Type == TOKEN_RBRACKET || cur.Type == TOKEN_COMMA:
		return false
	case cur.Type == TOKEN_LPAREN && (prev.IsName() || prev.IsKeyword()):
		// function call or type parameters: DECIMAL(10, 2)
		return prev.IsKeyword() && !prev.Is("table")
	}
	return true
}
