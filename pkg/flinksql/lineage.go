package flinksql

import "strings"

// TableRef is a table reference found in a statement.
type TableRef struct {
	Name      string   // unqualified last segment, case preserved
	Qualified string   // as written, e.g. catalog.db.orders
	Pos       Position // position of the first name segment
}

// cteDef is one common table expression and the token range it is visible in.
type cteDef struct {
	name      string
	bodyStart int // index of '(' opening the body
	bodyEnd   int // index of ')' closing the body
	scopeEnd  int // end of the enclosing query (exclusive)
	recursive bool
}

// aliasAt reports whether a reference to name at token index i resolves to
// the CTE rather than to a real table.
func (d cteDef) aliasAt(name string, i int) bool {
	if !strings.EqualFold(d.name, name) || i >= d.scopeEnd {
		return false
	}
	if i > d.bodyEnd {
		return true
	}
	return d.recursive && i >= d.bodyStart
}

// frame tracks FROM-clause state for one parenthesis level.
type frame struct {
	inFrom    bool // inside a FROM list; a top-level comma starts another item
	expectRef bool // the next name is a table reference
}

// lineageScanner extracts table references from a query without building an
// AST. It understands enough structure to tell tables apart from CTE
// aliases, derived tables and table functions.
type lineageScanner struct {
	toks   []Token
	match  []int // index of the matching paren, -1 if none
	parent []int // index of the innermost enclosing '(', -1 at top level
	ctes   []cteDef
}

func newLineageScanner(toks []Token) *lineageScanner {
	s := &lineageScanner{
		toks:   toks,
		match:  make([]int, len(toks)),
		parent: make([]int, len(toks)),
	}
	var stack []int
	for i, tok := range toks {
		s.match[i] = -1
		s.parent[i] = -1
		if len(stack) > 0 {
			s.parent[i] = stack[len(stack)-1]
		}
		switch tok.Type {
		case TOKEN_LPAREN:
			stack = append(stack, i)
		case TOKEN_RPAREN:
			if len(stack) > 0 {
				open := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				s.match[open] = i
				s.match[i] = open
				s.parent[i] = s.parent[open]
			}
		}
	}
	s.collectCTEs()
	return s
}

// scanLineage returns the table references of a query in order of
// appearance and the names of the CTEs it defines.
func scanLineage(toks []Token) ([]TableRef, []string) {
	s := newLineageScanner(toks)
	refs := s.scan()
	names := make([]string, 0, len(s.ctes))
	for _, d := range s.ctes {
		names = append(names, d.name)
	}
	return refs, names
}

func (s *lineageScanner) tok(i int) Token {
	if i < 0 || i >= len(s.toks) {
		return Token{Type: TOKEN_EOF}
	}
	return s.toks[i]
}

// collectCTEs finds every WITH [RECURSIVE] name [(cols)] AS (body), ... list.
func (s *lineageScanner) collectCTEs() {
	for i := 0; i < len(s.toks); i++ {
		if s.toks[i].Type != TOKEN_WITH {
			continue
		}
		j := i + 1
		recursive := false
		if s.tok(j).Type == TOKEN_RECURSIVE {
			recursive = true
			j++
		}
		scopeEnd := len(s.toks)
		if open := s.parent[i]; open >= 0 && s.match[open] > 0 {
			scopeEnd = s.match[open]
		}
		for {
			name := s.tok(j)
			if !name.IsName() {
				break
			}
			k := j + 1
			if s.tok(k).Type == TOKEN_LPAREN && s.match[k] > 0 {
				k = s.match[k] + 1 // column list
			}
			if s.tok(k).Type != TOKEN_AS || s.tok(k+1).Type != TOKEN_LPAREN {
				break
			}
			bodyStart := k + 1
			bodyEnd := s.match[bodyStart]
			if bodyEnd < 0 {
				break
			}
			s.ctes = append(s.ctes, cteDef{
				name:      name.Literal,
				bodyStart: bodyStart,
				bodyEnd:   bodyEnd,
				scopeEnd:  scopeEnd,
				recursive: recursive,
			})
			if s.tok(bodyEnd+1).Type != TOKEN_COMMA {
				break
			}
			j = bodyEnd + 2
		}
	}
}

func (s *lineageScanner) isCTE(name string, i int) bool {
	for _, d := range s.ctes {
		if d.aliasAt(name, i) {
			return true
		}
	}
	return false
}

// qualifiedAt reads a dotted name starting at index i and returns its parts
// and the index just past it.
func (s *lineageScanner) qualifiedAt(i int) ([]string, int) {
	parts := []string{s.toks[i].Literal}
	j := i + 1
	for s.tok(j).Type == TOKEN_DOT && (s.tok(j+1).IsName() || s.tok(j+1).IsKeyword()) {
		parts = append(parts, s.tok(j+1).Literal)
		j += 2
	}
	return parts, j
}

func (s *lineageScanner) scan() []TableRef {
	var refs []TableRef
	stack := []frame{{}}

	for i := 0; i < len(s.toks); i++ {
		tok := s.toks[i]
		top := &stack[len(stack)-1]

		switch tok.Type {
		case TOKEN_LPAREN:
			// A '(' in table position opens a derived table, a table
			// function or a parenthesized join; the alias that follows it
			// is not a table.
			next := s.tok(i + 1)
			joined := top.expectRef && (next.IsName() || next.Type == TOKEN_LPAREN)
			top.expectRef = false
			stack = append(stack, frame{inFrom: joined, expectRef: joined})
			continue
		case TOKEN_RPAREN:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
			continue
		case TOKEN_FROM, TOKEN_JOIN:
			top.inFrom, top.expectRef = true, true
			continue
		case TOKEN_LATERAL:
			continue
		case TOKEN_COMMA:
			if top.inFrom {
				top.expectRef = true
			}
			continue
		case TOKEN_ON, TOKEN_USING:
			top.expectRef = false
			continue
		case TOKEN_TABLE:
			// TABLE orders as a table function operand:
			// TUMBLE(TABLE orders, ...) or TUMBLE(DATA => TABLE orders, ...).
			prev := s.tok(i - 1)
			operand := prev.Type == TOKEN_LPAREN || prev.Type == TOKEN_COMMA ||
				(prev.Type == TOKEN_OP && prev.Literal == "=>")
			if operand && s.tok(i+1).IsName() {
				parts, end := s.qualifiedAt(i + 1)
				if ref, ok := s.ref(parts, i+1); ok {
					refs = append(refs, ref)
				}
				i = end - 1
			}
			continue
		case TOKEN_SELECT, TOKEN_WHERE, TOKEN_GROUP, TOKEN_HAVING, TOKEN_ORDER,
			TOKEN_LIMIT, TOKEN_WINDOW, TOKEN_QUALIFY, TOKEN_UNION, TOKEN_INTERSECT,
			TOKEN_EXCEPT, TOKEN_MINUS, TOKEN_VALUES, TOKEN_WITH:
			top.inFrom, top.expectRef = false, false
			continue
		}

		if !top.expectRef {
			continue
		}
		top.expectRef = false
		if !tok.IsName() {
			continue
		}

		start := i
		parts, end := s.qualifiedAt(start)
		i = end - 1
		if s.tok(end).Type == TOKEN_LPAREN {
			// UNNEST(...), fn(...): a function call, not a table.
			continue
		}
		if ref, ok := s.ref(parts, start); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

// ref builds a TableRef for a name whose first segment is at index at,
// unless it names a CTE visible there.
func (s *lineageScanner) ref(parts []string, at int) (TableRef, bool) {
	name := parts[len(parts)-1]
	if len(parts) == 1 && s.isCTE(name, at) {
		return TableRef{}, false
	}
	return TableRef{
		Name:      name,
		Qualified: strings.Join(parts, "."),
		Pos:       s.tok(at).Pos,
	}, true
}
