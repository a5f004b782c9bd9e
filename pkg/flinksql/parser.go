package flinksql

import (
	"strings"
)

// Statement is the lineage of one SQL text unit.
type Statement struct {
	// Sink is the unqualified name of the table defined by CREATE TABLE.
	Sink    string
	SinkRef TableRef
	// Sources are the tables read, deduplicated in first-appearance order.
	Sources    []string
	SourceRefs []TableRef
	// InsertTargets are the tables written by INSERT INTO / INSERT OVERWRITE.
	InsertTargets []string
	// CTEs and Views are local names that never count as tables.
	CTEs     []string
	Views    []string
	Metadata Metadata
}

// Option configures a parse.
type Option func(*config)

type config struct {
	recognizers []Recognizer
}

// WithRecognizers adds recognizers for engine-specific clauses. They are
// tried before the registered defaults.
func WithRecognizers(rs ...Recognizer) Option {
	return func(c *config) {
		merged := make([]Recognizer, 0, len(rs)+len(c.recognizers))
		merged = append(merged, rs...)
		c.recognizers = append(merged, c.recognizers...)
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{recognizers: Recognizers()}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *config) scoped(scope Scope) []Recognizer {
	var out []Recognizer
	for _, r := range c.recognizers {
		if r.Scope()&scope != 0 {
			out = append(out, r)
		}
	}
	return out
}

// Parse parses a SQL text unit that must define a table with CREATE TABLE.
// The unit may hold several ';'-separated statements.
func Parse(sql string, opts ...Option) (*Statement, error) {
	stmt, err := ParseQuery(sql, opts...)
	if err != nil {
		return nil, err
	}
	if err := stmt.RequireSink(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// ParseQuery parses a SQL text unit without requiring a CREATE TABLE, as
// for a DML script made of INSERT statements.
func ParseQuery(sql string, opts ...Option) (*Statement, error) {
	toks, err := Tokenize(sql)
	if err != nil {
		return nil, err
	}
	if err := checkBalance(toks); err != nil {
		return nil, err
	}

	p := &parser{cfg: newConfig(opts), stmt: &Statement{}}
	for _, part := range splitStatements(toks) {
		if err := p.statement(part); err != nil {
			return nil, err
		}
	}
	if p.inStatementSet {
		return nil, newParseError(p.setPos, ErrUnterminatedStmtSet)
	}
	p.finish()
	return p.stmt, nil
}

// ParseUnit parses the DDL/DML pair of one pipeline unit into a single
// statement. Source references to the unit's temporary views are dropped.
func ParseUnit(ddl, dml string, opts ...Option) (*Statement, error) {
	def, err := ParseQuery(ddl, opts...)
	if err != nil {
		return nil, err
	}
	query, err := ParseQuery(dml, opts...)
	if err != nil {
		return nil, err
	}
	if err := def.Merge(query); err != nil {
		return nil, err
	}
	if err := def.RequireSink(); err != nil {
		return nil, err
	}
	return def, nil
}

// RequireSink returns a ParseError if no CREATE TABLE was found.
func (s *Statement) RequireSink() error {
	if s.Sink == "" {
		return newParseError(Position{Line: 1, Column: 1}, ErrNoCreateTable)
	}
	return nil
}

// Merge folds other into s. Both may define a sink only if it is the same
// table.
func (s *Statement) Merge(other *Statement) error {
	if other.Sink != "" {
		if s.Sink != "" && s.Sink != other.Sink {
			return newParseError(other.SinkRef.Pos, ErrMultipleSinks, s.Sink, other.Sink)
		}
		if s.Sink == "" {
			s.Sink = other.Sink
			s.SinkRef = other.SinkRef
			s.Metadata.Columns = other.Metadata.Columns
			s.Metadata.PrimaryKey = other.Metadata.PrimaryKey
			s.Metadata.Distribution = other.Metadata.Distribution
			s.Metadata.PartitionKeys = other.Metadata.PartitionKeys
			s.Metadata.Watermark = other.Metadata.Watermark
			s.Metadata.Comment = other.Metadata.Comment
			s.Metadata.Like = other.Metadata.Like
			for _, k := range other.Metadata.OptionKeys() {
				s.Metadata.setOption(k, other.Metadata.Options[k])
			}
		}
	}
	s.Metadata.merge(&other.Metadata)
	s.InsertTargets = appendUnique(s.InsertTargets, other.InsertTargets...)
	s.CTEs = appendUnique(s.CTEs, other.CTEs...)
	s.Views = appendUnique(s.Views, other.Views...)
	s.SourceRefs = append(s.SourceRefs, other.SourceRefs...)
	s.resolveSources()
	return nil
}

type parser struct {
	cfg            *config
	stmt           *Statement
	refs           []TableRef
	inStatementSet bool
	setPos         Position
}

// statement handles one ';'-terminated statement.
func (p *parser) statement(toks []Token) error {
	toks = p.stripStatementSet(toks)
	if len(toks) == 0 {
		return nil
	}

	c := NewCursor(toks)
	for _, r := range p.cfg.scoped(ScopeStatement) {
		mark := c.Mark()
		if r.Recognize(c, &p.stmt.Metadata) && c.Done() {
			p.stmt.Metadata.Recognized = append(p.stmt.Metadata.Recognized, r.Name())
			return nil
		}
		c.Reset(mark)
	}

	switch c.Peek(0).Type {
	case TOKEN_CREATE:
		return p.create(c)
	case TOKEN_INSERT:
		return p.insert(c)
	case TOKEN_SELECT, TOKEN_WITH, TOKEN_LPAREN, TOKEN_VALUES:
		p.query(c.Rest())
	}
	// ALTER, DROP, DESCRIBE, SHOW and friends carry no lineage.
	return nil
}

// stripStatementSet removes EXECUTE STATEMENT SET BEGIN / BEGIN STATEMENT SET
// prefixes and the closing END.
func (p *parser) stripStatementSet(toks []Token) []Token {
	c := NewCursor(toks)
	switch {
	case c.Accept("execute", "statement", "set", "begin"),
		c.Accept("begin", "statement", "set"):
		p.inStatementSet = true
		p.setPos = toks[0].Pos
		return c.Rest()
	case len(toks) == 1 && toks[0].Type == TOKEN_END:
		p.inStatementSet = false
		return nil
	}
	return toks
}

func (p *parser) create(c *Cursor) error {
	c.Next() // CREATE
	c.Accept("or", "replace")
	if !c.Accept("temporary") {
		c.Accept("temp")
	}
	switch {
	case c.Accept("table"):
		return p.createTable(c)
	case c.Accept("view"):
		return p.createView(c)
	}
	// CREATE FUNCTION, CREATE CATALOG, CREATE DATABASE
	return nil
}

func (p *parser) createTable(c *Cursor) error {
	c.Accept("if", "not", "exists")
	at := c.Peek(0)
	parts := c.QualifiedName()
	if parts == nil {
		return newParseError(at.Pos, ErrExpectedTableName, "CREATE TABLE")
	}
	name := parts[len(parts)-1]
	if p.stmt.Sink != "" && p.stmt.Sink != name {
		return newParseError(at.Pos, ErrMultipleSinks, p.stmt.Sink, name)
	}
	p.stmt.Sink = name
	p.stmt.SinkRef = TableRef{Name: name, Qualified: strings.Join(parts, "."), Pos: at.Pos}

	md := &p.stmt.Metadata
	if c.Peek(0).Type == TOKEN_LPAREN {
		inner, _ := c.Group()
		for _, item := range splitTopLevel(inner) {
			p.columnItem(item)
		}
	}

	tableScope := p.cfg.scoped(ScopeTable)
	for !c.Done() {
		if c.Accept("as") {
			// CREATE TABLE ... AS SELECT
			p.query(c.Rest())
			return nil
		}
		if !p.recognize(tableScope, c, md) {
			c.Next()
		}
	}
	return nil
}

// columnItem handles one entry of a CREATE TABLE column list: a constraint,
// a watermark or a column definition.
func (p *parser) columnItem(item []Token) {
	if len(item) == 0 {
		return
	}
	md := &p.stmt.Metadata
	c := NewCursor(item)
	if p.recognize(p.cfg.scoped(ScopeColumns), c, md) {
		return
	}

	col := Column{Name: c.Next().Literal}
	var typ []Token
	for !c.Done() {
		switch {
		case c.Accept("primary", "key"):
			c.Accept("not", "enforced")
			col.PrimaryKey = true
			md.PrimaryKey = appendUnique(md.PrimaryKey, col.Name)
		case c.Peek(0).Is("comment") && c.Peek(1).Type == TOKEN_STRING:
			c.Next()
			col.Comment = c.Next().Literal
		default:
			typ = append(typ, c.Next())
		}
	}
	col.Type = renderTokens(typ)
	md.Columns = append(md.Columns, col)
}

// recognize tries each recognizer at the cursor, recording the first match.
func (p *parser) recognize(rs []Recognizer, c *Cursor, md *Metadata) bool {
	for _, r := range rs {
		if r.Recognize(c, md) {
			md.Recognized = append(md.Recognized, r.Name())
			return true
		}
	}
	return false
}

func (p *parser) createView(c *Cursor) error {
	c.Accept("if", "not", "exists")
	at := c.Peek(0)
	parts := c.QualifiedName()
	if parts == nil {
		return newParseError(at.Pos, ErrExpectedTableName, "CREATE VIEW")
	}
	p.stmt.Views = appendUnique(p.stmt.Views, parts[len(parts)-1])
	for !c.Done() {
		if c.Accept("as") {
			p.query(c.Rest())
			return nil
		}
		c.Next()
	}
	return nil
}

func (p *parser) insert(c *Cursor) error {
	c.Next() // INSERT
	if !c.Accept("into") && !c.Accept("overwrite") {
		return nil
	}
	c.Accept("table")
	at := c.Peek(0)
	parts := c.QualifiedName()
	if parts == nil {
		return newParseError(at.Pos, ErrExpectedTableName, "INSERT")
	}
	p.stmt.InsertTargets = appendUnique(p.stmt.InsertTargets, parts[len(parts)-1])

	// PARTITION (k = v) and a target column list precede the query.
	if c.Accept("partition") {
		_, _ = c.Group()
	}
	if c.Peek(0).Type == TOKEN_LPAREN && !startsQuery(c.Peek(1)) {
		_, _ = c.Group()
	}
	p.query(c.Rest())
	return nil
}

func startsQuery(tok Token) bool {
	switch tok.Type {
	case TOKEN_SELECT, TOKEN_WITH, TOKEN_VALUES, TOKEN_LPAREN:
		return true
	}
	return false
}

func (p *parser) query(toks []Token) {
	refs, ctes := scanLineage(toks)
	p.refs = append(p.refs, refs...)
	p.stmt.CTEs = appendUnique(p.stmt.CTEs, ctes...)
}

func (p *parser) finish() {
	p.stmt.SourceRefs = p.refs
	p.stmt.resolveSources()
}

// resolveSources drops references to local views and rebuilds Sources.
func (s *Statement) resolveSources() {
	views := make(map[string]bool, len(s.Views))
	for _, v := range s.Views {
		views[v] = true
	}
	seen := make(map[string]bool, len(s.SourceRefs))
	refs := s.SourceRefs[:0:0]
	s.Sources = nil
	for _, ref := range s.SourceRefs {
		if views[ref.Name] && ref.Qualified == ref.Name {
			continue
		}
		refs = append(refs, ref)
		if !seen[ref.Name] {
			seen[ref.Name] = true
			s.Sources = append(s.Sources, ref.Name)
		}
	}
	s.SourceRefs = refs
}

// splitStatements splits tokens on top-level semicolons.
func splitStatements(toks []Token) [][]Token {
	var (
		out   [][]Token
		start int
		depth int
	)
	for i, tok := range toks {
		switch tok.Type {
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			depth--
		case TOKEN_SEMICOLON:
			if depth == 0 {
				if i > start {
					out = append(out, toks[start:i])
				}
				start = i + 1
			}
		}
	}
	if start < len(toks) {
		out = append(out, toks[start:])
	}
	return out
}

// checkBalance reports the first unbalanced parenthesis.
func checkBalance(toks []Token) error {
	var open []Position
	for _, tok := range toks {
		switch tok.Type {
		case TOKEN_LPAREN:
			open = append(open, tok.Pos)
		case TOKEN_RPAREN:
			if len(open) == 0 {
				return newParseError(tok.Pos, ErrUnbalancedClose)
			}
			open = open[:len(open)-1]
		}
	}
	if len(open) > 0 {
		return newParseError(open[len(open)-1], ErrUnbalancedOpen)
	}
	return nil
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, d := range dst {
			if d == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}
