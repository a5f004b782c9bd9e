package flinksql

import (
	"strconv"
	"strings"
	"sync"
)

// Scope says where in a statement a recognizer is tried.
type Scope uint8

// Recognizer scopes. A recognizer may serve several scopes.
const (
	// ScopeStatement recognizers see a whole statement, e.g. SET 'k' = 'v'.
	ScopeStatement Scope = 1 << iota
	// ScopeColumns recognizers see one item of a CREATE TABLE column list.
	ScopeColumns
	// ScopeTable recognizers see the clauses after the column list.
	ScopeTable
)

// Recognizer claims an engine-specific structural clause. Recognize is
// called with the cursor at a candidate token; on a match it consumes the
// clause, records it in md and returns true. On a miss it must not move
// the cursor.
//
// Lineage extraction never looks at tokens a recognizer consumed.
type Recognizer interface {
	Name() string
	Scope() Scope
	Recognize(c *Cursor, md *Metadata) bool
}

type recognizerFunc struct {
	name  string
	scope Scope
	fn    func(c *Cursor, md *Metadata) bool
}

func (r recognizerFunc) Name() string  { return r.name }
func (r recognizerFunc) Scope() Scope  { return r.scope }
func (r recognizerFunc) Recognize(c *Cursor, md *Metadata) bool {
	mark := c.Mark()
	if r.fn(c, md) {
		return true
	}
	c.Reset(mark)
	return false
}

// NewRecognizer builds a Recognizer from a function. The cursor is reset
// automatically when fn returns false.
func NewRecognizer(name string, scope Scope, fn func(c *Cursor, md *Metadata) bool) Recognizer {
	return recognizerFunc{name: name, scope: scope, fn: fn}
}

// Recognizer registry
var (
	recognizersMu sync.RWMutex
	recognizers   []Recognizer
)

// Register adds a recognizer to the default set used by every parse.
// Registering a name that already exists replaces the previous recognizer.
func Register(r Recognizer) {
	recognizersMu.Lock()
	defer recognizersMu.Unlock()
	for i, existing := range recognizers {
		if existing.Name() == r.Name() {
			recognizers[i] = r
			return
		}
	}
	recognizers = append(recognizers, r)
}

// Recognizers returns the registered recognizers in registration order.
func Recognizers() []Recognizer {
	recognizersMu.RLock()
	defer recognizersMu.RUnlock()
	out := make([]Recognizer, len(recognizers))
	copy(out, recognizers)
	return out
}

func init() {
	Register(NewRecognizer("primary-key", ScopeColumns|ScopeTable, recognizePrimaryKey))
	Register(NewRecognizer("watermark", ScopeColumns, recognizeWatermark))
	Register(NewRecognizer("distributed-by", ScopeTable, recognizeDistributedBy))
	Register(NewRecognizer("distributed-into", ScopeTable, recognizeDistributedInto))
	Register(NewRecognizer("partitioned-by", ScopeTable, recognizePartitionedBy))
	Register(NewRecognizer("comment", ScopeTable, recognizeComment))
	Register(NewRecognizer("with-options", ScopeTable, recognizeWithOptions))
	Register(NewRecognizer("like", ScopeTable, recognizeLike))
	Register(NewRecognizer("set", ScopeStatement, recognizeSet))
	Register(NewRecognizer("reset", ScopeStatement, recognizeReset))
	Register(NewRecognizer("use", ScopeStatement, recognizeUse))
}

// [CONSTRAINT name] PRIMARY KEY (a, b) [NOT ENFORCED]
func recognizePrimaryKey(c *Cursor, md *Metadata) bool {
	if c.Accept("constraint") {
		c.Next()
	}
	if !c.Accept("primary", "key") {
		return false
	}
	inner, ok := c.Group()
	if !ok {
		return false
	}
	md.PrimaryKey = nameList(inner)
	c.Accept("not", "enforced")
	return true
}

// WATERMARK FOR col AS expr
func recognizeWatermark(c *Cursor, md *Metadata) bool {
	if !c.Accept("watermark", "for") {
		return false
	}
	col := c.QualifiedName()
	if col == nil {
		return false
	}
	wm := &Watermark{Column: col[len(col)-1]}
	if c.Accept("as") {
		wm.Expression = renderTokens(c.Rest())
	}
	md.Watermark = wm
	return true
}

// DISTRIBUTED BY [HASH|RANGE] (k, ...) [INTO n BUCKETS]
func recognizeDistributedBy(c *Cursor, md *Metadata) bool {
	if !c.Accept("distributed", "by") {
		return false
	}
	dist := &Distribution{}
	if c.Peek(0).IsName() && c.Peek(1).Type == TOKEN_LPAREN {
		dist.Algorithm = strings.ToUpper(c.Next().Literal)
	}
	inner, ok := c.Group()
	if !ok {
		return false
	}
	dist.Keys = nameList(inner)
	if c.Peek(0).Is("into") {
		n, ok := acceptBuckets(c)
		if !ok {
			return false
		}
		dist.Buckets = n
	}
	md.Distribution = dist
	return true
}

// DISTRIBUTED INTO n BUCKETS
func recognizeDistributedInto(c *Cursor, md *Metadata) bool {
	if !c.Accept("distributed") {
		return false
	}
	n, ok := acceptBuckets(c)
	if !ok {
		return false
	}
	md.Distribution = &Distribution{Buckets: n}
	return true
}

func acceptBuckets(c *Cursor) (int, bool) {
	if !c.Accept("into") {
		return 0, false
	}
	tok, ok := c.AcceptType(TOKEN_NUMBER)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(tok.Literal)
	if err != nil {
		return 0, false
	}
	if !c.Accept("buckets") {
		return 0, false
	}
	return n, true
}

// PARTITIONED BY (a, b)
func recognizePartitionedBy(c *Cursor, md *Metadata) bool {
	if !c.Accept("partitioned", "by") {
		return false
	}
	inner, ok := c.Group()
	if !ok {
		return false
	}
	md.PartitionKeys = nameList(inner)
	return true
}

// COMMENT 'text'
func recognizeComment(c *Cursor, md *Metadata) bool {
	if !c.Accept("comment") {
		return false
	}
	tok, ok := c.AcceptType(TOKEN_STRING)
	if !ok {
		return false
	}
	md.Comment = tok.Literal
	return true
}

// WITH ('k' = 'v', ...)
func recognizeWithOptions(c *Cursor, md *Metadata) bool {
	if !c.Accept("with") {
		return false
	}
	inner, ok := c.Group()
	if !ok {
		return false
	}
	opts, ok := parseKeyValues(inner)
	if !ok {
		return false
	}
	for k, v := range opts {
		md.setOption(k, v)
	}
	return true
}

// LIKE base [(INCLUDING ALL ...)]
func recognizeLike(c *Cursor, md *Metadata) bool {
	if !c.Accept("like") {
		return false
	}
	name := c.QualifiedName()
	if name == nil {
		return false
	}
	md.Like = strings.Join(name, ".")
	_, _ = c.Group()
	return true
}

// SET 'k' = 'v'
func recognizeSet(c *Cursor, md *Metadata) bool {
	if !c.Accept("set") {
		return false
	}
	opts, ok := parseKeyValues(c.Rest())
	if !ok {
		return false
	}
	for k, v := range opts {
		md.setSessionOption(k, v)
	}
	return true
}

// RESET ['k']
func recognizeReset(c *Cursor, _ *Metadata) bool {
	if !c.Accept("reset") {
		return false
	}
	c.Rest()
	return true
}

// USE [CATALOG] name
func recognizeUse(c *Cursor, md *Metadata) bool {
	if !c.Accept("use") {
		return false
	}
	key := "use.database"
	if c.Accept("catalog") {
		key = "use.catalog"
	}
	name := c.QualifiedName()
	if name == nil || !c.Done() {
		return false
	}
	md.setSessionOption(key, strings.Join(name, "."))
	return true
}

// parseKeyValues parses 'k' = 'v' pairs separated by commas. Keys may also
// be written as dotted identifiers.
func parseKeyValues(toks []Token) (map[string]string, bool) {
	out := make(map[string]string)
	for _, item := range splitTopLevel(toks) {
		if len(item) == 0 {
			continue
		}
		eq := -1
		for i, tok := range item {
			if tok.Type == TOKEN_OP && tok.Literal == "=" {
				eq = i
				break
			}
		}
		if eq <= 0 || eq == len(item)-1 {
			return nil, false
		}
		out[optionText(item[:eq])] = optionText(item[eq+1:])
	}
	return out, true
}

func optionText(toks []Token) string {
	if len(toks) == 1 && (toks[0].Type == TOKEN_STRING || toks[0].Quoted) {
		return toks[0].Literal
	}
	var b strings.Builder
	for _, tok := range toks {
		b.WriteString(tok.Literal)
	}
	return b.String()
}
