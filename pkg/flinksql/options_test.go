package flinksql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecognizers_TableClauses(t *testing.T) {
	stmt, err := Parse(`
CREATE TABLE p1_fct_sales (
  sale_id BIGINT COMMENT 'surrogate',
  region STRING
)
COMMENT 'daily sales'
PARTITIONED BY (region)
DISTRIBUTED INTO 4 BUCKETS
WITH ('changelog.mode' = 'retract', 'kafka.retention.time' = '0');
`)
	require.NoError(t, err)

	md := stmt.Metadata
	assert.Equal(t, "daily sales", md.Comment)
	assert.Equal(t, []string{"region"}, md.PartitionKeys)
	require.NotNil(t, md.Distribution)
	assert.Equal(t, 4, md.Distribution.Buckets)
	assert.Empty(t, md.Distribution.Keys)
	assert.Equal(t, "retract", md.ChangelogMode())
	assert.Equal(t, "surrogate", md.Columns[0].Comment)
	assert.Equal(t, "BIGINT", md.Columns[0].Type)
	assert.Equal(t, []string{"comment", "partitioned-by", "distributed-into", "with-options"}, md.Recognized)
}

func TestRecognizers_Like(t *testing.T) {
	stmt, err := Parse("CREATE TABLE t_copy WITH ('connector' = 'kafka') LIKE db.t (EXCLUDING OPTIONS)")
	require.NoError(t, err)

	assert.Equal(t, "db.t", stmt.Metadata.Like)
	assert.Empty(t, stmt.Sources, "LIKE copies a schema, it does not read data")
}

func TestRecognizers_Use(t *testing.T) {
	stmt, err := ParseQuery("USE CATALOG prod; USE analytics; INSERT INTO t SELECT * FROM a")
	require.NoError(t, err)

	assert.Equal(t, "prod", stmt.Metadata.SessionOptions["use.catalog"])
	assert.Equal(t, "analytics", stmt.Metadata.SessionOptions["use.database"])
}

func TestRecognizers_UnknownClauseIsTolerated(t *testing.T) {
	stmt, err := Parse("CREATE TABLE t (a INT) TTL '7d' WITH ('connector' = 'kafka')")
	require.NoError(t, err)

	assert.Equal(t, "t", stmt.Sink)
	assert.Empty(t, stmt.Sources)
	assert.Equal(t, []string{"connector"}, stmt.Metadata.OptionKeys())
}

func TestWithRecognizers(t *testing.T) {
	ttl := NewRecognizer("ttl", ScopeTable, func(c *Cursor, md *Metadata) bool {
		if !c.Accept("ttl") {
			return false
		}
		tok, ok := c.AcceptType(TOKEN_STRING)
		if !ok {
			return false
		}
		md.setOption("ttl", tok.Literal)
		return true
	})

	stmt, err := Parse("CREATE TABLE t (a INT) TTL '7d' WITH ('connector' = 'kafka')", WithRecognizers(ttl))
	require.NoError(t, err)

	v, ok := stmt.Metadata.Option("ttl")
	require.True(t, ok)
	assert.Equal(t, "7d", v)
	assert.Equal(t, []string{"ttl", "with-options"}, stmt.Metadata.Recognized)

	// The extra recognizer is scoped to the call.
	for _, r := range Recognizers() {
		assert.NotEqual(t, "ttl", r.Name())
	}
}

func TestRecognizer_ResetsCursorOnMiss(t *testing.T) {
	toks, err := Tokenize("DISTRIBUTED BY HASH(a) INTO many BUCKETS")
	require.NoError(t, err)

	c := NewCursor(toks)
	r := NewRecognizer("distributed-by", ScopeTable, recognizeDistributedBy)
	md := &Metadata{}
	assert.False(t, r.Recognize(c, md))
	assert.Equal(t, 0, c.Mark())
}

func TestParseKeyValues(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want map[string]string
		ok   bool
	}{
		{
			name: "quoted pairs",
			sql:  "'a' = '1', 'b.c' = 'x'",
			want: map[string]string{"a": "1", "b.c": "x"},
			ok:   true,
		},
		{
			name: "dotted identifier keys",
			sql:  "scan.startup.mode = 'earliest-offset'",
			want: map[string]string{"scan.startup.mode": "earliest-offset"},
			ok:   true,
		},
		{
			name: "missing value",
			sql:  "'a' =",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Tokenize(tt.sql)
			require.NoError(t, err)

			got, ok := parseKeyValues(toks)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
