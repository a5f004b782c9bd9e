package flinksql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersDDL = `
CREATE TABLE IF NOT EXISTS int_p1_orders (
  order_id STRING,
  amount DECIMAL(10, 2),
  ts TIMESTAMP(3),
  PRIMARY KEY (order_id) NOT ENFORCED,
  WATERMARK FOR ts AS ts - INTERVAL '5' SECOND
) DISTRIBUTED BY HASH(order_id) INTO 6 BUCKETS
WITH (
  'changelog.mode' = 'upsert',
  'kafka.cleanup-policy' = 'delete',
  'key.avro-registry.schema-context' = '.flink-dev',
  'value.avro-registry.schema-context' = '.flink-dev'
);
`

func TestParse_CreateTable(t *testing.T) {
	stmt, err := Parse(ordersDDL)
	require.NoError(t, err)

	assert.Equal(t, "int_p1_orders", stmt.Sink)
	assert.Empty(t, stmt.Sources)

	md := stmt.Metadata
	require.Len(t, md.Columns, 3)
	assert.Equal(t, Column{Name: "amount", Type: "DECIMAL(10, 2)"}, md.Columns[1])
	assert.Equal(t, []string{"order_id"}, md.PrimaryKey)
	require.NotNil(t, md.Watermark)
	assert.Equal(t, "ts", md.Watermark.Column)
	assert.Equal(t, "ts - INTERVAL '5' SECOND", md.Watermark.Expression)
	require.NotNil(t, md.Distribution)
	assert.Equal(t, Distribution{Algorithm: "HASH", Keys: []string{"order_id"}, Buckets: 6}, *md.Distribution)
	assert.Equal(t, "upsert", md.ChangelogMode())
	assert.Equal(t, "delete", md.CleanupPolicy())
	assert.True(t, md.HasSchemaContext())
	assert.Equal(t, []string{"primary-key", "watermark", "distributed-by", "with-options"}, md.Recognized)
}

func TestParse_QualifiedSink(t *testing.T) {
	stmt, err := Parse("CREATE TEMPORARY TABLE `cat`.`db`.`dim_users` (id INT PRIMARY KEY NOT ENFORCED)")
	require.NoError(t, err)

	assert.Equal(t, "dim_users", stmt.Sink)
	assert.Equal(t, "cat.db.dim_users", stmt.SinkRef.Qualified)
	assert.Equal(t, []string{"id"}, stmt.Metadata.PrimaryKey)
	require.Len(t, stmt.Metadata.Columns, 1)
	assert.True(t, stmt.Metadata.Columns[0].PrimaryKey)
}

func TestParse_CreateTableAsSelect(t *testing.T) {
	stmt, err := Parse(`CREATE TABLE t WITH ('connector' = 'kafka') AS SELECT * FROM a JOIN b ON a.id = b.id`)
	require.NoError(t, err)

	assert.Equal(t, "t", stmt.Sink)
	assert.Equal(t, []string{"a", "b"}, stmt.Sources)
	v, ok := stmt.Metadata.Option(OptionConnector)
	assert.True(t, ok)
	assert.Equal(t, "kafka", v)
}

func TestParseQuery_Sources(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		sources []string
		ctes    []string
	}{
		{
			name:    "simple insert",
			sql:     "INSERT INTO t SELECT id FROM src_orders",
			sources: []string{"src_orders"},
		},
		{
			name:    "joins keep first appearance order",
			sql:     "INSERT INTO t SELECT * FROM b JOIN a ON a.id = b.id LEFT JOIN c ON c.id = a.id JOIN a a2 ON a2.id = c.id",
			sources: []string{"b", "a", "c"},
		},
		{
			name:    "comma separated from list",
			sql:     "SELECT * FROM a, b AS bb, c WHERE a.id = bb.id",
			sources: []string{"a", "b", "c"},
		},
		{
			name: "cte aliases are not tables",
			sql: `INSERT INTO int_p1_orders
WITH latest AS (
  SELECT * FROM src_p1_orders
), enriched AS (
  SELECT l.*, c.name FROM latest l JOIN src_p1_customers c ON l.cid = c.id
)
SELECT * FROM enriched, LATERAL TABLE(split(tags)) AS t(tag)`,
			sources: []string{"src_p1_orders", "src_p1_customers"},
			ctes:    []string{"latest", "enriched"},
		},
		{
			name:    "cte body reading the table it shadows",
			sql:     "WITH orders AS (SELECT * FROM orders WHERE amount > 0) SELECT * FROM orders",
			sources: []string{"orders"},
			ctes:    []string{"orders"},
		},
		{
			name:    "recursive cte is an alias inside its own body",
			sql:     "WITH RECURSIVE r AS (SELECT * FROM base UNION ALL SELECT * FROM r) SELECT * FROM r",
			sources: []string{"base"},
			ctes:    []string{"r"},
		},
		{
			name:    "cte scope ends with its subquery",
			sql:     "SELECT * FROM (WITH x AS (SELECT * FROM a) SELECT * FROM x) y JOIN x ON x.id = y.id",
			sources: []string{"a", "x"},
			ctes:    []string{"x"},
		},
		{
			name:    "subquery alias",
			sql:     "SELECT * FROM (SELECT id FROM a) sub JOIN b ON sub.id = b.id",
			sources: []string{"a", "b"},
		},
		{
			name:    "parenthesized join",
			sql:     "INSERT INTO t SELECT * FROM (x JOIN y ON x.a = y.a)",
			sources: []string{"x", "y"},
		},
		{
			name:    "nested parenthesized joins with alias",
			sql:     "SELECT * FROM ((x JOIN y ON x.a = y.a) JOIN z ON z.a = x.a) j, w",
			sources: []string{"x", "y", "z", "w"},
		},
		{
			name:    "subquery inside a parenthesized join",
			sql:     "SELECT * FROM ((SELECT * FROM a) s JOIN b ON s.id = b.id)",
			sources: []string{"a", "b"},
		},
		{
			name:    "window table-valued function",
			sql:     "INSERT INTO f SELECT window_start, COUNT(*) FROM TABLE(TUMBLE(TABLE src_orders, DESCRIPTOR(ts), INTERVAL '10' MINUTES)) GROUP BY window_start, window_end",
			sources: []string{"src_orders"},
		},
		{
			name:    "named table function argument",
			sql:     "SELECT * FROM TABLE(HOP(DATA => TABLE clicks, TIMECOL => DESCRIPTOR(ts), SLIDE => INTERVAL '1' MINUTE, SIZE => INTERVAL '5' MINUTE))",
			sources: []string{"clicks"},
		},
		{
			name:    "unnest is a function",
			sql:     "SELECT * FROM a CROSS JOIN UNNEST(a.items) AS i(item)",
			sources: []string{"a"},
		},
		{
			name:    "set operations",
			sql:     "SELECT id FROM a UNION ALL SELECT id FROM b EXCEPT SELECT id FROM c",
			sources: []string{"a", "b", "c"},
		},
		{
			name:    "temporal join",
			sql:     "INSERT INTO t SELECT * FROM orders o JOIN rates FOR SYSTEM_TIME AS OF o.proc_time AS r ON o.cur = r.cur",
			sources: []string{"orders", "rates"},
		},
		{
			name:    "in subquery",
			sql:     "SELECT * FROM a WHERE a.id IN (SELECT id FROM b)",
			sources: []string{"a", "b"},
		},
		{
			name:    "self reference",
			sql:     "INSERT INTO t SELECT * FROM t WHERE t.v > 0",
			sources: []string{"t"},
		},
		{
			name:    "qualified names use the last segment",
			sql:     "SELECT * FROM `cat`.`db`.`orders` o JOIN db.customers c ON o.cid = c.id",
			sources: []string{"orders", "customers"},
		},
		{
			name:    "insert with column list",
			sql:     "INSERT INTO t (a, b) SELECT a, b FROM src",
			sources: []string{"src"},
		},
		{
			name: "strings and comments do not leak",
			sql: `-- FROM commented_out
SELECT 'FROM fake' AS s /* JOIN hidden */ FROM real_table`,
			sources: []string{"real_table"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := ParseQuery(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.sources, stmt.Sources)
			if tt.ctes != nil {
				assert.Equal(t, tt.ctes, stmt.CTEs)
			}
			assert.Empty(t, stmt.Sink)
		})
	}
}

func TestParseQuery_TemporaryViewIsLocal(t *testing.T) {
	stmt, err := ParseQuery(`
CREATE TEMPORARY VIEW v AS SELECT * FROM a;
INSERT INTO t SELECT * FROM v JOIN b ON v.id = b.id;
`)
	require.NoError(t, err)

	assert.Equal(t, []string{"v"}, stmt.Views)
	assert.Equal(t, []string{"a", "b"}, stmt.Sources)
	assert.Equal(t, []string{"t"}, stmt.InsertTargets)
}

func TestParseQuery_StatementSet(t *testing.T) {
	stmt, err := ParseQuery(`
EXECUTE STATEMENT SET
BEGIN
INSERT INTO t SELECT * FROM a;
INSERT OVERWRITE t SELECT * FROM b;
END;
`)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, stmt.Sources)
	assert.Equal(t, []string{"t"}, stmt.InsertTargets)
}

func TestParseQuery_StatementSetWithoutEnd(t *testing.T) {
	_, err := ParseQuery("BEGIN STATEMENT SET; INSERT INTO t SELECT * FROM a;")
	require.Error(t, err)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrUnterminatedStmtSet, perr.Message)
}

func TestParseQuery_SessionOptions(t *testing.T) {
	stmt, err := ParseQuery(`
SET 'sql.state-ttl' = '1d';
SET 'table.exec.mini-batch.enabled' = 'true';
INSERT INTO t SELECT * FROM a;
`)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"sql.state-ttl":                  "1d",
		"table.exec.mini-batch.enabled": "true",
	}, stmt.Metadata.SessionOptions)
	assert.Equal(t, []string{"a"}, stmt.Sources)
}

func TestParseUnit(t *testing.T) {
	dml := `
INSERT INTO int_p1_orders
SELECT o.order_id, o.amount, o.ts
FROM src_p1_orders o
JOIN int_p1_orders prev ON prev.order_id = o.order_id;
`
	stmt, err := ParseUnit(ordersDDL, dml)
	require.NoError(t, err)

	assert.Equal(t, "int_p1_orders", stmt.Sink)
	assert.Equal(t, []string{"src_p1_orders", "int_p1_orders"}, stmt.Sources)
	assert.Equal(t, []string{"int_p1_orders"}, stmt.InsertTargets)
	assert.Equal(t, "upsert", stmt.Metadata.ChangelogMode())
}

func TestParseUnit_NoCreateTable(t *testing.T) {
	_, err := ParseUnit("-- nothing here", "INSERT INTO t SELECT * FROM a")
	require.Error(t, err)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrNoCreateTable, perr.Message)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		msg  string
		pos  Position
	}{
		{
			name: "no create table",
			sql:  "SELECT * FROM a",
			msg:  ErrNoCreateTable,
			pos:  Position{Line: 1, Column: 1},
		},
		{
			name: "unclosed paren",
			sql:  "CREATE TABLE t (a STRING",
			msg:  ErrUnbalancedOpen,
			pos:  Position{Line: 1, Column: 16, Offset: 15},
		},
		{
			name: "stray close paren",
			sql:  "CREATE TABLE t (a STRING))",
			msg:  ErrUnbalancedClose,
			pos:  Position{Line: 1, Column: 26, Offset: 25},
		},
		{
			name: "unterminated string",
			sql:  "CREATE TABLE t (a STRING) WITH ('connector' = 'kafka)",
			msg:  "unterminated string literal",
		},
		{
			name: "missing table name",
			sql:  "CREATE TABLE (a STRING)",
			msg:  "expected table name after CREATE TABLE",
		},
		{
			name: "two different sinks",
			sql:  "CREATE TABLE a (x INT); CREATE TABLE b (y INT);",
			msg:  "statement defines more than one table: a and b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.sql)
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "expected *ParseError, got %T", err)
			assert.Equal(t, tt.msg, perr.Message)
			if tt.pos != (Position{}) {
				assert.Equal(t, tt.pos, perr.Pos)
			}
		})
	}
}

func TestParse_Deterministic(t *testing.T) {
	sql := "CREATE TABLE t AS SELECT * FROM c, b, a JOIN d ON d.id = a.id"
	first, err := Parse(sql)
	require.NoError(t, err)

	for range 10 {
		again, err := Parse(sql)
		require.NoError(t, err)
		assert.Equal(t, first.Sources, again.Sources)
	}
}
