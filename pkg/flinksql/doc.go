// Package flinksql extracts table-level lineage from Flink SQL scripts.
//
// A script is tokenized, split into statements and each statement is
// classified: CREATE TABLE defines the sink, INSERT / SELECT / CREATE VIEW
// bodies are scanned for source tables. CTE names, derived-table aliases,
// table functions and temporary views are told apart from real tables.
//
// Engine-specific clauses (PRIMARY KEY ... NOT ENFORCED, WATERMARK,
// DISTRIBUTED BY, WITH options, SET) are claimed by a registry of
// Recognizers and kept as Metadata. Recognized tokens never reach the
// lineage scanner, so supporting a new engine option only takes a new
// Recognizer:
//
//	ttl := flinksql.NewRecognizer("ttl", flinksql.ScopeTable, func(c *flinksql.Cursor, md *flinksql.Metadata) bool {
//		return c.Accept("ttl") && c.Next().Type == flinksql.TOKEN_STRING
//	})
//	stmt, err := flinksql.Parse(ddl, flinksql.WithRecognizers(ttl))
package flinksql
