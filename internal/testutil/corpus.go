package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/shiftgraph/pkg/naming"
)

// Table describes one pipeline unit to write into a test corpus.
type Table struct {
	Kind    naming.Kind
	Product string
	Folder  string // table folder; defaults to Name
	Name    string // sink table name
	Sources []string
	// DDL and DML override the generated scripts when set.
	DDL string
	DML string
}

// WriteFile writes content under root, creating parent folders.
func WriteFile(t testing.TB, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

// WriteCorpus writes tables into a fresh temporary pipelines folder and
// returns its path.
func WriteCorpus(t testing.TB, tables ...Table) string {
	t.Helper()
	root := t.TempDir()
	for _, tbl := range tables {
		WriteTable(t, root, tbl)
	}
	return root
}

// WriteTable writes the DDL and DML scripts of one unit under root.
func WriteTable(t testing.TB, root string, tbl Table) {
	t.Helper()
	dir := UnitDir(tbl)
	ddl := tbl.DDL
	if ddl == "" {
		ddl = fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  id STRING,\n  PRIMARY KEY (id) NOT ENFORCED\n);\n", tbl.Name)
	}
	WriteFile(t, root, dir+"/"+naming.ScriptName(naming.ScriptDDL, tbl.Name), ddl)

	dml := tbl.DML
	if dml == "" && len(tbl.Sources) > 0 {
		dml = fmt.Sprintf("INSERT INTO %s\nSELECT t0.id FROM %s t0", tbl.Name, tbl.Sources[0])
		for i, src := range tbl.Sources[1:] {
			dml += fmt.Sprintf("\nJOIN %s t%d ON t%d.id = t0.id", src, i+1, i+1)
		}
		dml += ";\n"
	}
	if dml != "" {
		WriteFile(t, root, dir+"/"+naming.ScriptName(naming.ScriptDML, tbl.Name), dml)
	}
}

// UnitDir returns the corpus-relative scripts folder of a table.
func UnitDir(tbl Table) string {
	kind := tbl.Kind
	if kind == "" {
		kind = naming.KindSource
	}
	folder := tbl.Folder
	if folder == "" {
		folder = tbl.Name
	}
	product := tbl.Product
	if product == "" {
		product = "p1"
	}
	return kind.Folder() + "/" + product + "/" + folder + "/" + naming.ScriptsFolder
}
