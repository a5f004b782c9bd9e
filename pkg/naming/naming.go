// Package naming implements the table and file naming conventions of a
// streaming pipeline estate:
//
//	sources        src_<product>_<table>
//	intermediates  int_<product>_<table>
//	facts          <product>_fct_<table>
//	dimensions     <product>_dim_<table>
//	views          <product>_mv_<table>
//
// Each table lives in {kind folder}/{product}/{table}/sql-scripts with a
// ddl.<long name>.sql and a dml.<long name>.sql script.
package naming

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind is the dimensional-modelling role of a table.
type Kind string

// Table kinds.
const (
	KindSource       Kind = "source"
	KindIntermediate Kind = "intermediate"
	KindDimension    Kind = "dimension"
	KindFact         Kind = "fact"
	KindView         Kind = "view"
)

// Kinds lists every kind in layer order, sources first.
var Kinds = []Kind{KindSource, KindIntermediate, KindDimension, KindFact, KindView}

var (
	folders = map[Kind]string{
		KindSource:       "sources",
		KindIntermediate: "intermediates",
		KindDimension:    "dimensions",
		KindFact:         "facts",
		KindView:         "views",
	}
	abbreviations = map[Kind]string{
		KindSource:       "src",
		KindIntermediate: "int",
		KindDimension:    "dim",
		KindFact:         "fct",
		KindView:         "mv",
	}
)

// Folder returns the top-level folder holding tables of this kind.
func (k Kind) Folder() string {
	return folders[k]
}

// Abbreviation returns the name segment for this kind: src, int, dim, fct or mv.
func (k Kind) Abbreviation() string {
	return abbreviations[k]
}

// PrefixFirst reports whether the kind abbreviation leads the long name
// (src_p_t, int_p_t) rather than following the product (p_fct_t).
func (k Kind) PrefixFirst() bool {
	return k == KindSource || k == KindIntermediate
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := folders[k]
	return ok
}

func (k Kind) String() string {
	return string(k)
}

// KindFromFolder maps a folder name such as "facts" to its kind.
func KindFromFolder(folder string) (Kind, bool) {
	for k, f := range folders {
		if f == folder {
			return k, true
		}
	}
	return "", false
}

// ParseKind accepts a kind name, its folder or its abbreviation.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds {
		if s == string(k) || s == k.Folder() || s == k.Abbreviation() {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown table kind %q", s)
}

// LongTableName builds the managed table name of table in product.
// A table that already carries the kind abbreviation is not prefixed twice.
func LongTableName(table, product string, kind Kind) string {
	abbr := kind.Abbreviation()
	if abbr == "" {
		return table
	}
	table = strings.TrimPrefix(table, abbr+"_")
	switch {
	case product == "":
		return abbr + "_" + table
	case kind.PrefixFirst():
		return abbr + "_" + product + "_" + table
	default:
		return product + "_" + abbr + "_" + table
	}
}

// ShortTableName splits a long table name into kind, product and table.
// Names that follow no convention come back as ("", "", name).
func ShortTableName(name string) (Kind, string, string) {
	parts := strings.Split(name, "_")
	if len(parts) < 3 {
		return "", "", name
	}
	var abbr, product string
	if parts[0] == "src" || parts[0] == "int" {
		abbr, product = parts[0], parts[1]
	} else {
		product, abbr = parts[0], parts[1]
	}
	for k, a := range abbreviations {
		if a == abbr {
			return k, product, strings.Join(parts[2:], "_")
		}
	}
	return "", "", name
}

// Script is the role of a SQL file within a table folder.
type Script string

// Script roles.
const (
	ScriptDDL Script = "ddl"
	ScriptDML Script = "dml"
)

// ScriptsFolder is the folder holding a table's scripts.
const ScriptsFolder = "sql-scripts"

// ScriptName returns the file name of a script for table, e.g. ddl.src_p1_orders.sql.
func ScriptName(script Script, table string) string {
	return string(script) + "." + table + ".sql"
}

// ParseScriptName splits a file name such as dml.int_p1_orders.sql into
// its role and table name.
func ParseScriptName(file string) (Script, string, bool) {
	base := filepath.Base(file)
	if !strings.HasSuffix(base, ".sql") {
		return "", "", false
	}
	base = strings.TrimSuffix(base, ".sql")
	role, table, ok := strings.Cut(base, ".")
	if !ok || table == "" {
		return "", "", false
	}
	switch Script(role) {
	case ScriptDDL, ScriptDML:
		return Script(role), table, true
	}
	return "", "", false
}

// HasConventionalName reports whether table follows the naming convention
// for kind within product.
func HasConventionalName(table, product string, kind Kind) bool {
	abbr := kind.Abbreviation()
	if abbr == "" {
		return false
	}
	if kind.PrefixFirst() {
		return strings.HasPrefix(table, abbr+"_"+product)
	}
	return strings.HasPrefix(table, product+"_"+abbr)
}
