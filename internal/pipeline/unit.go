package pipeline

import (
	"fmt"
	"path"
	"strings"

	"github.com/leapstack-labs/shiftgraph/pkg/naming"
)

// Unit is the on-disk location of one pipeline unit:
//
//	{kind folder}/{product}/{table}/sql-scripts/{ddl,dml}.<table>.sql
//
// The product level is optional. All paths are relative to the corpus root
// and slash separated.
type Unit struct {
	Kind    naming.Kind
	Product string
	Table   string // table folder name
	Dir     string // unit folder
	DDLPath string
	DMLPath string // empty when the unit has no DML script
	// ExtraDDL are further DDL scripts found in the folder, in lexical
	// order. The builder checks the tables they declare for duplicates.
	ExtraDDL []string
}

// LayoutError reports a script that does not sit where the layout expects.
type LayoutError struct {
	Path   string
	Reason string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("layout error in %s: %s", e.Path, e.Reason)
}

// Location describes where a single script file sits in the layout.
type Location struct {
	Kind    naming.Kind
	Product string
	Table   string
	Dir     string
	Script  naming.Script
}

// LocateScript interprets a corpus-relative script path.
func LocateScript(rel string) (Location, error) {
	rel = path.Clean(strings.ReplaceAll(rel, "\\", "/"))
	parts := strings.Split(rel, "/")

	var loc Location
	switch len(parts) {
	case 5:
		loc.Product, loc.Table = parts[1], parts[2]
	case 4:
		loc.Table = parts[1]
	default:
		return loc, &LayoutError{Path: rel, Reason: "expected {kind}/{product}/{table}/sql-scripts/<script>.sql"}
	}

	kind, ok := naming.KindFromFolder(parts[0])
	if !ok {
		return loc, &LayoutError{Path: rel, Reason: fmt.Sprintf("unknown kind folder %q", parts[0])}
	}
	loc.Kind = kind

	if parts[len(parts)-2] != naming.ScriptsFolder {
		return loc, &LayoutError{Path: rel, Reason: fmt.Sprintf("scripts must live in a %s folder", naming.ScriptsFolder)}
	}

	script, _, ok := naming.ParseScriptName(parts[len(parts)-1])
	if !ok {
		return loc, &LayoutError{Path: rel, Reason: "script name must be ddl.<table>.sql or dml.<table>.sql"}
	}
	loc.Script = script
	loc.Dir = path.Join(parts[:len(parts)-2]...)
	return loc, nil
}

// Add records a located script in the unit. Script order within a folder
// is lexical, so the first DDL and the first DML win. Later DDL scripts are
// kept in ExtraDDL; a second DML script is a layout error.
func (u *Unit) Add(loc Location, rel string) error {
	if u.Dir == "" {
		u.Kind, u.Product, u.Table, u.Dir = loc.Kind, loc.Product, loc.Table, loc.Dir
	}
	switch loc.Script {
	case naming.ScriptDDL:
		if u.DDLPath != "" {
			u.ExtraDDL = append(u.ExtraDDL, rel)
			return nil
		}
		u.DDLPath = rel
	case naming.ScriptDML:
		if u.DMLPath != "" {
			return &LayoutError{Path: rel, Reason: "unit already has DML script " + u.DMLPath}
		}
		u.DMLPath = rel
	}
	return nil
}
