package builder

import (
	"fmt"
	"strings"
)

// Failure types recorded in a build report.
const (
	FailureLayout = "layout"
	FailureRead   = "read"
	FailureParse  = "parse"
)

// FileError is a non-fatal failure localised to one script.
type FileError struct {
	Path string // relative to the corpus root
	Type string // layout, read or parse
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Path, e.Type, e.Err)
}

func (e FileError) Unwrap() error {
	return e.Err
}

// DuplicateSinkError reports two or more DDL scripts that declare the same
// table.
type DuplicateSinkError struct {
	Table string
	Paths []string // DDL scripts, in walk order
}

func (e *DuplicateSinkError) Error() string {
	return fmt.Sprintf("table %q is declared by more than one script: %s", e.Table, strings.Join(e.Paths, ", "))
}

// UnresolvedReferenceWarning records a table read by units but produced by
// none. The table becomes an external leaf in the graph.
type UnresolvedReferenceWarning struct {
	Table        string
	ReferencedBy []string // consumer tables, in walk order
}

func (w UnresolvedReferenceWarning) String() string {
	return fmt.Sprintf("table %q has no pipeline unit (referenced by %s)", w.Table, strings.Join(w.ReferencedBy, ", "))
}
