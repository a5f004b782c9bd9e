package builder

import (
	"fmt"
	"time"
)

// Report describes one build. It is returned even when the build fails.
type Report struct {
	BuildID   string
	Root      string
	StartedAt time.Time
	Duration  time.Duration

	// Units is the number of units found in the corpus.
	Units int
	// Nodes are the tables built from units, in walk order.
	Nodes []string
	// Externals are referenced tables no unit produces, sorted by table.
	Externals []UnresolvedReferenceWarning
	// Failures are per-script errors; the affected units are left out of the graph.
	Failures []FileError
	// Duplicates are tables declared by more than one DDL script. Any duplicate
	// fails the build.
	Duplicates []*DuplicateSinkError
	// Fingerprint is a hash of every script read, in walk order.
	Fingerprint string
}

// HasErrors returns true if any script failed or a sink is duplicated.
func (r *Report) HasErrors() bool {
	return len(r.Failures) > 0 || len(r.Duplicates) > 0
}

// Summary returns a human-readable summary.
func (r *Report) Summary() string {
	return fmt.Sprintf(
		"Units: %d | Nodes: %d | External: %d | Failures: %d | Duplicates: %d | Duration: %s",
		r.Units, len(r.Nodes), len(r.Externals), len(r.Failures), len(r.Duplicates),
		r.Duration.Round(time.Millisecond),
	)
}
