// Package validate checks pipeline units against the estate conventions:
// file and table naming, changelog and cleanup options and schema
// registry contexts.
package validate

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/shiftgraph/internal/dag"
	"github.com/leapstack-labs/shiftgraph/internal/pipeline"
)

// Severity of a violation.
type Severity int

// Severity levels.
const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Violation is one convention breach.
type Violation struct {
	Table    string
	File     string // script relative to the corpus root
	Rule     string
	Severity Severity
	Message  string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s [%s] %s", v.File, v.Table, v.Rule, v.Message)
}

// Check inspects one node.
type Check func(n *pipeline.Node) []Violation

// Rule is a named convention check.
type Rule struct {
	ID          string
	Name        string
	Description string
	Severity    Severity
	Check       Check
}

// Config selects the rules to run.
type Config struct {
	// Disabled holds rule IDs or names to skip.
	Disabled []string
}

// Validator runs rules over a graph.
type Validator struct {
	rules []Rule
}

// New creates a validator with every built-in rule not disabled by cfg.
func New(cfg Config) (*Validator, error) {
	disabled := make(map[string]bool, len(cfg.Disabled))
	for _, d := range cfg.Disabled {
		d = strings.TrimSpace(d)
		if _, ok := Lookup(d); !ok {
			return nil, fmt.Errorf("unknown validation rule %q", d)
		}
		disabled[strings.ToLower(d)] = true
	}

	v := &Validator{}
	for _, r := range Rules() {
		if disabled[strings.ToLower(r.ID)] || disabled[strings.ToLower(r.Name)] {
			continue
		}
		v.rules = append(v.rules, r)
	}
	return v, nil
}

// Rules returns the enabled rules.
func (v *Validator) Rules() []Rule {
	return slices.Clone(v.rules)
}

// Validate checks every unit node of snap. External nodes have no scripts
// and are skipped. Violations are sorted by table, file and rule.
func (v *Validator) Validate(snap *dag.Snapshot) []Violation {
	var out []Violation
	for _, n := range snap.Nodes() {
		if n.External {
			continue
		}
		for _, r := range v.rules {
			for _, viol := range r.Check(n) {
				viol.Table = n.Name
				viol.Rule = r.ID
				viol.Severity = r.Severity
				if viol.File == "" {
					viol.File = n.DDLPath
				}
				out = append(out, viol)
			}
		}
	}
	slices.SortFunc(out, func(a, b Violation) int {
		return cmp.Or(
			cmp.Compare(a.Table, b.Table),
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.Rule, b.Rule),
			cmp.Compare(a.Message, b.Message),
		)
	})
	return out
}

// HasErrors reports whether any violation has error severity.
func HasErrors(violations []Violation) bool {
	return slices.ContainsFunc(violations, func(v Violation) bool {
		return v.Severity == SeverityError
	})
}
