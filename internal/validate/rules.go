package validate

import (
	"fmt"
	"path"
	"strings"

	"github.com/leapstack-labs/shiftgraph/internal/pipeline"
	"github.com/leapstack-labs/shiftgraph/pkg/flinksql"
	"github.com/leapstack-labs/shiftgraph/pkg/naming"
)

var builtin = []Rule{
	{
		ID:          "SG01",
		Name:        "file-name",
		Description: "Script names are ddl.<table>.sql and dml.<table>.sql with the conventional table name",
		Severity:    SeverityError,
		Check:       checkFileNames,
	},
	{
		ID:          "SG02",
		Name:        "table-name",
		Description: "Table names carry the kind and product prefix; intermediates do not end in _deduped",
		Severity:    SeverityError,
		Check:       checkTableName,
	},
	{
		ID:          "SG03",
		Name:        "changelog-mode",
		Description: "Sources and intermediates use upsert, facts, dimensions and views use retract",
		Severity:    SeverityError,
		Check:       checkChangelogMode,
	},
	{
		ID:          "SG04",
		Name:        "cleanup-policy",
		Description: "Sources and intermediates use kafka.cleanup-policy delete, sink tables use compact",
		Severity:    SeverityError,
		Check:       checkCleanupPolicy,
	},
	{
		ID:          "SG05",
		Name:        "schema-context",
		Description: "Key and value avro registry schema contexts are set",
		Severity:    SeverityWarning,
		Check:       checkSchemaContext,
	},
	{
		ID:          "SG06",
		Name:        "insert-target",
		Description: "The DML inserts into the table defined by the DDL",
		Severity:    SeverityError,
		Check:       checkInsertTarget,
	},
}

// Rules returns every built-in rule in ID order.
func Rules() []Rule {
	out := make([]Rule, len(builtin))
	copy(out, builtin)
	return out
}

// Lookup finds a rule by ID or name, ignoring case.
func Lookup(key string) (Rule, bool) {
	for _, r := range builtin {
		if strings.EqualFold(r.ID, key) || strings.EqualFold(r.Name, key) {
			return r, true
		}
	}
	return Rule{}, false
}

// upsertKind reports whether tables of kind are upsert tables.
func upsertKind(k naming.Kind) bool {
	return k == naming.KindSource || k == naming.KindIntermediate
}

func checkFileNames(n *pipeline.Node) []Violation {
	var out []Violation
	for _, file := range []string{n.DDLPath, n.DMLPath} {
		if file == "" {
			continue
		}
		_, table, ok := naming.ParseScriptName(path.Base(file))
		switch {
		case !ok:
			out = append(out, Violation{File: file, Message: "not a ddl or dml script name"})
		case table != n.Name:
			out = append(out, Violation{File: file, Message: fmt.Sprintf("script is named for %s", table)})
		case !naming.HasConventionalName(table, n.Product, n.Kind):
			out = append(out, Violation{File: file, Message: fmt.Sprintf("want %s", naming.ScriptName(scriptOf(file), naming.LongTableName(table, n.Product, n.Kind)))})
		}
	}
	return out
}

func scriptOf(file string) naming.Script {
	if strings.HasPrefix(path.Base(file), string(naming.ScriptDML)) {
		return naming.ScriptDML
	}
	return naming.ScriptDDL
}

func checkTableName(n *pipeline.Node) []Violation {
	if !naming.HasConventionalName(n.Name, n.Product, n.Kind) {
		return []Violation{{Message: fmt.Sprintf("table name should start with %s", prefix(n.Product, n.Kind))}}
	}
	if n.Kind == naming.KindIntermediate && strings.HasSuffix(n.Name, "_deduped") {
		return []Violation{{Message: "intermediate table name must not end in _deduped"}}
	}
	return nil
}

func prefix(product string, kind naming.Kind) string {
	if kind.PrefixFirst() {
		return kind.Abbreviation() + "_" + product
	}
	return product + "_" + kind.Abbreviation()
}

func checkChangelogMode(n *pipeline.Node) []Violation {
	want := "retract"
	if upsertKind(n.Kind) {
		want = "upsert"
	}
	// Flink defaults to append when the option is absent.
	got := n.Metadata.ChangelogMode()
	if got == "" {
		got = "append"
	}
	if !strings.HasPrefix(got, want) {
		return []Violation{{Message: fmt.Sprintf("%s is %s, want %s", flinksql.OptionChangelogMode, got, want)}}
	}
	return nil
}

func checkCleanupPolicy(n *pipeline.Node) []Violation {
	want := "compact"
	if upsertKind(n.Kind) {
		want = "delete"
	}
	got := n.Metadata.CleanupPolicy()
	if got == "" {
		got = "delete"
	}
	if !strings.HasPrefix(got, want) {
		return []Violation{{Message: fmt.Sprintf("%s is %s, want %s", flinksql.OptionCleanupPolicy, got, want)}}
	}
	return nil
}

func checkSchemaContext(n *pipeline.Node) []Violation {
	var out []Violation
	for _, key := range []string{flinksql.OptionKeySchemaContext, flinksql.OptionValueSchemaContext} {
		if _, ok := n.Metadata.Option(key); !ok {
			out = append(out, Violation{Message: key + " not set"})
		}
	}
	return out
}

func checkInsertTarget(n *pipeline.Node) []Violation {
	if n.DMLPath == "" {
		return nil
	}
	if len(n.InsertTargets) == 0 {
		return []Violation{{File: n.DMLPath, Message: "no INSERT statement"}}
	}
	var out []Violation
	for _, target := range n.InsertTargets {
		if target != n.Sink {
			out = append(out, Violation{File: n.DMLPath, Message: fmt.Sprintf("inserts into %s instead of %s", target, n.Sink)})
		}
	}
	return out
}
