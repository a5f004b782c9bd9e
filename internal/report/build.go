package report

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/shiftgraph/internal/builder"
	"github.com/leapstack-labs/shiftgraph/internal/dag"
)

// ExternalOutput is an unresolved reference in a build report.
type ExternalOutput struct {
	Table        string   `json:"table" yaml:"table"`
	ReferencedBy []string `json:"referenced_by" yaml:"referenced_by"`
}

// FailureOutput is a per-file failure in a build report.
type FailureOutput struct {
	Path    string `json:"path" yaml:"path"`
	Type    string `json:"type" yaml:"type"`
	Message string `json:"message" yaml:"message"`
}

// DuplicateOutput is a table declared by more than one DDL script.
type DuplicateOutput struct {
	Table string   `json:"table" yaml:"table"`
	Paths []string `json:"paths" yaml:"paths"`
}

// BuildSummary holds build report counters.
type BuildSummary struct {
	Units      int `json:"units" yaml:"units"`
	Nodes      int `json:"nodes" yaml:"nodes"`
	Edges      int `json:"edges" yaml:"edges"`
	Externals  int `json:"externals" yaml:"externals"`
	Failures   int `json:"failures" yaml:"failures"`
	Duplicates int `json:"duplicates" yaml:"duplicates"`
}

// BuildOutput is the JSON and YAML form of a build report.
type BuildOutput struct {
	BuildID     string            `json:"build_id" yaml:"build_id"`
	Root        string            `json:"root" yaml:"root"`
	StartedAt   time.Time         `json:"started_at" yaml:"started_at"`
	DurationMS  int64             `json:"duration_ms" yaml:"duration_ms"`
	Fingerprint string            `json:"fingerprint" yaml:"fingerprint"`
	Summary     BuildSummary      `json:"summary" yaml:"summary"`
	Nodes       []string          `json:"nodes" yaml:"nodes"`
	// Roots read from no other table; Leaves are read by none.
	Roots       []string          `json:"roots" yaml:"roots"`
	Leaves      []string          `json:"leaves" yaml:"leaves"`
	Externals   []ExternalOutput  `json:"externals" yaml:"externals"`
	Failures    []FailureOutput   `json:"failures" yaml:"failures"`
	Duplicates  []DuplicateOutput `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
}

// NewBuildOutput converts a build report. snap may be nil when the build
// failed.
func NewBuildOutput(rep *builder.Report, snap *dag.Snapshot) BuildOutput {
	out := BuildOutput{
		BuildID:     rep.BuildID,
		Root:        rep.Root,
		StartedAt:   rep.StartedAt,
		DurationMS:  rep.Duration.Milliseconds(),
		Fingerprint: rep.Fingerprint,
		Summary: BuildSummary{
			Units:      rep.Units,
			Nodes:      len(rep.Nodes),
			Externals:  len(rep.Externals),
			Failures:   len(rep.Failures),
			Duplicates: len(rep.Duplicates),
		},
		Nodes:     append([]string{}, rep.Nodes...),
		Roots:     []string{},
		Leaves:    []string{},
		Externals: []ExternalOutput{},
		Failures:  []FailureOutput{},
	}
	if snap != nil {
		out.Summary.Edges = snap.EdgeCount()
		out.Roots = append(out.Roots, snap.Roots()...)
		out.Leaves = append(out.Leaves, snap.Leaves()...)
	}
	for _, ext := range rep.Externals {
		out.Externals = append(out.Externals, ExternalOutput{Table: ext.Table, ReferencedBy: ext.ReferencedBy})
	}
	for _, f := range rep.Failures {
		out.Failures = append(out.Failures, FailureOutput{Path: f.Path, Type: f.Type, Message: f.Err.Error()})
	}
	for _, d := range rep.Duplicates {
		out.Duplicates = append(out.Duplicates, DuplicateOutput{Table: d.Table, Paths: d.Paths})
	}
	return out
}

// RenderBuild writes a build report. DOT output draws the whole graph and
// needs a snapshot.
func RenderBuild(r *Renderer, rep *builder.Report, snap *dag.Snapshot) error {
	switch r.EffectiveMode() {
	case ModeJSON:
		return r.JSON(NewBuildOutput(rep, snap))
	case ModeYAML:
		return r.YAML(NewBuildOutput(rep, snap))
	case ModeDOT:
		if snap == nil {
			return &UnsupportedModeError{Mode: ModeDOT, Report: "a failed build"}
		}
		return RenderGraphDOT(r.Writer(), snap)
	case ModeMarkdown:
		return buildMarkdown(r, NewBuildOutput(rep, snap))
	default:
		return buildText(r, NewBuildOutput(rep, snap))
	}
}

func buildText(r *Renderer, out BuildOutput) error {
	r.Header(1, "Pipeline graph")
	r.Muted(fmt.Sprintf("%s (build %s)", out.Root, out.BuildID))
	r.Println("")

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Units", "Nodes", "Edges", "External", "Failures", "Duplicates"})
	s := out.Summary
	t.AppendRow(table.Row{s.Units, s.Nodes, s.Edges, s.Externals, s.Failures, s.Duplicates})
	t.Render()

	if len(out.Roots) > 0 {
		r.Println("")
		r.Printf("  %s %s\n", r.Styles().Muted.Render("roots: "), joinOrDash(out.Roots))
		r.Printf("  %s %s\n", r.Styles().Muted.Render("leaves:"), joinOrDash(out.Leaves))
	}
	if len(out.Externals) > 0 {
		r.Println("")
		r.Header(2, "External tables")
		for _, ext := range out.Externals {
			r.Printf("  %s %s\n", ext.Table, r.Styles().Muted.Render("<- "+joinOrDash(ext.ReferencedBy)))
		}
	}
	if len(out.Failures) > 0 {
		r.Println("")
		r.Header(2, "Failures")
		for _, f := range out.Failures {
			r.Println(r.Styles().Error.Render(fmt.Sprintf("  %s [%s] %s", f.Path, f.Type, f.Message)))
		}
	}
	if len(out.Duplicates) > 0 {
		r.Println("")
		r.Header(2, "Duplicate tables")
		for _, d := range out.Duplicates {
			r.Println(r.Styles().Error.Render(fmt.Sprintf("  %s: %s", d.Table, joinOrDash(d.Paths))))
		}
	}

	r.Println("")
	if s.Failures == 0 && s.Duplicates == 0 {
		r.Success(fmt.Sprintf("built %d tables in %dms", s.Nodes, out.DurationMS))
	} else {
		r.Warning(fmt.Sprintf("built %d tables with %d failures, %d duplicates", s.Nodes, s.Failures, s.Duplicates))
	}
	return nil
}

func buildMarkdown(r *Renderer, out BuildOutput) error {
	r.Println(FormatHeader(1, "Pipeline graph"))
	r.Println("")
	r.Println(FormatKeyValue("Root", out.Root))
	r.Println(FormatKeyValue("Build", out.BuildID))
	r.Println(FormatKeyValue("Units", fmt.Sprintf("%d", out.Summary.Units)))
	r.Println(FormatKeyValue("Nodes", fmt.Sprintf("%d", out.Summary.Nodes)))
	r.Println(FormatKeyValue("Edges", fmt.Sprintf("%d", out.Summary.Edges)))
	r.Println(FormatKeyValue("Fingerprint", out.Fingerprint))
	if len(out.Roots) > 0 {
		r.Println(FormatKeyValue("Roots", joinOrDash(out.Roots)))
		r.Println(FormatKeyValue("Leaves", joinOrDash(out.Leaves)))
	}

	if len(out.Externals) > 0 {
		r.Println("")
		r.Println(FormatHeader(2, "External tables"))
		t := table.NewWriter()
		t.AppendHeader(table.Row{"Table", "Referenced by"})
		for _, ext := range out.Externals {
			t.AppendRow(table.Row{ext.Table, joinOrDash(ext.ReferencedBy)})
		}
		r.Println(t.RenderMarkdown())
	}
	if len(out.Failures) > 0 {
		r.Println("")
		r.Println(FormatHeader(2, "Failures"))
		t := table.NewWriter()
		t.AppendHeader(table.Row{"Path", "Type", "Message"})
		for _, f := range out.Failures {
			t.AppendRow(table.Row{f.Path, f.Type, f.Message})
		}
		r.Println(t.RenderMarkdown())
	}
	if len(out.Duplicates) > 0 {
		r.Println("")
		r.Println(FormatHeader(2, "Duplicate tables"))
		for _, d := range out.Duplicates {
			r.Printf("- %s: %s\n", d.Table, joinOrDash(d.Paths))
		}
	}
	return nil
}
