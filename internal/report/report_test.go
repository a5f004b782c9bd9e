package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/shiftgraph/internal/builder"
	"github.com/leapstack-labs/shiftgraph/internal/dag"
	"github.com/leapstack-labs/shiftgraph/internal/pipeline"
	"github.com/leapstack-labs/shiftgraph/internal/traverse"
	"github.com/leapstack-labs/shiftgraph/internal/validate"
	"github.com/leapstack-labs/shiftgraph/pkg/flinksql"
)

func node(name, product string, sources ...string) *pipeline.Node {
	return &pipeline.Node{Name: name, Sink: name, Product: product, Sources: sources}
}

func snapshot(t *testing.T, nodes ...*pipeline.Node) *dag.Snapshot {
	t.Helper()
	g := dag.NewGraph()
	for _, n := range nodes {
		require.NoError(t, g.Insert(n))
	}
	return g.Freeze()
}

func diamond(t *testing.T) *dag.Snapshot {
	return snapshot(t,
		node("raw", "p1"),
		node("b", "p1", "raw"),
		node("a", "p1", "raw"),
		node("c", "p2", "b", "a"),
		node("d", "p2", "c", "d"),
	)
}

func render(t *testing.T, mode Mode, fn func(r *Renderer) error) string {
	t.Helper()
	var out, errOut bytes.Buffer
	require.NoError(t, fn(NewRenderer(&out, &errOut, mode)))
	return out.String()
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"", ModeAuto},
		{"md", ModeMarkdown},
		{"JSON", ModeJSON},
		{"yml", ModeYAML},
		{"graphviz", ModeDOT},
		{"table", ModeText},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseMode("xml")
	assert.Error(t, err)
}

func TestEffectiveMode_AutoOnBuffer(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
	assert.Equal(t, ModeAuto, r.Mode())
}

func TestSortedVisits(t *testing.T) {
	res, err := traverse.Ancestors(diamond(t), "d", traverse.Unbounded)
	require.NoError(t, err)

	var names []string
	for _, v := range SortedVisits(res) {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{"d", "c", "a", "b", "raw"}, names, "depth ascending, then name")
}

func TestRenderTraversal_JSON(t *testing.T) {
	res, err := traverse.Descendants(diamond(t), "raw", traverse.Unbounded)
	require.NoError(t, err)

	out := render(t, ModeJSON, func(r *Renderer) error { return RenderTraversal(r, res) })

	var decoded TraversalOutput
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "raw", decoded.Root)
	assert.Equal(t, "descendants", decoded.Direction)
	require.Len(t, decoded.Nodes, 5)
	assert.Equal(t, "d", decoded.Nodes[4].Name)
	assert.Equal(t, 3, decoded.Nodes[4].Depth)
	assert.Equal(t, []EdgeOutput{{From: "d", To: "d"}}, decoded.Cycles)
	assert.Equal(t, EdgeOutput{From: "a", To: "c"}, decoded.Edges[0], "edges sorted")
}

func TestRenderTraversal_DOT(t *testing.T) {
	snap := snapshot(t, node("src_b", "p1"), node("d", "p1", "src_b"))
	res, err := traverse.Ancestors(snap, "d", traverse.Unbounded)
	require.NoError(t, err)

	out := render(t, ModeDOT, func(r *Renderer) error { return RenderTraversal(r, res) })
	want := `digraph "ancestors of d" {
  rankdir=LR;
  node [shape=box, fontname="Helvetica"];
  "d" [label="d\ndepth 0", style=bold];
  "src_b" [label="src_b\ndepth 1"];
  "src_b" -> "d";
}
`
	assert.Equal(t, want, out)
}

func TestRenderTraversal_Deterministic(t *testing.T) {
	for _, mode := range []Mode{ModeText, ModeMarkdown, ModeJSON, ModeYAML, ModeDOT} {
		first := ""
		for range 3 {
			res, err := traverse.Ancestors(diamond(t), "d", traverse.Unbounded)
			require.NoError(t, err)
			out := render(t, mode, func(r *Renderer) error { return RenderTraversal(r, res) })
			if first == "" {
				first = out
				continue
			}
			assert.Equal(t, first, out, string(mode))
		}
	}
}

func TestRenderTraversal_TextAndMarkdown(t *testing.T) {
	res, err := traverse.Ancestors(diamond(t), "d", 0)
	require.NoError(t, err)

	text := render(t, ModeText, func(r *Renderer) error { return RenderTraversal(r, res) })
	assert.Contains(t, text, "Ancestors of d")
	assert.Contains(t, text, "depth: direct")
	assert.Contains(t, text, "cycle: d -> d")
	assert.Contains(t, text, "depth limit reached")

	md := render(t, ModeMarkdown, func(r *Renderer) error { return RenderTraversal(r, res) })
	assert.True(t, strings.HasPrefix(md, "# Ancestors of d\n"))
	assert.Contains(t, md, "- **Truncated**: yes")
	assert.Contains(t, md, "## Cycles")
	assert.Contains(t, md, "| Depth | Table |")
}

func TestRenderGraphDOT(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderGraphDOT(&buf, diamond(t)))
	out := buf.String()

	assert.Contains(t, out, `"d" -> "d" [color=red];`)
	assert.Contains(t, out, `"raw" -> "a";`)
	// Nodes are sorted by name.
	assert.Less(t, strings.Index(out, `"a" [`), strings.Index(out, `"b" [`))
}

func buildReport() *builder.Report {
	return &builder.Report{
		BuildID:   "b-1",
		Root:      "/pipelines",
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Units:     3,
		Nodes:     []string{"d", "src_b"},
		Externals: []builder.UnresolvedReferenceWarning{
			{Table: "raw", ReferencedBy: []string{"src_b"}},
		},
		Failures: []builder.FileError{{
			Path: "facts/p1/x/sql-scripts/ddl.x.sql",
			Type: builder.FailureParse,
			Err:  &flinksql.ParseError{Pos: flinksql.Position{Line: 1, Column: 1}, Message: flinksql.ErrNoCreateTable},
		}},
		Fingerprint: "abc",
	}
}

func TestRenderBuild_YAML(t *testing.T) {
	out := render(t, ModeYAML, func(r *Renderer) error { return RenderBuild(r, buildReport(), nil) })

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "b-1", decoded["build_id"])
	assert.Equal(t, 1500, decoded["duration_ms"])
	summary, ok := decoded["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2, summary["nodes"])
	assert.Equal(t, 1, summary["failures"])
	assert.NotContains(t, out, "duplicates:\n", "empty duplicates are omitted")
}

func TestRenderBuild_JSON(t *testing.T) {
	out := render(t, ModeJSON, func(r *Renderer) error { return RenderBuild(r, buildReport(), nil) })

	var decoded BuildOutput
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded.Failures, 1)
	assert.Contains(t, decoded.Failures[0].Message, flinksql.ErrNoCreateTable)
	assert.Equal(t, []ExternalOutput{{Table: "raw", ReferencedBy: []string{"src_b"}}}, decoded.Externals)
}

func TestRenderBuild_RootsAndLeaves(t *testing.T) {
	snap := snapshot(t, node("src_b", "p1"), node("d", "p1", "src_b", "d"))

	out := render(t, ModeJSON, func(r *Renderer) error { return RenderBuild(r, buildReport(), snap) })
	var decoded BuildOutput
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, []string{"src_b"}, decoded.Roots)
	assert.Equal(t, []string{"d"}, decoded.Leaves, "self-loops do not make a table a producer")
	assert.Equal(t, 2, decoded.Summary.Edges)

	md := render(t, ModeMarkdown, func(r *Renderer) error { return RenderBuild(r, buildReport(), snap) })
	assert.Contains(t, md, "- **Roots**: src_b\n")
	assert.Contains(t, md, "- **Leaves**: d\n")

	failed := render(t, ModeJSON, func(r *Renderer) error { return RenderBuild(r, buildReport(), nil) })
	assert.Contains(t, failed, `"roots": []`)
}

func TestRenderBuild_Text(t *testing.T) {
	out := render(t, ModeText, func(r *Renderer) error { return RenderBuild(r, buildReport(), nil) })
	assert.Contains(t, out, "External tables")
	assert.Contains(t, out, "facts/p1/x/sql-scripts/ddl.x.sql [parse]")
	assert.Contains(t, out, "1 failures")
}

func TestRenderBuild_DOTNeedsGraph(t *testing.T) {
	var out bytes.Buffer
	err := RenderBuild(NewRenderer(&out, &out, ModeDOT), buildReport(), nil)
	var unsupported *UnsupportedModeError
	assert.True(t, errors.As(err, &unsupported))
}

func TestRenderImpact(t *testing.T) {
	im, err := traverse.ImpactOf(diamond(t), "raw")
	require.NoError(t, err)

	out := render(t, ModeJSON, func(r *Renderer) error { return RenderImpact(r, im) })
	var decoded ImpactOutput
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.True(t, decoded.CrossProduct)
	assert.Equal(t, 4, decoded.Affected)
	require.Len(t, decoded.Products, 2)
	assert.Equal(t, "p1", decoded.Products[0].Product)
	assert.Equal(t, "a", decoded.Products[0].Tables[0].Name)

	text := render(t, ModeText, func(r *Renderer) error { return RenderImpact(r, im) })
	assert.Contains(t, text, "change crosses data product p1")
}

func TestRenderOrder(t *testing.T) {
	order, err := traverse.MigrationOrder(diamond(t), "d")
	require.NoError(t, err)

	md := render(t, ModeMarkdown, func(r *Renderer) error { return RenderOrder(r, order) })
	assert.Contains(t, md, "# Migration order for d")
	assert.Contains(t, md, "## Level 0\n- raw\n")
	assert.Contains(t, md, "## Level 1\n- a\n- b\n")

	out := render(t, ModeJSON, func(r *Renderer) error { return RenderOrder(r, order) })
	var decoded OrderOutput
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 5, decoded.Tables)
	assert.Len(t, decoded.Levels, 4)
}

func TestRenderViolations(t *testing.T) {
	vs := []validate.Violation{{
		Table: "sales", File: "facts/p1/sales/sql-scripts/ddl.sales.sql",
		Rule: "SG02", Severity: validate.SeverityError, Message: "table name should start with p1_fct",
	}}

	md := render(t, ModeMarkdown, func(r *Renderer) error { return RenderViolations(r, vs) })
	assert.Contains(t, md, "SG02")
	assert.Contains(t, md, "p1_fct")

	empty := render(t, ModeMarkdown, func(r *Renderer) error { return RenderViolations(r, nil) })
	assert.Contains(t, empty, "No violations.")

	out := render(t, ModeJSON, func(r *Renderer) error { return RenderViolations(r, vs) })
	var decoded []ViolationOutput
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "error", decoded[0].Severity)
}
