package report

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/shiftgraph/internal/dag"
	"github.com/leapstack-labs/shiftgraph/internal/traverse"
)

// TraversalNode is one node of a traversal in JSON and YAML output.
type TraversalNode struct {
	Name     string   `json:"name" yaml:"name"`
	Depth    int      `json:"depth" yaml:"depth"`
	Kind     string   `json:"kind,omitempty" yaml:"kind,omitempty"`
	Product  string   `json:"product,omitempty" yaml:"product,omitempty"`
	External bool     `json:"external,omitempty" yaml:"external,omitempty"`
	Path     []string `json:"path" yaml:"path"`
	Via      []string `json:"via,omitempty" yaml:"via,omitempty"`
}

// EdgeOutput is a producer to consumer edge.
type EdgeOutput struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// TraversalOutput is the JSON and YAML form of a traversal result.
type TraversalOutput struct {
	Root      string          `json:"root" yaml:"root"`
	Direction string          `json:"direction" yaml:"direction"`
	MaxDepth  int             `json:"max_depth" yaml:"max_depth"`
	Truncated bool            `json:"truncated" yaml:"truncated"`
	Nodes     []TraversalNode `json:"nodes" yaml:"nodes"`
	Edges     []EdgeOutput    `json:"edges" yaml:"edges"`
	Cycles    []EdgeOutput    `json:"cycles,omitempty" yaml:"cycles,omitempty"`
}

// SortedVisits returns the visits ordered by depth, then name.
func SortedVisits(res *traverse.Result) []traverse.Visit {
	visits := slices.Clone(res.Nodes)
	slices.SortStableFunc(visits, func(a, b traverse.Visit) int {
		if c := cmp.Compare(a.Depth, b.Depth); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return visits
}

func sortedEdges(edges []dag.Edge) []dag.Edge {
	out := slices.Clone(edges)
	slices.SortFunc(out, func(a, b dag.Edge) int {
		if c := cmp.Compare(a.From, b.From); c != 0 {
			return c
		}
		return cmp.Compare(a.To, b.To)
	})
	return out
}

func edgeOutputs(edges []dag.Edge) []EdgeOutput {
	out := make([]EdgeOutput, 0, len(edges))
	for _, e := range sortedEdges(edges) {
		out = append(out, EdgeOutput{From: e.From, To: e.To})
	}
	return out
}

// NewTraversalOutput converts a result into its serialisable form.
func NewTraversalOutput(res *traverse.Result) TraversalOutput {
	out := TraversalOutput{
		Root:      res.Root,
		Direction: string(res.Direction),
		MaxDepth:  res.MaxDepth,
		Truncated: res.Truncated,
		Edges:     edgeOutputs(res.Edges),
	}
	if res.HasCycles() {
		out.Cycles = edgeOutputs(res.Cycles)
	}
	for _, v := range SortedVisits(res) {
		out.Nodes = append(out.Nodes, TraversalNode{
			Name:     v.Name,
			Depth:    v.Depth,
			Kind:     string(v.Kind),
			Product:  v.Product,
			External: v.External,
			Path:     v.Path,
			Via:      v.Via,
		})
	}
	return out
}

func traversalTitle(res *traverse.Result) string {
	if res.Direction == traverse.Downstream {
		return "Descendants of " + res.Root
	}
	return "Ancestors of " + res.Root
}

func depthLabel(maxDepth int) string {
	switch {
	case maxDepth < 0:
		return "unbounded"
	case maxDepth == 0:
		return "direct"
	}
	return fmt.Sprintf("%d", maxDepth)
}

func visitTable(res *traverse.Result) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Depth", "Table", "Kind", "Product", "Via", "Path"})
	for _, v := range SortedVisits(res) {
		name := v.Name
		if v.External {
			name += " (external)"
		}
		via := "-"
		if v.Depth > 0 {
			via = strings.Join(v.Via, ", ")
		}
		t.AppendRow(table.Row{v.Depth, name, string(v.Kind), v.Product, via, strings.Join(v.Path, " > ")})
	}
	return t
}

// RenderTraversal writes a traversal result.
func RenderTraversal(r *Renderer, res *traverse.Result) error {
	switch r.EffectiveMode() {
	case ModeJSON:
		return r.JSON(NewTraversalOutput(res))
	case ModeYAML:
		return r.YAML(NewTraversalOutput(res))
	case ModeDOT:
		return writeTraversalDOT(r.Writer(), res)
	case ModeMarkdown:
		return traversalMarkdown(r, res)
	default:
		return traversalText(r, res)
	}
}

func traversalText(r *Renderer, res *traverse.Result) error {
	styles := r.Styles()
	r.Header(1, traversalTitle(res))
	r.Muted(fmt.Sprintf("depth: %s", depthLabel(res.MaxDepth)))
	r.Println("")

	t := visitTable(res)
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.Render()

	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d tables, %d edges", len(res.Nodes), len(res.Edges))))
	for _, e := range sortedEdges(res.Cycles) {
		r.Warning(fmt.Sprintf("cycle: %s -> %s", e.From, e.To))
	}
	if res.Truncated {
		r.Warning("depth limit reached; more tables lie beyond")
	}
	return nil
}

func traversalMarkdown(r *Renderer, res *traverse.Result) error {
	r.Println(FormatHeader(1, traversalTitle(res)))
	r.Println("")
	r.Println(FormatKeyValue("Depth", depthLabel(res.MaxDepth)))
	r.Println(FormatKeyValue("Tables", fmt.Sprintf("%d", len(res.Nodes))))
	r.Println(FormatKeyValue("Edges", fmt.Sprintf("%d", len(res.Edges))))
	if res.Truncated {
		r.Println(FormatKeyValue("Truncated", "yes"))
	}
	r.Println("")
	r.Println(visitTable(res).RenderMarkdown())

	if res.HasCycles() {
		r.Println("")
		r.Println(FormatHeader(2, "Cycles"))
		for _, e := range sortedEdges(res.Cycles) {
			r.Printf("- %s -> %s\n", e.From, e.To)
		}
	}
	return nil
}
