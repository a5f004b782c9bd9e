package report

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/leapstack-labs/shiftgraph/internal/dag"
	"github.com/leapstack-labs/shiftgraph/internal/pipeline"
	"github.com/leapstack-labs/shiftgraph/internal/traverse"
)

type dotNode struct {
	name     string
	label    string
	external bool
	root     bool
}

// writeDOT writes a Graphviz digraph. Nodes are written in the given order
// and edges sorted; cycle edges are drawn red.
func writeDOT(w io.Writer, title string, nodes []dotNode, edges, cycles []dag.Edge) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "digraph %q {\n", title)
	fmt.Fprintln(bw, "  rankdir=LR;")
	fmt.Fprintln(bw, "  node [shape=box, fontname=\"Helvetica\"];")

	for _, n := range nodes {
		attrs := fmt.Sprintf("label=%q", n.label)
		switch {
		case n.root:
			attrs += ", style=bold"
		case n.external:
			attrs += ", style=dashed"
		}
		fmt.Fprintf(bw, "  %q [%s];\n", n.name, attrs)
	}

	all := sortedEdges(edges)
	for _, e := range sortedEdges(cycles) {
		if !slices.Contains(all, e) {
			all = append(all, e)
		}
	}
	for _, e := range all {
		if slices.Contains(cycles, e) {
			fmt.Fprintf(bw, "  %q -> %q [color=red];\n", e.From, e.To)
			continue
		}
		fmt.Fprintf(bw, "  %q -> %q;\n", e.From, e.To)
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

func writeTraversalDOT(w io.Writer, res *traverse.Result) error {
	var nodes []dotNode
	for _, v := range SortedVisits(res) {
		nodes = append(nodes, dotNode{
			name:     v.Name,
			label:    fmt.Sprintf("%s\ndepth %d", v.Name, v.Depth),
			external: v.External,
			root:     v.Depth == 0,
		})
	}
	return writeDOT(w, string(res.Direction)+" of "+res.Root, nodes, res.Edges, res.Cycles)
}

// RenderGraphDOT writes a whole snapshot as a Graphviz digraph, nodes
// sorted by name.
func RenderGraphDOT(w io.Writer, snap *dag.Snapshot) error {
	all := snap.Nodes()
	slices.SortFunc(all, func(a, b *pipeline.Node) int {
		return cmp.Compare(a.Name, b.Name)
	})

	nodes := make([]dotNode, 0, len(all))
	for _, n := range all {
		label := n.Name
		if n.Product != "" {
			label = fmt.Sprintf("%s\n%s %s", n.Name, n.Product, n.Kind)
		}
		nodes = append(nodes, dotNode{name: n.Name, label: label, external: n.External})
	}

	var selfLoops []dag.Edge
	for _, name := range snap.SelfLoops() {
		selfLoops = append(selfLoops, dag.Edge{From: name, To: name})
	}
	return writeDOT(w, "pipelines", nodes, snap.Edges(), selfLoops)
}
