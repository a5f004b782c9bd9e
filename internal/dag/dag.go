// Package dag provides the table dependency graph of a pipeline estate.
// Edges run from a producer table to every unit that reads it. Cycles are
// allowed: upsert tables that read their own previous state are common.
package dag

import (
	"errors"
	"fmt"
	"slices"

	"github.com/leapstack-labs/shiftgraph/internal/pipeline"
)

var (
	// ErrFrozen is returned when mutating a graph after Freeze.
	ErrFrozen = errors.New("graph is frozen")
	// ErrCycle is returned by operations that need an acyclic graph.
	ErrCycle = errors.New("cycle detected")
)

// Edge is a producer -> consumer arc.
type Edge struct {
	From string
	To   string
}

// Graph is a mutable set of pipeline nodes keyed by table name. It is
// filled by a single writer and then frozen into a Snapshot.
type Graph struct {
	nodes  map[string]*pipeline.Node
	order  []string // insertion order
	frozen bool
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*pipeline.Node),
	}
}

// Insert adds a node. The name must not be present yet.
func (g *Graph) Insert(n *pipeline.Node) error {
	if g.frozen {
		return ErrFrozen
	}
	if _, exists := g.nodes[n.Name]; exists {
		return fmt.Errorf("node %q already exists", n.Name)
	}
	g.nodes[n.Name] = n
	g.order = append(g.order, n.Name)
	return nil
}

// Node returns a node by name.
func (g *Graph) Node(name string) (*pipeline.Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// buildConsumers inverts node sources. Sources that name no node are skipped.
func buildConsumers(nodes map[string]*pipeline.Node, order []string) map[string][]string {
	consumers := make(map[string][]string, len(nodes))
	for _, name := range order {
		for _, src := range nodes[name].Sources {
			if _, ok := nodes[src]; !ok {
				continue
			}
			if !slices.Contains(consumers[src], name) {
				consumers[src] = append(consumers[src], name)
			}
		}
	}
	return consumers
}

// Freeze ends mutation and returns an immutable snapshot of the graph.
// Further Insert calls fail with ErrFrozen.
func (g *Graph) Freeze() *Snapshot {
	g.frozen = true
	nodes := make(map[string]*pipeline.Node, len(g.nodes))
	for name, n := range g.nodes {
		nodes[name] = n.Clone()
	}
	return newSnapshot(nodes, slices.Clone(g.order))
}
