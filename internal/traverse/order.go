package traverse

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"

	"github.com/leapstack-labs/shiftgraph/internal/dag"
)

// Order is a deployment order: every table appears in a later level than
// all of its producers. Tables in one cycle share a level.
type Order struct {
	Root   string
	Levels [][]string
	// Cycles lists groups of tables that feed each other, self-loops
	// excluded. Each group is sorted.
	Cycles [][]string
}

// Len returns the number of tables in the order.
func (o *Order) Len() int {
	n := 0
	for _, level := range o.Levels {
		n += len(level)
	}
	return n
}

// MigrationOrder levels table and all of its ancestors for deployment.
// An empty table orders the whole graph.
func MigrationOrder(snap *dag.Snapshot, table string) (*Order, error) {
	names := snap.Names()
	if table != "" {
		res, err := Ancestors(snap, table, Unbounded)
		if err != nil {
			return nil, err
		}
		names = res.Names()
	}

	sub := snap.Subgraph(names)
	levels, err := sub.ExecutionLevels()
	if err == nil {
		return &Order{Root: table, Levels: levels}, nil
	}
	if !errors.Is(err, dag.ErrCycle) {
		return nil, err
	}
	return condensedOrder(sub, table)
}

// condensedOrder collapses strongly connected components and levels the
// resulting acyclic graph.
func condensedOrder(sub *dag.Snapshot, table string) (*Order, error) {
	g := graph.New(graph.StringHash, graph.Directed())
	for _, name := range sub.Names() {
		if err := g.AddVertex(name); err != nil {
			return nil, fmt.Errorf("add vertex %s: %w", name, err)
		}
	}
	for _, e := range sub.Edges() {
		if e.From == e.To {
			continue
		}
		if err := g.AddEdge(e.From, e.To); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return nil, fmt.Errorf("add edge %s -> %s: %w", e.From, e.To, err)
		}
	}

	components, err := graph.StronglyConnectedComponents(g)
	if err != nil {
		return nil, fmt.Errorf("strongly connected components: %w", err)
	}

	component := make(map[string]int, sub.NodeCount())
	for i, members := range components {
		sort.Strings(members)
		for _, m := range members {
			component[m] = i
		}
	}

	assigned := make(map[int]int, len(components))
	var levelOf func(c int) int
	levelOf = func(c int) int {
		if level, ok := assigned[c]; ok {
			return level
		}
		maxParent := -1
		for _, member := range components[c] {
			for _, p := range sub.Producers(member) {
				pc := component[p]
				if pc == c {
					continue
				}
				if l := levelOf(pc); l > maxParent {
					maxParent = l
				}
			}
		}
		assigned[c] = maxParent + 1
		return maxParent + 1
	}

	order := &Order{Root: table}
	maxLevel := -1
	for c := range components {
		if l := levelOf(c); l > maxLevel {
			maxLevel = l
		}
		if len(components[c]) > 1 {
			order.Cycles = append(order.Cycles, components[c])
		}
	}

	order.Levels = make([][]string, maxLevel+1)
	for c, members := range components {
		order.Levels[assigned[c]] = append(order.Levels[assigned[c]], members...)
	}
	for i := range order.Levels {
		sort.Strings(order.Levels[i])
	}
	sort.Slice(order.Cycles, func(i, j int) bool {
		return order.Cycles[i][0] < order.Cycles[j][0]
	})
	return order, nil
}
