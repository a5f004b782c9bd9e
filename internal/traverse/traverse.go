// Package traverse answers lineage queries against a frozen dependency
// graph: what feeds a table (ancestors) and what consumes it (descendants).
//
// Traversal is breadth-first. Each node is reported once, at its shortest
// distance from the root; among equally short paths the first one
// discovered wins, and neighbours are discovered in source order (ancestors)
// or corpus walk order (descendants), so results are stable across runs.
// Cycles never stop a traversal: a node is expanded once and edges that close
// a cycle are reported in Result.Cycles.
package traverse

import (
	"fmt"
	"slices"
	"sort"

	"github.com/leapstack-labs/shiftgraph/internal/dag"
	"github.com/leapstack-labs/shiftgraph/pkg/naming"
)

// Direction of a traversal.
type Direction string

// Traversal directions.
const (
	Upstream   Direction = "ancestors"
	Downstream Direction = "descendants"
)

// Unbounded is the max depth that disables the depth limit.
const Unbounded = -1

// UnknownTableError is returned when the root table is not in the graph.
type UnknownTableError struct {
	Table string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("unknown table %q", e.Table)
}

// Visit is one node reached by a traversal.
type Visit struct {
	Name  string
	Depth int
	// Path is the shortest path from the root, root first.
	Path []string
	// Via lists every traversed neighbour through which the node was
	// reached, in discovery order.
	Via      []string
	External bool
	Kind     naming.Kind
	Product  string
}

// Result is the outcome of a traversal.
type Result struct {
	Root      string
	Direction Direction
	MaxDepth  int
	// Nodes holds the root and every reached node. Ancestors are ordered
	// deepest first, descendants shallowest first; ties keep discovery order.
	Nodes []Visit
	// Edges are the traversed edges, producer to consumer.
	Edges []dag.Edge
	// Cycles are edges that close a cycle, self-loops included.
	Cycles []dag.Edge
	// Truncated is true when the depth limit stopped expansion.
	Truncated bool
}

// Ancestors walks from table towards its sources.
//
// maxDepth 0 and 1 both return direct dependencies only; a positive value
// bounds the depth; a negative value means unbounded.
func Ancestors(snap *dag.Snapshot, table string, maxDepth int) (*Result, error) {
	return walk(snap, table, maxDepth, Upstream)
}

// Descendants walks from table towards its consumers. maxDepth works as
// for Ancestors.
func Descendants(snap *dag.Snapshot, table string, maxDepth int) (*Result, error) {
	return walk(snap, table, maxDepth, Downstream)
}

func walk(snap *dag.Snapshot, root string, maxDepth int, dir Direction) (*Result, error) {
	if !snap.Has(root) {
		return nil, &UnknownTableError{Table: root}
	}

	limit := maxDepth
	if limit == 0 {
		limit = 1
	}
	bounded := limit > 0

	neighbours := snap.Producers
	orient := func(cur, next string) dag.Edge { return dag.Edge{From: next, To: cur} }
	if dir == Downstream {
		neighbours = snap.Consumers
		orient = func(cur, next string) dag.Edge { return dag.Edge{From: cur, To: next} }
	}

	res := &Result{Root: root, Direction: dir, MaxDepth: maxDepth}
	visits := map[string]*Visit{root: newVisit(snap, root, 0, []string{root})}
	order := []string{root}
	seenEdge := make(map[dag.Edge]bool)

	addCycle := func(e dag.Edge) {
		if !slices.Contains(res.Cycles, e) {
			res.Cycles = append(res.Cycles, e)
		}
	}

	for queue := []string{root}; len(queue) > 0; queue = queue[1:] {
		cur := queue[0]
		cv := visits[cur]

		for _, next := range neighbours(cur) {
			edge := orient(cur, next)
			if next == cur {
				addCycle(edge)
				continue
			}

			if nv, seen := visits[next]; seen {
				if !seenEdge[edge] {
					seenEdge[edge] = true
					res.Edges = append(res.Edges, edge)
				}
				if !slices.Contains(nv.Via, cur) {
					nv.Via = append(nv.Via, cur)
				}
				if reaches(visits, cur, next) {
					addCycle(edge)
				}
				continue
			}

			if bounded && cv.Depth >= limit {
				res.Truncated = true
				continue
			}

			path := append(slices.Clone(cv.Path), next)
			nv := newVisit(snap, next, cv.Depth+1, path)
			nv.Via = []string{cur}
			visits[next] = nv
			order = append(order, next)
			seenEdge[edge] = true
			res.Edges = append(res.Edges, edge)
			queue = append(queue, next)
		}
	}

	res.Nodes = make([]Visit, 0, len(order))
	for _, name := range order {
		res.Nodes = append(res.Nodes, *visits[name])
	}
	// BFS discovery order is already depth ascending.
	if dir == Upstream {
		sort.SliceStable(res.Nodes, func(i, j int) bool {
			return res.Nodes[i].Depth > res.Nodes[j].Depth
		})
	}
	return res, nil
}

func newVisit(snap *dag.Snapshot, name string, depth int, path []string) *Visit {
	v := &Visit{Name: name, Depth: depth, Path: path}
	if n, ok := snap.Node(name); ok {
		v.External = n.External
		v.Kind = n.Kind
		v.Product = n.Product
	}
	return v
}

// reaches reports whether target lies on some traversed path to from,
// following Via links back towards the root.
func reaches(visits map[string]*Visit, from, target string) bool {
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == target {
			return true
		}
		for _, prev := range visits[cur].Via {
			if !seen[prev] {
				seen[prev] = true
				stack = append(stack, prev)
			}
		}
	}
	return false
}

// Names returns the names of all visited nodes, in result order.
func (r *Result) Names() []string {
	out := make([]string, 0, len(r.Nodes))
	for _, v := range r.Nodes {
		out = append(out, v.Name)
	}
	return out
}

// Visit returns the visit for name.
func (r *Result) Visit(name string) (Visit, bool) {
	for _, v := range r.Nodes {
		if v.Name == name {
			return v, true
		}
	}
	return Visit{}, false
}

// Dependencies returns the direct neighbours of the root: the depth-1
// nodes in discovery order, followed by the root itself when it reads from
// or feeds itself.
func (r *Result) Dependencies() []string {
	var out []string
	for _, v := range r.Nodes {
		if v.Depth == 1 {
			out = append(out, v.Name)
		}
	}
	// Restore discovery order for ancestors, which are sorted deepest first.
	if r.Direction == Upstream {
		var ordered []string
		for _, e := range r.Edges {
			if e.To == r.Root && slices.Contains(out, e.From) && !slices.Contains(ordered, e.From) {
				ordered = append(ordered, e.From)
			}
		}
		out = ordered
	}
	if slices.Contains(r.Cycles, dag.Edge{From: r.Root, To: r.Root}) {
		out = append(out, r.Root)
	}
	return out
}

// HasCycles reports whether any cycle was seen.
func (r *Result) HasCycles() bool {
	return len(r.Cycles) > 0
}
