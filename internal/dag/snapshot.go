package dag

import (
	"fmt"
	"slices"
	"sort"

	"github.com/leapstack-labs/shiftgraph/internal/pipeline"
)

// Snapshot is a frozen dependency graph. It is never modified after
// creation, so concurrent readers need no locking. Nodes returned by a
// snapshot must be treated as read-only.
type Snapshot struct {
	nodes     map[string]*pipeline.Node
	order     []string
	consumers map[string][]string
	producers map[string][]string
	edges     []Edge
}

func newSnapshot(nodes map[string]*pipeline.Node, order []string) *Snapshot {
	s := &Snapshot{
		nodes:     nodes,
		order:     order,
		consumers: buildConsumers(nodes, order),
		producers: make(map[string][]string, len(nodes)),
	}
	for _, name := range order {
		for _, src := range nodes[name].Sources {
			if _, ok := nodes[src]; !ok {
				continue
			}
			s.producers[name] = append(s.producers[name], src)
			s.edges = append(s.edges, Edge{From: src, To: name})
		}
	}
	return s
}

// Node returns a node by name.
func (s *Snapshot) Node(name string) (*pipeline.Node, bool) {
	n, ok := s.nodes[name]
	return n, ok
}

// Has reports whether the graph holds a node for name.
func (s *Snapshot) Has(name string) bool {
	_, ok := s.nodes[name]
	return ok
}

// NodeCount returns the number of nodes in the graph.
func (s *Snapshot) NodeCount() int {
	return len(s.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (s *Snapshot) EdgeCount() int {
	return len(s.edges)
}

// Names returns node names in insertion order.
func (s *Snapshot) Names() []string {
	return slices.Clone(s.order)
}

// Nodes returns all nodes in insertion order.
func (s *Snapshot) Nodes() []*pipeline.Node {
	out := make([]*pipeline.Node, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.nodes[name])
	}
	return out
}

// Producers returns the tables name reads from, in source order.
func (s *Snapshot) Producers(name string) []string {
	return slices.Clone(s.producers[name])
}

// Consumers returns the nodes reading from name, in insertion order.
func (s *Snapshot) Consumers(name string) []string {
	return slices.Clone(s.consumers[name])
}

// Edges returns every edge, grouped by consumer in insertion order.
func (s *Snapshot) Edges() []Edge {
	return slices.Clone(s.edges)
}

// SelfLoops returns the nodes that read from themselves, sorted.
func (s *Snapshot) SelfLoops() []string {
	var out []string
	for _, name := range s.order {
		if s.nodes[name].SelfReferencing() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// HasCycle returns true if the graph contains a cycle through two or more
// nodes, along with the cycle path. Self-loops are not reported.
func (s *Snapshot) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string) // Track the path for error reporting

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range s.consumers[id] {
			if childID == id {
				continue
			}
			if !visited[childID] {
				path[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				// Found cycle, reconstruct path
				cyclePath = []string{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	for _, id := range s.order {
		if !visited[id] {
			if dfs(id) {
				return true, cyclePath
			}
		}
	}

	return false, nil
}

// ExecutionLevels groups nodes so that every node comes after all of its
// producers. Level 0 holds nodes with no producers. Self-loops are ignored;
// any other cycle fails with ErrCycle.
func (s *Snapshot) ExecutionLevels() ([][]string, error) {
	if hasCycle, cyclePath := s.HasCycle(); hasCycle {
		return nil, fmt.Errorf("%w: %v", ErrCycle, cyclePath)
	}

	assigned := make(map[string]int)

	var getLevel func(id string) int
	getLevel = func(id string) int {
		if level, ok := assigned[id]; ok {
			return level
		}

		maxParentLevel := -1
		for _, parentID := range s.producers[id] {
			if parentID == id {
				continue
			}
			if parentLevel := getLevel(parentID); parentLevel > maxParentLevel {
				maxParentLevel = parentLevel
			}
		}

		level := maxParentLevel + 1
		assigned[id] = level
		return level
	}

	maxLevel := -1
	for _, id := range s.order {
		if level := getLevel(id); level > maxLevel {
			maxLevel = level
		}
	}

	levels := make([][]string, maxLevel+1)
	for _, id := range s.order {
		levels[assigned[id]] = append(levels[assigned[id]], id)
	}
	// Sort each level for deterministic output
	for i := range levels {
		sort.Strings(levels[i])
	}
	return levels, nil
}

// Affected returns the given nodes and everything downstream of them, sorted.
// Unknown names are ignored.
func (s *Snapshot) Affected(names []string) []string {
	affected := make(map[string]bool)

	var markAffected func(id string)
	markAffected = func(id string) {
		if affected[id] {
			return
		}
		affected[id] = true
		for _, childID := range s.consumers[id] {
			markAffected(childID)
		}
	}

	for _, id := range names {
		if s.Has(id) {
			markAffected(id)
		}
	}

	result := make([]string, 0, len(affected))
	for id := range affected {
		result = append(result, id)
	}
	sort.Strings(result)
	return result
}

// Roots returns nodes that read from no other node, sorted.
func (s *Snapshot) Roots() []string {
	var roots []string
	for _, id := range s.order {
		if !slices.ContainsFunc(s.producers[id], func(p string) bool { return p != id }) {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	return roots
}

// Leaves returns nodes that no other node reads from, sorted.
func (s *Snapshot) Leaves() []string {
	var leaves []string
	for _, id := range s.order {
		if !slices.ContainsFunc(s.consumers[id], func(c string) bool { return c != id }) {
			leaves = append(leaves, id)
		}
	}
	sort.Strings(leaves)
	return leaves
}

// Subgraph returns a snapshot holding only the named nodes. Sources outside
// the set are dropped from the copies.
func (s *Snapshot) Subgraph(names []string) *Snapshot {
	keep := make(map[string]bool, len(names))
	for _, name := range names {
		keep[name] = true
	}

	nodes := make(map[string]*pipeline.Node, len(names))
	var order []string
	for _, id := range s.order {
		if !keep[id] {
			continue
		}
		n := s.nodes[id].Clone()
		n.Sources = slices.DeleteFunc(n.Sources, func(src string) bool { return !keep[src] })
		nodes[id] = n
		order = append(order, id)
	}
	return newSnapshot(nodes, order)
}
