package traverse

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/shiftgraph/internal/dag"
	"github.com/leapstack-labs/shiftgraph/internal/pipeline"
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

// diamond: raw feeds a and b, both feed c, c feeds d, d reads itself.
func diamond(t *testing.T) *dag.Snapshot {
	return snapshot(t,
		node("raw", "p1"),
		node("a", "p1", "raw"),
		node("b", "p1", "raw"),
		node("c", "p1", "a", "b"),
		node("d", "p1", "c", "d"),
	)
}

// loop: x and y read each other; s feeds x; z reads y.
func loop(t *testing.T) *dag.Snapshot {
	return snapshot(t,
		node("s", "p1"),
		node("x", "p1", "s", "y"),
		node("y", "p1", "x"),
		node("z", "p1", "y"),
	)
}

func depths(r *Result) map[string]int {
	out := make(map[string]int, len(r.Nodes))
	for _, v := range r.Nodes {
		out[v.Name] = v.Depth
	}
	return out
}

func TestAncestors_Unbounded(t *testing.T) {
	res, err := Ancestors(diamond(t), "d", Unbounded)
	require.NoError(t, err)

	assert.Equal(t, []string{"raw", "a", "b", "c", "d"}, res.Names())
	assert.Equal(t, map[string]int{"raw": 3, "a": 2, "b": 2, "c": 1, "d": 0}, depths(res))
	assert.False(t, res.Truncated)

	raw, ok := res.Visit("raw")
	require.True(t, ok)
	assert.Equal(t, []string{"d", "c", "a", "raw"}, raw.Path, "first discovered path wins ties")
	assert.Equal(t, []string{"a", "b"}, raw.Via)

	assert.Equal(t, []dag.Edge{
		{From: "c", To: "d"},
		{From: "a", To: "c"},
		{From: "b", To: "c"},
		{From: "raw", To: "a"},
		{From: "raw", To: "b"},
	}, res.Edges)
	assert.Equal(t, []dag.Edge{{From: "d", To: "d"}}, res.Cycles)
}

func TestAncestors_DepthLimit(t *testing.T) {
	snap := diamond(t)

	tests := []struct {
		name      string
		maxDepth  int
		want      []string
		truncated bool
	}{
		{"zero means direct", 0, []string{"c", "d"}, true},
		{"one", 1, []string{"c", "d"}, true},
		{"two", 2, []string{"a", "b", "c", "d"}, true},
		{"exact", 3, []string{"raw", "a", "b", "c", "d"}, false},
		{"unbounded", -1, []string{"raw", "a", "b", "c", "d"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Ancestors(snap, "d", tt.maxDepth)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Names())
			assert.Equal(t, tt.truncated, res.Truncated)
		})
	}
}

func TestAncestors_DepthZeroIsSources(t *testing.T) {
	for _, snap := range []*dag.Snapshot{diamond(t), loop(t)} {
		for _, n := range snap.Nodes() {
			res, err := Ancestors(snap, n.Name, 0)
			require.NoError(t, err)
			assert.ElementsMatch(t, n.Sources, res.Dependencies(), n.Name)
		}
	}
}

func TestDescendants(t *testing.T) {
	res, err := Descendants(diamond(t), "raw", Unbounded)
	require.NoError(t, err)

	assert.Equal(t, []string{"raw", "a", "b", "c", "d"}, res.Names())
	assert.Equal(t, map[string]int{"raw": 0, "a": 1, "b": 1, "c": 2, "d": 3}, depths(res))

	c, _ := res.Visit("c")
	assert.Equal(t, []string{"raw", "a", "c"}, c.Path)
	assert.Equal(t, []string{"a", "b"}, c.Via)
	assert.Equal(t, []dag.Edge{{From: "d", To: "d"}}, res.Cycles)
}

func TestSymmetry(t *testing.T) {
	for _, snap := range []*dag.Snapshot{diamond(t), loop(t)} {
		for _, n := range snap.Nodes() {
			up, err := Ancestors(snap, n.Name, Unbounded)
			require.NoError(t, err)
			for _, anc := range up.Names() {
				down, err := Descendants(snap, anc, Unbounded)
				require.NoError(t, err)
				assert.Contains(t, down.Names(), n.Name, "%s should reach %s", anc, n.Name)
			}
		}
	}
}

func TestCycles(t *testing.T) {
	snap := loop(t)

	up, err := Ancestors(snap, "z", Unbounded)
	require.NoError(t, err)
	assert.Equal(t, []string{"s", "x", "y", "z"}, up.Names())
	assert.Equal(t, []dag.Edge{{From: "y", To: "x"}}, up.Cycles)

	down, err := Descendants(snap, "x", Unbounded)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, down.Names())
	assert.Equal(t, []dag.Edge{{From: "y", To: "x"}}, down.Cycles)
	assert.True(t, down.HasCycles())
}

func TestSelfReferenceAppearsOnce(t *testing.T) {
	snap := snapshot(t,
		node("src", "p1"),
		node("upsert", "p1", "src", "upsert"),
	)

	for _, dir := range []Direction{Upstream, Downstream} {
		var res *Result
		var err error
		if dir == Upstream {
			res, err = Ancestors(snap, "upsert", Unbounded)
		} else {
			res, err = Descendants(snap, "upsert", Unbounded)
		}
		require.NoError(t, err)

		count := 0
		for _, v := range res.Nodes {
			if v.Name == "upsert" {
				count++
			}
		}
		assert.Equal(t, 1, count, string(dir))
		assert.Equal(t, []dag.Edge{{From: "upsert", To: "upsert"}}, res.Cycles)
	}
}

func TestExample_SourceAndConsumer(t *testing.T) {
	snap := snapshot(t,
		node("src_b", "p1"),
		node("d", "p1", "src_b"),
	)

	up, err := Ancestors(snap, "d", -1)
	require.NoError(t, err)
	require.Len(t, up.Nodes, 2)
	assert.Equal(t, "src_b", up.Nodes[0].Name)
	assert.Equal(t, 1, up.Nodes[0].Depth)
	assert.Equal(t, "d", up.Nodes[1].Name)
	assert.Equal(t, 0, up.Nodes[1].Depth)

	down, err := Descendants(snap, "src_b", -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"src_b", "d"}, down.Names())
	assert.Equal(t, 1, down.Nodes[1].Depth)
}

func TestUnknownTable(t *testing.T) {
	_, err := Ancestors(diamond(t), "nonexistent_table", 5)
	require.Error(t, err)

	var unknown *UnknownTableError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "nonexistent_table", unknown.Table)

	_, err = Descendants(diamond(t), "nonexistent_table", 5)
	assert.True(t, errors.As(err, &unknown))
}

func TestExternalRoot(t *testing.T) {
	ext := pipeline.NewExternal("topic_raw")
	snap := snapshot(t, ext, node("src_a", "p1", "topic_raw"))

	res, err := Ancestors(snap, "topic_raw", Unbounded)
	require.NoError(t, err)
	require.Len(t, res.Nodes, 1)
	assert.True(t, res.Nodes[0].External)
	assert.Empty(t, res.Edges)
}

func TestDeterministic(t *testing.T) {
	first, err := Ancestors(diamond(t), "d", Unbounded)
	require.NoError(t, err)
	for range 5 {
		again, err := Ancestors(diamond(t), "d", Unbounded)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestConcurrentQueries(t *testing.T) {
	snap := diamond(t)
	want, err := Descendants(snap, "raw", Unbounded)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Descendants(snap, "raw", Unbounded)
			assert.NoError(t, err)
			assert.Equal(t, want.Names(), got.Names())
		}()
	}
	wg.Wait()
}
