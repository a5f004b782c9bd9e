package commands

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/shiftgraph/internal/cli/config"
	"github.com/leapstack-labs/shiftgraph/internal/report"
	"github.com/leapstack-labs/shiftgraph/internal/testutil"
	"github.com/leapstack-labs/shiftgraph/internal/watch"
	"github.com/leapstack-labs/shiftgraph/pkg/naming"
)

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewBuildCommand(), "build", nil},
		{NewAncestorsCommand(), "ancestors <table>", []string{"depth"}},
		{NewDescendantsCommand(), "descendants <table>", []string{"depth"}},
		{NewImpactCommand(), "impact <table>", nil},
		{NewOrderCommand(), "order [table]", nil},
		{NewValidateCommand(), "validate", []string{"disable"}},
		{NewRulesCommand(), "rules [rule]", nil},
		{NewWatchCommand(), "watch", []string{"debounce"}},
	}
	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Long, "Long should not be empty")
			assert.NotEmpty(t, tt.cmd.Example, "Example should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func newTestContext(t *testing.T, root string, mode report.Mode) (*CommandContext, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.PipelinesDir = root
	var out bytes.Buffer
	return &CommandContext{
		Cfg:      cfg,
		Logger:   testutil.NewTestLogger(t),
		Renderer: report.NewRenderer(&out, &out, mode),
	}, &out
}

func TestCommandContext_Build(t *testing.T) {
	root := testutil.WriteCorpus(t,
		testutil.Table{Kind: naming.KindSource, Name: "src_p1_a"},
		testutil.Table{Kind: naming.KindFact, Name: "p1_fct_x", Sources: []string{"src_p1_a", "raw_b"}},
	)
	cmdCtx, _ := newTestContext(t, root, report.ModeJSON)

	snap, rep, err := cmdCtx.Build(t.Context())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"src_p1_a", "raw_b"}, snap.Producers("p1_fct_x"))
	assert.Len(t, rep.Externals, 1)
}

func TestCommandContext_GraphMissingRoot(t *testing.T) {
	cmdCtx, _ := newTestContext(t, t.TempDir()+"/missing", report.ModeJSON)
	_, err := cmdCtx.Graph(t.Context())
	assert.Error(t, err)
}

func TestRenderUpdate(t *testing.T) {
	_, out := newTestContext(t, "", report.ModeText)
	r := report.NewRenderer(out, out, report.ModeText)

	renderUpdate(r, watch.Update{Changed: []string{"facts/p1/x/sql-scripts/dml.x.sql"}, Affected: []string{"x", "y"}})
	assert.Contains(t, out.String(), "graph built: 0 tables")
	assert.Contains(t, out.String(), "affected: x, y")

	out.Reset()
	renderUpdate(r, watch.Update{Err: assert.AnError})
	assert.Contains(t, out.String(), "build failed")
}

func TestDepthFor(t *testing.T) {
	cmdCtx, _ := newTestContext(t, "", report.ModeJSON)
	cmdCtx.Cfg.Depth = 3

	cmd := NewAncestorsCommand()
	assert.Equal(t, 3, depthFor(cmd, cmdCtx, 0), "config applies when the flag is unset")

	require.NoError(t, cmd.Flags().Set("depth", "1"))
	assert.Equal(t, 1, depthFor(cmd, cmdCtx, 1))
}
