package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/shiftgraph/internal/report"
	"github.com/leapstack-labs/shiftgraph/internal/traverse"
)

// TraverseOptions holds options for the ancestors and descendants commands.
type TraverseOptions struct {
	Depth int
}

// NewAncestorsCommand creates the ancestors command.
func NewAncestorsCommand() *cobra.Command {
	return newTraverseCommand(traverse.Upstream)
}

// NewDescendantsCommand creates the descendants command.
func NewDescendantsCommand() *cobra.Command {
	return newTraverseCommand(traverse.Downstream)
}

func newTraverseCommand(dir traverse.Direction) *cobra.Command {
	opts := &TraverseOptions{}

	cmd := &cobra.Command{
		Use:               string(dir) + " <table>",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeTables,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraverse(cmd, dir, args[0], opts)
		},
	}

	switch dir {
	case traverse.Upstream:
		cmd.Short = "Show the tables a table reads from"
		cmd.Long = `List every table the given table depends on, directly or through
other pipelines, with the depth and the shortest path to each.

Tables no pipeline produces appear as external sources. Dependency
cycles are reported rather than followed.`
		cmd.Example = `  # Everything p1_fct_sales is built from
  shiftgraph ancestors p1_fct_sales

  # Direct sources only
  shiftgraph ancestors p1_fct_sales --depth 0

  # Output as JSON
  shiftgraph ancestors p1_fct_sales -o json`
	case traverse.Downstream:
		cmd.Short = "Show the tables that read from a table"
		cmd.Long = `List every table that consumes the given table, directly or through
other pipelines, with the depth and the shortest path to each.

Use it before changing a table to see which pipelines must be
redeployed.`
		cmd.Example = `  # Everything downstream of a source topic
  shiftgraph descendants src_p1_orders

  # Two hops only
  shiftgraph descendants src_p1_orders --depth 2`
	}

	cmd.Flags().IntVarP(&opts.Depth, "depth", "d", 0,
		"Max traversal depth (0 = direct neighbours, -1 = unlimited; default from config)")

	return cmd
}

// depthFor returns the --depth flag when set and the configured depth otherwise.
func depthFor(cmd *cobra.Command, cmdCtx *CommandContext, flagValue int) int {
	if cmd.Flags().Changed("depth") {
		return flagValue
	}
	return cmdCtx.Cfg.Depth
}

func runTraverse(cmd *cobra.Command, dir traverse.Direction, table string, opts *TraverseOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	snap, err := cmdCtx.Graph(cmd.Context())
	if err != nil {
		return err
	}

	depth := depthFor(cmd, cmdCtx, opts.Depth)
	var res *traverse.Result
	switch dir {
	case traverse.Upstream:
		res, err = traverse.Ancestors(snap, table, depth)
	case traverse.Downstream:
		res, err = traverse.Descendants(snap, table, depth)
	default:
		return fmt.Errorf("unknown direction %q", dir)
	}
	if err != nil {
		return err
	}

	cmdCtx.Logger.Debug("traversal finished",
		"root", table, "direction", string(dir), "depth", depth,
		"tables", len(res.Nodes), "cycles", len(res.Cycles), "truncated", res.Truncated)
	return report.RenderTraversal(cmdCtx.Renderer, res)
}
