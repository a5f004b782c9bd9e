package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/shiftgraph/internal/report"
	"github.com/leapstack-labs/shiftgraph/internal/traverse"
)

// NewOrderCommand creates the order command.
func NewOrderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "order [table]",
		Short: "Show the deployment order of a table and its dependencies",
		Long: `Group a table and everything it reads from into levels. Tables in a
level only depend on earlier levels and can be deployed in parallel.

Tables on a dependency cycle share a level and are listed as a group
that must be deployed together. Without a table the whole graph is
ordered.`,
		Example: `  # Deployment order for one fact table
  shiftgraph order p1_fct_sales

  # Order the whole estate
  shiftgraph order -o json`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeTables,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			snap, err := cmdCtx.Graph(cmd.Context())
			if err != nil {
				return err
			}
			var table string
			if len(args) == 1 {
				table = args[0]
			}
			order, err := traverse.MigrationOrder(snap, table)
			if err != nil {
				return err
			}
			return report.RenderOrder(cmdCtx.Renderer, order)
		},
	}
}
