package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/shiftgraph/internal/report"
	"github.com/leapstack-labs/shiftgraph/internal/traverse"
)

// NewImpactCommand creates the impact command.
func NewImpactCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "impact <table>",
		Short: "Show which data products a change to a table reaches",
		Long: `Group every downstream table of the given table by data product.

Changes that reach tables owned by another data product are flagged, so
their owners can be asked before the migration runs.`,
		Example: `  # Who is affected by a change to src_p1_orders
  shiftgraph impact src_p1_orders

  # Output as YAML
  shiftgraph impact src_p1_orders -o yaml`,
		Args:              cobra.ExactArgs(1),
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
			im, err := traverse.ImpactOf(snap, args[0])
			if err != nil {
				return err
			}
			return report.RenderImpact(cmdCtx.Renderer, im)
		},
	}
}
