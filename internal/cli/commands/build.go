package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/shiftgraph/internal/report"
)

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the pipeline dependency graph",
		Long: `Parse every DDL and DML script under the pipelines folder and link
each table to the tables it reads from.

The report lists the tables built, referenced tables no pipeline
produces, scripts that could not be parsed and tables defined twice.
The command fails if any script failed or a table is duplicated.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Build the graph under ./pipelines
  shiftgraph build

  # Build another folder, skipping scratch tables
  shiftgraph build --pipelines ../flink/pipelines --exclude "**/scratch/**"

  # Render the whole graph for Graphviz
  shiftgraph build -o dot | dot -Tsvg > graph.svg`,
		Args: cobra.NoArgs,
		RunE: runBuild,
	}
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	snap, rep, buildErr := cmdCtx.Build(cmd.Context())
	if rep == nil {
		return buildErr
	}
	if err := report.RenderBuild(cmdCtx.Renderer, rep, snap); err != nil {
		return err
	}
	if buildErr != nil || rep.HasErrors() {
		return errors.Join(ErrBuildFailed, buildErr)
	}
	return nil
}
