package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/shiftgraph/internal/builder"
	"github.com/leapstack-labs/shiftgraph/internal/cli/config"
	"github.com/leapstack-labs/shiftgraph/internal/dag"
	"github.com/leapstack-labs/shiftgraph/internal/report"
)

// ErrBuildFailed is returned by commands whose build had failures or
// duplicate tables. Its details have already been printed.
var ErrBuildFailed = errors.New("build failed")

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *report.Renderer
}

// NewCommandContext resolves the config, logger and renderer of a command.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := getConfig()
	mode, err := report.ParseMode(cfg.Output)
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: report.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}, nil
}

// getConfig returns the loaded configuration, or the defaults when the
// command runs outside the root command.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

// NewBuilder creates a graph builder from the configuration.
func (c *CommandContext) NewBuilder() *builder.Builder {
	return builder.New(builder.Options{
		Workers: c.Cfg.Workers,
		Logger:  c.Logger,
	})
}

// Build parses the configured pipelines folder. Script failures are
// logged and leave the graph usable; duplicate tables fail the build.
func (c *CommandContext) Build(ctx context.Context) (*dag.Snapshot, *builder.Report, error) {
	corpus, err := builder.NewCorpus(c.Cfg.PipelinesDir, c.Cfg.Exclude)
	if err != nil {
		return nil, nil, err
	}
	snap, rep, err := c.NewBuilder().Build(ctx, corpus)
	if err != nil {
		return nil, rep, err
	}
	for _, f := range rep.Failures {
		c.Logger.Warn("skipped script", "path", f.Path, "type", f.Type, "error", f.Err)
	}
	return snap, rep, nil
}

// Graph builds the graph for commands that only read it.
func (c *CommandContext) Graph(ctx context.Context) (*dag.Snapshot, error) {
	snap, _, err := c.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline graph: %w", err)
	}
	return snap, nil
}

// completeTables offers table names from the current pipelines folder.
func completeTables(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	snap, err := cmdCtx.Graph(cmd.Context())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var names []string
	for _, name := range snap.Names() {
		if strings.HasPrefix(name, toComplete) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, cobra.ShellCompDirectiveNoFileComp
}
