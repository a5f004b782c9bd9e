package commands

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/shiftgraph/internal/report"
	"github.com/leapstack-labs/shiftgraph/internal/watch"
)

// WatchOptions holds options for the watch command.
type WatchOptions struct {
	Debounce time.Duration
}

// WatchEvent is one rebuild in JSON and YAML output.
type WatchEvent struct {
	BuildID  string   `json:"build_id,omitempty" yaml:"build_id,omitempty"`
	Nodes    int      `json:"nodes" yaml:"nodes"`
	Failures int      `json:"failures" yaml:"failures"`
	Changed  []string `json:"changed,omitempty" yaml:"changed,omitempty"`
	Affected []string `json:"affected,omitempty" yaml:"affected,omitempty"`
	Error    string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &WatchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the graph whenever a script changes",
		Long: `Build the pipeline graph, then watch the pipelines folder and rebuild
after every burst of changes to .sql files.

Each rebuild prints the changed scripts and every table downstream of
them. Stop with Ctrl+C.`,
		Example: `  # Watch ./pipelines
  shiftgraph watch

  # Wait a second of quiet before rebuilding
  shiftgraph watch --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 0, "Quiet period before a rebuild (default from config)")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *WatchOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	debounce := cmdCtx.Cfg.Watch.Debounce
	if cmd.Flags().Changed("debounce") {
		debounce = opts.Debounce
	}

	w, err := watch.New(watch.Options{
		Root:     cmdCtx.Cfg.PipelinesDir,
		Exclude:  cmdCtx.Cfg.Exclude,
		Debounce: debounce,
		Builder:  cmdCtx.NewBuilder(),
		Logger:   cmdCtx.Logger,
		OnBuild:  func(up watch.Update) { renderUpdate(cmdCtx.Renderer, up) },
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return w.Run(ctx)
}

func newWatchEvent(up watch.Update) WatchEvent {
	ev := WatchEvent{Changed: up.Changed, Affected: up.Affected}
	if up.Err != nil {
		ev.Error = up.Err.Error()
	}
	if up.Report != nil {
		ev.BuildID = up.Report.BuildID
		ev.Failures = len(up.Report.Failures)
	}
	if up.Snapshot != nil {
		ev.Nodes = up.Snapshot.NodeCount()
	}
	return ev
}

func renderUpdate(r *report.Renderer, up watch.Update) {
	ev := newWatchEvent(up)

	switch r.EffectiveMode() {
	case report.ModeJSON:
		_ = r.JSON(ev)
		return
	case report.ModeYAML:
		r.Println("---")
		_ = r.YAML(ev)
		return
	}

	stamp := time.Now().Format(time.TimeOnly)
	if ev.Error != "" {
		r.Warning(fmt.Sprintf("[%s] build failed: %s", stamp, ev.Error))
		return
	}
	msg := fmt.Sprintf("[%s] graph built: %d tables", stamp, ev.Nodes)
	if ev.Failures > 0 {
		msg += fmt.Sprintf(", %d failed scripts", ev.Failures)
	}
	r.Success(msg)
	if len(ev.Changed) > 0 {
		r.Muted("  changed:  " + strings.Join(ev.Changed, ", "))
	}
	if len(ev.Affected) > 0 {
		r.Muted("  affected: " + strings.Join(ev.Affected, ", "))
	}
}
