// Package watch rebuilds the pipeline graph whenever SQL scripts under the
// corpus root change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leapstack-labs/shiftgraph/internal/builder"
	"github.com/leapstack-labs/shiftgraph/internal/dag"
	"github.com/leapstack-labs/shiftgraph/pkg/naming"
)

// DefaultDebounce is the quiet period before a rebuild.
const DefaultDebounce = 200 * time.Millisecond

// Update is the outcome of one build.
type Update struct {
	Snapshot *dag.Snapshot // nil when the build failed
	Report   *builder.Report
	Err      error
	// Changed are the corpus-relative scripts that triggered the build,
	// sorted. Empty for the initial build.
	Changed []string
	// Affected are the changed tables and everything downstream of them,
	// in the previous and the new graph, sorted.
	Affected []string
}

// Options configures a Watcher.
type Options struct {
	Root     string
	Exclude  []string
	Debounce time.Duration
	Builder  *builder.Builder
	Logger   *slog.Logger
	// OnBuild is called after every build, from the watch goroutine.
	OnBuild func(Update)
}

// Watcher rebuilds a corpus on change.
type Watcher struct {
	opts     Options
	logger   *slog.Logger
	last     *dag.Snapshot
	lastHash string
}

// New creates a watcher.
func New(opts Options) (*Watcher, error) {
	if opts.Root == "" {
		return nil, errors.New("watch: root is required")
	}
	if opts.Builder == nil {
		return nil, errors.New("watch: builder is required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.OnBuild == nil {
		opts.OnBuild = func(Update) {}
	}
	return &Watcher{opts: opts, logger: logger}, nil
}

// Run builds once, then rebuilds after every burst of script changes
// until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.rebuild(ctx, nil)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watchDir(watcher, w.opts.Root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.opts.Root, err)
	}
	w.logger.Info("watching pipelines", "root", w.opts.Root)

	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()
	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watchDir(watcher, event.Name); err != nil {
						w.logger.Warn("failed to watch new folder", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if filepath.Ext(event.Name) != ".sql" {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			rel, err := filepath.Rel(w.opts.Root, event.Name)
			if err != nil {
				continue
			}
			w.logger.Debug("change detected", "path", rel, "op", event.Op.String())
			pending[filepath.ToSlash(rel)] = true
			timer.Reset(w.opts.Debounce)

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			clear(pending)
			slices.Sort(changed)
			w.rebuild(ctx, changed)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) rebuild(ctx context.Context, changed []string) {
	up := Update{Changed: changed}

	corpus, err := builder.NewCorpus(w.opts.Root, w.opts.Exclude)
	if err != nil {
		up.Err = err
		w.logger.Error("rebuild failed", "error", err)
		w.opts.OnBuild(up)
		return
	}

	up.Snapshot, up.Report, up.Err = w.opts.Builder.Build(ctx, corpus)
	if up.Err != nil {
		w.logger.Error("rebuild failed", "error", up.Err)
		w.opts.OnBuild(up)
		return
	}
	if changed != nil && up.Report.Fingerprint == w.lastHash {
		w.logger.Debug("scripts unchanged, skipping update")
		return
	}

	up.Affected = affected(changedTables(changed), w.last, up.Snapshot)
	w.last, w.lastHash = up.Snapshot, up.Report.Fingerprint
	w.logger.Info("graph rebuilt", "nodes", up.Snapshot.NodeCount(), "changed", len(changed), "affected", len(up.Affected))
	w.opts.OnBuild(up)
}

// changedTables maps script paths to the tables named by their files.
func changedTables(paths []string) []string {
	var tables []string
	for _, p := range paths {
		if _, table, ok := naming.ParseScriptName(p); ok && !slices.Contains(tables, table) {
			tables = append(tables, table)
		}
	}
	return tables
}

func affected(tables []string, before, after *dag.Snapshot) []string {
	if len(tables) == 0 {
		return nil
	}
	out := after.Affected(tables)
	if before != nil {
		for _, name := range before.Affected(tables) {
			if !slices.Contains(out, name) {
				out = append(out, name)
			}
		}
	}
	slices.Sort(out)
	return out
}

// watchDir recursively adds a directory to the watcher.
func watchDir(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
