// Package builder turns a corpus of pipeline scripts into a frozen
// dependency graph.
package builder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/shiftgraph/internal/dag"
	"github.com/leapstack-labs/shiftgraph/internal/pipeline"
	"github.com/leapstack-labs/shiftgraph/pkg/flinksql"
)

// Options configures a Builder.
type Options struct {
	// Workers bounds concurrent parsing. Zero means GOMAXPROCS.
	Workers int
	// ParseOptions are passed to every parse, e.g. extra recognizers.
	ParseOptions []flinksql.Option
	// Logger receives build progress. Nil discards.
	Logger *slog.Logger
}

// Builder parses corpora into dependency graphs.
type Builder struct {
	workers   int
	parseOpts []flinksql.Option
	logger    *slog.Logger
}

// New creates a Builder.
func New(opts Options) *Builder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Builder{
		workers:   workers,
		parseOpts: opts.ParseOptions,
		logger:    logger,
	}
}

// unitResult is the outcome of parsing one unit.
type unitResult struct {
	node     *pipeline.Node
	extra    []declaration // tables declared by the unit's extra DDL scripts
	failures []FileError
	hash     string
}

// declaration is a DDL script declaring a table.
type declaration struct {
	table string
	path  string
	unit  int
	extra bool
}

// Build parses every unit of the corpus, links sources to producers and
// freezes the graph. Units that fail to parse are reported and left out.
// Build fails with joined *DuplicateSinkError values when two DDL scripts
// declare the same table, within one unit folder or across units; the
// report is returned in every case.
func (b *Builder) Build(ctx context.Context, corpus *Corpus) (*dag.Snapshot, *Report, error) {
	start := time.Now()
	units := corpus.Units()
	report := &Report{
		BuildID:   uuid.New().String(),
		Root:      corpus.Root(),
		StartedAt: start,
		Units:     len(units),
		Failures:  corpus.LayoutFailures(),
	}

	b.logger.Info("starting build", "build_id", report.BuildID, "root", report.Root, "units", len(units))

	// 1. Parse units concurrently; each worker writes only its own slot.
	results := make([]unitResult, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, u := range units {
		if u.DDLPath == "" {
			continue // already reported by the corpus walk
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = b.parseUnit(corpus.Root(), u, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		report.Duration = time.Since(start)
		return nil, report, fmt.Errorf("build cancelled: %w", err)
	}

	// 2. Single writer: collect failures and detect duplicates in walk order.
	fingerprint := sha256.New()
	bySink := make(map[string][]declaration)
	var declared []string
	declare := func(d declaration) {
		if _, seen := bySink[d.table]; !seen {
			declared = append(declared, d.table)
		}
		bySink[d.table] = append(bySink[d.table], d)
	}
	for i, res := range results {
		if res.hash != "" {
			fingerprint.Write([]byte(res.hash))
		}
		report.Failures = append(report.Failures, res.failures...)
		if res.node != nil {
			declare(declaration{table: res.node.Name, path: units[i].DDLPath, unit: i})
		}
		for _, d := range res.extra {
			declare(d)
		}
	}
	report.Fingerprint = hex.EncodeToString(fingerprint.Sum(nil))

	var dupErrs []error
	var sinks []string
	for _, table := range declared {
		decls := bySink[table]
		switch {
		case len(decls) > 1:
			dup := &DuplicateSinkError{Table: table}
			for _, d := range decls {
				dup.Paths = append(dup.Paths, d.path)
			}
			report.Duplicates = append(report.Duplicates, dup)
			dupErrs = append(dupErrs, dup)
		case decls[0].extra:
			// A second table in one unit folder has no DML of its own.
			d := decls[0]
			report.Failures = append(report.Failures, FileError{
				Path: d.path,
				Type: FailureLayout,
				Err:  &pipeline.LayoutError{Path: d.path, Reason: "unit already has DDL script " + units[d.unit].DDLPath},
			})
		default:
			sinks = append(sinks, table)
		}
	}
	if len(dupErrs) > 0 {
		report.Duration = time.Since(start)
		b.logger.Error("duplicate sinks", "count", len(dupErrs))
		return nil, report, errors.Join(dupErrs...)
	}

	// 3. Insert nodes in walk order.
	graph := dag.NewGraph()
	for _, sink := range sinks {
		node := results[bySink[sink][0].unit].node
		if err := graph.Insert(node); err != nil {
			return nil, report, fmt.Errorf("inserting %s: %w", sink, err)
		}
		report.Nodes = append(report.Nodes, sink)
	}

	// 4. Resolve sources; unknown tables become external leaves.
	referrers := make(map[string][]string)
	var externals []string
	for _, sink := range sinks {
		node, _ := graph.Node(sink)
		for _, src := range node.Sources {
			if _, ok := graph.Node(src); ok {
				continue
			}
			if referrers[src] == nil {
				externals = append(externals, src)
			}
			referrers[src] = append(referrers[src], sink)
		}
	}
	for _, name := range externals {
		if err := graph.Insert(pipeline.NewExternal(name)); err != nil {
			return nil, report, fmt.Errorf("inserting external %s: %w", name, err)
		}
		b.logger.Debug("unresolved reference", "table", name, "referenced_by", referrers[name])
		report.Externals = append(report.Externals, UnresolvedReferenceWarning{
			Table:        name,
			ReferencedBy: referrers[name],
		})
	}
	for _, sink := range sinks {
		node, _ := graph.Node(sink)
		node.Resolved = true
	}
	sort.Slice(report.Externals, func(i, j int) bool {
		return report.Externals[i].Table < report.Externals[j].Table
	})

	snap := graph.Freeze()
	report.Duration = time.Since(start)

	b.logger.Info("build completed",
		"build_id", report.BuildID,
		"nodes", len(report.Nodes),
		"external", len(report.Externals),
		"failures", len(report.Failures),
		"edges", snap.EdgeCount(),
		"duration_ms", report.Duration.Milliseconds())

	return snap, report, nil
}

// parseUnit reads and parses the scripts of one unit.
func (b *Builder) parseUnit(root string, u pipeline.Unit, index int) (res unitResult) {
	h := sha256.New()
	defer func() { res.hash = hex.EncodeToString(h.Sum(nil)) }()

	for _, p := range u.ExtraDDL {
		if d, ok := b.parseExtraDDL(root, p, h, &res); ok {
			d.unit = index
			res.extra = append(res.extra, d)
		}
	}

	ddl, err := readScript(root, u.DDLPath)
	if err != nil {
		res.failures = append(res.failures, FileError{Path: u.DDLPath, Type: FailureRead, Err: err})
		return res
	}
	h.Write([]byte(u.DDLPath))
	h.Write(ddl)

	var dml []byte
	if u.DMLPath != "" {
		if dml, err = readScript(root, u.DMLPath); err != nil {
			res.failures = append(res.failures, FileError{Path: u.DMLPath, Type: FailureRead, Err: err})
			return res
		}
		h.Write([]byte(u.DMLPath))
		h.Write(dml)
	}

	stmt, err := flinksql.ParseQuery(string(ddl), b.parseOpts...)
	if err != nil {
		b.logger.Debug("parse error", "path", u.DDLPath, "error", err.Error())
		res.failures = append(res.failures, FileError{Path: u.DDLPath, Type: FailureParse, Err: err})
		return res
	}
	if u.DMLPath != "" {
		query, err := flinksql.ParseQuery(string(dml), b.parseOpts...)
		if err == nil {
			err = stmt.Merge(query)
		}
		if err != nil {
			b.logger.Debug("parse error", "path", u.DMLPath, "error", err.Error())
			res.failures = append(res.failures, FileError{Path: u.DMLPath, Type: FailureParse, Err: err})
			return res
		}
	}
	if err := stmt.RequireSink(); err != nil {
		res.failures = append(res.failures, FileError{Path: u.DDLPath, Type: FailureParse, Err: err})
		return res
	}

	res.node = pipeline.NewNode(u, stmt)
	b.logger.Debug("parsed unit", "table", res.node.Name, "sources", len(res.node.Sources))
	return res
}

// parseExtraDDL returns the table declared by an additional DDL script.
func (b *Builder) parseExtraDDL(root, rel string, h hash.Hash, res *unitResult) (declaration, bool) {
	ddl, err := readScript(root, rel)
	if err != nil {
		res.failures = append(res.failures, FileError{Path: rel, Type: FailureRead, Err: err})
		return declaration{}, false
	}
	h.Write([]byte(rel))
	h.Write(ddl)

	stmt, err := flinksql.Parse(string(ddl), b.parseOpts...)
	if err != nil {
		b.logger.Debug("parse error", "path", rel, "error", err.Error())
		res.failures = append(res.failures, FileError{Path: rel, Type: FailureParse, Err: err})
		return declaration{}, false
	}
	return declaration{table: stmt.Sink, path: rel, extra: true}, true
}

func readScript(root, rel string) ([]byte, error) {
	return os.ReadFile(filepath.Join(root, filepath.FromSlash(rel))) //nolint:gosec // G304: rel comes from the corpus walk
}
