package builder

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	"github.com/leapstack-labs/shiftgraph/internal/pipeline"
	"github.com/leapstack-labs/shiftgraph/pkg/naming"
)

// testsFolder holds unit test fixtures next to the real scripts.
const testsFolder = "tests"

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Corpus is an immutable listing of the pipeline units under a root
// folder. It records paths only; scripts are read by the Builder.
type Corpus struct {
	root     string
	units    []pipeline.Unit
	failures []FileError
}

// NewCorpus walks root once, in lexical order, and groups the scripts of
// each unit. Folders named "tests" and paths matching an exclude pattern
// are skipped. Scripts outside the expected layout are reported as layout
// failures rather than failing the walk.
func NewCorpus(root string, exclude []string) (*Corpus, error) {
	patterns, err := compilePatterns(exclude)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("pipelines root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("pipelines root %s is not a directory", root)
	}

	c := &Corpus{root: root}
	byDir := make(map[string]int)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if d.Name() == testsFolder || strings.HasPrefix(d.Name(), ".") || matchesAny(rel, patterns) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".sql") || matchesAny(rel, patterns) {
			return nil
		}

		loc, err := pipeline.LocateScript(rel)
		if err != nil {
			c.failures = append(c.failures, FileError{Path: rel, Type: FailureLayout, Err: err})
			return nil
		}

		i, ok := byDir[loc.Dir]
		if !ok {
			i = len(c.units)
			byDir[loc.Dir] = i
			c.units = append(c.units, pipeline.Unit{})
		}
		if err := c.units[i].Add(loc, rel); err != nil {
			c.failures = append(c.failures, FileError{Path: rel, Type: FailureLayout, Err: err})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	for _, u := range c.units {
		if u.DDLPath == "" {
			c.failures = append(c.failures, FileError{
				Path: u.DMLPath,
				Type: FailureLayout,
				Err:  &pipeline.LayoutError{Path: u.Dir, Reason: "unit has no " + string(naming.ScriptDDL) + " script"},
			})
		}
	}
	return c, nil
}

// Root returns the corpus root folder.
func (c *Corpus) Root() string {
	return c.root
}

// Units returns the units in walk order.
func (c *Corpus) Units() []pipeline.Unit {
	return slices.Clone(c.units)
}

// LayoutFailures returns scripts that did not fit the layout.
func (c *Corpus) LayoutFailures() []FileError {
	return slices.Clone(c.failures)
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	var out []compiledPattern
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		out = append(out, compiledPattern{pattern: pattern, glob: g})
	}
	return out, nil
}

// matchesAny checks a slash-separated relative path against the patterns.
// A directory also matches a pattern written as dir/**.
func matchesAny(rel string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(rel) || cp.glob.Match(rel+"/**") {
			return true
		}
	}
	return false
}
