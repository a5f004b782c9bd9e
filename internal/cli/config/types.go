// Package config loads shiftgraph CLI configuration from defaults, a
// shiftgraph.yaml file, SHIFTGRAPH_* environment variables and flags.
package config

import "time"

// Default values.
const (
	DefaultPipelinesDir = "pipelines"
	DefaultOutput       = "auto"
	DefaultDepth        = -1
	DefaultDebounce     = 200 * time.Millisecond
)

// Config is the resolved CLI configuration.
type Config struct {
	// PipelinesDir is the corpus root, absolute after loading.
	PipelinesDir string         `koanf:"pipelines_dir"`
	Output       string         `koanf:"output"`
	Workers      int            `koanf:"workers"`
	Exclude      []string       `koanf:"exclude"`
	Verbose      bool           `koanf:"verbose"`
	Depth        int            `koanf:"depth"`
	Watch        WatchConfig    `koanf:"watch"`
	Validate     ValidateConfig `koanf:"validate"`

	// ProjectRoot is the folder relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	Debounce time.Duration `koanf:"debounce"`
}

// ValidateConfig configures the convention checker.
type ValidateConfig struct {
	// Disabled lists rule IDs or names to skip.
	Disabled []string `koanf:"disabled"`
}

// Key documents one configuration key.
type Key struct {
	Name        string
	Description string
}

// Keys lists the configuration keys in the order they are documented.
var Keys = []Key{
	{Name: "pipelines_dir", Description: "Pipelines folder, relative to the config file"},
	{Name: "output", Description: "Output format: auto, text, markdown, json, yaml or dot"},
	{Name: "workers", Description: "Concurrent script parsers; 0 uses every CPU"},
	{Name: "exclude", Description: "Glob patterns of scripts and folders to skip"},
	{Name: "verbose", Description: "Debug logging on stderr"},
	{Name: "depth", Description: "Default traversal depth; -1 is unbounded"},
	{Name: "watch.debounce", Description: "Quiet period before a rebuild"},
	{Name: "validate.disabled", Description: "Rule IDs or names to skip"},
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		PipelinesDir: DefaultPipelinesDir,
		Output:       DefaultOutput,
		Depth:        DefaultDepth,
		Watch:        WatchConfig{Debounce: DefaultDebounce},
	}
}
