package main

import (
	"fmt"
	"log"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/shiftgraph/internal/cli"
	"github.com/leapstack-labs/shiftgraph/internal/cli/config"
	"github.com/leapstack-labs/shiftgraph/internal/report"
)

// commandGroups orders the commands on the index page. Every registered
// command except completion must appear here.
var commandGroups = []struct {
	title string
	names []string
}{
	{"Graph", []string{"build", "watch"}},
	{"Queries", []string{"ancestors", "descendants", "impact", "order"}},
	{"Conventions", []string{"validate", "rules"}},
	{"Other", []string{"version"}},
}

// generateCLIDocs writes an index page and one page per command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	cmds, err := documentedCommands(root)
	if err != nil {
		return err
	}

	if err := writePage(outDir, "index.md", cliIndex(root, cmds)); err != nil {
		return err
	}
	for _, group := range commandGroups {
		for _, name := range group.names {
			if err := writePage(outDir, name+".md", commandPage(cmds[name])); err != nil {
				return err
			}
		}
	}
	return nil
}

// documentedCommands matches commandGroups against the command tree.
func documentedCommands(root *cobra.Command) (map[string]*cobra.Command, error) {
	registered := make(map[string]*cobra.Command)
	for _, cmd := range root.Commands() {
		if cmd.Hidden || cmd.Name() == "help" || cmd.Name() == "completion" {
			continue
		}
		registered[cmd.Name()] = cmd
	}

	out := make(map[string]*cobra.Command, len(registered))
	for _, group := range commandGroups {
		for _, name := range group.names {
			cmd, ok := registered[name]
			if !ok {
				return nil, fmt.Errorf("command %q is not registered", name)
			}
			out[name] = cmd
			delete(registered, name)
		}
	}
	if len(registered) > 0 {
		return nil, fmt.Errorf("commands missing from the docs index: %s",
			strings.Join(slices.Sorted(maps.Keys(registered)), ", "))
	}
	return out, nil
}

func cliIndex(root *cobra.Command, cmds map[string]*cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for shiftgraph")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(root.Long)
	w.CodeBlock("bash", "go install github.com/leapstack-labs/shiftgraph/cmd/shiftgraph@latest")

	for _, group := range commandGroups {
		w.Header(2, group.title)
		var rows [][]string
		for _, name := range group.names {
			link := fmt.Sprintf("[%s](/cli/%s)", InlineCode(name), name)
			rows = append(rows, []string{link, cleanDescription(cmds[name].Short)})
		}
		w.Table([]string{"Command", "Description"}, rows)
	}

	w.Header(2, "Global Options")
	writeFlagsTable(w, root.PersistentFlags())

	modes := make([]string, 0, len(report.Modes))
	for _, m := range report.Modes {
		modes = append(modes, InlineCode(string(m)))
	}
	w.Paragraph("Output formats: " + strings.Join(modes, ", ") + ". " +
		"`auto` is text on a terminal and markdown otherwise; `NO_COLOR` disables styling.")

	w.Header(2, "Configuration")
	w.Paragraph("Keys are read from `shiftgraph.yaml`, searched upward from the working directory, " +
		"then from the environment, then from flags. Later sources win.")
	defaults := config.Defaults()
	var rows [][]string
	for _, key := range config.Keys {
		def := ""
		if v, ok := defaults[key.Name]; ok {
			def = InlineCode(fmt.Sprint(v))
		}
		rows = append(rows, []string{InlineCode(key.Name), InlineCode(config.EnvVar(key.Name)), def, key.Description})
	}
	w.Table([]string{"Key", "Environment", "Default", "Description"}, rows)

	w.Header(2, "Exit Codes")
	w.Table([]string{"Code", "Meaning"}, [][]string{
		{InlineCode("0"), "Success"},
		{InlineCode("1"), "Error, failed build or convention violations (details on stderr)"},
	})
	return w.Bytes()
}

func commandPage(cmd *cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.Name())
	if cmd.Long != "" {
		w.Paragraph(cmd.Long)
	} else {
		w.Paragraph(cmd.Short)
	}

	w.Header(2, "Usage")
	w.CodeBlock("bash", cmd.UseLine())

	if cmd.HasLocalFlags() {
		w.Header(2, "Options")
		writeFlagsTable(w, cmd.LocalFlags())
	}
	w.Paragraph("Global options are listed in the [CLI reference](/cli/).")

	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", cleanExample(cmd.Example))
	}
	return w.Bytes()
}

func writePage(outDir, name string, content []byte) error {
	if err := os.WriteFile(filepath.Join(outDir, name), content, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	log.Printf("  Generated %s", name)
	return nil
}

func writeFlagsTable(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == "help" {
			return
		}
		option := "--" + f.Name
		if f.Shorthand != "" {
			option = "-" + f.Shorthand + ", " + option
		}
		def := ""
		if f.DefValue != "" && f.DefValue != "[]" {
			def = InlineCode(f.DefValue)
		}
		rows = append(rows, []string{InlineCode(option), def, cleanDescription(f.Usage)})
	})
	w.Table([]string{"Option", "Default", "Description"}, rows)
}

// cleanExample strips the two-space indent command examples are written with.
func cleanExample(example string) string {
	lines := strings.Split(example, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, "  ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
