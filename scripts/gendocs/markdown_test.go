package main

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/shiftgraph/internal/cli"
)

func TestMarkdownWriter_Table(t *testing.T) {
	w := NewMarkdownWriter()
	w.Table([]string{"A", "B"}, [][]string{{"x|y", "z"}})
	assert.Equal(t, "| A | B |\n| --- | --- |\n| x\\|y | z |\n\n", string(w.Bytes()))
}

func TestCleanExample(t *testing.T) {
	got := cleanExample("  # one\n  shiftgraph build\n\n    indented")
	assert.Equal(t, "# one\nshiftgraph build\n\n  indented", got)
}

func TestGenerateCLIDocs(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, generateCLIDocs(dir))
	assert.NoError(t, generateRulesDocs(dir+"/rules"))
	for _, name := range []string{"index.md", "ancestors.md", "rules/index.md"} {
		assert.FileExists(t, dir+"/"+name)
	}
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "a b c", cleanDescription(" a\n  b\tc "))
	assert.False(t, strings.Contains(cleanDescription("x\ny"), "\n"))
}

func TestDocumentedCommands(t *testing.T) {
	root := cli.NewRootCmd()
	cmds, err := documentedCommands(root)
	require.NoError(t, err)
	assert.Len(t, cmds, 9)
	assert.NotContains(t, cmds, "completion")

	root.AddCommand(&cobra.Command{Use: "extra", Short: "not in the index"})
	_, err = documentedCommands(root)
	assert.ErrorContains(t, err, "extra")
}

func TestCommandPage(t *testing.T) {
	cmds, err := documentedCommands(cli.NewRootCmd())
	require.NoError(t, err)

	page := string(commandPage(cmds["ancestors"]))
	assert.Contains(t, page, "shiftgraph ancestors <table>")
	assert.Contains(t, page, "| `-d, --depth` |")
	assert.NotContains(t, page, "--pipelines", "global flags live on the index page")
}
