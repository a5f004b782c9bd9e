// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/shiftgraph/internal/cli"
	"github.com/leapstack-labs/shiftgraph/internal/cli/config"
)

// Result is the captured outcome of one CLI invocation.
type Result struct {
	Out    string
	ErrOut string
	Err    error
}

// Run executes the root command with args from an empty working directory,
// so no shiftgraph.yaml outside the test is picked up.
func Run(t *testing.T, args ...string) Result {
	t.Helper()
	config.ResetConfig()
	t.Chdir(t.TempDir())

	cmd := cli.NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if errOut.Len() > 0 {
		t.Log(errOut.String())
	}
	return Result{Out: out.String(), ErrOut: errOut.String(), Err: err}
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	assert.False(t, ansiPattern.MatchString(s), "string contains ANSI escape codes: %q", s)
}

// AssertValidMarkdown checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	fenceCount := strings.Count(md, "```")
	assert.Zero(t, fenceCount%2, "unbalanced code fences in markdown: found %d occurrences", fenceCount)

	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
