// Package main provides the shiftgraph CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/shiftgraph/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
