// Command pushdownctl is a small demo CLI wrapping the pushdown optimizer:
// load a logical plan fixture from JSON, run it through Optimize, and print
// the before/after tree. Mirrors the shape of the teacher's cmd/quantactl
// (a single-binary control tool over the library), using cobra the way
// roach88-nysm's internal/cli does for its own multi-subcommand tool.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitCodeFor(err))
	}
}
