package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds flags shared by every subcommand, following
// roach88-nysm's internal/cli.RootOptions pattern.
type RootOptions struct {
	Format                 string // "text" | "json"
	EnableDynamicFiltering bool
}

var validFormats = []string{"text", "json"}

// NewRootCommand builds the pushdownctl root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "pushdownctl",
		Short: "pushdownctl - predicate pushdown optimizer demo CLI",
		Long:  "Loads a logical plan fixture and runs it through the predicate pushdown optimizer.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")
	cmd.PersistentFlags().BoolVar(&opts.EnableDynamicFiltering, "enable-dynamic-filtering", false, "set Session.EnableDynamicFiltering for the optimize pass")

	cmd.AddCommand(NewOptimizeCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}

// ExitError carries a process exit code alongside its message, following
// roach88-nysm's cli.ExitError.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// ExitCodeFor extracts the intended process exit code from err, defaulting
// to 1 for any error not explicitly tagged with one.
func ExitCodeFor(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}
