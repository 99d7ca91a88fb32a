package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/pushdown/internal/planner"
)

// NewOptimizeCommand builds the "optimize" subcommand: load a plan fixture,
// run it through Optimize, and print only the resulting tree.
func NewOptimizeCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "optimize <plan.json>",
		Short:         "Run predicate pushdown over a plan fixture and print the result",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			before, after, warnings, err := runOptimize(args[0], opts)
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}
			return printResult(cmd, opts, before, after, warnings, false)
		},
	}
	return cmd
}

// NewExplainCommand builds the "explain" subcommand: load a plan fixture
// and print the original tree followed by the optimized tree, plus any
// warnings the pass collected.
func NewExplainCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "explain <plan.json>",
		Short:         "Print the before/after plan tree for a fixture",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			before, after, warnings, err := runOptimize(args[0], opts)
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}
			return printResult(cmd, opts, before, after, warnings, true)
		},
	}
	return cmd
}

func runOptimize(path string, opts *RootOptions) (before, after planner.PlanNode, warnings []string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading fixture: %w", err)
	}

	var fixture Fixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return nil, nil, nil, fmt.Errorf("parsing fixture: %w", err)
	}

	ids := UUIDPlanNodeIDAllocator{}
	before, err = decodeNode(fixture.Plan, ids)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("building plan: %w", err)
	}

	metadata := planner.NewStaticMetadata()
	types := planner.NewStructuralTypeAnalyzer(nil)
	effective := &planner.RangeEffectivePredicateExtractor{}
	interp := planner.NewConstantFoldInterpreter(metadata)
	optimizer := planner.NewOptimizer(metadata, types, effective, interp, planner.SimpleLiteralEncoder{}, nil)

	session := &planner.Session{EnableDynamicFiltering: opts.EnableDynamicFiltering}
	warningCollector := &planner.SliceWarningCollector{}

	after = optimizer.Optimize(before, session, UUIDSymbolAllocator{}, ids, warningCollector)
	return before, after, warningCollector.Warnings, nil
}
