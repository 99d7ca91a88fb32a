package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/pushdown/internal/planner"
)

// jsonResult is the --format json payload shape for optimize/explain,
// following roach88-nysm's CLIResponse convention of a stable envelope
// rather than dumping Go values straight to the encoder.
type jsonResult struct {
	Before   string   `json:"before,omitempty"`
	After    string   `json:"after"`
	Warnings []string `json:"warnings,omitempty"`
}

func printResult(cmd *cobra.Command, opts *RootOptions, before, after planner.PlanNode, warnings []string, showBoth bool) error {
	out := cmd.OutOrStdout()

	if opts.Format == "json" {
		result := jsonResult{After: renderTree(after), Warnings: warnings}
		if showBoth {
			result.Before = renderTree(before)
		}
		return json.NewEncoder(out).Encode(result)
	}

	if showBoth {
		fmt.Fprintln(out, "-- before --")
		fmt.Fprint(out, renderTree(before))
		fmt.Fprintln(out, "-- after --")
	}
	fmt.Fprint(out, renderTree(after))
	for _, w := range warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	return nil
}

// renderTree prints node as an indented tree, one line per PlanNode,
// following the teacher's habit of a terse String() per node type
// (plannode.go) rather than a full struct dump.
func renderTree(node planner.PlanNode) string {
	var b strings.Builder
	writeNode(&b, node, 0)
	return b.String()
}

func writeNode(w io.Writer, node planner.PlanNode, depth int) {
	if node == nil {
		return
	}
	fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), describeNode(node))
	for _, child := range node.Children() {
		writeNode(w, child, depth+1)
	}
}

// describeNode extends a node's own String() with the extra detail its
// children don't carry (criteria, predicate, grouping keys), so the tree is
// readable without cross-referencing field names.
func describeNode(node planner.PlanNode) string {
	switch n := node.(type) {
	case *planner.Filter:
		return fmt.Sprintf("Filter[%s]", n.Predicate.String())
	case *planner.Project:
		return fmt.Sprintf("Project%s", assignmentsOf(n))
	case *planner.Join:
		return fmt.Sprintf("%s %s", n.String(), criteriaOf(n))
	case *planner.TableScan:
		return n.String()
	default:
		return node.String()
	}
}

func assignmentsOf(p *planner.Project) string {
	parts := make([]string, len(p.Assignments))
	for i, a := range p.Assignments {
		parts[i] = fmt.Sprintf("%s=%s", a.Symbol.String(), a.Expression.String())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func criteriaOf(j *planner.Join) string {
	parts := make([]string, len(j.Criteria))
	for i, c := range j.Criteria {
		parts[i] = c.ToExpression().String()
	}
	extra := ""
	if j.Filter != nil {
		extra = " filter=" + j.Filter.String()
	}
	return "[" + strings.Join(parts, " AND ") + "]" + extra
}
