package planner

import "fmt"

// DynamicFilterExpr is the opaque probe-side marker spec.md §6 names
// DYNAMIC_FILTER(id, type, probe). It is never inspected by the rewriter
// once synthesized -- a downstream scan operator consumes it by FilterID --
// so it carries no children for InlineSymbols or canonicalize to recurse
// into.
type DynamicFilterExpr struct {
	FilterID string
	Type     Type
	Probe    *SymbolReference
}

func (d *DynamicFilterExpr) String() string {
	return fmt.Sprintf("DYNAMIC_FILTER(%s, %s)", d.FilterID, d.Probe.String())
}
func (d *DynamicFilterExpr) children() []Expression { return nil }

// SynthesizeDynamicFilters builds one probe-side marker per equi-join clause
// of an INNER join, per spec.md §4.4 step 6: each clause's right-hand
// (build) side symbol becomes a dynamicFilters entry, and a marker
// referencing the left-hand (probe) side is returned to fold into that
// join's left predicate. The id format ("df-" plus the allocated plan-node
// id) is not part of the correctness contract per spec.md §9(c); only the
// dynamicFilters map keying is.
func SynthesizeDynamicFilters(criteria []EquiJoinClause, types TypeAnalyzer, ids PlanNodeIDAllocator) ([]Expression, map[string]Symbol) {
	markers := make([]Expression, 0, len(criteria))
	filters := make(map[string]Symbol, len(criteria))
	for _, clause := range criteria {
		id := "df-" + string(ids.NextID())
		filters[id] = clause.Right
		probe := clause.Left.ToExpression()
		markers = append(markers, &DynamicFilterExpr{
			FilterID: id,
			Type:     types.GetType(probe),
			Probe:    probe,
		})
	}
	return markers, filters
}
