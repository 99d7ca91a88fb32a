package planner

// Shared test scaffolding for the planner package's scenario and invariant
// tests: a standard collaborator set and small tree-walking helpers, since
// the rewriter's output shape varies (an identity Project may or may not
// wrap the result) and assertions need to search rather than pattern-match
// the very top node.

func newTestOptimizer() *Optimizer {
	metadata := NewStaticMetadata()
	types := NewStructuralTypeAnalyzer(map[string]Type{
		"add": {Name: "integer"},
		"sum": {Name: "integer"},
	})
	effective := &RangeEffectivePredicateExtractor{}
	interp := NewConstantFoldInterpreter(metadata)
	return NewOptimizer(metadata, types, effective, interp, SimpleLiteralEncoder{}, nil)
}

func intLit(v int) *Literal { return &Literal{Value: v, Type: Type{Name: "integer"}} }

// findJoin searches node and its descendants for the first *Join.
func findJoin(node PlanNode) *Join {
	if node == nil {
		return nil
	}
	if j, ok := node.(*Join); ok {
		return j
	}
	for _, c := range node.Children() {
		if j := findJoin(c); j != nil {
			return j
		}
	}
	return nil
}

// hasFilterOn reports whether node or any descendant is a Filter whose
// predicate string mentions substr.
func hasFilterOn(node PlanNode, substr string) bool {
	if node == nil {
		return false
	}
	if f, ok := node.(*Filter); ok && containsSubstr(f.Predicate.String(), substr) {
		return true
	}
	for _, c := range node.Children() {
		if hasFilterOn(c, substr) {
			return true
		}
	}
	return false
}

func containsSubstr(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// collectFilters returns every Filter node in the tree, for the TRUE-filter
// invariant check.
func collectFilters(node PlanNode) []*Filter {
	if node == nil {
		return nil
	}
	var out []*Filter
	if f, ok := node.(*Filter); ok {
		out = append(out, f)
	}
	for _, c := range node.Children() {
		out = append(out, collectFilters(c)...)
	}
	return out
}

func collectJoins(node PlanNode) []*Join {
	if node == nil {
		return nil
	}
	var out []*Join
	if j, ok := node.(*Join); ok {
		out = append(out, j)
	}
	for _, c := range node.Children() {
		out = append(out, collectJoins(c)...)
	}
	return out
}
