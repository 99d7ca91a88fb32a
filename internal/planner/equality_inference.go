package planner

import "sort"

// EqualityInference is a value built from a set of source expressions,
// exposing Rewrite and GenerateEqualitiesPartitionedBy over the equivalence
// classes formed by their top-level deterministic equality conjuncts. No
// hidden global state: every instance is independent, grounded on the
// original's EqualityInference.java.
type EqualityInference struct {
	metadata Metadata
	parent   map[string]string
	members  map[string]Expression
}

// NewEqualityInference builds an inference from the union-find of every
// deterministic top-level equality conjunct across exprs.
func NewEqualityInference(metadata Metadata, exprs ...Expression) *EqualityInference {
	inf := &EqualityInference{metadata: metadata, parent: map[string]string{}, members: map[string]Expression{}}
	for _, e := range exprs {
		if e == nil {
			continue
		}
		for _, c := range ExtractConjuncts(e) {
			cmp, ok := c.(*Comparison)
			if !ok || cmp.Operator != OpEQ {
				continue
			}
			if !IsDeterministic(cmp, metadata) || containsTry(cmp) {
				continue
			}
			inf.union(cmp.Left, cmp.Right)
		}
	}
	return inf
}

func canonicalKey(e Expression) string { return canonicalize(e).String() }

func (inf *EqualityInference) ensure(key string, e Expression) {
	if _, ok := inf.parent[key]; !ok {
		inf.parent[key] = key
		inf.members[key] = e
	}
}

func (inf *EqualityInference) find(key string) string {
	if _, ok := inf.parent[key]; !ok {
		return ""
	}
	root := key
	for inf.parent[root] != root {
		root = inf.parent[root]
	}
	for inf.parent[key] != root {
		next := inf.parent[key]
		inf.parent[key] = root
		key = next
	}
	return root
}

func (inf *EqualityInference) union(a, b Expression) {
	ka, kb := canonicalKey(a), canonicalKey(b)
	inf.ensure(ka, a)
	inf.ensure(kb, b)
	ra, rb := inf.find(ka), inf.find(kb)
	if ra != rb {
		inf.parent[ra] = rb
	}
}

func (inf *EqualityInference) classMembers() map[string][]Expression {
	out := map[string][]Expression{}
	for k, e := range inf.members {
		root := inf.find(k)
		out[root] = append(out[root], e)
	}
	return out
}

// inScope reports whether every symbol free in e is contained in scope.
func inScope(e Expression, scope SymbolSet) bool {
	return scope.ContainsAll(ExtractSymbols(e).Sorted())
}

// pickRepresentative chooses the member with the shortest textual form,
// breaking ties lexicographically, keeping GenerateEqualitiesPartitionedBy's
// output stable across calls (spec.md §4.2, §9 open question (b)).
func pickRepresentative(members []Expression) Expression {
	best := members[0]
	bestKey := best.String()
	for _, m := range members[1:] {
		k := m.String()
		if len(k) < len(bestKey) || (len(k) == len(bestKey) && k < bestKey) {
			best = m
			bestKey = k
		}
	}
	return best
}

func dedupeExpressions(exprs []Expression) []Expression {
	seen := make(map[string]bool, len(exprs))
	out := make([]Expression, 0, len(exprs))
	for _, e := range exprs {
		k := e.String()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}

// Rewrite attempts to produce an expression equivalent to conjunct whose
// free symbols are all contained in scope, substituting each out-of-scope
// subexpression with an in-scope representative of its equivalence class.
// Non-deterministic conjuncts and those containing a Try-expression fail
// outright.
func (inf *EqualityInference) Rewrite(conjunct Expression, scope SymbolSet) (Expression, bool) {
	if !IsDeterministic(conjunct, inf.metadata) || containsTry(conjunct) {
		return nil, false
	}
	return inf.rewriteNode(conjunct, scope)
}

func (inf *EqualityInference) representativeInScope(e Expression, scope SymbolSet) (Expression, bool) {
	key := canonicalKey(e)
	if _, ok := inf.parent[key]; !ok {
		return nil, false
	}
	root := inf.find(key)
	var candidates []Expression
	for k, m := range inf.members {
		if inf.find(k) == root && inScope(m, scope) {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	return pickRepresentative(candidates), true
}

func (inf *EqualityInference) rewriteNode(e Expression, scope SymbolSet) (Expression, bool) {
	if inScope(e, scope) {
		return e, true
	}
	if repr, ok := inf.representativeInScope(e, scope); ok {
		return repr, true
	}
	switch x := e.(type) {
	case *SymbolReference:
		return nil, false
	case *Literal:
		return x, true
	case *Comparison:
		left, ok1 := inf.rewriteNode(x.Left, scope)
		right, ok2 := inf.rewriteNode(x.Right, scope)
		if !ok1 || !ok2 {
			return nil, false
		}
		return &Comparison{Operator: x.Operator, Left: left, Right: right}, true
	case *LogicalExpression:
		terms := make([]Expression, len(x.Terms))
		for i, t := range x.Terms {
			r, ok := inf.rewriteNode(t, scope)
			if !ok {
				return nil, false
			}
			terms[i] = r
		}
		return &LogicalExpression{Operator: x.Operator, Terms: terms}, true
	case *NotExpression:
		v, ok := inf.rewriteNode(x.Value, scope)
		if !ok {
			return nil, false
		}
		return &NotExpression{Value: v}, true
	case *FunctionCall:
		args := make([]Expression, len(x.Arguments))
		for i, a := range x.Arguments {
			r, ok := inf.rewriteNode(a, scope)
			if !ok {
				return nil, false
			}
			args[i] = r
		}
		return &FunctionCall{Function: x.Function, Arguments: args}, true
	case *Cast:
		v, ok := inf.rewriteNode(x.Value, scope)
		if !ok {
			return nil, false
		}
		return &Cast{Value: v, Target: x.Target}, true
	case *TryExpression:
		return nil, false
	default:
		return nil, false
	}
}

// GenerateEqualitiesPartitionedBy emits, for every equivalence class: one
// equality linking each in-scope member to the in-scope representative
// (scopeEqualities), the same for its out-of-scope members
// (complementEqualities), and at most one equality
// bridging an in-scope and out-of-scope representative (straddlingEqualities).
// Class iteration is sorted by root key so the result is stable across calls
// with the same inputs.
func (inf *EqualityInference) GenerateEqualitiesPartitionedBy(scope SymbolSet) (scopeEqualities, complementEqualities, straddlingEqualities []Expression) {
	classes := inf.classMembers()
	roots := make([]string, 0, len(classes))
	for r := range classes {
		roots = append(roots, r)
	}
	sort.Strings(roots)

	for _, root := range roots {
		members := dedupeExpressions(classes[root])
		var inScopeMembers, outScopeMembers []Expression
		for _, m := range members {
			if inScope(m, scope) {
				inScopeMembers = append(inScopeMembers, m)
			} else {
				outScopeMembers = append(outScopeMembers, m)
			}
		}
		if len(inScopeMembers) >= 2 {
			rep := pickRepresentative(inScopeMembers)
			for _, m := range inScopeMembers {
				if m.String() == rep.String() {
					continue
				}
				scopeEqualities = append(scopeEqualities, NewEquals(rep, m))
			}
		}
		if len(outScopeMembers) >= 2 {
			rep := pickRepresentative(outScopeMembers)
			for _, m := range outScopeMembers {
				if m.String() == rep.String() {
					continue
				}
				complementEqualities = append(complementEqualities, NewEquals(rep, m))
			}
		}
		if len(inScopeMembers) >= 1 && len(outScopeMembers) >= 1 {
			straddlingEqualities = append(straddlingEqualities, NewEquals(pickRepresentative(inScopeMembers), pickRepresentative(outScopeMembers)))
		}
	}
	return
}

// NonInferrableConjuncts returns e's top-level conjuncts that are not plain
// deterministic equalities, i.e. the ones an EqualityInference's union-find
// never absorbs and callers must still consider individually.
func NonInferrableConjuncts(e Expression, metadata Metadata) []Expression {
	var out []Expression
	for _, c := range ExtractConjuncts(e) {
		if cmp, ok := c.(*Comparison); ok && cmp.Operator == OpEQ && IsDeterministic(cmp, metadata) && !containsTry(cmp) {
			continue
		}
		out = append(out, c)
	}
	return out
}
