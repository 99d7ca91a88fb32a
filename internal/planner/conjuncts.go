package planner

import "sort"

// ExtractConjuncts flattens e into its top-level AND-conjuncts. A FALSE
// conjunct short-circuits the whole expression to [FALSE]; TRUE conjuncts
// are dropped.
func ExtractConjuncts(e Expression) []Expression {
	var out []Expression
	var walk func(Expression)
	walk = func(x Expression) {
		if and, ok := x.(*LogicalExpression); ok && and.Operator == LogicalAnd {
			for _, t := range and.Terms {
				walk(t)
			}
			return
		}
		if IsTrue(x) {
			return
		}
		out = append(out, x)
	}
	walk(e)
	for _, c := range out {
		if IsFalse(c) {
			return []Expression{FalseLiteral}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// CombineConjuncts recombines a conjunct list into a single expression.
// Empty list -> TRUE, singleton -> itself, otherwise an AND tree with
// syntactically identical conjuncts deduplicated.
func CombineConjuncts(conjuncts ...Expression) Expression {
	var flat []Expression
	for _, c := range conjuncts {
		flat = append(flat, ExtractConjuncts(c)...)
	}
	for _, c := range flat {
		if IsFalse(c) {
			return FalseLiteral
		}
	}
	seen := make(map[string]bool, len(flat))
	deduped := make([]Expression, 0, len(flat))
	for _, c := range flat {
		key := c.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, c)
	}
	switch len(deduped) {
	case 0:
		return TrueLiteral
	case 1:
		return deduped[0]
	default:
		return &LogicalExpression{Operator: LogicalAnd, Terms: deduped}
	}
}

// CombineConjunctsSlice is CombineConjuncts over a slice, for call sites
// that have already accumulated a []Expression.
func CombineConjunctsSlice(conjuncts []Expression) Expression {
	return CombineConjuncts(conjuncts...)
}

// IsDeterministic reports whether e, and every subexpression, is free of
// non-deterministic function calls. A TryExpression is deterministic iff its
// body is.
func IsDeterministic(e Expression, metadata Metadata) bool {
	deterministic := true
	Walk(e, func(x Expression) bool {
		if call, ok := x.(*FunctionCall); ok {
			if !metadata.IsDeterministic(call.Function) {
				deterministic = false
				return false
			}
		}
		return true
	})
	return deterministic
}

// FilterDeterministicConjuncts returns the combination of only the
// deterministic top-level conjuncts of e.
func FilterDeterministicConjuncts(e Expression, metadata Metadata) Expression {
	var kept []Expression
	for _, c := range ExtractConjuncts(e) {
		if IsDeterministic(c, metadata) {
			kept = append(kept, c)
		}
	}
	return CombineConjuncts(kept...)
}

// partitionDeterministic splits e's conjuncts into deterministic and
// non-deterministic groups, a pattern every per-operator rule in §4.4 uses
// to strip non-deterministic conjuncts before further analysis.
func partitionDeterministic(e Expression, metadata Metadata) (deterministic, nonDeterministic []Expression) {
	for _, c := range ExtractConjuncts(e) {
		if IsDeterministic(c, metadata) {
			deterministic = append(deterministic, c)
		} else {
			nonDeterministic = append(nonDeterministic, c)
		}
	}
	return
}

// InlineSymbols rewrites every SymbolReference in e found in mapping,
// recursing into every subtree except a TryExpression's body, which is left
// opaque.
func InlineSymbols(mapping map[Symbol]Expression, e Expression) Expression {
	switch x := e.(type) {
	case *SymbolReference:
		if repl, ok := mapping[x.Symbol()]; ok {
			return repl
		}
		return x
	case *Literal:
		return x
	case *Comparison:
		return &Comparison{Operator: x.Operator, Left: InlineSymbols(mapping, x.Left), Right: InlineSymbols(mapping, x.Right)}
	case *LogicalExpression:
		terms := make([]Expression, len(x.Terms))
		for i, t := range x.Terms {
			terms[i] = InlineSymbols(mapping, t)
		}
		return &LogicalExpression{Operator: x.Operator, Terms: terms}
	case *NotExpression:
		return &NotExpression{Value: InlineSymbols(mapping, x.Value)}
	case *FunctionCall:
		args := make([]Expression, len(x.Arguments))
		for i, a := range x.Arguments {
			args[i] = InlineSymbols(mapping, a)
		}
		return &FunctionCall{Function: x.Function, Arguments: args}
	case *Cast:
		return &Cast{Value: InlineSymbols(mapping, x.Value), Target: x.Target}
	case *TryExpression:
		// Try bodies are never rewritten: a symbol substitution could
		// change whether the body raises, which TRY is there to mask.
		return x
	default:
		return e
	}
}

// inlineSymbolReferences builds the SymbolReference-keyed form of a
// Symbol->Expression map, mirroring the original's habit of substituting
// with SymbolReference expressions for equality-bridge rewrites.
func inlineSymbolReferences(mapping map[Symbol]Symbol, e Expression) Expression {
	exprMapping := make(map[Symbol]Expression, len(mapping))
	for k, v := range mapping {
		exprMapping[k] = v.ToExpression()
	}
	return InlineSymbols(exprMapping, e)
}

// canonicalize puts e into a deterministic normal form: commutative
// comparison/logical operands are ordered by their String() form, and
// numeric/boolean constant subexpressions that are already literals pass
// through unchanged (the constant-folding half of canonicalization is the
// external ExpressionInterpreter's job; this function only reorders).
func canonicalize(e Expression) Expression {
	switch x := e.(type) {
	case *Comparison:
		left := canonicalize(x.Left)
		right := canonicalize(x.Right)
		if x.Operator.commutes() && left.String() > right.String() {
			return &Comparison{Operator: x.Operator, Left: right, Right: left}
		}
		if !x.Operator.commutes() && left.String() > right.String() {
			return &Comparison{Operator: x.Operator.flip(), Left: right, Right: left}
		}
		return &Comparison{Operator: x.Operator, Left: left, Right: right}
	case *LogicalExpression:
		terms := make([]Expression, len(x.Terms))
		for i, t := range x.Terms {
			terms[i] = canonicalize(t)
		}
		sort.Slice(terms, func(i, j int) bool { return terms[i].String() < terms[j].String() })
		return &LogicalExpression{Operator: x.Operator, Terms: terms}
	case *NotExpression:
		return &NotExpression{Value: canonicalize(x.Value)}
	case *FunctionCall:
		args := make([]Expression, len(x.Arguments))
		for i, a := range x.Arguments {
			args[i] = canonicalize(a)
		}
		return &FunctionCall{Function: x.Function, Arguments: args}
	case *Cast:
		return &Cast{Value: canonicalize(x.Value), Target: x.Target}
	default:
		return e
	}
}

// AreEquivalent reports whether e1 and e2 are structurally equal after
// canonicalization. This is the "cheap structural equality" the spec
// suggests as a substitute for reference comparison when deciding whether a
// rewrite changed anything (§9 open question (b)).
func AreEquivalent(e1, e2 Expression) bool {
	return canonicalize(e1).String() == canonicalize(e2).String()
}
