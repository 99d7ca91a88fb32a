package planner

// This file implements spec.md §4.5: detecting when an inherited predicate
// rejects NULLs from an outer join's null-producing side, which licenses
// downgrading that join to a narrower type before any predicate splitting
// happens. Grounded on the original's JoinNormalizer.java, generalized to
// the FULL case per SPEC_FULL.md §7.

// substituteNulls replaces every reference to a symbol in side with NULL.
func substituteNulls(e Expression, side SymbolSet) Expression {
	mapping := make(map[Symbol]Expression, len(side))
	for s := range side {
		mapping[s] = NullLiteral
	}
	return InlineSymbols(mapping, e)
}

// isNullRejecting reports whether predicate, with every symbol of side
// substituted by NULL, simplifies to FALSE or NULL for any of its
// deterministic conjuncts -- meaning a row where side is entirely NULL can
// never satisfy predicate.
func isNullRejecting(predicate Expression, side SymbolSet, metadata Metadata, interp ExpressionInterpreter) bool {
	for _, c := range ExtractConjuncts(predicate) {
		if !IsDeterministic(c, metadata) {
			continue
		}
		folded := interp.Optimize(substituteNulls(c, side))
		if IsFalse(folded) || IsNullLiteral(folded) {
			return true
		}
	}
	return false
}

// normalizeJoinType computes the narrowest join type the inherited
// predicate (combined with the effective predicate of the side that stays
// populated when the other side is null-padded) licenses for n,
// downgrading OUTER to INNER per spec.md §4.5 and, for FULL, to LEFT or
// RIGHT when only one side is proven null-rejecting (SPEC_FULL.md §7).
func (ctx *rewriteContext) normalizeJoinType(joinType JoinType, left, right PlanNode, inherited Expression) JoinType {
	leftSyms := NewSymbolSet(left.OutputSymbols()...)
	rightSyms := NewSymbolSet(right.OutputSymbols()...)

	switch joinType {
	case LeftJoin:
		leftEffective := FilterDeterministicConjuncts(ctx.effectivePredicates.Extract(left), ctx.metadata)
		if isNullRejecting(CombineConjuncts(inherited, leftEffective), rightSyms, ctx.metadata, ctx.interpreter) {
			return InnerJoin
		}
	case RightJoin:
		rightEffective := FilterDeterministicConjuncts(ctx.effectivePredicates.Extract(right), ctx.metadata)
		if isNullRejecting(CombineConjuncts(inherited, rightEffective), leftSyms, ctx.metadata, ctx.interpreter) {
			return InnerJoin
		}
	case FullJoin:
		leftEffective := FilterDeterministicConjuncts(ctx.effectivePredicates.Extract(left), ctx.metadata)
		rightEffective := FilterDeterministicConjuncts(ctx.effectivePredicates.Extract(right), ctx.metadata)
		leftRejecting := isNullRejecting(CombineConjuncts(inherited, rightEffective), leftSyms, ctx.metadata, ctx.interpreter)
		rightRejecting := isNullRejecting(CombineConjuncts(inherited, leftEffective), rightSyms, ctx.metadata, ctx.interpreter)
		switch {
		case leftRejecting && rightRejecting:
			return InnerJoin
		case leftRejecting:
			return LeftJoin
		case rightRejecting:
			return RightJoin
		}
	}
	return joinType
}
