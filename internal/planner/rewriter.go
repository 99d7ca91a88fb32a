package planner

import (
	"fmt"

	"github.com/dshills/pushdown/internal/errors"
	"github.com/dshills/pushdown/internal/log"
)

// rewriteContext is the driver's per-Optimize-call state: the collaborators
// spec.md §6 names, plus the warning collector and logger. It carries no
// mutable state of its own beyond what the allocators hold -- the
// "inherited predicate" accumulator lives on the Go call stack as a
// parameter, per spec.md §4.3's "explicit top-down recursion with an
// accumulator parameter" design note, not as a field here.
type rewriteContext struct {
	session             *Session
	types               TypeAnalyzer
	metadata            Metadata
	effectivePredicates EffectivePredicateExtractor
	interpreter         ExpressionInterpreter
	literals            LiteralEncoder
	symbols             SymbolAllocator
	ids                 PlanNodeIDAllocator
	warnings            WarningCollector
	logger              log.Logger
}

// rewrite is the driver's dispatch: exhaustive matching on PlanNode's
// variant tag, replacing a virtual visitor per spec.md §9's design note.
// Wraps dispatch with a Debug log whenever the node actually changed,
// following the teacher's habit of logging plan transformations.
func (ctx *rewriteContext) rewrite(node PlanNode, inherited Expression) PlanNode {
	rewritten := ctx.dispatch(node, inherited)
	if rewritten != node {
		ctx.logger.Debug("rewrote plan node", log.String("type", node.String()), log.String("id", string(node.ID())))
	}
	return rewritten
}

func (ctx *rewriteContext) dispatch(node PlanNode, inherited Expression) PlanNode {
	switch n := node.(type) {
	case *Filter:
		return ctx.rewriteFilter(n, inherited)
	case *TableScan:
		return ctx.rewriteTableScan(n, inherited)
	case *Project:
		return ctx.rewriteProject(n, inherited)
	case *Window:
		return ctx.rewriteWindow(n, inherited)
	case *Aggregation:
		return ctx.rewriteAggregation(n, inherited)
	case *GroupId:
		return ctx.rewriteGroupId(n, inherited)
	case *MarkDistinct:
		return ctx.rewriteMarkDistinct(n, inherited)
	case *Union:
		return ctx.rewriteUnion(n, inherited)
	case *Exchange:
		return ctx.rewriteExchange(n, inherited)
	case *Sort:
		return ctx.rewriteTransparent(n, n.Source, inherited, func(src PlanNode) PlanNode {
			return NewSort(n.id, src, n.OrderBy)
		})
	case *Sample:
		return ctx.rewriteTransparent(n, n.Source, inherited, func(src PlanNode) PlanNode {
			return NewSample(n.id, src, n.Ratio)
		})
	case *AssignUniqueId:
		return ctx.rewriteAssignUniqueId(n, inherited)
	case *Unnest:
		return ctx.rewriteUnnest(n, inherited)
	case *Join:
		return ctx.rewriteJoin(n, inherited)
	case *SpatialJoin:
		return ctx.rewriteSpatialJoin(n, inherited)
	case *SemiJoin:
		return ctx.rewriteSemiJoin(n, inherited)
	default:
		return ctx.rewriteUnsupported(node, inherited)
	}
}

// wrapFilter constant-folds predicate and, unless it reduces to TRUE,
// materializes a Filter above source. TRUE filters are never materialized
// (spec.md §3 invariant).
func (ctx *rewriteContext) wrapFilter(source PlanNode, predicate Expression) PlanNode {
	simplified := ctx.interpreter.Optimize(predicate)
	if IsTrue(simplified) {
		return source
	}
	return NewFilter(ctx.ids.NextID(), source, simplified)
}

// rewriteTransparent pushes inherited through unchanged and rebuilds only
// if the child actually changed, used by Sort/Sample/AssignUniqueId -- the
// Non-goal carriers spec.md §1 names as never receiving their own pushdown
// logic.
func (ctx *rewriteContext) rewriteTransparent(n, source PlanNode, inherited Expression, rebuild func(PlanNode) PlanNode) PlanNode {
	newSource := ctx.rewrite(source, inherited)
	if newSource == source {
		return n
	}
	return rebuild(newSource)
}

// rewriteResidualOnly applies the residual-only policy: recurse on the
// source with TRUE, then wrap the result with a Filter carrying the
// inherited predicate. It is used for an Aggregation with an empty grouping
// set; a node variant the dispatch switch does not list goes to
// rewriteUnsupported instead, which wraps the node without recursing into
// its children.
func (ctx *rewriteContext) rewriteResidualOnly(n, source PlanNode, inherited Expression, rebuild func(PlanNode) PlanNode) PlanNode {
	newSource := ctx.rewrite(source, TrueLiteral)
	var result PlanNode = n
	if newSource != source {
		result = rebuild(newSource)
	}
	return ctx.wrapFilter(result, inherited)
}

func (ctx *rewriteContext) rewriteUnsupported(node PlanNode, inherited Expression) PlanNode {
	ctx.logger.Warn("unsupported plan node, applying default pushdown policy", log.String("node", node.String()))
	return ctx.wrapFilter(node, inherited)
}

// --- Filter -----------------------------------------------------------

func (ctx *rewriteContext) rewriteFilter(n *Filter, inherited Expression) PlanNode {
	combined := CombineConjuncts(n.Predicate, inherited)
	result := ctx.rewrite(n.Source, combined)
	if f, ok := result.(*Filter); ok && f.Source == n.Source && AreEquivalent(f.Predicate, n.Predicate) {
		return n
	}
	return result
}

// --- TableScan ----------------------------------------------------------

func (ctx *rewriteContext) rewriteTableScan(n *TableScan, inherited Expression) PlanNode {
	return ctx.wrapFilter(n, ctx.interpreter.Optimize(inherited))
}

// --- Project --------------------------------------------------------------

func isLiteralOrSymbolRef(e Expression) bool {
	switch e.(type) {
	case *Literal, *SymbolReference:
		return true
	default:
		return false
	}
}

// canInlineConjunct implements spec.md §4.4's Project rule: every
// child-output symbol the conjunct references must either map to a literal
// or bare symbol reference, or occur exactly once in the conjunct.
func canInlineConjunct(conjunct Expression, assignments map[Symbol]Expression) bool {
	if containsTry(conjunct) {
		return false
	}
	occurrences := map[Symbol]int{}
	for _, s := range ExtractSymbolsAll(conjunct) {
		occurrences[s]++
	}
	for s, count := range occurrences {
		expr, ok := assignments[s]
		if !ok {
			continue
		}
		if isLiteralOrSymbolRef(expr) {
			continue
		}
		if count != 1 {
			return false
		}
	}
	return true
}

func (ctx *rewriteContext) rewriteProject(n *Project, inherited Expression) PlanNode {
	det, nondet := partitionDeterministic(inherited, ctx.metadata)
	assignments := n.AssignmentMap()

	var inlinable, nonInlinable []Expression
	for _, c := range det {
		if canInlineConjunct(c, assignments) {
			inlinable = append(inlinable, c)
		} else {
			nonInlinable = append(nonInlinable, c)
		}
	}

	pushExprs := make([]Expression, len(inlinable))
	for i, c := range inlinable {
		inlined := InlineSymbols(assignments, c)
		inlined = canonicalize(inlined)
		inlined = UnwrapCasts(inlined)
		pushExprs[i] = inlined
	}

	newSource := ctx.rewrite(n.Source, CombineConjuncts(pushExprs...))
	var result PlanNode = n
	if newSource != n.Source {
		result = NewProject(n.id, newSource, n.Assignments)
	}
	residual := append(append([]Expression{}, nonInlinable...), nondet...)
	return ctx.wrapFilter(result, CombineConjuncts(residual...))
}

// --- Window --------------------------------------------------------------

func (ctx *rewriteContext) rewriteWindow(n *Window, inherited Expression) PlanNode {
	partitionBy := NewSymbolSet(n.PartitionBy...)
	var push, residual []Expression
	for _, c := range ExtractConjuncts(inherited) {
		if IsDeterministic(c, ctx.metadata) && partitionBy.ContainsAll(ExtractSymbols(c).Sorted()) {
			push = append(push, c)
		} else {
			residual = append(residual, c)
		}
	}
	newSource := ctx.rewrite(n.Source, CombineConjuncts(push...))
	var result PlanNode = n
	if newSource != n.Source {
		result = NewWindow(n.id, newSource, n.PartitionBy, n.output)
	}
	return ctx.wrapFilter(result, CombineConjuncts(residual...))
}

// --- Aggregation -----------------------------------------------------------

func (ctx *rewriteContext) rewriteAggregation(n *Aggregation, inherited Expression) PlanNode {
	if n.HasEmptyGroupingSet() {
		return ctx.rewriteResidualOnly(n, n.Source, inherited, func(src PlanNode) PlanNode {
			return NewAggregation(n.id, src, n.GroupingKeys, n.GroupingSets, n.Aggregations, n.GroupIDSymbol)
		})
	}

	groupingScope := NewSymbolSet(n.GroupingKeys...)
	var push, residual []Expression
	for _, c := range ExtractConjuncts(inherited) {
		if !IsDeterministic(c, ctx.metadata) {
			residual = append(residual, c)
			continue
		}
		if n.GroupIDSymbol != nil && ExtractSymbols(c).Contains(*n.GroupIDSymbol) {
			residual = append(residual, c)
			continue
		}
		if groupingScope.ContainsAll(ExtractSymbols(c).Sorted()) {
			push = append(push, c)
		} else {
			residual = append(residual, c)
		}
	}

	inf := NewEqualityInference(ctx.metadata, inherited)
	scopeEq, _, _ := inf.GenerateEqualitiesPartitionedBy(groupingScope)
	push = append(push, scopeEq...)

	newSource := ctx.rewrite(n.Source, CombineConjuncts(push...))
	var result PlanNode = n
	if newSource != n.Source {
		result = NewAggregation(n.id, newSource, n.GroupingKeys, n.GroupingSets, n.Aggregations, n.GroupIDSymbol)
	}
	return ctx.wrapFilter(result, CombineConjuncts(residual...))
}

// --- GroupId --------------------------------------------------------------

func (ctx *rewriteContext) rewriteGroupId(n *GroupId, inherited Expression) PlanNode {
	common := NewSymbolSet(n.CommonGroupingColumns...)
	rename := make(map[Symbol]Expression, len(n.GroupingColumns))
	for out, src := range n.GroupingColumns {
		if common.Contains(out) {
			rename[out] = src.ToExpression()
		}
	}

	var push, residual []Expression
	for _, c := range ExtractConjuncts(inherited) {
		if common.ContainsAll(ExtractSymbols(c).Sorted()) {
			push = append(push, InlineSymbols(rename, c))
		} else {
			residual = append(residual, c)
		}
	}

	newSource := ctx.rewrite(n.Source, CombineConjuncts(push...))
	var result PlanNode = n
	if newSource != n.Source {
		result = NewGroupId(n.id, newSource, n.GroupingColumns, n.CommonGroupingColumns, n.GroupIDSymbol, n.PassThroughSymbols)
	}
	return ctx.wrapFilter(result, CombineConjuncts(residual...))
}

// --- MarkDistinct ---------------------------------------------------------

func (ctx *rewriteContext) rewriteMarkDistinct(n *MarkDistinct, inherited Expression) PlanNode {
	distinct := NewSymbolSet(n.DistinctSymbols...)
	var push, residual []Expression
	for _, c := range ExtractConjuncts(inherited) {
		if distinct.ContainsAll(ExtractSymbols(c).Sorted()) {
			push = append(push, c)
		} else {
			residual = append(residual, c)
		}
	}
	newSource := ctx.rewrite(n.Source, CombineConjuncts(push...))
	var result PlanNode = n
	if newSource != n.Source {
		result = NewMarkDistinct(n.id, newSource, n.DistinctSymbols, n.MarkerSymbol)
	}
	return ctx.wrapFilter(result, CombineConjuncts(residual...))
}

// --- Union / Exchange -------------------------------------------------------

func (ctx *rewriteContext) rewriteUnion(n *Union, inherited Expression) PlanNode {
	newSources := make([]PlanNode, len(n.Sources))
	changed := false
	for i, src := range n.Sources {
		childPredicate := inlineSymbolReferences(n.SourceSymbolMap(i), inherited)
		ns := ctx.rewrite(src, childPredicate)
		newSources[i] = ns
		changed = changed || ns != src
	}
	if !changed {
		return n
	}
	return NewUnion(n.id, newSources, n.SymbolMapping, n.Output)
}

func (ctx *rewriteContext) rewriteExchange(n *Exchange, inherited Expression) PlanNode {
	newSources := make([]PlanNode, len(n.Sources))
	changed := false
	for i, src := range n.Sources {
		childPredicate := inlineSymbolReferences(n.SourceSymbolMap(i), inherited)
		ns := ctx.rewrite(src, childPredicate)
		newSources[i] = ns
		changed = changed || ns != src
	}
	if !changed {
		return n
	}
	return NewExchange(n.id, newSources, n.Inputs, n.outputSymbols)
}

// --- AssignUniqueId ---------------------------------------------------------

func (ctx *rewriteContext) rewriteAssignUniqueId(n *AssignUniqueId, inherited Expression) PlanNode {
	if ExtractSymbols(inherited).Contains(n.IDColumn) {
		panic(errors.InvariantViolationError(fmt.Sprintf("inherited predicate references AssignUniqueId's id column %q", n.IDColumn.Name)))
	}
	return ctx.rewriteTransparent(n, n.Source, inherited, func(src PlanNode) PlanNode {
		return NewAssignUniqueId(n.id, src, n.IDColumn)
	})
}

// --- Unnest -----------------------------------------------------------------

func (ctx *rewriteContext) rewriteUnnest(n *Unnest, inherited Expression) PlanNode {
	if n.JoinType == RightJoin || n.JoinType == FullJoin {
		newSource := ctx.rewrite(n.Source, TrueLiteral)
		var result PlanNode = n
		if newSource != n.Source {
			result = NewUnnest(n.id, newSource, n.ReplicateSymbols, n.UnnestSymbols, n.JoinType, n.Filter, n.output)
		}
		return ctx.wrapFilter(result, inherited)
	}

	replicate := NewSymbolSet(n.ReplicateSymbols...)
	det, nondet := partitionDeterministic(inherited, ctx.metadata)
	var push, residual []Expression
	for _, c := range det {
		if replicate.ContainsAll(ExtractSymbols(c).Sorted()) {
			push = append(push, c)
		} else {
			residual = append(residual, c)
		}
	}
	residual = append(residual, nondet...)

	newSource := ctx.rewrite(n.Source, CombineConjuncts(push...))
	var result PlanNode = n
	if newSource != n.Source {
		result = NewUnnest(n.id, newSource, n.ReplicateSymbols, n.UnnestSymbols, n.JoinType, n.Filter, n.output)
	}
	return ctx.wrapFilter(result, CombineConjuncts(residual...))
}

// --- Join helpers shared by INNER/OUTER/Spatial join rules -------------------

func identityAssignments(symbols []Symbol) []Assignment {
	out := make([]Assignment, len(symbols))
	for i, s := range symbols {
		out[i] = Assignment{Symbol: s, Expression: s.ToExpression()}
	}
	return out
}

func sameSymbolList(a, b []Symbol) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// materializeSymbol returns e's symbol if it is already a bare reference,
// else mints a fresh one and records the assignment needed to materialize
// it via a Project above the owning child (spec.md §4.4 Join step 5).
func materializeSymbol(e Expression, alloc SymbolAllocator, types TypeAnalyzer, extra *[]Assignment) Symbol {
	if ref, ok := e.(*SymbolReference); ok {
		return ref.Symbol()
	}
	s := alloc.NewSymbol(e, types.GetType(e))
	*extra = append(*extra, Assignment{Symbol: s, Expression: e})
	return s
}

// splitEquiSides checks whether cmp's two sides each lie wholly within one
// child's output and differ by side, materializing a non-symbol side via a
// fresh Project assignment on that side's extra-assignments slice.
func splitEquiSides(cmp *Comparison, leftSyms, rightSyms SymbolSet, alloc SymbolAllocator, types TypeAnalyzer, leftExtra, rightExtra *[]Assignment) (left, right Symbol, ok bool) {
	aSyms := ExtractSymbols(cmp.Left).Sorted()
	bSyms := ExtractSymbols(cmp.Right).Sorted()
	side := func(syms []Symbol) string {
		if len(syms) == 0 {
			return ""
		}
		if leftSyms.ContainsAll(syms) {
			return "left"
		}
		if rightSyms.ContainsAll(syms) {
			return "right"
		}
		return ""
	}
	aSide, bSide := side(aSyms), side(bSyms)
	if aSide == "" || bSide == "" || aSide == bSide {
		return Symbol{}, Symbol{}, false
	}
	leftExpr, rightExpr := cmp.Left, cmp.Right
	if aSide == "right" {
		leftExpr, rightExpr = cmp.Right, cmp.Left
	}
	return materializeSymbol(leftExpr, alloc, types, leftExtra),
		materializeSymbol(rightExpr, alloc, types, rightExtra),
		true
}

// rederiveEquiClauses scans predicate's conjuncts for deterministic equi
// clauses splitting cleanly across leftSyms/rightSyms; the rest become the
// join's residual filter (spec.md §4.4 Join step 5).
func rederiveEquiClauses(predicate Expression, leftSyms, rightSyms SymbolSet, alloc SymbolAllocator, types TypeAnalyzer, metadata Metadata) (criteria []EquiJoinClause, filterConjuncts []Expression, leftExtra, rightExtra []Assignment) {
	for _, c := range ExtractConjuncts(predicate) {
		if cmp, ok := c.(*Comparison); ok && cmp.Operator == OpEQ && IsDeterministic(cmp, metadata) {
			l, r, ok := splitEquiSides(cmp, leftSyms, rightSyms, alloc, types, &leftExtra, &rightExtra)
			if ok {
				criteria = append(criteria, EquiJoinClause{Left: l, Right: r})
				continue
			}
		}
		filterConjuncts = append(filterConjuncts, c)
	}
	return
}

func applyExtraProjects(ctx *rewriteContext, node PlanNode, extra []Assignment) PlanNode {
	if len(extra) == 0 {
		return node
	}
	assignments := append(identityAssignments(node.OutputSymbols()), extra...)
	return NewProject(ctx.ids.NextID(), node, assignments)
}

// --- Join (INNER/LEFT/RIGHT/FULL) -------------------------------------------

func (ctx *rewriteContext) rewriteJoin(n *Join, inherited Expression) PlanNode {
	newType := ctx.normalizeJoinType(n.Type, n.Left, n.Right, inherited)
	if newType != n.Type {
		ctx.logger.Warn("normalized outer join to a narrower type", log.String("from", n.Type.String()), log.String("to", newType.String()))
		ctx.warnings.Add(fmt.Sprintf("join %s normalized %s -> %s", n.id, n.Type, newType))
	}

	leftEffective := FilterDeterministicConjuncts(ctx.effectivePredicates.Extract(n.Left), ctx.metadata)
	rightEffective := FilterDeterministicConjuncts(ctx.effectivePredicates.Extract(n.Right), ctx.metadata)

	joinPredicateConjuncts := make([]Expression, 0, len(n.Criteria)+1)
	for _, c := range n.Criteria {
		joinPredicateConjuncts = append(joinPredicateConjuncts, c.ToExpression())
	}
	if n.Filter != nil {
		joinPredicateConjuncts = append(joinPredicateConjuncts, ExtractConjuncts(n.Filter)...)
	}
	joinPredicate := CombineConjuncts(joinPredicateConjuncts...)

	var leftPredicate, rightPredicate, newJoinPredicateRaw, postJoin Expression
	switch newType {
	case InnerJoin:
		leftPredicate, rightPredicate, newJoinPredicateRaw, postJoin = ctx.processInnerJoin(n.Left, n.Right, inherited, joinPredicate, leftEffective, rightEffective)
	case LeftJoin:
		leftPredicate, rightPredicate, newJoinPredicateRaw, postJoin = ctx.processLimitedOuterJoin(n.Left, n.Right, inherited, joinPredicate, leftEffective, rightEffective)
	case RightJoin:
		rightPredicate, leftPredicate, newJoinPredicateRaw, postJoin = ctx.processLimitedOuterJoin(n.Right, n.Left, inherited, joinPredicate, rightEffective, leftEffective)
	case FullJoin:
		leftPredicate, rightPredicate = TrueLiteral, TrueLiteral
		newJoinPredicateRaw = joinPredicate
		postJoin = inherited
	default:
		panic(errors.FeatureNotSupportedError(fmt.Sprintf("join type %v", newType)))
	}

	newJoinPredicate := ctx.interpreter.Optimize(newJoinPredicateRaw)
	if IsFalse(newJoinPredicate) {
		newJoinPredicate = NewEquals(&Literal{Value: 0, Type: Type{Name: "integer"}}, &Literal{Value: 1, Type: Type{Name: "integer"}})
		ctx.warnings.Add(fmt.Sprintf("join %s predicate folded to FALSE; replaced with a non-literal always-false comparison", n.id))
	}

	leftSyms := NewSymbolSet(n.Left.OutputSymbols()...)
	rightSyms := NewSymbolSet(n.Right.OutputSymbols()...)
	derivedCriteria, filterConjuncts, leftExtra, rightExtra := rederiveEquiClauses(newJoinPredicate, leftSyms, rightSyms, ctx.symbols, ctx.types, ctx.metadata)

	// n.Criteria's symbols stay valid regardless of what happened to the
	// inherited/join predicate -- pushdown never renames an existing output
	// symbol, only adds new materialized ones (applyExtraProjects). The
	// original equi-clauses were consumed into the equality classes above,
	// so newJoinPredicate may carry them back as straddling equalities or
	// may not (e.g. when the class also holds a literal); the derived
	// clauses are only ever ADDED on top of the originals, skipping any
	// clause already present.
	newCriteria := append([]EquiJoinClause{}, n.Criteria...)
	seenCriteria := make(map[EquiJoinClause]bool, len(newCriteria))
	for _, c := range newCriteria {
		seenCriteria[c] = true
	}
	for _, c := range derivedCriteria {
		if !seenCriteria[c] {
			newCriteria = append(newCriteria, c)
			seenCriteria[c] = true
		}
	}

	var dynamicFilters map[string]Symbol
	if newType == InnerJoin && ctx.session != nil && ctx.session.EnableDynamicFiltering && len(newCriteria) > 0 {
		markers, df := SynthesizeDynamicFilters(newCriteria, ctx.types, ctx.ids)
		dynamicFilters = df
		leftPredicate = CombineConjuncts(leftPredicate, CombineConjuncts(markers...))
	}

	if newType == InnerJoin && len(filterConjuncts) > 0 && len(newCriteria) == 0 {
		postJoin = CombineConjuncts(postJoin, CombineConjuncts(filterConjuncts...))
		filterConjuncts = nil
	}

	var newFilter Expression
	if len(filterConjuncts) > 0 {
		newFilter = CombineConjuncts(filterConjuncts...)
	}

	newLeft := ctx.rewrite(n.Left, leftPredicate)
	newRight := ctx.rewrite(n.Right, rightPredicate)
	newLeft = applyExtraProjects(ctx, newLeft, leftExtra)
	newRight = applyExtraProjects(ctx, newRight, rightExtra)

	newOutputSymbols := append(append([]Symbol{}, newLeft.OutputSymbols()...), newRight.OutputSymbols()...)
	newJoin := NewJoin(n.id, newType, newLeft, newRight, newCriteria, newFilter, newOutputSymbols, dynamicFilters)
	var result PlanNode = newJoin
	if !sameSymbolList(newOutputSymbols, n.outputSymbols) {
		result = NewIdentityProject(ctx.ids.NextID(), newJoin, n.outputSymbols)
	}
	return ctx.wrapFilter(result, postJoin)
}

// processInnerJoin implements spec.md §4.4's processInnerJoin: produces
// (leftPush, rightPush, joinResidual, postJoin=TRUE).
func (ctx *rewriteContext) processInnerJoin(left, right PlanNode, inherited, joinPredicate, leftEffective, rightEffective Expression) (leftPush, rightPush, joinResidual, postJoin Expression) {
	leftSyms := NewSymbolSet(left.OutputSymbols()...)
	rightSyms := NewSymbolSet(right.OutputSymbols()...)

	det, nondetInherited := partitionDeterministic(inherited, ctx.metadata)
	detJoin, nondetJoin := partitionDeterministic(joinPredicate, ctx.metadata)
	detExpr := CombineConjuncts(det...)
	detJoinExpr := CombineConjuncts(detJoin...)

	var residual []Expression
	residual = append(residual, nondetInherited...)
	residual = append(residual, nondetJoin...)

	inheritedInference := NewEqualityInference(ctx.metadata, detExpr)
	simplifiedLeftEffective := simplifyEffective(leftEffective, inheritedInference, leftSyms)
	simplifiedRightEffective := simplifyEffective(rightEffective, inheritedInference, rightSyms)

	allInference := NewEqualityInference(ctx.metadata, detExpr, leftEffective, rightEffective, detJoinExpr, simplifiedLeftEffective, simplifiedRightEffective)
	allInferenceWithoutLeft := NewEqualityInference(ctx.metadata, detExpr, rightEffective, detJoinExpr, simplifiedRightEffective)
	allInferenceWithoutRight := NewEqualityInference(ctx.metadata, detExpr, leftEffective, detJoinExpr, simplifiedLeftEffective)

	var left_, right_ []Expression
	scopeEqLeft, _, _ := allInferenceWithoutLeft.GenerateEqualitiesPartitionedBy(leftSyms)
	left_ = append(left_, scopeEqLeft...)
	scopeEqRight, _, _ := allInferenceWithoutRight.GenerateEqualitiesPartitionedBy(rightSyms)
	right_ = append(right_, scopeEqRight...)
	_, _, straddling := allInference.GenerateEqualitiesPartitionedBy(leftSyms)
	residual = append(residual, straddling...)

	for _, c := range NonInferrableConjuncts(detExpr, ctx.metadata) {
		pushed := false
		if r, ok := allInference.Rewrite(c, leftSyms); ok {
			left_ = append(left_, r)
			pushed = true
		}
		if r, ok := allInference.Rewrite(c, rightSyms); ok {
			right_ = append(right_, r)
			pushed = true
		}
		if !pushed {
			residual = append(residual, c)
		}
	}

	for _, c := range ExtractConjuncts(simplifiedRightEffective) {
		if r, ok := allInference.Rewrite(c, leftSyms); ok {
			left_ = append(left_, r)
		}
	}
	for _, c := range ExtractConjuncts(simplifiedLeftEffective) {
		if r, ok := allInference.Rewrite(c, rightSyms); ok {
			right_ = append(right_, r)
		}
	}

	for _, c := range NonInferrableConjuncts(detJoinExpr, ctx.metadata) {
		if r, ok := allInference.Rewrite(c, leftSyms); ok {
			left_ = append(left_, r)
			continue
		}
		if r, ok := allInference.Rewrite(c, rightSyms); ok {
			right_ = append(right_, r)
			continue
		}
		residual = append(residual, c)
	}

	return CombineConjuncts(left_...), CombineConjuncts(right_...), CombineConjuncts(residual...), TrueLiteral
}

// simplifyEffective rewrites each of effective's conjuncts through
// inheritedInference into scope, inlining any inherited constants the
// effective predicate can absorb; a conjunct that cannot be rewritten is
// kept as-is.
func simplifyEffective(effective Expression, inheritedInference *EqualityInference, scope SymbolSet) Expression {
	var out []Expression
	for _, c := range ExtractConjuncts(effective) {
		if r, ok := inheritedInference.Rewrite(c, scope); ok {
			out = append(out, r)
		} else {
			out = append(out, c)
		}
	}
	return CombineConjuncts(out...)
}

// processLimitedOuterJoin implements spec.md §4.4's processLimitedOuterJoin:
// the null-preserving split for LEFT/RIGHT joins, called with outer/inner
// already oriented to the join's null-producing side.
func (ctx *rewriteContext) processLimitedOuterJoin(outer, inner PlanNode, inherited, joinPredicate, outerEffective, innerEffective Expression) (outerPush, innerPush, joinResidual, postJoin Expression) {
	outerSyms := NewSymbolSet(outer.OutputSymbols()...)
	innerSyms := NewSymbolSet(inner.OutputSymbols()...)

	det, nondet := partitionDeterministic(inherited, ctx.metadata)
	detExpr := CombineConjuncts(det...)

	var outerP, innerP, residual, post []Expression
	post = append(post, nondet...)

	inheritedInference := NewEqualityInference(ctx.metadata, detExpr)
	outerInference := NewEqualityInference(ctx.metadata, detExpr, outerEffective)

	outerOnlyEq, _, _ := inheritedInference.GenerateEqualitiesPartitionedBy(outerSyms)
	outerOnlyExpr := CombineConjuncts(outerOnlyEq...)

	nullSafeInference := NewEqualityInference(ctx.metadata, outerOnlyExpr, outerEffective, innerEffective, joinPredicate)
	nullSafeInferenceWithoutInner := NewEqualityInference(ctx.metadata, outerOnlyExpr, outerEffective, joinPredicate)

	scopeEqInner, _, _ := nullSafeInferenceWithoutInner.GenerateEqualitiesPartitionedBy(innerSyms)
	innerP = append(innerP, scopeEqInner...)

	joinPredicateInference := NewEqualityInference(ctx.metadata, joinPredicate)
	jpScopeEq, jpComplementEq, jpStraddlingEq := joinPredicateInference.GenerateEqualitiesPartitionedBy(innerSyms)
	innerP = append(innerP, jpScopeEq...)
	residual = append(residual, jpComplementEq...)
	residual = append(residual, jpStraddlingEq...)

	outerEq, outerComplementEq, outerStraddlingEq := inheritedInference.GenerateEqualitiesPartitionedBy(outerSyms)
	outerP = append(outerP, outerEq...)
	post = append(post, outerComplementEq...)
	post = append(post, outerStraddlingEq...)

	for _, c := range NonInferrableConjuncts(detExpr, ctx.metadata) {
		r, ok := outerInference.Rewrite(c, outerSyms)
		if !ok {
			post = append(post, c)
			continue
		}
		outerP = append(outerP, r)
		if r2, ok2 := nullSafeInference.Rewrite(r, innerSyms); ok2 {
			innerP = append(innerP, r2)
		}
	}

	for _, c := range NonInferrableConjuncts(outerEffective, ctx.metadata) {
		if r, ok := nullSafeInference.Rewrite(c, innerSyms); ok {
			innerP = append(innerP, r)
		}
	}

	for _, c := range NonInferrableConjuncts(joinPredicate, ctx.metadata) {
		if r, ok := nullSafeInference.Rewrite(c, innerSyms); ok {
			innerP = append(innerP, r)
		} else {
			residual = append(residual, c)
		}
	}

	return CombineConjuncts(outerP...), CombineConjuncts(innerP...), CombineConjuncts(residual...), CombineConjuncts(post...)
}

// --- SemiJoin ---------------------------------------------------------------

func (ctx *rewriteContext) rewriteSemiJoin(n *SemiJoin, inherited Expression) PlanNode {
	if !ExtractSymbols(inherited).Contains(n.SemiOutput) {
		return ctx.rewriteNonFilteringSemiJoin(n, inherited)
	}
	return ctx.rewriteFilteringSemiJoin(n, inherited)
}

func (ctx *rewriteContext) rewriteNonFilteringSemiJoin(n *SemiJoin, inherited Expression) PlanNode {
	newFilteringSource := ctx.rewrite(n.FilteringSource, TrueLiteral)

	sourceSyms := NewSymbolSet(n.Source.OutputSymbols()...)
	inf := NewEqualityInference(ctx.metadata, inherited)
	var push, residual []Expression
	for _, c := range ExtractConjuncts(inherited) {
		if r, ok := inf.Rewrite(c, sourceSyms); ok {
			push = append(push, r)
		} else {
			residual = append(residual, c)
		}
	}
	scopeEq, _, _ := inf.GenerateEqualitiesPartitionedBy(sourceSyms)
	push = append(push, scopeEq...)

	newSource := ctx.rewrite(n.Source, CombineConjuncts(push...))
	var result PlanNode = n
	if newSource != n.Source || newFilteringSource != n.FilteringSource {
		result = NewSemiJoin(n.id, newSource, newFilteringSource, n.SourceKey, n.FilterKey, n.SemiOutput)
	}
	return ctx.wrapFilter(result, CombineConjuncts(residual...))
}

func (ctx *rewriteContext) rewriteFilteringSemiJoin(n *SemiJoin, inherited Expression) PlanNode {
	joinExpr := NewEquals(n.SourceKey.ToExpression(), n.FilterKey.ToExpression())
	sourceEffective := FilterDeterministicConjuncts(ctx.effectivePredicates.Extract(n.Source), ctx.metadata)
	filterEffective := FilterDeterministicConjuncts(ctx.effectivePredicates.Extract(n.FilteringSource), ctx.metadata)
	allInference := NewEqualityInference(ctx.metadata, inherited, sourceEffective, filterEffective, joinExpr)

	sourceSyms := NewSymbolSet(n.Source.OutputSymbols()...)
	filterSyms := NewSymbolSet(n.FilteringSource.OutputSymbols()...)

	var sourcePush, filterPush, postJoin []Expression
	for _, c := range ExtractConjuncts(inherited) {
		if ref, ok := c.(*SymbolReference); ok && ref.Symbol() == n.SemiOutput {
			// Absorbed: the SemiJoin node itself already encodes this check.
			continue
		}
		syms := ExtractSymbols(c).Sorted()
		if sourceSyms.ContainsAll(syms) {
			sourcePush = append(sourcePush, c)
			continue
		}
		if IsDeterministic(c, ctx.metadata) && filterSyms.ContainsAll(syms) {
			filterPush = append(filterPush, c)
			continue
		}
		postJoin = append(postJoin, c)
	}

	scopeEqSource, _, _ := allInference.GenerateEqualitiesPartitionedBy(sourceSyms)
	sourcePush = append(sourcePush, scopeEqSource...)
	scopeEqFilter, _, _ := allInference.GenerateEqualitiesPartitionedBy(filterSyms)
	filterPush = append(filterPush, scopeEqFilter...)

	newSource := ctx.rewrite(n.Source, CombineConjuncts(sourcePush...))
	newFilteringSource := ctx.rewrite(n.FilteringSource, CombineConjuncts(filterPush...))
	var result PlanNode = n
	if newSource != n.Source || newFilteringSource != n.FilteringSource {
		result = NewSemiJoin(n.id, newSource, newFilteringSource, n.SourceKey, n.FilterKey, n.SemiOutput)
	}
	return ctx.wrapFilter(result, CombineConjuncts(postJoin...))
}

// --- SpatialJoin -------------------------------------------------------------

func (ctx *rewriteContext) rewriteSpatialJoin(n *SpatialJoin, inherited Expression) PlanNode {
	newType := n.Type
	if n.Type == LeftJoin {
		newType = ctx.normalizeJoinType(LeftJoin, n.Left, n.Right, inherited)
	}

	leftEffective := FilterDeterministicConjuncts(ctx.effectivePredicates.Extract(n.Left), ctx.metadata)
	rightEffective := FilterDeterministicConjuncts(ctx.effectivePredicates.Extract(n.Right), ctx.metadata)

	var leftPredicate, rightPredicate, newFilterRaw, postJoin Expression
	if newType == InnerJoin {
		leftPredicate, rightPredicate, newFilterRaw, postJoin = ctx.processInnerJoin(n.Left, n.Right, inherited, n.Filter, leftEffective, rightEffective)
	} else {
		leftPredicate, rightPredicate, newFilterRaw, postJoin = ctx.processLimitedOuterJoin(n.Left, n.Right, inherited, n.Filter, leftEffective, rightEffective)
	}

	newFilter := ctx.interpreter.Optimize(newFilterRaw)
	if IsFalse(newFilter) {
		panic(errors.InvariantViolationError("spatial join lost its predicate during rewrite"))
	}

	newLeft := ctx.rewrite(n.Left, leftPredicate)
	newRight := ctx.rewrite(n.Right, rightPredicate)
	newOutputSymbols := append(append([]Symbol{}, newLeft.OutputSymbols()...), newRight.OutputSymbols()...)
	newNode := NewSpatialJoin(n.id, newType, newLeft, newRight, newFilter, newOutputSymbols)
	var result PlanNode = newNode
	if !sameSymbolList(newOutputSymbols, n.outputSymbols) {
		result = NewIdentityProject(ctx.ids.NextID(), newNode, n.outputSymbols)
	}
	return ctx.wrapFilter(result, postJoin)
}
