package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenarios S1-S7 are grounded directly on spec.md §8's end-to-end examples.

func TestS1FilterOverProjectInline(t *testing.T) {
	x := NewSymbol("x")
	a := NewSymbol("a")
	scan := NewTableScan(PlanNodeID("t1"), "t", []Symbol{x})
	sum := &FunctionCall{Function: FunctionIdentity{Name: "add"}, Arguments: []Expression{x.ToExpression(), intLit(1)}}
	project := NewProject(PlanNodeID("p1"), scan, []Assignment{{Symbol: a, Expression: sum}})
	filter := NewFilter(PlanNodeID("f1"), project, &Comparison{Operator: OpGT, Left: a.ToExpression(), Right: intLit(5)})

	result := newTestOptimizer().Optimize(filter, &Session{}, NewCounterSymbolAllocator(), NewCounterPlanNodeIDAllocator(), nil)

	proj, ok := result.(*Project)
	require.True(t, ok, "expected a Project at the top, got %T", result)
	pushed, ok := proj.Source.(*Filter)
	require.True(t, ok, "expected the Project's source to be a Filter, got %T", proj.Source)
	_, ok = pushed.Source.(*TableScan)
	assert.True(t, ok, "expected the pushed Filter's source to be the bare TableScan")
}

func TestTryConjunctNotInlinedThroughProjectAlias(t *testing.T) {
	x := NewSymbol("x")
	a := NewSymbol("a")
	scan := NewTableScan(PlanNodeID("t1"), "t", []Symbol{x})
	sum := &FunctionCall{Function: FunctionIdentity{Name: "add"}, Arguments: []Expression{x.ToExpression(), intLit(1)}}
	project := NewProject(PlanNodeID("p1"), scan, []Assignment{{Symbol: a, Expression: sum}})
	tryPred := &TryExpression{Body: &Comparison{Operator: OpGT, Left: a.ToExpression(), Right: intLit(5)}}
	filter := NewFilter(PlanNodeID("f1"), project, tryPred)

	result := newTestOptimizer().Optimize(filter, &Session{}, NewCounterSymbolAllocator(), NewCounterPlanNodeIDAllocator(), nil)

	f, ok := result.(*Filter)
	require.True(t, ok, "the TRY conjunct must stay above the Project, got %T", result)
	assert.Contains(t, f.Predicate.String(), "TRY(")
	proj, ok := f.Source.(*Project)
	require.True(t, ok, "expected the Filter's source to still be the Project, got %T", f.Source)
	_, ok = proj.Source.(*TableScan)
	assert.True(t, ok)
}

func TestS2LeftJoinNullRejection(t *testing.T) {
	lk := NewSymbol("l_k")
	rk := NewSymbol("r_k")
	ry := NewSymbol("r_y")
	lScan := NewTableScan(PlanNodeID("l"), "l", []Symbol{lk})
	rScan := NewTableScan(PlanNodeID("r"), "r", []Symbol{rk, ry})
	join := NewJoin(PlanNodeID("j"), LeftJoin, lScan, rScan, []EquiJoinClause{{Left: lk, Right: rk}}, nil, []Symbol{lk, rk, ry}, nil)
	filter := NewFilter(PlanNodeID("f"), join, &Comparison{Operator: OpGT, Left: ry.ToExpression(), Right: intLit(0)})

	result := newTestOptimizer().Optimize(filter, &Session{}, NewCounterSymbolAllocator(), NewCounterPlanNodeIDAllocator(), nil)

	newJoin := findJoin(result)
	require.NotNil(t, newJoin)
	assert.Equal(t, InnerJoin, newJoin.Type)
	assert.True(t, hasFilterOn(newJoin.Right, "r_y"), "r_y>0 should have pushed below the join on the right side")
}

func TestS3InnerJoinTransitiveEquality(t *testing.T) {
	lx := NewSymbol("l_x")
	rx := NewSymbol("r_x")
	lScan := NewTableScan(PlanNodeID("l"), "l", []Symbol{lx})
	rScan := NewTableScan(PlanNodeID("r"), "r", []Symbol{rx})
	join := NewJoin(PlanNodeID("j"), InnerJoin, lScan, rScan, []EquiJoinClause{{Left: lx, Right: rx}}, nil, []Symbol{lx, rx}, nil)
	filter := NewFilter(PlanNodeID("f"), join, &Comparison{Operator: OpEQ, Left: lx.ToExpression(), Right: intLit(5)})

	result := newTestOptimizer().Optimize(filter, &Session{}, NewCounterSymbolAllocator(), NewCounterPlanNodeIDAllocator(), nil)

	newJoin := findJoin(result)
	require.NotNil(t, newJoin)
	require.Len(t, newJoin.Criteria, 1, "the original equi-clause must survive the rewrite")
	assert.Equal(t, lx, newJoin.Criteria[0].Left)
	assert.Equal(t, rx, newJoin.Criteria[0].Right)
	assert.True(t, hasFilterOn(newJoin.Left, "l_x"), "l.x=5 should push to the left source")
	assert.True(t, hasFilterOn(newJoin.Right, "r_x"), "r.x=5 should push to the right source via the equi-clause")
}

func TestS4UnionSplitting(t *testing.T) {
	x1 := NewSymbol("x1")
	x2 := NewSymbol("x2")
	o := NewSymbol("o")
	s1 := NewTableScan(PlanNodeID("s1"), "s1", []Symbol{x1})
	s2 := NewTableScan(PlanNodeID("s2"), "s2", []Symbol{x2})
	union := NewUnion(PlanNodeID("u"), []PlanNode{s1, s2}, map[Symbol][]Symbol{o: {x1, x2}}, []Symbol{o})
	filter := NewFilter(PlanNodeID("f"), union, &Comparison{Operator: OpGT, Left: o.ToExpression(), Right: intLit(0)})

	result := newTestOptimizer().Optimize(filter, &Session{}, NewCounterSymbolAllocator(), NewCounterPlanNodeIDAllocator(), nil)

	u, ok := result.(*Union)
	require.True(t, ok, "expected a bare Union at the top (no residual filter), got %T", result)
	assert.True(t, hasFilterOn(u.Sources[0], "x1"))
	assert.True(t, hasFilterOn(u.Sources[1], "x2"))
}

func TestS5AggregationPushability(t *testing.T) {
	k := NewSymbol("k")
	v := NewSymbol("v")
	total := NewSymbol("total")
	src := NewTableScan(PlanNodeID("src"), "t", []Symbol{k, v})
	agg := NewAggregation(PlanNodeID("agg"), src, []Symbol{k}, [][]Symbol{{k}},
		[]AggregateExpr{{Output: total, Function: FunctionIdentity{Name: "sum"}, Args: []Expression{v.ToExpression()}}}, nil)
	pred := &LogicalExpression{Operator: LogicalAnd, Terms: []Expression{
		&Comparison{Operator: OpGT, Left: k.ToExpression(), Right: intLit(0)},
		&Comparison{Operator: OpGT, Left: total.ToExpression(), Right: intLit(10)},
	}}
	filter := NewFilter(PlanNodeID("f"), agg, pred)

	result := newTestOptimizer().Optimize(filter, &Session{}, NewCounterSymbolAllocator(), NewCounterPlanNodeIDAllocator(), nil)

	f, ok := result.(*Filter)
	require.True(t, ok, "expected a residual Filter above Aggregation for total>10, got %T", result)
	aggNode, ok := f.Source.(*Aggregation)
	require.True(t, ok)
	assert.True(t, hasFilterOn(aggNode.Source, "k"), "k>0 should push below the aggregation")
	assert.Contains(t, f.Predicate.String(), "total", "total>10 must stay above the aggregation")
}

func TestS6NonDeterministicRetention(t *testing.T) {
	x := NewSymbol("x")
	src := NewTableScan(PlanNodeID("t"), "t", []Symbol{x})
	randCall := &FunctionCall{Function: FunctionIdentity{Name: "rand"}}
	pred := &LogicalExpression{Operator: LogicalAnd, Terms: []Expression{
		&Comparison{Operator: OpLT, Left: randCall, Right: &Literal{Value: 0.5, Type: Type{Name: "double"}}},
		&Comparison{Operator: OpEQ, Left: x.ToExpression(), Right: intLit(3)},
	}}
	filter := NewFilter(PlanNodeID("f"), src, pred)

	result := newTestOptimizer().Optimize(filter, &Session{}, NewCounterSymbolAllocator(), NewCounterPlanNodeIDAllocator(), nil)

	f, ok := result.(*Filter)
	require.True(t, ok)
	assert.Contains(t, f.Predicate.String(), "rand", "the non-deterministic conjunct must survive")
	_, ok = f.Source.(*TableScan)
	assert.True(t, ok)
}

func TestS7SemiJoinFilteringForm(t *testing.T) {
	k1 := NewSymbol("k1")
	k2 := NewSymbol("k2")
	m := NewSymbol("m")
	src := NewTableScan(PlanNodeID("src"), "s", []Symbol{k1})
	filterSrc := NewTableScan(PlanNodeID("filt"), "f", []Symbol{k2})
	semi := NewSemiJoin(PlanNodeID("sj"), src, filterSrc, k1, k2, m)
	filter := NewFilter(PlanNodeID("f2"), semi, m.ToExpression())

	result := newTestOptimizer().Optimize(filter, &Session{}, NewCounterSymbolAllocator(), NewCounterPlanNodeIDAllocator(), nil)

	sj, ok := result.(*SemiJoin)
	require.True(t, ok, "the m conjunct must be absorbed, leaving a bare SemiJoin, got %T", result)
	_, srcIsScan := sj.Source.(*TableScan)
	assert.True(t, srcIsScan)
	_, filterIsScan := sj.FilteringSource.(*TableScan)
	assert.True(t, filterIsScan)
}

// --- Universal invariants (spec.md §8) --------------------------------------

func TestInvariantOutputSymbolPreservation(t *testing.T) {
	lx := NewSymbol("l_x")
	rx := NewSymbol("r_x")
	lScan := NewTableScan(PlanNodeID("l"), "l", []Symbol{lx})
	rScan := NewTableScan(PlanNodeID("r"), "r", []Symbol{rx})
	join := NewJoin(PlanNodeID("j"), InnerJoin, lScan, rScan, []EquiJoinClause{{Left: lx, Right: rx}}, nil, []Symbol{lx, rx}, nil)
	filter := NewFilter(PlanNodeID("f"), join, &Comparison{Operator: OpEQ, Left: lx.ToExpression(), Right: intLit(5)})

	result := newTestOptimizer().Optimize(filter, &Session{}, NewCounterSymbolAllocator(), NewCounterPlanNodeIDAllocator(), nil)

	assert.Equal(t, filter.OutputSymbols(), result.OutputSymbols())
}

func TestInvariantNoTrueFilters(t *testing.T) {
	x := NewSymbol("x")
	src := NewTableScan(PlanNodeID("t"), "t", []Symbol{x})
	filter := NewFilter(PlanNodeID("f"), src, TrueLiteral)

	result := newTestOptimizer().Optimize(filter, &Session{}, NewCounterSymbolAllocator(), NewCounterPlanNodeIDAllocator(), nil)

	for _, f := range collectFilters(result) {
		assert.False(t, IsTrue(f.Predicate), "no Filter in the output should carry a TRUE predicate")
	}
}

func TestInvariantIdempotence(t *testing.T) {
	x := NewSymbol("x")
	a := NewSymbol("a")
	scan := NewTableScan(PlanNodeID("t1"), "t", []Symbol{x})
	sum := &FunctionCall{Function: FunctionIdentity{Name: "add"}, Arguments: []Expression{x.ToExpression(), intLit(1)}}
	project := NewProject(PlanNodeID("p1"), scan, []Assignment{{Symbol: a, Expression: sum}})
	filter := NewFilter(PlanNodeID("f1"), project, &Comparison{Operator: OpGT, Left: a.ToExpression(), Right: intLit(5)})

	opt := newTestOptimizer()
	once := opt.Optimize(filter, &Session{}, NewCounterSymbolAllocator(), NewCounterPlanNodeIDAllocator(), nil)
	twice := opt.Optimize(once, &Session{}, NewCounterSymbolAllocator(), NewCounterPlanNodeIDAllocator(), nil)

	assert.Equal(t, once.String(), twice.String())
}

func TestInvariantDynamicFilterConsistency(t *testing.T) {
	lk := NewSymbol("l_k")
	rk := NewSymbol("r_k")
	lScan := NewTableScan(PlanNodeID("l"), "l", []Symbol{lk})
	rScan := NewTableScan(PlanNodeID("r"), "r", []Symbol{rk})
	join := NewJoin(PlanNodeID("j"), InnerJoin, lScan, rScan, []EquiJoinClause{{Left: lk, Right: rk}}, nil, []Symbol{lk, rk}, nil)

	opt := newTestOptimizer()
	result := opt.Optimize(join, &Session{EnableDynamicFiltering: true}, NewCounterSymbolAllocator(), NewCounterPlanNodeIDAllocator(), nil)

	for _, j := range collectJoins(result) {
		if j.Type != InnerJoin {
			assert.Empty(t, j.DynamicFilters, "only INNER joins may carry dynamic filters")
			continue
		}
		for id := range j.DynamicFilters {
			assert.True(t, hasFilterOn(j.Left, id), "dynamic filter %s must have a matching probe marker on the left", id)
		}
	}
}
