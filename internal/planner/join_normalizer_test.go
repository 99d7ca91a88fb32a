package planner

import (
	"testing"

	"github.com/dshills/pushdown/internal/log"
	"github.com/stretchr/testify/assert"
)

func newTestContext() *rewriteContext {
	metadata := NewStaticMetadata()
	return &rewriteContext{
		session:             &Session{},
		types:               NewStructuralTypeAnalyzer(nil),
		metadata:            metadata,
		effectivePredicates: &RangeEffectivePredicateExtractor{},
		interpreter:         NewConstantFoldInterpreter(metadata),
		literals:            SimpleLiteralEncoder{},
		symbols:             NewCounterSymbolAllocator(),
		ids:                 NewCounterPlanNodeIDAllocator(),
		warnings:            &SliceWarningCollector{},
		logger:              log.Default(),
	}
}

func TestIsNullRejectingTrueForComparisonOnSide(t *testing.T) {
	metadata := NewStaticMetadata()
	interp := NewConstantFoldInterpreter(metadata)
	y := NewSymbol("y")
	pred := &Comparison{Operator: OpGT, Left: y.ToExpression(), Right: intLit(0)}
	assert.True(t, isNullRejecting(pred, NewSymbolSet(y), metadata, interp))
}

func TestIsNullRejectingFalseWhenSideUnreferenced(t *testing.T) {
	metadata := NewStaticMetadata()
	interp := NewConstantFoldInterpreter(metadata)
	x := NewSymbol("x")
	y := NewSymbol("y")
	pred := &Comparison{Operator: OpGT, Left: x.ToExpression(), Right: intLit(0)}
	assert.False(t, isNullRejecting(pred, NewSymbolSet(y), metadata, interp))
}

func TestNormalizeJoinTypeLeftToInnerOnNullRejection(t *testing.T) {
	ctx := newTestContext()
	l := NewSymbol("l")
	r := NewSymbol("r")
	left := NewTableScan(PlanNodeID("l"), "l", []Symbol{l})
	right := NewTableScan(PlanNodeID("r"), "r", []Symbol{r})
	inherited := &Comparison{Operator: OpGT, Left: r.ToExpression(), Right: intLit(0)}

	assert.Equal(t, InnerJoin, ctx.normalizeJoinType(LeftJoin, left, right, inherited))
}

func TestNormalizeJoinTypeLeftUnchangedWithoutNullRejection(t *testing.T) {
	ctx := newTestContext()
	l := NewSymbol("l")
	r := NewSymbol("r")
	left := NewTableScan(PlanNodeID("l"), "l", []Symbol{l})
	right := NewTableScan(PlanNodeID("r"), "r", []Symbol{r})
	inherited := &Comparison{Operator: OpGT, Left: l.ToExpression(), Right: intLit(0)}

	assert.Equal(t, LeftJoin, ctx.normalizeJoinType(LeftJoin, left, right, inherited))
}

func TestNormalizeJoinTypeRightToInnerOnNullRejection(t *testing.T) {
	ctx := newTestContext()
	l := NewSymbol("l")
	r := NewSymbol("r")
	left := NewTableScan(PlanNodeID("l"), "l", []Symbol{l})
	right := NewTableScan(PlanNodeID("r"), "r", []Symbol{r})
	inherited := &Comparison{Operator: OpGT, Left: l.ToExpression(), Right: intLit(0)}

	assert.Equal(t, InnerJoin, ctx.normalizeJoinType(RightJoin, left, right, inherited))
}

func TestNormalizeJoinTypeFullToLeftWhenOnlyLeftRejects(t *testing.T) {
	ctx := newTestContext()
	l := NewSymbol("l")
	r := NewSymbol("r")
	left := NewTableScan(PlanNodeID("l"), "l", []Symbol{l})
	right := NewTableScan(PlanNodeID("r"), "r", []Symbol{r})
	inherited := &Comparison{Operator: OpGT, Left: l.ToExpression(), Right: intLit(0)}

	assert.Equal(t, LeftJoin, ctx.normalizeJoinType(FullJoin, left, right, inherited))
}

func TestNormalizeJoinTypeFullToInnerWhenBothReject(t *testing.T) {
	ctx := newTestContext()
	l := NewSymbol("l")
	r := NewSymbol("r")
	left := NewTableScan(PlanNodeID("l"), "l", []Symbol{l})
	right := NewTableScan(PlanNodeID("r"), "r", []Symbol{r})
	inherited := &LogicalExpression{Operator: LogicalAnd, Terms: []Expression{
		&Comparison{Operator: OpGT, Left: l.ToExpression(), Right: intLit(0)},
		&Comparison{Operator: OpGT, Left: r.ToExpression(), Right: intLit(0)},
	}}

	assert.Equal(t, InnerJoin, ctx.normalizeJoinType(FullJoin, left, right, inherited))
}

func TestNormalizeJoinTypeFullUnchangedWhenNeitherRejects(t *testing.T) {
	ctx := newTestContext()
	l := NewSymbol("l")
	r := NewSymbol("r")
	o := NewSymbol("o")
	left := NewTableScan(PlanNodeID("l"), "l", []Symbol{l})
	right := NewTableScan(PlanNodeID("r"), "r", []Symbol{r})
	inherited := &Comparison{Operator: OpGT, Left: o.ToExpression(), Right: intLit(0)}

	assert.Equal(t, FullJoin, ctx.normalizeJoinType(FullJoin, left, right, inherited))
}
