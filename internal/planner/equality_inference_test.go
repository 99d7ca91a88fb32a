package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualityInferenceRewriteUsesRepresentative(t *testing.T) {
	metadata := NewStaticMetadata()
	x := NewSymbol("x")
	y := NewSymbol("y")
	inf := NewEqualityInference(metadata, NewEquals(x.ToExpression(), y.ToExpression()))

	rewritten, ok := inf.Rewrite(y.ToExpression(), NewSymbolSet(x))
	require.True(t, ok)
	assert.Equal(t, "x", rewritten.String())
}

func TestEqualityInferenceRewriteFailsWithoutEquivalence(t *testing.T) {
	metadata := NewStaticMetadata()
	x := NewSymbol("x")
	z := NewSymbol("z")
	inf := NewEqualityInference(metadata, TrueLiteral)

	_, ok := inf.Rewrite(z.ToExpression(), NewSymbolSet(x))
	assert.False(t, ok)
}

func TestEqualityInferenceIgnoresTryEquality(t *testing.T) {
	metadata := NewStaticMetadata()
	x := NewSymbol("x")
	y := NewSymbol("y")
	inf := NewEqualityInference(metadata, NewEquals(&TryExpression{Body: x.ToExpression()}, y.ToExpression()))

	_, ok := inf.Rewrite(y.ToExpression(), NewSymbolSet(x))
	assert.False(t, ok, "an equality straddling a TRY body must never be absorbed into the union-find")
}

func TestEqualityInferenceGenerateEqualitiesPartitionedBy(t *testing.T) {
	metadata := NewStaticMetadata()
	x := NewSymbol("x")
	y := NewSymbol("y")
	z := NewSymbol("z")
	inf := NewEqualityInference(metadata,
		NewEquals(x.ToExpression(), y.ToExpression()),
		NewEquals(y.ToExpression(), z.ToExpression()),
	)

	scopeEq, complementEq, straddlingEq := inf.GenerateEqualitiesPartitionedBy(NewSymbolSet(x, y))

	require.Len(t, scopeEq, 1)
	assert.Equal(t, "(x = y)", scopeEq[0].String())
	assert.Empty(t, complementEq)
	require.Len(t, straddlingEq, 1)
	assert.Equal(t, "(x = z)", straddlingEq[0].String())
}

func TestEqualityInferenceRewriteRejectsNonDeterministic(t *testing.T) {
	metadata := NewStaticMetadata()
	x := NewSymbol("x")
	inf := NewEqualityInference(metadata, TrueLiteral)

	nonDet := &Comparison{Operator: OpLT, Left: &FunctionCall{Function: FunctionIdentity{Name: "rand"}}, Right: intLit(1)}
	_, ok := inf.Rewrite(nonDet, NewSymbolSet(x))
	assert.False(t, ok)
}

func TestNonInferrableConjunctsExcludesDeterministicEqualities(t *testing.T) {
	metadata := NewStaticMetadata()
	x := NewSymbol("x")
	y := NewSymbol("y")
	pred := CombineConjuncts(
		NewEquals(x.ToExpression(), y.ToExpression()),
		&Comparison{Operator: OpGT, Left: x.ToExpression(), Right: intLit(0)},
	)

	out := NonInferrableConjuncts(pred, metadata)
	require.Len(t, out, 1)
	assert.Equal(t, "(x > 0)", out[0].String())
}
