package planner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeDynamicFiltersOneMarkerPerClause(t *testing.T) {
	types := NewStructuralTypeAnalyzer(nil)
	ids := NewCounterPlanNodeIDAllocator()
	l1, r1 := NewSymbol("l1"), NewSymbol("r1")
	l2, r2 := NewSymbol("l2"), NewSymbol("r2")
	criteria := []EquiJoinClause{{Left: l1, Right: r1}, {Left: l2, Right: r2}}

	markers, filters := SynthesizeDynamicFilters(criteria, types, ids)

	require.Len(t, markers, 2)
	require.Len(t, filters, 2)
	for _, m := range markers {
		df, ok := m.(*DynamicFilterExpr)
		require.True(t, ok)
		assert.True(t, strings.HasPrefix(df.FilterID, "df-"))
		buildSide, ok := filters[df.FilterID]
		require.True(t, ok, "every marker's id must key the returned map")
		switch df.Probe.Symbol() {
		case l1:
			assert.Equal(t, r1, buildSide)
		case l2:
			assert.Equal(t, r2, buildSide)
		default:
			t.Fatalf("unexpected probe symbol %v", df.Probe.Symbol())
		}
	}
}

func TestSynthesizeDynamicFiltersEmptyForNoCriteria(t *testing.T) {
	types := NewStructuralTypeAnalyzer(nil)
	ids := NewCounterPlanNodeIDAllocator()

	markers, filters := SynthesizeDynamicFilters(nil, types, ids)

	assert.Empty(t, markers)
	assert.Empty(t, filters)
}

func TestSynthesizeDynamicFiltersDistinctIDs(t *testing.T) {
	types := NewStructuralTypeAnalyzer(nil)
	ids := NewCounterPlanNodeIDAllocator()
	criteria := []EquiJoinClause{
		{Left: NewSymbol("l1"), Right: NewSymbol("r1")},
		{Left: NewSymbol("l2"), Right: NewSymbol("r2")},
	}

	_, filters := SynthesizeDynamicFilters(criteria, types, ids)

	require.Len(t, filters, 2, "each clause must get its own dynamic filter id")
}
