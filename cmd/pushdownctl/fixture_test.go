package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/pushdown/internal/planner"
)

func TestDecodeNodeTableScan(t *testing.T) {
	raw := json.RawMessage(`{"type":"table_scan","table":"t","columns":["x","y"]}`)
	node, err := decodeNode(raw, UUIDPlanNodeIDAllocator{})
	require.NoError(t, err)

	scan, ok := node.(*planner.TableScan)
	require.True(t, ok)
	assert.Equal(t, "TableScan(t)", scan.String())
	require.Len(t, scan.OutputSymbols(), 2)
	assert.Equal(t, planner.NewSymbol("x"), scan.OutputSymbols()[0])
	assert.Equal(t, planner.NewSymbol("y"), scan.OutputSymbols()[1])
}

func TestDecodeNodeFilterOverProject(t *testing.T) {
	raw := json.RawMessage(`{
		"type": "filter",
		"predicate": {"type":"comparison","op":">","left":{"type":"symbol","name":"a"},"right":{"type":"literal","value":5,"value_type":"integer"}},
		"source": {
			"type": "project",
			"assignments": [{"symbol":"a","expr":{"type":"function","name":"add","args":[{"type":"symbol","name":"x"},{"type":"literal","value":1,"value_type":"integer"}]}}],
			"source": {"type":"table_scan","table":"t","columns":["x"]}
		}
	}`)

	node, err := decodeNode(raw, UUIDPlanNodeIDAllocator{})
	require.NoError(t, err)

	filter, ok := node.(*planner.Filter)
	require.True(t, ok)
	assert.Equal(t, "(a > 5)", filter.Predicate.String())

	project, ok := filter.Source.(*planner.Project)
	require.True(t, ok)
	require.Len(t, project.Assignments, 1)
	assert.Equal(t, "add(x, 1)", project.Assignments[0].Expression.String())

	_, ok = project.Source.(*planner.TableScan)
	assert.True(t, ok)
}

func TestDecodeNodeJoinWithCriteriaAndFilter(t *testing.T) {
	raw := json.RawMessage(`{
		"type": "join",
		"join_type": "left",
		"criteria": [{"left":"l_k","right":"r_k"}],
		"filter": {"type":"comparison","op":">","left":{"type":"symbol","name":"r_y"},"right":{"type":"literal","value":0,"value_type":"integer"}},
		"left": {"type":"table_scan","table":"l","columns":["l_k"]},
		"right": {"type":"table_scan","table":"r","columns":["r_k","r_y"]}
	}`)

	node, err := decodeNode(raw, UUIDPlanNodeIDAllocator{})
	require.NoError(t, err)

	join, ok := node.(*planner.Join)
	require.True(t, ok)
	assert.Equal(t, planner.LeftJoin, join.Type)
	require.Len(t, join.Criteria, 1)
	assert.Equal(t, planner.NewSymbol("l_k"), join.Criteria[0].Left)
	assert.Equal(t, planner.NewSymbol("r_k"), join.Criteria[0].Right)
	require.NotNil(t, join.Filter)
	assert.Equal(t, "(r_y > 0)", join.Filter.String())
	assert.Equal(t, []planner.Symbol{
		planner.NewSymbol("l_k"), planner.NewSymbol("r_k"), planner.NewSymbol("r_y"),
	}, join.OutputSymbols())
}

func TestDecodeNodeUnknownTypeFails(t *testing.T) {
	raw := json.RawMessage(`{"type":"not_a_real_node"}`)
	_, err := decodeNode(raw, UUIDPlanNodeIDAllocator{})
	assert.Error(t, err)
}

func TestDecodeExprLogicalAnd(t *testing.T) {
	raw := json.RawMessage(`{
		"type": "logical",
		"op": "and",
		"terms": [
			{"type":"comparison","op":"=","left":{"type":"symbol","name":"x"},"right":{"type":"literal","value":3,"value_type":"integer"}},
			{"type":"bool","value":true}
		]
	}`)
	expr, err := decodeExpr(raw)
	require.NoError(t, err)

	logical, ok := expr.(*planner.LogicalExpression)
	require.True(t, ok)
	assert.Equal(t, planner.LogicalAnd, logical.Operator)
	require.Len(t, logical.Terms, 2)
	assert.True(t, planner.IsTrue(logical.Terms[1]))
}

func TestDecodeExprUnknownTypeFails(t *testing.T) {
	_, err := decodeExpr(json.RawMessage(`{"type":"bogus"}`))
	assert.Error(t, err)
}

func TestDecodeJoinTypeAllVariants(t *testing.T) {
	cases := map[string]planner.JoinType{
		"":      planner.InnerJoin,
		"inner": planner.InnerJoin,
		"left":  planner.LeftJoin,
		"right": planner.RightJoin,
		"full":  planner.FullJoin,
	}
	for in, want := range cases {
		got, err := decodeJoinType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := decodeJoinType("sideways")
	assert.Error(t, err)
}
