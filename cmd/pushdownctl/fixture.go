package main

import (
	"encoding/json"
	"fmt"

	"github.com/dshills/pushdown/internal/planner"
)

// Fixture is the top-level shape of a plan file passed to optimize/explain.
// The JSON plan grammar intentionally covers the operators the spec's
// worked examples (§8) exercise -- TableScan, Filter, Project, Join, and
// Aggregation/Union -- rather than every PlanNode variant the library
// implements; the rest (Exchange, Window, GroupId, MarkDistinct, Unnest,
// Sample, Sort, AssignUniqueId, SemiJoin, SpatialJoin) are reachable from
// Go callers of the planner package directly and don't need a fixture
// encoding for this demo.
type Fixture struct {
	Plan json.RawMessage `json:"plan"`
}

type nodeEnvelope struct {
	Type string `json:"type"`
}

// decodeNode recursively builds a planner.PlanNode from raw, minting a
// fresh id for every node via ids (see UUIDPlanNodeIDAllocator).
func decodeNode(raw json.RawMessage, ids planner.PlanNodeIDAllocator) (planner.PlanNode, error) {
	var env nodeEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding plan node: %w", err)
	}

	switch env.Type {
	case "table_scan":
		var n struct {
			Table   string   `json:"table"`
			Columns []string `json:"columns"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return planner.NewTableScan(ids.NextID(), n.Table, symbolsOf(n.Columns)), nil

	case "filter":
		var n struct {
			Source    json.RawMessage `json:"source"`
			Predicate json.RawMessage `json:"predicate"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		source, err := decodeNode(n.Source, ids)
		if err != nil {
			return nil, err
		}
		predicate, err := decodeExpr(n.Predicate)
		if err != nil {
			return nil, err
		}
		return planner.NewFilter(ids.NextID(), source, predicate), nil

	case "project":
		var n struct {
			Source      json.RawMessage `json:"source"`
			Assignments []struct {
				Symbol     string          `json:"symbol"`
				Expression json.RawMessage `json:"expr"`
			} `json:"assignments"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		source, err := decodeNode(n.Source, ids)
		if err != nil {
			return nil, err
		}
		assignments := make([]planner.Assignment, len(n.Assignments))
		for i, a := range n.Assignments {
			expr, err := decodeExpr(a.Expression)
			if err != nil {
				return nil, err
			}
			assignments[i] = planner.Assignment{Symbol: planner.NewSymbol(a.Symbol), Expression: expr}
		}
		return planner.NewProject(ids.NextID(), source, assignments), nil

	case "join":
		var n struct {
			JoinType string          `json:"join_type"`
			Left     json.RawMessage `json:"left"`
			Right    json.RawMessage `json:"right"`
			Criteria []struct {
				Left  string `json:"left"`
				Right string `json:"right"`
			} `json:"criteria"`
			Filter json.RawMessage `json:"filter"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		left, err := decodeNode(n.Left, ids)
		if err != nil {
			return nil, err
		}
		right, err := decodeNode(n.Right, ids)
		if err != nil {
			return nil, err
		}
		joinType, err := decodeJoinType(n.JoinType)
		if err != nil {
			return nil, err
		}
		criteria := make([]planner.EquiJoinClause, len(n.Criteria))
		for i, c := range n.Criteria {
			criteria[i] = planner.EquiJoinClause{Left: planner.NewSymbol(c.Left), Right: planner.NewSymbol(c.Right)}
		}
		var filter planner.Expression
		if len(n.Filter) > 0 {
			filter, err = decodeExpr(n.Filter)
			if err != nil {
				return nil, err
			}
		}
		output := append(append([]planner.Symbol{}, left.OutputSymbols()...), right.OutputSymbols()...)
		return planner.NewJoin(ids.NextID(), joinType, left, right, criteria, filter, output, nil), nil

	case "aggregation":
		var n struct {
			Source       json.RawMessage `json:"source"`
			GroupingKeys []string        `json:"grouping_keys"`
			Aggregates   []struct {
				Output   string            `json:"output"`
				Function string            `json:"function"`
				Args     []json.RawMessage `json:"args"`
			} `json:"aggregates"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		source, err := decodeNode(n.Source, ids)
		if err != nil {
			return nil, err
		}
		groupingKeys := symbolsOf(n.GroupingKeys)
		aggregates := make([]planner.AggregateExpr, len(n.Aggregates))
		for i, a := range n.Aggregates {
			args := make([]planner.Expression, len(a.Args))
			for j, raw := range a.Args {
				args[j], err = decodeExpr(raw)
				if err != nil {
					return nil, err
				}
			}
			aggregates[i] = planner.AggregateExpr{
				Output:   planner.NewSymbol(a.Output),
				Function: planner.FunctionIdentity{Name: a.Function},
				Args:     args,
			}
		}
		groupingSets := [][]planner.Symbol{groupingKeys}
		return planner.NewAggregation(ids.NextID(), source, groupingKeys, groupingSets, aggregates, nil), nil

	case "union":
		var n struct {
			Sources []json.RawMessage   `json:"sources"`
			Mapping map[string][]string `json:"mapping"`
			Output  []string            `json:"output"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		sources := make([]planner.PlanNode, len(n.Sources))
		for i, raw := range n.Sources {
			source, err := decodeNode(raw, ids)
			if err != nil {
				return nil, err
			}
			sources[i] = source
		}
		mapping := make(map[planner.Symbol][]planner.Symbol, len(n.Mapping))
		for out, perSource := range n.Mapping {
			mapping[planner.NewSymbol(out)] = symbolsOf(perSource)
		}
		return planner.NewUnion(ids.NextID(), sources, mapping, symbolsOf(n.Output)), nil

	default:
		return nil, fmt.Errorf("unknown plan node type %q", env.Type)
	}
}

func decodeJoinType(s string) (planner.JoinType, error) {
	switch s {
	case "inner", "":
		return planner.InnerJoin, nil
	case "left":
		return planner.LeftJoin, nil
	case "right":
		return planner.RightJoin, nil
	case "full":
		return planner.FullJoin, nil
	default:
		return 0, fmt.Errorf("unknown join type %q", s)
	}
}

// decodeExpr recursively builds a planner.Expression from raw.
func decodeExpr(raw json.RawMessage) (planner.Expression, error) {
	var env nodeEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding expression: %w", err)
	}

	switch env.Type {
	case "symbol":
		var n struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return planner.NewSymbol(n.Name).ToExpression(), nil

	case "literal":
		var n struct {
			Value interface{} `json:"value"`
			Type  string      `json:"value_type"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return &planner.Literal{Value: n.Value, Type: planner.Type{Name: n.Type}}, nil

	case "bool":
		var n struct {
			Value bool `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		if n.Value {
			return planner.TrueLiteral, nil
		}
		return planner.FalseLiteral, nil

	case "null":
		return planner.NullLiteral, nil

	case "comparison":
		var n struct {
			Op    string          `json:"op"`
			Left  json.RawMessage `json:"left"`
			Right json.RawMessage `json:"right"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		left, err := decodeExpr(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeExpr(n.Right)
		if err != nil {
			return nil, err
		}
		op, err := decodeComparisonOp(n.Op)
		if err != nil {
			return nil, err
		}
		return &planner.Comparison{Operator: op, Left: left, Right: right}, nil

	case "logical":
		var n struct {
			Op    string            `json:"op"`
			Terms []json.RawMessage `json:"terms"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		terms := make([]planner.Expression, len(n.Terms))
		for i, t := range n.Terms {
			term, err := decodeExpr(t)
			if err != nil {
				return nil, err
			}
			terms[i] = term
		}
		op := planner.LogicalAnd
		if n.Op == "or" {
			op = planner.LogicalOr
		}
		return &planner.LogicalExpression{Operator: op, Terms: terms}, nil

	case "not":
		var n struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		value, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return &planner.NotExpression{Value: value}, nil

	case "function":
		var n struct {
			Name string            `json:"name"`
			Args []json.RawMessage `json:"args"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		args := make([]planner.Expression, len(n.Args))
		for i, a := range n.Args {
			arg, err := decodeExpr(a)
			if err != nil {
				return nil, err
			}
			args[i] = arg
		}
		return &planner.FunctionCall{Function: planner.FunctionIdentity{Name: n.Name}, Arguments: args}, nil

	case "cast":
		var n struct {
			Value  json.RawMessage `json:"value"`
			Target string          `json:"target"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		value, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return &planner.Cast{Value: value, Target: planner.Type{Name: n.Target}}, nil

	case "try":
		var n struct {
			Body json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		body, err := decodeExpr(n.Body)
		if err != nil {
			return nil, err
		}
		return &planner.TryExpression{Body: body}, nil

	default:
		return nil, fmt.Errorf("unknown expression type %q", env.Type)
	}
}

func decodeComparisonOp(s string) (planner.ComparisonOperator, error) {
	switch s {
	case "=":
		return planner.OpEQ, nil
	case "<>", "!=":
		return planner.OpNE, nil
	case "<":
		return planner.OpLT, nil
	case "<=":
		return planner.OpLE, nil
	case ">":
		return planner.OpGT, nil
	case ">=":
		return planner.OpGE, nil
	case "is_distinct_from":
		return planner.OpDistinct, nil
	default:
		return 0, fmt.Errorf("unknown comparison operator %q", s)
	}
}

func symbolsOf(names []string) []planner.Symbol {
	out := make([]planner.Symbol, len(names))
	for i, n := range names {
		out[i] = planner.NewSymbol(n)
	}
	return out
}
