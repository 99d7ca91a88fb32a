package planner

// This file defines the collaborator contracts spec.md §6 places outside
// this module's scope (parser, type analyzer, literal encoder, metadata,
// effective-predicate extractor, session), plus minimal real
// implementations so the package is usable and testable standalone without
// a mock reimplementing planner semantics.

// Metadata answers determinism questions about function identities.
type Metadata interface {
	IsDeterministic(fn FunctionIdentity) bool
}

// StaticMetadata is a Metadata backed by a fixed set of known
// non-deterministic function names (e.g. "rand", "now", "uuid"). Any
// function not listed is assumed deterministic.
type StaticMetadata struct {
	nonDeterministic map[string]bool
}

// NewStaticMetadata builds a StaticMetadata with the given non-deterministic
// function names, in addition to the built-in "rand"-like primitives.
func NewStaticMetadata(nonDeterministicNames ...string) *StaticMetadata {
	m := &StaticMetadata{nonDeterministic: map[string]bool{
		"rand":      true,
		"random":    true,
		"now":       true,
		"uuid":      true,
		"current_timestamp": true,
	}}
	for _, n := range nonDeterministicNames {
		m.nonDeterministic[n] = true
	}
	return m
}

// IsDeterministic implements Metadata.
func (m *StaticMetadata) IsDeterministic(fn FunctionIdentity) bool {
	return !m.nonDeterministic[fn.Name]
}

// TypeAnalyzer resolves an expression's result type. GetTypes returns the
// type of every subexpression, keyed by its String() form, since this
// module has no AST-level NodeRef identity.
type TypeAnalyzer interface {
	GetType(expr Expression) Type
	GetTypes(expr Expression) map[string]Type
}

// StructuralTypeAnalyzer infers types by walking the expression tree
// structurally: comparisons, AND/OR and NOT are boolean, literals carry
// their own type, casts carry their target type, and function calls look up
// a caller-supplied function-return-type table. Anything else (symbol
// references, TRY, a function missing from the table) gets the zero Type.
type StructuralTypeAnalyzer struct {
	FunctionTypes map[string]Type
}

// NewStructuralTypeAnalyzer builds an analyzer with the given function
// return-type table.
func NewStructuralTypeAnalyzer(functionTypes map[string]Type) *StructuralTypeAnalyzer {
	return &StructuralTypeAnalyzer{FunctionTypes: functionTypes}
}

var booleanType = Type{Name: "boolean"}

// GetType implements TypeAnalyzer.
func (a *StructuralTypeAnalyzer) GetType(expr Expression) Type {
	switch x := expr.(type) {
	case *Literal:
		return x.Type
	case *Comparison:
		return booleanType
	case *LogicalExpression:
		return booleanType
	case *NotExpression:
		return booleanType
	case *Cast:
		return x.Target
	case *FunctionCall:
		if t, ok := a.FunctionTypes[x.Function.Name]; ok {
			return t
		}
		return Type{}
	default:
		return Type{}
	}
}

// GetTypes implements TypeAnalyzer.
func (a *StructuralTypeAnalyzer) GetTypes(expr Expression) map[string]Type {
	out := make(map[string]Type)
	Walk(expr, func(x Expression) bool {
		out[x.String()] = a.GetType(x)
		return true
	})
	return out
}

// EffectivePredicateExtractor summarizes a subplan's guaranteed predicates:
// sound (implied by execution) but not necessarily complete.
type EffectivePredicateExtractor interface {
	Extract(plan PlanNode) Expression
}

// RangeEffectivePredicateExtractor is a conservative, sound extractor: it
// only reports predicates it can read directly off the chain of Filter
// nodes at the top of the plan it is given, never attempting range
// derivation through joins or aggregation. This matches the contract
// ("sound but not necessarily complete") without reimplementing a full
// constraint system.
type RangeEffectivePredicateExtractor struct {
	UseTableProperties bool
}

// Extract implements EffectivePredicateExtractor. It only looks straight
// through a chain of Filter nodes sitting above the plan's root: sound,
// because a Filter's predicate is by definition guaranteed of every row
// that survives it, and deliberately incomplete for anything below a Join,
// Aggregation, or other operator that would need real constraint
// propagation to summarize. Callers are responsible for stripping
// non-deterministic conjuncts before relying on this as "effective" (see
// the processInnerJoin / processLimitedOuterJoin call sites).
func (e *RangeEffectivePredicateExtractor) Extract(plan PlanNode) Expression {
	var conjuncts []Expression
	node := plan
	for {
		f, ok := node.(*Filter)
		if !ok {
			break
		}
		conjuncts = append(conjuncts, ExtractConjuncts(f.Predicate)...)
		node = f.Source
	}
	return CombineConjuncts(conjuncts...)
}

// ExpressionInterpreter constant-folds deterministic subtrees.
type ExpressionInterpreter interface {
	Optimize(expr Expression) Expression
}

// ConstantFoldInterpreter performs a bottom-up constant fold over boolean
// AND/OR/NOT/comparisons of literals. It leaves anything referencing a
// symbol or a non-deterministic call untouched.
type ConstantFoldInterpreter struct {
	Metadata Metadata
}

// NewConstantFoldInterpreter builds an interpreter using metadata for
// determinism checks during folding.
func NewConstantFoldInterpreter(metadata Metadata) *ConstantFoldInterpreter {
	return &ConstantFoldInterpreter{Metadata: metadata}
}

// Optimize implements ExpressionInterpreter.
func (c *ConstantFoldInterpreter) Optimize(expr Expression) Expression {
	switch x := expr.(type) {
	case *NotExpression:
		v := c.Optimize(x.Value)
		if IsTrue(v) {
			return FalseLiteral
		}
		if IsFalse(v) {
			return TrueLiteral
		}
		return &NotExpression{Value: v}
	case *LogicalExpression:
		terms := make([]Expression, len(x.Terms))
		for i, t := range x.Terms {
			terms[i] = c.Optimize(t)
		}
		if x.Operator == LogicalAnd {
			kept := make([]Expression, 0, len(terms))
			for _, t := range terms {
				if IsFalse(t) {
					return FalseLiteral
				}
				if !IsTrue(t) {
					kept = append(kept, t)
				}
			}
			return CombineConjuncts(kept...)
		}
		// OR
		kept := make([]Expression, 0, len(terms))
		for _, t := range terms {
			if IsTrue(t) {
				return TrueLiteral
			}
			if !IsFalse(t) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			return FalseLiteral
		}
		if len(kept) == 1 {
			return kept[0]
		}
		return &LogicalExpression{Operator: LogicalOr, Terms: kept}
	case *Comparison:
		left := c.Optimize(x.Left)
		right := c.Optimize(x.Right)
		if ll, ok := left.(*Literal); ok {
			if rl, ok := right.(*Literal); ok {
				if folded, ok := foldComparison(x.Operator, ll, rl); ok {
					return folded
				}
			}
		}
		return &Comparison{Operator: x.Operator, Left: left, Right: right}
	default:
		return expr
	}
}

func foldComparison(op ComparisonOperator, l, r *Literal) (Expression, bool) {
	if l.Value == nil || r.Value == nil {
		if op == OpDistinct {
			return boolLiteral(l.Value != r.Value || (l.Value == nil) != (r.Value == nil)), true
		}
		return NullLiteral, true
	}
	lf, lok := asFloat(l.Value)
	rf, rok := asFloat(r.Value)
	if lok && rok {
		switch op {
		case OpEQ:
			return boolLiteral(lf == rf), true
		case OpNE, OpDistinct:
			return boolLiteral(lf != rf), true
		case OpLT:
			return boolLiteral(lf < rf), true
		case OpLE:
			return boolLiteral(lf <= rf), true
		case OpGT:
			return boolLiteral(lf > rf), true
		case OpGE:
			return boolLiteral(lf >= rf), true
		}
	}
	if ls, ok := l.Value.(string); ok {
		if rs, ok := r.Value.(string); ok {
			switch op {
			case OpEQ:
				return boolLiteral(ls == rs), true
			case OpNE, OpDistinct:
				return boolLiteral(ls != rs), true
			case OpLT:
				return boolLiteral(ls < rs), true
			case OpLE:
				return boolLiteral(ls <= rs), true
			case OpGT:
				return boolLiteral(ls > rs), true
			case OpGE:
				return boolLiteral(ls >= rs), true
			}
		}
	}
	return nil, false
}

func boolLiteral(b bool) *Literal {
	if b {
		return TrueLiteral
	}
	return FalseLiteral
}

func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// LiteralEncoder encodes a raw value back into a Literal expression of the
// given type.
type LiteralEncoder interface {
	Encode(value interface{}, typ Type) Expression
}

// SimpleLiteralEncoder is the trivial LiteralEncoder.
type SimpleLiteralEncoder struct{}

// Encode implements LiteralEncoder.
func (SimpleLiteralEncoder) Encode(value interface{}, typ Type) Expression {
	if value == nil {
		return NullLiteral
	}
	return &Literal{Value: value, Type: typ}
}

// Session carries the configuration flags spec.md §6 names.
type Session struct {
	EnableDynamicFiltering              bool
	PredicatePushdownUseTableProperties bool
}

// WarningCollector accumulates non-fatal notices raised during
// optimization.
type WarningCollector interface {
	Add(message string)
}

// SliceWarningCollector is the simple in-memory WarningCollector.
type SliceWarningCollector struct {
	Warnings []string
}

// Add implements WarningCollector.
func (c *SliceWarningCollector) Add(message string) {
	c.Warnings = append(c.Warnings, message)
}

// UnwrapCasts removes a redundant CAST(symbol AS T) wrapper from one side of
// a comparison against a literal, when the literal's type already matches
// the cast's target type. This is the cast-unwrapping rewrite spec.md §4.4's
// Project rule calls for after inlining (see SPEC_FULL.md §7); the general
// case (narrowing casts, lossy numeric conversions) needs the external type
// analyzer's notion of type domains and is intentionally not attempted
// here.
func UnwrapCasts(e Expression) Expression {
	switch x := e.(type) {
	case *Comparison:
		left := unwrapCastOperand(x.Left, x.Right)
		right := unwrapCastOperand(x.Right, x.Left)
		return &Comparison{Operator: x.Operator, Left: left, Right: right}
	case *LogicalExpression:
		terms := make([]Expression, len(x.Terms))
		for i, t := range x.Terms {
			terms[i] = UnwrapCasts(t)
		}
		return &LogicalExpression{Operator: x.Operator, Terms: terms}
	case *NotExpression:
		return &NotExpression{Value: UnwrapCasts(x.Value)}
	default:
		return e
	}
}

func unwrapCastOperand(side, other Expression) Expression {
	cast, ok := side.(*Cast)
	if !ok {
		return side
	}
	if _, ok := cast.Value.(*SymbolReference); !ok {
		return side
	}
	lit, ok := other.(*Literal)
	if !ok {
		return side
	}
	if cast.Target.Name != lit.Type.Name {
		return side
	}
	return cast.Value
}
