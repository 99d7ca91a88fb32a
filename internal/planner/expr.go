package planner

import (
	"fmt"
	"sort"
	"strings"
)

// Type is an opaque result type for an expression, owned by the external
// type analyzer collaborator. The optimizer only ever compares types for
// equality or uses them to mint a fresh symbol.
type Type struct {
	Name string
}

// Expression is the boolean/scalar expression IR the pushdown rules operate
// over. Every variant below satisfies it.
type Expression interface {
	// String returns a canonical-ish textual form, used for debugging and
	// as the dedup key in combineConjuncts.
	String() string
	// children returns the expression's direct subexpressions, for
	// pre-order traversal.
	children() []Expression
}

// SymbolReference is a reference to a single column.
type SymbolReference struct {
	Name string
}

func (r *SymbolReference) String() string    { return r.Name }
func (r *SymbolReference) children() []Expression { return nil }

// Symbol returns the Symbol this reference names.
func (r *SymbolReference) Symbol() Symbol { return Symbol{Name: r.Name} }

// Literal is a constant value, including the boolean TRUE/FALSE literals.
type Literal struct {
	Value interface{}
	Type  Type
}

func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case string:
		return fmt.Sprintf("'%s'", strings.ReplaceAll(v, "'", "''"))
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case nil:
		return "NULL"
	default:
		return fmt.Sprintf("%v", v)
	}
}
func (l *Literal) children() []Expression { return nil }

// TrueLiteral is the canonical TRUE boolean literal.
var TrueLiteral = &Literal{Value: true, Type: Type{Name: "boolean"}}

// FalseLiteral is the canonical FALSE boolean literal.
var FalseLiteral = &Literal{Value: false, Type: Type{Name: "boolean"}}

// NullLiteral is the canonical untyped NULL literal.
var NullLiteral = &Literal{Value: nil}

// IsTrue reports whether e is the boolean literal TRUE.
func IsTrue(e Expression) bool {
	l, ok := e.(*Literal)
	return ok && l.Value == true
}

// IsFalse reports whether e is the boolean literal FALSE.
func IsFalse(e Expression) bool {
	l, ok := e.(*Literal)
	return ok && l.Value == false
}

// IsNullLiteral reports whether e is the NULL literal.
func IsNullLiteral(e Expression) bool {
	l, ok := e.(*Literal)
	return ok && l.Value == nil
}

// ComparisonOperator enumerates the comparison kinds the spec requires.
type ComparisonOperator int

const (
	OpEQ ComparisonOperator = iota
	OpNE
	OpLT
	OpLE
	OpGT
	OpGE
	// OpDistinct is Presto/Trino's IS DISTINCT FROM: a null-safe inequality.
	OpDistinct
)

func (op ComparisonOperator) String() string {
	switch op {
	case OpEQ:
		return "="
	case OpNE:
		return "<>"
	case OpLT:
		return "<"
	case OpLE:
		return "<="
	case OpGT:
		return ">"
	case OpGE:
		return ">="
	case OpDistinct:
		return "IS DISTINCT FROM"
	default:
		return "?"
	}
}

// commutes reports whether swapping the operands of op preserves meaning.
func (op ComparisonOperator) commutes() bool {
	return op == OpEQ || op == OpNE || op == OpDistinct
}

// flip returns the operator for the operands swapped (e.g. LT -> GT).
func (op ComparisonOperator) flip() ComparisonOperator {
	switch op {
	case OpLT:
		return OpGT
	case OpLE:
		return OpGE
	case OpGT:
		return OpLT
	case OpGE:
		return OpLE
	default:
		return op
	}
}

// Comparison is a binary comparison between two expressions.
type Comparison struct {
	Operator ComparisonOperator
	Left     Expression
	Right    Expression
}

// NewEquals is a convenience constructor for an EQ comparison.
func NewEquals(left, right Expression) *Comparison {
	return &Comparison{Operator: OpEQ, Left: left, Right: right}
}

func (c *Comparison) String() string {
	return fmt.Sprintf("(%s %s %s)", c.Left.String(), c.Operator.String(), c.Right.String())
}
func (c *Comparison) children() []Expression { return []Expression{c.Left, c.Right} }

// LogicalOperator enumerates AND/OR.
type LogicalOperator int

const (
	LogicalAnd LogicalOperator = iota
	LogicalOr
)

// LogicalExpression is a variadic AND/OR over its terms.
type LogicalExpression struct {
	Operator LogicalOperator
	Terms    []Expression
}

func (l *LogicalExpression) String() string {
	parts := make([]string, len(l.Terms))
	for i, t := range l.Terms {
		parts[i] = t.String()
	}
	sep := " AND "
	if l.Operator == LogicalOr {
		sep = " OR "
	}
	return "(" + strings.Join(parts, sep) + ")"
}
func (l *LogicalExpression) children() []Expression { return l.Terms }

// NotExpression negates its single operand.
type NotExpression struct {
	Value Expression
}

func (n *NotExpression) String() string          { return fmt.Sprintf("(NOT %s)", n.Value.String()) }
func (n *NotExpression) children() []Expression  { return []Expression{n.Value} }

// FunctionIdentity names a scalar function well enough for the Metadata
// collaborator to answer determinism queries about it.
type FunctionIdentity struct {
	Name string
}

// FunctionCall is a scalar function invocation. Arguments may themselves be
// arbitrary expressions.
type FunctionCall struct {
	Function  FunctionIdentity
	Arguments []Expression
}

func (f *FunctionCall) String() string {
	args := make([]string, len(f.Arguments))
	for i, a := range f.Arguments {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", f.Function.Name, strings.Join(args, ", "))
}
func (f *FunctionCall) children() []Expression { return f.Arguments }

// Cast wraps an expression with a target type coercion.
type Cast struct {
	Value  Expression
	Target Type
}

func (c *Cast) String() string          { return fmt.Sprintf("CAST(%s AS %s)", c.Value.String(), c.Target.Name) }
func (c *Cast) children() []Expression  { return []Expression{c.Value} }

// TryExpression wraps a body that should be evaluated defensively: a runtime
// error inside it is suppressed to NULL. The rewriter must never inline a
// symbol substitution into a Try body and must treat it as opaque.
type TryExpression struct {
	Body Expression
}

func (t *TryExpression) String() string         { return fmt.Sprintf("TRY(%s)", t.Body.String()) }
func (t *TryExpression) children() []Expression { return []Expression{t.Body} }

// containsTry reports whether e or any subexpression is a TryExpression.
func containsTry(e Expression) bool {
	found := false
	Walk(e, func(x Expression) bool {
		if _, ok := x.(*TryExpression); ok {
			found = true
			return false
		}
		return true
	})
	return found
}

// Walk performs a pre-order traversal of e, calling visit for each node.
// If visit returns false, that node's children are skipped.
func Walk(e Expression, visit func(Expression) bool) {
	if e == nil {
		return
	}
	if !visit(e) {
		return
	}
	for _, c := range e.children() {
		Walk(c, visit)
	}
}

// ExtractSymbols returns the set of distinct symbols referenced anywhere in
// e's tree.
func ExtractSymbols(e Expression) SymbolSet {
	set := NewSymbolSet()
	Walk(e, func(x Expression) bool {
		if ref, ok := x.(*SymbolReference); ok {
			set.Add(ref.Symbol())
		}
		return true
	})
	return set
}

// ExtractSymbolsMulti unions the symbols referenced across several
// expressions.
func ExtractSymbolsMulti(exprs ...Expression) SymbolSet {
	set := NewSymbolSet()
	for _, e := range exprs {
		for s := range ExtractSymbols(e) {
			set.Add(s)
		}
	}
	return set
}

// ExtractSymbolsAll returns every symbol reference occurrence (with
// duplicates), used by Project's inlining-candidate analysis which needs
// occurrence counts.
func ExtractSymbolsAll(e Expression) []Symbol {
	var out []Symbol
	Walk(e, func(x Expression) bool {
		if ref, ok := x.(*SymbolReference); ok {
			out = append(out, ref.Symbol())
		}
		return true
	})
	return out
}

// sortedExprStrings returns the String() of each expression, sorted.
// canonicalize orders operands itself and does not call it.
func sortedExprStrings(exprs []Expression) []string {
	out := make([]string, len(exprs))
	for i, e := range exprs {
		out[i] = e.String()
	}
	sort.Strings(out)
	return out
}
