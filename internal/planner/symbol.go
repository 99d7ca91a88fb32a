// Package planner implements a predicate pushdown optimizer over a
// relational logical plan tree.
package planner

import "fmt"

// Symbol is an opaque identifier for a column within a plan. Two symbols are
// equal iff their names are equal.
type Symbol struct {
	Name string
}

// NewSymbol constructs a Symbol from a name.
func NewSymbol(name string) Symbol {
	return Symbol{Name: name}
}

func (s Symbol) String() string {
	return s.Name
}

// ToExpression returns a SymbolReference expression pointing at s.
func (s Symbol) ToExpression() *SymbolReference {
	return &SymbolReference{Name: s.Name}
}

// SymbolSet is an unordered set of symbols with deterministic iteration via
// Sorted.
type SymbolSet map[Symbol]struct{}

// NewSymbolSet builds a SymbolSet from the given symbols.
func NewSymbolSet(symbols ...Symbol) SymbolSet {
	set := make(SymbolSet, len(symbols))
	for _, s := range symbols {
		set[s] = struct{}{}
	}
	return set
}

// Contains reports whether s is a member of the set.
func (set SymbolSet) Contains(s Symbol) bool {
	_, ok := set[s]
	return ok
}

// ContainsAll reports whether every element of other is in set.
func (set SymbolSet) ContainsAll(other []Symbol) bool {
	for _, s := range other {
		if !set.Contains(s) {
			return false
		}
	}
	return true
}

// Add inserts s into the set and returns the set for chaining.
func (set SymbolSet) Add(s Symbol) SymbolSet {
	set[s] = struct{}{}
	return set
}

// Sorted returns the set's members in a deterministic (lexicographic) order.
func (set SymbolSet) Sorted() []Symbol {
	out := make([]Symbol, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sortSymbols(out)
	return out
}

func sortSymbols(symbols []Symbol) {
	for i := 1; i < len(symbols); i++ {
		for j := i; j > 0 && symbols[j-1].Name > symbols[j].Name; j-- {
			symbols[j-1], symbols[j] = symbols[j], symbols[j-1]
		}
	}
}

// UnionSymbolSets returns a new set containing the members of both sets.
func UnionSymbolSets(a, b SymbolSet) SymbolSet {
	out := make(SymbolSet, len(a)+len(b))
	for s := range a {
		out[s] = struct{}{}
	}
	for s := range b {
		out[s] = struct{}{}
	}
	return out
}

// SymbolAllocator mints fresh symbols for expressions materialized during
// rewriting (e.g. a non-symbol equi-join side hoisted into a Project).
type SymbolAllocator interface {
	NewSymbol(expr Expression, typ Type) Symbol
}

// CounterSymbolAllocator is the simple monotonically increasing allocator
// the spec requires within a single Optimize call.
type CounterSymbolAllocator struct {
	next int
}

// NewCounterSymbolAllocator returns an allocator starting at 0.
func NewCounterSymbolAllocator() *CounterSymbolAllocator {
	return &CounterSymbolAllocator{}
}

// NewSymbol mints a new, unique symbol named "expr_" plus a monotonic
// counter; expr and typ do not affect the name.
func (a *CounterSymbolAllocator) NewSymbol(expr Expression, typ Type) Symbol {
	a.next++
	return Symbol{Name: fmt.Sprintf("expr_%d", a.next)}
}

// PlanNodeID identifies a PlanNode within a single optimization pass.
type PlanNodeID string

// PlanNodeIDAllocator mints fresh plan-node ids, used when a rewrite
// materializes a new node (e.g. an identity Project or residual Filter).
type PlanNodeIDAllocator interface {
	NextID() PlanNodeID
}

// CounterPlanNodeIDAllocator is the simple monotonically increasing
// allocator the spec requires.
type CounterPlanNodeIDAllocator struct {
	next int
}

// NewCounterPlanNodeIDAllocator returns an allocator starting at 0.
func NewCounterPlanNodeIDAllocator() *CounterPlanNodeIDAllocator {
	return &CounterPlanNodeIDAllocator{}
}

// NextID returns the next monotonically increasing plan-node id.
func (a *CounterPlanNodeIDAllocator) NextID() PlanNodeID {
	a.next++
	return PlanNodeID(fmt.Sprintf("p_%d", a.next))
}
