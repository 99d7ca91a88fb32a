package main

import (
	"github.com/google/uuid"

	"github.com/dshills/pushdown/internal/planner"
)

// UUIDPlanNodeIDAllocator mints plan-node ids from random UUIDs rather than
// a monotonic counter. The production allocators the library itself uses
// are the plain counter-based ones (planner.CounterPlanNodeIDAllocator);
// this one exists only for the CLI demo, where a fixture file can stitch
// together several independently-authored subplans and a per-process
// counter could collide across runs recorded side by side.
type UUIDPlanNodeIDAllocator struct{}

// NextID returns a fresh plan-node id prefixed for readability in printed
// trees.
func (UUIDPlanNodeIDAllocator) NextID() planner.PlanNodeID {
	return planner.PlanNodeID("p-" + uuid.NewString())
}

// UUIDSymbolAllocator mints symbols for expressions materialized mid-rewrite
// (e.g. a non-symbol equi-join side hoisted into a Project), using a UUID
// suffix instead of a counter for the same collision-avoidance reason as
// UUIDPlanNodeIDAllocator.
type UUIDSymbolAllocator struct{}

// NewSymbol mints a new symbol. The expression and type are accepted to
// satisfy planner.SymbolAllocator but otherwise unused, matching
// planner.CounterSymbolAllocator's own contract.
func (UUIDSymbolAllocator) NewSymbol(expr planner.Expression, typ planner.Type) planner.Symbol {
	return planner.NewSymbol("sym-" + uuid.NewString())
}
