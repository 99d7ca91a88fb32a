package planner

import "github.com/dshills/pushdown/internal/log"

// Optimizer holds the collaborators that stay fixed for the lifetime of a
// planner instance, mirroring the original's NewOptimizer(catalog) shape:
// construct once, call Optimize per plan.
type Optimizer struct {
	Metadata            Metadata
	Types               TypeAnalyzer
	EffectivePredicates EffectivePredicateExtractor
	Interpreter         ExpressionInterpreter
	Literals            LiteralEncoder
	Logger              log.Logger
}

// NewOptimizer builds an Optimizer from its collaborators. A nil Logger
// falls back to log.Default().
func NewOptimizer(metadata Metadata, types TypeAnalyzer, effectivePredicates EffectivePredicateExtractor, interpreter ExpressionInterpreter, literals LiteralEncoder, logger log.Logger) *Optimizer {
	if logger == nil {
		logger = log.Default()
	}
	return &Optimizer{
		Metadata:            metadata,
		Types:               types,
		EffectivePredicates: effectivePredicates,
		Interpreter:         interpreter,
		Literals:            literals,
		Logger:              logger,
	}
}

// Optimize runs a single top-down predicate pushdown pass over plan,
// preserving its root output-symbol list and order. session, symbols, ids,
// and warnings vary per call; the rest of the collaborators were fixed at
// construction.
func (o *Optimizer) Optimize(plan PlanNode, session *Session, symbols SymbolAllocator, ids PlanNodeIDAllocator, warnings WarningCollector) PlanNode {
	if session == nil {
		session = &Session{}
	}
	if warnings == nil {
		warnings = &SliceWarningCollector{}
	}

	ctx := &rewriteContext{
		session:             session,
		types:               o.Types,
		metadata:            o.Metadata,
		effectivePredicates: o.EffectivePredicates,
		interpreter:         o.Interpreter,
		literals:            o.Literals,
		symbols:             symbols,
		ids:                 ids,
		warnings:            warnings,
		logger:              o.Logger,
	}

	originalOutput := plan.OutputSymbols()
	rewritten := ctx.rewrite(plan, TrueLiteral)
	if sameSymbolList(rewritten.OutputSymbols(), originalOutput) {
		return rewritten
	}
	return NewIdentityProject(ids.NextID(), rewritten, originalOutput)
}
