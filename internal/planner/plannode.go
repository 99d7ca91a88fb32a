package planner

// PlanNode is the tagged-variant logical plan node the rewriter walks.
// Every concrete type below implements it. Nodes are immutable: a rewrite
// either returns the same node (no change) or builds a fresh one.
type PlanNode interface {
	// ID identifies this node within a single optimization pass.
	ID() PlanNodeID
	// OutputSymbols returns this node's output column list, in order.
	OutputSymbols() []Symbol
	// Children returns the node's direct plan inputs, in order.
	Children() []PlanNode
	String() string
}

// JoinType enumerates the join kinds spec.md §3 requires.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
	RightJoin
	FullJoin
)

func (t JoinType) String() string {
	switch t {
	case InnerJoin:
		return "INNER"
	case LeftJoin:
		return "LEFT"
	case RightJoin:
		return "RIGHT"
	case FullJoin:
		return "FULL"
	default:
		return "?"
	}
}

// EquiJoinClause is one (leftSymbol, rightSymbol) equality clause of a Join.
type EquiJoinClause struct {
	Left  Symbol
	Right Symbol
}

// ToExpression returns the clause as an EQ comparison over its two symbols.
func (c EquiJoinClause) ToExpression() Expression {
	return NewEquals(c.Left.ToExpression(), c.Right.ToExpression())
}

// Filter materializes a residual predicate above its source.
type Filter struct {
	id        PlanNodeID
	Source    PlanNode
	Predicate Expression
}

// NewFilter constructs a Filter node.
func NewFilter(id PlanNodeID, source PlanNode, predicate Expression) *Filter {
	return &Filter{id: id, Source: source, Predicate: predicate}
}

func (f *Filter) ID() PlanNodeID          { return f.id }
func (f *Filter) OutputSymbols() []Symbol { return f.Source.OutputSymbols() }
func (f *Filter) Children() []PlanNode    { return []PlanNode{f.Source} }
func (f *Filter) String() string          { return "Filter(" + f.Predicate.String() + ")" }

// Assignment is one Symbol -> Expression entry of a Project's output.
type Assignment struct {
	Symbol     Symbol
	Expression Expression
}

// Project computes an ordered list of output assignments over its source.
type Project struct {
	id          PlanNodeID
	Source      PlanNode
	Assignments []Assignment
}

// NewProject constructs a Project node.
func NewProject(id PlanNodeID, source PlanNode, assignments []Assignment) *Project {
	return &Project{id: id, Source: source, Assignments: assignments}
}

// NewIdentityProject builds a Project that passes each of symbols through
// unchanged, used to restore an output-symbol contract after a rewrite.
func NewIdentityProject(id PlanNodeID, source PlanNode, symbols []Symbol) *Project {
	assignments := make([]Assignment, len(symbols))
	for i, s := range symbols {
		assignments[i] = Assignment{Symbol: s, Expression: s.ToExpression()}
	}
	return NewProject(id, source, assignments)
}

func (p *Project) ID() PlanNodeID { return p.id }
func (p *Project) OutputSymbols() []Symbol {
	out := make([]Symbol, len(p.Assignments))
	for i, a := range p.Assignments {
		out[i] = a.Symbol
	}
	return out
}
func (p *Project) Children() []PlanNode { return []PlanNode{p.Source} }
func (p *Project) String() string       { return "Project" }

// AssignmentMap returns the Project's assignments as a Symbol->Expression
// map, for InlineSymbols.
func (p *Project) AssignmentMap() map[Symbol]Expression {
	out := make(map[Symbol]Expression, len(p.Assignments))
	for _, a := range p.Assignments {
		out[a.Symbol] = a.Expression
	}
	return out
}

// Lookup returns the assignment expression bound to s, if any.
func (p *Project) Lookup(s Symbol) (Expression, bool) {
	for _, a := range p.Assignments {
		if a.Symbol == s {
			return a.Expression, true
		}
	}
	return nil, false
}

// Join is a two-input equi/filter join.
type Join struct {
	id             PlanNodeID
	Type           JoinType
	Left           PlanNode
	Right          PlanNode
	Criteria       []EquiJoinClause
	Filter         Expression // nil if no residual join filter
	outputSymbols  []Symbol
	DynamicFilters map[string]Symbol // dynamic-filter id -> build-side symbol
}

// NewJoin constructs a Join node. outputSymbols must already reflect
// left.OutputSymbols() followed by right.OutputSymbols() (or whatever order
// the caller has committed to).
func NewJoin(id PlanNodeID, typ JoinType, left, right PlanNode, criteria []EquiJoinClause, filter Expression, outputSymbols []Symbol, dynamicFilters map[string]Symbol) *Join {
	return &Join{id: id, Type: typ, Left: left, Right: right, Criteria: criteria, Filter: filter, outputSymbols: outputSymbols, DynamicFilters: dynamicFilters}
}

func (j *Join) ID() PlanNodeID          { return j.id }
func (j *Join) OutputSymbols() []Symbol { return j.outputSymbols }
func (j *Join) Children() []PlanNode    { return []PlanNode{j.Left, j.Right} }
func (j *Join) String() string          { return j.Type.String() + "Join" }

// SpatialJoin is a spatial-predicate join: INNER and LEFT only.
type SpatialJoin struct {
	id            PlanNodeID
	Type          JoinType // InnerJoin or LeftJoin
	Left          PlanNode
	Right         PlanNode
	Filter        Expression
	outputSymbols []Symbol
}

// NewSpatialJoin constructs a SpatialJoin node.
func NewSpatialJoin(id PlanNodeID, typ JoinType, left, right PlanNode, filter Expression, outputSymbols []Symbol) *SpatialJoin {
	return &SpatialJoin{id: id, Type: typ, Left: left, Right: right, Filter: filter, outputSymbols: outputSymbols}
}

func (s *SpatialJoin) ID() PlanNodeID          { return s.id }
func (s *SpatialJoin) OutputSymbols() []Symbol { return s.outputSymbols }
func (s *SpatialJoin) Children() []PlanNode    { return []PlanNode{s.Left, s.Right} }
func (s *SpatialJoin) String() string          { return "Spatial" + s.Type.String() + "Join" }

// SemiJoin tags each Source row with whether a matching FilteringSource row
// exists.
type SemiJoin struct {
	id               PlanNodeID
	Source           PlanNode
	FilteringSource  PlanNode
	SourceKey        Symbol
	FilterKey        Symbol
	SemiOutput       Symbol
}

// NewSemiJoin constructs a SemiJoin node.
func NewSemiJoin(id PlanNodeID, source, filteringSource PlanNode, sourceKey, filterKey, semiOutput Symbol) *SemiJoin {
	return &SemiJoin{id: id, Source: source, FilteringSource: filteringSource, SourceKey: sourceKey, FilterKey: filterKey, SemiOutput: semiOutput}
}

func (s *SemiJoin) ID() PlanNodeID { return s.id }
func (s *SemiJoin) OutputSymbols() []Symbol {
	return append(append([]Symbol{}, s.Source.OutputSymbols()...), s.SemiOutput)
}
func (s *SemiJoin) Children() []PlanNode { return []PlanNode{s.Source, s.FilteringSource} }
func (s *SemiJoin) String() string       { return "SemiJoin" }

// AggregateExpr is one aggregate function computed by an Aggregation.
type AggregateExpr struct {
	Output   Symbol
	Function FunctionIdentity
	Args     []Expression
}

// Aggregation groups Source rows by GroupingKeys and computes Aggregations.
// GroupingSets holds one or more grouping-key subsets (for GROUPING SETS /
// CUBE / ROLLUP); a single-element GroupingSets with all GroupingKeys is the
// common plain-GROUP-BY case. GroupIDSymbol is set when a GroupId node feeds
// this aggregation and is non-nil when present.
type Aggregation struct {
	id            PlanNodeID
	Source        PlanNode
	GroupingKeys  []Symbol
	GroupingSets  [][]Symbol
	Aggregations  []AggregateExpr
	GroupIDSymbol *Symbol
}

// NewAggregation constructs an Aggregation node.
func NewAggregation(id PlanNodeID, source PlanNode, groupingKeys []Symbol, groupingSets [][]Symbol, aggregations []AggregateExpr, groupIDSymbol *Symbol) *Aggregation {
	return &Aggregation{id: id, Source: source, GroupingKeys: groupingKeys, GroupingSets: groupingSets, Aggregations: aggregations, GroupIDSymbol: groupIDSymbol}
}

func (a *Aggregation) ID() PlanNodeID { return a.id }
func (a *Aggregation) OutputSymbols() []Symbol {
	out := append([]Symbol{}, a.GroupingKeys...)
	if a.GroupIDSymbol != nil {
		out = append(out, *a.GroupIDSymbol)
	}
	for _, agg := range a.Aggregations {
		out = append(out, agg.Output)
	}
	return out
}
func (a *Aggregation) Children() []PlanNode { return []PlanNode{a.Source} }
func (a *Aggregation) String() string       { return "Aggregation" }

// HasEmptyGroupingSet reports whether any grouping set is the empty set
// (global aggregation, e.g. a bare SUM() with no GROUP BY).
func (a *Aggregation) HasEmptyGroupingSet() bool {
	for _, set := range a.GroupingSets {
		if len(set) == 0 {
			return true
		}
	}
	return len(a.GroupingSets) == 0 && len(a.GroupingKeys) == 0
}

// Union concatenates rows from Sources, mapping each source's own output
// symbols onto a single shared Output list via SymbolMapping.
type Union struct {
	id            PlanNodeID
	Sources       []PlanNode
	SymbolMapping map[Symbol][]Symbol // output symbol -> per-source symbol, aligned with Sources
	Output        []Symbol
}

// NewUnion constructs a Union node.
func NewUnion(id PlanNodeID, sources []PlanNode, symbolMapping map[Symbol][]Symbol, output []Symbol) *Union {
	return &Union{id: id, Sources: sources, SymbolMapping: symbolMapping, Output: output}
}

func (u *Union) ID() PlanNodeID          { return u.id }
func (u *Union) OutputSymbols() []Symbol { return u.Output }
func (u *Union) Children() []PlanNode    { return u.Sources }
func (u *Union) String() string          { return "Union" }

// SourceSymbolMap returns the output->source-symbol substitution for the
// i-th source.
func (u *Union) SourceSymbolMap(i int) map[Symbol]Symbol {
	out := make(map[Symbol]Symbol, len(u.Output))
	for _, outSym := range u.Output {
		srcSyms, ok := u.SymbolMapping[outSym]
		if !ok || i >= len(srcSyms) {
			continue
		}
		out[outSym] = srcSyms[i]
	}
	return out
}

// Exchange redistributes rows across Sources; Inputs[i] lists the symbols
// each source contributes, aligned with OutputSymbols.
type Exchange struct {
	id            PlanNodeID
	Sources       []PlanNode
	Inputs        [][]Symbol
	outputSymbols []Symbol
}

// NewExchange constructs an Exchange node.
func NewExchange(id PlanNodeID, sources []PlanNode, inputs [][]Symbol, outputSymbols []Symbol) *Exchange {
	return &Exchange{id: id, Sources: sources, Inputs: inputs, outputSymbols: outputSymbols}
}

func (e *Exchange) ID() PlanNodeID          { return e.id }
func (e *Exchange) OutputSymbols() []Symbol { return e.outputSymbols }
func (e *Exchange) Children() []PlanNode    { return e.Sources }
func (e *Exchange) String() string          { return "Exchange" }

// SourceSymbolMap returns the output->input-symbol substitution for the i-th
// source.
func (e *Exchange) SourceSymbolMap(i int) map[Symbol]Symbol {
	out := make(map[Symbol]Symbol, len(e.outputSymbols))
	for idx, outSym := range e.outputSymbols {
		if idx < len(e.Inputs[i]) {
			out[outSym] = e.Inputs[i][idx]
		}
	}
	return out
}

// Window computes window functions over Source, partitioned by PartitionBy.
type Window struct {
	id          PlanNodeID
	Source      PlanNode
	PartitionBy []Symbol
	output      []Symbol
}

// NewWindow constructs a Window node.
func NewWindow(id PlanNodeID, source PlanNode, partitionBy []Symbol, output []Symbol) *Window {
	return &Window{id: id, Source: source, PartitionBy: partitionBy, output: output}
}

func (w *Window) ID() PlanNodeID          { return w.id }
func (w *Window) OutputSymbols() []Symbol { return w.output }
func (w *Window) Children() []PlanNode    { return []PlanNode{w.Source} }
func (w *Window) String() string          { return "Window" }

// GroupId synthesizes a grouping-set discriminator column, used to
// implement GROUPING SETS / CUBE / ROLLUP.
type GroupId struct {
	id                    PlanNodeID
	Source                PlanNode
	GroupingColumns       map[Symbol]Symbol // output grouping symbol -> source symbol
	CommonGroupingColumns []Symbol          // present in every grouping set
	GroupIDSymbol         Symbol
	PassThroughSymbols    []Symbol
}

// NewGroupId constructs a GroupId node.
func NewGroupId(id PlanNodeID, source PlanNode, groupingColumns map[Symbol]Symbol, commonGroupingColumns []Symbol, groupIDSymbol Symbol, passThroughSymbols []Symbol) *GroupId {
	return &GroupId{id: id, Source: source, GroupingColumns: groupingColumns, CommonGroupingColumns: commonGroupingColumns, GroupIDSymbol: groupIDSymbol, PassThroughSymbols: passThroughSymbols}
}

func (g *GroupId) ID() PlanNodeID { return g.id }
func (g *GroupId) OutputSymbols() []Symbol {
	out := make([]Symbol, 0, len(g.GroupingColumns)+len(g.PassThroughSymbols)+1)
	for out_ := range g.GroupingColumns {
		out = append(out, out_)
	}
	sortSymbols(out)
	out = append(out, g.PassThroughSymbols...)
	out = append(out, g.GroupIDSymbol)
	return out
}
func (g *GroupId) Children() []PlanNode { return []PlanNode{g.Source} }
func (g *GroupId) String() string       { return "GroupId" }

// MarkDistinct appends a boolean output marking first-occurrence of
// DistinctSymbols within Source.
type MarkDistinct struct {
	id              PlanNodeID
	Source          PlanNode
	DistinctSymbols []Symbol
	MarkerSymbol    Symbol
}

// NewMarkDistinct constructs a MarkDistinct node.
func NewMarkDistinct(id PlanNodeID, source PlanNode, distinctSymbols []Symbol, markerSymbol Symbol) *MarkDistinct {
	return &MarkDistinct{id: id, Source: source, DistinctSymbols: distinctSymbols, MarkerSymbol: markerSymbol}
}

func (m *MarkDistinct) ID() PlanNodeID { return m.id }
func (m *MarkDistinct) OutputSymbols() []Symbol {
	return append(append([]Symbol{}, m.Source.OutputSymbols()...), m.MarkerSymbol)
}
func (m *MarkDistinct) Children() []PlanNode { return []PlanNode{m.Source} }
func (m *MarkDistinct) String() string       { return "MarkDistinct" }

// Unnest explodes array/map-valued UnnestSymbols into rows, replicating
// ReplicateSymbols across each exploded row. JoinType governs whether
// source rows with no elements to unnest are still emitted (LEFT) and
// whether an optional Filter applies post-unnest.
type Unnest struct {
	id               PlanNodeID
	Source           PlanNode
	ReplicateSymbols []Symbol
	UnnestSymbols    []Symbol
	JoinType         JoinType // InnerJoin, LeftJoin, RightJoin, or FullJoin
	Filter           Expression
	output           []Symbol
}

// NewUnnest constructs an Unnest node.
func NewUnnest(id PlanNodeID, source PlanNode, replicateSymbols, unnestSymbols []Symbol, joinType JoinType, filter Expression, output []Symbol) *Unnest {
	return &Unnest{id: id, Source: source, ReplicateSymbols: replicateSymbols, UnnestSymbols: unnestSymbols, JoinType: joinType, Filter: filter, output: output}
}

func (u *Unnest) ID() PlanNodeID          { return u.id }
func (u *Unnest) OutputSymbols() []Symbol { return u.output }
func (u *Unnest) Children() []PlanNode    { return []PlanNode{u.Source} }
func (u *Unnest) String() string          { return "Unnest" }

// Sample is a transparent carrier: the driver pushes predicates through it
// unchanged.
type Sample struct {
	id     PlanNodeID
	Source PlanNode
	Ratio  float64
}

// NewSample constructs a Sample node.
func NewSample(id PlanNodeID, source PlanNode, ratio float64) *Sample {
	return &Sample{id: id, Source: source, Ratio: ratio}
}

func (s *Sample) ID() PlanNodeID          { return s.id }
func (s *Sample) OutputSymbols() []Symbol { return s.Source.OutputSymbols() }
func (s *Sample) Children() []PlanNode    { return []PlanNode{s.Source} }
func (s *Sample) String() string          { return "Sample" }

// TableScan is a plan leaf reading from a base table.
type TableScan struct {
	id      PlanNodeID
	Table   string
	Columns []Symbol
}

// NewTableScan constructs a TableScan node.
func NewTableScan(id PlanNodeID, table string, columns []Symbol) *TableScan {
	return &TableScan{id: id, Table: table, Columns: columns}
}

func (t *TableScan) ID() PlanNodeID          { return t.id }
func (t *TableScan) OutputSymbols() []Symbol { return t.Columns }
func (t *TableScan) Children() []PlanNode    { return nil }
func (t *TableScan) String() string          { return "TableScan(" + t.Table + ")" }

// Sort is a transparent carrier: the driver pushes predicates through it
// unchanged (Sort has no pushdown rule of its own).
type Sort struct {
	id      PlanNodeID
	Source  PlanNode
	OrderBy []Symbol
}

// NewSort constructs a Sort node.
func NewSort(id PlanNodeID, source PlanNode, orderBy []Symbol) *Sort {
	return &Sort{id: id, Source: source, OrderBy: orderBy}
}

func (s *Sort) ID() PlanNodeID          { return s.id }
func (s *Sort) OutputSymbols() []Symbol { return s.Source.OutputSymbols() }
func (s *Sort) Children() []PlanNode    { return []PlanNode{s.Source} }
func (s *Sort) String() string          { return "Sort" }

// AssignUniqueId appends a synthesized unique-id column. Transparent for
// pushdown, but the inherited predicate must never reference IDColumn.
type AssignUniqueId struct {
	id       PlanNodeID
	Source   PlanNode
	IDColumn Symbol
}

// NewAssignUniqueId constructs an AssignUniqueId node.
func NewAssignUniqueId(id PlanNodeID, source PlanNode, idColumn Symbol) *AssignUniqueId {
	return &AssignUniqueId{id: id, Source: source, IDColumn: idColumn}
}

func (a *AssignUniqueId) ID() PlanNodeID { return a.id }
func (a *AssignUniqueId) OutputSymbols() []Symbol {
	return append(append([]Symbol{}, a.Source.OutputSymbols()...), a.IDColumn)
}
func (a *AssignUniqueId) Children() []PlanNode { return []PlanNode{a.Source} }
func (a *AssignUniqueId) String() string       { return "AssignUniqueId" }
