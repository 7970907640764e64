package model

import (
	"github.com/orionsql/semlayer/internal/ast"
	"github.com/orionsql/semlayer/internal/exprparser"
)

// JoinStep is one edge of the join path the resolver computed to reach a
// DataObject required by the query, already carrying the rendered ON
// condition as an AST fragment. DeclaredKind and Reversed describe the
// step's cardinality relative to how the join was declared: Reversed is
// true when this step travels from the declared Target back to the
// declared From, the direction the fanout check watches for on a
// DeclaredKind of many_to_one.
type JoinStep struct {
	From         string
	To           string
	Kind         ast.JoinKind
	On           ast.Expr
	PathName     string
	TargetIsFact bool
	DeclaredKind JoinKind
	Reversed     bool
}

// ResolvedDimension is a query dimension after expression expansion and
// any grain override has been applied.
type ResolvedDimension struct {
	Name       string
	Alias      string
	HomeObject string
	Expr       ast.Expr
	Grain      TimeGrain
}

// ResolvedMeasure is a query measure (Agg set, RawExpr populated) or a
// query metric (IsMetric set, MetricNode + Components populated) after
// expression expansion. The star planner wraps RawExpr in the aggregate
// function directly; the CFL planner instead projects RawExpr unwrapped
// per leg and applies the aggregate in the outer SELECT — both read
// Components/MetricNode to compose a metric from its resolved measures.
type ResolvedMeasure struct {
	Name       string
	Alias      string
	HomeObject string
	Agg        AggKind
	Distinct   bool
	RawExpr    ast.Expr

	IsMetric   bool
	MetricNode *exprparser.Node
	Components []string

	// ComponentMeasures holds the fully resolved leaf measure (never a
	// nested metric) behind every name in Components, keyed by name, so a
	// planner can substitute each NameRef in MetricNode without needing
	// access to the resolver's internal cache.
	ComponentMeasures map[string]ResolvedMeasure
}

// ResolvedFilter is a Filter after its target has been expanded to an AST
// fragment and classified into WHERE or HAVING. Raw is retained so the CFL
// planner can rebuild the same predicate against the composite CTE's
// output column instead of the star plan's table-qualified target.
type ResolvedFilter struct {
	Expr       ast.Expr
	IsHaving   bool
	SourceName string
	Raw        Filter
}

// ResolvedOrderBy is an OrderByEntry after its target has been resolved to
// a projection alias.
type ResolvedOrderBy struct {
	Alias      string
	Descending bool
}

// ResolvedQuery is the fully resolved, dialect-independent intermediate
// form the planner consumes: every name has been expanded to an AST
// fragment, the join path is fixed, and filters are pre-classified.
type ResolvedQuery struct {
	BaseObject string
	Facts      []string // all fact DataObjects the query touches (len > 1 implies CFL eligibility)
	Joins      []JoinStep
	Dimensions []ResolvedDimension
	Measures   []ResolvedMeasure
	Where      []ResolvedFilter
	Having     []ResolvedFilter
	OrderBy    []ResolvedOrderBy
	Limit      *int
	RequiresCFL bool
	UsePaths   []UsePathName
	Warnings   []string
}

// ResolvedReport summarizes a ResolvedQuery for the compilation result's
// external-facing `resolved` block (spec §6.3).
type ResolvedReport struct {
	FactTables []string
	Dimensions []string
	Measures   []string
}

// CompilationResult is the top-level output of the pipeline: rendered SQL
// plus the resolution report and any non-fatal warnings accumulated along
// the way (e.g. a failed post-generation syntax check). Fanout is never a
// warning: it fails compilation with FANOUT.
type CompilationResult struct {
	SQL      string
	Dialect  string
	Resolved ResolvedReport
	Warnings []string
}
