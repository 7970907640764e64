// Package dialect renders the dialect-agnostic SQL AST into warehouse-
// specific SQL text. Each implementation self-registers into a
// process-wide registry via an explicit Bootstrap call; the core never
// depends on import order to populate it.
package dialect

import "github.com/orionsql/semlayer/internal/ast"

// Capabilities is the feature-flag struct spec §4.7 calls for.
type Capabilities struct {
	SupportsCTE            bool
	SupportsQualify        bool
	SupportsArrays         bool
	SupportsWindowFilters  bool
	SupportsILike          bool
	SupportsTimeTravel     bool
	SupportsSemiStructured bool
	UnionByName            bool
}

// Dialect renders a Select AST into dialect-specific SQL text and
// supplies the handful of operators whose semantics diverge by warehouse.
type Dialect interface {
	Name() string
	Capabilities() Capabilities
	QuoteIdentifier(name string) string
	RenderTimeGrain(expr ast.Expr, grain string) ast.Expr
	RenderCast(expr ast.Expr, target string) ast.Expr
	RenderStringMatch(m ast.StringMatch) ast.Expr
	Compile(sel *ast.Select) (string, error)
}
