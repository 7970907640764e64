package dialect

import (
	"strings"

	"github.com/orionsql/semlayer/internal/ast"
)

// Snowflake renders Snowflake-flavored SQL.
type Snowflake struct{}

func NewSnowflake() *Snowflake { return &Snowflake{} }

func (s *Snowflake) Name() string { return "snowflake" }

func (s *Snowflake) Capabilities() Capabilities {
	return Capabilities{
		SupportsCTE:        true,
		SupportsArrays:     true,
		SupportsTimeTravel: true,
		UnionByName:        true,
	}
}

func (s *Snowflake) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s *Snowflake) RenderTimeGrain(expr ast.Expr, grain string) ast.Expr {
	return ast.VerbatimCall{Name: "DATE_TRUNC", Args: []ast.Expr{ast.Lit(grain), expr}}
}

func (s *Snowflake) RenderCast(expr ast.Expr, target string) ast.Expr {
	return standardCast(expr, target)
}

// RenderStringMatch uses Snowflake's native CONTAINS/STARTSWITH/ENDSWITH
// functions rather than a LIKE rewrite (spec §4.7: "Snowflake: CONTAINS(col,
// pat)").
func (s *Snowflake) RenderStringMatch(m ast.StringMatch) ast.Expr {
	switch m.Mode {
	case "starts_with":
		return ast.FunctionCall{Name: "STARTSWITH", Args: []ast.Expr{m.Expr, m.Pattern}}
	case "ends_with":
		return ast.FunctionCall{Name: "ENDSWITH", Args: []ast.Expr{m.Expr, m.Pattern}}
	case "like":
		return ast.BinaryOp{Op: "LIKE", Left: m.Expr, Right: m.Pattern}
	case "not_like":
		return ast.BinaryOp{Op: "NOT LIKE", Left: m.Expr, Right: m.Pattern}
	case "not_contains":
		return ast.UnaryOp{Op: "NOT", Operand: ast.FunctionCall{Name: "CONTAINS", Args: []ast.Expr{m.Expr, m.Pattern}}}
	default: // contains
		return ast.FunctionCall{Name: "CONTAINS", Args: []ast.Expr{m.Expr, m.Pattern}}
	}
}

func (s *Snowflake) Compile(sel *ast.Select) (string, error) {
	return Render(s, sel)
}
