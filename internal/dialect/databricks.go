package dialect

import (
	"strings"

	"github.com/orionsql/semlayer/internal/ast"
)

// Databricks renders Databricks SQL-flavored SQL. It is the one dialect
// that quotes identifiers with backticks rather than double quotes.
type Databricks struct{}

func NewDatabricks() *Databricks { return &Databricks{} }

func (d *Databricks) Name() string { return "databricks" }

func (d *Databricks) Capabilities() Capabilities {
	return Capabilities{
		SupportsCTE:            true,
		SupportsSemiStructured: true,
	}
}

func (d *Databricks) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d *Databricks) RenderTimeGrain(expr ast.Expr, grain string) ast.Expr {
	return ast.VerbatimCall{Name: "date_trunc", Args: []ast.Expr{ast.Lit(grain), expr}}
}

func (d *Databricks) RenderCast(expr ast.Expr, target string) ast.Expr {
	return standardCast(expr, target)
}

func (d *Databricks) RenderStringMatch(m ast.StringMatch) ast.Expr {
	return lowerLikeStringMatch(m)
}

func (d *Databricks) Compile(sel *ast.Select) (string, error) {
	return Render(d, sel)
}
