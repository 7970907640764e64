package dialect

import (
	"strings"

	"github.com/orionsql/semlayer/internal/ast"
)

// Dremio renders Dremio-flavored SQL.
type Dremio struct{}

func NewDremio() *Dremio { return &Dremio{} }

func (d *Dremio) Name() string { return "dremio" }

func (d *Dremio) Capabilities() Capabilities {
	return Capabilities{
		SupportsCTE:            true,
		SupportsSemiStructured: true,
	}
}

func (d *Dremio) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *Dremio) RenderTimeGrain(expr ast.Expr, grain string) ast.Expr {
	return ast.VerbatimCall{Name: "date_trunc", Args: []ast.Expr{ast.Lit(grain), expr}}
}

func (d *Dremio) RenderCast(expr ast.Expr, target string) ast.Expr {
	return standardCast(expr, target)
}

func (d *Dremio) RenderStringMatch(m ast.StringMatch) ast.Expr {
	return lowerLikeStringMatch(m)
}

func (d *Dremio) Compile(sel *ast.Select) (string, error) {
	return Render(d, sel)
}
