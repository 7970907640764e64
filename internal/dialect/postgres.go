package dialect

import (
	"strings"

	"github.com/orionsql/semlayer/internal/ast"
)

// Postgres renders PostgreSQL-flavored SQL.
type Postgres struct{}

func NewPostgres() *Postgres { return &Postgres{} }

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) Capabilities() Capabilities {
	return Capabilities{
		SupportsCTE:           true,
		SupportsQualify:       false,
		SupportsArrays:        true,
		SupportsWindowFilters: true,
		SupportsILike:         true,
	}
}

func (p *Postgres) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (p *Postgres) RenderTimeGrain(expr ast.Expr, grain string) ast.Expr {
	return ast.VerbatimCall{Name: "date_trunc", Args: []ast.Expr{ast.Lit(grain), expr}}
}

func (p *Postgres) RenderCast(expr ast.Expr, target string) ast.Expr {
	return standardCast(expr, target)
}

func (p *Postgres) RenderStringMatch(m ast.StringMatch) ast.Expr {
	return ilikeStringMatch(m)
}

func (p *Postgres) Compile(sel *ast.Select) (string, error) {
	return Render(p, sel)
}
