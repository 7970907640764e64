package dialect

import (
	"strings"

	"github.com/orionsql/semlayer/internal/ast"
)

// ClickHouse renders ClickHouse-flavored SQL.
type ClickHouse struct{}

func NewClickHouse() *ClickHouse { return &ClickHouse{} }

func (c *ClickHouse) Name() string { return "clickhouse" }

func (c *ClickHouse) Capabilities() Capabilities {
	return Capabilities{
		SupportsCTE:     true,
		SupportsILike:   true,
		SupportsArrays:  true,
	}
}

func (c *ClickHouse) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// clickhouseGrainFuncs maps a grain to ClickHouse's named truncation
// function (spec §4.7): toStartOfMonth/Quarter/Year, toMonday for week,
// toDate for day, toStartOfHour/Minute/Second for the sub-day grains.
var clickhouseGrainFuncs = map[string]string{
	"second":  "toStartOfSecond",
	"minute":  "toStartOfMinute",
	"hour":    "toStartOfHour",
	"day":     "toDate",
	"week":    "toMonday",
	"month":   "toStartOfMonth",
	"quarter": "toStartOfQuarter",
	"year":    "toStartOfYear",
}

func (c *ClickHouse) RenderTimeGrain(expr ast.Expr, grain string) ast.Expr {
	fn, ok := clickhouseGrainFuncs[grain]
	if !ok {
		fn = "toStartOfMonth"
	}
	return ast.VerbatimCall{Name: fn, Args: []ast.Expr{expr}}
}

// clickhouseCastFuncs maps a cast target to ClickHouse's native conversion
// function; targets with no native entry fall back to standard CAST.
var clickhouseCastFuncs = map[string]string{
	"int":      "toInt64",
	"integer":  "toInt64",
	"bigint":   "toInt64",
	"float":    "toFloat64",
	"double":   "toFloat64",
	"decimal":  "toFloat64",
	"string":   "toString",
	"text":     "toString",
	"varchar":  "toString",
	"date":     "toDate",
}

func (c *ClickHouse) RenderCast(expr ast.Expr, target string) ast.Expr {
	if fn, ok := clickhouseCastFuncs[strings.ToLower(target)]; ok {
		return ast.VerbatimCall{Name: fn, Args: []ast.Expr{expr}}
	}
	return standardCast(expr, target)
}

func (c *ClickHouse) RenderStringMatch(m ast.StringMatch) ast.Expr {
	return ilikeStringMatch(m)
}

func (c *ClickHouse) Compile(sel *ast.Select) (string, error) {
	return Render(c, sel)
}
