package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/orionsql/semlayer/internal/ast"
)

// Render performs the recursive AST walk described in spec §4.7's
// `compile` rule, delegating the handful of dialect-specific decisions
// (identifier quoting, time-grain truncation, casts, string matching) to
// d. Every dialect's Compile method is a thin call to Render.
func Render(d Dialect, sel *ast.Select) (string, error) {
	r := &renderer{d: d}
	r.writeSelect(sel)
	if r.err != nil {
		return "", r.err
	}
	return r.buf.String(), nil
}

type renderer struct {
	buf strings.Builder
	d   Dialect
	err error
}

func (r *renderer) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *renderer) writeSelect(sel *ast.Select) {
	if len(sel.With) > 0 {
		r.buf.WriteString("WITH ")
		for i, cte := range sel.With {
			if i > 0 {
				r.buf.WriteString(", ")
			}
			r.buf.WriteString(r.d.QuoteIdentifier(cte.Name))
			r.buf.WriteString(" AS (")
			switch body := cte.Body.(type) {
			case *ast.Select:
				r.writeSelect(body)
			case *ast.UnionAll:
				r.writeUnionAll(body)
			default:
				r.fail(fmt.Errorf("unsupported CTE body %T", body))
			}
			r.buf.WriteString(")")
		}
		r.buf.WriteString(" ")
	}

	r.buf.WriteString("SELECT ")
	for i, p := range sel.Projection {
		if i > 0 {
			r.buf.WriteString(", ")
		}
		r.writeExpr(p)
	}

	r.buf.WriteString(" FROM ")
	r.writeFrom(sel.From)

	for _, j := range sel.Joins {
		r.buf.WriteString(" ")
		r.buf.WriteString(string(j.Kind))
		r.buf.WriteString(" ")
		r.writeFrom(j.From)
		r.buf.WriteString(" ON ")
		r.writeExpr(j.On)
	}

	if len(sel.Where) > 0 {
		r.buf.WriteString(" WHERE ")
		r.writeAnd(sel.Where)
	}
	if len(sel.GroupBy) > 0 {
		r.buf.WriteString(" GROUP BY ")
		for i, g := range sel.GroupBy {
			if i > 0 {
				r.buf.WriteString(", ")
			}
			r.writeExpr(g)
		}
	}
	if len(sel.Having) > 0 {
		r.buf.WriteString(" HAVING ")
		r.writeAnd(sel.Having)
	}
	if len(sel.OrderBy) > 0 {
		r.buf.WriteString(" ORDER BY ")
		for i, o := range sel.OrderBy {
			if i > 0 {
				r.buf.WriteString(", ")
			}
			r.writeExpr(o.Expr)
			if o.Descending {
				r.buf.WriteString(" DESC")
			}
		}
	}
	if sel.Limit != nil {
		r.buf.WriteString(" LIMIT ")
		r.buf.WriteString(strconv.Itoa(*sel.Limit))
	}
}

func (r *renderer) writeAnd(preds []ast.Expr) {
	for i, p := range preds {
		if i > 0 {
			r.buf.WriteString(" AND ")
		}
		r.writeExpr(p)
	}
}

func (r *renderer) writeUnionAll(u *ast.UnionAll) {
	sep := " UNION ALL "
	if u.ByName {
		sep = " UNION ALL BY NAME "
	}
	for i, leg := range u.Selects {
		if i > 0 {
			r.buf.WriteString(sep)
		}
		r.writeSelect(leg)
	}
}

func (r *renderer) writeFrom(f ast.From) {
	if f.Subquery != nil {
		r.buf.WriteString("(")
		r.writeSelect(f.Subquery)
		r.buf.WriteString(")")
	} else {
		var parts []string
		if f.Database != "" {
			parts = append(parts, r.d.QuoteIdentifier(f.Database))
		}
		if f.Schema != "" {
			parts = append(parts, r.d.QuoteIdentifier(f.Schema))
		}
		parts = append(parts, r.d.QuoteIdentifier(f.Table))
		r.buf.WriteString(strings.Join(parts, "."))
	}
	r.buf.WriteString(" AS ")
	r.buf.WriteString(r.d.QuoteIdentifier(f.Alias))
}

func (r *renderer) writeExpr(e ast.Expr) {
	switch n := e.(type) {
	case nil:
		return
	case ast.Literal:
		r.buf.WriteString(renderLiteral(n.Value))
	case ast.ColumnRef:
		r.buf.WriteString(r.d.QuoteIdentifier(n.TableAlias))
		r.buf.WriteString(".")
		r.buf.WriteString(r.d.QuoteIdentifier(n.Column))
	case ast.Ident:
		r.buf.WriteString(r.d.QuoteIdentifier(n.Name))
	case ast.Star:
		r.buf.WriteString("*")
	case ast.AliasedExpr:
		r.writeExpr(n.Expr)
		r.buf.WriteString(" AS ")
		r.buf.WriteString(r.d.QuoteIdentifier(n.Alias))
	case ast.FunctionCall:
		r.writeFunctionCall(n)
	case ast.BinaryOp:
		r.buf.WriteString("(")
		r.writeExpr(n.Left)
		r.buf.WriteString(" ")
		r.buf.WriteString(n.Op)
		r.buf.WriteString(" ")
		r.writeExpr(n.Right)
		r.buf.WriteString(")")
	case ast.UnaryOp:
		r.buf.WriteString(n.Op)
		r.buf.WriteString(" ")
		r.writeExpr(n.Operand)
	case ast.IsNull:
		r.writeExpr(n.Expr)
		if n.Not {
			r.buf.WriteString(" IS NOT NULL")
		} else {
			r.buf.WriteString(" IS NULL")
		}
	case ast.InList:
		r.writeExpr(n.Expr)
		if n.Not {
			r.buf.WriteString(" NOT IN (")
		} else {
			r.buf.WriteString(" IN (")
		}
		for i, item := range n.Items {
			if i > 0 {
				r.buf.WriteString(", ")
			}
			r.writeExpr(item)
		}
		r.buf.WriteString(")")
	case ast.Between:
		r.writeExpr(n.Expr)
		if n.Not {
			r.buf.WriteString(" NOT BETWEEN ")
		} else {
			r.buf.WriteString(" BETWEEN ")
		}
		r.writeExpr(n.Low)
		r.buf.WriteString(" AND ")
		r.writeExpr(n.High)
	case ast.CaseExpr:
		r.buf.WriteString("CASE")
		for _, w := range n.Whens {
			r.buf.WriteString(" WHEN ")
			r.writeExpr(w.When)
			r.buf.WriteString(" THEN ")
			r.writeExpr(w.Then)
		}
		if n.Else != nil {
			r.buf.WriteString(" ELSE ")
			r.writeExpr(n.Else)
		}
		r.buf.WriteString(" END")
	case ast.Cast:
		r.writeExpr(r.d.RenderCast(n.Expr, n.Target))
	case ast.CastRendered:
		r.buf.WriteString("CAST(")
		r.writeExpr(n.Expr)
		r.buf.WriteString(" AS ")
		r.buf.WriteString(strings.ToUpper(n.Target))
		r.buf.WriteString(")")
	case ast.SubqueryExpr:
		r.buf.WriteString("(")
		r.writeSelect(n.Select)
		r.buf.WriteString(")")
	case ast.RawSQL:
		r.buf.WriteString(n.SQL)
	case ast.WindowFunction:
		r.writeFunctionCall(n.Function)
		r.buf.WriteString(" OVER (")
		if len(n.PartitionBy) > 0 {
			r.buf.WriteString("PARTITION BY ")
			for i, p := range n.PartitionBy {
				if i > 0 {
					r.buf.WriteString(", ")
				}
				r.writeExpr(p)
			}
		}
		if len(n.OrderBy) > 0 {
			if len(n.PartitionBy) > 0 {
				r.buf.WriteString(" ")
			}
			r.buf.WriteString("ORDER BY ")
			for i, o := range n.OrderBy {
				if i > 0 {
					r.buf.WriteString(", ")
				}
				r.writeExpr(o.Expr)
				if o.Descending {
					r.buf.WriteString(" DESC")
				}
			}
		}
		r.buf.WriteString(")")
	case ast.TimeGrainTrunc:
		r.writeExpr(r.d.RenderTimeGrain(n.Expr, n.Grain))
	case ast.StringMatch:
		r.writeExpr(r.d.RenderStringMatch(n))
	case ast.VerbatimCall:
		r.buf.WriteString(n.Name)
		r.buf.WriteString("(")
		for i, a := range n.Args {
			if i > 0 {
				r.buf.WriteString(", ")
			}
			r.writeExpr(a)
		}
		r.buf.WriteString(")")
	default:
		r.fail(fmt.Errorf("unsupported AST node %T", e))
	}
}

func (r *renderer) writeFunctionCall(fn ast.FunctionCall) {
	r.buf.WriteString(strings.ToUpper(fn.Name))
	r.buf.WriteString("(")
	if fn.Distinct {
		r.buf.WriteString("DISTINCT ")
	}
	for i, a := range fn.Args {
		if i > 0 {
			r.buf.WriteString(", ")
		}
		r.writeExpr(a)
	}
	r.buf.WriteString(")")
	if len(fn.WithinGroupBy) > 0 {
		r.buf.WriteString(" WITHIN GROUP (ORDER BY ")
		for i, o := range fn.WithinGroupBy {
			if i > 0 {
				r.buf.WriteString(", ")
			}
			r.writeExpr(o.Expr)
			if o.Descending {
				r.buf.WriteString(" DESC")
			}
		}
		r.buf.WriteString(")")
	}
	if fn.FilterWhere != nil {
		r.buf.WriteString(" FILTER (WHERE ")
		r.writeExpr(fn.FilterWhere)
		r.buf.WriteString(")")
	}
}

// renderLiteral implements the single literal-to-SQL helper design note:
// single quotes doubled, NULL/TRUE/FALSE as keywords, numerics as-is.
func renderLiteral(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}
