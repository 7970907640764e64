package planner

import (
	"github.com/orionsql/semlayer/internal/ast"
	"github.com/orionsql/semlayer/internal/model"
	"github.com/orionsql/semlayer/internal/resolver"
)

// Star assembles the single-fact plan of spec §4.5: one base FROM, one
// LEFT JOIN per resolved join step in order, dimensions then measures in
// the projection, GROUP BY repeating the dimension expressions, and
// WHERE/HAVING/ORDER BY/LIMIT carried straight from the resolved query.
func Star(rq *model.ResolvedQuery, m *model.SemanticModel) (*ast.Select, error) {
	base := m.DataObjectByName(rq.BaseObject)
	if base == nil {
		return nil, model.NewCompileErrorf(model.ErrUnknownDataObject, "base object %q not found", rq.BaseObject)
	}

	sel := &ast.Select{
		From: fromOf(base),
	}

	for _, step := range rq.Joins {
		target := m.DataObjectByName(step.To)
		if target == nil {
			return nil, model.NewCompileErrorf(model.ErrUnknownDataObject, "join target %q not found", step.To)
		}
		sel.Joins = append(sel.Joins, ast.Join{Kind: step.Kind, From: fromOf(target), On: step.On})
	}

	for _, d := range rq.Dimensions {
		sel.Projection = append(sel.Projection, ast.Aliased(dimensionExpr(d), d.Alias))
		sel.GroupBy = append(sel.GroupBy, dimensionExpr(d))
	}

	wrapAgg := func(me model.ResolvedMeasure) ast.Expr {
		return resolver.WrapAggregate(me.Agg, me.RawExpr, me.Distinct)
	}
	for _, me := range rq.Measures {
		expr, err := measureProjectionExpr(me, wrapAgg, wrapAgg)
		if err != nil {
			return nil, err
		}
		sel.Projection = append(sel.Projection, ast.Aliased(expr, me.Alias))
	}

	for _, f := range rq.Where {
		sel.Where = append(sel.Where, f.Expr)
	}
	for _, f := range rq.Having {
		sel.Having = append(sel.Having, f.Expr)
	}
	for _, o := range rq.OrderBy {
		sel.OrderBy = append(sel.OrderBy, ast.OrderByItem{Expr: ast.Ident{Name: o.Alias}, Descending: o.Descending})
	}
	sel.Limit = rq.Limit

	return sel, nil
}

func fromOf(obj *model.DataObject) ast.From {
	return ast.From{Database: obj.Database, Schema: obj.Schema, Table: obj.Table, Alias: obj.Name}
}
