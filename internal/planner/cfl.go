package planner

import (
	"sort"

	"github.com/orionsql/semlayer/internal/ast"
	"github.com/orionsql/semlayer/internal/model"
	"github.com/orionsql/semlayer/internal/resolver"
)

// compositeCTEName is the fixed name every CFL plan's single CTE carries
// (spec §6.5: "the CFL CTE is always named composite_01").
const compositeCTEName = "composite_01"

// CFL assembles the composite-fact-layer plan of spec §4.6 for a query
// whose measures span more than one fact: one CTE leg per contributing
// fact, each projecting the conformed dimensions plus its own raw
// (unaggregated) measure columns and NULL-padding every other leg's
// columns (or, when unionByName is set, omitting them for a
// UNION ALL BY NAME combination); the outer SELECT re-aggregates from the
// CTE and carries WHERE/HAVING/ORDER BY/LIMIT. A query that only turns out
// to touch one fact delegates transparently to Star.
func CFL(rq *model.ResolvedQuery, m *model.SemanticModel, unionByName bool) (*ast.Select, error) {
	if len(rq.Facts) <= 1 {
		return Star(rq, m)
	}

	baseMeasures := collectBaseMeasures(rq.Measures)

	requiredDimObjects := map[string]bool{}
	for _, d := range rq.Dimensions {
		requiredDimObjects[d.HomeObject] = true
	}

	legs := make([]*ast.Select, 0, len(rq.Facts))
	for _, fact := range rq.Facts {
		leg, err := buildLeg(m, rq.UsePaths, fact, requiredDimObjects, rq.Dimensions, baseMeasures, unionByName)
		if err != nil {
			return nil, err
		}
		legs = append(legs, leg)
	}

	outer := &ast.Select{
		With: []ast.CTE{{Name: compositeCTEName, Body: &ast.UnionAll{Selects: legs, ByName: unionByName}}},
		From: ast.From{Table: compositeCTEName, Alias: compositeCTEName},
	}

	for _, d := range rq.Dimensions {
		outer.Projection = append(outer.Projection, ast.Aliased(ast.Ident{Name: d.Alias}, d.Alias))
		outer.GroupBy = append(outer.GroupBy, ast.Ident{Name: d.Alias})
	}

	wrapOuter := func(me model.ResolvedMeasure) ast.Expr {
		return resolver.WrapAggregate(me.Agg, ast.Col(compositeCTEName, me.Name), me.Distinct)
	}
	for _, me := range rq.Measures {
		expr, err := measureProjectionExpr(me, wrapOuter, wrapOuter)
		if err != nil {
			return nil, err
		}
		outer.Projection = append(outer.Projection, ast.Aliased(expr, me.Alias))
	}

	for _, f := range rq.Where {
		expr, err := resolver.BuildFilterExpr(ast.Ident{Name: f.SourceName}, f.Raw)
		if err != nil {
			return nil, err
		}
		outer.Where = append(outer.Where, expr)
	}
	for _, f := range rq.Having {
		target := ast.Expr(ast.Col(compositeCTEName, f.SourceName))
		if me, ok := baseMeasures[f.SourceName]; ok {
			target = wrapOuter(me)
		}
		expr, err := resolver.BuildFilterExpr(target, f.Raw)
		if err != nil {
			return nil, err
		}
		outer.Having = append(outer.Having, expr)
	}
	for _, o := range rq.OrderBy {
		outer.OrderBy = append(outer.OrderBy, ast.OrderByItem{Expr: ast.Ident{Name: o.Alias}, Descending: o.Descending})
	}
	outer.Limit = rq.Limit

	return outer, nil
}

// collectBaseMeasures flattens every selected measure/metric down to the
// leaf (non-metric) measures that actually own a raw expression, keyed by
// name, so each CFL leg knows which column to populate for real versus
// NULL-pad.
func collectBaseMeasures(measures []model.ResolvedMeasure) map[string]model.ResolvedMeasure {
	out := map[string]model.ResolvedMeasure{}
	for _, me := range measures {
		if !me.IsMetric {
			out[me.Name] = me
			continue
		}
		for name, leaf := range me.ComponentMeasures {
			out[name] = leaf
		}
	}
	return out
}

func buildLeg(m *model.SemanticModel, usePaths []model.UsePathName, fact string, requiredDimObjects map[string]bool, dims []model.ResolvedDimension, baseMeasures map[string]model.ResolvedMeasure, unionByName bool) (*ast.Select, error) {
	factObj := m.DataObjectByName(fact)
	if factObj == nil {
		return nil, model.NewCompileErrorf(model.ErrUnknownDataObject, "fact %q not found", fact)
	}

	required := map[string]bool{}
	for obj := range requiredDimObjects {
		if obj != fact {
			required[obj] = true
		}
	}
	reqNames := make([]string, 0, len(required))
	for name := range required {
		reqNames = append(reqNames, name)
	}

	joins, err := resolver.JoinStepsFrom(m, usePaths, fact, reqNames)
	if err != nil {
		return nil, err
	}

	leg := &ast.Select{From: fromOf(factObj)}
	for _, step := range joins {
		target := m.DataObjectByName(step.To)
		if target == nil {
			return nil, model.NewCompileErrorf(model.ErrUnknownDataObject, "join target %q not found", step.To)
		}
		leg.Joins = append(leg.Joins, ast.Join{Kind: step.Kind, From: fromOf(target), On: step.On})
	}

	for _, d := range dims {
		leg.Projection = append(leg.Projection, ast.Aliased(dimensionExpr(d), d.Alias))
	}

	names := make([]string, 0, len(baseMeasures))
	for name := range baseMeasures {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		me := baseMeasures[name]
		switch {
		case me.HomeObject == fact:
			leg.Projection = append(leg.Projection, ast.Aliased(me.RawExpr, me.Name))
		case unionByName:
			// Snowflake's UNION ALL BY NAME matches legs by column name; a
			// leg simply omits the columns it has nothing to contribute.
		default:
			leg.Projection = append(leg.Projection, ast.Aliased(ast.Lit(nil), me.Name))
		}
	}

	return leg, nil
}
