package resolver

import (
	"strings"

	"github.com/orionsql/semlayer/internal/ast"
	"github.com/orionsql/semlayer/internal/model"
)

// classifyFilters implements step 8: a filter on a Dimension becomes a
// WHERE predicate, a filter on a Measure becomes a HAVING predicate, and a
// filter on a Metric is rejected with UNSUPPORTED_FEATURE (see
// measureAggregateExpr). Both the query's `where` and `having` blocks feed the same
// classification — callers are expected to route correctly, but the
// resolver does not trust the incoming bucket.
func (r *resolveCtx) classifyFilters(dims []model.ResolvedDimension, measures []model.ResolvedMeasure) ([]model.ResolvedFilter, []model.ResolvedFilter, error) {
	dimByName := map[string]model.ResolvedDimension{}
	for _, d := range dims {
		dimByName[d.Name] = d
	}
	measureByName := map[string]model.ResolvedMeasure{}
	for _, me := range measures {
		measureByName[me.Name] = me
	}

	var where, having []model.ResolvedFilter
	all := append(append([]model.Filter{}, r.query.Where...), r.query.Having...)

	for _, f := range all {
		if d, ok := dimByName[f.Field]; ok {
			expr, err := buildFilterExpr(d.Expr, f)
			if err != nil {
				return nil, nil, err
			}
			where = append(where, model.ResolvedFilter{Expr: expr, IsHaving: false, SourceName: f.Field, Raw: f})
			continue
		}
		if me, ok := measureByName[f.Field]; ok {
			aggExpr, err := measureAggregateExpr(me)
			if err != nil {
				return nil, nil, err
			}
			expr, err := buildFilterExpr(aggExpr, f)
			if err != nil {
				return nil, nil, err
			}
			having = append(having, model.ResolvedFilter{Expr: expr, IsHaving: true, SourceName: f.Field, Raw: f})
			continue
		}
		// Not already selected: resolve it fresh the same way a select
		// entry would be, to support filtering on an unprojected field.
		if objName, dim := r.findDimension(f.Field); dim != nil {
			expr, err := r.columnRefExpr(objName, dim.Expression)
			if err != nil {
				return nil, nil, err
			}
			resolved, err := buildFilterExpr(expr, f)
			if err != nil {
				return nil, nil, err
			}
			where = append(where, model.ResolvedFilter{Expr: resolved, IsHaving: false, SourceName: f.Field, Raw: f})
			continue
		}
		rm, err := r.resolveNamedMeasureOrMetric(f.Field)
		if err != nil {
			return nil, nil, err
		}
		aggExpr, err := measureAggregateExpr(*rm)
		if err != nil {
			return nil, nil, err
		}
		resolved, err := buildFilterExpr(aggExpr, f)
		if err != nil {
			return nil, nil, err
		}
		having = append(having, model.ResolvedFilter{Expr: resolved, IsHaving: true, SourceName: f.Field, Raw: f})
	}

	return where, having, nil
}

// measureAggregateExpr wraps a plain measure's raw expression in its
// aggregate function for use in a HAVING predicate. A metric is not
// supported here: it returns an UNSUPPORTED_FEATURE error, so a HAVING
// filter can name only a plain measure.
func measureAggregateExpr(me model.ResolvedMeasure) (ast.Expr, error) {
	if !me.IsMetric {
		return wrapAggregate(me.Agg, me.RawExpr, me.Distinct), nil
	}
	return nil, model.NewCompileErrorf(model.ErrUnsupportedFeature,
		"filtering directly on metric %q in HAVING is not supported; filter its component measures instead", me.Name)
}

func wrapAggregate(agg model.AggKind, raw ast.Expr, distinct bool) ast.Expr {
	return ast.FunctionCall{Name: aggFuncName(agg), Args: []ast.Expr{raw}, Distinct: distinct || agg == model.AggCountDist}
}

// WrapAggregate builds `AGG(raw)` (or `AGG(DISTINCT raw)`). Exported for the
// star planner, which wraps every plain measure's raw expression in its
// aggregate directly, and the CFL planner's outer SELECT, which applies the
// aggregate over the CTE's unaggregated measure column instead.
func WrapAggregate(agg model.AggKind, raw ast.Expr, distinct bool) ast.Expr {
	return wrapAggregate(agg, raw, distinct)
}

func aggFuncName(agg model.AggKind) string {
	switch agg {
	case model.AggSum:
		return "SUM"
	case model.AggCount:
		return "COUNT"
	case model.AggCountDist:
		return "COUNT"
	case model.AggAvg:
		return "AVG"
	case model.AggMin:
		return "MIN"
	case model.AggMax:
		return "MAX"
	case model.AggAnyValue:
		return "ANY_VALUE"
	case model.AggMedian:
		return "MEDIAN"
	case model.AggMode:
		return "MODE"
	case model.AggListagg:
		return "LISTAGG"
	default:
		return "SUM"
	}
}

// BuildFilterExpr renders a Filter's operator into an AST predicate against
// target. Exported so the CFL planner can rebuild a ResolvedFilter's
// predicate against the composite CTE's output column instead of the star
// plan's table-qualified target (ResolvedFilter.Raw carries the operator
// and value needed to do so).
func BuildFilterExpr(target ast.Expr, f model.Filter) (ast.Expr, error) {
	return buildFilterExpr(target, f)
}

func buildFilterExpr(target ast.Expr, f model.Filter) (ast.Expr, error) {
	switch f.Operator {
	case model.OpEquals:
		return ast.BinaryOp{Op: "=", Left: target, Right: ast.Lit(f.Value)}, nil
	case model.OpNotEquals:
		return ast.BinaryOp{Op: "!=", Left: target, Right: ast.Lit(f.Value)}, nil
	case model.OpGreaterThan:
		return ast.BinaryOp{Op: ">", Left: target, Right: ast.Lit(f.Value)}, nil
	case model.OpGreaterEq:
		return ast.BinaryOp{Op: ">=", Left: target, Right: ast.Lit(f.Value)}, nil
	case model.OpLessThan:
		return ast.BinaryOp{Op: "<", Left: target, Right: ast.Lit(f.Value)}, nil
	case model.OpLessEq:
		return ast.BinaryOp{Op: "<=", Left: target, Right: ast.Lit(f.Value)}, nil
	case model.OpIn, model.OpNotIn:
		items, err := literalList(f.Value)
		if err != nil {
			return nil, err
		}
		return ast.InList{Expr: target, Items: items, Not: f.Operator == model.OpNotIn}, nil
	case model.OpIsNull:
		return ast.IsNull{Expr: target, Not: false}, nil
	case model.OpIsNotNull:
		return ast.IsNull{Expr: target, Not: true}, nil
	case model.OpContains, model.OpNotContains, model.OpStartsWith, model.OpEndsWith, model.OpLike, model.OpNotLike:
		return ast.StringMatch{Expr: target, Pattern: ast.Lit(f.Value), Mode: string(f.Operator)}, nil
	case model.OpBetween, model.OpNotBetween:
		low, high, err := betweenBounds(f.Value)
		if err != nil {
			return nil, err
		}
		return ast.Between{Expr: target, Low: low, High: high, Not: f.Operator == model.OpNotBetween}, nil
	case model.OpRelative:
		return buildRelativeExpr(target, f.Value)
	default:
		return nil, model.NewCompileErrorf(model.ErrUnknownFilterOperator, "unknown filter operator %q", f.Operator)
	}
}

func literalList(v any) ([]ast.Expr, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, model.NewCompileError(model.ErrUnknownFilterOperator, "expected a list value for an IN/NOT IN filter")
	}
	out := make([]ast.Expr, 0, len(items))
	for _, it := range items {
		out = append(out, ast.Lit(it))
	}
	return out, nil
}

func betweenBounds(v any) (ast.Expr, ast.Expr, error) {
	items, ok := v.([]any)
	if !ok || len(items) != 2 {
		return nil, nil, model.NewCompileError(model.ErrUnknownFilterOperator, "expected a two-element list for a BETWEEN filter")
	}
	return ast.Lit(items[0]), ast.Lit(items[1]), nil
}

// buildRelativeExpr expands a `relative` filter into a BETWEEN over
// [current_date_at_grain - offset, current_date_at_grain] (or the
// future-facing form), where the grain is the filter's unit. CURRENT_DATE
// and DATE_ADD are plain function calls: every dialect renders them through
// its generic function-call path as CURRENT_DATE() and
// DATE_ADD(date, count, 'unit'); no dialect substitutes its own date
// functions for them.
func buildRelativeExpr(target ast.Expr, v any) (ast.Expr, error) {
	rel, ok := v.(model.RelativeTimeValue)
	if !ok {
		return nil, model.NewCompileError(model.ErrUnknownFilterOperator, "expected a relative-time value")
	}
	now := ast.TimeGrainTrunc{Expr: ast.FunctionCall{Name: "CURRENT_DATE"}, Grain: strings.TrimSuffix(string(rel.Unit), "s")}
	count := rel.Count
	if rel.Direction != model.RelativeFuture {
		count = -count
	}
	offset := ast.FunctionCall{Name: "DATE_ADD", Args: []ast.Expr{
		now, ast.Lit(count), ast.Lit(string(rel.Unit)),
	}}
	if rel.Direction == model.RelativeFuture {
		return ast.Between{Expr: target, Low: now, High: offset}, nil
	}
	return ast.Between{Expr: target, Low: offset, High: now}, nil
}

// resolveOrderBy implements step 9.
func (r *resolveCtx) resolveOrderBy(dims []model.ResolvedDimension, measures []model.ResolvedMeasure) ([]model.ResolvedOrderBy, error) {
	aliasSet := map[string]bool{}
	for _, d := range dims {
		aliasSet[d.Name] = true
	}
	for _, me := range measures {
		aliasSet[me.Name] = true
	}

	var out []model.ResolvedOrderBy
	for _, entry := range r.query.OrderBy {
		if !aliasSet[entry.Field] {
			return nil, model.NewCompileErrorf(model.ErrUnknownDimension,
				"order_by references %q which is not in the selected dimensions/measures", entry.Field)
		}
		out = append(out, model.ResolvedOrderBy{Alias: entry.Field, Descending: entry.Descending})
	}
	return out, nil
}
