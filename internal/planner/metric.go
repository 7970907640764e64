// Package planner assembles the dialect-agnostic AST for a resolved query:
// the star plan for single-fact queries, and the CFL plan for queries
// whose measures span more than one fact (spec §4.5, §4.6).
package planner

import (
	"github.com/orionsql/semlayer/internal/ast"
	"github.com/orionsql/semlayer/internal/exprparser"
	"github.com/orionsql/semlayer/internal/model"
)

// buildMetricExpr substitutes every component NameRef in a metric's parsed
// expression tree with whatever leaf reads that component's value — a
// full aggregate call in the star plan, an aggregate over the component's
// CTE column in the CFL plan's outer SELECT.
func buildMetricExpr(node *exprparser.Node, components map[string]model.ResolvedMeasure, leaf func(model.ResolvedMeasure) ast.Expr) (ast.Expr, error) {
	if node == nil {
		return nil, nil
	}
	switch node.Kind {
	case exprparser.KindNameRef:
		comp, ok := components[node.Name]
		if !ok {
			return nil, model.NewCompileErrorf(model.ErrUnresolvedMeasureRef, "metric component %q was not resolved", node.Name)
		}
		return leaf(comp), nil
	case exprparser.KindNumber:
		return ast.Lit(node.Number), nil
	case exprparser.KindUnaryMinus:
		operand, err := buildMetricExpr(node.Left, components, leaf)
		if err != nil {
			return nil, err
		}
		return ast.UnaryOp{Op: "-", Operand: operand}, nil
	case exprparser.KindBinary:
		left, err := buildMetricExpr(node.Left, components, leaf)
		if err != nil {
			return nil, err
		}
		right, err := buildMetricExpr(node.Right, components, leaf)
		if err != nil {
			return nil, err
		}
		return ast.BinaryOp{Op: node.Op, Left: left, Right: right}, nil
	default:
		return nil, model.NewCompileErrorf(model.ErrUnsupportedFeature, "metric expressions may only reference measures, numbers, and arithmetic operators")
	}
}

// measureProjectionExpr builds the single AST expression a ResolvedMeasure
// contributes to a projection list, wrapping raw measure expressions in
// their aggregate function (or substituting a metric's components via
// wrapLeaf).
func measureProjectionExpr(me model.ResolvedMeasure, wrapAgg func(model.ResolvedMeasure) ast.Expr, wrapLeaf func(model.ResolvedMeasure) ast.Expr) (ast.Expr, error) {
	if !me.IsMetric {
		return wrapAgg(me), nil
	}
	return buildMetricExpr(me.MetricNode, me.ComponentMeasures, wrapLeaf)
}

// dimensionExpr applies a grain, if declared, as a dialect-agnostic
// TimeGrainTrunc marker over the dimension's raw column expression.
func dimensionExpr(d model.ResolvedDimension) ast.Expr {
	if d.Grain == "" {
		return d.Expr
	}
	return ast.TimeGrainTrunc{Expr: d.Expr, Grain: string(d.Grain)}
}
