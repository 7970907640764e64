// Package resolver turns a QueryObject plus a validated SemanticModel into
// a ResolvedQuery: concrete AST fragments for every dimension, measure,
// and metric, a fixed join path, classified filters, and the CFL
// requirement flag.
package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/orionsql/semlayer/internal/ast"
	"github.com/orionsql/semlayer/internal/exprparser"
	"github.com/orionsql/semlayer/internal/joingraph"
	"github.com/orionsql/semlayer/internal/model"
)

// Resolve implements the nine-step algorithm of spec §4.4.
func Resolve(q *model.QueryObject, m *model.SemanticModel) (*model.ResolvedQuery, error) {
	r := &resolveCtx{query: q, model: m, measureCache: map[string]*model.ResolvedMeasure{}}
	return r.run()
}

// JoinStepsFrom computes the join path from base to every name in
// required, honoring usePaths. It is exported for the CFL planner, which
// needs one independent join set per contributing fact leg rather than
// the single base/path pair a star query produces.
func JoinStepsFrom(m *model.SemanticModel, usePaths []model.UsePathName, base string, required []string) ([]model.JoinStep, error) {
	ctx := &resolveCtx{model: m, query: &model.QueryObject{UsePaths: usePaths}}
	req := map[string]bool{}
	for _, name := range required {
		req[name] = true
	}
	return ctx.computeJoinSteps(base, req)
}

type resolveCtx struct {
	query *model.QueryObject
	model *model.SemanticModel

	measureCache map[string]*model.ResolvedMeasure
}

func (r *resolveCtx) run() (*model.ResolvedQuery, error) {
	dims, err := r.resolveDimensions()
	if err != nil {
		return nil, err
	}

	measures, err := r.resolveSelectedMeasures()
	if err != nil {
		return nil, err
	}

	required := r.requiredObjects(dims, measures)

	factObjects := r.factObjectSet(measures)
	base, requiresCFL, err := r.selectBase(factObjects, required)
	if err != nil {
		return nil, err
	}

	// In the CFL case there is no single base: the CFL planner computes one
	// join set per contributing fact leg via JoinStepsFrom. The
	// top-level Joins field here only applies to the star plan.
	var joins []model.JoinStep
	if !requiresCFL {
		joins, err = r.computeJoinSteps(base, required)
		if err != nil {
			return nil, err
		}
		if err := r.checkFanout(joins, measures); err != nil {
			return nil, err
		}
	}

	where, having, err := r.classifyFilters(dims, measures)
	if err != nil {
		return nil, err
	}

	orderBy, err := r.resolveOrderBy(dims, measures)
	if err != nil {
		return nil, err
	}

	facts := make([]string, 0, len(factObjects))
	for name := range factObjects {
		facts = append(facts, name)
	}
	sort.Strings(facts)

	return &model.ResolvedQuery{
		BaseObject:  base,
		Facts:       facts,
		Joins:       joins,
		Dimensions:  dims,
		Measures:    measures,
		Where:       where,
		Having:      having,
		OrderBy:     orderBy,
		Limit:       r.query.Limit,
		RequiresCFL: requiresCFL,
		UsePaths:    r.query.UsePaths,
	}, nil
}

// findDimension locates a Dimension by name across every DataObject
// (dimension names are unique model-wide per the validator).
func (r *resolveCtx) findDimension(name string) (string, *model.Dimension) {
	for i := range r.model.DataObjects {
		obj := &r.model.DataObjects[i]
		if d := obj.DimensionByName(name); d != nil {
			return obj.Name, d
		}
	}
	return "", nil
}

func (r *resolveCtx) findMeasure(name string) (string, *model.Measure) {
	for i := range r.model.DataObjects {
		obj := &r.model.DataObjects[i]
		if mm := obj.MeasureByName(name); mm != nil {
			return obj.Name, mm
		}
	}
	return "", nil
}

func (r *resolveCtx) findMetric(name string) (string, *model.Metric) {
	for i := range r.model.DataObjects {
		obj := &r.model.DataObjects[i]
		if mt := obj.MetricByName(name); mt != nil {
			return obj.Name, mt
		}
	}
	return "", nil
}

// step 2: resolve dimensions, honoring a ":grain" suffix override.
func (r *resolveCtx) resolveDimensions() ([]model.ResolvedDimension, error) {
	var out []model.ResolvedDimension
	for _, raw := range r.query.Dimensions {
		name, grainOverride, _ := strings.Cut(raw, ":")
		objName, dim := r.findDimension(name)
		if dim == nil {
			return nil, model.NewCompileErrorf(model.ErrUnknownDimension, "unknown dimension %q", name)
		}

		expr, err := r.columnRefExpr(objName, dim.Expression)
		if err != nil {
			return nil, err
		}

		grain := dim.Grain
		if grainOverride != "" {
			grain = model.TimeGrain(grainOverride)
		}

		out = append(out, model.ResolvedDimension{
			Name:       dim.Name,
			Alias:      dim.Name,
			HomeObject: objName,
			Expr:       expr,
			Grain:      grain,
		})
	}
	return out, nil
}

// columnRefExpr parses a `{[Object].[Column]}` expression and converts it
// to an ast.ColumnRef using the column's physical code, defaulting the
// object to homeObject when the object part is empty (the `{[].[Column]}`
// form the YAML loader generates for a dimension declared without an
// expression).
func (r *resolveCtx) columnRefExpr(homeObject, expression string) (ast.Expr, error) {
	node, err := exprparser.Parse(expression)
	if err != nil {
		return nil, model.NewCompileErrorf(model.ErrParseExpression, "%v", err)
	}
	return r.convertExprNode(homeObject, node)
}

// convertExprNode walks a parsed expression tree, resolving every
// ColumnRef placeholder to the referenced column's physical code and
// every NameRef placeholder (used only inside measure/metric expressions
// in practice) by recursively resolving that measure/metric.
func (r *resolveCtx) convertExprNode(homeObject string, n *exprparser.Node) (ast.Expr, error) {
	if n == nil {
		return nil, nil
	}
	switch n.Kind {
	case exprparser.KindColumnRef:
		objName := n.Object
		if objName == "" {
			objName = homeObject
		}
		obj := r.model.DataObjectByName(objName)
		if obj == nil {
			return nil, model.NewCompileErrorf(model.ErrUnknownDataObject, "unknown data object %q", objName)
		}
		col := obj.ColumnByName(n.Column)
		if col == nil {
			return nil, model.NewCompileErrorf(model.ErrUnknownColumn, "unknown column %q on %q", n.Column, objName)
		}
		return ast.Col(obj.Name, col.PhysicalCol), nil
	case exprparser.KindNameRef:
		rm, err := r.resolveNamedMeasureOrMetric(n.Name)
		if err != nil {
			return nil, err
		}
		if rm.IsMetric {
			return nil, model.NewCompileErrorf(model.ErrUnsupportedFeature,
				"metric %q cannot be referenced from another expression at this position", n.Name)
		}
		return rm.RawExpr, nil
	case exprparser.KindNumber:
		return ast.Lit(n.Number), nil
	case exprparser.KindString:
		return ast.Lit(n.Str), nil
	case exprparser.KindFunctionCall:
		args := make([]ast.Expr, 0, len(n.Args))
		for _, a := range n.Args {
			arg, err := r.convertExprNode(homeObject, a)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		return ast.FunctionCall{Name: strings.ToUpper(n.Name), Args: args}, nil
	case exprparser.KindUnaryMinus:
		operand, err := r.convertExprNode(homeObject, n.Left)
		if err != nil {
			return nil, err
		}
		return ast.UnaryOp{Op: "-", Operand: operand}, nil
	case exprparser.KindBinary:
		left, err := r.convertExprNode(homeObject, n.Left)
		if err != nil {
			return nil, err
		}
		right, err := r.convertExprNode(homeObject, n.Right)
		if err != nil {
			return nil, err
		}
		return ast.BinaryOp{Op: n.Op, Left: left, Right: right}, nil
	default:
		return nil, fmt.Errorf("unrecognized expression node kind %d", n.Kind)
	}
}

// resolveNamedMeasureOrMetric resolves and caches a measure or metric by
// name, flattening nested metric references so MetricNode's leaves are
// always measure NameRefs. Cycles are already rejected by the validator.
func (r *resolveCtx) resolveNamedMeasureOrMetric(name string) (*model.ResolvedMeasure, error) {
	if cached, ok := r.measureCache[name]; ok {
		return cached, nil
	}

	if objName, me := r.findMeasure(name); me != nil {
		raw, err := r.columnRefExpr(objName, me.Expression)
		if err != nil {
			return nil, err
		}
		rm := &model.ResolvedMeasure{
			Name:       me.Name,
			Alias:      me.Name,
			HomeObject: objName,
			Agg:        me.Agg,
			Distinct:   me.Distinct,
			RawExpr:    raw,
		}
		r.measureCache[name] = rm
		return rm, nil
	}

	if _, mt := r.findMetric(name); mt != nil {
		node, err := exprparser.Parse(mt.Expression)
		if err != nil {
			return nil, model.NewCompileErrorf(model.ErrParseExpression, "metric %q: %v", name, err)
		}
		components, err := r.flattenMetricComponents(node, map[string]bool{name: true})
		if err != nil {
			return nil, err
		}
		componentMeasures := map[string]model.ResolvedMeasure{}
		for _, comp := range components {
			if leaf, ok := r.measureCache[comp]; ok {
				componentMeasures[comp] = *leaf
			}
		}
		rm := &model.ResolvedMeasure{
			Name:              mt.Name,
			Alias:             mt.Name,
			IsMetric:          true,
			MetricNode:        node,
			Components:        components,
			ComponentMeasures: componentMeasures,
		}
		r.measureCache[name] = rm
		return rm, nil
	}

	return nil, model.NewCompileErrorf(model.ErrUnknownMeasure, "unknown measure or metric %q", name)
}

// flattenMetricComponents walks a metric's parsed expression, resolving
// every component name ref (ensuring it is cached) and returns the sorted
// unique set of base measure names it ultimately depends on.
func (r *resolveCtx) flattenMetricComponents(n *exprparser.Node, seen map[string]bool) ([]string, error) {
	if n == nil {
		return nil, nil
	}
	if n.Kind == exprparser.KindNameRef {
		if seen[n.Name] {
			return nil, model.NewCompileErrorf(model.ErrMetricCycle, "metric cycle at %q", n.Name)
		}
		rm, err := r.resolveNamedMeasureOrMetric(n.Name)
		if err != nil {
			return nil, err
		}
		if rm.IsMetric {
			seenCopy := map[string]bool{}
			for k := range seen {
				seenCopy[k] = true
			}
			seenCopy[n.Name] = true
			return r.flattenMetricComponents(rm.MetricNode, seenCopy)
		}
		return []string{rm.Name}, nil
	}
	left, err := r.flattenMetricComponents(n.Left, seen)
	if err != nil {
		return nil, err
	}
	right, err := r.flattenMetricComponents(n.Right, seen)
	if err != nil {
		return nil, err
	}
	merged := map[string]bool{}
	for _, c := range left {
		merged[c] = true
	}
	for _, c := range right {
		merged[c] = true
	}
	for _, arg := range n.Args {
		comps, err := r.flattenMetricComponents(arg, seen)
		if err != nil {
			return nil, err
		}
		for _, c := range comps {
			merged[c] = true
		}
	}
	out := make([]string, 0, len(merged))
	for c := range merged {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

// step 3: resolve every selected measure/metric name.
func (r *resolveCtx) resolveSelectedMeasures() ([]model.ResolvedMeasure, error) {
	var out []model.ResolvedMeasure
	for _, name := range r.query.Measures {
		rm, err := r.resolveNamedMeasureOrMetric(name)
		if err != nil {
			return nil, err
		}
		out = append(out, *rm)
	}
	return out, nil
}

// step 4: the union of every resolved dimension/measure's home object,
// plus every base measure a metric ultimately depends on.
func (r *resolveCtx) requiredObjects(dims []model.ResolvedDimension, measures []model.ResolvedMeasure) map[string]bool {
	required := map[string]bool{}
	for _, d := range dims {
		required[d.HomeObject] = true
	}
	for _, me := range measures {
		if me.IsMetric {
			for _, comp := range me.Components {
				if rm, ok := r.measureCache[comp]; ok {
					required[rm.HomeObject] = true
				}
			}
			continue
		}
		required[me.HomeObject] = true
	}
	return required
}

// step 5: the set of distinct fact DataObjects contributing a measure.
func (r *resolveCtx) factObjectSet(measures []model.ResolvedMeasure) map[string]bool {
	facts := map[string]bool{}
	for _, me := range measures {
		if me.IsMetric {
			for _, comp := range me.Components {
				if rm, ok := r.measureCache[comp]; ok {
					facts[rm.HomeObject] = true
				}
			}
			continue
		}
		facts[me.HomeObject] = true
	}
	return facts
}

// selectBase chooses the single base fact for a star plan, or signals
// requiresCFL when more than one fact contributes. When no measure was
// selected at all, the base is chosen from the required dimension set by
// the same tie-break rule: prefer an object declaring outbound joins,
// then lexicographic order.
func (r *resolveCtx) selectBase(facts map[string]bool, required map[string]bool) (string, bool, error) {
	if len(facts) == 1 {
		for f := range facts {
			return f, false, nil
		}
	}
	if len(facts) > 1 {
		return "", true, nil
	}

	candidates := make([]string, 0, len(required))
	for name := range required {
		candidates = append(candidates, name)
	}
	if len(candidates) == 0 {
		return "", false, model.NewCompileError(model.ErrUnknownDataObject, "query selects no dimensions or measures")
	}
	sort.Slice(candidates, func(i, j int) bool {
		oi, oj := r.model.DataObjectByName(candidates[i]), r.model.DataObjectByName(candidates[j])
		oiJoins, ojJoins := len(oi.Joins) > 0, len(oj.Joins) > 0
		if oiJoins != ojJoins {
			return oiJoins
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0], false, nil
}

// step 6: compute join steps from base to every other required object,
// honoring UsePathName overrides.
func (r *resolveCtx) computeJoinSteps(base string, required map[string]bool) ([]model.JoinStep, error) {
	g := joingraph.Build(r.model)
	overrides := map[[2]string]string{}
	for _, o := range r.query.UsePaths {
		overrides[[2]string{o.Source, o.Target}] = o.PathName
	}

	targets := make([]string, 0, len(required))
	for name := range required {
		if name != base {
			targets = append(targets, name)
		}
	}
	sort.Strings(targets)

	seen := map[string]bool{}
	var steps []model.JoinStep
	for _, target := range targets {
		prefer := overrides[[2]string{base, target}]
		path, ambiguous, ok := g.FindPath(base, target, prefer)
		if !ok {
			return nil, model.NewCompileErrorf(model.ErrUnknownJoinTarget,
				"no join path from %q to %q", base, target)
		}
		if ambiguous {
			return nil, model.NewCompileErrorf(model.ErrAmbiguousJoin,
				"ambiguous join path from %q to %q; use use_path_names to disambiguate", base, target)
		}
		for _, edge := range path.Steps {
			key := edge.From + "\x00" + edge.To + "\x00" + edge.PathName
			if seen[key] {
				continue
			}
			seen[key] = true
			on, err := buildOnCondition(r.model, edge)
			if err != nil {
				return nil, err
			}
			targetObj := r.model.DataObjectByName(edge.To)
			steps = append(steps, model.JoinStep{
				From:         edge.From,
				To:           edge.To,
				Kind:         ast.KindLeft,
				On:           on,
				PathName:     edge.PathName,
				TargetIsFact: targetObj != nil && targetObj.IsFact,
				DeclaredKind: edge.Join.Kind,
				Reversed:     edge.Reversed,
			})
		}
	}
	return steps, nil
}

// buildOnCondition implements §4.2's build_on_condition: an AND-chain of
// per-column equalities. A reversed edge travels from the declared
// Target back to the declared From, so the column pair's sides swap with
// it: the declared Join.On always lists (From column, Target column).
// Each column renders under its physical code, like every other column.
func buildOnCondition(m *model.SemanticModel, edge joingraph.Edge) (ast.Expr, error) {
	if edge.Join == nil || len(edge.Join.On) == 0 {
		return nil, model.NewCompileErrorf(model.ErrUnknownJoinColumn, "join %s -> %s has no column pairs", edge.From, edge.To)
	}
	fromObj, toObj := m.DataObjectByName(edge.From), m.DataObjectByName(edge.To)
	var preds []ast.Expr
	for _, pair := range edge.Join.On {
		leftCol, rightCol := pair.LeftColumn, pair.RightColumn
		if edge.Reversed {
			leftCol, rightCol = rightCol, leftCol
		}
		if fromObj != nil {
			if c := fromObj.ColumnByName(leftCol); c != nil {
				leftCol = c.PhysicalCol
			}
		}
		if toObj != nil {
			if c := toObj.ColumnByName(rightCol); c != nil {
				rightCol = c.PhysicalCol
			}
		}
		preds = append(preds, ast.BinaryOp{
			Op:    "=",
			Left:  ast.Col(edge.From, leftCol),
			Right: ast.Col(edge.To, rightCol),
		})
	}
	return ast.And(preds), nil
}

// step 7: fanout detection. A many_to_one join traversed in reverse — from
// its "one" side into the "many" side — multiplies rows for any measure
// whose home object sits on that "one" side, unless the measure declares
// AllowFanOut. The reversal is implicit in the undirected join graph
// (§4.2), never a separately declared join kind.
func (r *resolveCtx) checkFanout(joins []model.JoinStep, measures []model.ResolvedMeasure) error {
	measureObjects := map[string]bool{}
	for _, me := range measures {
		if me.IsMetric {
			continue
		}
		measureObjects[me.HomeObject] = true
	}
	for _, rm := range r.measureCache {
		if !rm.IsMetric {
			measureObjects[rm.HomeObject] = true
		}
	}

	for _, step := range joins {
		if step.DeclaredKind != model.JoinManyToOne || !step.Reversed {
			continue
		}
		if !measureObjects[step.From] {
			continue
		}
		if !r.usedMeasuresAllowFanOut(step.From, measures) {
			return model.NewCompileErrorf(model.ErrFanout,
				"traversing one-to-many join from %q to %q would multiply rows for a measure on %q",
				step.From, step.To, step.From)
		}
	}
	return nil
}

// usedMeasuresAllowFanOut reports whether every measure the query uses on
// homeObject (selected directly or as a metric component) declares
// AllowFanOut.
func (r *resolveCtx) usedMeasuresAllowFanOut(homeObject string, measures []model.ResolvedMeasure) bool {
	obj := r.model.DataObjectByName(homeObject)
	if obj == nil {
		return true
	}
	for _, rm := range r.measureCache {
		if rm.IsMetric || rm.HomeObject != homeObject {
			continue
		}
		if me := obj.MeasureByName(rm.Name); me != nil && !me.AllowFanOut {
			return false
		}
	}
	return true
}
