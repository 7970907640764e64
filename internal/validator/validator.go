// Package validator implements the semantic model invariant checks that
// must pass before any query is resolved against a model.
package validator

import (
	"fmt"

	"github.com/orionsql/semlayer/internal/exprparser"
	"github.com/orionsql/semlayer/internal/joingraph"
	"github.com/orionsql/semlayer/internal/model"
)

// Validate runs the full five-step algorithm against m and returns every
// issue found; a nil/empty result means the model is safe to compile
// against. Unlike the resolver, Validate does not stop at the first
// problem — callers typically surface the complete list to the model
// author in one pass.
func Validate(m *model.SemanticModel) []*model.CompileError {
	var issues []*model.CompileError

	issues = append(issues, checkUniqueness(m)...)
	issues = append(issues, checkJoinTargets(m)...)

	g := joingraph.Build(m)
	if has, cyc := g.HasCycle(); has {
		issues = append(issues, model.NewCompileErrorf(model.ErrCyclicJoin,
			"cyclic join path: %v", cyc))
	}

	issues = append(issues, checkDiamonds(m, g)...)
	issues = append(issues, checkSecondaryJoins(m)...)
	issues = append(issues, checkExpressions(m)...)

	return issues
}

// checkUniqueness implements step 1: column names unique within each
// DataObject; dimension/measure/metric names unique across the whole
// model, with no cross-bucket collisions either.
func checkUniqueness(m *model.SemanticModel) []*model.CompileError {
	var issues []*model.CompileError
	globalNames := map[string]string{} // name -> bucket it was first seen in

	claim := func(name, bucket string, pos model.SourcePos) {
		if prior, ok := globalNames[name]; ok {
			issues = append(issues, model.NewCompileErrorf(model.ErrDuplicateName,
				"%q is declared as both a %s and a %s", name, prior, bucket).WithSpan(model.SourceSpan{Line: pos.Line, Column: pos.Column}))
			return
		}
		globalNames[name] = bucket
	}

	for _, obj := range m.DataObjects {
		colNames := map[string]bool{}
		for _, c := range obj.Columns {
			if colNames[c.Name] {
				issues = append(issues, model.NewCompileErrorf(model.ErrNonUniqueColumn,
					"column %q is declared more than once on %q", c.Name, obj.Name).WithSpan(model.SourceSpan{Line: c.Pos.Line, Column: c.Pos.Column}))
				continue
			}
			colNames[c.Name] = true
		}
		for _, d := range obj.Dimensions {
			claim(d.Name, "dimension", d.Pos)
		}
		for _, me := range obj.Measures {
			claim(me.Name, "measure", me.Pos)
		}
		for _, mt := range obj.Metrics {
			claim(mt.Name, "metric", mt.Pos)
		}
	}
	return issues
}

// checkJoinTargets implements part of step 2/4: every join target must
// resolve to a declared DataObject and every referenced column must exist
// on the correct side.
func checkJoinTargets(m *model.SemanticModel) []*model.CompileError {
	var issues []*model.CompileError
	for _, obj := range m.DataObjects {
		for _, j := range obj.Joins {
			target := m.DataObjectByName(j.Target)
			if target == nil {
				issues = append(issues, model.NewCompileErrorf(model.ErrUnknownJoinTarget,
					"join from %q references unknown data object %q", obj.Name, j.Target).
					WithSpan(model.SourceSpan{Line: j.Pos.Line, Column: j.Pos.Column}))
				continue
			}
			for _, pair := range j.On {
				if obj.ColumnByName(pair.LeftColumn) == nil {
					issues = append(issues, model.NewCompileErrorf(model.ErrUnknownJoinColumn,
						"join from %q references unknown local column %q", obj.Name, pair.LeftColumn).
						WithSpan(model.SourceSpan{Line: j.Pos.Line, Column: j.Pos.Column}))
				}
				if target.ColumnByName(pair.RightColumn) == nil {
					issues = append(issues, model.NewCompileErrorf(model.ErrUnknownJoinColumn,
						"join from %q to %q references unknown target column %q", obj.Name, j.Target, pair.RightColumn).
						WithSpan(model.SourceSpan{Line: j.Pos.Line, Column: j.Pos.Column}))
				}
			}
		}
	}
	return issues
}

// checkDiamonds implements step 3: for each (A, T) pair with more than one
// primary path, reject unless one of the paths is the single direct edge
// A -> T (the canonical exception).
func checkDiamonds(m *model.SemanticModel, g *joingraph.Graph) []*model.CompileError {
	var issues []*model.CompileError
	for _, a := range m.DataObjects {
		for _, t := range m.DataObjects {
			if a.Name == t.Name {
				continue
			}
			directEdges := 0
			for _, j := range a.Joins {
				if j.Target == t.Name && !j.Secondary {
					directEdges++
				}
			}
			if directEdges == 0 {
				continue
			}
			_, ambiguous, ok := g.FindPath(a.Name, t.Name, "")
			if ok && ambiguous && directEdges == 1 {
				hasCanonical := false
				for _, j := range a.Joins {
					if j.Target == t.Name && j.IsCanonical {
						hasCanonical = true
					}
				}
				if !hasCanonical {
					issues = append(issues, model.NewCompileErrorf(model.ErrMultipathJoin,
						"%q to %q is reachable by more than one primary path; mark the direct edge canonical or name the secondary path",
						a.Name, t.Name))
				}
			}
		}
	}
	return issues
}

// checkSecondaryJoins implements step 4: every secondary join carries a
// path name, and the (source, target, pathName) triple is unique.
func checkSecondaryJoins(m *model.SemanticModel) []*model.CompileError {
	var issues []*model.CompileError
	seen := map[string]bool{}
	for _, obj := range m.DataObjects {
		for _, j := range obj.Joins {
			if !j.Secondary {
				continue
			}
			if j.PathName == "" {
				issues = append(issues, model.NewCompileErrorf(model.ErrSecondaryMissingPath,
					"secondary join from %q to %q requires a path_name", obj.Name, j.Target).
					WithSpan(model.SourceSpan{Line: j.Pos.Line, Column: j.Pos.Column}))
				continue
			}
			key := fmt.Sprintf("%s\x00%s\x00%s", obj.Name, j.Target, j.PathName)
			if seen[key] {
				issues = append(issues, model.NewCompileErrorf(model.ErrDuplicateSecondary,
					"duplicate secondary join (%s, %s, %s)", obj.Name, j.Target, j.PathName).
					WithSpan(model.SourceSpan{Line: j.Pos.Line, Column: j.Pos.Column}))
				continue
			}
			seen[key] = true
		}
	}
	return issues
}

// checkExpressions implements step 5: every measure's `{[D].[C]}`
// placeholders must resolve, every metric's `{[Name]}` placeholders must
// resolve to a measure or another metric, and the metric reference graph
// must be acyclic.
func checkExpressions(m *model.SemanticModel) []*model.CompileError {
	var issues []*model.CompileError

	for _, obj := range m.DataObjects {
		for _, me := range obj.Measures {
			issues = append(issues, checkColumnRefs(m, me.Expression, me.Pos)...)
		}
		for _, d := range obj.Dimensions {
			issues = append(issues, checkColumnRefs(m, d.Expression, d.Pos)...)
		}
	}

	names := map[string]bool{}
	for _, obj := range m.DataObjects {
		for _, me := range obj.Measures {
			names[me.Name] = true
		}
		for _, mt := range obj.Metrics {
			names[mt.Name] = true
		}
	}

	for _, obj := range m.DataObjects {
		for _, mt := range obj.Metrics {
			refs, err := extractNameRefs(mt.Expression)
			if err != nil {
				issues = append(issues, model.NewCompileErrorf(model.ErrParseExpression,
					"metric %q: %v", mt.Name, err).WithSpan(model.SourceSpan{Line: mt.Pos.Line, Column: mt.Pos.Column}))
				continue
			}
			for _, ref := range refs {
				if !names[ref] {
					issues = append(issues, model.NewCompileErrorf(model.ErrUnresolvedMeasureRef,
						"metric %q references unknown measure or metric %q", mt.Name, ref).
						WithSpan(model.SourceSpan{Line: mt.Pos.Line, Column: mt.Pos.Column}))
				}
			}
		}
	}

	if cyc := findMetricCycle(m); cyc != "" {
		issues = append(issues, model.NewCompileErrorf(model.ErrMetricCycle,
			"metric reference cycle detected at %q", cyc))
	}

	return issues
}

func checkColumnRefs(m *model.SemanticModel, expression string, pos model.SourcePos) []*model.CompileError {
	var issues []*model.CompileError
	node, err := exprparser.Parse(expression)
	if err != nil {
		issues = append(issues, model.NewCompileErrorf(model.ErrParseExpression, "%v", err).
			WithSpan(model.SourceSpan{Line: pos.Line, Column: pos.Column}))
		return issues
	}
	walkColumnRefs(node, func(object, column string) {
		if object == "" {
			return
		}
		obj := m.DataObjectByName(object)
		if obj == nil {
			issues = append(issues, model.NewCompileErrorf(model.ErrUnknownDataObject,
				"expression references unknown data object %q", object).
				WithSpan(model.SourceSpan{Line: pos.Line, Column: pos.Column}))
			return
		}
		if obj.ColumnByName(column) == nil {
			issues = append(issues, model.NewCompileErrorf(model.ErrUnknownColumn,
				"expression references unknown column %q on %q", column, object).
				WithSpan(model.SourceSpan{Line: pos.Line, Column: pos.Column}))
		}
	})
	return issues
}

func walkColumnRefs(n *exprparser.Node, fn func(object, column string)) {
	if n == nil {
		return
	}
	if n.Kind == exprparser.KindColumnRef {
		fn(n.Object, n.Column)
	}
	walkColumnRefs(n.Left, fn)
	walkColumnRefs(n.Right, fn)
	for _, arg := range n.Args {
		walkColumnRefs(arg, fn)
	}
}

func extractNameRefs(expression string) ([]string, error) {
	node, err := exprparser.Parse(expression)
	if err != nil {
		return nil, err
	}
	var out []string
	var walk func(n *exprparser.Node)
	walk = func(n *exprparser.Node) {
		if n == nil {
			return
		}
		if n.Kind == exprparser.KindNameRef {
			out = append(out, n.Name)
		}
		walk(n.Left)
		walk(n.Right)
		for _, arg := range n.Args {
			walk(arg)
		}
	}
	walk(node)
	return out, nil
}

// findMetricCycle does a DFS over the metric-to-metric reference graph
// (measure references are leaves) and returns the name at which a cycle
// was detected, or "" if the graph is acyclic.
func findMetricCycle(m *model.SemanticModel) string {
	metricExpr := map[string]string{}
	for _, obj := range m.DataObjects {
		for _, mt := range obj.Metrics {
			metricExpr[mt.Name] = mt.Expression
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}

	var visit func(name string) string
	visit = func(name string) string {
		expr, isMetric := metricExpr[name]
		if !isMetric {
			return ""
		}
		color[name] = gray
		refs, err := extractNameRefs(expr)
		if err == nil {
			for _, ref := range refs {
				if color[ref] == gray {
					return ref
				}
				if color[ref] == white {
					if cyc := visit(ref); cyc != "" {
						return cyc
					}
				}
			}
		}
		color[name] = black
		return ""
	}

	for name := range metricExpr {
		if color[name] == white {
			if cyc := visit(name); cyc != "" {
				return cyc
			}
		}
	}
	return ""
}
