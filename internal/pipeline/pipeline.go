// Package pipeline orchestrates the compile sequence of spec §4.8:
// model validation, resolve, dialect lookup, plan, codegen, and an optional
// non-blocking syntax check, returning the bundled CompilationResult.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/orionsql/semlayer/internal/ast"
	"github.com/orionsql/semlayer/internal/dialect"
	"github.com/orionsql/semlayer/internal/model"
	"github.com/orionsql/semlayer/internal/planner"
	"github.com/orionsql/semlayer/internal/resolver"
	"github.com/orionsql/semlayer/internal/validator"
)

// SyntaxChecker is the optional, non-blocking post-generation sanity check
// spec §4.8 step 5 calls for: a driver that can parse (but not execute)
// the rendered SQL against the target engine. A failure never aborts
// compilation — it is surfaced as a warning only.
type SyntaxChecker interface {
	CheckSyntax(ctx context.Context, dialectName, sql string) error
}

// Pipeline compiles QueryObjects against a validated SemanticModel. It
// holds no per-call state and is safe for concurrent use (spec §5).
type Pipeline struct {
	registry *dialect.Registry
	checker  SyntaxChecker
	log      *zap.SugaredLogger
}

// Option configures a Pipeline at construction time.
type Option func(*Pipeline)

// WithSyntaxChecker installs an optional external syntax-checking driver.
func WithSyntaxChecker(c SyntaxChecker) Option {
	return func(p *Pipeline) { p.checker = c }
}

// WithLogger installs a structured logger; without one, Pipeline logs
// nothing.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithRegistry overrides the dialect registry (primarily for tests); the
// zero value uses dialect.Default().
func WithRegistry(r *dialect.Registry) Option {
	return func(p *Pipeline) { p.registry = r }
}

// New constructs a Pipeline. New does not see a model; Compile runs
// validator.Validate over the model on every call.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{registry: dialect.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Compile validates the model, resolves the query, plans it, and renders
// it through the named dialect. Validation errors are returned as a
// joined *model.CompileError chain via model.ValidationErrors; resolution
// and planning errors surface individually.
func (p *Pipeline) Compile(ctx context.Context, q *model.QueryObject, m *model.SemanticModel, dialectName string) (*model.CompilationResult, error) {
	if issues := validator.Validate(m); len(issues) > 0 {
		if p.log != nil {
			p.log.Warnw("semantic model failed validation", "issueCount", len(issues))
		}
		return nil, model.ValidationErrors(issues)
	}

	resolved, err := resolver.Resolve(q, m)
	if err != nil {
		return nil, err
	}

	d, err := p.registry.Get(dialectName)
	if err != nil {
		return nil, err
	}

	sel, err := p.plan(resolved, m, d)
	if err != nil {
		return nil, err
	}

	sql, err := d.Compile(sel)
	if err != nil {
		return nil, err
	}

	var warnings []string
	if p.checker != nil {
		if err := p.checker.CheckSyntax(ctx, dialectName, sql); err != nil {
			warnings = append(warnings, "syntax check: "+err.Error())
			if p.log != nil {
				p.log.Warnw("post-generation syntax check failed", "dialect", dialectName, "error", err)
			}
		}
	}
	warnings = append(warnings, resolved.Warnings...)

	if p.log != nil {
		p.log.Debugw("compiled query", "dialect", dialectName, "requiresCFL", resolved.RequiresCFL, "facts", resolved.Facts)
	}

	return &model.CompilationResult{
		SQL:      sql,
		Dialect:  dialectName,
		Resolved: resolvedReport(resolved),
		Warnings: warnings,
	}, nil
}

// plan implements step 2 of spec §4.8: a multi-fact query gets the CFL
// plan, honoring the dialect's UNION ALL BY NAME capability; a single-fact
// query gets the star plan (CFL also delegates to Star internally, but
// calling Star directly skips building CFL's join-required bookkeeping for
// the common case).
func (p *Pipeline) plan(rq *model.ResolvedQuery, m *model.SemanticModel, d dialect.Dialect) (*ast.Select, error) {
	if rq.RequiresCFL {
		return planner.CFL(rq, m, d.Capabilities().UnionByName)
	}
	return planner.Star(rq, m)
}

func resolvedReport(rq *model.ResolvedQuery) model.ResolvedReport {
	dims := make([]string, 0, len(rq.Dimensions))
	for _, d := range rq.Dimensions {
		dims = append(dims, d.Alias)
	}
	measures := make([]string, 0, len(rq.Measures))
	for _, me := range rq.Measures {
		measures = append(measures, me.Alias)
	}
	return model.ResolvedReport{
		FactTables: rq.Facts,
		Dimensions: dims,
		Measures:   measures,
	}
}
