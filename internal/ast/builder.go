package ast

// Builder accumulates a Select statement through fluent calls and returns
// the finished, immutable node from Build. Planners construct one Builder
// per SELECT (including each CFL union leg).
type Builder struct {
	sel Select
}

// NewBuilder starts a fresh SELECT against the given FROM source.
func NewBuilder(from From) *Builder {
	return &Builder{sel: Select{From: from}}
}

func (b *Builder) With(ctes ...CTE) *Builder {
	b.sel.With = append(b.sel.With, ctes...)
	return b
}

func (b *Builder) Select(exprs ...Expr) *Builder {
	b.sel.Projection = append(b.sel.Projection, exprs...)
	return b
}

func (b *Builder) Join(kind JoinKind, from From, on Expr) *Builder {
	b.sel.Joins = append(b.sel.Joins, Join{Kind: kind, From: from, On: on})
	return b
}

func (b *Builder) Where(exprs ...Expr) *Builder {
	b.sel.Where = append(b.sel.Where, exprs...)
	return b
}

func (b *Builder) GroupBy(exprs ...Expr) *Builder {
	b.sel.GroupBy = append(b.sel.GroupBy, exprs...)
	return b
}

func (b *Builder) Having(exprs ...Expr) *Builder {
	b.sel.Having = append(b.sel.Having, exprs...)
	return b
}

func (b *Builder) OrderBy(items ...OrderByItem) *Builder {
	b.sel.OrderBy = append(b.sel.OrderBy, items...)
	return b
}

func (b *Builder) Limit(n int) *Builder {
	b.sel.Limit = &n
	return b
}

// Build returns the finished statement. The Builder must not be reused
// afterward.
func (b *Builder) Build() *Select {
	out := b.sel
	return &out
}

// Col is a shorthand constructor for ColumnRef.
func Col(tableAlias, column string) ColumnRef {
	return ColumnRef{TableAlias: tableAlias, Column: column}
}

// Lit is a shorthand constructor for Literal.
func Lit(v any) Literal {
	return Literal{Value: v}
}

// Aliased is a shorthand constructor for AliasedExpr.
func Aliased(e Expr, alias string) AliasedExpr {
	return AliasedExpr{Expr: e, Alias: alias}
}

// Fn is a shorthand constructor for a plain FunctionCall.
func Fn(name string, args ...Expr) FunctionCall {
	return FunctionCall{Name: name, Args: args}
}

// And folds a slice of predicates into a left-associative AND chain,
// returning nil for an empty slice and the single predicate unwrapped for
// a one-element slice (the resolver's join ON condition relies on this so a
// single-column join renders without an AND).
func And(exprs []Expr) Expr {
	if len(exprs) == 0 {
		return nil
	}
	out := exprs[0]
	for _, e := range exprs[1:] {
		out = BinaryOp{Op: "AND", Left: out, Right: e}
	}
	return out
}
