package dialect

import "github.com/orionsql/semlayer/internal/ast"

// concat builds a dialect-neutral `a || b || ...` chain, used to build
// '%'-wrapped LIKE/ILIKE patterns.
func concat(parts ...ast.Expr) ast.Expr {
	out := parts[0]
	for _, p := range parts[1:] {
		out = ast.BinaryOp{Op: "||", Left: out, Right: p}
	}
	return out
}

func percentWrap(pattern ast.Expr, mode string) ast.Expr {
	switch mode {
	case "starts_with":
		return concat(pattern, ast.Lit("%"))
	case "ends_with":
		return concat(ast.Lit("%"), pattern)
	default: // contains, not_contains
		return concat(ast.Lit("%"), pattern, ast.Lit("%"))
	}
}

// ilikeStringMatch renders the contains-family operators as an
// ILIKE/NOT ILIKE comparison against a '%'-wrapped pattern, with `like`/
// `not_like` passed through unwrapped. Shared by Postgres and ClickHouse,
// whose string-contains semantics spec §4.7 groups together.
func ilikeStringMatch(m ast.StringMatch) ast.Expr {
	switch m.Mode {
	case "like":
		return ast.BinaryOp{Op: "LIKE", Left: m.Expr, Right: m.Pattern}
	case "not_like":
		return ast.BinaryOp{Op: "NOT LIKE", Left: m.Expr, Right: m.Pattern}
	case "not_contains":
		return ast.BinaryOp{Op: "NOT ILIKE", Left: m.Expr, Right: percentWrap(m.Pattern, m.Mode)}
	default:
		return ast.BinaryOp{Op: "ILIKE", Left: m.Expr, Right: percentWrap(m.Pattern, m.Mode)}
	}
}

// lowerLikeStringMatch renders the contains-family operators by
// lower-casing both operands and using LIKE, per Dremio/Databricks (no
// native ILIKE).
func lowerLikeStringMatch(m ast.StringMatch) ast.Expr {
	lowerTarget := ast.FunctionCall{Name: "LOWER", Args: []ast.Expr{m.Expr}}
	switch m.Mode {
	case "like":
		return ast.BinaryOp{Op: "LIKE", Left: lowerTarget, Right: ast.FunctionCall{Name: "LOWER", Args: []ast.Expr{m.Pattern}}}
	case "not_like":
		return ast.BinaryOp{Op: "NOT LIKE", Left: lowerTarget, Right: ast.FunctionCall{Name: "LOWER", Args: []ast.Expr{m.Pattern}}}
	case "not_contains":
		lowerPattern := ast.FunctionCall{Name: "LOWER", Args: []ast.Expr{m.Pattern}}
		return ast.BinaryOp{Op: "NOT LIKE", Left: lowerTarget, Right: percentWrap(lowerPattern, m.Mode)}
	default:
		lowerPattern := ast.FunctionCall{Name: "LOWER", Args: []ast.Expr{m.Pattern}}
		return ast.BinaryOp{Op: "LIKE", Left: lowerTarget, Right: percentWrap(lowerPattern, m.Mode)}
	}
}

// standardCast is the `CAST(expr AS target)` fallback shared by every
// dialect except ClickHouse, which intercepts common target types with
// native conversion functions.
func standardCast(expr ast.Expr, target string) ast.Expr {
	return ast.CastRendered{Expr: expr, Target: target}
}
