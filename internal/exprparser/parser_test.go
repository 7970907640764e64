package exprparser

import "testing"

func TestParseColumnRef(t *testing.T) {
	n, err := Parse("{[orders].[amount]}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Kind != KindColumnRef || n.Object != "orders" || n.Column != "amount" {
		t.Fatalf("unexpected node: %+v", n)
	}
}

func TestParseNameRef(t *testing.T) {
	n, err := Parse("{[total_amount]}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Kind != KindNameRef || n.Name != "total_amount" {
		t.Fatalf("unexpected node: %+v", n)
	}
}

func TestParseArithmetic(t *testing.T) {
	n, err := Parse("{[total_amount]} - {[total_refunds]}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Kind != KindBinary || n.Op != "-" {
		t.Fatalf("unexpected node: %+v", n)
	}
	if n.Left.Kind != KindNameRef || n.Right.Kind != KindNameRef {
		t.Fatalf("expected both operands to be name refs, got %+v", n)
	}
}

func TestParsePrecedence(t *testing.T) {
	n, err := Parse("{[a]} + {[b]} * {[c]}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Op != "+" {
		t.Fatalf("expected top-level + for precedence, got %q", n.Op)
	}
	if n.Right.Op != "*" {
		t.Fatalf("expected right side to be the * term, got %+v", n.Right)
	}
}

func TestParseParens(t *testing.T) {
	n, err := Parse("({[a]} + {[b]}) * {[c]}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Op != "*" {
		t.Fatalf("expected top-level *, got %q", n.Op)
	}
	if n.Left.Op != "+" {
		t.Fatalf("expected grouped + on the left, got %+v", n.Left)
	}
}

func TestParseMalformedPlaceholder(t *testing.T) {
	if _, err := Parse("{[orders].[amount].[extra]}"); err == nil {
		t.Fatalf("expected an error for a three-part placeholder")
	}
}

func TestParseUnmatchedParen(t *testing.T) {
	if _, err := Parse("({[a]} + {[b]}"); err == nil {
		t.Fatalf("expected an error for an unmatched '('")
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := Parse(""); err == nil {
		t.Fatalf("expected an error for an empty expression")
	}
}

func TestParseFunctionCall(t *testing.T) {
	n, err := Parse("ROUND({[Orders].[Amount]}, 2)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Kind != KindFunctionCall || n.Name != "ROUND" {
		t.Fatalf("unexpected node: %+v", n)
	}
	if len(n.Args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(n.Args))
	}
	if n.Args[0].Kind != KindColumnRef || n.Args[0].Column != "Amount" {
		t.Fatalf("unexpected first arg: %+v", n.Args[0])
	}
	if n.Args[1].Kind != KindNumber || n.Args[1].Number != 2 {
		t.Fatalf("unexpected second arg: %+v", n.Args[1])
	}
}

func TestParseFunctionCallNoArgs(t *testing.T) {
	n, err := Parse("NOW()")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Kind != KindFunctionCall || n.Name != "NOW" || len(n.Args) != 0 {
		t.Fatalf("unexpected node: %+v", n)
	}
}

func TestParseNestedFunctionCall(t *testing.T) {
	n, err := Parse("COALESCE({[a]}, ROUND({[b]}, 1))")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Kind != KindFunctionCall || n.Name != "COALESCE" || len(n.Args) != 2 {
		t.Fatalf("unexpected node: %+v", n)
	}
	if n.Args[1].Kind != KindFunctionCall || n.Args[1].Name != "ROUND" {
		t.Fatalf("unexpected nested arg: %+v", n.Args[1])
	}
}

func TestParseStringLiteral(t *testing.T) {
	n, err := Parse("'US'")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Kind != KindString || n.Str != "US" {
		t.Fatalf("unexpected node: %+v", n)
	}
}

func TestParseStringLiteralWithEscapedQuote(t *testing.T) {
	n, err := Parse("'O''Brien'")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Kind != KindString || n.Str != "O'Brien" {
		t.Fatalf("unexpected node: %+v", n)
	}
}

func TestParseFunctionCallWithStringArg(t *testing.T) {
	n, err := Parse("CONCAT({[a]}, '-suffix')")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Kind != KindFunctionCall || len(n.Args) != 2 {
		t.Fatalf("unexpected node: %+v", n)
	}
	if n.Args[1].Kind != KindString || n.Args[1].Str != "-suffix" {
		t.Fatalf("unexpected second arg: %+v", n.Args[1])
	}
}

func TestParseBareIdentifierWithoutCallIsError(t *testing.T) {
	if _, err := Parse("{[a]} + foo"); err == nil {
		t.Fatalf("expected an error for a bare identifier that is not a function call")
	}
}

func TestParseUnmatchedFunctionCallParen(t *testing.T) {
	if _, err := Parse("ROUND({[a]}, 2"); err == nil {
		t.Fatalf("expected an error for an unmatched function call paren")
	}
}
