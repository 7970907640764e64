package model

import (
	"errors"
	"testing"
)

func TestCompileErrorChaining(t *testing.T) {
	cause := errors.New("boom")
	err := NewCompileError(ErrUnknownColumn, "no such column").
		WithPath("data_objects[0].columns[2]").
		WithRelated("amount").
		WithSpan(SourceSpan{Line: 4, Column: 7}).
		WithCause(cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to unwrap to the cause")
	}
	if err.Span.Line != 4 || err.Span.Column != 7 {
		t.Fatalf("expected span to be retained, got %+v", err.Span)
	}
	want := "[UNKNOWN_COLUMN] no such column (at data_objects[0].columns[2])"
	if err.Error() != want {
		t.Fatalf("unexpected message: got %q want %q", err.Error(), want)
	}
}

func TestIsCode(t *testing.T) {
	err := NewCompileErrorf(ErrCyclicJoin, "cycle through %s", "orders")
	if !IsCode(err, ErrCyclicJoin) {
		t.Fatalf("expected IsCode to match")
	}
	if IsCode(err, ErrFanout) {
		t.Fatalf("expected IsCode to reject a different code")
	}
	if IsCode(errors.New("plain"), ErrCyclicJoin) {
		t.Fatalf("expected IsCode to reject a non-CompileError")
	}
}
