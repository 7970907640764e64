package semlayer

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Compile.DefaultDialect != "postgres" {
		t.Fatalf("expected default dialect postgres, got %s", cfg.Compile.DefaultDialect)
	}
	if cfg.Compile.CFLCTEName != "composite_01" {
		t.Fatalf("expected CFL CTE name composite_01, got %s", cfg.Compile.CFLCTEName)
	}
	if !cfg.Compile.EnableSyntaxCheck {
		t.Fatalf("expected syntax check enabled by default")
	}
	if cfg.Compile.QueryTimeout <= 0 {
		t.Fatalf("expected a positive default query timeout")
	}
}
