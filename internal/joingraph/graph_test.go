package joingraph

import (
	"testing"

	"github.com/orionsql/semlayer/internal/model"
)

func buildTestModel() *model.SemanticModel {
	return &model.SemanticModel{
		DataObjects: []model.DataObject{
			{Name: "orders", Joins: []model.Join{
				{Target: "customers"},
			}},
			{Name: "customers", Joins: []model.Join{
				{Target: "regions"},
			}},
			{Name: "regions"},
		},
	}
}

func TestFindPathDirect(t *testing.T) {
	g := Build(buildTestModel())
	p, ambiguous, ok := g.FindPath("orders", "customers", "")
	if !ok || ambiguous {
		t.Fatalf("expected unambiguous direct path, got ok=%v ambiguous=%v", ok, ambiguous)
	}
	if len(p.Steps) != 1 || p.Steps[0].To != "customers" {
		t.Fatalf("expected single hop to customers, got %+v", p.Steps)
	}
}

func TestFindPathTransitive(t *testing.T) {
	g := Build(buildTestModel())
	p, _, ok := g.FindPath("orders", "regions", "")
	if !ok {
		t.Fatalf("expected a path to regions")
	}
	if len(p.Steps) != 2 {
		t.Fatalf("expected two hops, got %d", len(p.Steps))
	}
}

func TestFindPathMissingTarget(t *testing.T) {
	g := Build(buildTestModel())
	_, _, ok := g.FindPath("regions", "suppliers", "")
	if ok {
		t.Fatalf("expected no path to a data object that is not in the graph")
	}
}

func TestHasCycleDetectsCycle(t *testing.T) {
	m := &model.SemanticModel{
		DataObjects: []model.DataObject{
			{Name: "a", Joins: []model.Join{{Target: "b"}}},
			{Name: "b", Joins: []model.Join{{Target: "a"}}},
		},
	}
	g := Build(m)
	has, cyc := g.HasCycle()
	if !has {
		t.Fatalf("expected a cycle to be detected")
	}
	if len(cyc) == 0 {
		t.Fatalf("expected a non-empty cycle path")
	}
}

func TestHasCycleAcyclic(t *testing.T) {
	g := Build(buildTestModel())
	has, _ := g.HasCycle()
	if has {
		t.Fatalf("did not expect a cycle in a linear chain")
	}
}

func TestFindPathAmbiguousMultipath(t *testing.T) {
	m := &model.SemanticModel{
		DataObjects: []model.DataObject{
			{Name: "orders", Joins: []model.Join{
				{Target: "dates", PathName: "order_date"},
				{Target: "dates", PathName: "ship_date"},
			}},
			{Name: "dates"},
		},
	}
	g := Build(m)
	_, ambiguous, ok := g.FindPath("orders", "dates", "")
	if !ok {
		t.Fatalf("expected a path to exist")
	}
	if !ambiguous {
		t.Fatalf("expected ambiguity when two distinctly named paths tie")
	}

	_, ambiguous, ok = g.FindPath("orders", "dates", "ship_date")
	if !ok || ambiguous {
		t.Fatalf("expected the preferred path name to disambiguate, got ok=%v ambiguous=%v", ok, ambiguous)
	}
}
