package validator

import (
	"testing"

	"github.com/orionsql/semlayer/internal/model"
)

func simpleModel() *model.SemanticModel {
	return &model.SemanticModel{
		DataObjects: []model.DataObject{
			{
				Name:   "Orders",
				IsFact: true,
				Columns: []model.Column{
					{Name: "OrderID", Type: model.TypeInt, PrimaryKey: true},
					{Name: "CustomerID", Type: model.TypeInt},
					{Name: "Price", Type: model.TypeFloat},
					{Name: "Quantity", Type: model.TypeInt},
				},
				Joins: []model.Join{
					{Target: "Customers", Kind: model.JoinManyToOne, On: []model.JoinColumnPair{
						{LeftColumn: "CustomerID", RightColumn: "CustomerID"},
					}},
				},
				Measures: []model.Measure{
					{Name: "Revenue", Expression: "{[Orders].[Price]} * {[Orders].[Quantity]}", Agg: model.AggSum},
				},
			},
			{
				Name: "Customers",
				Columns: []model.Column{
					{Name: "CustomerID", Type: model.TypeInt, PrimaryKey: true},
					{Name: "Country", Type: model.TypeString},
				},
				Dimensions: []model.Dimension{
					{Name: "Country", Expression: "{[Customers].[Country]}", Type: model.TypeString},
				},
			},
		},
	}
}

func TestValidateCleanModel(t *testing.T) {
	issues := Validate(simpleModel())
	if len(issues) != 0 {
		t.Fatalf("expected a clean model to validate with no issues, got %v", issues)
	}
}

func TestValidateDetectsCyclicJoin(t *testing.T) {
	m := &model.SemanticModel{
		DataObjects: []model.DataObject{
			{Name: "A", Joins: []model.Join{{Target: "B"}}},
			{Name: "B", Joins: []model.Join{{Target: "A"}}},
		},
	}
	issues := Validate(m)
	found := false
	for _, e := range issues {
		if e.Code == model.ErrCyclicJoin {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected CYCLIC_JOIN among issues, got %v", issues)
	}
}

func TestValidateDetectsUnknownJoinTarget(t *testing.T) {
	m := &model.SemanticModel{
		DataObjects: []model.DataObject{
			{Name: "Orders", Joins: []model.Join{{Target: "Ghost"}}},
		},
	}
	issues := Validate(m)
	if len(issues) == 0 || issues[0].Code != model.ErrUnknownJoinTarget {
		t.Fatalf("expected UNKNOWN_JOIN_TARGET, got %v", issues)
	}
}

func TestValidateDetectsDuplicateName(t *testing.T) {
	m := simpleModel()
	m.DataObjects[1].Measures = append(m.DataObjects[1].Measures, model.Measure{
		Name: "Country", Expression: "{[Customers].[Country]}", Agg: model.AggCount,
	})
	issues := Validate(m)
	found := false
	for _, e := range issues {
		if e.Code == model.ErrDuplicateName {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected DUPLICATE_NAME when a dimension and measure share a name, got %v", issues)
	}
}

func TestValidateDetectsSecondaryMissingPathName(t *testing.T) {
	m := simpleModel()
	m.DataObjects[0].Joins = append(m.DataObjects[0].Joins, model.Join{
		Target: "Customers", Secondary: true,
	})
	issues := Validate(m)
	found := false
	for _, e := range issues {
		if e.Code == model.ErrSecondaryMissingPath {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected SECONDARY_MISSING_PATHNAME, got %v", issues)
	}
}

func TestValidateDetectsMetricCycle(t *testing.T) {
	m := simpleModel()
	m.DataObjects[0].Metrics = []model.Metric{
		{Name: "A", Expression: "{[B]}"},
		{Name: "B", Expression: "{[A]}"},
	}
	issues := Validate(m)
	found := false
	for _, e := range issues {
		if e.Code == model.ErrMetricCycle {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected METRIC_CYCLE, got %v", issues)
	}
}

func TestValidateDetectsUnknownColumnInExpression(t *testing.T) {
	m := simpleModel()
	m.DataObjects[0].Measures[0].Expression = "{[Orders].[Bogus]}"
	issues := Validate(m)
	found := false
	for _, e := range issues {
		if e.Code == model.ErrUnknownColumn {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected UNKNOWN_COLUMN, got %v", issues)
	}
}
