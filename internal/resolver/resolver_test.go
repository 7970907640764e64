package resolver

import (
	"testing"

	"github.com/orionsql/semlayer/internal/ast"
	"github.com/orionsql/semlayer/internal/model"
)

func starModel() *model.SemanticModel {
	return &model.SemanticModel{
		DataObjects: []model.DataObject{
			{
				Name:   "Orders",
				IsFact: true,
				Columns: []model.Column{
					{Name: "OrderID", PhysicalCol: "ORDER_ID", Type: model.TypeInt, PrimaryKey: true},
					{Name: "CustomerID", PhysicalCol: "CUSTOMER_ID", Type: model.TypeInt},
					{Name: "Price", PhysicalCol: "PRICE", Type: model.TypeFloat},
					{Name: "Quantity", PhysicalCol: "QUANTITY", Type: model.TypeInt},
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
					{Name: "CustomerID", PhysicalCol: "CUSTOMER_ID", Type: model.TypeInt, PrimaryKey: true},
					{Name: "Country", PhysicalCol: "COUNTRY", Type: model.TypeString},
				},
				Dimensions: []model.Dimension{
					{Name: "Country", Expression: "{[Customers].[Country]}", Type: model.TypeString},
				},
			},
		},
	}
}

func TestResolveStarQuery(t *testing.T) {
	m := starModel()
	q := &model.QueryObject{
		Dimensions: []string{"Country"},
		Measures:   []string{"Revenue"},
	}
	rq, err := Resolve(q, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rq.RequiresCFL {
		t.Fatalf("expected a single-fact star query")
	}
	if rq.BaseObject != "Orders" {
		t.Fatalf("expected base object Orders, got %q", rq.BaseObject)
	}
	if len(rq.Joins) != 1 || rq.Joins[0].To != "Customers" {
		t.Fatalf("expected one join to Customers, got %+v", rq.Joins)
	}
	if len(rq.Dimensions) != 1 || rq.Dimensions[0].Alias != "Country" {
		t.Fatalf("unexpected dimensions: %+v", rq.Dimensions)
	}
	if len(rq.Measures) != 1 || rq.Measures[0].Agg != model.AggSum {
		t.Fatalf("unexpected measures: %+v", rq.Measures)
	}
}

func TestResolveUnknownDimension(t *testing.T) {
	m := starModel()
	q := &model.QueryObject{Dimensions: []string{"Ghost"}}
	_, err := Resolve(q, m)
	if err == nil || !model.IsCode(err, model.ErrUnknownDimension) {
		t.Fatalf("expected UNKNOWN_DIMENSION, got %v", err)
	}
}

func TestResolveCFLWhenMeasuresSpanFacts(t *testing.T) {
	m := starModel()
	m.DataObjects = append(m.DataObjects, model.DataObject{
		Name:   "StoreReturns",
		IsFact: true,
		Columns: []model.Column{
			{Name: "CustomerID", PhysicalCol: "CUSTOMER_ID", Type: model.TypeInt},
			{Name: "ReturnAmount", PhysicalCol: "RETURN_AMOUNT", Type: model.TypeFloat},
		},
		Joins: []model.Join{
			{Target: "Customers", Kind: model.JoinManyToOne, On: []model.JoinColumnPair{
				{LeftColumn: "CustomerID", RightColumn: "CustomerID"},
			}},
		},
		Measures: []model.Measure{
			{Name: "ReturnAmount", Expression: "{[StoreReturns].[ReturnAmount]}", Agg: model.AggSum},
		},
	})
	q := &model.QueryObject{
		Dimensions: []string{"Country"},
		Measures:   []string{"Revenue", "ReturnAmount"},
	}
	rq, err := Resolve(q, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rq.RequiresCFL {
		t.Fatalf("expected CFL to be required when measures span two facts")
	}
	if len(rq.Facts) != 2 {
		t.Fatalf("expected two facts, got %v", rq.Facts)
	}
}

func TestResolveFilterClassification(t *testing.T) {
	m := starModel()
	q := &model.QueryObject{
		Dimensions: []string{"Country"},
		Measures:   []string{"Revenue"},
		Where: []model.Filter{
			{Field: "Country", Operator: model.OpEquals, Value: "US"},
		},
		Having: []model.Filter{
			{Field: "Revenue", Operator: model.OpGreaterThan, Value: 1000},
		},
	}
	rq, err := Resolve(q, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rq.Where) != 1 || rq.Where[0].IsHaving {
		t.Fatalf("expected one WHERE predicate, got %+v", rq.Where)
	}
	if len(rq.Having) != 1 || !rq.Having[0].IsHaving {
		t.Fatalf("expected one HAVING predicate, got %+v", rq.Having)
	}
}

func TestResolveMeasureWithFunctionCallExpression(t *testing.T) {
	m := starModel()
	m.DataObjects[0].Measures = append(m.DataObjects[0].Measures, model.Measure{
		Name:       "RoundedRevenue",
		Expression: "ROUND({[Orders].[Price]} * {[Orders].[Quantity]}, 2)",
		Agg:        model.AggSum,
	})
	q := &model.QueryObject{
		Dimensions: []string{"Country"},
		Measures:   []string{"RoundedRevenue"},
	}
	rq, err := Resolve(q, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fc, ok := rq.Measures[0].RawExpr.(ast.FunctionCall)
	if !ok || fc.Name != "ROUND" || len(fc.Args) != 2 {
		t.Fatalf("expected a ROUND FunctionCall raw expr, got %+v", rq.Measures[0].RawExpr)
	}
}

func TestResolveFanoutRejected(t *testing.T) {
	// Joins are always declared outbound from the "many" side (spec §3.1),
	// so Orders is the only declarer: Orders -> Customers: many_to_one.
	// The query below selects a measure on Customers (the "one" side) and
	// a dimension on Orders (the "many" side), forcing the resolver to
	// traverse that join in reverse — exactly the fanout case.
	m := &model.SemanticModel{
		DataObjects: []model.DataObject{
			{
				Name: "Customers",
				Columns: []model.Column{
					{Name: "CustomerID", PhysicalCol: "CUSTOMER_ID", Type: model.TypeInt},
				},
				Measures: []model.Measure{
					{Name: "CustomerCount", Expression: "{[Customers].[CustomerID]}", Agg: model.AggCountDist},
				},
			},
			{
				Name: "Orders",
				Columns: []model.Column{
					{Name: "CustomerID", PhysicalCol: "CUSTOMER_ID", Type: model.TypeInt},
					{Name: "OrderID", PhysicalCol: "ORDER_ID", Type: model.TypeInt},
				},
				Joins: []model.Join{
					{Target: "Customers", Kind: model.JoinManyToOne, On: []model.JoinColumnPair{
						{LeftColumn: "CustomerID", RightColumn: "CustomerID"},
					}},
				},
				Dimensions: []model.Dimension{
					{Name: "OrderID", Expression: "{[Orders].[OrderID]}", Type: model.TypeInt},
				},
			},
		},
	}
	q := &model.QueryObject{
		Measures:   []string{"CustomerCount"},
		Dimensions: []string{"OrderID"},
	}

	_, err := Resolve(q, m)
	if err == nil || !model.IsCode(err, model.ErrFanout) {
		t.Fatalf("expected FANOUT, got %v", err)
	}
}

func TestResolveFanoutAllowedWithFlag(t *testing.T) {
	m := &model.SemanticModel{
		DataObjects: []model.DataObject{
			{
				Name: "Customers",
				Columns: []model.Column{
					{Name: "CustomerID", PhysicalCol: "CUSTOMER_ID", Type: model.TypeInt},
				},
				Measures: []model.Measure{
					{Name: "CustomerCount", Expression: "{[Customers].[CustomerID]}", Agg: model.AggCountDist, AllowFanOut: true},
				},
			},
			{
				Name: "Orders",
				Columns: []model.Column{
					{Name: "CustomerID", PhysicalCol: "CUSTOMER_ID", Type: model.TypeInt},
					{Name: "OrderID", PhysicalCol: "ORDER_ID", Type: model.TypeInt},
				},
				Joins: []model.Join{
					{Target: "Customers", Kind: model.JoinManyToOne, On: []model.JoinColumnPair{
						{LeftColumn: "CustomerID", RightColumn: "CustomerID"},
					}},
				},
				Dimensions: []model.Dimension{
					{Name: "OrderID", Expression: "{[Orders].[OrderID]}", Type: model.TypeInt},
				},
			},
		},
	}
	q := &model.QueryObject{
		Measures:   []string{"CustomerCount"},
		Dimensions: []string{"OrderID"},
	}

	rq, err := Resolve(q, m)
	if err != nil {
		t.Fatalf("unexpected error with allow_fan_out: %v", err)
	}
	if len(rq.Joins) != 1 || rq.Joins[0].To != "Orders" || !rq.Joins[0].Reversed {
		t.Fatalf("expected one reversed join from Customers to Orders, got %+v", rq.Joins)
	}
}

func TestResolveFanoutSafeInDeclaredDirection(t *testing.T) {
	// Traversing the same many_to_one join in its declared direction (the
	// star-query common case) must never trigger FANOUT.
	m := starModel()
	q := &model.QueryObject{
		Dimensions: []string{"Country"},
		Measures:   []string{"Revenue"},
	}
	if _, err := Resolve(q, m); err != nil {
		t.Fatalf("unexpected error traversing many_to_one forward: %v", err)
	}
}
