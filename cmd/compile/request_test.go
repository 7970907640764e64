package main

import (
	"testing"

	"github.com/orionsql/semlayer/internal/model"
)

func TestParseQueryRequestBasic(t *testing.T) {
	raw := []byte(`{
		"select": { "dimensions": ["Country"], "measures": ["Revenue"] },
		"where": [ { "field": "Country", "op": "contains", "value": "United" } ],
		"order_by": [ { "field": "Revenue", "direction": "desc" } ],
		"limit": 10
	}`)

	qo, err := parseQueryRequest(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qo.Dimensions) != 1 || qo.Dimensions[0] != "Country" {
		t.Fatalf("unexpected dimensions: %+v", qo.Dimensions)
	}
	if len(qo.Measures) != 1 || qo.Measures[0] != "Revenue" {
		t.Fatalf("unexpected measures: %+v", qo.Measures)
	}
	if len(qo.Where) != 1 || qo.Where[0].Operator != model.OpContains || qo.Where[0].Value != "United" {
		t.Fatalf("unexpected where: %+v", qo.Where)
	}
	if len(qo.OrderBy) != 1 || !qo.OrderBy[0].Descending {
		t.Fatalf("unexpected order by: %+v", qo.OrderBy)
	}
	if qo.Limit == nil || *qo.Limit != 10 {
		t.Fatalf("unexpected limit: %v", qo.Limit)
	}
}

func TestParseQueryRequestRelativeFilter(t *testing.T) {
	raw := []byte(`{
		"select": { "dimensions": ["Order Date"], "measures": ["Revenue"] },
		"where": [ { "field": "Order Date", "op": "relative", "value": { "unit": "days", "count": 7, "direction": "past" } } ]
	}`)

	qo, err := parseQueryRequest(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rel, ok := qo.Where[0].Value.(model.RelativeTimeValue)
	if !ok {
		t.Fatalf("expected RelativeTimeValue, got %T", qo.Where[0].Value)
	}
	if rel.Unit != model.RelativeDays || rel.Count != 7 || rel.Direction != model.RelativePast {
		t.Fatalf("unexpected relative value: %+v", rel)
	}
}

func TestParseQueryRequestUnknownOperator(t *testing.T) {
	raw := []byte(`{
		"select": { "dimensions": ["Country"], "measures": ["Revenue"] },
		"where": [ { "field": "Country", "op": "bogus", "value": "x" } ]
	}`)
	if _, err := parseQueryRequest(raw); err == nil {
		t.Fatal("expected error for unknown operator")
	}
}

func TestParseQueryRequestBetween(t *testing.T) {
	raw := []byte(`{
		"select": { "dimensions": ["Country"], "measures": ["Revenue"] },
		"having": [ { "field": "Revenue", "op": "between", "value": [100, 200] } ]
	}`)
	qo, err := parseQueryRequest(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list, ok := qo.Having[0].Value.([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("unexpected between value: %#v", qo.Having[0].Value)
	}
}

func TestParseQueryRequestUsePathNames(t *testing.T) {
	raw := []byte(`{
		"select": { "dimensions": ["Country"], "measures": ["Revenue"] },
		"use_path_names": [ { "source": "Orders", "target": "Customers", "path_name": "billing" } ]
	}`)
	qo, err := parseQueryRequest(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qo.UsePaths) != 1 || qo.UsePaths[0].PathName != "billing" {
		t.Fatalf("unexpected use paths: %+v", qo.UsePaths)
	}
}
