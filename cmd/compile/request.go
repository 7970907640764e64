package main

import (
	"encoding/json"
	"fmt"

	"github.com/orionsql/semlayer/internal/model"
)

// queryRequest is the wire shape of spec §6.1: a JSON document the caller
// hands to this tool, distinct from the internal model.QueryObject the
// pipeline consumes. Decoding here is responsible for the one conversion
// the pipeline can't do generically: a `relative` filter's value arrives as
// a JSON object and must become a model.RelativeTimeValue before the
// resolver ever sees it.
type queryRequest struct {
	Select struct {
		Dimensions []string `json:"dimensions"`
		Measures   []string `json:"measures"`
	} `json:"select"`
	Where        []filterRequest  `json:"where"`
	Having       []filterRequest  `json:"having"`
	OrderBy      []orderByRequest `json:"order_by"`
	Limit        *int             `json:"limit"`
	UsePathNames []usePathRequest `json:"use_path_names"`
}

type filterRequest struct {
	Field string          `json:"field"`
	Op    string          `json:"op"`
	Value json.RawMessage `json:"value"`
}

type orderByRequest struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

type usePathRequest struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	PathName string `json:"path_name"`
}

func parseQueryRequest(raw []byte) (*model.QueryObject, error) {
	var req queryRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("decode query request: %w", err)
	}

	where, err := toFilters(req.Where)
	if err != nil {
		return nil, fmt.Errorf("where: %w", err)
	}
	having, err := toFilters(req.Having)
	if err != nil {
		return nil, fmt.Errorf("having: %w", err)
	}

	orderBy := make([]model.OrderByEntry, 0, len(req.OrderBy))
	for _, o := range req.OrderBy {
		orderBy = append(orderBy, model.OrderByEntry{
			Field:      o.Field,
			Descending: o.Direction == "desc",
		})
	}

	usePaths := make([]model.UsePathName, 0, len(req.UsePathNames))
	for _, u := range req.UsePathNames {
		usePaths = append(usePaths, model.UsePathName{Source: u.Source, Target: u.Target, PathName: u.PathName})
	}

	return &model.QueryObject{
		Dimensions: req.Select.Dimensions,
		Measures:   req.Select.Measures,
		Where:      where,
		Having:     having,
		OrderBy:    orderBy,
		Limit:      req.Limit,
		UsePaths:   usePaths,
	}, nil
}

func toFilters(in []filterRequest) ([]model.Filter, error) {
	out := make([]model.Filter, 0, len(in))
	for _, f := range in {
		op, ok := model.ResolveFilterOperator(f.Op)
		if !ok {
			return nil, fmt.Errorf("unknown filter operator %q on field %q", f.Op, f.Field)
		}
		value, err := decodeFilterValue(op, f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Field, err)
		}
		out = append(out, model.Filter{Field: f.Field, Operator: op, Value: value})
	}
	return out, nil
}

func decodeFilterValue(op model.FilterOperator, raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if op == model.OpRelative {
		var rel struct {
			Unit           string `json:"unit"`
			Count          int    `json:"count"`
			Direction      string `json:"direction"`
			IncludeCurrent bool   `json:"include_current"`
		}
		if err := json.Unmarshal(raw, &rel); err != nil {
			return nil, fmt.Errorf("decode relative value: %w", err)
		}
		dir := model.RelativePast
		if rel.Direction == string(model.RelativeFuture) {
			dir = model.RelativeFuture
		}
		return model.RelativeTimeValue{
			Unit:           model.RelativeUnit(rel.Unit),
			Count:          rel.Count,
			Direction:      dir,
			IncludeCurrent: rel.IncludeCurrent,
		}, nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return v, nil
}
