package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// LoadModel parses a model YAML document into a SemanticModel, retaining
// the source line/column of every named construct via yaml.Node so later
// stages can attach a SourceSpan to their diagnostics. Malformed YAML or a
// structural mismatch against the expected shape yields a *CompileError
// tagged ErrParseYAML rather than a bare yaml error.
//
// Top-level keys are version, dataObjects, dimensions, measures, metrics
// (plus the informal name field): dataObjects carries each object's own
// columns and joins, while dimensions/measures/metrics are declared as
// sibling top-level lists, each entry naming the dataObject it belongs to.
func LoadModel(src []byte) (*SemanticModel, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, NewCompileError(ErrParseYAML, "invalid YAML syntax").WithCause(err)
	}
	if len(doc.Content) == 0 {
		return nil, NewCompileError(ErrParseYAML, "empty model document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, newYAMLError(root, "model document must be a mapping")
	}

	m := &SemanticModel{}
	objectsNode, err := mustField(root, "dataObjects")
	if err != nil {
		return nil, err
	}
	if nameNode := optField(root, "name"); nameNode != nil {
		m.Name = nameNode.Value
	}
	if versionNode := optField(root, "version"); versionNode != nil {
		m.Version = versionNode.Value
	}
	if objectsNode.Kind != yaml.SequenceNode {
		return nil, newYAMLError(objectsNode, "dataObjects must be a sequence")
	}

	for _, objNode := range objectsNode.Content {
		obj, err := decodeDataObject(objNode)
		if err != nil {
			return nil, err
		}
		m.DataObjects = append(m.DataObjects, *obj)
	}

	if dimsNode := optField(root, "dimensions"); dimsNode != nil {
		if dimsNode.Kind != yaml.SequenceNode {
			return nil, newYAMLError(dimsNode, "dimensions must be a sequence")
		}
		for _, dn := range dimsNode.Content {
			owner, dim, err := decodeOwnedDimension(dn)
			if err != nil {
				return nil, err
			}
			obj := m.DataObjectByName(owner)
			if obj == nil {
				return nil, newYAMLError(dn, fmt.Sprintf("dimension %q references unknown dataObject %q", dim.Name, owner))
			}
			obj.Dimensions = append(obj.Dimensions, *dim)
		}
	}

	if measNode := optField(root, "measures"); measNode != nil {
		if measNode.Kind != yaml.SequenceNode {
			return nil, newYAMLError(measNode, "measures must be a sequence")
		}
		for _, mn := range measNode.Content {
			owner, meas, err := decodeOwnedMeasure(mn)
			if err != nil {
				return nil, err
			}
			obj := m.DataObjectByName(owner)
			if obj == nil {
				return nil, newYAMLError(mn, fmt.Sprintf("measure %q references unknown dataObject %q", meas.Name, owner))
			}
			obj.Measures = append(obj.Measures, *meas)
		}
	}

	if metricsNode := optField(root, "metrics"); metricsNode != nil {
		if metricsNode.Kind != yaml.SequenceNode {
			return nil, newYAMLError(metricsNode, "metrics must be a sequence")
		}
		for _, mn := range metricsNode.Content {
			owner, met, err := decodeOwnedMetric(mn)
			if err != nil {
				return nil, err
			}
			obj := m.DataObjectByName(owner)
			if obj == nil {
				return nil, newYAMLError(mn, fmt.Sprintf("metric %q references unknown dataObject %q", met.Name, owner))
			}
			obj.Metrics = append(obj.Metrics, *met)
		}
	}

	return m, nil
}

func decodeDataObject(n *yaml.Node) (*DataObject, error) {
	if n.Kind != yaml.MappingNode {
		return nil, newYAMLError(n, "data object entry must be a mapping")
	}
	obj := &DataObject{Pos: posOf(n)}

	nameNode, err := mustField(n, "name")
	if err != nil {
		return nil, err
	}
	obj.Name = nameNode.Value
	obj.Schema = stringField(n, "schema")
	obj.Database = stringField(n, "database")
	obj.Table = stringField(n, "table")
	if obj.Table == "" {
		obj.Table = obj.Name
	}
	obj.IsFact = boolField(n, "is_fact")

	if colsNode := optField(n, "columns"); colsNode != nil {
		if colsNode.Kind != yaml.SequenceNode {
			return nil, newYAMLError(colsNode, "columns must be a sequence")
		}
		for _, cn := range colsNode.Content {
			col, err := decodeColumn(cn)
			if err != nil {
				return nil, err
			}
			obj.Columns = append(obj.Columns, *col)
		}
	}

	if joinsNode := optField(n, "joins"); joinsNode != nil {
		if joinsNode.Kind != yaml.SequenceNode {
			return nil, newYAMLError(joinsNode, "joins must be a sequence")
		}
		for _, jn := range joinsNode.Content {
			join, err := decodeJoin(jn)
			if err != nil {
				return nil, err
			}
			obj.Joins = append(obj.Joins, *join)
		}
	}

	return obj, nil
}

func decodeColumn(n *yaml.Node) (*Column, error) {
	if n.Kind != yaml.MappingNode {
		return nil, newYAMLError(n, "column entry must be a mapping")
	}
	nameNode, err := mustField(n, "name")
	if err != nil {
		return nil, err
	}
	col := &Column{
		Name:        nameNode.Value,
		PhysicalCol: stringField(n, "column"),
		Type:        AbstractType(stringField(n, "type")),
		PrimaryKey:  boolField(n, "primary_key"),
		Pos:         posOf(n),
	}
	if col.PhysicalCol == "" {
		col.PhysicalCol = col.Name
	}
	return col, nil
}

func decodeJoin(n *yaml.Node) (*Join, error) {
	if n.Kind != yaml.MappingNode {
		return nil, newYAMLError(n, "join entry must be a mapping")
	}
	targetNode, err := mustField(n, "target")
	if err != nil {
		return nil, err
	}
	j := &Join{
		Target:      targetNode.Value,
		Kind:        JoinKind(stringField(n, "kind")),
		Secondary:   boolField(n, "secondary"),
		PathName:    stringField(n, "path_name"),
		IsCanonical: boolField(n, "canonical"),
		Pos:         posOf(n),
	}
	j.Name = stringField(n, "name")
	if j.Name == "" {
		j.Name = j.Target
	}

	onNode, err := mustField(n, "on")
	if err != nil {
		return nil, err
	}
	if onNode.Kind != yaml.SequenceNode {
		return nil, newYAMLError(onNode, "join 'on' must be a sequence of column pairs")
	}
	for _, pn := range onNode.Content {
		if pn.Kind != yaml.MappingNode {
			return nil, newYAMLError(pn, "join 'on' entry must be a mapping")
		}
		left := stringField(pn, "left")
		right := stringField(pn, "right")
		if left == "" || right == "" {
			return nil, newYAMLError(pn, "join 'on' entry requires both 'left' and 'right'")
		}
		j.On = append(j.On, JoinColumnPair{LeftColumn: left, RightColumn: right})
	}
	return j, nil
}

func decodeDimension(n *yaml.Node) (*Dimension, error) {
	if n.Kind != yaml.MappingNode {
		return nil, newYAMLError(n, "dimension entry must be a mapping")
	}
	nameNode, err := mustField(n, "name")
	if err != nil {
		return nil, err
	}
	d := &Dimension{
		Name:       nameNode.Value,
		Expression: stringField(n, "expression"),
		Type:       AbstractType(stringField(n, "type")),
		Grain:      TimeGrain(stringField(n, "grain")),
		Pos:        posOf(n),
	}
	if d.Expression == "" {
		d.Expression = fmt.Sprintf("{[%s].[%s]}", "", d.Name)
	}
	return d, nil
}

func decodeMeasure(n *yaml.Node) (*Measure, error) {
	if n.Kind != yaml.MappingNode {
		return nil, newYAMLError(n, "measure entry must be a mapping")
	}
	nameNode, err := mustField(n, "name")
	if err != nil {
		return nil, err
	}
	exprNode, err := mustField(n, "expression")
	if err != nil {
		return nil, err
	}
	m := &Measure{
		Name:        nameNode.Value,
		Expression:  exprNode.Value,
		Agg:         AggKind(stringField(n, "agg")),
		Distinct:    boolField(n, "distinct"),
		FilterExpr:  stringField(n, "filter"),
		Delimiter:   stringField(n, "delimiter"),
		Total:       boolField(n, "total"),
		AllowFanOut: boolField(n, "allow_fan_out"),
		Pos:         posOf(n),
	}
	if wgNode := optField(n, "within_group_order_by"); wgNode != nil {
		if wgNode.Kind != yaml.SequenceNode {
			return nil, newYAMLError(wgNode, "within_group_order_by must be a sequence")
		}
		for _, wn := range wgNode.Content {
			m.WithinGroupBy = append(m.WithinGroupBy, wn.Value)
		}
	}
	return m, nil
}

// decodeOwnedDimension, decodeOwnedMeasure, and decodeOwnedMetric decode a
// top-level dimensions/measures/metrics entry, which additionally carries
// the name of the dataObject it belongs to.
func decodeOwnedDimension(n *yaml.Node) (string, *Dimension, error) {
	ownerNode, err := mustField(n, "dataObject")
	if err != nil {
		return "", nil, err
	}
	dim, err := decodeDimension(n)
	if err != nil {
		return "", nil, err
	}
	return ownerNode.Value, dim, nil
}

func decodeOwnedMeasure(n *yaml.Node) (string, *Measure, error) {
	ownerNode, err := mustField(n, "dataObject")
	if err != nil {
		return "", nil, err
	}
	meas, err := decodeMeasure(n)
	if err != nil {
		return "", nil, err
	}
	return ownerNode.Value, meas, nil
}

func decodeOwnedMetric(n *yaml.Node) (string, *Metric, error) {
	ownerNode, err := mustField(n, "dataObject")
	if err != nil {
		return "", nil, err
	}
	met, err := decodeMetric(n)
	if err != nil {
		return "", nil, err
	}
	return ownerNode.Value, met, nil
}

func decodeMetric(n *yaml.Node) (*Metric, error) {
	if n.Kind != yaml.MappingNode {
		return nil, newYAMLError(n, "metric entry must be a mapping")
	}
	nameNode, err := mustField(n, "name")
	if err != nil {
		return nil, err
	}
	exprNode, err := mustField(n, "expression")
	if err != nil {
		return nil, err
	}
	return &Metric{
		Name:       nameNode.Value,
		Expression: exprNode.Value,
		Pos:        posOf(n),
	}, nil
}

// mustField returns the value node of key in mapping n, or a *CompileError
// tagged ErrParseYAML if absent.
func mustField(n *yaml.Node, key string) (*yaml.Node, error) {
	if v := optField(n, key); v != nil {
		return v, nil
	}
	return nil, newYAMLError(n, fmt.Sprintf("missing required field %q", key))
}

// optField returns the value node of key in mapping n, or nil if absent.
func optField(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func stringField(n *yaml.Node, key string) string {
	if v := optField(n, key); v != nil {
		return v.Value
	}
	return ""
}

func boolField(n *yaml.Node, key string) bool {
	v := optField(n, key)
	return v != nil && v.Value == "true"
}

func posOf(n *yaml.Node) SourcePos {
	return SourcePos{Line: n.Line, Column: n.Column}
}

func newYAMLError(n *yaml.Node, msg string) *CompileError {
	e := NewCompileError(ErrParseYAML, msg)
	if n != nil {
		e = e.WithSpan(posOf(n).toSpan())
	}
	return e
}

func (p SourcePos) toSpan() SourceSpan {
	return SourceSpan{Line: p.Line, Column: p.Column}
}
