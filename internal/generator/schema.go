package generator

import (
	"encoding/json"

	"apitap/internal/skillstore"
)

const maxSchemaDepth = 5

// SnapshotSchema recursively walks a JSON body and produces a SchemaNode
// tree capped at depth 5: object fields are the union of keys of the
// first sample (callers pass only one sample; stability across captures
// is achieved by never widening an existing node), arrays sample their
// first element, and null marks nullability.
func SnapshotSchema(body string) *skillstore.SchemaNode {
	var v interface{}
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return nil
	}
	return snapshotValue(v, 0)
}

func snapshotValue(v interface{}, depth int) *skillstore.SchemaNode {
	if depth > maxSchemaDepth {
		return &skillstore.SchemaNode{Type: "unknown"}
	}
	switch val := v.(type) {
	case nil:
		return &skillstore.SchemaNode{Type: "null", Nullable: true}
	case bool:
		return &skillstore.SchemaNode{Type: "boolean"}
	case float64:
		return &skillstore.SchemaNode{Type: "number"}
	case string:
		return &skillstore.SchemaNode{Type: "string"}
	case []interface{}:
		node := &skillstore.SchemaNode{Type: "array"}
		if len(val) > 0 {
			node.Items = snapshotValue(val[0], depth+1)
		}
		return node
	case map[string]interface{}:
		node := &skillstore.SchemaNode{Type: "object", Fields: map[string]*skillstore.SchemaNode{}}
		for k, fv := range val {
			node.Fields[k] = snapshotValue(fv, depth+1)
		}
		return node
	default:
		return &skillstore.SchemaNode{Type: "unknown"}
	}
}

// ResponseShapeFrom produces the compact single-line summary stored
// alongside the richer ResponseSchema.
func ResponseShapeFrom(body string) skillstore.ResponseShape {
	var v interface{}
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return skillstore.ResponseShape{Type: "text"}
	}
	switch val := v.(type) {
	case map[string]interface{}:
		fields := make([]string, 0, len(val))
		for k := range val {
			fields = append(fields, k)
		}
		return skillstore.ResponseShape{Type: "object", Fields: fields}
	case []interface{}:
		return skillstore.ResponseShape{Type: "array"}
	default:
		return skillstore.ResponseShape{Type: "scalar"}
	}
}
