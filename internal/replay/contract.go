package replay

import "apitap/internal/skillstore"

// diffSchema compares a live decoded JSON object against the captured
// baseline schema: a field the baseline declared but the live response
// omits is an error (the endpoint likely broke), a field the live
// response added is informational, and a type or nullability change is a
// warning.
func diffSchema(baseline *skillstore.SchemaNode, live map[string]interface{}) []ContractWarning {
	if baseline == nil {
		return nil
	}
	var warnings []ContractWarning
	diffObject("", baseline, live, &warnings)
	return warnings
}

func diffObject(prefix string, baseline *skillstore.SchemaNode, live map[string]interface{}, out *[]ContractWarning) {
	for name, field := range baseline.Fields {
		path := joinFieldPath(prefix, name)
		value, present := live[name]
		if !present {
			*out = append(*out, ContractWarning{Field: path, Severity: "error", Detail: "field present at capture time is now missing"})
			continue
		}
		diffValueAgainstSchema(path, field, value, out)
	}
	for name := range live {
		if _, known := baseline.Fields[name]; !known {
			*out = append(*out, ContractWarning{Field: joinFieldPath(prefix, name), Severity: "info", Detail: "new field not present at capture time"})
		}
	}
}

func diffValueAgainstSchema(path string, field *skillstore.SchemaNode, value interface{}, out *[]ContractWarning) {
	if value == nil {
		if !field.Nullable {
			*out = append(*out, ContractWarning{Field: path, Severity: "warn", Detail: "field is now null; was non-null at capture time"})
		}
		return
	}

	actualType := jsonKind(value)
	if field.Type != "" && field.Type != actualType {
		*out = append(*out, ContractWarning{Field: path, Severity: "warn", Detail: "type changed from " + field.Type + " to " + actualType})
		return
	}

	if actualType == "object" && field.Fields != nil {
		if obj, ok := value.(map[string]interface{}); ok {
			diffObject(path, field, obj, out)
		}
	}
	if actualType == "array" && field.Items != nil {
		if arr, ok := value.([]interface{}); ok && len(arr) > 0 {
			diffValueAgainstSchema(path+"[]", field.Items, arr[0], out)
		}
	}
}

func jsonKind(v interface{}) string {
	switch v.(type) {
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return "null"
	}
}

func joinFieldPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
