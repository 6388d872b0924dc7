package briefs

import (
	"encoding/json"
	"fmt"
	"sort"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindNullableString
	kindNullableNumber
	kindStringList
	kindObject
)

type field struct {
	name   string
	kind   fieldKind
	fields []field
}

// briefShape mirrors the Brief structs. Every key is required; lists may be
// empty but not null.
var briefShape = []field{
	{name: "investment_brief", kind: kindStringList},
	{name: "entities", kind: kindObject, fields: []field{
		{name: "company", kind: kindNullableString},
		{name: "founders", kind: kindStringList},
		{name: "sector", kind: kindNullableString},
		{name: "geography", kind: kindNullableString},
		{name: "stage", kind: kindString},
		{name: "round_size_usd", kind: kindNullableNumber},
		{name: "notable_metrics", kind: kindStringList},
	}},
	{name: "tags", kind: kindObject, fields: []field{
		{name: "category", kind: kindStringList},
		{name: "stage", kind: kindString},
	}},
}

func checkObject(path string, value any, fields []field, out *[]string) {
	obj, ok := value.(map[string]any)
	if !ok {
		*out = append(*out, fmt.Sprintf("%s: expected object, got %s", displayPath(path), jsonType(value)))
		return
	}

	known := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		known[f.name] = struct{}{}
		fieldPath := joinPath(path, f.name)
		raw, present := obj[f.name]
		if !present {
			*out = append(*out, fmt.Sprintf("%s: field required", fieldPath))
			continue
		}
		checkField(fieldPath, raw, f, out)
	}

	var extra []string
	for key := range obj {
		if _, ok := known[key]; !ok {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		*out = append(*out, fmt.Sprintf("%s: unexpected field", joinPath(path, key)))
	}
}

func checkField(path string, raw any, f field, out *[]string) {
	switch f.kind {
	case kindString:
		if _, ok := raw.(string); !ok {
			*out = append(*out, fmt.Sprintf("%s: expected string, got %s", path, jsonType(raw)))
		}
	case kindNullableString:
		if raw == nil {
			return
		}
		if _, ok := raw.(string); !ok {
			*out = append(*out, fmt.Sprintf("%s: expected string or null, got %s", path, jsonType(raw)))
		}
	case kindNullableNumber:
		if raw == nil {
			return
		}
		if _, ok := raw.(json.Number); !ok {
			*out = append(*out, fmt.Sprintf("%s: expected number or null, got %s", path, jsonType(raw)))
		}
	case kindStringList:
		items, ok := raw.([]any)
		if !ok {
			*out = append(*out, fmt.Sprintf("%s: expected array, got %s", path, jsonType(raw)))
			return
		}
		for i, item := range items {
			if _, ok := item.(string); !ok {
				*out = append(*out, fmt.Sprintf("%s[%d]: expected string, got %s", path, i, jsonType(item)))
			}
		}
	case kindObject:
		checkObject(path, raw, f.fields, out)
	}
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func displayPath(path string) string {
	if path == "" {
		return "payload"
	}
	return path
}
