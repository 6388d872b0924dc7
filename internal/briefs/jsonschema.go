package briefs

import (
	"encoding/json"
	"sync"
)

var (
	schemaOnce sync.Once
	schemaDoc  string
)

// JSONSchema returns the BriefSchema as an indented JSON Schema document.
// Generators embed it in extraction and repair prompts.
func JSONSchema() string {
	schemaOnce.Do(func() {
		data, err := json.MarshalIndent(schemaDocument(), "", "  ")
		if err != nil {
			panic("briefs: marshal json schema: " + err.Error())
		}
		schemaDoc = string(data)
	})
	return schemaDoc
}

func schemaDocument() map[string]any {
	stringList := map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	nullableString := map[string]any{"type": []string{"string", "null"}}

	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"title":                "DealBriefSchema",
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"investment_brief", "entities", "tags"},
		"properties": map[string]any{
			"investment_brief": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": BulletCount,
				"maxItems": BulletCount,
			},
			"entities": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required": []string{
					"company", "founders", "sector", "geography",
					"stage", "round_size_usd", "notable_metrics",
				},
				"properties": map[string]any{
					"company":         nullableString,
					"founders":        stringList,
					"sector":          nullableString,
					"geography":       nullableString,
					"stage":           map[string]any{"type": "string", "enum": EntityStages},
					"round_size_usd":  map[string]any{"type": []string{"number", "null"}},
					"notable_metrics": stringList,
				},
			},
			"tags": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"category", "stage"},
				"properties": map[string]any{
					"category": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string", "enum": Categories},
					},
					"stage": map[string]any{"type": "string", "enum": TagStages},
				},
			},
		},
	}
}
