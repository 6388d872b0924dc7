package briefs

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bullets(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = "point"
	}
	return out
}

func validDoc() map[string]any {
	return map[string]any{
		"investment_brief": bullets(BulletCount),
		"entities": map[string]any{
			"company":         "Acme",
			"founders":        []any{"Jane Doe"},
			"sector":          "fintech",
			"geography":       nil,
			"stage":           "Seed",
			"round_size_usd":  5000000,
			"notable_metrics": []any{},
		},
		"tags": map[string]any{
			"category": []any{"fintech"},
			"stage":    "Seed",
		},
	}
}

func encode(t *testing.T, doc map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}

func violations(t *testing.T, err error) []string {
	t.Helper()
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr), "expected *SchemaError, got %T: %v", err, err)
	return schemaErr.Violations
}

func TestParseValid(t *testing.T) {
	brief, err := Parse(encode(t, validDoc()))
	require.NoError(t, err)

	assert.Len(t, brief.InvestmentBrief, BulletCount)
	require.NotNil(t, brief.Entities.Company)
	assert.Equal(t, "Acme", *brief.Entities.Company)
	assert.Nil(t, brief.Entities.Geography)
	require.NotNil(t, brief.Entities.RoundSizeUSD)
	assert.InDelta(t, 5_000_000, *brief.Entities.RoundSizeUSD, 0.1)
	assert.Equal(t, StageSeed, brief.Tags.Stage)
	assert.Equal(t, []Category{CategoryFintech}, brief.Tags.Category)
}

func TestParseBulletCardinality(t *testing.T) {
	for _, n := range []int{0, 9, 11} {
		doc := validDoc()
		doc["investment_brief"] = bullets(n)
		_, err := Parse(encode(t, doc))
		v := violations(t, err)
		require.Len(t, v, 1)
		assert.Contains(t, v[0], "investment_brief: must contain exactly 10 items")
	}
}

func TestParseEnumerations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc map[string]any)
		want   string
	}{
		{
			name:   "tag stage unknown",
			mutate: func(doc map[string]any) { doc["tags"].(map[string]any)["stage"] = "Unknown" },
			want:   "tags.stage: must be one of Seed, Series A, Series B",
		},
		{
			name:   "entity stage invalid",
			mutate: func(doc map[string]any) { doc["entities"].(map[string]any)["stage"] = "Series C" },
			want:   "entities.stage: must be one of Seed, Series A, Series B, Unknown",
		},
		{
			name:   "category invalid",
			mutate: func(doc map[string]any) { doc["tags"].(map[string]any)["category"] = []any{"fintech", "biotech"} },
			want:   "tags.category[1]: must be one of fintech, deep tech, climate tech",
		},
		{
			name:   "stage case matters",
			mutate: func(doc map[string]any) { doc["tags"].(map[string]any)["stage"] = "seed" },
			want:   "tags.stage",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDoc()
			tt.mutate(doc)
			_, err := Parse(encode(t, doc))
			v := violations(t, err)
			require.Len(t, v, 1)
			assert.Contains(t, v[0], tt.want)
		})
	}
}

func TestParseEntityStageUnknownAllowed(t *testing.T) {
	doc := validDoc()
	doc["entities"].(map[string]any)["stage"] = "Unknown"
	_, err := Parse(encode(t, doc))
	assert.NoError(t, err)
}

func TestParseShapeViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc map[string]any)
		want   string
	}{
		{
			name:   "missing nullable key",
			mutate: func(doc map[string]any) { delete(doc["entities"].(map[string]any), "company") },
			want:   "entities.company: field required",
		},
		{
			name:   "missing list",
			mutate: func(doc map[string]any) { delete(doc["entities"].(map[string]any), "founders") },
			want:   "entities.founders: field required",
		},
		{
			name:   "null list",
			mutate: func(doc map[string]any) { doc["tags"].(map[string]any)["category"] = nil },
			want:   "tags.category: expected array, got null",
		},
		{
			name:   "extra top-level field",
			mutate: func(doc map[string]any) { doc["summary"] = "x" },
			want:   "summary: unexpected field",
		},
		{
			name:   "extra nested field",
			mutate: func(doc map[string]any) { doc["tags"].(map[string]any)["region"] = "EU" },
			want:   "tags.region: unexpected field",
		},
		{
			name:   "number as string",
			mutate: func(doc map[string]any) { doc["entities"].(map[string]any)["round_size_usd"] = "5000000" },
			want:   "entities.round_size_usd: expected number or null, got string",
		},
		{
			name:   "non-string bullet",
			mutate: func(doc map[string]any) { doc["investment_brief"].([]any)[3] = 7 },
			want:   "investment_brief[3]: expected string, got number",
		},
		{
			name:   "entities not an object",
			mutate: func(doc map[string]any) { doc["entities"] = []any{} },
			want:   "entities: expected object, got array",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDoc()
			tt.mutate(doc)
			_, err := Parse(encode(t, doc))
			v := violations(t, err)
			assert.Contains(t, v, tt.want)
		})
	}
}

func TestParseUnparseable(t *testing.T) {
	for _, payload := range []string{"", "   ", "not json", `{"investment_brief": [`, `{} {}`, `[]`} {
		_, err := Parse([]byte(payload))
		v := violations(t, err)
		assert.NotEmpty(t, v, payload)
	}
}

func TestSchemaErrorMessage(t *testing.T) {
	err := &SchemaError{Violations: []string{"a: x", "b: y"}}
	assert.Equal(t, "schema validation failed: a: x; b: y", err.Error())
}

func TestGenerationErrorUnwraps(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := &GenerationError{Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "generation failed: dial tcp: refused", err.Error())
	assert.Equal(t, "generation failed: quota", (&GenerationError{Message: "quota"}).Error())
}

func TestJSONSchemaDocument(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(JSONSchema()), &doc))
	assert.Equal(t, false, doc["additionalProperties"])

	props := doc["properties"].(map[string]any)
	brief := props["investment_brief"].(map[string]any)
	assert.EqualValues(t, BulletCount, brief["minItems"])
	assert.EqualValues(t, BulletCount, brief["maxItems"])
	assert.True(t, strings.Contains(JSONSchema(), `"climate tech"`))
	assert.Equal(t, JSONSchema(), JSONSchema())
}
