package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealbrief-backend/internal/generator"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New("test-key", "", 0, option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	require.NoError(t, err)
	return c
}

func messageBody(text string) map[string]any {
	return map[string]any{
		"id":   "msg_test_001",
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"model":       DefaultModel,
		"stop_reason": "end_turn",
		"usage": map[string]any{
			"input_tokens":  10,
			"output_tokens": 5,
		},
	}
}

func TestGenerateSendsPromptAndReturnsText(t *testing.T) {
	var sent map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &sent))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(messageBody("```json\n{\"tags\":{}}\n```")) //nolint:errcheck
	})

	out, err := c.Generate(context.Background(), generator.Request{
		RawText: "Acme raises $5M seed round",
		Repair:  &generator.Repair{ValidationError: "tags.stage: field required", Schema: "{}"},
	})
	require.NoError(t, err)
	payload, ok := out.Payload()
	require.True(t, ok)
	assert.JSONEq(t, `{"tags":{}}`, string(payload))

	assert.Equal(t, DefaultModel, sent["model"])
	assert.EqualValues(t, 0, sent["temperature"])
	raw, _ := json.Marshal(sent["messages"])
	assert.Contains(t, string(raw), "tags.stage: field required")
}

func TestGenerateNoTextIsFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(messageBody("")) //nolint:errcheck
	})

	out, err := c.Generate(context.Background(), generator.Request{RawText: "x"})
	require.NoError(t, err)
	_, failed := out.FailureMessage()
	assert.True(t, failed)
}

func TestGenerateAPIErrorIsError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`) //nolint:errcheck
	})

	_, err := c.Generate(context.Background(), generator.Request{RawText: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: create message")
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New("", "", 0)
	assert.Error(t, err)
}
