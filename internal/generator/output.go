package generator

import (
	"encoding/json"
	"strings"
)

// TextOutcome turns model output text into an Outcome. Markdown code fences
// are stripped; JSON validity is left to the caller's validator.
func TextOutcome(provider, text string) Outcome {
	cleaned := stripCodeFence(strings.TrimSpace(text))
	if cleaned == "" {
		return Failure(provider + " returned empty output")
	}
	return Success(json.RawMessage(cleaned))
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
