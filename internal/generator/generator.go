package generator

import (
	"context"
	"encoding/json"
	"errors"
)

// Generator turns raw deal text into an unvalidated structured payload.
//
// Ordinary extraction failures are reported as a Failure outcome. A non-nil
// error is reserved for faults such as an unreachable provider; callers treat
// both the same way.
type Generator interface {
	Generate(ctx context.Context, req Request) (Outcome, error)
}

// Request carries the input for one generation attempt.
type Request struct {
	RawText string
	// Schema is the JSON Schema document the output must satisfy.
	Schema string
	// Repair is nil on the first attempt.
	Repair *Repair
}

// Repair replaces the extraction instruction on the retry attempt.
type Repair struct {
	ValidationError string
	Schema          string
}

// IsRepair reports whether the request is a repair attempt.
func (r Request) IsRepair() bool {
	return r.Repair != nil
}

// Outcome is either Success with a payload or Failure with a message.
type Outcome struct {
	ok      bool
	payload json.RawMessage
	message string
}

// Success wraps a structured payload that has not been validated yet.
func Success(payload json.RawMessage) Outcome {
	return Outcome{ok: true, payload: payload}
}

// Failure reports an extraction failure.
func Failure(message string) Outcome {
	if message == "" {
		message = "generator returned no output"
	}
	return Outcome{message: message}
}

// OK reports whether the outcome is a Success.
func (o Outcome) OK() bool {
	return o.ok
}

// Payload returns the success payload.
func (o Outcome) Payload() (json.RawMessage, bool) {
	if !o.ok {
		return nil, false
	}
	return o.payload, true
}

// FailureMessage returns the failure message.
func (o Outcome) FailureMessage() (string, bool) {
	if o.ok {
		return "", false
	}
	if o.message == "" {
		return "generator returned no output", true
	}
	return o.message, true
}

// ErrNotConfigured is returned by NotConfigured.
var ErrNotConfigured = errors.New("generator not configured")

// NotConfigured is a placeholder used when no provider is wired.
type NotConfigured struct{}

// Generate returns ErrNotConfigured.
func (NotConfigured) Generate(ctx context.Context, req Request) (Outcome, error) {
	_ = ctx
	_ = req
	return Outcome{}, ErrNotConfigured
}
