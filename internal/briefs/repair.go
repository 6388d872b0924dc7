package briefs

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"dealbrief-backend/internal/generator"
	"dealbrief-backend/internal/shared/telemetry"
)

// MaxAttempts is the original extraction plus one repair.
const MaxAttempts = 2

// Attempt describes one generator call made by the loop.
type Attempt struct {
	Number  int
	Repair  bool
	Payload json.RawMessage
	Err     error
}

// Result is the outcome of a successful Run.
type Result struct {
	Brief    Brief
	Attempts int
}

// Loop drives a Generator until it yields a schema-valid brief, allowing a
// single repair attempt after a validation failure. Generation failures are
// never retried.
type Loop struct {
	Generator generator.Generator
	// OnAttempt, if set, observes every attempt after it completes.
	OnAttempt func(ctx context.Context, a Attempt)
}

// NewLoop constructs a Loop around gen.
func NewLoop(gen generator.Generator) *Loop {
	return &Loop{Generator: gen}
}

// Run returns the validated brief, or a *GenerationError / *SchemaError that
// carries the most recent failure.
func (l *Loop) Run(ctx context.Context, rawText string) (Result, error) {
	if l == nil || l.Generator == nil {
		return Result{}, &GenerationError{Err: generator.ErrNotConfigured}
	}

	schema := JSONSchema()
	req := generator.Request{RawText: rawText, Schema: schema}

	brief, err := l.attempt(ctx, 1, req)
	if err == nil {
		return Result{Brief: brief, Attempts: 1}, nil
	}
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		return Result{Attempts: 1}, err
	}
	telemetry.Info("brief.validation", map[string]any{
		"attempt": 1,
		"error":   schemaErr.Error(),
	})

	req.Repair = &generator.Repair{
		ValidationError: strings.Join(schemaErr.Violations, "\n"),
		Schema:          schema,
	}
	brief, err = l.attempt(ctx, MaxAttempts, req)
	if err != nil {
		telemetry.Info("brief.validation", map[string]any{
			"attempt": MaxAttempts,
			"error":   err.Error(),
		})
		return Result{Attempts: MaxAttempts}, err
	}
	return Result{Brief: brief, Attempts: MaxAttempts}, nil
}

func (l *Loop) attempt(ctx context.Context, n int, req generator.Request) (Brief, error) {
	outcome, err := l.generate(ctx, req)
	a := Attempt{Number: n, Repair: req.IsRepair()}
	defer func() {
		if l.OnAttempt != nil {
			l.OnAttempt(ctx, a)
		}
	}()

	if err != nil {
		a.Err = &GenerationError{Err: err}
		return Brief{}, a.Err
	}
	if msg, failed := outcome.FailureMessage(); failed {
		a.Err = &GenerationError{Message: msg}
		return Brief{}, a.Err
	}

	payload, _ := outcome.Payload()
	a.Payload = payload
	brief, err := Parse(payload)
	if err != nil {
		a.Err = err
		return Brief{}, err
	}
	return brief, nil
}

func (l *Loop) generate(ctx context.Context, req generator.Request) (out generator.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("generator panic: %v", r)
		}
	}()
	return l.Generator.Generate(ctx, req)
}
