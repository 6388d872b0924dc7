package generator

import (
	"context"
	"encoding/json"
	"sync"
)

// Step is one scripted response of a Stub.
type Step struct {
	Outcome Outcome
	Err     error
	// Panic makes Generate panic with this value.
	Panic any
}

// Stub replays scripted steps in order and records every request. The last
// step repeats once the script is exhausted. It is safe for concurrent use.
type Stub struct {
	mu       sync.Mutex
	steps    []Step
	requests []Request
}

// NewStub constructs a Stub that replays steps.
func NewStub(steps ...Step) *Stub {
	return &Stub{steps: steps}
}

// SucceedWith is a Step returning payload as a Success.
func SucceedWith(payload string) Step {
	return Step{Outcome: Success(json.RawMessage(payload))}
}

// FailWith is a Step returning a Failure.
func FailWith(message string) Step {
	return Step{Outcome: Failure(message)}
}

// ErrorWith is a Step returning a transport error.
func ErrorWith(err error) Step {
	return Step{Err: err}
}

// Generate implements Generator.
func (s *Stub) Generate(ctx context.Context, req Request) (Outcome, error) {
	s.mu.Lock()
	idx := len(s.requests)
	s.requests = append(s.requests, req)
	var step Step
	switch {
	case len(s.steps) == 0:
		step = FailWith("stub has no scripted steps")
	case idx < len(s.steps):
		step = s.steps[idx]
	default:
		step = s.steps[len(s.steps)-1]
	}
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	if step.Panic != nil {
		panic(step.Panic)
	}
	if step.Err != nil {
		return Outcome{}, step.Err
	}
	return step.Outcome, nil
}

// Calls returns the number of Generate invocations.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Requests returns a copy of the recorded requests.
func (s *Stub) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

var _ Generator = (*Stub)(nil)
