package briefs

import "strings"

// SchemaError reports a payload that does not conform to BriefSchema.
// Unparseable payloads are reported the same way.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "schema validation failed"
	}
	return "schema validation failed: " + strings.Join(e.Violations, "; ")
}

// GenerationError reports that the generator produced no usable output:
// a returned Failure, a transport error, or a recovered panic.
type GenerationError struct {
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	if e == nil {
		return "generation failed"
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		return "generation failed"
	}
	return "generation failed: " + msg
}

func (e *GenerationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
