package deals

import "github.com/rotisserie/eris"

var (
	ErrNotFound = eris.New("deal not found")
	// ErrDuplicateInput means the normalized text already has a record.
	ErrDuplicateInput = eris.New("duplicate input")
	// ErrInvalidInput means raw text is blank or too long.
	ErrInvalidInput = eris.New("invalid input")
	// ErrDuplicateFingerprint is returned by stores when the uniqueness
	// constraint on fingerprint rejects an insert.
	ErrDuplicateFingerprint = eris.New("fingerprint already exists")
	// ErrNotPending is returned by stores when updating a terminal record.
	ErrNotPending = eris.New("deal is not pending")
	// ErrNotTerminal is returned by stores when an update targets a
	// non-terminal status.
	ErrNotTerminal = eris.New("update status must be processed or failed")
)

const (
	ErrorCodeValidation = "validation_error"
	ErrorCodeDuplicate  = "duplicate_input"
	ErrorCodeNotFound   = "not_found"
	ErrorCodeInternal   = "internal_error"
)
