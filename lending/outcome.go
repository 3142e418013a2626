package lending

import (
	"errors"
)

// Outcome tags the result of a workflow operation for the calling layer.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotFound
	OutcomeForbidden
	OutcomeConflict
	OutcomeInvalidState
	OutcomeInvalidInput
	OutcomeInfrastructure
)

// OutcomeOf maps an error returned by the workflow engine to its Outcome tag.
// A nil error is OutcomeOK, unknown errors are infrastructure faults.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrForbidden):
		return OutcomeForbidden
	case errors.Is(err, ErrConflict), errors.Is(err, ErrConcurrencyConflict):
		return OutcomeConflict
	case errors.Is(err, ErrInvalidState):
		return OutcomeInvalidState
	case errors.Is(err, ErrInvalidInput):
		return OutcomeInvalidInput
	default:
		return OutcomeInfrastructure
	}
}

// String provides a string representation of Outcome for logging and metrics labels.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeConflict:
		return "conflict"
	case OutcomeInvalidState:
		return "invalid_state"
	case OutcomeInvalidInput:
		return "invalid_input"
	case OutcomeInfrastructure:
		return "infrastructure"
	default:
		return "unknown"
	}
}

// Retryable reports whether the caller may retry the whole operation.
func (o Outcome) Retryable() bool {
	return o == OutcomeConflict
}
