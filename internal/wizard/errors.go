package wizard

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownField        = errors.New("unknown draft field")
	ErrReadOnlyField       = errors.New("draft field is read-only")
	ErrInvalidFieldValue   = errors.New("invalid value")
	ErrWizardComplete      = errors.New("booking is already complete")
	ErrOperationInProgress = errors.New("a previous request is still in progress")
	ErrSelectionChanged    = errors.New("selection changed while the request was in progress, please try again")
	ErrStepIncomplete      = errors.New("current step is incomplete")
	ErrIdentityRequired    = errors.New("user session not found, please log in again")
	ErrBookingCreated      = errors.New("booking has already been created, only its confirmation can be retried")
)

// ValidationError is a local precondition failure detected before any remote call
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StepIncompleteError is returned when advancing past a step whose completeness predicate does not hold
type StepIncompleteError struct {
	Step    Step
	Message string
}

func (e *StepIncompleteError) Error() string {
	return e.Message
}

func (e *StepIncompleteError) Unwrap() error {
	return ErrStepIncomplete
}

// MissingFieldsError lists the draft fields required for submission that are not set
type MissingFieldsError struct {
	Fields []Field
}

func (e *MissingFieldsError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = string(f)
	}
	return fmt.Sprintf("Missing required booking information: %s", strings.Join(names, ", "))
}
