// Package services implements the step API: validated workflow and step
// operations over a persistence backend, publishing change events.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/stepflow/pkg/persistence"
)

// Validation errors (400 Bad Request).
var (
	ErrInvalidRequest        = errors.New("invalid request")
	ErrInvalidSortField      = errors.New("invalid sort field")
	ErrMissingNextStep       = errors.New("proceed_to_step_by_id requires next_step_id")
	ErrUnknownExecutionPoint = errors.New("unknown execution point")
	ErrForeignInitialStep    = errors.New("initial step does not belong to the workflow")
)

// Not found errors (404).
var (
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
	ErrStepNotFound     = persistence.ErrStepNotFound
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidSortField) ||
		errors.Is(err, ErrMissingNextStep) ||
		errors.Is(err, ErrUnknownExecutionPoint) ||
		errors.Is(err, ErrForeignInitialStep)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) || errors.Is(err, ErrStepNotFound)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
