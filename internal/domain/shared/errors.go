package shared

import (
	"fmt"
	"strings"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrAggregateNotFound   = NewDomainError("AGGREGATE_NOT_FOUND", "Aggregate stream not found")
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Stream was modified by another writer")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
)

// FieldViolation describes a single violated field in a command
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every violated field of a command, not just the
// first. Static field rules only; state-dependent rules raise
// InvalidStateTransitionError instead.
type ValidationError struct {
	Violations []FieldViolation `json:"violations"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Field, v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field violation
func (e *ValidationError) Add(field, message string) {
	e.Violations = append(e.Violations, FieldViolation{Field: field, Message: message})
}

// HasViolations returns true if at least one field was violated
func (e *ValidationError) HasViolations() bool {
	return len(e.Violations) > 0
}

// ErrOrNil returns the error if any violation was recorded, nil otherwise
func (e *ValidationError) ErrOrNil() error {
	if e.HasViolations() {
		return e
	}
	return nil
}

// InvalidStateTransitionError is returned when a command is not legal from the
// aggregate's current state. Caller-fixable, never retried.
type InvalidStateTransitionError struct {
	AggregateType string `json:"aggregate_type"`
	Action        string `json:"action"`
	CurrentState  string `json:"current_state"`
}

// Error implements the error interface
func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s in state %s", e.Action, e.AggregateType, e.CurrentState)
}

// NewInvalidStateTransition creates an InvalidStateTransitionError
func NewInvalidStateTransition(aggregateType, action, currentState string) *InvalidStateTransitionError {
	return &InvalidStateTransitionError{
		AggregateType: aggregateType,
		Action:        action,
		CurrentState:  currentState,
	}
}
