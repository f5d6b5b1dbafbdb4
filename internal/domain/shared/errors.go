// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrPrerequisite    = errors.New("prerequisite not met")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOptimisticLock         = errors.New("optimistic lock failure")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "user", "task", "lesson"
	Op      string // Operation that failed, e.g., "Create", "Update"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// User domain errors
var (
	ErrUserNotFound      = NewDomainError("user", "Find", ErrNotFound, "user not found")
	ErrUserAlreadyExists = NewDomainError("user", "Create", ErrAlreadyExists, "user already exists")
	ErrInvalidEmail      = NewDomainError("user", "Validate", ErrInvalidFormat, "invalid email address")
	ErrInvalidCredential = NewDomainError("user", "Authenticate", ErrUnauthorized, "invalid credentials")
)

// Task domain errors
var (
	ErrTaskNotFound        = NewDomainError("task", "Find", ErrNotFound, "task not found")
	ErrInvalidCategory     = NewDomainError("task", "Validate", ErrInvalidInput, "unknown task category")
	ErrInvalidAmount       = NewDomainError("task", "Validate", ErrValueOutOfRange, "increment amount must be positive")
	ErrPrerequisiteUnmet   = NewDomainError("task", "CheckAvailability", ErrPrerequisite, "task prerequisites not completed")
	ErrTaskCatalogConflict = NewDomainError("task", "Seed", ErrAlreadyExists, "task catalog entry conflicts with existing definition")
)

// Lesson domain errors
var (
	ErrLessonNotFound     = NewDomainError("lesson", "Find", ErrNotFound, "lesson not found")
	ErrContentNotFound    = NewDomainError("lesson", "FindContent", ErrNotFound, "content unit not found")
	ErrLessonEmpty        = NewDomainError("lesson", "SelectUnit", ErrInvalidState, "lesson has no content units")
	ErrLessonNotReady     = NewDomainError("lesson", "Interact", ErrInvalidState, "lesson generation has not completed")
	ErrLessonNotOwned     = NewDomainError("lesson", "Authorize", ErrForbidden, "lesson belongs to another user")
	ErrInvalidScore       = NewDomainError("lesson", "ApplyScore", ErrValueOutOfRange, "completion score must be between 0 and 100")
	ErrBrokenSequence     = NewDomainError("lesson", "Validate", ErrInvalidEntity, "content unit sequence numbers are not contiguous")
	ErrGenerationConflict = NewDomainError("lesson", "Generate", ErrInvalidState, "lesson generation already in progress")
)

// External service errors
var (
	ErrJudgeUnavailable       = NewDomainError("ai", "Judge", ErrServiceUnavailable, "AI judge is unavailable")
	ErrJudgeInvalidResponse   = NewDomainError("ai", "Judge", ErrInvalidFormat, "unparseable response from AI judge")
	ErrGeneratorUnavailable   = NewDomainError("ai", "Generate", ErrServiceUnavailable, "AI generator is unavailable")
	ErrGeneratorInvalidOutput = NewDomainError("ai", "Generate", ErrInvalidFormat, "unparseable output from AI generator")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsPrerequisiteUnmet checks if the error indicates unmet prerequisites.
func IsPrerequisiteUnmet(err error) bool {
	return errors.Is(err, ErrPrerequisite)
}

// IsConflict checks if the error is a concurrency conflict that the caller
// may resolve by retrying the whole read-modify-write cycle.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrOptimisticLock)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrOptimisticLock)
}
