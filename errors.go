package dues

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("dues: not found")
	ErrAlreadyExists = errors.New("dues: already exists")
	ErrInvalidInput  = errors.New("dues: invalid input")

	// Member errors
	ErrMemberNotFound  = errors.New("dues: member not found")
	ErrDuplicateMember = errors.New("dues: member email already registered")
	ErrMemberLeft      = errors.New("dues: member has left")
	ErrVersionConflict = errors.New("dues: member modified concurrently")

	// Fee errors
	ErrFeeNotFound    = errors.New("dues: fee not found")
	ErrDuplicateFee   = errors.New("dues: fee already exists for period")
	ErrFeeAlreadyPaid = errors.New("dues: fee already paid")
	ErrInvalidAmount  = errors.New("dues: invalid fee amount")

	// Gym errors
	ErrGymNotFound = errors.New("dues: gym not found")
	ErrGymBlocked  = errors.New("dues: gym subscription is blocked")

	// Settings errors
	ErrSettingsNotFound = errors.New("dues: settings not found")

	// User errors
	ErrUserNotFound  = errors.New("dues: user not found")
	ErrDuplicateUser = errors.New("dues: user email already registered")

	// Expense errors
	ErrExpenseNotFound = errors.New("dues: expense not found")
	ErrInvalidCategory = errors.New("dues: invalid expense category")

	// Store errors
	ErrStoreClosed           = errors.New("dues: store is closed")
	ErrDependencyUnavailable = errors.New("dues: dependency unavailable")
	ErrMigrationFailed       = errors.New("dues: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("dues: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred, typically from bulk
// repricing across several gyms.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "dues: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("dues: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// Unwrap allows errors.Is/As to see through to the collected errors.
func (e MultiError) Unwrap() []error {
	return e.Errors
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrMemberNotFound) ||
		errors.Is(err, ErrFeeNotFound) ||
		errors.Is(err, ErrGymNotFound) ||
		errors.Is(err, ErrSettingsNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrExpenseNotFound)
}

// IsConflict returns true if the error reports a uniqueness or concurrency
// conflict. The engine resolves these by re-reading.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrDuplicateMember) ||
		errors.Is(err, ErrDuplicateFee) ||
		errors.Is(err, ErrDuplicateUser) ||
		errors.Is(err, ErrVersionConflict)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict) ||
		errors.Is(err, ErrDependencyUnavailable) ||
		errors.Is(err, ErrStoreClosed)
}
