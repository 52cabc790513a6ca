package errors

import "fmt"

// Error codes
const (
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeInternal          = "INTERNAL_ERROR"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeAlreadyCompleted  = "ALREADY_COMPLETED"
	ErrCodeAttemptsExhausted = "ATTEMPTS_EXHAUSTED"
	ErrCodeConflict          = "CONFLICT"
)

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	Code    string // Error code (e.g., "NOT_FOUND", "ALREADY_COMPLETED")
	Message string // Human-readable error message
	Status  int    // HTTP status code
	Err     error  // Wrapped underlying error (optional)
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error wrapping support
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new NOT_FOUND error
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
		Status:  404,
	}
}

// NewValidationError creates a new VALIDATION_ERROR
func NewValidationError(field string, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("validation failed for %s: %s", field, reason),
		Status:  400,
	}
}

// NewInternalError creates a new INTERNAL_ERROR
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "internal server error",
		Status:  500,
		Err:     err,
	}
}

// NewBadRequestError creates a new BAD_REQUEST error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
		Status:  400,
	}
}

// NewAlreadyCompletedError signals that the player already has a final
// outcome recorded for the puzzle. Callers should surface the stored
// completion, not an error page.
func NewAlreadyCompletedError(puzzleID int64) *AppError {
	return &AppError{
		Code:    ErrCodeAlreadyCompleted,
		Message: fmt.Sprintf("puzzle %d already completed", puzzleID),
		Status:  409,
	}
}

// NewAttemptsExhaustedError signals that the attempt ceiling was reached.
func NewAttemptsExhaustedError(puzzleID int64) *AppError {
	return &AppError{
		Code:    ErrCodeAttemptsExhausted,
		Message: fmt.Sprintf("no attempts remaining for puzzle %d", puzzleID),
		Status:  409,
	}
}

// NewConflictError signals a concurrent-write conflict that persisted past
// the local retry. Transient from the caller's perspective.
func NewConflictError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeConflict,
		Message: "concurrent update conflict, please retry",
		Status:  503,
		Err:     err,
	}
}
