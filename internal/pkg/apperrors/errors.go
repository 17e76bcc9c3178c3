package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound = errors.New("resource not found")
	ErrConflict         = errors.New("conflict")

	// Account errors
	ErrAccountNotFound  = errors.New("account not found")
	ErrNotVerified      = errors.New("account not verified")
	ErrUsernameRequired = errors.New("telegram username required")

	// Verification errors
	ErrInvalidEmail          = errors.New("invalid email")
	ErrEmailDomainNotAllowed = errors.New("email domain not allowed")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenInvalid          = errors.New("invalid token")

	// Event errors
	ErrEventNotFound  = errors.New("event not found")
	ErrDuplicateEvent = errors.New("duplicate event")
	ErrNotOwner       = errors.New("not the event owner")
	ErrEventDeleted   = errors.New("event deleted")
	ErrNoEventDate    = errors.New("event has no date")

	// Ingestion errors
	ErrRateLimited = errors.New("rate limit exceeded")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")
)

// Category errors
var (
	ErrCategoryNotFound = errors.New("category not found")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}
