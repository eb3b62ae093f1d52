package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError with the same code and message, so that
// errors.Is(wrapped, ErrSessionNotFound) holds for copies carrying a cause.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithCause returns a copy of a sentinel error carrying err as its cause.
func WithCause(sentinel *DomainError, err error) *DomainError {
	return NewDomainErrorWithCause(sentinel.Code, sentinel.Message, err)
}

// ErrorCode returns the code of the first DomainError in err's chain, or "".
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Common domain error codes
const (
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeAlreadyExists         = "ALREADY_EXISTS"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeForbidden             = "FORBIDDEN"
	ErrCodeInternalError         = "INTERNAL_ERROR"
	ErrCodeUnsupportedFormat     = "UNSUPPORTED_FORMAT"
	ErrCodeIngestionFailed       = "INGESTION_FAILED"
	ErrCodeGenerationUnavailable = "GENERATION_UNAVAILABLE"
)

// Validation errors
var (
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query text is required")
	ErrEmptyMessage         = NewDomainError(ErrCodeValidation, "message text is required")
	ErrInvalidRole          = NewDomainError(ErrCodeValidation, "invalid message role")
	ErrInvalidEmail         = NewDomainError(ErrCodeValidation, "invalid email address")
	ErrWeakPassword         = NewDomainError(ErrCodeValidation, "password must be at least 8 characters")
	ErrPasswordMismatch     = NewDomainError(ErrCodeValidation, "passwords do not match")
	ErrInvalidExportFormat  = NewDomainError(ErrCodeValidation, "invalid export format")
	ErrInvalidJobStatus     = NewDomainError(ErrCodeValidation, "invalid ingestion job status")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrUserNotFound     = NewDomainError(ErrCodeNotFound, "user not found")
	ErrSessionNotFound  = NewDomainError(ErrCodeNotFound, "session not found")
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrJobNotFound      = NewDomainError(ErrCodeNotFound, "ingestion job not found")
	ErrObjectNotFound   = NewDomainError(ErrCodeNotFound, "uploaded object not found")
)

// Already exists errors
var (
	ErrUserAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "user already exists")
)

// Authorization errors
var (
	ErrInvalidCredentials = NewDomainError(ErrCodeUnauthorized, "invalid email or password")
	ErrInvalidToken       = NewDomainError(ErrCodeUnauthorized, "invalid or expired token")
	ErrSessionForbidden   = NewDomainError(ErrCodeForbidden, "session belongs to another user")
	ErrJobForbidden       = NewDomainError(ErrCodeForbidden, "ingestion job belongs to another user")
)

// Knowledge base errors
var (
	ErrUnsupportedFormat     = NewDomainError(ErrCodeUnsupportedFormat, "unsupported document format")
	ErrIngestionFailed       = NewDomainError(ErrCodeIngestionFailed, "document ingestion failed")
	ErrEmptyDocument         = NewDomainError(ErrCodeIngestionFailed, "document contains no extractable text")
	ErrGenerationUnavailable = NewDomainError(ErrCodeGenerationUnavailable, "generation service unavailable")
	ErrStorageNotConfigured  = NewDomainError(ErrCodeInternalError, "object storage not configured")
)
