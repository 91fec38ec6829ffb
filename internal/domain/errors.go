package domain

import "fmt"

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

// Is matches domain errors by code and message so wrapped copies compare equal.
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

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeUpstream         = "UPSTREAM_ERROR"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrOrderSetNameRequired = NewDomainError(ErrCodeValidation, "please enter a name for the order set")
	ErrDuplicatePanel       = NewDomainError(ErrCodeValidation, "this profile/test is already selected for this order")
	ErrDuplicateResult      = NewDomainError(ErrCodeValidation, "this result test is already selected for this order")
	ErrDateRangeIncomplete  = NewDomainError(ErrCodeValidation, "please enter value for both dates")
	ErrDateRangeInverted    = NewDomainError(ErrCodeValidation, "first date must be prior to second date")
	ErrInvalidCRMID         = NewDomainError(ErrCodeValidation, "invalid CRM ID")
	ErrIncompleteOrder      = NewDomainError(ErrCodeValidation, "order requires location, doctor, patient, order set and med set")
	ErrUnknownSearchDomain  = NewDomainError(ErrCodeValidation, "unknown search domain")
	ErrUnknownOrderAction   = NewDomainError(ErrCodeValidation, "unknown order action")
)

// Not found errors
var (
	ErrOrderNotFound = NewDomainError(ErrCodeNotFound, "order not found")
	ErrPanelNotFound = NewDomainError(ErrCodeNotFound, "panel not found")
)

// Authorization errors
var (
	ErrForeignOrigin    = NewDomainError(ErrCodeForbidden, "message origin does not match application origin")
	ErrTokenUnavailable = NewDomainError(ErrCodeUnauthorized, "api token not available")
)

// Operation errors
var (
	ErrArchiveNotConfigured = NewDomainError(ErrCodeInvalidOperation, "report archive not configured: S3_ENDPOINT required")
	ErrNotABlob             = NewDomainError(ErrCodeInvalidOperation, "response is not a file")
)
