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
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeAlreadyExists        = "ALREADY_EXISTS"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeInternalError        = "INTERNAL_ERROR"
	ErrCodeInvalidState         = "INVALID_STATE"
	ErrCodeDuplicateTool        = "DUPLICATE_TOOL"
	ErrCodeToolExecution        = "TOOL_EXECUTION"
	ErrCodeReasoningUnavailable = "REASONING_UNAVAILABLE"
	ErrCodeLoopBoundExceeded    = "LOOP_BOUND_EXCEEDED"
)

// Validation errors
var (
	ErrInvalidChaseType     = NewDomainError(ErrCodeValidation, "invalid chase type")
	ErrInvalidChaseStatus   = NewDomainError(ErrCodeValidation, "invalid chase status")
	ErrInvalidValueTier     = NewDomainError(ErrCodeValidation, "invalid client value tier")
	ErrInvalidCycleMode     = NewDomainError(ErrCodeValidation, "invalid cycle mode")
	ErrInvalidQueryMode     = NewDomainError(ErrCodeValidation, "invalid query mode")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrChaseNotFound  = NewDomainError(ErrCodeNotFound, "chase item not found")
	ErrClientNotFound = NewDomainError(ErrCodeNotFound, "client not found")
	ErrFirmNotFound   = NewDomainError(ErrCodeNotFound, "firm not found")
	ErrAPIKeyNotFound = NewDomainError(ErrCodeNotFound, "api key not found")
)

// Already exists errors
var (
	ErrChaseAlreadyExists  = NewDomainError(ErrCodeAlreadyExists, "chase item already exists")
	ErrFirmAlreadyExists   = NewDomainError(ErrCodeAlreadyExists, "firm already exists")
	ErrAPIKeyAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "api key already exists")
)

// Authorization errors
var (
	ErrAPIKeyRevoked = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// State machine errors
var (
	ErrChaseAcknowledged  = NewDomainError(ErrCodeInvalidState, "chase item is acknowledged and cannot be chased")
	ErrAcknowledgeNotSent = NewDomainError(ErrCodeInvalidState, "only sent chase items can be acknowledged")
	ErrCatalogSealed      = NewDomainError(ErrCodeInvalidState, "tool catalog is sealed")
)

// Reasoning errors
var (
	ErrReasoningUnavailable = NewDomainError(ErrCodeReasoningUnavailable, "reasoning provider unavailable")
	ErrLoopBoundExceeded    = NewDomainError(ErrCodeLoopBoundExceeded, "reasoning loop exceeded round cap without producing results")
)
