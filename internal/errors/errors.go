package errors

import (
	stderrors "errors"
	"fmt"
)

// APIError is the error every handler responds with. Message is rendered
// under the "error" key.
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"error"`
	Field   string    `json:"field,omitempty"`
	Details string    `json:"details,omitempty"`
	Status  int       `json:"-"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, message string) *APIError {
	return &APIError{Code: code, Message: message, Status: code.StatusCode()}
}

// NotFound creates a NOT_FOUND error for the named resource
func NotFound(resource string) *APIError {
	return newError(ErrNotFound, fmt.Sprintf("%s not found.", resource))
}

// NotFoundMessage creates a NOT_FOUND error with an exact message
func NotFoundMessage(message string) *APIError {
	return newError(ErrNotFound, message)
}

func Unauthorized(message string) *APIError {
	return newError(ErrUnauthorized, message)
}

func Forbidden(message string) *APIError {
	if message == "" {
		message = "You do not have permission to perform this action."
	}
	return newError(ErrForbidden, message)
}

func Conflict(message string) *APIError {
	return newError(ErrConflict, message)
}

// ValidationError reports a problem with a single request field
func ValidationError(field, message string) *APIError {
	e := newError(ErrValidation, message)
	e.Field = field
	return e
}

func BadRequest(message string) *APIError {
	return newError(ErrBadRequest, message)
}

func InternalError(message string) *APIError {
	return newError(ErrInternalError, message)
}

func AlreadyExists(resource string) *APIError {
	return newError(ErrAlreadyExists, fmt.Sprintf("%s already exists.", resource))
}

func RateLimited(message string) *APIError {
	if message == "" {
		message = "Request was throttled."
	}
	return newError(ErrRateLimited, message)
}

func ServiceUnavailable(service string) *APIError {
	return newError(ErrServiceUnavail, fmt.Sprintf("%s is temporarily unavailable.", service))
}

func PayloadTooLarge(message string) *APIError {
	return newError(ErrPayloadTooLarge, message)
}

func UnsupportedType(message string) *APIError {
	return newError(ErrUnsupportedType, message)
}

// WithDetails adds additional details to an error
func (e *APIError) WithDetails(details string) *APIError {
	e.Details = details
	return e
}

// As extracts an *APIError from err's chain.
func As(err error) (*APIError, bool) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
