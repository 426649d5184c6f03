package errors

import "net/http"

// ErrorCode represents the type of error
type ErrorCode string

const (
	ErrNotFound        ErrorCode = "NOT_FOUND"
	ErrUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrForbidden       ErrorCode = "FORBIDDEN"
	ErrConflict        ErrorCode = "CONFLICT"
	ErrValidation      ErrorCode = "VALIDATION_ERROR"
	ErrBadRequest      ErrorCode = "BAD_REQUEST"
	ErrInternalError   ErrorCode = "INTERNAL_ERROR"
	ErrAlreadyExists   ErrorCode = "ALREADY_EXISTS"
	ErrRateLimited     ErrorCode = "RATE_LIMITED"
	ErrServiceUnavail  ErrorCode = "SERVICE_UNAVAILABLE"
	ErrPayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrUnsupportedType ErrorCode = "UNSUPPORTED_MEDIA_TYPE"
)

// StatusCodeMap maps ErrorCode to HTTP status code. Validation failures are
// plain 400s so mobile clients only have to branch on one status.
var StatusCodeMap = map[ErrorCode]int{
	ErrNotFound:        http.StatusNotFound,
	ErrUnauthorized:    http.StatusUnauthorized,
	ErrForbidden:       http.StatusForbidden,
	ErrConflict:        http.StatusConflict,
	ErrValidation:      http.StatusBadRequest,
	ErrBadRequest:      http.StatusBadRequest,
	ErrInternalError:   http.StatusInternalServerError,
	ErrAlreadyExists:   http.StatusConflict,
	ErrRateLimited:     http.StatusTooManyRequests,
	ErrServiceUnavail:  http.StatusServiceUnavailable,
	ErrPayloadTooLarge: http.StatusRequestEntityTooLarge,
	ErrUnsupportedType: http.StatusUnsupportedMediaType,
}

// StatusCode returns the HTTP status code for this error code
func (e ErrorCode) StatusCode() int {
	if code, ok := StatusCodeMap[e]; ok {
		return code
	}
	return http.StatusInternalServerError
}
