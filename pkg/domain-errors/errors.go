// Package domainerrors models the service error taxonomy as a closed set of
// machine-readable codes. Handlers match on codes, never on message prose, so
// new error paths cannot slip into API responses untyped.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies one member of the error taxonomy. The RCP_* values are part
// of the public API contract and must stay stable.
type Code string

const (
	// Clock flow errors, all client-correctable.
	CodeTokenInvalid      Code = "RCP_TOKEN_INVALID"
	CodeTokenExpired      Code = "RCP_TOKEN_EXPIRED"
	CodeLocationDisabled  Code = "RCP_LOCATION_DISABLED"
	CodeLowAccuracy       Code = "RCP_LOW_ACCURACY"
	CodeOutsideGeofence   Code = "RCP_OUTSIDE_GEOFENCE"
	CodeAlreadyClockedIn  Code = "RCP_ALREADY_CLOCKED_IN"
	CodeAlreadyClockedOut Code = "RCP_ALREADY_CLOCKED_OUT"
	CodeRateLimit         Code = "RCP_RATE_LIMIT"

	// Transport and infrastructure codes.
	CodeBadRequest   Code = "BAD_REQUEST"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeInternal     Code = "INTERNAL"
	CodeUnavailable  Code = "UNAVAILABLE"
)

// Error carries a taxonomy code plus a human-readable message. The code is the
// contract; the message is advisory.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a taxonomy code to an underlying error without losing it for
// errors.Is/As chains.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the taxonomy code from err, defaulting to CodeInternal for
// untyped errors so nothing leaks through the API boundary unclassified.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status. Exhaustive over the taxonomy;
// unknown codes fall back to 500.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeTokenInvalid, CodeTokenExpired, CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeLocationDisabled, CodeForbidden:
		return http.StatusForbidden
	case CodeLowAccuracy, CodeOutsideGeofence:
		return http.StatusUnprocessableEntity
	case CodeAlreadyClockedIn, CodeAlreadyClockedOut:
		return http.StatusConflict
	case CodeRateLimit:
		return http.StatusTooManyRequests
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the client may safely retry the request as-is.
// Only infrastructure failures qualify; taxonomy rejections are final until
// the client changes something.
func Retryable(err error) bool {
	return CodeOf(err) == CodeUnavailable
}
