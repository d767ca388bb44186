package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is a string type for consistent error codes.
type ErrorCode string

// Predefined error codes for common API errors.
const (
	// Generic
	ErrorCodeInternalServerError ErrorCode = "internal_server_error"
	ErrorCodeBadRequest          ErrorCode = "bad_request"
	ErrorCodeNotFound            ErrorCode = "not_found"
	ErrorCodeUnauthorized        ErrorCode = "unauthorized"
	ErrorCodeMethodNotAllowed    ErrorCode = "method_not_allowed"

	// Validation
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeMissingParameter ErrorCode = "missing_parameter"
	ErrorCodeInvalidFormat    ErrorCode = "invalid_format"

	// Resource Specific
	ErrorCodeResourceNotFound ErrorCode = "resource_not_found"

	// Upstream PI Web API
	ErrorCodeUpstream ErrorCode = "upstream_error"
)

type APIError struct {
	Code       ErrorCode `json:"code"`              // Use the new ErrorCode type
	Message    string    `json:"message"`           // Human-readable error message
	Details    any       `json:"details,omitempty"` // Optional: Additional details
	StatusCode int       `json:"-"`                 // HTTP status code
}

// Error makes APIError implement the error interface.
func (e APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewAPIError is a constructor for APIError.
func NewAPIError(code ErrorCode, message string, details any, statusCode int) APIError {
	return APIError{
		Code:       code,
		Message:    message,
		Details:    details,
		StatusCode: statusCode,
	}
}

// APIErrorFrom maps a domain error onto the JSON error envelope returned by
// the HTTP API.
func APIErrorFrom(err error) APIError {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return NewAPIError(ErrorCodeResourceNotFound, notFound.Error(), nil, http.StatusNotFound)
	}

	var invalid *ValidationError
	if errors.As(err, &invalid) {
		var details any
		if invalid.Field != "" {
			details = map[string]string{"field": invalid.Field}
		}
		return NewAPIError(ErrorCodeValidationFailed, invalid.Error(), details, http.StatusBadRequest)
	}

	var transport *TransportError
	if errors.As(err, &transport) {
		details := map[string]any{}
		if transport.StatusCode != 0 {
			details["status"] = transport.StatusCode
		}
		if transport.Body != "" {
			details["body"] = transport.Body
		}
		return NewAPIError(ErrorCodeUpstream, transport.Error(), details, http.StatusBadGateway)
	}

	return NewAPIError(ErrorCodeInternalServerError, err.Error(), nil, http.StatusInternalServerError)
}
