package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"

	// remote call failure classes; all of them collapse into one message at component boundaries
	ErrorTypeTransport   ErrorType = "TRANSPORT_ERROR"
	ErrorTypeApplication ErrorType = "APPLICATION_ERROR"
	ErrorTypeUnexpected  ErrorType = "UNEXPECTED_ERROR"
	ErrorTypeTimeout     ErrorType = "TIMEOUT_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidGateway   ErrorCode = "INVALID_GATEWAY"
	ErrCodeInvalidAction    ErrorCode = "INVALID_ACTION"
	ErrCodeInvalidBankCard  ErrorCode = "INVALID_BANK_CARD"

	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"

	ErrCodeInitiationInFlight ErrorCode = "INITIATION_IN_FLIGHT"
	ErrCodePendingNotFound    ErrorCode = "PENDING_ORDER_NOT_FOUND"

	ErrCodeRemoteUnreachable ErrorCode = "REMOTE_UNREACHABLE"
	ErrCodeRemoteRejected    ErrorCode = "REMOTE_REJECTED"
	ErrCodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	ErrCodeRemoteTimeout     ErrorCode = "REMOTE_TIMEOUT"
	ErrCodeRemotePanic       ErrorCode = "REMOTE_PANIC"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {

			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewTransportError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeTransport,
		Code:       ErrCodeRemoteUnreachable,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewApplicationError wraps a structured failure reported by the remote backend.
// The message is shown to the user as-is.
func NewApplicationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeApplication,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

func NewUnexpectedError(cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeUnexpected,
		Code:       ErrCodeRemotePanic,
		Message:    "Unexpected error, please try again",
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewTimeoutError(cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeTimeout,
		Code:       ErrCodeRemoteTimeout,
		Message:    "Request timed out",
		StatusCode: http.StatusGatewayTimeout,
		Cause:      cause,
	}
}

var (
	ErrInvalidAmount      = NewValidationError("Invalid amount", ErrCodeInvalidAmount)
	ErrInvalidGateway     = NewValidationError("Unknown payment gateway", ErrCodeInvalidGateway)
	ErrInitiationInFlight = NewConflictError("Payment already in progress", ErrCodeInitiationInFlight)
	ErrPendingNotFound    = NewNotFoundError("No pending order", ErrCodePendingNotFound)

	ErrInvalidToken = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// UserMessage flattens any error into the single string shown to callers.
// The error class never survives this call.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := IsAppError(err); ok {
		if msg := appErr.GetDetailedMessage(); msg != "" {
			return msg
		}
	}
	return "Unexpected error, please try again"
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
