// Package errors provides error handling for the chat backend. It defines
// error categories, error codes, and the constructors used at the session and
// service boundaries to translate failures into structured replies.
package errors

import "fmt"

// ErrorCategory represents the category of an error.
type ErrorCategory string

const (
	// CategoryProtocol represents malformed or unknown frames (recoverable).
	CategoryProtocol ErrorCategory = "protocol"
	// CategoryAuth represents authentication failures (fatal to the session).
	CategoryAuth ErrorCategory = "auth"
	// CategoryValidation represents invalid chat fields (recoverable).
	CategoryValidation ErrorCategory = "validation"
	// CategoryService represents persistence failures.
	CategoryService ErrorCategory = "service"
	// CategoryDelivery represents a failed push to an online receiver
	// (logged only, never surfaced to the sender).
	CategoryDelivery ErrorCategory = "delivery"
)

// ErrorCode represents specific error codes.
type ErrorCode string

const (
	// Protocol errors.
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	ErrCodeUnknownType   ErrorCode = "UNKNOWN_TYPE"

	// Authentication errors.
	ErrCodeInvalidToken     ErrorCode = "INVALID_TOKEN"
	ErrCodeExpiredToken     ErrorCode = "EXPIRED_TOKEN"
	ErrCodeNotAuthenticated ErrorCode = "NOT_AUTHENTICATED"
	ErrCodeAlreadyAuthed    ErrorCode = "ALREADY_AUTHENTICATED"

	// Validation errors.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// Service and delivery errors.
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeDeliveryFailed   ErrorCode = "DELIVERY_FAILED"
)

// ChatError is an application error with category and recoverability
// information. Recoverable errors leave the connection open; fatal errors
// close it.
type ChatError struct {
	Category    ErrorCategory
	Code        ErrorCode
	Message     string
	Recoverable bool
	Cause       error
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ChatError) Unwrap() error {
	return e.Cause
}

// IsFatal returns true if the error requires connection closure.
func (e *ChatError) IsFatal() bool {
	return !e.Recoverable
}

// NewProtocolError creates a protocol error (recoverable, connection stays open).
func NewProtocolError(code ErrorCode, message string, cause error) *ChatError {
	return &ChatError{
		Category:    CategoryProtocol,
		Code:        code,
		Message:     message,
		Recoverable: true,
		Cause:       cause,
	}
}

// NewAuthError creates an authentication error (fatal, connection is closed).
func NewAuthError(code ErrorCode, message string, cause error) *ChatError {
	return &ChatError{
		Category:    CategoryAuth,
		Code:        code,
		Message:     message,
		Recoverable: false,
		Cause:       cause,
	}
}

// NewValidationError creates a validation error (recoverable).
func NewValidationError(code ErrorCode, message string, cause error) *ChatError {
	return &ChatError{
		Category:    CategoryValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
		Cause:       cause,
	}
}

// NewServiceError creates a persistence failure error (recoverable; the send
// fails with no partial state).
func NewServiceError(code ErrorCode, message string, cause error) *ChatError {
	return &ChatError{
		Category:    CategoryService,
		Code:        code,
		Message:     message,
		Recoverable: true,
		Cause:       cause,
	}
}

// NewDeliveryError creates a failed-push error. It is logged and counted on
// the router side, never sent to the sender.
func NewDeliveryError(message string, cause error) *ChatError {
	return &ChatError{
		Category:    CategoryDelivery,
		Code:        ErrCodeDeliveryFailed,
		Message:     message,
		Recoverable: true,
		Cause:       cause,
	}
}

// Common error constructors for convenience.

// ErrInvalidMessageFormat creates an unparseable-frame error.
func ErrInvalidMessageFormat(cause error) *ChatError {
	return NewProtocolError(ErrCodeInvalidFormat, "Invalid message format", cause)
}

// ErrUnknownMessageType creates an unknown-frame-type error.
func ErrUnknownMessageType() *ChatError {
	return NewProtocolError(ErrCodeUnknownType, "Unknown message type", nil)
}

// ErrInvalidToken creates an invalid credential error.
func ErrInvalidToken(cause error) *ChatError {
	return NewAuthError(ErrCodeInvalidToken, "Invalid or expired token", cause)
}

// ErrExpiredToken creates an expired credential error. Clients see the same
// text as for any other bad token; the code distinguishes it in logs.
func ErrExpiredToken(cause error) *ChatError {
	return NewAuthError(ErrCodeExpiredToken, "Invalid or expired token", cause)
}

// ErrNotAuthenticated is returned when a chat frame arrives before auth.
func ErrNotAuthenticated() *ChatError {
	return NewValidationError(ErrCodeNotAuthenticated, "Not authenticated. Please authenticate first.", nil)
}

// ErrAlreadyAuthenticated is returned on a second auth frame.
func ErrAlreadyAuthenticated() *ChatError {
	return NewProtocolError(ErrCodeAlreadyAuthed, "Already authenticated", nil)
}

// ErrMissingToken is returned on an auth frame without a token.
func ErrMissingToken() *ChatError {
	return NewValidationError(ErrCodeMissingField, "Authentication token required", nil)
}

// ErrStoreUnavailable creates a persistence failure error.
func ErrStoreUnavailable(cause error) *ChatError {
	return NewServiceError(ErrCodeStoreUnavailable, "Failed to send message", cause)
}
