// Package httperrors provides generic error responses for HTTP endpoints.
// It ensures that internal implementation details are not leaked to clients.
package httperrors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the error body for HTTP API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Generic error messages that don't expose internal details
const (
	MsgUnauthorized      = "Authentication required"
	MsgInvalidToken      = "Invalid or expired authentication token"
	MsgInvalidAuthHeader = "Invalid authorization header"
	MsgValidationError   = "Validation error"
	MsgUserNotFound      = "The specified user does not exist"
	MsgInternalError     = "An internal error occurred"
	MsgRateLimited       = "Too many requests, please try again later"
)

// RespondUnauthorized sends a 401 response with a generic message.
func RespondUnauthorized(c *gin.Context, message string) {
	if message == "" {
		message = MsgUnauthorized
	}
	c.JSON(http.StatusUnauthorized, ErrorResponse{
		Error:   "Unauthorized",
		Message: message,
	})
}

// RespondInvalidToken sends a 401 response for invalid tokens.
func RespondInvalidToken(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, ErrorResponse{
		Error:   "Unauthorized",
		Message: MsgInvalidToken,
	})
}

// RespondValidationError sends a 400 response.
func RespondValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   MsgValidationError,
		Message: message,
	})
}

// RespondUserNotFound sends a 404 response for an unknown user.
func RespondUserNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{
		Error:   "User not found",
		Message: MsgUserNotFound,
	})
}

// RespondInternalError sends a 500 response with a generic message.
func RespondInternalError(c *gin.Context, what string) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   what,
		Message: MsgInternalError,
	})
}

// RespondTooManyRequests sends a 429 response.
func RespondTooManyRequests(c *gin.Context) {
	c.JSON(http.StatusTooManyRequests, ErrorResponse{
		Error:   "Rate limit exceeded",
		Message: MsgRateLimited,
	})
}
