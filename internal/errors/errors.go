package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Codes carried in the "code" field of every error body.
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeBusy               = "BUSY"
	ErrCodeStoreError         = "STORE_ERROR"
	ErrCodeSnapshotWrite      = "SNAPSHOT_WRITE_FAILED"
)

// APIError is the JSON body of every failed request.
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// RespondWithError aborts the request with status and body.
func RespondWithError(c *gin.Context, status int, code, message string, details interface{}) {
	c.AbortWithStatusJSON(status, &APIError{Code: code, Message: message, Details: details})
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	RespondWithError(c, http.StatusUnauthorized, ErrCodeUnauthorized, orDefault(message, "Authentication required"), nil)
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	RespondWithError(c, http.StatusForbidden, ErrCodeForbidden, orDefault(message, "Access denied"), nil)
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, ErrCodeInvalidInput, orDefault(message, "Invalid request"), nil)
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	RespondWithError(c, http.StatusInternalServerError, ErrCodeInternalError, orDefault(message, "Internal server error"), nil)
}
