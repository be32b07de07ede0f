package api

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/my-todos/auth"
	"github.com/xiaoyuanzhu-com/my-todos/db"
	"github.com/xiaoyuanzhu-com/my-todos/log"
	"github.com/xiaoyuanzhu-com/my-todos/ordering"
)

// =============================================================================
// Standard API Response Types
// =============================================================================
//
// Success bodies are {"data": ...}. Errors are
// {"error": {"code": ..., "message": ..., "details": [...]}} with a matching
// HTTP status.

// ErrorCode defines standard error codes for programmatic handling
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"      // 400 - Malformed request
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR" // 400 - Validation failed
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"     // 401 - Not authenticated
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"        // 404 - Resource not found
	ErrCodeUnprocessable ErrorCode = "UNPROCESSABLE"    // 422 - Semantic error

	// Server errors (5xx)
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"      // 500 - Unexpected error
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE" // 503 - Dependency down
)

// ErrorDetail provides additional context for validation errors
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorResponse is the standard error response structure
type ErrorResponse struct {
	Error struct {
		Code    ErrorCode     `json:"code"`
		Message string        `json:"message"`
		Details []ErrorDetail `json:"details,omitempty"`
	} `json:"error"`
}

// DataResponse wraps a single resource or object response
type DataResponse[T any] struct {
	Data T `json:"data"`
}

// ListResponse wraps a collection of resources
type ListResponse[T any] struct {
	Data []T `json:"data"`
}

// RespondData sends a successful response with a single data object
func RespondData[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, DataResponse[T]{Data: data})
}

// RespondCreated sends a 201 Created response.
// Also sets the Location header if path is provided
func RespondCreated[T any](c *gin.Context, data T, locationPath string) {
	if locationPath != "" {
		c.Header("Location", locationPath)
	}
	c.JSON(http.StatusCreated, DataResponse[T]{Data: data})
}

// RespondList sends a successful response with a list of items
func RespondList[T any](c *gin.Context, data []T) {
	// Ensure empty array instead of null
	if data == nil {
		data = []T{}
	}
	c.JSON(http.StatusOK, ListResponse[T]{Data: data})
}

// RespondNoContent sends a 204 No Content response
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func respondError(c *gin.Context, status int, code ErrorCode, message string, details []ErrorDetail) {
	resp := ErrorResponse{}
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	c.AbortWithStatusJSON(status, resp)
}

// RespondBadRequest sends a 400 Bad Request error
func RespondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, ErrCodeBadRequest, message, nil)
}

// RespondValidationError sends a 400 Bad Request with validation details
func RespondValidationError(c *gin.Context, message string, details []ErrorDetail) {
	respondError(c, http.StatusBadRequest, ErrCodeValidation, message, details)
}

// RespondUnauthorized sends a 401 Unauthorized error
func RespondUnauthorized(c *gin.Context, message string) {
	respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, message, nil)
}

// RespondNotFound sends a 404 Not Found error
func RespondNotFound(c *gin.Context, message string) {
	respondError(c, http.StatusNotFound, ErrCodeNotFound, message, nil)
}

// RespondUnprocessable sends a 422 with details of the rejected input
func RespondUnprocessable(c *gin.Context, message string, details []ErrorDetail) {
	respondError(c, http.StatusUnprocessableEntity, ErrCodeUnprocessable, message, details)
}

// RespondInternalError sends a 500 Internal Server Error
func RespondInternalError(c *gin.Context, message string) {
	respondError(c, http.StatusInternalServerError, ErrCodeInternal, message, nil)
}

// RespondServiceUnavailable sends a 503 Service Unavailable error
func RespondServiceUnavailable(c *gin.Context, message string) {
	respondError(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message, nil)
}

// RespondStoreError maps ordering and db errors onto HTTP responses
func RespondStoreError(c *gin.Context, err error, action string) {
	var pe *ordering.PreconditionError
	switch {
	case errors.As(err, &pe):
		RespondUnprocessable(c, "Failed to "+action, []ErrorDetail{{
			Field:   "positions",
			Message: pe.Error(),
			Code:    pe.Reason,
		}})
	case errors.Is(err, db.ErrTodoNotFound):
		RespondNotFound(c, "Todo not found")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		log.Warn().Err(err).Str("action", action).Msg("request ran out of time")
		RespondServiceUnavailable(c, "Timed out trying to "+action)
	case errors.Is(err, ordering.ErrStoreUnavailable):
		log.Error().Err(err).Str("action", action).Msg("store unavailable")
		RespondServiceUnavailable(c, "Failed to "+action)
	default:
		log.Error().Err(err).Str("action", action).Msg("request failed")
		RespondInternalError(c, "Failed to "+action)
	}
}

// fieldDetails flattens per-field messages into sorted error details
func fieldDetails(errs auth.FieldErrors) []ErrorDetail {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var details []ErrorDetail
	for _, f := range fields {
		for _, msg := range errs[f] {
			details = append(details, ErrorDetail{Field: f, Message: msg})
		}
	}
	return details
}
