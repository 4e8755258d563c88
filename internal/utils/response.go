package utils

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Status    string      `json:"status"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Meta      *Meta       `json:"meta,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type Meta struct {
	Total int64 `json:"total,omitempty"`
	Count int   `json:"count,omitempty"`
}

func respond(c *gin.Context, statusCode int, body APIResponse) {
	body.RequestID = c.GetString(ContextRequestID)
	body.Timestamp = time.Now().UTC()
	c.JSON(statusCode, body)
}

func success(c *gin.Context, statusCode int, message string, data interface{}, meta *Meta) {
	respond(c, statusCode, APIResponse{Status: StatusSuccess, Message: message, Data: data, Meta: meta})
}

func failure(c *gin.Context, statusCode int, apiErr *APIError) {
	respond(c, statusCode, APIResponse{Status: StatusError, Error: apiErr})
}

func SuccessResponse(c *gin.Context, message string, data interface{}) {
	success(c, http.StatusOK, message, data, nil)
}

// SuccessResponseWithMeta is used by list endpoints.
func SuccessResponseWithMeta(c *gin.Context, message string, data interface{}, meta *Meta) {
	success(c, http.StatusOK, message, data, meta)
}

func CreatedResponse(c *gin.Context, message string, data interface{}) {
	success(c, http.StatusCreated, message, data, nil)
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string) {
	failure(c, statusCode, &APIError{Code: code, Message: message})
}

func ErrorResponseWithDetails(c *gin.Context, statusCode int, code, message string, details map[string]string) {
	failure(c, statusCode, &APIError{Code: code, Message: message, Details: details})
}

// ValidationErrorResponse reports field path -> message pairs.
func ValidationErrorResponse(c *gin.Context, fields map[string]string) {
	ErrorResponseWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", ErrValidationFailed, fields)
}

func InternalServerErrorResponse(c *gin.Context) {
	ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", ErrInternalServer)
}

func UnauthorizedResponse(c *gin.Context) {
	ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", ErrUnauthorized)
}

func ForbiddenResponse(c *gin.Context) {
	ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", ErrForbidden)
}

func NotFoundResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", message)
}

func BadRequestResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// HandleServiceError maps service error kinds to HTTP responses. Store and
// unexpected failures are attached to the gin context for the request logger
// and answered with a generic message.
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case IsValidationError(err):
		var ve *ValidationError
		if errors.As(err, &ve) && ve.Field != "" {
			ErrorResponseWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), map[string]string{ve.Field: ve.Message})
			return
		}
		ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case IsBusinessError(err):
		ErrorResponse(c, http.StatusBadRequest, "BUSINESS_RULE_VIOLATION", err.Error())
	case IsNotFoundError(err):
		NotFoundResponse(c, err.Error())
	case IsDatabaseError(err):
		_ = c.Error(err)
		ErrorResponse(c, http.StatusInternalServerError, "DATABASE_ERROR", ErrInternalServer)
	default:
		_ = c.Error(err)
		InternalServerErrorResponse(c)
	}
}
