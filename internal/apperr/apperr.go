// Package apperr maps errors onto HTTP responses.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"

	"github.com/ppiankov/veritas/internal/model"
)

// Category defines the type of error for proper handling
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryNotFound   Category = "not_found"
	CategoryTimeout    Category = "timeout"
	CategoryInternal   Category = "internal"
)

// AppError wraps an errbuilder error with its HTTP mapping.
type AppError struct {
	*errbuilder.ErrBuilder
	Category   Category
	HTTPStatus int
	StackTrace string
}

// Error returns the client-facing message.
func (e *AppError) Error() string {
	return e.ErrBuilder.Msg
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

// NewAppError creates an AppError from errbuilder with additional context
func NewAppError(builder *errbuilder.ErrBuilder, category Category, httpStatus int) *AppError {
	return &AppError{
		ErrBuilder: builder,
		Category:   category,
		HTTPStatus: httpStatus,
	}
}

// NewValidationError creates a client error. A non-nil cause is kept for logging.
func NewValidationError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message)
	if cause != nil {
		builder = builder.WithCause(cause)
	}
	return NewAppError(builder, CategoryValidation, http.StatusBadRequest)
}

// NewRequestError reports a malformed request body or query (422).
func NewRequestError(message string, cause error) *AppError {
	appErr := NewValidationError(message, cause)
	appErr.HTTPStatus = http.StatusUnprocessableEntity
	return appErr
}

// NewNotFoundError creates a 404 error.
func NewNotFoundError(message string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(message)
	return NewAppError(builder, CategoryNotFound, http.StatusNotFound)
}

// NewTimeoutError creates a timeout error using errbuilder
func NewTimeoutError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeDeadlineExceeded).
		WithMsg(message)
	if cause != nil {
		builder = builder.WithCause(cause)
	}
	return NewAppError(builder, CategoryTimeout, http.StatusGatewayTimeout)
}

// NewInternalError creates an internal error. The cause is logged but never
// sent to the client.
func NewInternalError(message string, cause error) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("internal_details", errors.New(message))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("Internal server error").
		WithDetails(errbuilder.NewErrDetails(errorMap))
	if cause != nil {
		builder = builder.WithCause(cause)
	}

	appErr := NewAppError(builder, CategoryInternal, http.StatusInternalServerError)
	if gin.Mode() == gin.DebugMode {
		appErr.StackTrace = captureStackTrace()
	}
	return appErr
}

// ToAppError converts any error to an AppError
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, model.ErrUnsupportedMediaType),
		errors.Is(err, model.ErrInvalidRequest),
		errors.Is(err, model.ErrBatchTooLarge):
		return NewValidationError(err.Error(), err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError("Request deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return NewTimeoutError("Request cancelled", err)
	}

	return NewInternalError("An unexpected error occurred", err)
}

// Envelope is the JSON error body.
type Envelope struct {
	Error Body `json:"error"`
}

// Body describes one error.
type Body struct {
	Message    string `json:"message"`
	Type       string `json:"type"`
	StatusCode int    `json:"status_code"`
}

// Envelope renders e for the client.
func (e *AppError) Envelope() Envelope {
	return Envelope{Error: Body{
		Message:    e.ErrBuilder.Msg,
		Type:       string(e.Category) + "_error",
		StatusCode: e.HTTPStatus,
	}}
}

// ErrorHandler is a Gin middleware that renders the last handler error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := ToAppError(c.Errors.Last().Err)
		LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr.Envelope())
	}
}

// RecoveryHandler converts panics into internal errors.
func RecoveryHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		appErr := NewInternalError(
			fmt.Sprintf("Panic recovered: %v", recovered),
			fmt.Errorf("%v", recovered),
		)
		appErr.StackTrace = captureStackTrace()

		LogError(c, appErr)
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.Envelope())
	})
}

// LogError logs an error with appropriate level and context
func LogError(c *gin.Context, err *AppError) {
	logEntry := slog.With(
		"error_category", err.Category,
		"error_code", err.ErrBuilder.ErrCode(),
		"http_status", err.HTTPStatus,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetString(RequestIDKey),
	)

	cause := err.ErrBuilder.Unwrap()
	switch err.Category {
	case CategoryValidation, CategoryNotFound:
		logEntry.Warn(err.ErrBuilder.Msg)
	case CategoryTimeout:
		logEntry.Info(err.ErrBuilder.Msg, "cause", cause)
	default:
		logEntry.Error(err.ErrBuilder.Msg, "cause", cause)
	}

	if err.StackTrace != "" && gin.Mode() == gin.DebugMode {
		logEntry.Debug("stack_trace", "trace", err.StackTrace)
	}
}

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
