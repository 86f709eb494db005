package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// Is matches errors with the same code and message, so wrapped copies of
// the predefined errors below compare equal to them.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrap returns a copy of a predefined error carrying err as its cause.
func Wrap(base *Error, err error) *Error {
	return New(base.Code, base.Message, err)
}

// Common error types
var (
	ErrBadRequest         = New(http.StatusBadRequest, "Bad request", nil)
	ErrNotFound           = New(http.StatusNotFound, "Not found", nil)
	ErrConflict           = New(http.StatusConflict, "Conflict", nil)
	ErrPayloadTooLarge    = New(http.StatusRequestEntityTooLarge, "Payload too large", nil)
	ErrUnprocessable      = New(http.StatusUnprocessableEntity, "Unprocessable entity", nil)
	ErrInternalServer     = New(http.StatusInternalServerError, "Internal server error", nil)
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, "Service unavailable", nil)
)

// Validation error types
var (
	ErrValidation   = New(http.StatusBadRequest, "Validation error", nil)
	ErrInvalidInput = New(http.StatusBadRequest, "Invalid input", nil)
)

// Import error types
var (
	ErrUnsupportedFormat = New(http.StatusBadRequest, "Unsupported file format", nil)
	ErrImportRunning     = New(http.StatusConflict, "An import is already running", nil)
	ErrFileUnreadable    = New(http.StatusUnprocessableEntity, "File could not be parsed", nil)
	ErrStoreUnavailable  = New(http.StatusServiceUnavailable, "Catalog store unavailable", nil)
)

// As returns err as an *Error, falling back to a wrapped internal server error.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(ErrInternalServer, err)
}

// ErrorMiddleware renders the last error attached to the gin context.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		appErr := As(c.Errors.Last().Err)
		c.AbortWithStatusJSON(appErr.Code, gin.H{
			"error":   appErr.Message,
			"details": detail(appErr),
		})
	}
}

func detail(e *Error) string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}
