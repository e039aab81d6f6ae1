// Package apierror provides standardized error response structures for the API.
// Middleware-level failures (panics, rate limiting, health) go through this package
// so clients never see internal details (stack traces, DB errors, etc.).
//
// The /usuarios and /login routes answer errors as plain text instead, because the
// dashboard reads those bodies verbatim and shows them to the operator.
package apierror

import "github.com/gin-gonic/gin"

// APIError is the canonical error envelope for JSON 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}

// Text aborts the request with a plain-text error body.
func Text(c *gin.Context, status int, msg string) {
	c.Abort()
	c.String(status, msg)
}
