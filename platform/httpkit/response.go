// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"errors"
	"net/http"
	"time"

	"marketplace_search_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// Envelope is the standard response format. Every response, successful or
// not, is written as one.
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Error     string      `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"requestId,omitempty"`
}

func newEnvelope(c *gin.Context, success bool, data interface{}) Envelope {
	return Envelope{
		Success:   success,
		Data:      data,
		Timestamp: time.Now().UTC(),
		RequestID: GetRequestID(c),
	}
}

// JSON sends a successful envelope with the given status code.
func JSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, newEnvelope(c, true, data))
}

// OK sends a 200 OK envelope with the given data.
func OK(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data)
}

// OKMessage sends a 200 OK envelope with data and a message.
func OKMessage(c *gin.Context, data interface{}, message string) {
	env := newEnvelope(c, true, data)
	env.Message = message
	c.JSON(http.StatusOK, env)
}

// Error sends a failed envelope. data is written as-is, so pass nil for an
// explicit "data": null.
func Error(c *gin.Context, status int, code, message string, data interface{}) {
	env := newEnvelope(c, false, data)
	env.Error = code
	env.Message = message
	c.JSON(status, env)
}

// Abort is Error for middleware: it stops the handler chain.
func Abort(c *gin.Context, status int, code, message string) {
	env := newEnvelope(c, false, nil)
	env.Error = code
	env.Message = message
	c.AbortWithStatusJSON(status, env)
}

// HandleError maps domain errors to HTTP responses.
// If the error is a typed *apperr.Error, it uses the error's Kind to determine
// the HTTP status code. Otherwise, it answers 500.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		env := newEnvelope(c, false, nil)
		env.Error = domainErr.Kind.String()
		env.Message = domainErr.Message
		env.Details = domainErr.Details
		c.JSON(domainErr.HTTPStatus(), env)
		return true
	}

	Error(c, http.StatusInternalServerError, apperr.KindInternal.String(), err.Error(), nil)
	return true
}
