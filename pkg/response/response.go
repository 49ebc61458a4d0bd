package response

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Body is the JSON envelope shared by every endpoint.
// Success payloads carry token/user/data; failures carry errors (field map),
// error (single detail) and, in development only, a stack trace.
type Body struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
	User    any    `json:"user,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
	Error   any    `json:"error,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

var includeStack bool

// Init toggles stack traces on 5xx responses. Called once at startup;
// read-only afterwards.
func Init(env string) {
	includeStack = env == "development"
}

// Success writes a success envelope with an optional data payload.
func Success(c *gin.Context, status int, message string, data any) {
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, Body{Success: true, Message: message, Data: data})
}

// Auth writes the token + user summary shape returned by register and login.
func Auth(c *gin.Context, status int, token string, user any) {
	c.JSON(status, Body{Success: true, Token: token, User: user})
}

// User writes a success envelope wrapping a single user payload.
func User(c *gin.Context, status int, user any) {
	c.JSON(status, Body{Success: true, User: user})
}

// Error writes a failure envelope. errs may be a field->message map
// (validation) or any single error detail.
func Error(c *gin.Context, status int, message string, errs any) {
	if status == 0 {
		status = http.StatusBadRequest
	}
	b := Body{Success: false, Message: message}
	switch errs.(type) {
	case nil:
	case map[string]string:
		b.Errors = errs
	default:
		b.Error = errs
	}
	if includeStack && status >= http.StatusInternalServerError {
		b.Stack = string(debug.Stack())
	}
	c.JSON(status, b)
}

// AbortError writes a failure envelope and stops the handler chain.
func AbortError(c *gin.Context, status int, message string, errs any) {
	Error(c, status, message, errs)
	c.Abort()
}
