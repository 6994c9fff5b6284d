package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/catalog-import/common/logger"
	"go.uber.org/zap"
)

// Error is an HTTP-facing error: Code is the response status, Message the
// public text. Err is kept for logs and errors.Is/As only.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same code and message, so wrapped copies
// of a sentinel still compare equal to it.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && t.Message == e.Message
}

// Wrap returns a copy of e carrying err as its cause.
func (e *Error) Wrap(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Err: err}
}

func New(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

var (
	ErrInternalServer      = New(http.StatusInternalServerError, "Internal server error", nil)
	ErrShopifyNotConnected = New(http.StatusPreconditionFailed, "No Shopify connection found", nil)
	ErrShopifyUnavailable  = New(http.StatusBadGateway, "Shopify request failed", nil)
	ErrJobNotFound         = New(http.StatusNotFound, "Job not found", nil)
	ErrQueueUnavailable    = New(http.StatusServiceUnavailable, "Import queue unavailable", nil)
)

// ErrorMiddleware renders the last error attached with c.Error. Anything that
// is not an *Error becomes a 500 and its cause is only logged.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		var appErr *Error
		if !errors.As(err, &appErr) {
			appErr = ErrInternalServer.Wrap(err)
		}
		if appErr.Code >= http.StatusInternalServerError {
			logger.FromContext(c.Request.Context()).Error("request failed",
				zap.String("path", c.FullPath()),
				zap.Int("status", appErr.Code),
				zap.Error(err),
			)
		}

		body := gin.H{"error": appErr.Message, "code": appErr.Code}
		if rid := c.GetString(logger.RequestIDKey); rid != "" {
			body["request_id"] = rid
		}
		c.AbortWithStatusJSON(appErr.Code, body)
	}
}
