package logger

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerRequestID = "X-Request-Id"
	keyLogger       = "logger"
	keyRequestID    = "request_id"
)

// Middleware returns a Gin middleware that injects request_id (and call_sid for
// provider callbacks) and logs request summaries.
func Middleware(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid := c.GetHeader(headerRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(headerRequestID, rid)
		c.Set(keyRequestID, rid)

		reqLogger := l.With("request_id", rid)
		if sid := callSid(c); sid != "" {
			reqLogger = reqLogger.With("call_sid", sid)
		}
		c.Set(keyLogger, reqLogger)
		c.Request = c.Request.WithContext(With(c.Request.Context(), reqLogger))

		c.Next()

		dur := time.Since(start)
		status := c.Writer.Status()
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		attrs := []any{
			"method", method,
			"path", path,
			"status", status,
			"duration_ms", float64(dur.Milliseconds()),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
			reqLogger.Error("request", attrs...)
			return
		}
		reqLogger.Info("request", attrs...)
	}
}

// callSid reads CallSid from form-encoded provider callbacks only.
// The parsed form is cached on the request, so handlers can still read it.
func callSid(c *gin.Context) string {
	if c.Request.Method != "POST" {
		return ""
	}
	if !strings.HasPrefix(c.ContentType(), "application/x-www-form-urlencoded") {
		return ""
	}
	return strings.TrimSpace(c.Request.PostFormValue("CallSid"))
}

// FromGin pulls the request-scoped logger from Gin context.
func FromGin(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(keyLogger); ok {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}

// RequestID returns the id assigned by Middleware, or "".
func RequestID(c *gin.Context) string {
	return c.GetString(keyRequestID)
}
