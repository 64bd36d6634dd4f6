// Package middleware contains the shared Gin middleware for the HTTP layer.
//
// This file provides request correlation, structured access logging, and
// panic recovery. Every request carries an X-Request-ID (propagated or
// generated), gets a request-scoped zerolog.Logger stashed in the Gin
// context, and is access-logged with a level chosen by outcome (info for
// 2xx/3xx, warn for 4xx, error for 5xx and panics).
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"
	userIDKey       = "userID"

	// maxQueryLogBytes caps how much of the raw query string is logged.
	maxQueryLogBytes = 2048
)

// RequestID attaches (or propagates) a correlation identifier per request.
// Install it before the logger so every log line carries the id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Logger emits one structured access log per request and stores a
// request-scoped logger under the "logger" context key for handlers and
// services to enrich.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		query := c.Request.URL.RawQuery
		if len(query) > maxQueryLogBytes {
			query = query[:maxQueryLogBytes]
		}

		rid, _ := c.Get(requestIDKey)
		reqLog := log.With().
			Str("request_id", toString(rid)).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set(loggerKey, reqLog)

		c.Next()

		status := c.Writer.Status()
		evt := reqLog.Info()
		switch {
		case status >= http.StatusInternalServerError || len(c.Errors) > 0:
			evt = reqLog.Error()
		case status >= http.StatusBadRequest:
			evt = reqLog.Warn()
		}
		evt.
			Int("status", status).
			Dur("latency", time.Since(start)).
			Int("bytes", c.Writer.Size()).
			Str("ip", c.ClientIP()).
			Str("query", query).
			Str("user_id", UserID(c)).
			Msg("http request")
	}
}

// Recovery converts panics into JSON 500 responses, logging the stack with
// the request-scoped logger so the correlation id is preserved.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				lg := LoggerFrom(c)
				lg.Error().
					Interface("panic", r).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"request_id": c.GetString(requestIDKey),
					"code":       "internal_error",
					"message":    "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or the global logger when
// none was stashed (e.g. in tests without the Logger middleware).
func LoggerFrom(c *gin.Context) zerolog.Logger {
	if c != nil {
		if v, ok := c.Get(loggerKey); ok {
			if lg, ok := v.(zerolog.Logger); ok {
				return lg
			}
		}
	}
	return log.Logger
}

// UserID returns the authenticated user id stashed in the context by the
// identity middleware, falling back to the X-User-ID header.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(userIDKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		return c.GetHeader("X-User-ID")
	}
	return ""
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}
