// Package logging configures logrus for the service and carries a
// request-scoped logger through context.Context.
package logging

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v3"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-ID"

type ctxKey struct{}

// Init sets the global logrus formatter and level.  Development uses the
// text formatter, every other environment logs JSON.  Unknown levels fall
// back to info.
func Init(env, level string) {
	if strings.EqualFold(env, "dev") || strings.EqualFold(env, "development") {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

// ToContext returns a copy of ctx carrying entry.
func ToContext(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, entry)
}

// FromContext returns the logger stored in ctx or the standard logger.
func FromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if e, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok && e != nil {
			return e
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// RequestLogger tags each request with a request id, stores a logger in the
// request context and writes one access line when the handler returns.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			reqID := req.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = shortuuid.New()
			}
			c.Response().Header().Set(RequestIDHeader, reqID)

			entry := logrus.WithFields(logrus.Fields{
				"request_id": reqID,
				"method":     req.Method,
				"path":       req.URL.Path,
			})
			c.SetRequest(req.WithContext(ToContext(req.Context(), entry)))

			start := time.Now()
			err := next(c)
			if err != nil {
				// let echo write the error response so the status is known
				c.Error(err)
			}
			fields := logrus.Fields{
				"status":     c.Response().Status,
				"latency_ms": time.Since(start).Milliseconds(),
				"route":      c.Path(),
			}
			switch {
			case c.Response().Status >= 500:
				entry.WithFields(fields).WithError(err).Error("request failed")
			default:
				entry.WithFields(fields).Info("request handled")
			}
			return nil
		}
	}
}
