package logging

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext_FallsBackToStandardLogger(t *testing.T) {
	entry := FromContext(context.Background())
	require.NotNil(t, entry)
	assert.Equal(t, logrus.StandardLogger(), entry.Logger)
}

func TestRequestLogger_PropagatesRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := logrus.StandardLogger().Out
	logrus.SetOutput(&buf)
	defer logrus.SetOutput(prev)

	e := echo.New()
	e.Use(RequestLogger())
	var seen string
	e.GET("/ping", func(c echo.Context) error {
		seen, _ = FromContext(c.Request().Context()).Data["request_id"].(string)
		return c.String(http.StatusOK, "pong")
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), "req-42")
}

func TestRequestLogger_GeneratesRequestID(t *testing.T) {
	e := echo.New()
	e.Use(RequestLogger())
	e.GET("/ping", func(c echo.Context) error { return echo.ErrNotFound })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}
