package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/travel-booking/internal/handler"
	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/repository"
	"github.com/iliyamo/travel-booking/internal/service"
	"github.com/iliyamo/travel-booking/internal/utils"
)

const secret = "router-secret"

func newServer() *echo.Echo {
	store := repository.NewMemoryStore(repository.SampleCatalog()...)
	bookings := service.NewBookingService(store, store)

	e := echo.New()
	e.Validator = handler.NewRequestValidator()
	RegisterHealth(e, handler.NewHealthHandler(nil))
	RegisterPublic(e, handler.NewCatalogHandler(service.NewCatalogService(store)))
	RegisterCustomer(e, handler.NewCustomerHandler(bookings), secret)
	RegisterAdmin(e, handler.NewAdminHandler(bookings), secret)
	return e
}

func call(t *testing.T, e *echo.Echo, method, path string, role model.Role) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if role != "" {
		tok, err := utils.NewAccessToken(secret, "user-1", role, time.Minute)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestRoutes_Audiences(t *testing.T) {
	e := newServer()

	assert.Equal(t, http.StatusOK, call(t, e, http.MethodGet, "/healthz", ""))
	assert.Equal(t, http.StatusOK, call(t, e, http.MethodGet, "/readyz", ""))
	assert.Equal(t, http.StatusOK, call(t, e, http.MethodGet, "/v1/products", ""))
	assert.Equal(t, http.StatusOK, call(t, e, http.MethodGet, "/v1/products/TOUR-1", ""))

	assert.Equal(t, http.StatusUnauthorized, call(t, e, http.MethodGet, "/v1/my-bookings", ""))
	assert.Equal(t, http.StatusForbidden, call(t, e, http.MethodGet, "/v1/my-bookings", model.RoleAdmin))
	assert.Equal(t, http.StatusOK, call(t, e, http.MethodGet, "/v1/my-bookings", model.RoleCustomer))

	assert.Equal(t, http.StatusForbidden, call(t, e, http.MethodGet, "/v1/admin/bookings", model.RoleCustomer))
	assert.Equal(t, http.StatusOK, call(t, e, http.MethodGet, "/v1/admin/bookings", model.RoleAdmin))
	assert.Equal(t, http.StatusOK, call(t, e, http.MethodGet, "/v1/admin/bookings/summary", model.RoleAdmin))
	assert.Equal(t, http.StatusNotFound, call(t, e, http.MethodGet, "/v1/admin/bookings/missing", model.RoleAdmin))
}

func TestRoutes_AllRegistered(t *testing.T) {
	e := newServer()
	got := map[string]bool{}
	for _, r := range e.Routes() {
		got[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /v1/products",
		"GET /v1/products/:id",
		"POST /v1/bookings",
		"GET /v1/my-bookings",
		"GET /v1/bookings/:id",
		"POST /v1/bookings/:id/cancel",
		"GET /v1/bookings/:id/payment",
		"POST /v1/bookings/:id/payment/complete",
		"GET /v1/admin/bookings",
		"GET /v1/admin/bookings/summary",
		"GET /v1/admin/bookings/:id",
		"POST /v1/admin/bookings/:id/approve",
		"POST /v1/admin/bookings/:id/confirm-cancellation",
		"POST /v1/admin/bookings/:id/complete-travel",
	} {
		assert.True(t, got[want], want)
	}
}
