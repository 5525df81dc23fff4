package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/travel-booking/internal/config"
	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/utils"
)

const secret = "test-secret"

func newEcho(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.GET("/whoami", func(c echo.Context) error {
		actor, ok := ActorFrom(c)
		if !ok {
			return c.String(http.StatusOK, "anonymous")
		}
		return c.String(http.StatusOK, string(actor.Role)+":"+actor.ID)
	}, mw...)
	return e
}

func get(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, sub string, role model.Role) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, sub, role, time.Hour)
	require.NoError(t, err)
	return tok.Token
}

func TestJWTAuth(t *testing.T) {
	e := newEcho(JWTAuth(secret))

	rec := get(e, token(t, "cust-1", model.RoleCustomer))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CUSTOMER:cust-1", rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, get(e, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(e, "garbage").Code)

	other, err := utils.NewAccessToken("other-secret", "cust-1", model.RoleCustomer, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(e, other.Token).Code)
}

func TestJWTAuth_RejectsExpiredAndUnsigned(t *testing.T) {
	e := newEcho(JWTAuth(secret))

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "cust-1", "role": "CUSTOMER", "exp": time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(e, expired).Code)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "cust-1", "role": "CUSTOMER",
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(e, noExp).Code)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "cust-1", "role": "ADMIN", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(e, none).Code)
}

func TestRequireRole(t *testing.T) {
	e := newEcho(JWTAuth(secret), RequireRole(model.RoleAdmin))

	assert.Equal(t, http.StatusOK, get(e, token(t, "admin-1", model.RoleAdmin)).Code)
	assert.Equal(t, http.StatusForbidden, get(e, token(t, "cust-1", model.RoleCustomer)).Code)

	bare := newEcho(RequireRole(model.RoleCustomer))
	assert.Equal(t, http.StatusForbidden, get(bare, "").Code)
}

func newLimiter(t *testing.T, cfg config.RateLimitConfig) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRateLimiter(cfg, rdb), mr
}

func limitCfg() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Second,
		TTL: time.Minute, KeyStrategy: "ip", Prefix: "rl",
	}
}

func TestRateLimiter_AllowRefills(t *testing.T) {
	l, _ := newLimiter(t, limitCfg())
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	d, err := l.Allow(ctx, "rl:k")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(1), d.Remaining)

	d, err = l.Allow(ctx, "rl:k")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(0), d.Remaining)

	now = now.Add(400 * time.Millisecond)
	d, err = l.Allow(ctx, "rl:k")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 600*time.Millisecond, d.RetryAfter)

	now = now.Add(600 * time.Millisecond)
	d, err = l.Allow(ctx, "rl:k")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRateLimiter_Middleware(t *testing.T) {
	l, mr := newLimiter(t, limitCfg())
	e := newEcho(l.Middleware())

	for i := 0; i < 2; i++ {
		rec := get(e, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}
	rec := get(e, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, "rl:ip:192.0.2.1", keys[0])
	assert.True(t, mr.TTL(keys[0]) > 0)
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	l, mr := newLimiter(t, limitCfg())
	mr.Close()
	e := newEcho(l.Middleware())
	assert.Equal(t, http.StatusOK, get(e, "").Code)

	disabled := NewRateLimiter(config.RateLimitConfig{Enabled: true}, nil)
	assert.Equal(t, http.StatusOK, get(newEcho(disabled.Middleware()), "").Code)
}

func TestRateLimiter_KeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/bookings")
	c.Set(ctxUserID, "cust-1")

	cases := map[string]string{
		"ip":         "rl:ip:192.0.2.1",
		"user":       "rl:user:cust-1",
		"user_route": "rl:user:cust-1:route:POST /v1/bookings",
		"bogus":      "rl:ip:192.0.2.1:user:cust-1:route:POST /v1/bookings",
	}
	for strategy, want := range cases {
		cfg := limitCfg()
		cfg.KeyStrategy = strategy
		assert.Equal(t, want, NewRateLimiter(cfg, nil).Key(c), strategy)
	}
}

func TestResponseCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	calls := 0
	e := echo.New()
	e.GET("/v1/products", func(c echo.Context) error {
		calls++
		if c.QueryParam("fail") != "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad"})
		}
		return c.JSON(http.StatusOK, echo.Map{"page": c.QueryParam("page"), "calls": calls})
	}, ResponseCache(config.ResponseCacheConfig{Enabled: true, TTL: time.Minute, Prefix: "resp", MaxBodyBytes: 1024}, rdb))

	fetch := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	first := fetch("/v1/products?page=1")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get(CacheStatusHeader))

	again := fetch("/v1/products?page=1")
	assert.Equal(t, "HIT", again.Header().Get(CacheStatusHeader))
	assert.JSONEq(t, first.Body.String(), again.Body.String())
	assert.Equal(t, echo.MIMEApplicationJSON, again.Header().Get(echo.HeaderContentType))
	assert.Equal(t, 1, calls)

	assert.Equal(t, "MISS", fetch("/v1/products?page=2").Header().Get(CacheStatusHeader))
	assert.Equal(t, 2, calls)

	fetch("/v1/products?fail=1")
	assert.Equal(t, "MISS", fetch("/v1/products?fail=1").Header().Get(CacheStatusHeader))
	assert.Equal(t, 4, calls)

	mr.Close()
	rec := fetch("/v1/products?page=1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, calls)
}

func TestResponseCache_DecodeRejectsTruncated(t *testing.T) {
	payload, err := encodeResponse(http.StatusOK, http.Header{"Content-Type": {"application/json"}}, []byte(`{}`))
	require.NoError(t, err)
	status, header, body, ok := decodeResponse(payload)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", header.Get("Content-Type"))
	assert.Equal(t, `{}`, string(body))

	_, _, _, ok = decodeResponse(payload[:10])
	assert.False(t, ok)
}
