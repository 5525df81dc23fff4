package middleware

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/travel-booking/internal/config"
	"github.com/iliyamo/travel-booking/internal/logging"
)

// CacheStatusHeader reports HIT or MISS on cacheable responses.
const CacheStatusHeader = "X-Cache"

// bodyRecorder forwards the response and keeps a copy of at most limit
// bytes of it.
type bodyRecorder struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (r *bodyRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	if !r.overflow {
		if r.buf.Len()+len(b) > r.limit {
			r.overflow = true
			r.buf.Reset()
		} else {
			r.buf.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// ResponseCache serves repeated GET requests from Redis.  Only 200
// responses are stored; the key covers the route and the raw query, so
// every page and filter combination is cached separately.  Redis errors
// fall through to the handler.
func ResponseCache(cfg config.ResponseCacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			ctx := c.Request().Context()
			key := responseKey(cfg.Prefix, c)

			data, err := rdb.Get(ctx, key).Bytes()
			switch {
			case err == nil:
				if status, header, body, ok := decodeResponse(data); ok {
					h := c.Response().Header()
					for k, vals := range header {
						h[k] = vals
					}
					h.Set(CacheStatusHeader, "HIT")
					return c.Blob(status, h.Get(echo.HeaderContentType), body)
				}
			case !errors.Is(err, redis.Nil):
				logging.FromContext(ctx).WithError(err).Warn("response cache read failed")
			}

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set(CacheStatusHeader, "MISS")
			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.overflow {
				return nil
			}
			header := http.Header{}
			if ct := c.Response().Header().Get(echo.HeaderContentType); ct != "" {
				header.Set(echo.HeaderContentType, ct)
			}
			payload, err := encodeResponse(rec.status, header, rec.buf.Bytes())
			if err == nil {
				err = rdb.Set(ctx, key, payload, ttlOrDefault(cfg.TTL)).Err()
			}
			if err != nil {
				logging.FromContext(ctx).WithError(err).Warn("response cache write failed")
			}
			return nil
		}
	}
}

// responseKey hashes the route and raw query under prefix.
func responseKey(prefix string, c echo.Context) string {
	sum := sha1.Sum([]byte(c.Path() + "?" + c.Request().URL.RawQuery))
	return fmt.Sprintf("%s:%x", prefix, sum)
}

// encodeResponse packs a response as [status u32][header len u32][header
// json][body].
func encodeResponse(status int, header http.Header, body []byte) ([]byte, error) {
	hdr, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8, 8+len(hdr)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
	out = append(out, hdr...)
	return append(out, body...), nil
}

func decodeResponse(data []byte) (int, http.Header, []byte, bool) {
	if len(data) < 8 {
		return 0, nil, nil, false
	}
	status := int(binary.BigEndian.Uint32(data[0:4]))
	n := int(binary.BigEndian.Uint32(data[4:8]))
	if n > len(data)-8 {
		return 0, nil, nil, false
	}
	var header http.Header
	if err := json.Unmarshal(data[8:8+n], &header); err != nil {
		return 0, nil, nil, false
	}
	return status, header, data[8+n:], true
}

func ttlOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Minute
	}
	return d
}
