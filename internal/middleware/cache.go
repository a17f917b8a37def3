package middleware

import (
	"bytes"
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/admission-seat-allocation/internal/config"
)

// SnapshotCache caches the JSON bodies of allocation read endpoints in
// Redis. Cache keys embed a generation counter that every successful
// mutating operation bumps, so a snapshot served from cache is never older
// than the last withdrawal or capacity change; the TTL is only a backstop
// against unbounded growth. A nil receiver or nil Redis client disables
// caching entirely.
type SnapshotCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
}

// NewSnapshotCache builds a SnapshotCache; returns nil when caching is
// disabled or Redis is unavailable, which callers treat as a no-op cache.
func NewSnapshotCache(cfg config.CacheConfig, rdb *redis.Client) *SnapshotCache {
	if !cfg.Enabled || rdb == nil {
		return nil
	}
	return &SnapshotCache{cfg: cfg, rdb: rdb}
}

// Bump invalidates all cached snapshots by advancing the generation
// counter. Failures are ignored: a stale generation read also fails toward
// a cache miss on the next request.
func (s *SnapshotCache) Bump(ctx context.Context) {
	if s == nil {
		return
	}
	_ = s.rdb.Incr(ctx, s.cfg.Prefix+":gen").Err()
}

// Middleware serves GET responses from the cache when the current
// generation has an entry for the route, and stores 200 responses on miss.
func (s *SnapshotCache) Middleware() echo.MiddlewareFunc {
	if s == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			ctx := c.Request().Context()
			key := s.key(ctx, c)

			if body, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
				c.Response().Header().Set("X-Cache", "HIT")
				return c.JSONBlob(http.StatusOK, body)
			}

			cw := &bodyCapture{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status == http.StatusOK && cw.buf.Len() > 0 &&
				(s.cfg.MaxBodyBytes <= 0 || cw.buf.Len() <= s.cfg.MaxBodyBytes) {
				_ = s.rdb.SetEx(context.Background(), key, cw.buf.Bytes(), s.cfg.TTL).Err()
			}
			return nil
		}
	}
}

// key combines the generation counter with route and query so distinct
// reads cache independently within one generation.
func (s *SnapshotCache) key(ctx context.Context, c echo.Context) string {
	gen, err := s.rdb.Get(ctx, s.cfg.Prefix+":gen").Int64()
	if err != nil {
		gen = 0
	}
	r := c.Request()
	// Concrete URL path, not the route pattern: parameterized reads must not
	// share an entry.
	return s.cfg.Prefix + ":" + strconv.FormatInt(gen, 10) + ":" + r.URL.Path + "?" + r.URL.RawQuery
}

// bodyCapture duplicates the response body while forwarding it to the
// client.
type bodyCapture struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (b *bodyCapture) WriteHeader(code int) {
	b.status = code
	b.ResponseWriter.WriteHeader(code)
}

func (b *bodyCapture) Write(p []byte) (int, error) {
	b.buf.Write(p)
	return b.ResponseWriter.Write(p)
}
