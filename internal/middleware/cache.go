package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/cinebook/movie-ticket-booking/internal/config"
)

// showListTTLCap bounds how long a show listing may be served from the
// cache. available_seats is derived at query time and goes stale the
// moment a booking lands, so show listings must expire much faster
// than the movie list regardless of the configured TTL.
const showListTTLCap = 5 * time.Second

// cachedResponse is the stored form of a response: enough to replay
// status, headers and body byte-for-byte on a hit.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// responseRecorder tees the response into a buffer while streaming it
// to the client. A body that exceeds the limit is still delivered but
// marked oversized and never cached; serving a truncated catalog
// listing from cache would be worse than not caching it.
type responseRecorder struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	oversized bool
	limit     int
}

func (rr *responseRecorder) WriteHeader(code int) {
	rr.status = code
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	if !rr.oversized {
		if rr.limit > 0 && rr.buf.Len()+len(b) > rr.limit {
			rr.oversized = true
			rr.buf.Reset()
		} else {
			rr.buf.Write(b)
		}
	}
	return rr.ResponseWriter.Write(b)
}

// catalogKey derives the Redis key for a request. The route template
// ("/v1/movies/:id/shows") rather than the raw path keeps the keyspace
// bounded; path params and query land in the hashed tail.
func catalogKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	tail := []string{c.Path()}
	for _, name := range c.ParamNames() {
		tail = append(tail, name, c.Param(name))
	}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		// params only
	case "method_route":
		tail = append(tail, r.Method)
	case "method_route_query":
		tail = append(tail, r.Method, r.URL.RawQuery)
	default: // "route_query"
		tail = append(tail, r.URL.RawQuery)
	}
	sum := sha1.Sum([]byte(strings.Join(tail, "\x00")))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// clientBypassesCache reports whether the request asked for a fresh
// response. Authorization is included so that authenticated callers of
// the public catalog are never served shared cached bodies.
func clientBypassesCache(r *http.Request) bool {
	cc := strings.ToLower(r.Header.Get("Cache-Control"))
	if strings.Contains(cc, "no-cache") || strings.Contains(cc, "no-store") {
		return true
	}
	return r.Header.Get("Authorization") != ""
}

// entryTTL picks the lifetime for a cache entry based on what the
// route serves.
func entryTTL(cfg config.CacheConfig, route string) time.Duration {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if strings.HasSuffix(route, "/shows") && ttl > showListTTLCap {
		ttl = showListTTLCap
	}
	return ttl
}

// NewRedisCache caches successful catalog responses in Redis so that
// movie and show browsing does not hit MySQL on every request. Only
// the configured methods are considered, only 200 responses are
// stored, and show listings get a tightly capped TTL because their
// available seat counts change underneath the cache. The middleware is
// a pass-through when disabled or when no Redis client exists, and it
// must only ever wrap the public catalog group; booking and admin
// writes may not sit behind it.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !cfg.Methods[strings.ToUpper(req.Method)] || clientBypassesCache(req) {
				return next(c)
			}

			key := catalogKey(cfg, c)
			if raw, err := rdb.Get(req.Context(), key).Bytes(); err == nil {
				var entry cachedResponse
				if json.Unmarshal(raw, &entry) == nil && entry.Status != 0 {
					for name, vals := range entry.Header {
						if strings.EqualFold(name, "Content-Length") {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(name, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(entry.Status)
					_, _ = c.Response().Write(entry.Body)
					return nil
				}
			}

			rr := &responseRecorder{
				ResponseWriter: c.Response().Writer,
				status:         http.StatusOK,
				limit:          cfg.MaxBodyBytes,
			}
			c.Response().Writer = rr
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}

			if rr.status == http.StatusOK && !rr.oversized {
				entry := cachedResponse{
					Status: rr.status,
					Header: c.Response().Header().Clone(),
					Body:   rr.buf.Bytes(),
				}
				if raw, err := json.Marshal(entry); err == nil {
					// Detached context: the entry is still worth storing
					// when the client has gone away.
					_ = rdb.SetEx(context.Background(), key, raw, entryTTL(cfg, c.Path())).Err()
				}
			}
			return nil
		}
	}
}
