package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinebook/movie-ticket-booking/internal/config"
)

func cacheCtx(path string, names, values []string, query string) echo.Context {
	e := echo.New()
	target := path
	if query != "" {
		target += "?" + query
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath(path)
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return c
}

func TestCatalogKeyDistinguishesParamsAndQuery(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}

	shows1 := catalogKey(cfg, cacheCtx("/v1/movies/:id/shows", []string{"id"}, []string{"1"}, ""))
	shows2 := catalogKey(cfg, cacheCtx("/v1/movies/:id/shows", []string{"id"}, []string{"2"}, ""))
	assert.NotEqual(t, shows1, shows2, "different movies must not share a cache entry")

	again := catalogKey(cfg, cacheCtx("/v1/movies/:id/shows", []string{"id"}, []string{"1"}, ""))
	assert.Equal(t, shows1, again, "same request must produce the same key")

	withQuery := catalogKey(cfg, cacheCtx("/v1/movies/:id/shows", []string{"id"}, []string{"1"}, "page=2"))
	assert.NotEqual(t, shows1, withQuery)
}

func TestEntryTTLCapsShowListings(t *testing.T) {
	cfg := config.CacheConfig{TTL: time.Minute}
	assert.Equal(t, time.Minute, entryTTL(cfg, "/v1/movies"))
	// show listings carry derived available_seats and must expire fast
	assert.Equal(t, showListTTLCap, entryTTL(cfg, "/v1/movies/:id/shows"))

	short := config.CacheConfig{TTL: 2 * time.Second}
	assert.Equal(t, 2*time.Second, entryTTL(short, "/v1/movies/:id/shows"))
}

func TestClientBypassesCache(t *testing.T) {
	plain := httptest.NewRequest(http.MethodGet, "/v1/movies", nil)
	assert.False(t, clientBypassesCache(plain))

	noCache := httptest.NewRequest(http.MethodGet, "/v1/movies", nil)
	noCache.Header.Set("Cache-Control", "no-cache")
	assert.True(t, clientBypassesCache(noCache))

	authed := httptest.NewRequest(http.MethodGet, "/v1/movies", nil)
	authed.Header.Set("Authorization", "Bearer token")
	assert.True(t, clientBypassesCache(authed))
}

func TestResponseRecorderSkipsOversizedBodies(t *testing.T) {
	rec := httptest.NewRecorder()
	rr := &responseRecorder{ResponseWriter: rec, status: http.StatusOK, limit: 8}

	_, err := rr.Write([]byte("12345"))
	require.NoError(t, err)
	assert.False(t, rr.oversized)

	_, err = rr.Write([]byte("67890"))
	require.NoError(t, err)
	assert.True(t, rr.oversized)
	assert.Zero(t, rr.buf.Len(), "oversized bodies must not be retained for caching")
	// the client still received everything
	assert.Equal(t, "1234567890", rec.Body.String())
}

func TestNewRedisCacheWithoutRedisIsPassThrough(t *testing.T) {
	mw := NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/movies", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	h := mw(func(c echo.Context) error {
		called = true
		return c.String(http.StatusOK, "ok")
	})
	require.NoError(t, h(c))
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}
