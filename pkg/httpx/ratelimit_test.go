package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitByIPBlocksAfterBurst(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
	h := Chain(okHandler(), RateLimitByIP(cfg))

	for i := range 2 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimitKeysAreIndependent(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
	h := Chain(okHandler(), RateLimitByIP(cfg))

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	h.ServeHTTP(first, req)
	require.Equal(t, http.StatusOK, first.Code)

	// A different client IP has its own bucket.
	second := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	h.ServeHTTP(second, req)
	require.Equal(t, http.StatusOK, second.Code)
}

func TestIPKeyExtractorHeaders(t *testing.T) {
	t.Run("x-forwarded-for wins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		req.RemoteAddr = "10.0.0.1:1234"
		require.Equal(t, "203.0.113.9", IPKeyExtractor(req))
	})

	t.Run("x-real-ip next", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-IP", "203.0.113.10")
		req.RemoteAddr = "10.0.0.1:1234"
		require.Equal(t, "203.0.113.10", IPKeyExtractor(req))
	})

	t.Run("remote addr fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.7:4321"
		require.Equal(t, "10.0.0.7", IPKeyExtractor(req))
	})
}

func TestCompositeKeyExtractorSkipsEmptyParts(t *testing.T) {
	ex := CompositeKeyExtractor(":",
		PathValueKeyExtractor("accountID"), // not a route param here
		IPKeyExtractor,
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.3:1111"
	require.Equal(t, "10.0.0.3", ex(req))
}
