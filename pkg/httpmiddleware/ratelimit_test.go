package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doGet(t *testing.T, h http.Handler, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_BurstWithinCapacity(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 5, Window: time.Minute})(okHandler())

	for i := range 5 {
		w := doGet(t, h, "192.168.1.1:12345", nil)
		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimit_ThrottlesWhenEmpty(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 2, Window: time.Hour})(okHandler())

	for range 2 {
		w := doGet(t, h, "10.0.0.1:9999", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doGet(t, h, "10.0.0.1:9999", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, float64(429), body["code"])
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestRateLimit_KeysAreIndependent(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 1, Window: time.Hour})(okHandler())

	assert.Equal(t, http.StatusOK, doGet(t, h, "10.0.0.1:1234", nil).Code)
	assert.Equal(t, http.StatusOK, doGet(t, h, "10.0.0.2:1234", nil).Code)

	// Port changes do not change the key.
	assert.Equal(t, http.StatusTooManyRequests, doGet(t, h, "10.0.0.1:5678", nil).Code)
}

func TestRateLimit_TokensRefillOverTime(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 2, Window: 2 * time.Second})
	base := time.Now()
	l.now = func() time.Time { return base }

	_, _, ok := l.take("k")
	require.True(t, ok)
	_, _, ok = l.take("k")
	require.True(t, ok)
	_, _, ok = l.take("k")
	require.False(t, ok)

	// One second refills one token at 1 token/s.
	base = base.Add(time.Second)
	_, _, ok = l.take("k")
	assert.True(t, ok)
	_, _, ok = l.take("k")
	assert.False(t, ok)
}

func TestRateLimit_SweepDropsFullBuckets(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 1, Window: time.Second})
	base := time.Now()
	l.now = func() time.Time { return base }

	_, _, ok := l.take("gone")
	require.True(t, ok)
	require.Len(t, l.buckets, 1)

	base = base.Add(2 * time.Second)
	l.sweep()
	assert.Empty(t, l.buckets)
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		Max:    1,
		Window: time.Hour,
		KeyFunc: func(r *http.Request) string {
			return r.Header.Get("X-API-Key")
		},
	})(okHandler())

	assert.Equal(t, http.StatusOK, doGet(t, h, "1.1.1.1:1", map[string]string{"X-API-Key": "key-a"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, doGet(t, h, "2.2.2.2:2", map[string]string{"X-API-Key": "key-a"}).Code)
	assert.Equal(t, http.StatusOK, doGet(t, h, "1.1.1.1:1", map[string]string{"X-API-Key": "key-b"}).Code)
}

func TestRateLimit_ForwardedForTakesPrecedence(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 1, Window: time.Hour})(okHandler())

	xff := map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}
	assert.Equal(t, http.StatusOK, doGet(t, h, "192.168.1.1:4444", xff).Code)

	// Same forwarded client behind a different hop is still one key.
	assert.Equal(t, http.StatusTooManyRequests, doGet(t, h, "192.168.1.2:5555", xff).Code)
}
