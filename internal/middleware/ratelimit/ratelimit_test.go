package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestAllowWindow(t *testing.T) {
	c := &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	l := NewLimiter(Config{RequestsPerMinute: 2, Clock: c.now})

	require.True(t, l.Allow("a"))
	require.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "third request in window must be rejected")
	assert.True(t, l.Allow("b"), "other clients are independent")
	assert.Equal(t, 60, l.RetryAfter("a"))

	c.t = c.t.Add(time.Minute)
	assert.True(t, l.Allow("a"), "window must reset after a minute")
	assert.EqualValues(t, 1, l.Hits())
}

func TestSweep(t *testing.T) {
	c := &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	l := NewLimiter(Config{Clock: c.now, StaleAfter: 10 * time.Minute})
	l.Allow("old")
	c.t = c.t.Add(11 * time.Minute)
	l.Allow("new")

	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.ActiveClients())
	l.Start()
	l.Stop()
	l.Stop()
}

func TestMiddlewareOnlyLimitsListedMethods(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 1})
	h := l.Middleware(func(*http.Request) string { return "k" }, nil, http.MethodPost)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }),
	)

	do := func(method string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/", nil))
		return rec
	}

	assert.Equal(t, http.StatusNoContent, do(http.MethodPost).Code)
	rec := do(http.MethodPost)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	for range 3 {
		assert.Equal(t, http.StatusNoContent, do(http.MethodGet).Code, "GET must not be limited")
	}
}
