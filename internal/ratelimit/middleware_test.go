package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLimiter struct {
	limit int
	hits  map[string]int
	err   error
}

func (c *countingLimiter) Allow(_ context.Context, key string) (Result, error) {
	if c.err != nil {
		return Result{}, c.err
	}
	if c.hits == nil {
		c.hits = map[string]int{}
	}
	if c.hits[key] >= c.limit {
		return Result{Allowed: false, ResetAt: time.Now().Add(time.Minute), RetryAfter: 30 * time.Second}, nil
	}
	c.hits[key]++
	return Result{Allowed: true, Remaining: c.limit - c.hits[key], ResetAt: time.Now().Add(time.Minute)}, nil
}

func (c *countingLimiter) Limit() int   { return c.limit }
func (c *countingLimiter) Name() string { return "test" }

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	h := Middleware(&countingLimiter{limit: 2}, nil)(okHandler())

	for i := 0; i < 2; i++ {
		rec := doRequest(h, "10.0.0.1:5000")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := doRequest(h, "10.0.0.1:5001")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"too many requests"}`, rec.Body.String())

	rec = doRequest(h, "10.0.0.2:5000")
	assert.Equal(t, http.StatusOK, rec.Code, "other clients keep their own budget")
}

func TestMiddlewareFailsOpen(t *testing.T) {
	h := Middleware(&countingLimiter{limit: 1, err: errors.New("connection refused")}, nil)(okHandler())
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1:5000").Code)
	}
}

func TestMiddlewareDisabledWithoutLimiter(t *testing.T) {
	h := Middleware(nil, nil)(okHandler())
	rec := doRequest(h, "10.0.0.1:5000")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.10:4321"
	assert.Equal(t, "192.168.1.10", clientIP(req))

	req.RemoteAddr = "192.168.1.10"
	assert.Equal(t, "192.168.1.10", clientIP(req))
}
