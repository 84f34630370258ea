package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitPerIdentity(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	subject := func(token string) string { return token }

	t.Run("limits by token subject", func(t *testing.T) {
		mw := NewRateLimitMiddleware(1, subject)
		handler := mw.Limit(nextHandler)

		req1 := httptest.NewRequest(http.MethodGet, "/api/contacts", nil)
		req1.Header.Set("Authorization", "Bearer deadpool@example.com")
		rec1 := httptest.NewRecorder()
		handler.ServeHTTP(rec1, req1)
		assert.Equal(t, http.StatusOK, rec1.Code)

		// Burst of 1, so the immediate second request is rejected.
		rec2 := httptest.NewRecorder()
		handler.ServeHTTP(rec2, req1)
		assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
		assert.Equal(t, "60", rec2.Header().Get("Retry-After"))
	})

	t.Run("distinct subjects have independent budgets", func(t *testing.T) {
		mw := NewRateLimitMiddleware(1, subject)
		handler := mw.Limit(nextHandler)

		req1 := httptest.NewRequest(http.MethodGet, "/api/contacts", nil)
		req1.Header.Set("Authorization", "Bearer a@example.com")
		rec1 := httptest.NewRecorder()
		handler.ServeHTTP(rec1, req1)
		assert.Equal(t, http.StatusOK, rec1.Code)

		req2 := httptest.NewRequest(http.MethodGet, "/api/contacts", nil)
		req2.Header.Set("Authorization", "Bearer b@example.com")
		rec2 := httptest.NewRecorder()
		handler.ServeHTTP(rec2, req2)
		assert.Equal(t, http.StatusOK, rec2.Code)
	})

	t.Run("falls back to client ip without a token", func(t *testing.T) {
		mw := NewRateLimitMiddleware(1, subject)
		handler := mw.Limit(nextHandler)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", nil)
		req.RemoteAddr = "198.51.100.7:4242"

		rec1 := httptest.NewRecorder()
		handler.ServeHTTP(rec1, req)
		assert.Equal(t, http.StatusOK, rec1.Code)

		rec2 := httptest.NewRecorder()
		handler.ServeHTTP(rec2, req)
		assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
	})

	t.Run("defaults apply for non-positive rpm", func(t *testing.T) {
		mw := NewRateLimitMiddleware(0, nil)
		assert.Equal(t, 10, mw.rpm)
	})
}

func TestExtractClientIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", extractClientIP(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", extractClientIP(req))
}
