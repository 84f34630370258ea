package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SubjectFunc maps a bearer token to a rate-limit key, typically the token's
// subject email. Returning "" falls back to the client IP, which covers
// unauthenticated endpoints like signup.
type SubjectFunc func(token string) string

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware throttles selected routes per identity. Authenticated
// callers are keyed by the email inside their access token rather than their
// address, so one user behind a proxy cannot starve the rest.
type RateLimitMiddleware struct {
	rpm     int
	subject SubjectFunc
	mu      sync.Mutex
	keys    map[string]*keyedLimiter
}

func NewRateLimitMiddleware(rpm int, subject SubjectFunc) *RateLimitMiddleware {
	if rpm <= 0 {
		rpm = 10
	}

	return &RateLimitMiddleware{
		rpm:     rpm,
		subject: subject,
		keys:    map[string]*keyedLimiter{},
	}
}

func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := m.getLimiter(m.keyFor(r))

		if !limiter.Allow() {
			w.Header().Set("Retry-After", "60")
			writeDetail(w, http.StatusTooManyRequests, "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) keyFor(r *http.Request) string {
	if token, ok := BearerToken(r); ok && m.subject != nil {
		if email := m.subject(token); email != "" {
			return "email:" + email
		}
	}
	return "ip:" + extractClientIP(r)
}

func (m *RateLimitMiddleware) getLimiter(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, exists := m.keys[key]; exists {
		entry.lastSeen = time.Now()
		m.gcLocked()
		return entry.limiter
	}

	created := &keyedLimiter{
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.rpm)), m.rpm),
		lastSeen: time.Now(),
	}
	m.keys[key] = created
	m.gcLocked()

	return created.limiter
}

func (m *RateLimitMiddleware) gcLocked() {
	if len(m.keys) < 1000 {
		return
	}

	cutoff := time.Now().Add(-10 * time.Minute)
	for key, entry := range m.keys {
		if entry.lastSeen.Before(cutoff) {
			delete(m.keys, key)
		}
	}
}

func extractClientIP(r *http.Request) string {
	forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	realIP := strings.TrimSpace(r.Header.Get("X-Real-IP"))
	if realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}

	if strings.TrimSpace(r.RemoteAddr) == "" {
		return "unknown"
	}

	return r.RemoteAddr
}
