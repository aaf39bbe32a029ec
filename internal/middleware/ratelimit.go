package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware keeps one token bucket per client IP.
type RateLimitMiddleware struct {
	clients map[string]*client
	mu      sync.Mutex
	now     func() time.Time
}

// NewRateLimitMiddleware creates a new rate limiting middleware
func NewRateLimitMiddleware() *RateLimitMiddleware {
	return &RateLimitMiddleware{
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

// RateLimit allows bursts of maxRequests per client IP, refilled evenly
// over window. A non-positive maxRequests disables limiting.
func (m *RateLimitMiddleware) RateLimit(maxRequests int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxRequests <= 0 || window <= 0 {
			return next
		}
		every := rate.Every(window / time.Duration(maxRequests))
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.allow(clientIP(r), every, maxRequests) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *RateLimitMiddleware) allow(key string, every rate.Limit, burst int) bool {
	now := m.now()

	m.mu.Lock()
	c, ok := m.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(every, burst)}
		m.clients[key] = c
	}
	c.lastSeen = now
	m.mu.Unlock()

	return c.limiter.AllowN(now, 1)
}

// Sweep drops clients idle for at least window. Their buckets have refilled
// by then, so dropping them loses nothing.
func (m *RateLimitMiddleware) Sweep(window time.Duration) {
	cutoff := m.now().Add(-window)
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, c := range m.clients {
		if !c.lastSeen.After(cutoff) {
			delete(m.clients, key)
		}
	}
}

// Clients reports how many clients are tracked.
func (m *RateLimitMiddleware) Clients() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// clientIP keys on the connection address. Forwarding headers are only
// honoured when the router is configured to trust a proxy, in which case
// chi's RealIP has already rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
