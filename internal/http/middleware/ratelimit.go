package middleware

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

const rateLimitDriverHeader = "X-Driver-ID"

// RateLimit throttles mutating requests per client with 429. Clients are
// keyed by the gateway identity header when present, falling back to the
// remote address; reads pass through unthrottled.
func RateLimit(perSecond float64, burst int) func(http.Handler) http.Handler {
	limiters := &clientLimiters{
		limit: rate.Limit(perSecond),
		burst: burst,
		byKey: make(map[string]*rate.Limiter),
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			if !limiters.get(clientKey(r)).Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type clientLimiters struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	byKey map[string]*rate.Limiter
}

func (c *clientLimiters) get(key string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	limiter, ok := c.byKey[key]
	if !ok {
		limiter = rate.NewLimiter(c.limit, c.burst)
		c.byKey[key] = limiter
	}
	return limiter
}

func clientKey(r *http.Request) string {
	if id := r.Header.Get(rateLimitDriverHeader); id != "" {
		return "driver:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
