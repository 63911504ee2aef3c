package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 3 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet hands out one token bucket per client IP. Stale buckets are
// swept during lookups at most once a minute.
type limiterSet struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	r         rate.Limit
	b         int
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterSet(rps float64, burst int) *limiterSet {
	return &limiterSet{
		clients: make(map[string]*clientLimiter),
		r:       rate.Limit(rps),
		b:       burst,
		now:     time.Now,
	}
}

func (ls *limiterSet) get(ip string) *rate.Limiter {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	now := ls.now()
	if now.Sub(ls.lastSweep) > time.Minute {
		for k, c := range ls.clients {
			if now.Sub(c.lastSeen) > limiterIdleTTL {
				delete(ls.clients, k)
			}
		}
		ls.lastSweep = now
	}

	if c, ok := ls.clients[ip]; ok {
		c.lastSeen = now
		return c.limiter
	}
	l := rate.NewLimiter(ls.r, ls.b)
	ls.clients[ip] = &clientLimiter{limiter: l, lastSeen: now}
	return l
}

// RateLimit limits each client IP to rps requests per second with the given
// burst, answering 429 with a Retry-After hint when exceeded. Proxy headers
// pick the client only when trustProxy is set.
func RateLimit(rps float64, burst int, trustProxy bool) Middleware {
	set := newLimiterSet(rps, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !set.get(clientIP(r, trustProxy)).Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the peer address of r. With trustProxy it prefers
// X-Forwarded-For, then X-Real-IP, as set by the reverse proxy in front.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			return strings.TrimSpace(strings.Split(xff, ",")[0])
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return xri
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
