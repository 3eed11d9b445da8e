package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleTTL is how long a client's limiter is kept after its last request.
const idleTTL = 10 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterMiddleware holds one rate limiter per client address. Limiters
// idle for longer than idleTTL are dropped.
type RateLimiterMiddleware struct {
	clients   map[string]*client
	mu        sync.Mutex
	lastSweep time.Time
	now       func() time.Time
	// Rate is the number of events per second.
	rate rate.Limit
	// Burst is the burst size.
	burst  int
	logger *slog.Logger
}

func NewRateLimiterMiddleware(r rate.Limit, b int, logger *slog.Logger) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		clients:   make(map[string]*client),
		lastSweep: time.Now(),
		now:       time.Now,
		rate:      r,
		burst:     b,
		logger:    logger,
	}
}

func (rl *RateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := clientAddr(r)

		if !rl.limiter(addr).Allow() {
			rl.logger.Warn("rate limit exceeded", slog.String("client", addr), slog.String("path", r.URL.Path))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiterMiddleware) limiter(addr string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= idleTTL {
		for a, c := range rl.clients {
			if now.Sub(c.lastSeen) >= idleTTL {
				delete(rl.clients, a)
			}
		}
		rl.lastSweep = now
	}

	c, exists := rl.clients[addr]
	if !exists {
		c = &client{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[addr] = c
	}
	c.lastSeen = now
	return c.limiter
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
