package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SearchRateLimiter provides per-client-IP rate limiting for the search
// endpoint, so a single chatty client cannot burn the provider quota.
type SearchRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	perSecond rate.Limit
	burst     int
}

// NewSearchRateLimiter creates a limiter allowing perSecond requests with
// the given burst per client IP. Non-positive values fall back to 5 req/s
// with a burst of 10. Stale per-IP entries are cleaned up periodically until
// ctx is canceled.
func NewSearchRateLimiter(ctx context.Context, perSecond float64, burst int) *SearchRateLimiter {
	if ctx == nil {
		ctx = context.Background()
	}
	if perSecond <= 0 {
		perSecond = 5
	}
	if burst <= 0 {
		burst = 10
	}
	rl := &SearchRateLimiter{
		limiters:  make(map[string]*ipLimiter),
		perSecond: rate.Limit(perSecond),
		burst:     burst,
	}
	go rl.cleanup(ctx)
	return rl
}

// Middleware returns an HTTP middleware that rate-limits requests by client IP.
func (rl *SearchRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.getLimiter(clientIP(r)).Allow() {
			http.Error(w, `{"error":"too many requests"}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *SearchRateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.limiters[ip]
	if !exists {
		entry = &ipLimiter{
			limiter: rate.NewLimiter(rl.perSecond, rl.burst),
		}
		rl.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func (rl *SearchRateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, entry := range rl.limiters {
				if time.Since(entry.lastSeen) > 15*time.Minute {
					delete(rl.limiters, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// clientIP resolves the address rate limiting keys on. Proxy headers are
// honored only when the direct peer is a private or loopback address;
// a public peer could spoof them to dodge the limiter.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !isPrivateIP(host) {
		return host
	}

	// Rightmost X-Forwarded-For entry is the one our own proxy appended.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[len(parts)-1]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	return host
}

// isPrivateIP reports whether s parses as a loopback, RFC 1918, or
// link-local address.
func isPrivateIP(s string) bool {
	ip := net.ParseIP(s)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}
