// Package ratelimit provides per-client rate limiting for the gateway.
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/svcgate/svcgate/src/internal/infrastructure/logger"
)

// RateLimiter manages token buckets keyed by client identifier
// (normally the client IP).
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	lastSeen map[string]time.Time
	maxSize  int
	stopChan chan struct{}
	stopOnce sync.Once
}

// Config holds rate limiter configuration.
type Config struct {
	RequestsPerSecond int
	Burst             int
	TTL               time.Duration // How long idle limiters stay in memory
}

// DefaultConfig returns a reasonable default configuration.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 50,
		Burst:             100,
		TTL:               15 * time.Minute,
	}
}

// NewRateLimiter creates a rate limiter and starts its cleanup loop.
func NewRateLimiter(cfg Config) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.Burst,
		ttl:      cfg.TTL,
		lastSeen: make(map[string]time.Time),
		maxSize:  10000,
		stopChan: make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Stop terminates the cleanup goroutine. Safe to call more than once.
// The limiter keeps serving Allow checks after Stop; only the idle
// eviction stops.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

// Allow checks whether a request from the given identifier is allowed.
func (rl *RateLimiter) Allow(identifier string) bool {
	rl.mu.RLock()
	limiter, exists := rl.limiters[identifier]
	rl.mu.RUnlock()

	if exists {
		rl.mu.Lock()
		rl.lastSeen[identifier] = time.Now()
		rl.mu.Unlock()
		return limiter.Allow()
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring the write lock.
	limiter, exists = rl.limiters[identifier]
	if !exists {
		if len(rl.limiters) >= rl.maxSize {
			rl.evictOldest()
		}
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[identifier] = limiter
	}
	rl.lastSeen[identifier] = time.Now()

	allowed := limiter.Allow()
	if !allowed {
		logger.WithField("identifier", identifier).Warn("Rate limit exceeded")
	}
	return allowed
}

// GetClientIP extracts the client IP address from an HTTP request,
// honoring X-Forwarded-For and X-Real-IP from reverse proxies.
func GetClientIP(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			ip := strings.TrimSpace(ips[0])
			if parsedIP := net.ParseIP(ip); parsedIP != nil {
				return ip
			}
		}
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		if parsedIP := net.ParseIP(realIP); parsedIP != nil {
			return realIP
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// Middleware returns an HTTP middleware that applies rate limiting
// keyed by client IP.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := GetClientIP(r)

		if !rl.Allow(clientIP) {
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", int(rl.limit)))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(time.Second).Unix()))
			w.Header().Set("Retry-After", "1")

			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", int(rl.limit)))
		next.ServeHTTP(w, r)
	})
}

// evictOldest removes the least recently seen entry. Caller holds the
// write lock.
func (rl *RateLimiter) evictOldest() {
	var oldestID string
	var oldestTime time.Time
	first := true

	for id, lastSeen := range rl.lastSeen {
		if first || lastSeen.Before(oldestTime) {
			oldestID = id
			oldestTime = lastSeen
			first = false
		}
	}

	if oldestID != "" {
		delete(rl.limiters, oldestID)
		delete(rl.lastSeen, oldestID)
	}
}

// cleanup periodically drops limiters that have been idle past the
// TTL, until Stop is called.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.mu.Lock()

			now := time.Now()
			toDelete := make([]string, 0)
			for identifier, lastSeen := range rl.lastSeen {
				if now.Sub(lastSeen) > rl.ttl {
					toDelete = append(toDelete, identifier)
				}
			}
			for _, identifier := range toDelete {
				delete(rl.limiters, identifier)
				delete(rl.lastSeen, identifier)
			}

			if len(toDelete) > 0 {
				logger.WithField("count", len(toDelete)).Debug("Cleaned up inactive rate limiters")
			}

			rl.mu.Unlock()
		}
	}
}
