package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"
)

// RateLimiterConfig configures a RateLimiter.
type RateLimiterConfig struct {
	// RequestsPerSecond refills each bucket.
	RequestsPerSecond float64
	// BurstSize is the capacity of a bucket.
	BurstSize int
	// CleanupInterval is how often idle, full buckets are dropped.
	CleanupInterval time.Duration
	// KeyFunc picks the bucket for a request. Defaults to ClientIP(nil).
	KeyFunc func(r *http.Request) string
}

// OrderRateLimiterConfig limits order placement per client: one order a
// second with a burst of five. Forwarded headers are honoured only from
// trustedProxies.
func OrderRateLimiterConfig(trustedProxies []netip.Prefix) RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 1,
		BurstSize:         5,
		CleanupInterval:   time.Minute,
		KeyFunc:           ClientIP(trustedProxies),
	}
}

type bucket struct {
	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// take refills b for the time since its last use and spends one token if
// there is one.
func (b *bucket) take(now time.Time, rate, capacity float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens = min(capacity, b.tokens+now.Sub(b.last).Seconds()*rate)
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (b *bucket) idle(now time.Time, capacity float64, after time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens >= capacity && now.Sub(b.last) > after
}

// RateLimiter is an in-memory token bucket limiter keyed per request.
// Call Stop to end its cleanup goroutine.
type RateLimiter struct {
	config  RateLimiterConfig
	mu      sync.Mutex
	buckets map[string]*bucket
	stop    chan struct{}
	once    sync.Once
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = ClientIP(nil)
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Minute
	}

	rl := &RateLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow reports whether a request for key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	now := time.Now()
	capacity := float64(rl.config.BurstSize)

	rl.mu.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: capacity, last: now}
		rl.buckets[key] = b
	}
	rl.mu.Unlock()

	return b.take(now, rl.config.RequestsPerSecond, capacity)
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			rl.mu.Lock()
			for key, b := range rl.buckets {
				if b.idle(now, float64(rl.config.BurstSize), rl.config.CleanupInterval) {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stop:
			return
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// Middleware answers 429 once the bucket of the request is empty.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(rl.config.KeyFunc(r)) {
			w.Header().Set("Retry-After", "1")
			respondTooManyRequests(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns a key func that identifies the client of a request.
// X-Forwarded-For and X-Real-IP are read only when the peer address is one
// of trustedProxies; otherwise the peer address is the client. From
// X-Forwarded-For the rightmost address that is not a trusted proxy is used.
func ClientIP(trustedProxies []netip.Prefix) func(r *http.Request) string {
	trusted := func(addr netip.Addr) bool {
		for _, p := range trustedProxies {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}

	return func(r *http.Request) string {
		peer := remoteIP(r)
		addr, err := netip.ParseAddr(peer)
		if err != nil || !trusted(addr.Unmap()) {
			return peer
		}

		if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
			hops := strings.Split(strings.Join(xff, ","), ",")
			for i := len(hops) - 1; i >= 0; i-- {
				hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
				if err != nil {
					break
				}
				if !trusted(hop.Unmap()) {
					return hop.Unmap().String()
				}
			}
		}
		if xri, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
			return xri.Unmap().String()
		}
		return peer
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
