// Package ratelimit provides per-client rate limiting on top of
// golang.org/x/time/rate token buckets.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

type bucket struct {
	limiter    *rate.Limiter
	burst      int
	lastAccess time.Time
}

// Limiter manages rate limiting for multiple clients.
type Limiter struct {
	buckets       map[string]*bucket // Client ID + endpoint -> bucket
	mu            sync.Mutex
	config        *Config
	cleanupTicker *time.Ticker
	cleanupStop   chan struct{}
	stopOnce      sync.Once
	now           func() time.Time
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultRate     rate.Limit
	DefaultBurst    int
	CleanupInterval time.Duration
	IdleTimeout     time.Duration // Buckets idle longer than this are dropped
	EndpointConfigs []EndpointConfig
}

// NewLimiter creates a new rate limiter with the given configuration.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = LoadConfig(5, 10)
	}

	limiter := &Limiter{
		buckets: make(map[string]*bucket),
		config:  config,
		now:     time.Now,
	}

	// Start cleanup goroutine if enabled
	if config.Enabled && config.CleanupInterval > 0 {
		limiter.cleanupTicker = time.NewTicker(config.CleanupInterval)
		limiter.cleanupStop = make(chan struct{})
		go limiter.cleanup()
	}

	return limiter
}

// Allow checks if a request from the given client is allowed for the specified endpoint.
// Returns true if allowed, false if rate limited, along with rate limit information.
func (l *Limiter) Allow(clientID string, endpoint string, method string) (bool, Info) {
	if !l.config.Enabled {
		return true, Info{Allowed: true}
	}

	endpointConfig := MatchEndpoint(endpoint, method, l.config.EndpointConfigs)
	if endpointConfig == nil {
		endpointConfig = &EndpointConfig{
			Path:   "*",
			Method: method,
			Rate:   l.config.DefaultRate,
			Burst:  l.config.DefaultBurst,
		}
	}
	if endpointConfig.Unlimited() {
		return true, Info{Allowed: true}
	}

	// Buckets are per client and endpoint pattern, so /sessions/a and
	// /sessions/b share one budget.
	key := clientID + ":" + endpointConfig.Path + ":" + method
	b := l.getBucket(key, endpointConfig.Rate, endpointConfig.Burst)

	now := l.now()
	allowed := b.limiter.AllowN(now, 1)
	remaining := max(0, int(b.limiter.TokensAt(now)))

	info := Info{
		Allowed:   allowed,
		Limit:     b.burst,
		Remaining: remaining,
		ResetTime: now.Add(timeToFull(b, now)),
	}
	if !allowed {
		r := b.limiter.ReserveN(now, 1)
		info.RetryAfter = r.DelayFrom(now)
		r.CancelAt(now)
	}
	return allowed, info
}

// timeToFull is how long until the bucket has refilled completely.
func timeToFull(b *bucket, now time.Time) time.Duration {
	missing := float64(b.burst) - b.limiter.TokensAt(now)
	if missing <= 0 || b.limiter.Limit() <= 0 {
		return 0
	}
	return time.Duration(missing / float64(b.limiter.Limit()) * float64(time.Second))
}

// getBucket gets or creates the bucket for the given key.
func (l *Limiter) getBucket(key string, r rate.Limit, burst int) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(r, burst), burst: burst}
		l.buckets[key] = b
	}
	b.lastAccess = l.now()
	return b
}

// cleanup removes old unused buckets to prevent memory leaks.
func (l *Limiter) cleanup() {
	for {
		select {
		case <-l.cleanupTicker.C:
			l.cleanupBuckets()
		case <-l.cleanupStop:
			return
		}
	}
}

// cleanupBuckets removes buckets that have been idle past the configured timeout.
func (l *Limiter) cleanupBuckets() {
	idle := l.config.IdleTimeout
	if idle <= 0 {
		idle = time.Hour
	}
	cutoff := l.now().Add(-idle)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.lastAccess.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		if l.cleanupTicker != nil {
			l.cleanupTicker.Stop()
		}
		if l.cleanupStop != nil {
			close(l.cleanupStop)
		}
	})
}
