package ratelimiter

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Limiter interface {
	Allow(sourceKey string) bool
	GetSourceKey(r *http.Request) string
	Remaining(sourceKey string) int
	GetMaxBurst() int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per source. Buckets untouched for
// idleTTL are dropped by the janitor.
type RateLimiter struct {
	limit           rate.Limit
	maxBurst        int
	idleTTL         time.Duration
	sourceHeaderKey string

	mu       sync.Mutex
	visitors map[string]*visitor

	stop     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

type Options struct {
	MaxRatePerSecond int
	MaxBurst         int
	IdleTTL          time.Duration
	SourceHeaderKey  string
}

func New(options Options) *RateLimiter {
	if options.MaxBurst <= 0 {
		options.MaxBurst = options.MaxRatePerSecond
	}
	if options.IdleTTL <= 0 {
		options.IdleTTL = 5 * time.Minute
	}

	rl := &RateLimiter{
		limit:           rate.Limit(options.MaxRatePerSecond),
		maxBurst:        options.MaxBurst,
		idleTTL:         options.IdleTTL,
		sourceHeaderKey: options.SourceHeaderKey,
		visitors:        make(map[string]*visitor),
		stop:            make(chan struct{}),
		now:             time.Now,
	}

	go rl.cleanupIdle()

	return rl
}

func (rl *RateLimiter) visitorFor(sourceKey string) *visitor {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[sourceKey]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.maxBurst)}
		rl.visitors[sourceKey] = v
	}
	v.lastSeen = rl.now()
	return v
}

func (rl *RateLimiter) Allow(sourceKey string) bool {
	return rl.visitorFor(sourceKey).limiter.AllowN(rl.now(), 1)
}

func (rl *RateLimiter) Remaining(sourceKey string) int {
	tokens := rl.visitorFor(sourceKey).limiter.TokensAt(rl.now())
	if tokens < 0 {
		return 0
	}
	return int(tokens)
}

func (rl *RateLimiter) GetMaxBurst() int {
	return rl.maxBurst
}

// GetSourceKey uses the configured header (first hop for X-Forwarded-For
// style lists) when one is set, and the remote host otherwise. Without a
// configured header, client supplied headers never pick the bucket.
func (rl *RateLimiter) GetSourceKey(r *http.Request) string {
	if rl.sourceHeaderKey != "" {
		if key := r.Header.Get(rl.sourceHeaderKey); key != "" {
			first, _, _ := strings.Cut(key, ",")
			return strings.TrimSpace(first)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (rl *RateLimiter) cleanupIdle() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) evictIdle() {
	cutoff := rl.now().Add(-rl.idleTTL)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
		}
	}
}

func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() {
		close(rl.stop)
	})
}
