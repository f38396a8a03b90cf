package fetch

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter implements per-host rate limiting plus a fixed pause after every
// N download attempts
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.Mutex
	defaultRate  rate.Limit
	defaultBurst int

	pauseEvery int
	pause      time.Duration
	attempts   int
}

// limiterSleepFunc waits out the fixed pause, replaced in tests
var limiterSleepFunc = func(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// NewLimiter creates a new rate limiter. requestsPerSecond <= 0 disables the
// token bucket; pauseEvery <= 0 disables the fixed pause.
func NewLimiter(requestsPerSecond float64, burst int, pauseEvery int, pause time.Duration) *Limiter {
	if burst <= 0 {
		burst = 1
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
		pauseEvery:   pauseEvery,
		pause:        pause,
	}
}

// Wait blocks until a download of rawURL may start. Every pauseEvery-th call
// first sleeps for the fixed pause.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	l.mu.Lock()
	l.attempts++
	pauseNow := l.pauseEvery > 0 && l.pause > 0 && l.attempts > 1 && (l.attempts-1)%l.pauseEvery == 0
	l.mu.Unlock()

	if pauseNow {
		if err := limiterSleepFunc(ctx, l.pause); err != nil {
			return err
		}
	}

	return l.hostLimiter(hostOf(rawURL)).Wait(ctx)
}

// Attempts returns how many downloads were let through so far
func (l *Limiter) Attempts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts
}

// SetHostDelay slows a host down to one request per delay, e.g. its robots.txt
// crawl delay. A delay that is not slower than the current rate is ignored.
func (l *Limiter) SetHostDelay(host string, delay time.Duration) {
	if delay <= 0 {
		return
	}
	limit := rate.Every(delay)

	l.mu.Lock()
	defer l.mu.Unlock()

	if current, ok := l.limiters[host]; ok && current.Limit() <= limit {
		return
	}
	l.limiters[host] = rate.NewLimiter(limit, 1)
}

// hostLimiter returns the rate limiter for a host
func (l *Limiter) hostLimiter(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
		l.limiters[host] = limiter
	}
	return limiter
}

// hostOf extracts the host from a URL
func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}
