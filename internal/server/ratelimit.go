package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/MeKo-Tech/docflow/internal/config"
)

// Limits are per-client request limits. A zero field disables that limit.
type Limits struct {
	PerMinute   int
	PerHour     int
	PerDay      int
	BytesPerDay int64
}

// RateLimiter tracks request counts and uploaded bytes per client in fixed
// windows. Minute and hour windows start at a client's first request in the
// window; daily quotas reset at local midnight.
type RateLimiter struct {
	mu      sync.Mutex
	limits  Limits
	clients map[string]*clientUsage
	now     func() time.Time
}

type window struct {
	start time.Time
	count int
}

func (w *window) roll(now time.Time, size time.Duration) {
	if now.Sub(w.start) >= size {
		w.start = now
		w.count = 0
	}
}

type clientUsage struct {
	minute   window
	hour     window
	dayStart time.Time
	requests int
	bytes    int64
	lastSeen time.Time
}

// Usage is a snapshot of one client's consumption.
type Usage struct {
	RequestsLastMinute int
	RequestsLastHour   int
	RequestsToday      int
	BytesToday         int64
	LastSeen           time.Time
}

// NewRateLimiter returns a limiter enforcing limits.
func NewRateLimiter(limits Limits) *RateLimiter {
	return &RateLimiter{
		limits:  limits,
		clients: make(map[string]*clientUsage),
		now:     time.Now,
	}
}

// NewRateLimiterFromConfig returns a limiter for cfg, or nil when rate
// limiting is disabled.
func NewRateLimiterFromConfig(cfg config.RateLimitConfig) *RateLimiter {
	if !cfg.Enabled {
		return nil
	}
	return NewRateLimiter(Limits{
		PerMinute:   cfg.RequestsPerMinute,
		PerHour:     cfg.RequestsPerHour,
		PerDay:      cfg.MaxRequestsPerDay,
		BytesPerDay: cfg.MaxDataPerDayMB * 1024 * 1024,
	})
}

// Allow records a request of size bytes from client, or returns a
// *RateLimitError or *QuotaExceededError without recording it.
func (rl *RateLimiter) Allow(client string, size int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	u, ok := rl.clients[client]
	if !ok {
		u = &clientUsage{minute: window{start: now}, hour: window{start: now}, dayStart: midnight(now)}
		rl.clients[client] = u
	}
	u.minute.roll(now, time.Minute)
	u.hour.roll(now, time.Hour)
	if today := midnight(now); !today.Equal(u.dayStart) {
		u.dayStart = today
		u.requests = 0
		u.bytes = 0
	}

	if l := rl.limits.PerMinute; l > 0 && u.minute.count >= l {
		return &RateLimitError{Type: "minute", Limit: l, RetryAfter: u.minute.start.Add(time.Minute).Sub(now)}
	}
	if l := rl.limits.PerHour; l > 0 && u.hour.count >= l {
		return &RateLimitError{Type: "hour", Limit: l, RetryAfter: u.hour.start.Add(time.Hour).Sub(now)}
	}
	resets := u.dayStart.AddDate(0, 0, 1)
	if l := rl.limits.PerDay; l > 0 && u.requests >= l {
		return &QuotaExceededError{Type: "requests", Limit: int64(l), Used: int64(u.requests), Resets: resets}
	}
	if l := rl.limits.BytesPerDay; l > 0 && u.bytes+size > l {
		return &QuotaExceededError{Type: "data", Limit: l, Used: u.bytes, Resets: resets}
	}

	u.minute.count++
	u.hour.count++
	u.requests++
	u.bytes += size
	u.lastSeen = now
	return nil
}

// Usage returns the current consumption of client. Unknown clients report
// zero usage.
func (rl *RateLimiter) Usage(client string) Usage {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	u, ok := rl.clients[client]
	if !ok {
		return Usage{}
	}
	return Usage{
		RequestsLastMinute: u.minute.count,
		RequestsLastHour:   u.hour.count,
		RequestsToday:      u.requests,
		BytesToday:         u.bytes,
		LastSeen:           u.lastSeen,
	}
}

// Prune drops clients idle for more than a day and returns how many were
// removed.
func (rl *RateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for id, u := range rl.clients {
		if now.Sub(u.lastSeen) > 24*time.Hour {
			delete(rl.clients, id)
			removed++
		}
	}
	return removed
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// RateLimitError reports an exceeded minute or hour request limit.
type RateLimitError struct {
	Type       string
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter)
}

// QuotaExceededError reports an exhausted daily request or data quota.
type QuotaExceededError struct {
	Type   string
	Limit  int64
	Used   int64
	Resets time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Type, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
