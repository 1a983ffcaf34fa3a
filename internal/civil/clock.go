package civil

import (
	"sync"
	"time"
)

// DefaultTodayTTL is how long Clock reuses a computed "today".
const DefaultTodayTTL = 60 * time.Second

// Clock reports the current IST date and instant.
//
// Today is cached for TTL and invalidated only by elapsed wall-clock time, not
// by day boundaries: a value computed just before midnight may be served for
// up to TTL after it.
type Clock struct {
	now func() time.Time
	ttl time.Duration

	mu       sync.Mutex
	today    Date
	cachedAt time.Time
}

// NewClock returns a Clock over now (time.Now if nil) with the given cache
// TTL (DefaultTodayTTL if <= 0).
func NewClock(now func() time.Time, ttl time.Duration) *Clock {
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = DefaultTodayTTL
	}
	return &Clock{now: now, ttl: ttl}
}

// Now returns the current instant in IST. Never cached.
func (c *Clock) Now() time.Time {
	return c.now().In(IST)
}

// Today returns the current IST date, possibly cached.
func (c *Clock) Today() Date {
	t := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.cachedAt.IsZero() && t.Sub(c.cachedAt) < c.ttl && t.Sub(c.cachedAt) >= 0 {
		return c.today
	}
	c.today = FromTime(t)
	c.cachedAt = t
	return c.today
}
