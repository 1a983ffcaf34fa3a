package countdown

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"railbook/internal/civil"
	appLog "railbook/internal/log"
)

const tickSpec = "@every 1s"

// Ticker runs a single repeating one-second job. Starting it again replaces
// the running job.
type Ticker struct {
	mu   sync.Mutex
	cron *cron.Cron
	now  func() time.Time
}

// NewTicker returns a stopped ticker; now defaults to time.Now.
func NewTicker(now func() time.Time) *Ticker {
	if now == nil {
		now = time.Now
	}
	return &Ticker{now: now}
}

// Start calls fn immediately and then every second. A previously started job
// is stopped first, so at most one job is ever scheduled.
func (t *Ticker) Start(fn func(time.Time)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cron != nil {
		t.cron.Stop()
		t.cron = nil
		appLog.Debug("countdown: replaced running ticker")
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(civil.IST))
	if _, err := c.AddFunc(tickSpec, func() { fn(t.now()) }); err != nil {
		return err
	}

	fn(t.now())
	c.Start()
	t.cron = c
	return nil
}

// Stop halts the job. It is safe to call on a stopped ticker.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cron == nil {
		return
	}
	t.cron.Stop()
	t.cron = nil
}

// Running reports whether a job is scheduled.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cron != nil
}
