// Package ratelimit provides the per-key fixed-window request counter used to
// throttle authentication attempts.
//
// # Window semantics
//
// The window is fixed, not sliding: a counter resets to {1, now} when its
// window has fully elapsed, and a burst straddling a window boundary can
// admit up to twice the limit. That boundary behavior is an accepted,
// documented property of the design, not a bug; callers relying on a hard
// ceiling must size the limit accordingly.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is the admission check consulted before any credential handling.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type counter struct {
	count       int
	windowStart time.Time
}

// Memory is the in-process limiter: one mutex-guarded table keyed by client
// identity. The check-then-increment sequence runs under the lock so two
// concurrent requests can never both pass the limit check before either is
// counted. Allow never returns an error.
type Memory struct {
	limit  int
	window time.Duration

	mu       sync.Mutex
	counters map[string]*counter

	now func() time.Time
}

// NewMemory returns a memory limiter admitting limit requests per key per
// window.
func NewMemory(limit int, window time.Duration) *Memory {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Memory{
		limit:    limit,
		window:   window,
		counters: make(map[string]*counter),
		now:      time.Now,
	}
}

// Allow admits the request iff the key's fixed-window budget is not spent.
// Once the count sits at the limit, further denials do not increment it.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counters[key]
	if !ok {
		m.counters[key] = &counter{count: 1, windowStart: now}
		return true, nil
	}

	if now.Sub(c.windowStart) > m.window {
		c.count = 1
		c.windowStart = now
		return true, nil
	}

	if c.count >= m.limit {
		return false, nil
	}

	c.count++
	return true, nil
}

// Sweep drops every counter whose window has elapsed. It takes the same lock
// as Allow and does a single constant-time pass over the table.
func (m *Memory) Sweep() {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, c := range m.counters {
		if now.Sub(c.windowStart) > m.window {
			delete(m.counters, key)
		}
	}
}

// Run sweeps periodically until the context is cancelled. It is owned by the
// process lifecycle: started at startup, stopped at shutdown.
func (m *Memory) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = m.window
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// size is a test hook.
func (m *Memory) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.counters)
}
