// Package ratelimit provides the per-key sliding-window limiter shared by the
// password forms and the analytics recorder.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter allows at most max hits per key within window. A background
// sweeper drops idle keys until Stop is called.
type Limiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	max    int
	window time.Duration
	now    func() time.Time

	stopOnce sync.Once
	done     chan struct{}
	exited   chan struct{}
}

// New returns a Limiter and starts its sweeper.
func New(max int, window time.Duration) *Limiter {
	l := &Limiter{
		hits:   make(map[string][]time.Time),
		max:    max,
		window: window,
		now:    time.Now,
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Stop ends the sweeper and waits for it to exit. It is safe to call more
// than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
	})
	<-l.exited
}

func (l *Limiter) sweepLoop() {
	defer close(l.exited)
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.done:
			return
		}
	}
}

// sweep forgets keys whose hits have all left the window.
func (l *Limiter) sweep() {
	cutoff := l.now().Add(-l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, hits := range l.hits {
		if kept := prune(hits, cutoff); len(kept) == 0 {
			delete(l.hits, key)
		} else {
			l.hits[key] = kept
		}
	}
}

func prune(hits []time.Time, cutoff time.Time) []time.Time {
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// Check reports whether key is under the limit without recording a hit.
// The password forms call Record only for failed attempts.
func (l *Limiter) Check(key string) bool {
	cutoff := l.now().Add(-l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := prune(l.hits[key], cutoff)
	l.hits[key] = kept
	return len(kept) < l.max
}

// Record registers one hit for key.
func (l *Limiter) Record(key string) {
	now := l.now()
	l.mu.Lock()
	l.hits[key] = append(l.hits[key], now)
	l.mu.Unlock()
}

// Allow records a hit for key if it is under the limit and reports whether
// it was.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	cutoff := now.Add(-l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := prune(l.hits[key], cutoff)
	if len(kept) >= l.max {
		l.hits[key] = kept
		return false
	}
	l.hits[key] = append(kept, now)
	return true
}
