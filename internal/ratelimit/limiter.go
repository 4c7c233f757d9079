// Package ratelimit implements the per-endpoint sliding-window admission
// control named C1 in the design: an in-process map from endpoint key to a
// bounded window of recent arrival timestamps. A coarser go-chi/httprate
// layer (outer.go) sits in front of it in the HTTP middleware chain to
// absorb obvious abuse before a request even reaches endpoint resolution.
package ratelimit

import (
	"sync"
	"time"
)

// Result is the outcome of a Check call (spec §4.1).
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Limit     int
}

// cleanupInterval is how often Check opportunistically sweeps stale keys.
const cleanupInterval = 5 * time.Minute

// staleAfter is how long a key may sit idle before a sweep removes it.
const staleAfter = 60 * time.Second

type window struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// Limiter holds the process-wide endpoint→window map. Construct it with New;
// the zero value has no map and no clock and is not usable.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	lastGC  time.Time

	// now is overridable in tests; defaults to time.Now.
	now func() time.Time
}

// New constructs a ready-to-use Limiter.
func New() *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Check implements spec §4.1's Check(key, limitPerSec, windowMs) contract.
// It is safe for concurrent callers; two racing calls may both succeed up
// to the limit, but remaining is always reported consistently with the
// caller's own admission.
func (l *Limiter) Check(key string, limitPerSec int, windowMs int64) Result {
	now := l.now()
	windowDur := time.Duration(windowMs) * time.Millisecond

	w := l.windowFor(key)

	w.mu.Lock()

	cutoff := now.Add(-windowDur)
	survivors := w.timestamps[:0]
	for _, ts := range w.timestamps {
		if ts.After(cutoff) {
			survivors = append(survivors, ts)
		}
	}
	w.timestamps = survivors

	allowed := len(w.timestamps) < limitPerSec
	if allowed {
		w.timestamps = append(w.timestamps, now)
	}

	remaining := limitPerSec - len(w.timestamps)
	if remaining < 0 {
		remaining = 0
	}

	resetAt := now.Add(windowDur)
	if len(w.timestamps) > 0 {
		resetAt = w.timestamps[0].Add(windowDur)
	}

	w.mu.Unlock()

	// Sweep runs only after this window's lock is released: maybeSweep
	// locks l.mu and then each window's mu in turn, and this goroutine
	// must not still hold a window lock when it does, or it would try to
	// lock its own window twice.
	l.maybeSweep(now)

	return Result{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   resetAt,
		Limit:     limitPerSec,
	}
}

func (l *Limiter) windowFor(key string) *window {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[key]
	if !ok {
		w = &window{}
		l.windows[key] = w
	}
	return w
}

// maybeSweep drops windows whose most recent arrival is stale, at most once
// per cleanupInterval (spec §4.1 step 4). Callers already hold no lock on
// l.mu at entry; maybeSweep acquires it itself.
func (l *Limiter) maybeSweep(now time.Time) {
	l.mu.Lock()
	if now.Sub(l.lastGC) < cleanupInterval {
		l.mu.Unlock()
		return
	}
	l.lastGC = now
	stale := make([]string, 0)
	for key, w := range l.windows {
		w.mu.Lock()
		n := len(w.timestamps)
		var last time.Time
		if n > 0 {
			last = w.timestamps[n-1]
		}
		w.mu.Unlock()
		if n == 0 || now.Sub(last) > staleAfter {
			stale = append(stale, key)
		}
	}
	for _, key := range stale {
		delete(l.windows, key)
	}
	l.mu.Unlock()
}

// KeyCount reports how many distinct keys are currently tracked, for the
// rate_limit_active_keys gauge.
func (l *Limiter) KeyCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
