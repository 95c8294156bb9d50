package resilience

import (
	"sync"
	"time"
)

// CallBudget is a fixed-window counter per key. When a window expires the
// count resets wholesale, so a burst straddling two windows can reach twice
// the limit.
type CallBudget struct {
	limit   int
	window  time.Duration
	now     func() time.Time
	mu      sync.Mutex
	windows map[string]*budgetWindow
}

type budgetWindow struct {
	start time.Time
	count int
}

// NewCallBudget creates a budget of limit calls per window for each key
func NewCallBudget(limit int, window time.Duration) *CallBudget {
	return &CallBudget{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: make(map[string]*budgetWindow),
	}
}

// Allow consumes one call for key and reports whether it fits the budget.
// It never fails: any internal fault lets the call through.
func (b *CallBudget) Allow(key string) (allowed bool) {
	defer func() {
		if r := recover(); r != nil {
			allowed = true
		}
	}()

	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()

	w := b.current(key, now)
	if w.count >= b.limit {
		return false
	}
	w.count++
	return true
}

// Remaining reports how many calls key has left in its current window
func (b *CallBudget) Remaining(key string) int {
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()

	w, ok := b.windows[key]
	if !ok || now.Sub(w.start) >= b.window {
		return b.limit
	}
	return max(0, b.limit-w.count)
}

// current returns key's live window, opening a new one when needed.
// Callers hold mu.
func (b *CallBudget) current(key string, now time.Time) *budgetWindow {
	w, ok := b.windows[key]
	if !ok || now.Sub(w.start) >= b.window {
		w = &budgetWindow{start: now}
		b.windows[key] = w
	}
	return w
}
