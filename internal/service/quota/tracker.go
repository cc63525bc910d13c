package quota

import (
	"sync"
	"time"
)

// Limit is one source's call budget: at most Calls reservations per Window.
type Limit struct {
	Calls  int
	Window time.Duration
}

type window struct {
	used    int
	resetAt time.Time
}

// Tracker is a fixed-window call budget shared by all users of a source.
// Windows reset lazily on reservation; there is no background timer.
// Reservations are charged on attempt, not on fetch success, so total
// upstream call volume stays bounded even under heavy fallback.
type Tracker struct {
	mu      sync.Mutex
	limits  map[string]Limit
	windows map[string]*window
	now     func() time.Time
}

// New creates an empty tracker. Sources without a configured limit are
// treated as unlimited.
func New() *Tracker {
	return &Tracker{
		limits:  make(map[string]Limit),
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// SetLimit registers or replaces a source's budget.
func (t *Tracker) SetLimit(source string, calls int, win time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.limits[source] = Limit{Calls: calls, Window: win}
}

// Reserve atomically consumes one call from the source's current window.
// It returns false, without side effect, once the budget is exhausted;
// callers decide what to do on refusal.
func (t *Tracker) Reserve(source string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	limit, ok := t.limits[source]
	if !ok {
		return true
	}

	now := t.now()
	w, ok := t.windows[source]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(limit.Window)}
		t.windows[source] = w
	}

	if w.used >= limit.Calls {
		return false
	}
	w.used++
	return true
}

// Remaining reports the calls left in the source's current window.
func (t *Tracker) Remaining(source string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	limit, ok := t.limits[source]
	if !ok {
		return -1
	}

	w, ok := t.windows[source]
	if !ok || !t.now().Before(w.resetAt) {
		return limit.Calls
	}
	return limit.Calls - w.used
}

// WithClock overrides the time source; used by tests.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}
