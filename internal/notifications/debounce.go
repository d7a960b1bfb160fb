package notifications

import (
	"sync"
	"time"
)

const defaultDebounceCapacity = 4096

// Debouncer suppresses repeat trigger firings for the same subject inside a
// rolling window. The map is capacity-capped: expired entries are evicted on
// every insert, and if the map is still full the oldest entry goes, so memory
// stays bounded no matter how many distinct subjects flow through.
type Debouncer struct {
	mu       sync.Mutex
	window   time.Duration
	capacity int
	lastSeen map[string]time.Time
	now      func() time.Time
}

// NewDebouncer builds a debouncer over the given rolling window.
func NewDebouncer(window time.Duration) *Debouncer {
	return newDebouncer(window, defaultDebounceCapacity, time.Now)
}

func newDebouncer(window time.Duration, capacity int, now func() time.Time) *Debouncer {
	if capacity <= 0 {
		capacity = defaultDebounceCapacity
	}
	return &Debouncer{
		window:   window,
		capacity: capacity,
		lastSeen: make(map[string]time.Time, capacity),
		now:      now,
	}
}

// Allow reports whether a trigger for subjectID may fire now, and records the
// firing when it may. A non-positive window disables debouncing entirely.
func (d *Debouncer) Allow(subjectID string) bool {
	if d == nil || d.window <= 0 {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.lastSeen[subjectID]; ok && now.Sub(last) < d.window {
		return false
	}

	d.evictExpired(now)
	if len(d.lastSeen) >= d.capacity {
		d.evictOldest()
	}
	d.lastSeen[subjectID] = now
	return true
}

// Len reports the number of tracked subjects.
func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lastSeen)
}

func (d *Debouncer) evictExpired(now time.Time) {
	for subject, seen := range d.lastSeen {
		if now.Sub(seen) >= d.window {
			delete(d.lastSeen, subject)
		}
	}
}

func (d *Debouncer) evictOldest() {
	var oldestSubject string
	var oldestSeen time.Time
	for subject, seen := range d.lastSeen {
		if oldestSubject == "" || seen.Before(oldestSeen) {
			oldestSubject = subject
			oldestSeen = seen
		}
	}
	if oldestSubject != "" {
		delete(d.lastSeen, oldestSubject)
	}
}
