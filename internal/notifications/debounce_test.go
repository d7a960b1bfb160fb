package notifications

import (
	"fmt"
	"testing"
	"time"
)

func TestDebouncerSuppressesWithinWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	debouncer := newDebouncer(time.Minute, 16, func() time.Time { return now })

	if !debouncer.Allow("subj-1") {
		t.Fatal("first firing should be allowed")
	}
	if debouncer.Allow("subj-1") {
		t.Fatal("second firing inside window should be suppressed")
	}
	if !debouncer.Allow("subj-2") {
		t.Fatal("different subject should be independent")
	}

	now = now.Add(time.Minute)
	if !debouncer.Allow("subj-1") {
		t.Fatal("firing after window elapsed should be allowed")
	}
}

func TestDebouncerEvictsExpiredOnInsert(t *testing.T) {
	now := time.Unix(1000, 0)
	debouncer := newDebouncer(time.Minute, 16, func() time.Time { return now })

	for i := 0; i < 10; i++ {
		debouncer.Allow(fmt.Sprintf("old-%d", i))
	}
	if got := debouncer.Len(); got != 10 {
		t.Fatalf("expected 10 tracked subjects, got %d", got)
	}

	now = now.Add(2 * time.Minute)
	debouncer.Allow("fresh")
	if got := debouncer.Len(); got != 1 {
		t.Fatalf("expected expired entries evicted on insert, got %d", got)
	}
}

func TestDebouncerCapsCapacity(t *testing.T) {
	now := time.Unix(1000, 0)
	debouncer := newDebouncer(time.Hour, 4, func() time.Time { return now })

	for i := 0; i < 20; i++ {
		now = now.Add(time.Second)
		debouncer.Allow(fmt.Sprintf("subj-%d", i))
	}
	if got := debouncer.Len(); got > 4 {
		t.Fatalf("expected at most 4 tracked subjects, got %d", got)
	}
	// The newest subject must still be suppressed despite evictions.
	if debouncer.Allow("subj-19") {
		t.Fatal("expected newest subject to remain tracked")
	}
}

func TestDebouncerDisabledWindow(t *testing.T) {
	debouncer := NewDebouncer(0)
	for i := 0; i < 3; i++ {
		if !debouncer.Allow("subj-1") {
			t.Fatal("zero window should never suppress")
		}
	}
}
