package quota

import (
	"sync"
	"testing"
	"time"
)

func TestReserveWithinLimit(t *testing.T) {
	tr := New()
	tr.SetLimit("alpha", 3, time.Minute)

	for i := 0; i < 3; i++ {
		if !tr.Reserve("alpha") {
			t.Fatalf("reservation %d refused", i+1)
		}
	}
	if tr.Reserve("alpha") {
		t.Fatalf("expected refusal after limit")
	}
}

func TestReserveUnknownSourceUnlimited(t *testing.T) {
	tr := New()
	for i := 0; i < 100; i++ {
		if !tr.Reserve("yahoo") {
			t.Fatalf("unlimited source refused at %d", i)
		}
	}
}

func TestWindowReset(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	tr := New().WithClock(func() time.Time { return now })
	tr.SetLimit("finnhub", 2, time.Minute)

	if !tr.Reserve("finnhub") || !tr.Reserve("finnhub") {
		t.Fatalf("budget should allow 2 calls")
	}
	if tr.Reserve("finnhub") {
		t.Fatalf("third call should be refused")
	}

	now = now.Add(61 * time.Second)
	if !tr.Reserve("finnhub") {
		t.Fatalf("expected acceptance after window reset")
	}
	if got := tr.Remaining("finnhub"); got != 1 {
		t.Fatalf("remaining = %d, want 1", got)
	}
}

func TestRefusalHasNoSideEffect(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	tr := New().WithClock(func() time.Time { return now })
	tr.SetLimit("alpha", 1, time.Hour)

	tr.Reserve("alpha")
	for i := 0; i < 5; i++ {
		tr.Reserve("alpha")
	}

	// A refused reservation must not extend or reset the window.
	now = now.Add(time.Hour + time.Second)
	if !tr.Reserve("alpha") {
		t.Fatalf("expected acceptance in fresh window")
	}
}

func TestConcurrentReserveNeverExceedsLimit(t *testing.T) {
	tr := New()
	tr.SetLimit("src", 50, time.Minute)

	var wg sync.WaitGroup
	granted := make(chan struct{}, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.Reserve("src") {
				granted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(granted)

	n := 0
	for range granted {
		n++
	}
	if n != 50 {
		t.Fatalf("granted %d reservations, want exactly 50", n)
	}
}
