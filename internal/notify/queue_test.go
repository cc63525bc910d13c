package notify

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"MarketWatch/internal/domain/models"

	"MarketWatch/pkg/logger"

	"github.com/shopspring/decimal"
)

type captureNotifier struct {
	mu    sync.Mutex
	seen  []string
	fail  int
	calls int
}

func (c *captureNotifier) Notify(ctx context.Context, ownerID string, alert *models.Alert, observed float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls <= c.fail {
		return fmt.Errorf("delivery failed")
	}
	c.seen = append(c.seen, alert.ID)
	return nil
}

func (c *captureNotifier) delivered() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.seen))
	copy(out, c.seen)
	return out
}

func testAlert(id string) *models.Alert {
	return &models.Alert{
		ID:        id,
		OwnerID:   "owner-1",
		Symbol:    "AAPL",
		Kind:      models.PriceAbove,
		Threshold: decimal.NewFromInt(100),
		Status:    models.StatusTriggered,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func TestQueueDelivers(t *testing.T) {
	sink := &captureNotifier{}
	q := NewQueue(sink, logger.Nop(), QueueConfig{Workers: 2, QueueSize: 16})
	if err := q.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = q.Stop(context.Background()) }()

	if !q.Enqueue(Notification{OwnerID: "owner-1", Alert: testAlert("a1"), Observed: 123.4}) {
		t.Fatalf("enqueue refused")
	}

	waitFor(t, func() bool { return len(sink.delivered()) == 1 })
	if got := sink.delivered()[0]; got != "a1" {
		t.Fatalf("delivered %q, want a1", got)
	}
}

func TestQueueRetriesOnFailure(t *testing.T) {
	sink := &captureNotifier{fail: 1}
	q := NewQueue(sink, logger.Nop(), QueueConfig{
		Workers:    1,
		QueueSize:  4,
		RetryLimit: 2,
		RetryDelay: 20 * time.Millisecond,
	})
	if err := q.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = q.Stop(context.Background()) }()

	q.Enqueue(Notification{OwnerID: "owner-1", Alert: testAlert("a2"), Observed: 50})
	waitFor(t, func() bool { return len(sink.delivered()) == 1 })
}

func TestQueueDropsWhenFull(t *testing.T) {
	sink := &captureNotifier{}
	q := NewQueue(sink, logger.Nop(), QueueConfig{Workers: 1, QueueSize: 1})
	// not started: nothing drains the buffer

	if !q.Enqueue(Notification{Alert: testAlert("a3")}) {
		t.Fatalf("first enqueue should fit")
	}
	if q.Enqueue(Notification{Alert: testAlert("a4")}) {
		t.Fatalf("second enqueue should be dropped")
	}
}
