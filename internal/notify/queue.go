// Package notify delivers alert notifications off the evaluation path.
// Triggered alerts are enqueued once and drained by a small worker pool so
// a slow delivery channel cannot stall an evaluation cycle.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/domain/repository"

	"MarketWatch/pkg/logger"
)

// Notification is one triggered alert awaiting delivery.
type Notification struct {
	OwnerID  string
	Alert    *models.Alert
	Observed float64
	Attempts int
}

// QueueConfig sizes the dispatch pool.
type QueueConfig struct {
	Workers    int
	QueueSize  int
	RetryLimit int
	RetryDelay time.Duration
}

// Queue is a bounded in-process dispatch queue. Enqueue never blocks; when
// the buffer is full the notification is dropped and logged, which keeps
// the at-most-once delivery guarantee intact.
type Queue struct {
	notifier repository.Notifier
	log      *logger.Logger
	cfg      QueueConfig

	ch     chan Notification
	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
}

// NewQueue creates a notification queue over the given delivery channel.
func NewQueue(notifier repository.Notifier, log *logger.Logger, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	return &Queue{
		notifier: notifier,
		log:      log,
		cfg:      cfg,
		ch:       make(chan Notification, cfg.QueueSize),
	}
}

// Start launches the worker pool.
func (q *Queue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return fmt.Errorf("notify queue already running")
	}
	q.running = true

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel

	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	q.log.Info("notify queue started", logger.Int("workers", q.cfg.Workers))
	return nil
}

// Stop drains in-flight work until ctx expires.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("notify queue stop: %w", ctx.Err())
	case <-done:
		q.log.Info("notify queue stopped")
		return nil
	}
}

// Enqueue hands a triggered alert to the pool. Returns false when the
// buffer is full and the notification was dropped.
func (q *Queue) Enqueue(n Notification) bool {
	select {
	case q.ch <- n:
		return true
	default:
		q.log.Warn("notify queue full, dropping",
			logger.String("alert_id", n.Alert.ID),
			logger.String("owner_id", n.OwnerID))
		return false
	}
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-q.ch:
			q.deliver(ctx, n)
		}
	}
}

func (q *Queue) deliver(ctx context.Context, n Notification) {
	err := q.notifier.Notify(ctx, n.OwnerID, n.Alert, n.Observed)
	if err == nil {
		q.log.Info("alert notification delivered",
			logger.String("alert_id", n.Alert.ID),
			logger.String("symbol", n.Alert.Symbol),
			logger.String("kind", string(n.Alert.Kind)))
		return
	}

	if n.Attempts < q.cfg.RetryLimit {
		n.Attempts++
		q.log.Warn("notification delivery failed, retrying",
			logger.String("alert_id", n.Alert.ID),
			logger.Int("attempt", n.Attempts),
			logger.Error(err))
		go func(n Notification) {
			select {
			case <-ctx.Done():
			case <-time.After(q.cfg.RetryDelay):
				q.Enqueue(n)
			}
		}(n)
		return
	}

	q.log.Error("notification delivery abandoned",
		logger.String("alert_id", n.Alert.ID),
		logger.Error(err))
}
