package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"MarketWatch/internal/domain/models"
	domrepo "MarketWatch/internal/domain/repository"

	pkgch "MarketWatch/pkg/clickhouse"
	pkgkafka "MarketWatch/pkg/kafka"
	applogger "MarketWatch/pkg/logger"
)

// LogSignalSink writes signals to the structured log. Default sink when no
// broker or store is configured.
type LogSignalSink struct {
	l *applogger.Logger
}

func NewLogSignalSink(l *applogger.Logger) *LogSignalSink {
	return &LogSignalSink{l: l}
}

func (s *LogSignalSink) Publish(ctx context.Context, sig *models.Signal) error {
	s.l.Info("signal detected",
		applogger.String("signal_id", sig.ID),
		applogger.String("symbol", sig.Symbol),
		applogger.String("kind", string(sig.Kind)),
		applogger.Float64("value", sig.Value),
		applogger.Float64("price", sig.Price),
		applogger.String("description", sig.Description),
	)
	return nil
}

func (s *LogSignalSink) Close() error { return nil }

// KafkaSignalSink publishes signals to a Kafka topic, keyed by symbol so
// one symbol's signals stay ordered within a partition.
type KafkaSignalSink struct {
	producer *pkgkafka.Producer
	l        *applogger.Logger
}

func NewKafkaSignalSink(producer *pkgkafka.Producer, l *applogger.Logger) *KafkaSignalSink {
	return &KafkaSignalSink{producer: producer, l: l}
}

func (s *KafkaSignalSink) Publish(ctx context.Context, sig *models.Signal) error {
	if err := s.producer.Publish(ctx, []byte(sig.Symbol), sig); err != nil {
		s.l.Error("kafka publish signal error",
			applogger.String("symbol", sig.Symbol),
			applogger.String("kind", string(sig.Kind)),
			applogger.Error(err),
		)
		return fmt.Errorf("publish signal: %w", err)
	}
	return nil
}

func (s *KafkaSignalSink) Close() error {
	return s.producer.Close()
}

// CHSignalSink persists signals in ClickHouse for later querying.
type CHSignalSink struct {
	db *sql.DB
	l  *applogger.Logger
}

// SignalSchema returns the idempotent DDL for the signals table.
func SignalSchema(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s.signals (
            id          String,
            symbol      LowCardinality(String),
            kind        LowCardinality(String),
            value       Float64,
            price       Float64,
            description String,
            detected_at DateTime64(3)
        )
        ENGINE = MergeTree
        PARTITION BY toYYYYMM(detected_at)
        ORDER BY (symbol, detected_at)
        TTL toDateTime(detected_at) + INTERVAL 90 DAY
    `, database),
	}
}

func NewCHSignalSink(ch *pkgch.Client, l *applogger.Logger) *CHSignalSink {
	return &CHSignalSink{db: ch.DB(), l: l}
}

func (s *CHSignalSink) Publish(ctx context.Context, sig *models.Signal) error {
	const q = `
        INSERT INTO signals (id, symbol, kind, value, price, description, detected_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	start := time.Now()
	_, err := s.db.ExecContext(ctx, q,
		sig.ID, sig.Symbol, string(sig.Kind), sig.Value, sig.Price, sig.Description, sig.DetectedAt)
	if err != nil {
		s.l.Error("clickhouse insert signal error",
			applogger.String("symbol", sig.Symbol),
			applogger.String("kind", string(sig.Kind)),
			applogger.Error(err),
		)
		return fmt.Errorf("insert signal: %w", err)
	}
	s.l.Debug("clickhouse insert signal ok",
		applogger.String("symbol", sig.Symbol),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *CHSignalSink) Close() error { return nil }

// RecentSignals is a bounded ring of the latest signals, kept so the HTTP
// API can serve them without a round trip to the durable sink. It tees
// alongside whichever sink is configured.
type RecentSignals struct {
	mu   sync.RWMutex
	buf  []*models.Signal
	next int
	full bool
}

func NewRecentSignals(capacity int) *RecentSignals {
	if capacity <= 0 {
		capacity = 100
	}
	return &RecentSignals{buf: make([]*models.Signal, capacity)}
}

func (r *RecentSignals) Add(sig *models.Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = sig
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

// List returns signals newest-first.
func (r *RecentSignals) List() []*models.Signal {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.next
	if r.full {
		n = len(r.buf)
	}
	out := make([]*models.Signal, 0, n)
	for i := 0; i < n; i++ {
		idx := (r.next - 1 - i + len(r.buf)) % len(r.buf)
		if r.buf[idx] != nil {
			out = append(out, r.buf[idx])
		}
	}
	return out
}

// TeeSink fans a signal out to the recent ring plus the durable sink.
type TeeSink struct {
	recent *RecentSignals
	sink   domrepo.SignalSink
}

func NewTeeSink(recent *RecentSignals, sink domrepo.SignalSink) *TeeSink {
	return &TeeSink{recent: recent, sink: sink}
}

func (t *TeeSink) Publish(ctx context.Context, sig *models.Signal) error {
	t.recent.Add(sig)
	return t.sink.Publish(ctx, sig)
}

func (t *TeeSink) Close() error {
	return t.sink.Close()
}
