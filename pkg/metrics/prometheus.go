package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	resolves        *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	quotaRefusals   *prometheus.CounterVec
	alertsTriggered *prometheus.CounterVec
	signalsEmitted  *prometheus.CounterVec
	cycleDuration   *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		resolves: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketwatch_resolves_total",
				Help: "Total data resolutions by source and outcome",
			},
			[]string{"source", "kind", "outcome"},
		),
		cacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketwatch_cache_hits_total",
				Help: "Cache hits by data kind; stale label marks degraded reads",
			},
			[]string{"kind", "stale"},
		),
		cacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketwatch_cache_misses_total",
				Help: "Cache misses by data kind",
			},
			[]string{"kind"},
		),
		quotaRefusals: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketwatch_quota_refusals_total",
				Help: "Quota reservations refused by source",
			},
			[]string{"source"},
		),
		alertsTriggered: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketwatch_alerts_triggered_total",
				Help: "Alerts transitioned to triggered by kind",
			},
			[]string{"kind"},
		),
		signalsEmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketwatch_signals_emitted_total",
				Help: "Scanner signals emitted by kind",
			},
			[]string{"kind"},
		),
		cycleDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketwatch_cycle_duration_seconds",
				Help:    "Duration of evaluator/scanner cycles in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"task"},
		),
	}
}

// RecordResolve records one aggregator resolution attempt outcome.
func (r *Recorder) RecordResolve(source, kind, outcome string) {
	r.resolves.WithLabelValues(source, kind, outcome).Inc()
}

// RecordCacheHit records a cache hit, fresh or stale.
func (r *Recorder) RecordCacheHit(kind string, stale bool) {
	r.cacheHits.WithLabelValues(kind, strconv.FormatBool(stale)).Inc()
}

// RecordCacheMiss records a cache miss.
func (r *Recorder) RecordCacheMiss(kind string) {
	r.cacheMisses.WithLabelValues(kind).Inc()
}

// RecordQuotaRefusal records a refused quota reservation.
func (r *Recorder) RecordQuotaRefusal(source string) {
	r.quotaRefusals.WithLabelValues(source).Inc()
}

// RecordAlertTriggered records an alert trigger.
func (r *Recorder) RecordAlertTriggered(kind string) {
	r.alertsTriggered.WithLabelValues(kind).Inc()
}

// RecordSignalEmitted records a scanner signal.
func (r *Recorder) RecordSignalEmitted(kind string) {
	r.signalsEmitted.WithLabelValues(kind).Inc()
}

// RecordCycleDuration records one periodic cycle's duration.
func (r *Recorder) RecordCycleDuration(task string, seconds float64) {
	r.cycleDuration.WithLabelValues(task).Observe(seconds)
}
