package di

import (
	"context"
	"fmt"
	"time"

	"MarketWatch/internal/domain/repository"
	"MarketWatch/internal/handler/api"
	"MarketWatch/internal/notify"
	internalrepo "MarketWatch/internal/repository"
	"MarketWatch/internal/scheduler"
	"MarketWatch/internal/service/quota"
	"MarketWatch/internal/service/source"
	"MarketWatch/internal/usecase"

	"MarketWatch/pkg/cache"
	pkgch "MarketWatch/pkg/clickhouse"
	"MarketWatch/pkg/config"
	xhttp "MarketWatch/pkg/http"
	pkgkafka "MarketWatch/pkg/kafka"
	"MarketWatch/pkg/logger"
	"MarketWatch/pkg/metrics"
	"MarketWatch/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideQuotaTracker registers the call budget of every enabled source.
func ProvideQuotaTracker(cfg *config.Config) repository.QuotaTracker {
	t := quota.New()
	if cfg.Sources.Yahoo.Enabled && cfg.Sources.Yahoo.Limit > 0 {
		t.SetLimit("yahoo", cfg.Sources.Yahoo.Limit, cfg.Sources.Yahoo.Window)
	}
	if cfg.Sources.Finnhub.Enabled && cfg.Sources.Finnhub.Limit > 0 {
		t.SetLimit("finnhub", cfg.Sources.Finnhub.Limit, cfg.Sources.Finnhub.Window)
	}
	if cfg.Sources.Alpha.Enabled && cfg.Sources.Alpha.Limit > 0 {
		t.SetLimit("alpha_vantage", cfg.Sources.Alpha.Limit, cfg.Sources.Alpha.Window)
	}
	// the websocket book costs nothing to read, no limit for it
	return t
}

// ProvideHTTPClient creates the shared upstream HTTP client.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(cfg.Sources.Timeout))
}

// ProvideStream creates the websocket stream source, or nil when disabled.
func ProvideStream(cfg *config.Config, log *logger.Logger) *source.Stream {
	sc := cfg.Sources.Stream
	if !sc.Enabled {
		return nil
	}
	return source.NewStream(source.StreamOptions{
		URL:            sc.URL,
		APIKey:         sc.APIKey,
		Symbols:        sc.Symbols,
		ReconnectDelay: sc.ReconnectDelay,
		PingInterval:   sc.PingInterval,
		MaxAge:         sc.MaxAge,
	}, log)
}

// ProvideSources assembles the enabled source adapters.
func ProvideSources(cfg *config.Config, client *xhttp.Client, stream *source.Stream) []repository.Source {
	out := make([]repository.Source, 0, 4)
	if stream != nil {
		out = append(out, stream)
	}
	if cfg.Sources.Yahoo.Enabled {
		out = append(out, source.NewYahoo(client, cfg.Sources.Yahoo.BaseURL, cfg.Sources.Yahoo.Priority))
	}
	if cfg.Sources.Alpha.Enabled {
		out = append(out, source.NewAlphaVantage(client, cfg.Sources.Alpha.BaseURL, cfg.Sources.Alpha.APIKey, cfg.Sources.Alpha.Priority))
	}
	if cfg.Sources.Finnhub.Enabled {
		out = append(out, source.NewFinnhub(client, cfg.Sources.Finnhub.BaseURL, cfg.Sources.Finnhub.APIKey, cfg.Sources.Finnhub.Priority))
	}
	return out
}

// ProvideCache picks the cache backend: memory alone, or memory layered
// over Redis when Redis is configured.
func ProvideCache(cfg *config.Config, log *logger.Logger) (cache.Service, error) {
	mem := cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MaxEntries))
	if !cfg.Cache.Redis.Enabled {
		return mem, nil
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Cache.Redis.Host),
		cache.WithRedisPort(cfg.Cache.Redis.Port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	_ = mem.Close()
	log.Info("layered cache enabled",
		logger.String("redis", fmt.Sprintf("%s:%d", cfg.Cache.Redis.Host, cfg.Cache.Redis.Port)))
	return cache.NewLayeredCache(rc, cache.WithLayeredMemorySize(cfg.Cache.MaxEntries)), nil
}

// ProvideAggregator creates the resolution pipeline.
func ProvideAggregator(
	cfg *config.Config,
	sources []repository.Source,
	quotaTracker repository.QuotaTracker,
	cacheSvc cache.Service,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.Aggregator {
	return usecase.NewAggregator(sources, quotaTracker, cacheSvc, m, log, usecase.AggregatorConfig{
		QuoteTTL:    cfg.Cache.QuoteTTL,
		SeriesTTL:   cfg.Cache.SeriesTTL,
		StaleFactor: cfg.Cache.StaleFactor,
	})
}

// ProvideAlertStore creates the alert store.
func ProvideAlertStore(cfg *config.Config) repository.AlertStore {
	return internalrepo.NewMemoryAlertStore(cfg.Alerts.MaxPerOwner)
}

// ProvideNotifier creates the notification delivery channel.
func ProvideNotifier(log *logger.Logger) repository.Notifier {
	return notify.NewLogNotifier(log)
}

// ProvideNotifyQueue creates the notification dispatch queue.
func ProvideNotifyQueue(cfg *config.Config, notifier repository.Notifier, log *logger.Logger) *notify.Queue {
	return notify.NewQueue(notifier, log, notify.QueueConfig{
		Workers:    cfg.Notify.Workers,
		QueueSize:  cfg.Notify.QueueSize,
		RetryLimit: 2,
		RetryDelay: 5 * time.Second,
	})
}

// ProvideRecentSignals creates the in-memory signal ring for the API.
func ProvideRecentSignals() *internalrepo.RecentSignals {
	return internalrepo.NewRecentSignals(100)
}

// ProvideSignalSink routes scanner output per configuration, teeing every
// signal through the recent ring.
func ProvideSignalSink(cfg *config.Config, recent *internalrepo.RecentSignals, log *logger.Logger) (repository.SignalSink, error) {
	var durable repository.SignalSink
	switch cfg.Sink.Type {
	case "kafka":
		kc := cfg.Sink.Kafka
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(kc.Brokers),
			pkgkafka.WithTopic(kc.Topic),
			pkgkafka.WithRequiredAcks(kc.RequiredAcks),
			pkgkafka.WithCompression(kc.Compression),
			pkgkafka.WithWriteTimeout(kc.WriteTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		durable = internalrepo.NewKafkaSignalSink(producer, log)
	case "clickhouse":
		cc := cfg.Sink.ClickHouse
		client, err := pkgch.NewClient(
			pkgch.WithHost(cc.Host),
			pkgch.WithPort(cc.Port),
			pkgch.WithDatabase(cc.Database),
			pkgch.WithCredentials(cc.User, cc.Password),
			pkgch.WithDialTimeout(cc.DialTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.InitSchema(ctx, internalrepo.SignalSchema(cc.Database)); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		durable = internalrepo.NewCHSignalSink(client, log)
	default:
		durable = internalrepo.NewLogSignalSink(log)
	}
	return internalrepo.NewTeeSink(recent, durable), nil
}

// ProvideEvaluator creates the alert evaluator.
func ProvideEvaluator(
	cfg *config.Config,
	agg *usecase.Aggregator,
	store repository.AlertStore,
	queue *notify.Queue,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.Evaluator {
	return usecase.NewEvaluator(agg, store, queue, m, log, usecase.EvaluatorConfig{
		Concurrency:    cfg.Evaluator.Concurrency,
		RsiLookback:    cfg.Indicators.RsiLookback,
		VolumeLookback: cfg.Indicators.VolumeLookback,
	})
}

// ProvideScanner creates the universe scanner.
func ProvideScanner(
	cfg *config.Config,
	agg *usecase.Aggregator,
	sink repository.SignalSink,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.Scanner {
	return usecase.NewScanner(agg, sink, m, log, usecase.ScannerConfig{
		Universe:    cfg.Scanner.Universe,
		Concurrency: cfg.Scanner.Concurrency,
		MarketHours: usecase.MarketHours{
			Enabled:  cfg.Scanner.MarketHours.Enabled,
			Open:     cfg.Scanner.MarketHours.Open,
			Close:    cfg.Scanner.MarketHours.Close,
			Timezone: cfg.Scanner.MarketHours.Timezone,
		},
		RsiLookback:      cfg.Indicators.RsiLookback,
		RsiOversold:      cfg.Indicators.RsiOversold,
		RsiOverbought:    cfg.Indicators.RsiOverbought,
		MacdFast:         cfg.Indicators.MacdFast,
		MacdSlow:         cfg.Indicators.MacdSlow,
		MacdSignal:       cfg.Indicators.MacdSignal,
		BollingerPeriod:  cfg.Indicators.BollingerPeriod,
		BollingerStdDev:  cfg.Indicators.BollingerStdDev,
		SqueezeFraction:  cfg.Indicators.SqueezeFraction,
		VolumeLookback:   cfg.Indicators.VolumeLookback,
		VolumeMultiplier: cfg.Indicators.VolumeMultiplier,
		BreakoutBandPct:  cfg.Indicators.BreakoutBandPct,
	})
}

// ProvideScheduler registers the periodic tasks.
func ProvideScheduler(
	cfg *config.Config,
	eval *usecase.Evaluator,
	scan *usecase.Scanner,
	log *logger.Logger,
) *scheduler.Scheduler {
	return scheduler.New(log,
		scheduler.Task{Name: "evaluator", Period: cfg.Evaluator.Period, Run: eval.RunCycle},
		scheduler.Task{Name: "scanner", Period: cfg.Scanner.Period, Run: scan.RunSweep},
	)
}

// ProvideHTTPHandler creates the API handler.
func ProvideHTTPHandler(
	log *logger.Logger,
	store repository.AlertStore,
	recent *internalrepo.RecentSignals,
	agg *usecase.Aggregator,
) xhttp.Handler {
	return api.NewAlertsHandler(log, store, recent, agg)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	handler xhttp.Handler,
	stream *source.Stream,
	queue *notify.Queue,
	sched *scheduler.Scheduler,
	sink repository.SignalSink,
	cacheSvc cache.Service,
) *server.App {
	return server.New(cfg, log, handler, stream, queue, sched, sink, cacheSvc)
}
