package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"MarketWatch/internal/domain/repository"
	"MarketWatch/internal/notify"
	"MarketWatch/internal/scheduler"
	"MarketWatch/internal/service/source"

	"MarketWatch/pkg/cache"
	"MarketWatch/pkg/config"
	xhttp "MarketWatch/pkg/http"
	applogger "MarketWatch/pkg/logger"
)

// App encapsulates the application lifecycle: the stream source, the
// notification queue, the task scheduler and the HTTP surface.
type App struct {
	cfg     *config.Config
	log     *applogger.Logger
	handler xhttp.Handler
	stream  *source.Stream
	queue   *notify.Queue
	sched   *scheduler.Scheduler
	sink    repository.SignalSink
	cache   cache.Service

	httpServer *xhttp.Server
	streamStop context.CancelFunc
}

// New creates an App with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	handler xhttp.Handler,
	stream *source.Stream,
	queue *notify.Queue,
	sched *scheduler.Scheduler,
	sink repository.SignalSink,
	cacheSvc cache.Service,
) *App {
	return &App{
		cfg:     cfg,
		log:     log,
		handler: handler,
		stream:  stream,
		queue:   queue,
		sched:   sched,
		sink:    sink,
		cache:   cacheSvc,
	}
}

// Run starts all components and blocks until interrupted.
func (a *App) Run() error {
	if a.stream != nil {
		ctx, cancel := context.WithCancel(context.Background())
		a.streamStop = cancel
		go a.stream.Run(ctx)
		a.log.Info("stream source started",
			applogger.Strings("symbols", a.cfg.Sources.Stream.Symbols))
	}

	if err := a.queue.Start(); err != nil {
		return err
	}

	if err := a.sched.Start(); err != nil {
		return err
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("started",
		applogger.String("environment", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Int("universe", len(a.cfg.Scanner.Universe)))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops components in reverse start order: no new cycles, drain
// notifications, then release transports and stores.
func (a *App) shutdown() error {
	a.sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.queue.Stop(ctx); err != nil {
		a.log.Warn("notify queue stop error", applogger.Error(err))
	}

	if a.streamStop != nil {
		a.streamStop()
	}

	if err := a.sink.Close(); err != nil {
		a.log.Warn("signal sink close error", applogger.Error(err))
	}
	if err := a.cache.Close(); err != nil {
		a.log.Warn("cache close error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}
