// Package scheduler runs the periodic evaluation and sweep tasks.
package scheduler

import (
	"context"
	"time"

	"MarketWatch/pkg/logger"

	"github.com/go-co-op/gocron"
)

// Task is a periodic unit of work. The context is cancelled on shutdown.
type Task struct {
	Name   string
	Period time.Duration
	Run    func(ctx context.Context)
}

// Scheduler drives tasks on fixed periods. Every job runs in singleton
// mode: if a cycle is still running when its next tick arrives, the tick
// is skipped rather than overlapped.
type Scheduler struct {
	inner  *gocron.Scheduler
	log    *logger.Logger
	tasks  []Task
	cancel context.CancelFunc
}

// New creates a scheduler for the given tasks.
func New(log *logger.Logger, tasks ...Task) *Scheduler {
	return &Scheduler{
		inner: gocron.NewScheduler(time.UTC),
		log:   log,
		tasks: tasks,
	}
}

// Start registers and launches all tasks.
func (s *Scheduler) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	for _, task := range s.tasks {
		task := task
		_, err := s.inner.Every(task.Period).SingletonMode().Do(func() {
			start := time.Now()
			task.Run(ctx)
			s.log.Debug("task finished",
				logger.String("task", task.Name),
				logger.Duration("duration_ms", time.Since(start)))
		})
		if err != nil {
			cancel()
			return err
		}
		s.log.Info("task scheduled",
			logger.String("task", task.Name),
			logger.Duration("period_ms", task.Period))
	}

	s.inner.StartAsync()
	return nil
}

// Stop halts scheduling and cancels running cycles.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.inner.Stop()
	s.log.Info("scheduler stopped")
}
