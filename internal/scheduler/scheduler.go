package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// WeatherJobs is the slice of the weather service the background jobs need.
type WeatherJobs interface {
	Warm(ctx context.Context, locationIDs []int64) int
	PruneHistory(ctx context.Context, maxAge time.Duration) (int64, error)
}

// PoolReporter publishes database pool statistics.
type PoolReporter interface {
	CollectPoolMetrics()
}

// Options configures the periodic jobs.
type Options struct {
	Interval        time.Duration
	HistoryMaxAge   time.Duration
	WarmLocationIDs []int64
	WarmWorkers     int
	JobTimeout      time.Duration
}

// Scheduler runs history retention, cache warm-up and pool metrics on a
// fixed interval.
type Scheduler struct {
	scheduler *gocron.Scheduler
	jobs      WeatherJobs
	pool      PoolReporter
	opts      Options
	log       *zap.SugaredLogger
}

// New creates a new Scheduler.  pool may be nil.
func New(jobs WeatherJobs, pool PoolReporter, opts Options, log *zap.Logger) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 15 * time.Minute
	}
	if opts.WarmWorkers <= 0 {
		opts.WarmWorkers = 4
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		jobs:      jobs,
		pool:      pool,
		opts:      opts,
		log:       log.Sugar().Named("scheduler"),
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.opts.HistoryMaxAge <= 0 && len(s.opts.WarmLocationIDs) == 0 && s.pool == nil {
		s.log.Info("no jobs configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.opts.Interval).Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.log.Infow("scheduler started",
		"interval", s.opts.Interval,
		"history_max_age", s.opts.HistoryMaxAge,
		"warm_locations", len(s.opts.WarmLocationIDs),
	)
	return nil
}

// RunOnce executes every job once.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.JobTimeout)
	defer cancel()

	if s.pool != nil {
		s.pool.CollectPoolMetrics()
	}
	if _, err := s.Prune(ctx); err != nil {
		s.log.Errorw("history prune failed", "err", err)
	}
	if failed := s.WarmUp(ctx); failed > 0 {
		s.log.Warnw("weather warm-up finished with failures", "failed", failed, "total", len(s.opts.WarmLocationIDs))
	}
}

// Prune removes weather history older than HistoryMaxAge.
func (s *Scheduler) Prune(ctx context.Context) (int64, error) {
	if s.opts.HistoryMaxAge <= 0 {
		return 0, nil
	}
	return s.jobs.PruneHistory(ctx, s.opts.HistoryMaxAge)
}

// WarmUp refreshes the configured locations across WarmWorkers goroutines
// and returns the number of failures.
func (s *Scheduler) WarmUp(ctx context.Context) int {
	ids := s.opts.WarmLocationIDs
	if len(ids) == 0 {
		return 0
	}

	workers := min(s.opts.WarmWorkers, len(ids))
	chunk := (len(ids) + workers - 1) / workers

	var (
		wg     sync.WaitGroup
		failed atomic.Int64
	)
	for start := 0; start < len(ids); start += chunk {
		part := ids[start:min(start+chunk, len(ids))]
		wg.Add(1)
		go func() {
			defer wg.Done()
			failed.Add(int64(s.jobs.Warm(ctx, part)))
		}()
	}
	wg.Wait()
	return int(failed.Load())
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
