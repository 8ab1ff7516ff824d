package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/crosslove/eventhub/internal/domain/job"
	"github.com/crosslove/eventhub/internal/jobs"
	"github.com/crosslove/eventhub/internal/observability"
	"golang.org/x/sync/errgroup"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error)
}

// Handler executes one decoded job payload.
type Handler interface {
	Handle(ctx context.Context, payload any) error
}

type HandlerFunc func(ctx context.Context, payload any) error

func (f HandlerFunc) Handle(ctx context.Context, payload any) error { return f(ctx, payload) }

type Config struct {
	PollInterval   time.Duration
	WorkerID       string
	Concurrency    int
	JobTimeout     time.Duration
	LockTTL        time.Duration // processing jobs older than this are requeued
	ReaperInterval time.Duration
	ShutdownGrace  time.Duration
}

type Worker struct {
	cfg      Config
	repo     JobsRepository
	handlers map[jobs.JobType]Handler
	logger   *slog.Logger
	prom     *observability.Prom
	stats    *observability.WorkerStats
	backoff  func(attempt int) time.Duration

	ready atomic.Bool
}

func New(cfg Config, repo JobsRepository, logger *slog.Logger, prom *observability.Prom) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if cfg.ReaperInterval <= 0 {
		cfg.ReaperInterval = time.Minute
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}

	return &Worker{
		cfg:      cfg,
		repo:     repo,
		handlers: make(map[jobs.JobType]Handler),
		logger:   logger,
		prom:     prom,
		stats:    observability.NewWorkerStats(),
		backoff:  ExponentialBackoff,
	}
}

// Register binds h to jobs of type t. Call before Run.
func (w *Worker) Register(t jobs.JobType, h Handler) {
	w.handlers[t] = h
}

func (w *Worker) Stats() *observability.WorkerStats { return w.stats }

func (w *Worker) Ready() bool { return w.ready.Load() }

// Run polls for jobs with Concurrency loops until ctx is cancelled. Jobs already
// running get ShutdownGrace to finish.
func (w *Worker) Run(ctx context.Context) error {
	// in-flight jobs keep running on this context after ctx is cancelled
	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelJobs()

	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < w.cfg.Concurrency; i++ {
		g.Go(func() error {
			return w.loop(gctx, jobCtx)
		})
	}
	g.Go(func() error {
		return w.reap(gctx)
	})

	w.ready.Store(true)
	w.logger.Info("worker started", "worker_id", w.cfg.WorkerID, "concurrency", w.cfg.Concurrency)

	<-gctx.Done()
	w.ready.Store(false)

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(w.cfg.ShutdownGrace):
		cancelJobs()
		w.logger.Warn("worker shutdown grace exceeded, cancelling in-flight jobs")
		return <-done
	}
}

func (w *Worker) loop(ctx, jobCtx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		processed, err := w.ProcessOne(jobCtx)
		if err != nil {
			w.logger.Error("worker step failed", "err", err)
		}
		if processed {
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

func (w *Worker) reap(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.ReaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := w.repo.RequeueStaleProcessing(ctx, w.cfg.LockTTL)
			if err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("requeue stale jobs failed", "err", err)
				continue
			}
			if n > 0 {
				w.logger.Warn("requeued stale jobs", "count", n)
			}
		}
	}
}
