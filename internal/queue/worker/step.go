package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crosslove/eventhub/internal/domain/job"
	"github.com/crosslove/eventhub/internal/jobs"
)

// ProcessOne claims and runs a single job. It reports false when nothing was due.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}
		return false, err
	}

	w.stats.IncClaimed()
	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
		defer w.prom.JobsInFlight.Dec()
	}

	start := time.Now()
	err = w.execute(ctx, j)
	elapsed := time.Since(start)
	w.stats.ObserveDuration(elapsed)

	if err != nil {
		return true, w.handleFailure(ctx, j, err, elapsed)
	}

	if err := w.repo.MarkDone(ctx, j.ID); err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		return true, err
	}

	w.stats.IncDone()
	w.observe(j.Type, "done", elapsed)
	w.logger.InfoContext(ctx, "job done", "job_id", j.ID, "job_type", j.Type, "attempt", j.Attempts+1)
	return true, nil
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	h, ok := w.handlers[j.Type]
	if !ok {
		return Permanent(fmt.Errorf("%w: no handler for %q", jobs.ErrInvalidJobType, j.Type))
	}

	payload, err := jobs.DecodePayload(j.Type, j.Payload)
	if err != nil {
		return Permanent(err)
	}

	runCtx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
	defer cancel()

	return h.Handle(runCtx, payload)
}

func (w *Worker) handleFailure(ctx context.Context, j job.Job, cause error, elapsed time.Duration) error {
	// Attempts still holds the count before this run
	attempt := j.Attempts + 1
	msg := cause.Error()

	if IsPermanent(cause) || attempt >= j.MaxAttempts {
		w.stats.IncDeadLettered()
		w.observe(j.Type, "failed", elapsed)
		w.logger.ErrorContext(ctx, "job failed", "job_id", j.ID, "job_type", j.Type, "attempt", attempt, "err", msg)
		return w.repo.MarkFailed(ctx, j.ID, msg)
	}

	runAt := time.Now().Add(w.backoff(attempt))

	w.stats.IncRetried()
	w.observe(j.Type, "retry", elapsed)
	w.logger.WarnContext(ctx, "job retry scheduled", "job_id", j.ID, "job_type", j.Type, "attempt", attempt, "run_at", runAt, "err", msg)
	return w.repo.Reschedule(ctx, j.ID, runAt, msg)
}

func (w *Worker) observe(t jobs.JobType, result string, elapsed time.Duration) {
	if w.prom == nil {
		return
	}
	w.prom.JobResults.WithLabelValues(string(t), result).Inc()
	w.prom.JobDuration.WithLabelValues(string(t), result).Observe(elapsed.Seconds())
}
