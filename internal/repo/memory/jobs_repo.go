package memory

import (
	"context"
	"sort"
	"time"

	"github.com/crosslove/eventhub/internal/domain/job"
)

type JobsRepo struct {
	s *Store
}

// enqueue skips jobs whose idempotency key is already queued. Lock must be held.
func (s *Store) enqueue(j job.Job) {
	if j.IdempotencyKey != nil {
		for _, existing := range s.jobs {
			if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *j.IdempotencyKey {
				return
			}
		}
	}
	s.jobs[j.ID] = j
}

func (r *JobsRepo) Create(_ context.Context, req job.CreateRequest) (job.Job, error) {
	j, err := job.New(req, time.Now())
	if err != nil {
		return job.Job{}, err
	}

	r.s.mu.Lock()
	r.s.enqueue(j)
	r.s.mu.Unlock()

	return j, nil
}

// List returns every job in creation order, for assertions in tests.
func (r *JobsRepo) List() []job.Job {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]job.Job, 0, len(r.s.jobs))
	for _, j := range r.s.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	return out
}

func (r *JobsRepo) ClaimNext(_ context.Context, workerID string) (job.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	var next *job.Job
	for _, j := range r.s.jobs {
		if j.Status != job.StatusPending || j.RunAt.After(now) || j.Attempts >= j.MaxAttempts {
			continue
		}
		if next == nil || j.RunAt.Before(next.RunAt) {
			candidate := j
			next = &candidate
		}
	}
	if next == nil {
		return job.Job{}, job.ErrJobNotFound
	}

	next.Status = job.StatusProcessing
	next.LockedAt = &now
	next.LockedBy = &workerID
	next.UpdatedAt = now
	r.s.jobs[next.ID] = *next

	return *next, nil
}

func (r *JobsRepo) finish(id string, fn func(j *job.Job)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	j, ok := r.s.jobs[id]
	if !ok {
		return job.ErrJobNotFound
	}

	j.Attempts++
	j.LockedAt = nil
	j.LockedBy = nil
	j.UpdatedAt = time.Now()
	fn(&j)
	r.s.jobs[id] = j
	return nil
}

func (r *JobsRepo) MarkDone(_ context.Context, id string) error {
	return r.finish(id, func(j *job.Job) {
		j.Status = job.StatusDone
		j.LastError = nil
	})
}

func (r *JobsRepo) MarkFailed(_ context.Context, id string, errMsg string) error {
	return r.finish(id, func(j *job.Job) {
		j.Status = job.StatusFailed
		j.LastError = &errMsg
	})
}

func (r *JobsRepo) Reschedule(_ context.Context, id string, runAt time.Time, errMsg string) error {
	return r.finish(id, func(j *job.Job) {
		j.Status = job.StatusPending
		j.RunAt = runAt
		j.LastError = &errMsg
	})
}

func (r *JobsRepo) RequeueStaleProcessing(_ context.Context, lockTTL time.Duration) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cutoff := time.Now().Add(-lockTTL)
	var n int64
	for id, j := range r.s.jobs {
		if j.Status == job.StatusProcessing && j.LockedAt != nil && j.LockedAt.Before(cutoff) {
			j.Status = job.StatusPending
			j.LockedAt = nil
			j.LockedBy = nil
			r.s.jobs[id] = j
			n++
		}
	}
	return n, nil
}
