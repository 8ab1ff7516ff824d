package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/crosslove/eventhub/internal/domain/job"
	"github.com/crosslove/eventhub/internal/jobs"
	"github.com/crosslove/eventhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type JobsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewJobsRepo(pool *pgxpool.Pool, prom *observability.Prom) *JobsRepo {
	return &JobsRepo{pool: pool, prom: prom}
}

func (r *JobsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// executor is satisfied by both the pool and a transaction.
type executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// a duplicate idempotency key is not an error: the job is already queued
const insertJob = `
	INSERT INTO jobs (
		id, type, payload, status, attempts, max_attempts, run_at,
		idempotency_key, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	ON CONFLICT (idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING
`

func (r *JobsRepo) insert(ctx context.Context, ex executor, op string, j job.Job) error {
	return r.observe(op, func() error {
		_, err := ex.Exec(ctx, insertJob,
			j.ID, string(j.Type), []byte(j.Payload), string(j.Status), j.Attempts, j.MaxAttempts, j.RunAt,
			j.IdempotencyKey, j.CreatedAt, j.UpdatedAt,
		)
		return err
	})
}

func (r *JobsRepo) Create(ctx context.Context, req job.CreateRequest) (job.Job, error) {
	j, err := job.New(req, time.Now())
	if err != nil {
		return job.Job{}, err
	}

	if err = r.insert(ctx, r.pool, "jobs.create", j); err != nil {
		return job.Job{}, err
	}
	return j, nil
}

// CreateTx enqueues inside the caller's transaction so the job commits with the write.
func (r *JobsRepo) CreateTx(ctx context.Context, tx pgx.Tx, req job.CreateRequest) (job.Job, error) {
	j, err := job.New(req, time.Now())
	if err != nil {
		return job.Job{}, err
	}

	if err = r.insert(ctx, tx, "jobs.create_tx", j); err != nil {
		return job.Job{}, err
	}
	return j, nil
}

func (r *JobsRepo) update(ctx context.Context, op, q string, args ...any) error {
	var tag pgconn.CommandTag

	err := r.observe(op, func() error {
		var err error
		tag, err = r.pool.Exec(ctx, q, args...)
		return err
	})
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return job.ErrJobNotFound
	}
	return nil
}

// MarkFailed dead-letters the job and counts the attempt that just failed.
func (r *JobsRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	return r.update(ctx, "jobs.mark_failed", `
		UPDATE jobs
		SET status = 'failed',
		    attempts = attempts + 1,
		    locked_at = NULL,
		    locked_by = NULL,
		    last_error = $2,
		    updated_at = NOW()
		WHERE id = $1
	`, id, errMsg)
}

func (r *JobsRepo) MarkDone(ctx context.Context, id string) error {
	return r.update(ctx, "jobs.mark_done", `
		UPDATE jobs
		SET status = 'done',
		    attempts = attempts + 1,
		    locked_at = NULL,
		    locked_by = NULL,
		    last_error = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`, id)
}

// Reschedule puts the job back to pending for a retry at runAt.
func (r *JobsRepo) Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	return r.update(ctx, "jobs.reschedule", `
		UPDATE jobs
		SET status = 'pending',
		    attempts = attempts + 1,
		    run_at = $2,
		    locked_at = NULL,
		    locked_by = NULL,
		    last_error = $3,
		    updated_at = NOW()
		WHERE id = $1
	`, id, runAt, errMsg)
}

func (r *JobsRepo) ClaimNext(ctx context.Context, workerID string) (job.Job, error) {
	// Single statement claim using SKIP LOCKED.
	var j job.Job
	var jobType, status string

	err := r.observe("jobs.claim_next", func() error {
		return r.pool.QueryRow(ctx, `
		WITH next AS (
			SELECT id
			FROM jobs
			WHERE status = 'pending'
			  AND run_at <= NOW()
			  AND attempts < max_attempts
			ORDER BY run_at ASC, created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		UPDATE jobs
		SET status = 'processing',
		    locked_at = NOW(),
		    locked_by = $1,
		    updated_at = NOW()
		WHERE id = (SELECT id FROM next)
		RETURNING id, type, payload, status,
		          attempts, max_attempts,
		          run_at, locked_at, locked_by,
		          last_error, idempotency_key, created_at, updated_at
	`, workerID).Scan(
			&j.ID, &jobType, &j.Payload, &status,
			&j.Attempts, &j.MaxAttempts,
			&j.RunAt, &j.LockedAt, &j.LockedBy,
			&j.LastError, &j.IdempotencyKey, &j.CreatedAt, &j.UpdatedAt,
		)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return job.Job{}, job.ErrJobNotFound // nothing ready
		}
		return job.Job{}, err
	}

	j.Type = jobs.JobType(jobType)
	j.Status = job.Status(status)
	return j, nil
}

// RequeueStaleProcessing releases jobs whose worker died mid-run.
func (r *JobsRepo) RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error) {
	secs := int64(lockTTL.Seconds())
	if secs <= 0 {
		secs = 30
	}

	var rows int64
	err := r.observe("jobs.requeue_stale", func() error {
		tag, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'pending',
		    locked_at = NULL,
		    locked_by = NULL,
		    updated_at = NOW()
		WHERE status = 'processing'
		  AND locked_at IS NOT NULL
		  AND locked_at < NOW() - ($1 * INTERVAL '1 second')
	`, secs)
		if err != nil {
			return err
		}
		rows = tag.RowsAffected()
		return nil
	})

	return rows, err
}
