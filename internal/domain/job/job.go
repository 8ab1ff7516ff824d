package job

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/crosslove/eventhub/internal/jobs"
	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

var ErrJobNotFound = errors.New("job not found")

type Job struct {
	ID          string          `json:"id"`
	Type        jobs.JobType    `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      Status          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"maxAttempts"`
	RunAt       time.Time       `json:"runAt"`
	LockedAt    *time.Time      `json:"lockedAt,omitempty"`
	LockedBy    *string         `json:"lockedBy,omitempty"`
	LastError   *string         `json:"lastError,omitempty"`

	// one live job per key, e.g. one confirmation per registration
	IdempotencyKey *string   `json:"idempotencyKey,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type CreateRequest struct {
	Type           jobs.JobType
	Payload        any
	RunAt          time.Time
	MaxAttempts    int
	IdempotencyKey string
}

// New validates and encodes the payload for its type.
func New(req CreateRequest, now time.Time) (Job, error) {
	raw, err := jobs.EncodePayload(req.Type, req.Payload)
	if err != nil {
		return Job{}, err
	}

	now = now.UTC()

	maxA := req.MaxAttempts
	if maxA <= 0 {
		maxA = req.Type.MaxAttempts()
	}

	runAt := req.RunAt
	if runAt.IsZero() {
		runAt = now
	}

	j := Job{
		ID:          uuid.NewString(),
		Type:        req.Type,
		Payload:     raw,
		Status:      StatusPending,
		MaxAttempts: maxA,
		RunAt:       runAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		j.IdempotencyKey = &key
	}

	return j, nil
}

// Exhausted reports whether the attempt just made was the last one allowed.
func (j Job) Exhausted() bool {
	return j.Attempts >= j.MaxAttempts
}
