package job

import (
	"testing"
	"time"

	"github.com/crosslove/eventhub/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	j, err := New(CreateRequest{
		Type:           jobs.JobGeocodeEvent,
		Payload:        jobs.GeocodeEventPayload{EventID: "e1"},
		IdempotencyKey: "geocode:e1",
	}, now)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, j.Status)
	assert.Equal(t, jobs.JobGeocodeEvent.MaxAttempts(), j.MaxAttempts)
	assert.True(t, j.RunAt.Equal(now))
	require.NotNil(t, j.IdempotencyKey)
	assert.Equal(t, "geocode:e1", *j.IdempotencyKey)
	assert.JSONEq(t, `{"eventId":"e1"}`, string(j.Payload))
}

func TestNew_RejectsMismatchedPayload(t *testing.T) {
	_, err := New(CreateRequest{
		Type:    jobs.JobRegistrationConfirmation,
		Payload: jobs.GeocodeEventPayload{EventID: "e1"},
	}, time.Now())

	assert.ErrorIs(t, err, jobs.ErrPayloadTypeMismatch)
}

func TestExhausted(t *testing.T) {
	j := Job{Attempts: 4, MaxAttempts: 5}
	assert.False(t, j.Exhausted())

	j.Attempts = 5
	assert.True(t, j.Exhausted())
}
