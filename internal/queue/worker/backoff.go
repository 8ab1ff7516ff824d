package worker

import (
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// ExponentialBackoff returns the delay before retry number attempt (1-based):
// 2s, 4s, 8s... capped at 5 minutes, plus up to 250ms of jitter.
func ExponentialBackoff(attempt int) time.Duration {
	base := 2 * time.Second
	capDelay := 5 * time.Minute

	if attempt < 1 {
		attempt = 1
	}

	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
	if delay > capDelay || delay <= 0 {
		delay = capDelay
	}

	return delay + time.Duration(rand.IntN(250))*time.Millisecond
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. The job is failed right away.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
