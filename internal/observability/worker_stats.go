package observability

import (
	"sync/atomic"
	"time"
)

// WorkerStats keeps process-local counters for the job worker. They back the JSON
// stats endpoint of the worker health server, next to the Prometheus series.
type WorkerStats struct {
	claimed      atomic.Uint64
	done         atomic.Uint64
	retried      atomic.Uint64
	deadLettered atomic.Uint64

	// nanoseconds
	durationCount atomic.Uint64
	durationTotal atomic.Int64
	durationMax   atomic.Int64

	// unix nanoseconds of the last finished job, 0 when none
	lastFinished atomic.Int64
}

func NewWorkerStats() *WorkerStats {
	return &WorkerStats{}
}

func (s *WorkerStats) IncClaimed()      { s.claimed.Add(1) }
func (s *WorkerStats) IncDone()         { s.done.Add(1) }
func (s *WorkerStats) IncRetried()      { s.retried.Add(1) }
func (s *WorkerStats) IncDeadLettered() { s.deadLettered.Add(1) }

func (s *WorkerStats) ObserveDuration(d time.Duration) {
	ns := d.Nanoseconds()
	s.durationCount.Add(1)
	s.durationTotal.Add(ns)
	s.lastFinished.Store(time.Now().UnixNano())

	for {
		curr := s.durationMax.Load()
		if ns <= curr {
			return
		}
		if s.durationMax.CompareAndSwap(curr, ns) {
			return
		}
	}
}

type WorkerStatsSnapshot struct {
	Claimed         uint64     `json:"claimed"`
	Done            uint64     `json:"done"`
	Retried         uint64     `json:"retried"`
	DeadLettered    uint64     `json:"deadLettered"`
	DurationCount   uint64     `json:"durationCount"`
	AverageDuration string     `json:"averageDuration"`
	MaxDuration     string     `json:"maxDuration"`
	LastFinishedAt  *time.Time `json:"lastFinishedAt,omitempty"`
}

func (s *WorkerStats) Snapshot() WorkerStatsSnapshot {
	count := s.durationCount.Load()
	total := s.durationTotal.Load()

	var avg time.Duration
	if count > 0 {
		avg = time.Duration(total / int64(count))
	}

	snap := WorkerStatsSnapshot{
		Claimed:         s.claimed.Load(),
		Done:            s.done.Load(),
		Retried:         s.retried.Load(),
		DeadLettered:    s.deadLettered.Load(),
		DurationCount:   count,
		AverageDuration: avg.String(),
		MaxDuration:     time.Duration(s.durationMax.Load()).String(),
	}

	if last := s.lastFinished.Load(); last > 0 {
		t := time.Unix(0, last).UTC()
		snap.LastFinishedAt = &t
	}

	return snap
}
