package observability

import (
	"sync/atomic"
	"time"
)

// CleanupStats is the worker's in-process tally, served on its /stats
// endpoint next to the Prometheus counters.
type CleanupStats struct {
	claimed atomic.Uint64
	removed atomic.Uint64
	retried atomic.Uint64
	failed  atomic.Uint64

	// duration stats (nanoseconds)
	durationCount atomic.Uint64
	durationTotal atomic.Int64
	durationMax   atomic.Int64
}

func NewCleanupStats() *CleanupStats {
	return &CleanupStats{}
}

func (m *CleanupStats) AddClaimed(n int) { m.claimed.Add(uint64(n)) }
func (m *CleanupStats) IncRemoved()      { m.removed.Add(1) }
func (m *CleanupStats) IncRetried()      { m.retried.Add(1) }
func (m *CleanupStats) IncFailed()       { m.failed.Add(1) }

func (m *CleanupStats) ObserveDuration(d time.Duration) {
	ns := d.Nanoseconds()
	m.durationCount.Add(1)
	m.durationTotal.Add(ns)

	for {
		curr := m.durationMax.Load()

		if ns <= curr {
			return
		}

		if m.durationMax.CompareAndSwap(curr, ns) {
			return
		}
	}
}

type CleanupSnapshot struct {
	Claimed         uint64        `json:"claimed"`
	Removed         uint64        `json:"removed"`
	Retried         uint64        `json:"retried"`
	Failed          uint64        `json:"failed"`
	Batches         uint64        `json:"batches"`
	AverageDuration time.Duration `json:"averageDurationNs"`
	MaxDuration     time.Duration `json:"maxDurationNs"`
}

func (m *CleanupStats) Snapshot() CleanupSnapshot {
	count := m.durationCount.Load()
	total := m.durationTotal.Load()

	var avg time.Duration

	if count > 0 {
		avg = time.Duration(total / int64(count))
	}

	return CleanupSnapshot{
		Claimed:         m.claimed.Load(),
		Removed:         m.removed.Load(),
		Retried:         m.retried.Load(),
		Failed:          m.failed.Load(),
		Batches:         count,
		AverageDuration: avg,
		MaxDuration:     time.Duration(m.durationMax.Load()),
	}
}
