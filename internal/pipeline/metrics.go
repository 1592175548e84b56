// Package pipeline implements pipeline metrics.
package pipeline

import (
	"sync/atomic"
)

// Metrics contains per-pipeline round trip counters.
type Metrics struct {
	// Counters (using atomic for thread-safety)
	Sent         atomic.Uint64
	Received     atomic.Uint64
	EncodeErrors atomic.Uint64
	DecodeErrors atomic.Uint64
}

// Snapshot is a point-in-time copy of Metrics.
type Snapshot struct {
	Sent         uint64
	Received     uint64
	EncodeErrors uint64
	DecodeErrors uint64
}

// Snapshot reads every counter.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Sent:         m.Sent.Load(),
		Received:     m.Received.Load(),
		EncodeErrors: m.EncodeErrors.Load(),
		DecodeErrors: m.DecodeErrors.Load(),
	}
}

// Reset resets all counters to zero.
func (m *Metrics) Reset() {
	m.Sent.Store(0)
	m.Received.Store(0)
	m.EncodeErrors.Store(0)
	m.DecodeErrors.Store(0)
}
