package debug

import (
	"math"
	"sync/atomic"
	"time"
)

// LoadMeter measures how much of each block's real-time budget processing
// consumed. Begin and End are safe on the audio thread; Snapshot may be
// called from any goroutine.
type LoadMeter struct {
	epoch time.Time

	blocks     atomic.Uint64
	busyNanos  atomic.Int64
	budgetNano atomic.Int64
	last       atomic.Uint64 // float64 bits
	peak       atomic.Uint64 // float64 bits
}

// LoadStats is a point-in-time view of a LoadMeter.
type LoadStats struct {
	Blocks   uint64
	Busy     time.Duration
	LastLoad float64 // fraction of the block duration
	PeakLoad float64
	AvgLoad  float64
}

// NewLoadMeter creates a meter.
func NewLoadMeter() *LoadMeter {
	return &LoadMeter{epoch: time.Now()}
}

// Begin returns a start mark for End.
func (m *LoadMeter) Begin() int64 {
	return int64(time.Since(m.epoch))
}

// End records one block that started at mark and covered numSamples.
func (m *LoadMeter) End(mark int64, numSamples int32, sampleRate float64) {
	elapsed := int64(time.Since(m.epoch)) - mark
	if numSamples <= 0 || sampleRate <= 0 {
		return
	}
	budget := int64(float64(numSamples) / sampleRate * float64(time.Second))
	if budget <= 0 {
		return
	}
	load := float64(elapsed) / float64(budget)

	m.blocks.Add(1)
	m.busyNanos.Add(elapsed)
	m.budgetNano.Add(budget)
	m.last.Store(math.Float64bits(load))
	for {
		old := m.peak.Load()
		if math.Float64frombits(old) >= load || m.peak.CompareAndSwap(old, math.Float64bits(load)) {
			break
		}
	}
}

// Snapshot returns the current statistics.
func (m *LoadMeter) Snapshot() LoadStats {
	s := LoadStats{
		Blocks:   m.blocks.Load(),
		Busy:     time.Duration(m.busyNanos.Load()),
		LastLoad: math.Float64frombits(m.last.Load()),
		PeakLoad: math.Float64frombits(m.peak.Load()),
	}
	if budget := m.budgetNano.Load(); budget > 0 {
		s.AvgLoad = float64(s.Busy) / float64(budget)
	}
	return s
}

// Reset clears all statistics.
func (m *LoadMeter) Reset() {
	m.blocks.Store(0)
	m.busyNanos.Store(0)
	m.budgetNano.Store(0)
	m.last.Store(0)
	m.peak.Store(0)
}
