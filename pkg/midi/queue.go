package midi

import (
	"github.com/justyntemme/vst3host/pkg/hosterr"
)

// Queue holds the events for the next block. Its capacity is fixed at
// construction and Push never allocates, so it is safe on the audio thread.
// A Queue is not safe for concurrent use; the instance serializes access.
type Queue struct {
	events    []Event
	blockSize int32
}

// NewQueue creates a queue for up to capacity events per block, with offsets
// limited to [0, blockSize).
func NewQueue(capacity int, blockSize int32) *Queue {
	return &Queue{
		events:    make([]Event, 0, capacity),
		blockSize: blockSize,
	}
}

// Push validates the whole batch and appends it, or appends nothing.
//
// Offsets must be inside the block and non-decreasing, both within the batch
// and relative to events already queued. Returned errors are shared
// sentinels from hosterr.
func (q *Queue) Push(batch []Event) error {
	last := int32(0)
	if n := len(q.events); n > 0 {
		last = q.events[n-1].SampleOffset
	}

	for i := range batch {
		e := &batch[i]
		if e.Kind() == KindInvalid {
			return hosterr.ErrMidiStatus
		}
		if e.Data1 > 0x7f || e.Data2 > 0x7f {
			return hosterr.ErrMidiData
		}
		if e.SampleOffset < 0 || e.SampleOffset >= q.blockSize {
			return hosterr.ErrMidiOffset
		}
		if e.SampleOffset < last {
			return hosterr.ErrUnorderedMidi
		}
		last = e.SampleOffset
	}

	if len(q.events)+len(batch) > cap(q.events) {
		return hosterr.ErrQueueFull
	}
	q.events = append(q.events, batch...)
	return nil
}

// Events returns the queued events in offset order. The slice is only valid
// until the next Push or Reset.
func (q *Queue) Events() []Event {
	return q.events
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	return len(q.events)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.events)
}

// BlockSize returns the exclusive offset limit.
func (q *Queue) BlockSize() int32 {
	return q.blockSize
}

// Reset drops all queued events.
func (q *Queue) Reset() {
	q.events = q.events[:0]
}
