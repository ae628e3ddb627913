package midi

import (
	"testing"

	"github.com/justyntemme/vst3host/pkg/hosterr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePush(t *testing.T) {
	q := NewQueue(8, 512)

	require.NoError(t, q.Push([]Event{NoteOn(0, 60, 100, 0), NoteOn(0, 64, 100, 0), NoteOff(0, 60, 0, 256)}))
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, int32(256), q.Events()[2].SampleOffset)

	q.Reset()
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 8, q.Cap())
}

func TestQueueRejectsWithoutPartialApplication(t *testing.T) {
	tests := []struct {
		name  string
		batch []Event
		want  error
	}{
		{"unordered", []Event{NoteOn(0, 60, 100, 100), NoteOn(0, 62, 100, 50)}, hosterr.ErrUnorderedMidi},
		{"negative offset", []Event{NoteOn(0, 60, 100, -1)}, hosterr.ErrMidiOffset},
		{"offset past block", []Event{NoteOn(0, 60, 100, 512)}, hosterr.ErrMidiOffset},
		{"system status", []Event{{Status: 0xF0}}, hosterr.ErrMidiStatus},
		{"data byte status", []Event{{Status: 0x3C}}, hosterr.ErrMidiStatus},
		{"data out of range", []Event{{Status: 0x90, Data1: 60, Data2: 200}}, hosterr.ErrMidiData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue(8, 512)
			require.NoError(t, q.Push([]Event{NoteOn(0, 48, 90, 0)}))

			err := q.Push(tt.batch)
			assert.Same(t, tt.want, err)
			assert.True(t, hosterr.Is(err, hosterr.CodeInvalidArgument))
			assert.Equal(t, 1, q.Len(), "rejected batch must not be partially queued")
		})
	}
}

func TestQueueOrderingAcrossBatches(t *testing.T) {
	q := NewQueue(8, 512)
	require.NoError(t, q.Push([]Event{NoteOn(0, 60, 100, 200)}))

	err := q.Push([]Event{NoteOff(0, 60, 0, 100)})
	assert.True(t, hosterr.Is(err, hosterr.CodeInvalidArgument))

	require.NoError(t, q.Push([]Event{NoteOff(0, 60, 0, 200)}), "equal offsets are allowed")
	assert.Equal(t, 2, q.Len())
}

func TestQueueFull(t *testing.T) {
	q := NewQueue(2, 64)
	require.NoError(t, q.Push([]Event{NoteOn(0, 60, 100, 0)}))

	err := q.Push([]Event{NoteOn(0, 61, 100, 1), NoteOn(0, 62, 100, 2)})
	assert.True(t, hosterr.Is(err, hosterr.CodeProcessingFailure))
	assert.True(t, hosterr.IsRetryable(err))
	assert.Equal(t, 1, q.Len())
}

func TestQueuePushDoesNotAllocate(t *testing.T) {
	q := NewQueue(16, 512)
	batch := []Event{NoteOn(0, 60, 100, 0), NoteOff(0, 60, 0, 10)}

	allocs := testing.AllocsPerRun(100, func() {
		q.Reset()
		_ = q.Push(batch)
	})
	assert.Zero(t, allocs)
}
