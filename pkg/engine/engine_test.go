package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/vst3host/pkg/hosterr"
	"github.com/justyntemme/vst3host/pkg/midi"
	"github.com/justyntemme/vst3host/pkg/registry"
	"github.com/justyntemme/vst3host/pkg/vst3"
	"github.com/justyntemme/vst3host/pkg/vst3/vst3test"
)

const (
	testRate  = 48000.0
	testBlock = 64
)

func stereo(n int) [][]float32 {
	return [][]float32{make([]float32, n), make([]float32, n)}
}

func sine(n int) [][]float32 {
	ch := stereo(n)
	for i := range n {
		v := float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/testRate))
		ch[0][i] = v
		ch[1][i] = v
	}
	return ch
}

func newEngine(t *testing.T, p *vst3test.Plugin, params *registry.Registry, split bool) *Engine {
	t.Helper()
	e, err := New(Config{SampleRate: testRate, MaxBlockSize: testBlock, MaxEvents: 16, SplitAtEvents: split},
		p, params, Layout{Inputs: p.Inputs, Outputs: p.Outputs})
	require.NoError(t, err)
	return e
}

func gainRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	b := registry.NewBuilder()
	require.NoError(t, b.Add(registry.Descriptor{ID: 1, Name: "Gain", Min: 0, Max: 10, Default: 0}))
	return b.Seal()
}

func TestNewRejectsBadConfig(t *testing.T) {
	p := vst3test.NewEffect()
	_, err := New(Config{SampleRate: 0, MaxBlockSize: 64}, p, nil, Layout{})
	assert.True(t, hosterr.Is(err, hosterr.CodeInvalidArgument))

	_, err = New(Config{SampleRate: math.NaN(), MaxBlockSize: 64}, p, nil, Layout{})
	assert.True(t, hosterr.Is(err, hosterr.CodeInvalidArgument))

	_, err = New(Config{SampleRate: 44100, MaxBlockSize: 64}, nil, nil, Layout{})
	assert.True(t, hosterr.Is(err, hosterr.CodeInvalidArgument))

	e, err := New(Config{SampleRate: 44100, MaxBlockSize: 64}, p, nil, Layout{Inputs: []int32{2}, Outputs: []int32{2, 2}})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxEvents, e.Config().MaxEvents)
	assert.Equal(t, int32(4), e.MaxChannels())
}

func TestProcessPassThrough(t *testing.T) {
	p := vst3test.NewEffect()
	e := newEngine(t, p, nil, false)

	in := sine(testBlock)
	out := stereo(testBlock)
	require.NoError(t, e.Process(in, out, 2, testBlock))
	assert.Equal(t, in, out)

	calls := p.Recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, int32(testBlock), calls[0].NumSamples)
	assert.Equal(t, 2, calls[0].Inputs)
	assert.Equal(t, 2, calls[0].Outputs)

	stats := e.Stats()
	assert.Equal(t, uint64(1), stats.Blocks)
	assert.Equal(t, uint64(testBlock), stats.Samples)
	assert.False(t, stats.LastBlock.IsZero())
}

func TestProcessNilInputsReadSilence(t *testing.T) {
	p := vst3test.NewEffect()
	e := newEngine(t, p, nil, false)

	out := [][]float32{{1, 1, 1, 1}, {1, 1, 1, 1}}
	require.NoError(t, e.Process(nil, out, 2, 4))
	assert.Equal(t, [][]float32{{0, 0, 0, 0}, {0, 0, 0, 0}}, out)

	in := [][]float32{{0.5, 0.5, 0.5, 0.5}, nil}
	out = [][]float32{{1, 1, 1, 1}, {1, 1, 1, 1}}
	require.NoError(t, e.Process(in, out, 2, 4))
	assert.Equal(t, [][]float32{{0.5, 0.5, 0.5, 0.5}, {0, 0, 0, 0}}, out)
}

func TestZeroSamplesLeavesOutputUntouched(t *testing.T) {
	p := vst3test.NewEffect()
	e := newEngine(t, p, nil, false)

	out := [][]float32{{7, 7}, {7, 7}}
	require.NoError(t, e.Process(nil, out, 2, 0))
	assert.Equal(t, [][]float32{{7, 7}, {7, 7}}, out)
	assert.Empty(t, p.Recorded())
	assert.Zero(t, e.Stats().Blocks)
}

func TestProcessValidation(t *testing.T) {
	shared := make([]float32, 2*testBlock)

	tests := []struct {
		name     string
		in, out  [][]float32
		channels int32
		samples  int32
		want     error
	}{
		{"negative samples", nil, stereo(testBlock), 2, -1, hosterr.ErrNegativeSamples},
		{"block too large", nil, stereo(testBlock + 1), 2, testBlock + 1, hosterr.ErrBlockTooLarge},
		{"negative channels", nil, stereo(testBlock), -1, 8, hosterr.ErrNegativeChannels},
		{"too many channels", nil, [][]float32{{0}, {0}, {0}}, 3, 1, hosterr.ErrTooManyChannels},
		{"short outputs", nil, stereo(testBlock)[:1], 2, 8, hosterr.ErrShortOutputs},
		{"short inputs", stereo(testBlock)[:1], stereo(testBlock), 2, 8, hosterr.ErrShortInputs},
		{"short output channel", nil, [][]float32{make([]float32, 8), make([]float32, 4)}, 2, 8, hosterr.ErrShortBuffer},
		{"nil output channel", nil, [][]float32{make([]float32, 8), nil}, 2, 8, hosterr.ErrShortBuffer},
		{"short input channel", [][]float32{make([]float32, 2), nil}, stereo(8), 2, 8, hosterr.ErrShortBuffer},
		{"aliased", [][]float32{shared[:8], nil}, [][]float32{make([]float32, 8), shared[:8]}, 2, 8, hosterr.ErrAliasedBuffers},
		{"overlapping", [][]float32{shared[0:16], nil}, [][]float32{shared[8:24], make([]float32, 16)}, 2, 16, hosterr.ErrAliasedBuffers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := vst3test.NewEffect()
			e := newEngine(t, p, nil, false)
			err := e.Process(tt.in, tt.out, tt.channels, tt.samples)
			assert.Same(t, tt.want, err)
			assert.True(t, hosterr.Is(err, hosterr.CodeInvalidArgument))
			assert.Empty(t, p.Recorded())
		})
	}
}

func TestAdjacentBuffersAreNotAliased(t *testing.T) {
	p := vst3test.NewEffect()
	e := newEngine(t, p, nil, false)

	buf := make([]float32, 32)
	in := [][]float32{buf[0:8], buf[8:16]}
	out := [][]float32{buf[16:24], buf[24:32]}
	assert.NoError(t, e.Process(in, out, 2, 8))
}

func TestExtraCallerChannelsAreZeroed(t *testing.T) {
	p := &vst3test.Plugin{Inputs: []int32{2}, Outputs: []int32{1}}
	e := newEngine(t, p, nil, false)
	require.Equal(t, int32(2), e.MaxChannels())

	in := [][]float32{{1, 1}, {2, 2}}
	out := [][]float32{{9, 9}, {9, 9}}
	require.NoError(t, e.Process(in, out, 2, 2))
	assert.Equal(t, [][]float32{{1, 1}, {0, 0}}, out)
}

func TestUnrequestedPluginOutputsUseScratch(t *testing.T) {
	p := vst3test.NewInstrument()
	e := newEngine(t, p, nil, false)

	out := [][]float32{make([]float32, 4)}
	require.NoError(t, e.Process(nil, out, 1, 4))
	assert.Equal(t, []float32{0.25, 0.25, 0.25, 0.25}, out[0])
	assert.Equal(t, 2, p.Recorded()[0].Outputs)
}

func TestMidiDelivery(t *testing.T) {
	p := vst3test.NewInstrument()
	e := newEngine(t, p, nil, false)

	require.NoError(t, e.QueueMidi([]midi.Event{
		midi.NoteOn(0, 60, 127, 0),
		midi.NoteOn(1, 64, 0, 10),
		midi.NoteOff(0, 60, 64, 50),
	}))
	assert.Equal(t, 3, e.PendingMidi())

	out := stereo(testBlock)
	require.NoError(t, e.Process(nil, out, 2, 32))
	assert.Zero(t, e.PendingMidi())

	events := p.Recorded()[0].Events
	require.Len(t, events, 3)

	assert.Equal(t, vst3.EventNoteOn, events[0].Type)
	assert.Equal(t, int16(60), events[0].Pitch)
	assert.InDelta(t, 1.0, events[0].Velocity, 1e-6)
	assert.Equal(t, int32(0), events[0].SampleOffset)

	assert.Equal(t, vst3.EventNoteOff, events[1].Type, "velocity 0 note on")
	assert.Equal(t, int16(1), events[1].Channel)
	assert.Equal(t, int32(10), events[1].SampleOffset)

	assert.Equal(t, vst3.EventNoteOff, events[2].Type)
	assert.Equal(t, int32(31), events[2].SampleOffset, "clamped to the last sample")

	assert.Equal(t, uint64(3), e.Stats().MidiEvents)

	require.NoError(t, e.Process(nil, out, 2, 32))
	assert.Empty(t, p.Recorded()[1].Events)
}

func TestMidiRejectedBatchQueuesNothing(t *testing.T) {
	p := vst3test.NewInstrument()
	e := newEngine(t, p, nil, false)

	require.NoError(t, e.QueueMidi([]midi.Event{midi.NoteOn(0, 60, 100, 20)}))
	err := e.QueueMidi([]midi.Event{midi.NoteOn(0, 62, 100, 30), midi.NoteOn(0, 64, 100, 10)})
	assert.Same(t, hosterr.ErrUnorderedMidi, err)

	err = e.QueueMidi([]midi.Event{midi.NoteOn(0, 62, 100, 5)})
	assert.Same(t, hosterr.ErrUnorderedMidi, err, "earlier than already queued")
	assert.Equal(t, 1, e.PendingMidi())

	e.ClearMidi()
	assert.Zero(t, e.PendingMidi())
}

func TestMidiConversion(t *testing.T) {
	tests := []struct {
		name  string
		in    midi.Event
		check func(t *testing.T, ev vst3.Event)
	}{
		{"control change", midi.ControlChange(2, midi.CCSustain, 127, 0), func(t *testing.T, ev vst3.Event) {
			assert.Equal(t, vst3.EventLegacyMIDICCOut, ev.Type)
			assert.Equal(t, midi.CCSustain, ev.ControlNumber)
			assert.Equal(t, int8(127), ev.Value)
			assert.Equal(t, int16(2), ev.Channel)
		}},
		{"pitch bend", midi.PitchBend(0, 0x2001, 0), func(t *testing.T, ev vst3.Event) {
			assert.Equal(t, vst3.ControllerPitchBend, ev.ControlNumber)
			assert.Equal(t, int8(0x01), ev.Value)
			assert.Equal(t, int8(0x40), ev.Value2)
		}},
		{"channel pressure", midi.Event{Status: midi.StatusChannelPressure, Data1: 90}, func(t *testing.T, ev vst3.Event) {
			assert.Equal(t, vst3.ControllerAfterTouch, ev.ControlNumber)
			assert.Equal(t, int8(90), ev.Value)
		}},
		{"program change", midi.Event{Status: midi.StatusProgramChange, Data1: 5}, func(t *testing.T, ev vst3.Event) {
			assert.Equal(t, vst3.ControllerProgramChange, ev.ControlNumber)
			assert.Equal(t, int8(5), ev.Value)
		}},
		{"poly pressure", midi.Event{Status: midi.StatusPolyPressure, Data1: 60, Data2: 127}, func(t *testing.T, ev vst3.Event) {
			assert.Equal(t, vst3.EventPolyPressure, ev.Type)
			assert.Equal(t, int16(60), ev.Pitch)
			assert.InDelta(t, 1.0, ev.Pressure, 1e-6)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := convert(tt.in)
			require.True(t, ok)
			tt.check(t, ev)
		})
	}

	_, ok := convert(midi.Event{Status: 0xF8})
	assert.False(t, ok)
}

func TestParameterDelivery(t *testing.T) {
	p := vst3test.NewEffect(vst3test.Param{ID: 1, Title: "Gain", Min: 0, Max: 10})
	params := gainRegistry(t)
	e := newEngine(t, p, params, false)

	require.True(t, params.Set(1, 5))
	out := stereo(testBlock)
	require.NoError(t, e.Process(nil, out, 2, 16))
	require.NoError(t, e.Process(nil, out, 2, 16))

	calls := p.Recorded()
	require.Len(t, calls, 2)
	require.Len(t, calls[0].Changes, 1)
	assert.Equal(t, vst3.ParamValueChange{ID: 1, SampleOffset: 0, Value: 0.5}, calls[0].Changes[0])
	assert.Empty(t, calls[1].Changes, "delivered once")
	assert.False(t, params.IsDirty(1))
}

func TestFailedBlockRedeliversParameters(t *testing.T) {
	p := vst3test.NewEffect(vst3test.Param{ID: 1, Title: "Gain", Min: 0, Max: 10})
	params := gainRegistry(t)
	e := newEngine(t, p, params, false)

	require.True(t, params.Set(1, 2))
	require.NoError(t, e.QueueMidi([]midi.Event{midi.ControlChange(0, 1, 10, 0)}))

	p.FailProcess = true
	out := stereo(testBlock)
	err := e.Process(nil, out, 2, 16)
	assert.Same(t, hosterr.ErrPluginRejected, err)
	assert.True(t, hosterr.IsRetryable(err))
	assert.True(t, params.IsDirty(1))
	assert.Equal(t, 1, e.PendingMidi(), "queued MIDI survives a failed block")

	p.FailProcess = false
	require.NoError(t, e.Process(nil, out, 2, 16))
	calls := p.Recorded()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Changes, 1)
	assert.InDelta(t, 0.2, calls[0].Changes[0].Value, 1e-12)
	assert.Len(t, calls[0].Events, 1)

	stats := e.Stats()
	assert.Equal(t, uint64(1), stats.Failures)
	assert.Equal(t, uint64(1), stats.Blocks)
}

func TestPanicIsRecovered(t *testing.T) {
	p := vst3test.NewEffect()
	p.PanicProcess = true
	e := newEngine(t, p, nil, false)

	err := e.Process(nil, stereo(8), 2, 8)
	assert.Same(t, hosterr.ErrPluginPanic, err)
	assert.True(t, hosterr.IsRetryable(err))

	p.PanicProcess = false
	assert.NoError(t, e.Process(nil, stereo(8), 2, 8))
}

func TestOutputParameterChangesUpdateRegistry(t *testing.T) {
	p := vst3test.NewEffect(vst3test.Param{ID: 1, Title: "Gain", Min: 0, Max: 10})
	p.Report = []vst3.ParamValueChange{{ID: 1, Value: 0.2}}
	params := gainRegistry(t)
	e := newEngine(t, p, params, false)

	require.NoError(t, e.Process(nil, stereo(8), 2, 8))
	assert.InDelta(t, 2.0, params.Get(1), 1e-12)
	assert.False(t, params.IsDirty(1), "plugin edits are not echoed back")
}

func TestHostEditDuringBlockWins(t *testing.T) {
	p := vst3test.NewEffect(vst3test.Param{ID: 1, Title: "Gain", Min: 0, Max: 10})
	p.Report = []vst3.ParamValueChange{{ID: 1, Value: 0.2}}
	params := gainRegistry(t)
	e := newEngine(t, p, params, false)

	p.During = func() { params.Set(1, 9) }
	require.NoError(t, e.Process(nil, stereo(8), 2, 8))
	assert.InDelta(t, 9.0, params.Get(1), 1e-12)
	assert.True(t, params.IsDirty(1))

	p.During = nil
	p.Report = nil
	require.NoError(t, e.Process(nil, stereo(8), 2, 8))
	calls := p.Recorded()
	require.Len(t, calls, 2)
	require.Len(t, calls[1].Changes, 1)
	assert.Equal(t, vst3.ParamID(1), calls[1].Changes[0].ID)
	assert.InDelta(t, 0.9, calls[1].Changes[0].Value, 1e-12)
	assert.InDelta(t, 9.0, params.Get(1), 1e-12)
}

func TestSplitAtEvents(t *testing.T) {
	p := vst3test.NewInstrument(vst3test.Param{ID: 1, Title: "Gain", Min: 0, Max: 10})
	params := gainRegistry(t)
	e := newEngine(t, p, params, true)

	require.True(t, params.Set(1, 1))
	require.NoError(t, e.QueueMidi([]midi.Event{
		midi.NoteOn(0, 60, 100, 16),
		midi.NoteOn(0, 64, 100, 16),
		midi.NoteOff(0, 60, 0, 40),
	}))

	out := stereo(testBlock)
	require.NoError(t, e.Process(nil, out, 2, testBlock))

	calls := p.Recorded()
	require.Len(t, calls, 3)

	assert.Equal(t, int32(16), calls[0].NumSamples)
	assert.Empty(t, calls[0].Events)
	assert.Len(t, calls[0].Changes, 1, "changes ride on the first sub-block")

	assert.Equal(t, int32(24), calls[1].NumSamples)
	require.Len(t, calls[1].Events, 2)
	assert.Equal(t, int32(0), calls[1].Events[0].SampleOffset, "rebased")
	assert.Equal(t, int32(0), calls[1].Events[1].SampleOffset)
	assert.Empty(t, calls[1].Changes)

	assert.Equal(t, int32(24), calls[2].NumSamples)
	require.Len(t, calls[2].Events, 1)
	assert.Equal(t, vst3.EventNoteOff, calls[2].Events[0].Type)

	for _, ch := range out {
		for i, v := range ch {
			require.Equal(t, float32(0.25), v, "sample %d", i)
		}
	}
}

func TestSplitWithoutEventsIsOneCall(t *testing.T) {
	p := vst3test.NewInstrument()
	e := newEngine(t, p, nil, true)
	require.NoError(t, e.Process(nil, stereo(testBlock), 2, testBlock))
	assert.Len(t, p.Recorded(), 1)
}

func TestBusyCounter(t *testing.T) {
	e := newEngine(t, vst3test.NewEffect(), nil, false)
	e.NoteBusy()
	e.NoteBusy()
	assert.Equal(t, uint64(2), e.Stats().Busy)
}

type silentComponent struct{}

func (silentComponent) Process(data *vst3.ProcessData) error {
	for _, b := range data.Outputs {
		for _, ch := range b.Channels {
			clear(ch)
		}
	}
	return nil
}

func (silentComponent) PlainToNormalized(_ vst3.ParamID, plain float64) float64 { return plain / 10 }
func (silentComponent) NormalizedToPlain(_ vst3.ParamID, n float64) float64     { return n * 10 }

func TestProcessDoesNotAllocate(t *testing.T) {
	params := gainRegistry(t)
	e, err := New(Config{SampleRate: testRate, MaxBlockSize: testBlock, MaxEvents: 8},
		silentComponent{}, params, Layout{Inputs: []int32{2}, Outputs: []int32{2}})
	require.NoError(t, err)

	in := sine(testBlock)
	out := stereo(testBlock)
	batch := []midi.Event{midi.NoteOn(0, 60, 100, 0), midi.NoteOff(0, 60, 0, 32)}

	allocs := testing.AllocsPerRun(100, func() {
		params.Set(1, 3)
		_ = e.QueueMidi(batch)
		_ = e.Process(in, out, 2, testBlock)
	})
	assert.Zero(t, allocs)
}
