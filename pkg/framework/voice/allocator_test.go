package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/vst3host/pkg/midi"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// testVoice is a simple voice implementation for testing
type testVoice struct {
	active    bool
	released  bool
	note      uint8
	velocity  float32
	amplitude float64
	age       int64
}

func (v *testVoice) IsActive() bool     { return v.active }
func (v *testVoice) Note() uint8        { return v.note }
func (v *testVoice) Amplitude() float64 { return v.amplitude }
func (v *testVoice) Age() int64         { return v.age }
func (v *testVoice) Trigger(note uint8, velocity float32) {
	v.active = true
	v.released = false
	v.note = note
	v.velocity = velocity
	v.age = 0
	v.amplitude = float64(velocity)
}
func (v *testVoice) Release() { v.active = false; v.released = true }
func (v *testVoice) Stop()    { v.active = false; v.note = 0 }
func (v *testVoice) Render(buf []float32) {
	v.age += int64(len(buf))
	for i := range buf {
		buf[i] += float32(v.amplitude)
	}
}

func newTestAllocator(count int) (*Allocator, []*testVoice) {
	tv := make([]*testVoice, count)
	voices := make([]Voice, count)
	for i := range voices {
		tv[i] = &testVoice{}
		voices[i] = tv[i]
	}
	return NewAllocator(voices), tv
}

func playing(tv []*testVoice, note uint8) *testVoice {
	for _, v := range tv {
		if v.active && v.note == note {
			return v
		}
	}
	return nil
}

func TestAllocatorPolyMode(t *testing.T) {
	a, tv := newTestAllocator(4)

	a.NoteOn(60, 0.8)
	a.NoteOn(64, 0.8)
	a.NoteOn(67, 0.8)
	assert.Equal(t, 3, a.ActiveVoiceCount())

	a.NoteOff(64)
	assert.Equal(t, 2, a.ActiveVoiceCount())

	// Retriggering reuses the sounding voice.
	v := playing(tv, 60)
	require.NotNil(t, v)
	a.NoteOn(60, 0.5)
	assert.Equal(t, 2, a.ActiveVoiceCount())
	assert.Equal(t, float32(0.5), v.velocity)
}

func TestAllocatorStealOldest(t *testing.T) {
	a, tv := newTestAllocator(2)

	a.NoteOn(60, 1)
	a.Render(make([]float32, 64))
	a.NoteOn(62, 1)
	a.Render(make([]float32, 16))

	a.NoteOn(64, 1)
	assert.Equal(t, 2, a.ActiveVoiceCount())
	assert.Nil(t, playing(tv, 60), "oldest voice is stolen")
	assert.NotNil(t, playing(tv, 62))
	assert.NotNil(t, playing(tv, 64))

	// Releasing the stolen note is a no-op.
	a.NoteOff(60)
	assert.Equal(t, 2, a.ActiveVoiceCount())
}

func TestAllocatorStealQuietestAndNone(t *testing.T) {
	a, tv := newTestAllocator(2)
	a.SetStealingMode(StealQuietest)
	a.NoteOn(60, 0.9)
	a.NoteOn(62, 0.1)
	a.NoteOn(64, 0.5)
	assert.Nil(t, playing(tv, 62))

	b, tvb := newTestAllocator(1)
	b.SetStealingMode(StealNone)
	b.NoteOn(60, 1)
	b.NoteOn(62, 1)
	assert.NotNil(t, playing(tvb, 60))
	assert.Nil(t, playing(tvb, 62))
}

func TestAllocatorMonoMode(t *testing.T) {
	a, tv := newTestAllocator(4)
	a.SetMode(ModeMono)

	a.NoteOn(60, 1)
	a.NoteOn(64, 1)
	assert.Equal(t, 1, a.ActiveVoiceCount())
	assert.Equal(t, uint8(64), tv[0].note)

	a.NoteOff(60)
	assert.True(t, tv[0].active, "old note no longer owns the voice")
	a.NoteOff(64)
	assert.False(t, tv[0].active)
}

func TestAllocatorSustain(t *testing.T) {
	a, _ := newTestAllocator(4)

	a.NoteOn(60, 1)
	a.SetSustainPedal(true)
	a.NoteOff(60)
	assert.Equal(t, 1, a.ActiveVoiceCount())

	a.SetSustainPedal(false)
	assert.Equal(t, 0, a.ActiveVoiceCount())
}

func TestAllocatorProcessEvent(t *testing.T) {
	a, tv := newTestAllocator(4)

	a.ProcessEvent(vst3.Event{Type: vst3.EventNoteOn, Pitch: 60, Velocity: 0.7})
	require.NotNil(t, playing(tv, 60))

	a.ProcessEvent(vst3.Event{Type: vst3.EventNoteOn, Pitch: 60, Velocity: 0})
	assert.Nil(t, playing(tv, 60), "velocity zero releases")

	a.ProcessEvent(vst3.Event{Type: vst3.EventNoteOn, Pitch: 62, Velocity: 0.7})
	a.ProcessEvent(vst3.Event{Type: vst3.EventLegacyMIDICCOut, ControlNumber: midi.CCSustain, Value: 127})
	a.ProcessEvent(vst3.Event{Type: vst3.EventNoteOff, Pitch: 62})
	assert.NotNil(t, playing(tv, 62))

	a.ProcessEvent(vst3.Event{Type: vst3.EventLegacyMIDICCOut, ControlNumber: midi.CCAllNotesOff})
	assert.Equal(t, 0, a.ActiveVoiceCount())
}

func TestAllocatorNoAllocations(t *testing.T) {
	a, _ := newTestAllocator(8)
	buf := make([]float32, 32)
	allocs := testing.AllocsPerRun(100, func() {
		for n := uint8(40); n < 60; n++ {
			a.NoteOn(n, 1)
		}
		a.Render(buf)
		for n := uint8(40); n < 60; n++ {
			a.NoteOff(n)
		}
	})
	assert.Zero(t, allocs)
}
