package synth

import (
	"github.com/justyntemme/vst3host/pkg/dsp/envelope"
	"github.com/justyntemme/vst3host/pkg/dsp/oscillator"
	"github.com/justyntemme/vst3host/pkg/framework/voice"
	"github.com/justyntemme/vst3host/pkg/midi"
)

// Voice is one sine oscillator shaped by an ADSR envelope.
type Voice struct {
	osc *oscillator.Oscillator
	env *envelope.ADSR

	note     uint8
	velocity float32
	age      int64
}

var _ voice.Voice = (*Voice)(nil)

// NewVoice creates an idle voice.
func NewVoice(sampleRate float64) *Voice {
	return &Voice{
		osc: oscillator.New(sampleRate),
		env: envelope.New(sampleRate),
	}
}

func (v *Voice) IsActive() bool     { return v.env.IsActive() }
func (v *Voice) Note() uint8        { return v.note }
func (v *Voice) Age() int64         { return v.age }
func (v *Voice) Amplitude() float64 { return v.env.Value() * float64(v.velocity) }

// Trigger starts the note from phase zero.
func (v *Voice) Trigger(note uint8, velocity float32) {
	v.note = note
	v.velocity = velocity
	v.age = 0
	v.osc.SetFrequency(midi.NoteToFrequency(note, 0))
	v.osc.Reset()
	v.env.Trigger()
}

func (v *Voice) Release() { v.env.Release() }

func (v *Voice) Stop() { v.env.Reset() }

// Render adds the voice into buf.
func (v *Voice) Render(buf []float32) {
	for i := range buf {
		buf[i] += v.osc.Next() * v.env.Next() * v.velocity
	}
	v.age += int64(len(buf))
}

// SetEnvelope updates the envelope times in seconds.
func (v *Voice) SetEnvelope(attack, decay, sustain, release float64) {
	v.env.SetADSR(attack, decay, sustain, release)
}
