// Package synth is a polyphonic sine instrument with an ADSR envelope per
// voice.
package synth

import (
	"github.com/justyntemme/vst3host/pkg/dsp/gain"
	"github.com/justyntemme/vst3host/pkg/framework/bus"
	"github.com/justyntemme/vst3host/pkg/framework/param"
	"github.com/justyntemme/vst3host/pkg/framework/plugin"
	"github.com/justyntemme/vst3host/pkg/framework/process"
	"github.com/justyntemme/vst3host/pkg/framework/voice"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Parameter IDs
const (
	ParamVolume uint32 = iota + 1
	ParamAttack
	ParamRelease
)

const (
	// Polyphony is the number of voices.
	Polyphony = 16

	decaySeconds  = 0.1
	sustainLevel  = 0.7
	clipThreshold = 0.95
)

// Info describes the plugin class.
var Info = plugin.Info{
	ID:       "com.justyntemme.vst3host.synth",
	Name:     "SimpleSynth",
	Version:  "1.0.0",
	Vendor:   "vst3host",
	Category: vst3.SubCategorySynth,
}

// Processor implements plugin.Processor.
type Processor struct {
	*plugin.BaseProcessor

	voices []*Voice
	alloc  *voice.Allocator

	attack  float64
	release float64
	active  bool
}

// New creates the instrument processor.
func New() *Processor {
	p := &Processor{BaseProcessor: plugin.NewBaseProcessor(bus.NewGenerator())}
	_ = p.Parameters().Add(
		param.PercentParameter(ParamVolume, "Volume", 0.8).Build(),
		param.New(ParamAttack, "Attack").
			Range(0.001, 2.0).
			Default(0.01).
			Unit("s").
			Build(),
		param.New(ParamRelease, "Release").
			Range(0.001, 5.0).
			Default(0.3).
			Unit("s").
			Build(),
	)
	p.OnInitialize(p.setup)
	p.OnSetActive(func(active bool) error {
		p.active = active
		return nil
	})
	p.OnReset(func() {
		if p.alloc != nil {
			p.alloc.Reset()
		}
	})
	return p
}

func (p *Processor) setup(sampleRate float64, _ int32) error {
	p.voices = make([]*Voice, Polyphony)
	vs := make([]voice.Voice, Polyphony)
	for i := range p.voices {
		p.voices[i] = NewVoice(sampleRate)
		vs[i] = p.voices[i]
	}
	p.alloc = voice.NewAllocator(vs)
	p.alloc.SetMode(voice.ModePoly)
	p.alloc.SetStealingMode(voice.StealOldest)

	p.attack, p.release = -1, -1
	p.updateEnvelopes()
	return nil
}

func (p *Processor) updateEnvelopes() {
	params := p.Parameters()
	attack := params.Get(ParamAttack).GetPlainValue()
	release := params.Get(ParamRelease).GetPlainValue()
	if attack == p.attack && release == p.release {
		return
	}
	p.attack, p.release = attack, release
	for _, v := range p.voices {
		v.SetEnvelope(attack, decaySeconds, sustainLevel, release)
	}
}

// ProcessAudio implements plugin.Processor.
func (p *Processor) ProcessAudio(ctx *process.Context) {
	ctx.Clear()
	if !p.active || p.alloc == nil {
		return
	}

	p.updateEnvelopes()
	for _, e := range ctx.Events {
		p.alloc.ProcessEvent(e)
	}

	work := ctx.WorkBuffer()
	clear(work)
	p.alloc.Render(work)
	ctx.MixToOutputs(work, float32(ctx.ParamPlain(ParamVolume)))
	for _, out := range ctx.Output {
		gain.SoftClipBuffer(out, clipThreshold)
	}
}

// TailSamples reports the longest release.
func (p *Processor) TailSamples() int32 {
	return int32(p.release * p.SampleRate())
}

// ActiveVoices returns the number of sounding voices.
func (p *Processor) ActiveVoices() int {
	if p.alloc == nil {
		return 0
	}
	return p.alloc.ActiveVoiceCount()
}

// Exports returns the module entry points.
func Exports() *plugin.Exports {
	return plugin.Export(Info, func() plugin.Processor { return New() })
}
