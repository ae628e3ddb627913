// Package gainmix is a stereo gain effect with a dry/wet control.
//
// With dry input x the output is x*(1-mix) + x*gain*mix. Both controls are
// smoothed over a few milliseconds to avoid zipper noise.
package gainmix

import (
	"github.com/justyntemme/vst3host/pkg/dsp/mix"
	"github.com/justyntemme/vst3host/pkg/framework/param"
	"github.com/justyntemme/vst3host/pkg/framework/plugin"
	"github.com/justyntemme/vst3host/pkg/framework/process"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Parameter IDs
const (
	ParamGain uint32 = 1
	ParamMix  uint32 = 2
)

const smoothingMs = 5.0

// Info describes the plugin class.
var Info = plugin.Info{
	ID:       "com.justyntemme.vst3host.gainmix",
	Name:     "GainMix",
	Version:  "1.0.0",
	Vendor:   "vst3host",
	Category: vst3.SubCategoryFx,
}

// Processor implements plugin.Processor.
type Processor struct {
	*plugin.BaseProcessor

	gain *param.Smoother
	mix  *param.Smoother
}

// New creates a processor with Gain at 0.5 and Mix at 1.0.
func New() *Processor {
	p := &Processor{BaseProcessor: plugin.NewBaseProcessor(nil)}
	_ = p.Parameters().Add(
		param.New(ParamGain, "Gain").
			Range(0, 1).
			Default(0.5).
			Build(),
		param.PercentParameter(ParamMix, "Mix", 1.0).Build(),
	)
	p.OnInitialize(p.setup)
	p.OnReset(p.reset)
	return p
}

func (p *Processor) setup(sampleRate float64, _ int32) error {
	p.gain = param.NewSmootherForTime(sampleRate, smoothingMs)
	p.mix = param.NewSmootherForTime(sampleRate, smoothingMs)
	p.reset()
	return nil
}

func (p *Processor) reset() {
	if p.gain == nil {
		return
	}
	params := p.Parameters()
	p.gain.Reset(params.Get(ParamGain).GetPlainValue())
	p.mix.Reset(params.Get(ParamMix).GetPlainValue())
}

// ProcessAudio implements plugin.Processor.
func (p *Processor) ProcessAudio(ctx *process.Context) {
	p.gain.SetTarget(ctx.ParamPlain(ParamGain))
	p.mix.SetTarget(ctx.ParamPlain(ParamMix))

	channels := ctx.NumChannels()
	for i := 0; i < ctx.NumSamples(); i++ {
		g := float32(p.gain.Next())
		m := float32(p.mix.Next())
		for ch := 0; ch < channels; ch++ {
			var dry float32
			if in := ctx.Input[ch]; in != nil {
				dry = in[i]
			}
			ctx.Output[ch][i] = mix.DryWet(dry, dry*g, m)
		}
	}
	for ch := channels; ch < ctx.NumOutputChannels(); ch++ {
		clear(ctx.Output[ch])
	}
}

// Exports returns the module entry points for a plugin build or a builtin
// registration.
func Exports() *plugin.Exports {
	return plugin.Export(Info, func() plugin.Processor { return New() })
}
