package gainmix

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/vst3host/pkg/framework/process"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

const (
	rate  = 48000.0
	block = 64
)

func sineBlock(start int) [][]float32 {
	out := [][]float32{make([]float32, block), make([]float32, block)}
	for i := range block {
		v := float32(0.5 * math.Sin(2*math.Pi*440*float64(start+i)/rate))
		out[0][i] = v
		out[1][i] = v
	}
	return out
}

func newProcessor(t *testing.T) (*Processor, *process.Context) {
	t.Helper()
	p := New()
	require.NoError(t, p.Initialize(rate, block))
	return p, process.NewContext(block, 2, p.Parameters())
}

func TestParameters(t *testing.T) {
	p := New()
	params := p.Parameters()
	require.Equal(t, int32(2), params.Count())

	g := params.Get(ParamGain)
	require.NotNil(t, g)
	assert.Equal(t, "Gain", g.Name)
	assert.InDelta(t, 0.5, g.GetPlainValue(), 1e-12)

	m := params.Get(ParamMix)
	require.NotNil(t, m)
	assert.InDelta(t, 1.0, m.GetPlainValue(), 1e-12)
	assert.Equal(t, 0.0, m.Min)
	assert.Equal(t, 1.0, m.Max)
}

func TestDefaultsHalveTheSignal(t *testing.T) {
	p, ctx := newProcessor(t)
	in := sineBlock(0)
	out := [][]float32{make([]float32, block), make([]float32, block)}

	ctx.SetSlice(in, out, 0, block, nil)
	p.ProcessAudio(ctx)

	for ch := range out {
		for i := range out[ch] {
			require.InDelta(t, in[ch][i]*0.5, out[ch][i], 1e-7)
		}
	}
}

func TestMixRampsToDry(t *testing.T) {
	p, ctx := newProcessor(t)
	p.Parameters().Get(ParamMix).SetValue(0)

	var in, out [][]float32
	for b := 0; b < 5; b++ {
		in = sineBlock(b * block)
		out = [][]float32{make([]float32, block), make([]float32, block)}
		ctx.SetSlice(in, out, 0, block, nil)
		p.ProcessAudio(ctx)
	}
	assert.Equal(t, in, out, "fully dry once the ramp completes")
}

func TestNilInputIsSilence(t *testing.T) {
	p, ctx := newProcessor(t)
	out := [][]float32{{1, 1, 1}, {1, 1, 1}}
	ctx.SetSlice([][]float32{nil, nil}, out, 0, 3, nil)
	p.ProcessAudio(ctx)
	assert.Equal(t, [][]float32{{0, 0, 0}, {0, 0, 0}}, out)
}

func TestExports(t *testing.T) {
	e := Exports()
	require.True(t, e.ModuleEntry(0))
	defer e.ModuleExit()

	f := e.GetPluginFactory()
	require.Equal(t, int32(1), f.CountClasses())
	c, err := f.ClassInfo(0)
	require.NoError(t, err)
	assert.Equal(t, "GainMix", c.Name)
	assert.Equal(t, vst3.SubCategoryFx, c.SubCategories)
	assert.Equal(t, Info.UID(), c.CID)
}
