package host

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/justyntemme/vst3host/pkg/framework/debug"
	"github.com/justyntemme/vst3host/pkg/loader"
	"github.com/justyntemme/vst3host/pkg/plugins/catalog"
	"github.com/justyntemme/vst3host/pkg/vst3"
	"github.com/justyntemme/vst3host/pkg/vst3/vst3test"
)

type fixture struct {
	host   *Host
	static *loader.StaticOpener
	logs   *bytes.Buffer
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{static: loader.NewStaticOpener(), logs: &bytes.Buffer{}}
	catalog.Register(f.static)
	if opts.Logger == nil {
		opts.Logger = debug.New(f.logs, "", 0)
	}
	f.host = New(f.static, opts)
	t.Cleanup(func() { _ = f.host.Close() })
	return f
}

// register publishes p as a single-class module under name.
func (f *fixture) register(name, subCategories string, p vst3.Plugin) *vst3test.Module {
	mod := &vst3test.Module{Factory: vst3test.SinglePlugin(vst3test.Class(name, subCategories), p)}
	f.static.Register(name, mod.Symbols())
	return mod
}

// create loads path and creates its instance without loading the plugin.
func (f *fixture) create(t *testing.T, path string) *Instance {
	t.Helper()
	m, err := f.host.Load(path)
	require.NoError(t, err)
	inst, err := f.host.Create(m)
	require.NoError(t, err)
	return inst
}

// open creates an instance and loads its plugin.
func (f *fixture) open(t *testing.T, path string) *Instance {
	t.Helper()
	inst := f.create(t, path)
	ok, err := inst.LoadPlugin(path)
	require.NoError(t, err)
	require.True(t, ok, "load refused: %v", inst.LoadError())
	return inst
}

// ready opens path and initializes it.
func (f *fixture) ready(t *testing.T, path string, sampleRate float64, maxBlock int32) *Instance {
	t.Helper()
	inst := f.open(t, path)
	ok, err := inst.Initialize(sampleRate, maxBlock)
	require.NoError(t, err)
	require.True(t, ok, "initialize refused: %v", inst.LoadError())
	return inst
}

func buffers(channels, n int, fill float32) [][]float32 {
	out := make([][]float32, channels)
	for c := range out {
		out[c] = make([]float32, n)
		for i := range out[c] {
			out[c][i] = fill
		}
	}
	return out
}

func sine(channels, n int, freq, sampleRate float64) [][]float32 {
	out := buffers(channels, n, 0)
	for i := range n {
		v := float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/sampleRate))
		for c := range out {
			out[c][i] = v
		}
	}
	return out
}

func peak(buf []float32) float32 {
	var p float32
	for _, v := range buf {
		p = max(p, float32(math.Abs(float64(v))))
	}
	return p
}

type fakeView struct {
	resizable bool
	attached  uintptr
	removed   int
	rect      vst3.ViewRect
}

func (v *fakeView) IsPlatformTypeSupported(p string) bool { return p == vst3.PlatformX11EmbedWindow }
func (v *fakeView) Attached(parent uintptr, _ string) error {
	v.attached = parent
	return nil
}
func (v *fakeView) Removed() error               { v.removed++; v.attached = 0; return nil }
func (v *fakeView) OnSize(r vst3.ViewRect) error { v.rect = r; return nil }
func (v *fakeView) Size() vst3.ViewRect          { return v.rect }
func (v *fakeView) CanResize() bool              { return v.resizable }
