package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/vst3host/pkg/hosterr"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

type fakeView struct {
	platform  string
	resizable bool
	attached  uintptr
	removed   int
	rect      vst3.ViewRect
	panicOn   string
}

func (v *fakeView) IsPlatformTypeSupported(p string) bool { return p == v.platform }
func (v *fakeView) Attached(parent uintptr, _ string) error {
	if v.panicOn == "attach" {
		panic("attach")
	}
	v.attached = parent
	return nil
}
func (v *fakeView) Removed() error               { v.removed++; v.attached = 0; return nil }
func (v *fakeView) OnSize(r vst3.ViewRect) error { v.rect = r; return nil }
func (v *fakeView) Size() vst3.ViewRect          { return v.rect }
func (v *fakeView) CanResize() bool              { return v.resizable }

type provider struct {
	view *fakeView
}

func (p provider) CreateView(name string) vst3.PlugView {
	if p.view == nil || name != vst3.ViewTypeEditor {
		return nil
	}
	return p.view
}

func TestOpenClose(t *testing.T) {
	view := &fakeView{platform: vst3.PlatformX11EmbedWindow, resizable: true, rect: vst3.ViewRect{Right: 400, Bottom: 300}}
	s := NewSurface(vst3.PlatformX11EmbedWindow)

	ok, err := s.Open(provider{view}, 0x1234)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, s.IsOpen())
	assert.Equal(t, uintptr(0x1234), view.attached)

	ok, err = s.Open(provider{view}, 0x1234)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, view.removed, "same parent is a no-op")

	rect, ok := s.Size()
	assert.True(t, ok)
	assert.Equal(t, int32(400), rect.Width())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, view.removed)
	assert.False(t, s.IsOpen())
	_, ok = s.Size()
	assert.False(t, ok)
}

func TestOpenRefusals(t *testing.T) {
	s := NewSurface(vst3.PlatformX11EmbedWindow)

	_, err := s.Open(provider{}, 0)
	assert.True(t, hosterr.Is(err, hosterr.CodeInvalidArgument))

	ok, err := s.Open(nil, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _ = s.Open(provider{}, 1)
	assert.False(t, ok, "no editor")

	ok, _ = s.Open(provider{&fakeView{platform: "HWND"}}, 1)
	assert.False(t, ok, "platform refused")

	ok, _ = s.Open(provider{&fakeView{platform: vst3.PlatformX11EmbedWindow, panicOn: "attach"}}, 1)
	assert.False(t, ok, "panicking view is refused")
	assert.False(t, s.IsOpen())
}

func TestResize(t *testing.T) {
	view := &fakeView{platform: vst3.PlatformX11EmbedWindow}
	s := NewSurface(vst3.PlatformX11EmbedWindow)

	ok, err := s.Resize(100, 100)
	require.NoError(t, err)
	assert.False(t, ok, "no view")

	_, err = s.Resize(0, 10)
	assert.True(t, hosterr.Is(err, hosterr.CodeInvalidArgument))

	_, _ = s.Open(provider{view}, 7)
	ok, _ = s.Resize(640, 480)
	assert.False(t, ok, "fixed-size view")

	view.resizable = true
	ok, _ = s.Resize(640, 480)
	assert.True(t, ok)
	assert.Equal(t, vst3.ViewRect{Right: 640, Bottom: 480}, view.rect)
}

func TestOpenMovesToNewParent(t *testing.T) {
	view := &fakeView{platform: vst3.PlatformX11EmbedWindow}
	s := NewSurface(vst3.PlatformX11EmbedWindow)
	_, _ = s.Open(provider{view}, 1)
	ok, _ := s.Open(provider{view}, 2)
	assert.True(t, ok)
	assert.Equal(t, 1, view.removed)
	assert.Equal(t, uintptr(2), view.attached)
}
