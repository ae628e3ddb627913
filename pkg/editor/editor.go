// Package editor attaches a plugin's editor view to a host window.
package editor

import (
	"sync"

	"github.com/justyntemme/vst3host/pkg/hosterr"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Surface owns at most one attached view.
type Surface struct {
	platform string

	mu     sync.Mutex
	view   vst3.PlugView
	parent uintptr
}

// NewSurface creates a surface for a window platform such as
// vst3.PlatformX11EmbedWindow.
func NewSurface(platform string) *Surface {
	return &Surface{platform: platform}
}

// Open asks p for its editor view and attaches it to parent. It reports false
// when the plugin has no editor, does not support the platform, or refuses
// the attachment. Opening again with the same parent is a no-op; a different
// parent moves the editor.
func (s *Surface) Open(p vst3.EditorProvider, parent uintptr) (bool, error) {
	if parent == 0 {
		return false, hosterr.InvalidArgument("windowHandle", "Window handle is zero")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view != nil {
		if s.parent == parent {
			return true, nil
		}
		s.detach()
	}
	if p == nil {
		return false, nil
	}

	view := createView(p)
	if view == nil {
		return false, nil
	}
	if !guard(func() error {
		if !view.IsPlatformTypeSupported(s.platform) {
			return vst3.ErrFalse
		}
		return view.Attached(parent, s.platform)
	}) {
		return false, nil
	}

	s.view = view
	s.parent = parent
	return true, nil
}

// Close removes the view. It is idempotent.
func (s *Surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detach()
	return nil
}

func (s *Surface) detach() {
	if s.view == nil {
		return
	}
	view := s.view
	guard(view.Removed)
	s.view = nil
	s.parent = 0
}

// Resize forwards a new size to a resizable view. It reports false when no
// view is open or the view keeps its size.
func (s *Surface) Resize(width, height int32) (bool, error) {
	if width <= 0 || height <= 0 {
		return false, hosterr.InvalidArgument("size", "Editor size must be positive").
			WithContext("width", width).
			WithContext("height", height)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil {
		return false, nil
	}
	view := s.view
	ok := guard(func() error {
		if !view.CanResize() {
			return vst3.ErrFalse
		}
		return view.OnSize(vst3.ViewRect{Right: width, Bottom: height})
	})
	return ok, nil
}

// IsOpen reports whether a view is attached.
func (s *Surface) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view != nil
}

// Size returns the view size while one is attached.
func (s *Surface) Size() (vst3.ViewRect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil {
		return vst3.ViewRect{}, false
	}
	var rect vst3.ViewRect
	ok := guard(func() error {
		rect = s.view.Size()
		return nil
	})
	return rect, ok
}

func createView(p vst3.EditorProvider) (view vst3.PlugView) {
	defer func() {
		if recover() != nil {
			view = nil
		}
	}()
	return p.CreateView(vst3.ViewTypeEditor)
}

// guard runs a plugin call and reports whether it succeeded without
// panicking.
func guard(fn func() error) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return fn() == nil
}
