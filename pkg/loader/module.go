package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/justyntemme/vst3host/pkg/bundle"
	"github.com/justyntemme/vst3host/pkg/hosterr"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Module is a loaded plugin module. The zero value is an unloaded module.
type Module struct {
	path     string
	binary   string
	info     *bundle.ModuleInfo
	loadedAt time.Time

	mu      sync.Mutex
	state   State
	caps    *Capabilities
	entered bool
	claimed bool
}

// Path returns the path the module was loaded from.
func (m *Module) Path() string { return m.path }

// Binary returns the file that was opened.
func (m *Module) Binary() string { return m.binary }

// Matches reports whether path names this module: the path it was loaded
// from, the binary that was opened, or a bundle resolving to that binary.
func (m *Module) Matches(path string) bool {
	if path == "" {
		return false
	}
	if path == m.path || path == m.binary {
		return true
	}
	if filepath.Clean(path) == filepath.Clean(m.binary) {
		return true
	}
	b, err := bundle.Resolve(path)
	return err == nil && filepath.Clean(b.Binary) == filepath.Clean(m.binary)
}

// Info returns the bundle's moduleinfo.json, or nil.
func (m *Module) Info() *bundle.ModuleInfo { return m.info }

// LoadTime returns when the module was loaded.
func (m *Module) LoadTime() time.Time { return m.loadedAt }

// State returns the module state.
func (m *Module) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Capabilities returns the bound entry points.
func (m *Module) Capabilities() (*Capabilities, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateLoaded {
		return nil, hosterr.InvalidHandle("module")
	}
	return m.caps, nil
}

// Enter calls ModuleEntry once. A refused or panicking entry marks the module
// Failed.
func (m *Module) Enter(handle uintptr) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateLoaded {
		return hosterr.InvalidHandle("module")
	}
	if m.entered {
		return nil
	}

	ok, err := safeEntry(m.caps.ModuleEntry, handle)
	if err == nil && !ok {
		err = errors.New("ModuleEntry returned false")
	}
	if err != nil {
		m.state = StateFailed
		return hosterr.LoadError(m.path, err)
	}
	m.entered = true
	return nil
}

// Factory returns the module's plugin factory. The module must be entered.
func (m *Module) Factory() (vst3.PluginFactory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateLoaded {
		return nil, hosterr.InvalidHandle("module")
	}
	if !m.entered {
		return nil, hosterr.InvalidState("factory", "not entered")
	}

	f, err := safeFactory(m.caps.GetPluginFactory)
	if err == nil && f == nil {
		err = errors.New("GetPluginFactory returned nil")
	}
	if err != nil {
		return nil, hosterr.LoadError(m.path, err)
	}
	return f, nil
}

// Claim reserves the module for one instance.
func (m *Module) Claim() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateLoaded {
		return hosterr.InvalidHandle("module")
	}
	if m.claimed {
		return hosterr.InvalidState("create", "module already has a live instance")
	}
	m.claimed = true
	return nil
}

// Unclaim frees the module for a new instance.
func (m *Module) Unclaim() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claimed = false
}

func safeEntry(entry vst3.ModuleEntryFunc, handle uintptr) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ModuleEntry panicked: %v", r)
		}
	}()
	return entry(handle), nil
}

func safeFactory(get vst3.GetPluginFactoryFunc) (f vst3.PluginFactory, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("GetPluginFactory panicked: %v", r)
		}
	}()
	return get(), nil
}
