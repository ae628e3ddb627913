// Package loader opens plugin modules, binds their entry points once, and
// tracks them until they are unloaded.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/agilira/go-timecache"

	"github.com/justyntemme/vst3host/pkg/bundle"
	"github.com/justyntemme/vst3host/pkg/framework/debug"
	"github.com/justyntemme/vst3host/pkg/hosterr"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// State is the lifecycle state of a Module.
type State int32

const (
	StateUnloaded State = iota
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "Unloaded"
	case StateLoaded:
		return "Loaded"
	case StateFailed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Capabilities is the entry point table bound from a module.
type Capabilities struct {
	ModuleEntry      vst3.ModuleEntryFunc
	ModuleExit       vst3.ModuleExitFunc
	GetPluginFactory vst3.GetPluginFactoryFunc
}

func statModule(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return hosterr.NotFound(path)
		}
		return hosterr.LoadError(path, err)
	}
	return nil
}

// Loader opens modules through an Opener.
type Loader struct {
	opener Opener
	log    *debug.Logger

	mu      sync.Mutex
	modules map[*Module]struct{}
}

// New creates a loader. A nil logger discards output.
func New(opener Opener, log *debug.Logger) *Loader {
	if log == nil {
		log = debug.Discard()
	}
	return &Loader{
		opener:  opener,
		log:     log.Named("loader"),
		modules: make(map[*Module]struct{}),
	}
}

// Load opens path and binds its entry points. Bundles are resolved to their
// platform binary first. No module is returned unless every entry point was
// bound.
func (l *Loader) Load(path string) (*Module, error) {
	if path == "" {
		return nil, hosterr.NotFound(path)
	}

	target := path
	var info *bundle.ModuleInfo
	b, err := bundle.Resolve(path)
	switch {
	case err == nil:
		target, info = b.Binary, b.Info
	case !hosterr.Is(err, hosterr.CodeNotFound):
		l.log.Warn("bundle rejected", "path", path, "err", err)
		return nil, err
	}

	syms, err := l.opener.Open(target)
	if err != nil {
		l.log.Warn("module open failed", "path", path, "err", err)
		return nil, err
	}

	caps, err := bind(syms)
	if err != nil {
		l.log.Warn("entry point binding failed", "path", path, "err", err)
		return nil, err
	}

	m := &Module{
		path:     path,
		binary:   target,
		info:     info,
		loadedAt: timecache.CachedTime(),
		state:    StateLoaded,
		caps:     caps,
	}

	l.mu.Lock()
	l.modules[m] = struct{}{}
	l.mu.Unlock()

	l.log.Info("module loaded", "path", path, "binary", target)
	return m, nil
}

// Unload exits and forgets a module. It is a no-op for nil, never-loaded and
// already unloaded modules. The Go runtime cannot unmap a shared object, so
// the code stays resident; the handle is what becomes unusable.
func (l *Loader) Unload(m *Module) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	if m.state == StateUnloaded {
		m.mu.Unlock()
		return nil
	}
	if m.entered && m.caps != nil {
		if !callExit(m.caps.ModuleExit) {
			l.log.Warn("ModuleExit reported failure", "path", m.path)
		}
	}
	m.entered = false
	m.claimed = false
	m.caps = nil
	m.state = StateUnloaded
	m.mu.Unlock()

	l.mu.Lock()
	delete(l.modules, m)
	l.mu.Unlock()

	l.log.Info("module unloaded", "path", m.path)
	return nil
}

// Modules returns the modules that are currently loaded.
func (l *Loader) Modules() []*Module {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Module, 0, len(l.modules))
	for m := range l.modules {
		out = append(out, m)
	}
	return out
}

// Close unloads every module.
func (l *Loader) Close() error {
	for _, m := range l.Modules() {
		_ = l.Unload(m)
	}
	return nil
}

func bind(syms Symbols) (*Capabilities, error) {
	caps := &Capabilities{}

	v, err := syms.Lookup(vst3.SymbolModuleEntry)
	if err != nil {
		return nil, missing(vst3.SymbolModuleEntry, err)
	}
	switch f := v.(type) {
	case func(uintptr) bool:
		caps.ModuleEntry = f
	case *func(uintptr) bool:
		if f != nil {
			caps.ModuleEntry = *f
		}
	}
	if caps.ModuleEntry == nil {
		return nil, mistyped(vst3.SymbolModuleEntry, v)
	}

	v, err = syms.Lookup(vst3.SymbolModuleExit)
	if err != nil {
		return nil, missing(vst3.SymbolModuleExit, err)
	}
	switch f := v.(type) {
	case func() bool:
		caps.ModuleExit = f
	case *func() bool:
		if f != nil {
			caps.ModuleExit = *f
		}
	}
	if caps.ModuleExit == nil {
		return nil, mistyped(vst3.SymbolModuleExit, v)
	}

	v, err = syms.Lookup(vst3.SymbolGetPluginFactory)
	if err != nil {
		return nil, missing(vst3.SymbolGetPluginFactory, err)
	}
	switch f := v.(type) {
	case func() vst3.PluginFactory:
		caps.GetPluginFactory = f
	case *func() vst3.PluginFactory:
		if f != nil {
			caps.GetPluginFactory = *f
		}
	}
	if caps.GetPluginFactory == nil {
		return nil, mistyped(vst3.SymbolGetPluginFactory, v)
	}

	return caps, nil
}

func missing(symbol string, err error) error {
	if hosterr.Is(err, hosterr.CodeBindingError) {
		return err
	}
	return hosterr.BindingError(symbol, err.Error())
}

func mistyped(symbol string, v any) error {
	return hosterr.BindingError(symbol, fmt.Sprintf("unexpected type %T", v))
}

func callExit(exit vst3.ModuleExitFunc) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return exit()
}
