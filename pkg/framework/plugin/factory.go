package plugin

import (
	"sync"
	"sync/atomic"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Factory is a single-class vst3.PluginFactory.
type Factory struct {
	info   Info
	create func() Processor
}

// NewFactory returns a factory that creates adapters around create().
func NewFactory(info Info, create func() Processor) *Factory {
	return &Factory{info: info, create: create}
}

// Info implements vst3.PluginFactory.
func (f *Factory) Info() vst3.FactoryInfo {
	return vst3.FactoryInfo{Vendor: f.info.Vendor, URL: f.info.URL, Email: f.info.Email}
}

// CountClasses implements vst3.PluginFactory.
func (f *Factory) CountClasses() int32 {
	return 1
}

// ClassInfo implements vst3.PluginFactory.
func (f *Factory) ClassInfo(index int32) (vst3.ClassInfo, error) {
	if index != 0 {
		return vst3.ClassInfo{}, vst3.ErrInvalidArgument
	}
	return f.info.ClassInfo(), nil
}

// CreateInstance implements vst3.PluginFactory.
func (f *Factory) CreateInstance(cid vst3.UID) (vst3.Plugin, error) {
	if cid != f.info.UID() {
		return nil, vst3.ErrNoClass
	}
	return NewAdapter(f.info, f.create()), nil
}

// Exports is the entry point set of one module. A plugin main package
// forwards its exported functions to these; builtin modules hand Symbols
// to the loader directly.
type Exports struct {
	info    Info
	create  func() Processor
	entered atomic.Int32

	once    sync.Once
	factory *Factory
}

// Export builds the entry points for a single-class module.
func Export(info Info, create func() Processor) *Exports {
	return &Exports{info: info, create: create}
}

// ModuleEntry is called once by the host before the factory is used. It
// refuses modules whose Info is invalid.
func (e *Exports) ModuleEntry(handle uintptr) bool {
	if e.info.Validate() != nil {
		return false
	}
	e.entered.Add(1)
	return true
}

// ModuleExit balances ModuleEntry.
func (e *Exports) ModuleExit() bool {
	for {
		n := e.entered.Load()
		if n <= 0 {
			return false
		}
		if e.entered.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// Entered reports how many ModuleEntry calls are outstanding.
func (e *Exports) Entered() int32 {
	return e.entered.Load()
}

// GetPluginFactory returns the module factory.
func (e *Exports) GetPluginFactory() vst3.PluginFactory {
	e.once.Do(func() {
		e.factory = NewFactory(e.info, e.create)
	})
	return e.factory
}

// Symbols returns the entry points keyed by exported symbol name.
func (e *Exports) Symbols() map[string]any {
	return map[string]any{
		vst3.SymbolModuleEntry:      vst3.ModuleEntryFunc(e.ModuleEntry),
		vst3.SymbolModuleExit:       vst3.ModuleExitFunc(e.ModuleExit),
		vst3.SymbolGetPluginFactory: vst3.GetPluginFactoryFunc(e.GetPluginFactory),
	}
}
