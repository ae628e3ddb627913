package vst3test

import (
	"sync/atomic"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Class returns class info for a test class. The CID derives from name.
func Class(name, subCategories string) vst3.ClassInfo {
	return vst3.ClassInfo{
		CID:           vst3.UIDFromString(name),
		Category:      vst3.CategoryAudioEffect,
		Name:          name,
		Vendor:        "Test Vendor",
		Version:       "1.0.0",
		SubCategories: subCategories,
		SDKVersion:    vst3.SDKVersion,
	}
}

// Factory serves a fixed class list. New is called for every created
// instance; a nil New makes CreateInstance fail.
type Factory struct {
	Vendor  vst3.FactoryInfo
	Classes []vst3.ClassInfo
	New     func(cid vst3.UID) (vst3.Plugin, error)

	created atomic.Int32
}

var _ vst3.PluginFactory = (*Factory)(nil)

// Info implements vst3.PluginFactory.
func (f *Factory) Info() vst3.FactoryInfo { return f.Vendor }

// CountClasses implements vst3.PluginFactory.
func (f *Factory) CountClasses() int32 { return int32(len(f.Classes)) }

// ClassInfo implements vst3.PluginFactory.
func (f *Factory) ClassInfo(index int32) (vst3.ClassInfo, error) {
	if index < 0 || int(index) >= len(f.Classes) {
		return vst3.ClassInfo{}, vst3.ErrInvalidArgument
	}
	return f.Classes[index], nil
}

// CreateInstance implements vst3.PluginFactory.
func (f *Factory) CreateInstance(cid vst3.UID) (vst3.Plugin, error) {
	found := false
	for _, c := range f.Classes {
		if c.CID == cid {
			found = true
			break
		}
	}
	if !found || f.New == nil {
		return nil, vst3.ErrNoClass
	}
	f.created.Add(1)
	return f.New(cid)
}

// Created returns how many instances were created.
func (f *Factory) Created() int { return int(f.created.Load()) }

// SinglePlugin returns a factory with one class that always hands out p.
func SinglePlugin(class vst3.ClassInfo, p vst3.Plugin) *Factory {
	return &Factory{
		Vendor:  vst3.FactoryInfo{Vendor: class.Vendor},
		Classes: []vst3.ClassInfo{class},
		New:     func(vst3.UID) (vst3.Plugin, error) { return p, nil },
	}
}

// Module is an in-process module symbol table with entry accounting.
type Module struct {
	Factory     vst3.PluginFactory
	RefuseEntry bool

	entries atomic.Int32
	exits   atomic.Int32
}

// Symbols returns the exported entry points.
func (m *Module) Symbols() map[string]any {
	return map[string]any{
		vst3.SymbolModuleEntry: func(uintptr) bool {
			if m.RefuseEntry {
				return false
			}
			m.entries.Add(1)
			return true
		},
		vst3.SymbolModuleExit: func() bool {
			m.exits.Add(1)
			return true
		},
		vst3.SymbolGetPluginFactory: func() vst3.PluginFactory {
			return m.Factory
		},
	}
}

// Entries returns how often ModuleEntry succeeded.
func (m *Module) Entries() int { return int(m.entries.Load()) }

// Exits returns how often ModuleExit was called.
func (m *Module) Exits() int { return int(m.exits.Load()) }
