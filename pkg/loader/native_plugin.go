//go:build (linux || darwin || freebsd) && cgo

package loader

import (
	"plugin"

	"github.com/justyntemme/vst3host/pkg/hosterr"
)

// NativeOpener opens Go shared objects built with -buildmode=plugin.
type NativeOpener struct{}

// Open implements Opener.
func (NativeOpener) Open(path string) (Symbols, error) {
	if err := statModule(path); err != nil {
		return nil, err
	}
	p, err := plugin.Open(path)
	if err != nil {
		return nil, hosterr.LoadError(path, err)
	}
	return nativeSymbols{p}, nil
}

type nativeSymbols struct {
	p *plugin.Plugin
}

func (s nativeSymbols) Lookup(name string) (any, error) {
	sym, err := s.p.Lookup(name)
	if err != nil {
		return nil, hosterr.BindingError(name, err.Error())
	}
	return sym, nil
}
