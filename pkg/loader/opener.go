package loader

import (
	"sort"
	"sync"

	"github.com/justyntemme/vst3host/pkg/hosterr"
)

// Symbols resolves exported names of an opened module.
type Symbols interface {
	Lookup(name string) (any, error)
}

// Opener opens a module by path or name. It returns a NotFound error when it
// does not know the module and a LoadError when the module cannot be opened.
type Opener interface {
	Open(path string) (Symbols, error)
}

// SymbolTable is an in-memory Symbols.
type SymbolTable map[string]any

// Lookup implements Symbols.
func (t SymbolTable) Lookup(name string) (any, error) {
	v, ok := t[name]
	if !ok {
		return nil, hosterr.BindingError(name, "symbol not exported")
	}
	return v, nil
}

// StaticOpener is a catalog of modules compiled into the host binary.
type StaticOpener struct {
	mu      sync.RWMutex
	modules map[string]SymbolTable
}

// NewStaticOpener returns an empty catalog.
func NewStaticOpener() *StaticOpener {
	return &StaticOpener{modules: make(map[string]SymbolTable)}
}

// Register adds or replaces a module.
func (s *StaticOpener) Register(name string, symbols map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules[name] = SymbolTable(symbols)
}

// Names lists the registered modules in sorted order.
func (s *StaticOpener) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.modules))
	for name := range s.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open implements Opener.
func (s *StaticOpener) Open(path string) (Symbols, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	table, ok := s.modules[path]
	if !ok {
		return nil, hosterr.NotFound(path)
	}
	return table, nil
}

// Chain tries each opener in turn and returns the first result that is not
// NotFound.
func Chain(openers ...Opener) Opener {
	return chain(openers)
}

type chain []Opener

func (c chain) Open(path string) (Symbols, error) {
	var last error = hosterr.NotFound(path)
	for _, o := range c {
		syms, err := o.Open(path)
		if err == nil {
			return syms, nil
		}
		last = err
		if !hosterr.Is(err, hosterr.CodeNotFound) {
			return nil, err
		}
	}
	return nil, last
}
