// Package state implements the binary parameter-state layout shared by the
// plugin framework and the host registry.
//
// Layout (little endian):
//
//	magic "VST3HS" | version u32 | count i32 | count x (id u32, value f64) |
//	custom length u32 | custom bytes
package state

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/justyntemme/vst3host/pkg/hosterr"
)

const (
	magic          = "VST3HS"
	currentVersion = uint32(2)
	maxCustomBytes = 64 << 20
)

// Value is one persisted parameter.
type Value struct {
	ID    uint32
	Value float64
}

// Store is the parameter set a Manager persists.
type Store interface {
	StateValues() []Value
	// RestoreValue applies a loaded value. Unknown ids report false and are
	// skipped.
	RestoreValue(id uint32, value float64) bool
}

// CustomSaveFunc writes additional state after the parameters.
type CustomSaveFunc func(w io.Writer) error

// CustomLoadFunc reads the additional state written by a CustomSaveFunc.
type CustomLoadFunc func(r io.Reader) error

// Manager handles state saving and loading
type Manager struct {
	version    uint32
	store      Store
	saveCustom CustomSaveFunc
	loadCustom CustomLoadFunc
}

// NewManager creates a new state manager
func NewManager(store Store) *Manager {
	return &Manager{
		version: currentVersion,
		store:   store,
	}
}

// SetCustomState installs the functions for saving and loading custom state.
func (m *Manager) SetCustomState(save CustomSaveFunc, load CustomLoadFunc) {
	m.saveCustom = save
	m.loadCustom = load
}

// Save writes the state to w.
func (m *Manager) Save(w io.Writer) error {
	values := m.store.StateValues()

	var buf bytes.Buffer
	buf.WriteString(magic)
	_ = binary.Write(&buf, binary.LittleEndian, m.version)
	_ = binary.Write(&buf, binary.LittleEndian, int32(len(values)))
	for _, v := range values {
		_ = binary.Write(&buf, binary.LittleEndian, v.ID)
		_ = binary.Write(&buf, binary.LittleEndian, v.Value)
	}

	var custom bytes.Buffer
	if m.saveCustom != nil {
		if err := m.saveCustom(&custom); err != nil {
			return hosterr.StateError("Custom state could not be saved", err)
		}
	}
	_ = binary.Write(&buf, binary.LittleEndian, uint32(custom.Len()))
	buf.Write(custom.Bytes())

	_, err := w.Write(buf.Bytes())
	return err
}

// Snapshot is decoded state that has not been applied to a store.
type Snapshot struct {
	Values []Value
	Custom []byte
}

// Load reads state from r and applies it to the store. It returns the number
// of values that were applied. Malformed state changes nothing.
func (m *Manager) Load(r io.Reader) (int, error) {
	snap, err := m.Decode(r)
	if err != nil {
		return 0, err
	}
	return m.Apply(snap)
}

// Decode reads and checks state without touching the store.
func (m *Manager) Decode(r io.Reader) (*Snapshot, error) {
	header := make([]byte, len(magic))
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, hosterr.StateError("State header is truncated", err)
	}
	if string(header) != magic {
		return nil, hosterr.StateError("Invalid state format", nil)
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, hosterr.StateError("State version is truncated", err)
	}
	if version == 0 || version > m.version {
		return nil, hosterr.StateError("Unsupported state version", nil)
	}

	var count int32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, hosterr.StateError("Parameter count is truncated", err)
	}
	if count < 0 {
		return nil, hosterr.StateError("Negative parameter count", nil)
	}

	values := make([]Value, 0, min(int(count), 4096))
	for i := int32(0); i < count; i++ {
		var v Value
		if err := binary.Read(r, binary.LittleEndian, &v.ID); err != nil {
			return nil, hosterr.StateError("Parameter entry is truncated", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &v.Value); err != nil {
			return nil, hosterr.StateError("Parameter entry is truncated", err)
		}
		values = append(values, v)
	}

	// Version 1 had a u32 flag here and never wrote custom data.
	var customLen uint32
	if err := binary.Read(r, binary.LittleEndian, &customLen); err != nil {
		return nil, hosterr.StateError("Custom state header is truncated", err)
	}
	var custom []byte
	if version >= 2 && customLen > 0 {
		if customLen > maxCustomBytes {
			return nil, hosterr.StateError("Custom state is too large", nil)
		}
		custom = make([]byte, customLen)
		if _, err := io.ReadFull(r, custom); err != nil {
			return nil, hosterr.StateError("Custom state is truncated", err)
		}
	}

	return &Snapshot{Values: values, Custom: custom}, nil
}

// Apply restores a decoded snapshot and returns the number of values the
// store accepted.
func (m *Manager) Apply(snap *Snapshot) (int, error) {
	applied := 0
	for _, v := range snap.Values {
		if m.store.RestoreValue(v.ID, v.Value) {
			applied++
		}
	}

	if len(snap.Custom) > 0 && m.loadCustom != nil {
		if err := m.loadCustom(bytes.NewReader(snap.Custom)); err != nil {
			return applied, hosterr.StateError("Custom state could not be loaded", err)
		}
	}
	return applied, nil
}
