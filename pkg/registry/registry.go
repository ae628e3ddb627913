// Package registry is the host-side parameter registry of a plugin instance.
//
// Descriptors are collected with a Builder while the plugin loads and sealed
// into a Registry whose order never changes. Values are plain (in the
// descriptor's range), stored as atomic bits, and carry a dirty flag that
// the engine drains at the start of each block to deliver host edits to the
// plugin. Get and the drain are lock-free. Set takes a per-parameter lock
// that the engine only ever tries, so a block never waits on a host edit.
package registry

import (
	"bytes"
	"math"
	"sync"
	"sync/atomic"

	"github.com/justyntemme/vst3host/pkg/framework/state"
	"github.com/justyntemme/vst3host/pkg/hosterr"
)

// Descriptor is the immutable description of one parameter.
type Descriptor struct {
	ID        int32
	Name      string
	ShortName string
	Units     string
	Min       float64
	Max       float64
	Default   float64
	StepCount int32
	Flags     int32
}

// Clamp limits v to [Min, Max].
func (d Descriptor) Clamp(v float64) float64 {
	return math.Max(d.Min, math.Min(d.Max, v))
}

type entry struct {
	desc  Descriptor
	bits  atomic.Uint64
	dirty atomic.Bool
	edit  sync.Mutex // held by Set across the value and dirty stores
}

func (e *entry) load() float64 {
	return math.Float64frombits(e.bits.Load())
}

func (e *entry) store(v float64) {
	e.bits.Store(math.Float64bits(e.desc.Clamp(v)))
}

// Builder collects descriptors in plugin index order.
type Builder struct {
	entries []*entry
	ids     map[int32]struct{}
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{ids: make(map[int32]struct{})}
}

// Add appends a descriptor. The current value starts at the default.
func (b *Builder) Add(d Descriptor) error {
	if _, dup := b.ids[d.ID]; dup {
		return hosterr.InvalidArgument("id", "Duplicate parameter id").WithContext("id", d.ID)
	}
	if math.IsNaN(d.Min) || math.IsNaN(d.Max) || d.Min > d.Max {
		return hosterr.InvalidArgument("range", "Parameter range is invalid").WithContext("id", d.ID)
	}
	if math.IsNaN(d.Default) {
		d.Default = d.Min
	}
	d.Default = d.Clamp(d.Default)

	e := &entry{desc: d}
	e.store(d.Default)
	b.ids[d.ID] = struct{}{}
	b.entries = append(b.entries, e)
	return nil
}

// Seal freezes the enumeration order. The builder must not be used again.
func (b *Builder) Seal() *Registry {
	r := &Registry{
		entries: b.entries,
		index:   make(map[int32]int32, len(b.entries)),
	}
	for i, e := range b.entries {
		r.index[e.desc.ID] = int32(i)
	}
	b.entries = nil
	return r
}

// Registry is a sealed parameter set.
type Registry struct {
	entries []*entry
	index   map[int32]int32
}

// Count returns the number of parameters.
func (r *Registry) Count() int32 {
	return int32(len(r.entries))
}

// DescriptorAt returns the descriptor at index.
func (r *Registry) DescriptorAt(index int32) (Descriptor, error) {
	if index < 0 || index >= r.Count() {
		return Descriptor{}, hosterr.InvalidArgument("index", "Parameter index out of range").
			WithContext("index", index).
			WithContext("count", r.Count())
	}
	return r.entries[index].desc, nil
}

// IndexOf returns the enumeration index of id.
func (r *Registry) IndexOf(id int32) (int32, bool) {
	i, ok := r.index[id]
	return i, ok
}

func (r *Registry) find(id int32) *entry {
	if i, ok := r.index[id]; ok {
		return r.entries[i]
	}
	return nil
}

// Get returns the current plain value, or 0.0 for an unknown id.
func (r *Registry) Get(id int32) float64 {
	v, _ := r.Lookup(id)
	return v
}

// Lookup returns the current plain value and whether id exists.
func (r *Registry) Lookup(id int32) (float64, bool) {
	e := r.find(id)
	if e == nil {
		return 0, false
	}
	return e.load(), true
}

// Set stores a clamped value and schedules it for delivery to the plugin.
// It reports false for unknown ids and NaN.
func (r *Registry) Set(id int32, v float64) bool {
	e := r.find(id)
	if e == nil || math.IsNaN(v) {
		return false
	}
	e.edit.Lock()
	e.store(v)
	e.dirty.Store(true)
	e.edit.Unlock()
	return true
}

// Store records a value reported by the plugin. It is not redelivered.
// A host edit that is in progress or not yet delivered wins: Store then
// leaves the value alone and reports false.
func (r *Registry) Store(id int32, v float64) bool {
	e := r.find(id)
	if e == nil || math.IsNaN(v) {
		return false
	}
	if !e.edit.TryLock() {
		return false
	}
	defer e.edit.Unlock()
	if e.dirty.Load() {
		return false
	}
	e.store(v)
	return true
}

// TakeDirty clears the dirty flag at index and returns the value to deliver.
func (r *Registry) TakeDirty(index int32) (id int32, value float64, ok bool) {
	e := r.entries[index]
	if !e.dirty.Swap(false) {
		return 0, 0, false
	}
	return e.desc.ID, e.load(), true
}

// MarkDirty schedules the parameter at index for redelivery.
func (r *Registry) MarkDirty(index int32) {
	r.entries[index].dirty.Store(true)
}

// MarkAllDirty schedules every parameter for delivery.
func (r *Registry) MarkAllDirty() {
	for _, e := range r.entries {
		e.dirty.Store(true)
	}
}

// IsDirty reports whether id has an undelivered edit.
func (r *Registry) IsDirty(id int32) bool {
	e := r.find(id)
	return e != nil && e.dirty.Load()
}

// StateValues implements state.Store with plain values.
func (r *Registry) StateValues() []state.Value {
	out := make([]state.Value, len(r.entries))
	for i, e := range r.entries {
		out[i] = state.Value{ID: uint32(e.desc.ID), Value: e.load()}
	}
	return out
}

// RestoreValue implements state.Store. Restored values are delivered to the
// plugin with the next block.
func (r *Registry) RestoreValue(id uint32, value float64) bool {
	return r.Set(int32(id), value)
}

// MarshalBinary encodes the current values.
func (r *Registry) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := state.NewManager(r).Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary restores values written by MarshalBinary. Unknown ids are
// skipped; malformed data changes nothing.
func (r *Registry) UnmarshalBinary(data []byte) error {
	_, err := state.NewManager(r).Load(bytes.NewReader(data))
	return err
}

// DecodeBinary checks data written by MarshalBinary without changing any
// value. The result is applied with Restore.
func (r *Registry) DecodeBinary(data []byte) (*state.Snapshot, error) {
	return state.NewManager(r).Decode(bytes.NewReader(data))
}

// Restore applies a snapshot from DecodeBinary and returns how many values
// matched a parameter.
func (r *Registry) Restore(snap *state.Snapshot) int {
	n, _ := state.NewManager(r).Apply(snap)
	return n
}
