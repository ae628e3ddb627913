package param

import (
	"sync"
	"sync/atomic"

	"github.com/justyntemme/vst3host/pkg/framework/state"
	"github.com/justyntemme/vst3host/pkg/hosterr"
)

type registrySnapshot struct {
	byID  map[uint32]*Parameter
	order []*Parameter
}

// Registry manages plugin parameters. Reads are lock-free: Add publishes a
// new snapshot, so the audio thread never waits on registration.
type Registry struct {
	mu   sync.Mutex
	snap atomic.Pointer[registrySnapshot]
}

// NewRegistry creates a new parameter registry
func NewRegistry() *Registry {
	r := &Registry{}
	r.snap.Store(&registrySnapshot{byID: map[uint32]*Parameter{}})
	return r
}

// Add registers parameters in order. A duplicate id rejects the whole call.
func (r *Registry) Add(params ...*Parameter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	next := &registrySnapshot{
		byID:  make(map[uint32]*Parameter, len(cur.byID)+len(params)),
		order: make([]*Parameter, 0, len(cur.order)+len(params)),
	}
	for id, p := range cur.byID {
		next.byID[id] = p
	}
	next.order = append(next.order, cur.order...)

	for _, p := range params {
		if _, exists := next.byID[p.ID]; exists {
			return hosterr.InvalidArgument("id", "Duplicate parameter id").WithContext("id", p.ID)
		}
		next.byID[p.ID] = p
		next.order = append(next.order, p)
	}

	r.snap.Store(next)
	return nil
}

// Get retrieves a parameter by ID
func (r *Registry) Get(id uint32) *Parameter {
	return r.snap.Load().byID[id]
}

// GetByIndex retrieves a parameter by index
func (r *Registry) GetByIndex(index int32) *Parameter {
	order := r.snap.Load().order
	if index < 0 || index >= int32(len(order)) {
		return nil
	}
	return order[index]
}

// Count returns the number of parameters
func (r *Registry) Count() int32 {
	return int32(len(r.snap.Load().order))
}

// All returns all parameters in order. The slice must not be modified.
func (r *Registry) All() []*Parameter {
	return r.snap.Load().order
}

// StateValues returns the normalized values for persistence.
func (r *Registry) StateValues() []state.Value {
	order := r.All()
	out := make([]state.Value, len(order))
	for i, p := range order {
		out[i] = state.Value{ID: p.ID, Value: p.GetValue()}
	}
	return out
}

// RestoreValue applies a persisted normalized value.
func (r *Registry) RestoreValue(id uint32, value float64) bool {
	p := r.Get(id)
	if p == nil {
		return false
	}
	p.SetValue(value)
	return true
}
