// Package host owns plugin modules and the instances created from them.
//
// A Host loads modules through a loader.Loader, creates at most one Instance
// per module, and drives each instance through its lifecycle:
//
//	Created -> Loaded -> Initialized <-> Processing -> Released
//
// Control operations (LoadPlugin, Initialize, Start/StopProcessing, state,
// editor and Release) are serialized by a per-instance mutex. ProcessAudio
// and ProcessMidi only try that mutex and report a retryable busy error on
// contention. Parameter access is lock-free.
package host

import (
	"errors"
	"sync"

	"github.com/justyntemme/vst3host/pkg/engine"
	"github.com/justyntemme/vst3host/pkg/framework/debug"
	"github.com/justyntemme/vst3host/pkg/hosterr"
	"github.com/justyntemme/vst3host/pkg/loader"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// DefaultName is reported to plugins through vst3.HostContext.
const DefaultName = "vst3host"

// Options configures a Host.
type Options struct {
	// Name is reported to plugins. Empty means DefaultName.
	Name string
	// Logger receives lifecycle events. Nil discards them.
	Logger *debug.Logger
	// MaxEvents is the per-block MIDI queue capacity.
	MaxEvents int
	// SplitAtEvents makes the engine issue one Process call per run of
	// samples between event offsets.
	SplitAtEvents bool
}

// Host is safe for concurrent use by control goroutines.
type Host struct {
	opts   Options
	log    *debug.Logger
	loader *loader.Loader
	ctx    hostContext

	mu        sync.Mutex
	instances map[*Instance]struct{}
}

type hostContext struct {
	name string
}

func (c hostContext) HostName() string { return c.name }

var _ vst3.HostContext = hostContext{}

// New creates a host that opens modules with opener.
func New(opener loader.Opener, opts Options) *Host {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Logger == nil {
		opts.Logger = debug.Discard()
	}
	if opts.MaxEvents <= 0 {
		opts.MaxEvents = engine.DefaultMaxEvents
	}
	return &Host{
		opts:      opts,
		log:       opts.Logger.Named("host"),
		loader:    loader.New(opener, opts.Logger),
		ctx:       hostContext{name: opts.Name},
		instances: make(map[*Instance]struct{}),
	}
}

// Loader returns the module loader.
func (h *Host) Loader() *loader.Loader {
	return h.loader
}

// Load opens a module.
func (h *Host) Load(path string) (*loader.Module, error) {
	return h.loader.Load(path)
}

// Unload releases any instance of m and unloads it. Unloading a nil,
// never-loaded or already unloaded module is a no-op.
func (h *Host) Unload(m *loader.Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, inst := range h.Instances() {
		if inst.module == m {
			errs = append(errs, inst.Release())
		}
	}
	errs = append(errs, h.loader.Unload(m))
	return errors.Join(errs...)
}

// Create makes the single instance of a loaded module.
func (h *Host) Create(m *loader.Module) (*Instance, error) {
	if m == nil {
		return nil, hosterr.InvalidHandle("module")
	}
	if err := m.Claim(); err != nil {
		return nil, err
	}

	inst := newInstance(h, m)
	h.mu.Lock()
	h.instances[inst] = struct{}{}
	h.mu.Unlock()

	h.log.Debug("instance created", "module", m.Path())
	return inst, nil
}

// Instances returns the live instances.
func (h *Host) Instances() []*Instance {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Instance, 0, len(h.instances))
	for inst := range h.instances {
		out = append(out, inst)
	}
	return out
}

func (h *Host) forget(inst *Instance) {
	h.mu.Lock()
	delete(h.instances, inst)
	h.mu.Unlock()
}

// WithInstance loads path, creates an instance and loads its plugin, runs
// fn, and then releases the instance and unloads the module whatever fn
// returned.
func (h *Host) WithInstance(path string, fn func(*Instance) error) (err error) {
	m, err := h.Load(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, h.Unload(m))
	}()

	inst, err := h.Create(m)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, inst.Release())
	}()

	ok, err := inst.LoadPlugin(path)
	if err != nil {
		return err
	}
	if !ok {
		return inst.LoadError()
	}
	return fn(inst)
}

// Close releases every instance and unloads every module.
func (h *Host) Close() error {
	var errs []error
	for _, inst := range h.Instances() {
		errs = append(errs, inst.Release())
	}
	errs = append(errs, h.loader.Close())
	h.log.Info("host closed")
	return errors.Join(errs...)
}
