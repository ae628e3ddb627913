package host

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/justyntemme/vst3host/pkg/editor"
	"github.com/justyntemme/vst3host/pkg/engine"
	"github.com/justyntemme/vst3host/pkg/framework/debug"
	"github.com/justyntemme/vst3host/pkg/hosterr"
	"github.com/justyntemme/vst3host/pkg/loader"
	"github.com/justyntemme/vst3host/pkg/registry"
	"github.com/justyntemme/vst3host/pkg/strcache"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// State is the lifecycle state of an Instance.
type State int32

const (
	StateCreated State = iota
	StateLoaded
	StateInitialized
	StateProcessing
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateLoaded:
		return "Loaded"
	case StateInitialized:
		return "Initialized"
	case StateProcessing:
		return "Processing"
	case StateReleased:
		return "Released"
	}
	return "Unknown"
}

// Instance is one plugin instance bound to a module.
type Instance struct {
	host   *Host
	module *loader.Module
	log    *debug.Logger

	ctrl  sync.Mutex
	state atomic.Int32

	// Written once by LoadPlugin before the state leaves Created.
	comp       vst3.Plugin
	class      vst3.ClassInfo
	vendor     string
	params     *registry.Registry
	layout     engine.Layout
	instrument bool
	effect     bool
	strings    *strcache.Cache

	loadErr    error
	sampleRate float64
	maxBlock   int32
	eng        atomic.Pointer[engine.Engine]
	editor     *editor.Surface
}

func newInstance(h *Host, m *loader.Module) *Instance {
	inst := &Instance{
		host:   h,
		module: m,
		log:    h.opts.Logger.Named("instance").With("module", m.Path()),
		editor: editor.NewSurface(vst3.PlatformX11EmbedWindow),
	}
	inst.state.Store(int32(StateCreated))
	return inst
}

// State returns the lifecycle state.
func (i *Instance) State() State {
	return State(i.state.Load())
}

func (i *Instance) setState(s State) {
	i.state.Store(int32(s))
}

// Module returns the module the instance was created from.
func (i *Instance) Module() *loader.Module {
	return i.module
}

// LoadError returns why the last LoadPlugin or Initialize reported false.
func (i *Instance) LoadError() error {
	i.ctrl.Lock()
	defer i.ctrl.Unlock()
	return i.loadErr
}

// loaded checks that LoadPlugin succeeded and the instance is not released.
func (i *Instance) loaded(op string) error {
	switch i.State() {
	case StateReleased:
		return hosterr.Disposed(op)
	case StateCreated:
		return hosterr.InvalidState(op, StateCreated.String())
	}
	return nil
}

// LoadPlugin enters the module, creates its audio class, negotiates buses
// and builds the parameter registry. A plugin that cannot be hosted yields
// (false, nil); LoadError has the reason.
func (i *Instance) LoadPlugin(path string) (bool, error) {
	i.ctrl.Lock()
	defer i.ctrl.Unlock()

	switch s := i.State(); s {
	case StateReleased:
		return false, hosterr.Disposed("loadPlugin")
	case StateCreated:
	default:
		return false, hosterr.InvalidState("loadPlugin", s.String())
	}
	if i.module.State() != loader.StateLoaded {
		return false, hosterr.InvalidHandle("module")
	}

	i.loadErr = nil
	if !i.module.Matches(path) {
		return i.refuse(path, "path does not match the instance module", nil)
	}
	if err := i.module.Enter(0); err != nil {
		return i.refuse(path, "module entry failed", err)
	}
	factory, err := i.module.Factory()
	if err != nil {
		return i.refuse(path, "no plugin factory", err)
	}

	class, err := pickClass(i.module, factory)
	if err != nil {
		return i.refuse(path, "no audio class", err)
	}

	var comp vst3.Plugin
	if err := guard(func() (err error) {
		comp, err = factory.CreateInstance(class.CID)
		return err
	}); err != nil || comp == nil {
		return i.refuse(path, "class instantiation failed", err)
	}
	if err := guard(func() error { return comp.Initialize(i.host.ctx) }); err != nil {
		terminate(comp)
		return i.refuse(path, "component initialization failed", err)
	}

	layout, err := negotiateBuses(comp)
	if err != nil {
		terminate(comp)
		return i.refuse(path, "bus negotiation failed", err)
	}
	params, err := buildRegistry(comp)
	if err != nil {
		terminate(comp)
		return i.refuse(path, "parameter enumeration failed", err)
	}

	i.comp = comp
	i.class = class
	i.vendor = class.Vendor
	if i.vendor == "" {
		_ = guard(func() error {
			i.vendor = factory.Info().Vendor
			return nil
		})
	}
	i.layout = layout
	i.params = params
	i.instrument, i.effect = categorize(class.SubCategories)
	i.strings = strcache.New(i.describe)
	i.setState(StateLoaded)

	i.log.Info("plugin loaded",
		"class", class.Name,
		"cid", class.CID.String(),
		"params", params.Count(),
		"inputs", layout.InputChannels(),
		"outputs", layout.OutputChannels())
	return true, nil
}

func (i *Instance) refuse(path, reason string, cause error) (bool, error) {
	if cause == nil {
		cause = errors.New(reason)
	} else {
		cause = fmt.Errorf("%s: %w", reason, cause)
	}
	i.loadErr = hosterr.LoadError(path, cause).WithContext("reason", reason)
	i.log.Warn("plugin not loaded", "reason", reason, "err", cause)
	return false, nil
}

// pickClass prefers the audio class named by moduleinfo.json and otherwise
// takes the factory's first audio class.
func pickClass(m *loader.Module, f vst3.PluginFactory) (vst3.ClassInfo, error) {
	var classes []vst3.ClassInfo
	err := guard(func() error {
		n := f.CountClasses()
		for idx := range n {
			c, err := f.ClassInfo(idx)
			if err != nil {
				return err
			}
			classes = append(classes, c)
		}
		return nil
	})
	if err != nil {
		return vst3.ClassInfo{}, err
	}

	if _, uid, ok := m.Info().AudioClass(); ok {
		for _, c := range classes {
			if c.CID == uid {
				return c, nil
			}
		}
	}
	for _, c := range classes {
		if c.Category == vst3.CategoryAudioEffect {
			return c, nil
		}
	}
	return vst3.ClassInfo{}, errors.New("factory has no audio module class")
}

func categorize(subCategories string) (instrument, effect bool) {
	for _, s := range strings.Split(subCategories, "|") {
		switch strings.TrimSpace(s) {
		case vst3.SubCategoryInstrument:
			instrument = true
		case vst3.SubCategoryFx:
			effect = true
		}
	}
	return instrument, effect
}

// Initialize prepares the plugin for blocks of up to maxBlockSize samples
// at sampleRate. Repeating it with the same arguments is a no-op; different
// arguments re-run setup, which is refused while processing.
func (i *Instance) Initialize(sampleRate float64, maxBlockSize int32) (bool, error) {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return false, hosterr.InvalidArgument("sampleRate", "Sample rate must be positive").
			WithContext("sampleRate", sampleRate)
	}
	if maxBlockSize <= 0 {
		return false, hosterr.InvalidArgument("maxBlockSize", "Block size must be positive").
			WithContext("maxBlockSize", maxBlockSize)
	}

	i.ctrl.Lock()
	defer i.ctrl.Unlock()

	s := i.State()
	switch s {
	case StateReleased:
		return false, hosterr.Disposed("initialize")
	case StateCreated:
		return false, hosterr.InvalidState("initialize", s.String())
	}
	same := i.sampleRate == sampleRate && i.maxBlock == maxBlockSize
	switch {
	case s >= StateInitialized && same:
		return true, nil
	case s == StateProcessing:
		return false, hosterr.InvalidState("initialize", s.String()).
			WithContext("reason", "stop processing before changing the setup")
	case s == StateInitialized:
		_ = guard(func() error { return i.comp.SetActive(false) })
		i.setState(StateLoaded)
	}

	i.loadErr = nil
	setup := vst3.ProcessSetup{
		ProcessMode:        vst3.ProcessModeRealtime,
		SymbolicSampleSize: vst3.SampleSize32,
		MaxSamplesPerBlock: maxBlockSize,
		SampleRate:         sampleRate,
	}
	if !i.comp.CanProcessSampleSize(vst3.SampleSize32) {
		return i.refuseSetup("32-bit float processing not supported", nil)
	}
	if err := guard(func() error { return i.comp.SetupProcessing(setup) }); err != nil {
		return i.refuseSetup("processing setup rejected", err)
	}

	eng, err := engine.New(engine.Config{
		SampleRate:    sampleRate,
		MaxBlockSize:  maxBlockSize,
		MaxEvents:     i.host.opts.MaxEvents,
		SplitAtEvents: i.host.opts.SplitAtEvents,
	}, i.comp, i.params, i.layout)
	if err != nil {
		return false, err
	}
	if err := guard(func() error { return i.comp.SetActive(true) }); err != nil {
		return i.refuseSetup("activation rejected", err)
	}

	i.sampleRate = sampleRate
	i.maxBlock = maxBlockSize
	i.eng.Store(eng)
	i.setState(StateInitialized)
	i.log.Info("initialized", "sampleRate", sampleRate, "maxBlockSize", maxBlockSize)
	return true, nil
}

func (i *Instance) refuseSetup(reason string, cause error) (bool, error) {
	if cause == nil {
		cause = errors.New(reason)
	} else {
		cause = fmt.Errorf("%s: %w", reason, cause)
	}
	i.loadErr = hosterr.LoadError(i.module.Path(), cause).WithContext("reason", reason)
	i.log.Warn("initialize refused", "reason", reason, "err", cause)
	return false, nil
}

// StartProcessing moves an initialized instance to Processing. ProcessAudio
// does this implicitly.
func (i *Instance) StartProcessing() error {
	i.ctrl.Lock()
	defer i.ctrl.Unlock()
	return i.start()
}

func (i *Instance) start() error {
	switch s := i.State(); s {
	case StateProcessing:
		return nil
	case StateInitialized:
		if err := guard(func() error { return i.comp.SetProcessing(true) }); err != nil {
			return hosterr.ProcessingFailure("Plugin refused to start processing", err)
		}
		i.setState(StateProcessing)
		return nil
	case StateReleased:
		return hosterr.Disposed("startProcessing")
	default:
		return hosterr.InvalidState("startProcessing", s.String())
	}
}

// StopProcessing returns to Initialized and drops queued MIDI.
func (i *Instance) StopProcessing() error {
	i.ctrl.Lock()
	defer i.ctrl.Unlock()

	switch s := i.State(); s {
	case StateInitialized:
		return nil
	case StateProcessing:
		_ = guard(func() error { return i.comp.SetProcessing(false) })
		if eng := i.eng.Load(); eng != nil {
			eng.ClearMidi()
		}
		i.setState(StateInitialized)
		return nil
	case StateReleased:
		return hosterr.Disposed("stopProcessing")
	default:
		return hosterr.InvalidState("stopProcessing", s.String())
	}
}

// Release shuts the plugin down and frees the module for a new instance.
// It is idempotent; every other operation afterwards reports Disposed.
func (i *Instance) Release() error {
	i.ctrl.Lock()
	defer i.ctrl.Unlock()

	s := i.State()
	if s == StateReleased {
		return nil
	}

	_ = i.editor.Close()
	if s == StateProcessing {
		_ = guard(func() error { return i.comp.SetProcessing(false) })
	}
	if s >= StateInitialized {
		_ = guard(func() error { return i.comp.SetActive(false) })
	}
	if i.comp != nil {
		terminate(i.comp)
	}
	if i.strings != nil {
		i.strings.Clear()
	}
	i.setState(StateReleased)
	i.module.Unclaim()
	i.host.forget(i)

	i.log.Info("released", "from", s.String())
	return nil
}

func terminate(comp vst3.Plugin) {
	_ = guard(comp.Terminate)
}

// guard runs a control-path plugin call and turns a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin panicked: %v", r)
		}
	}()
	return fn()
}

// IsInstrument reports whether the class is an instrument.
func (i *Instance) IsInstrument() (bool, error) {
	if err := i.loaded("isInstrument"); err != nil {
		return false, err
	}
	return i.instrument, nil
}

// IsEffect reports whether the class is an effect.
func (i *Instance) IsEffect() (bool, error) {
	if err := i.loaded("isEffect"); err != nil {
		return false, err
	}
	return i.effect, nil
}

// LatencySamples returns the plugin's reported latency.
func (i *Instance) LatencySamples() (uint32, error) {
	if err := i.loaded("latencySamples"); err != nil {
		return 0, err
	}
	return i.comp.LatencySamples(), nil
}

// TailSamples returns the plugin's reported tail length.
func (i *Instance) TailSamples() (uint32, error) {
	if err := i.loaded("tailSamples"); err != nil {
		return 0, err
	}
	return i.comp.TailSamples(), nil
}

// ClassInfo returns the hosted class.
func (i *Instance) ClassInfo() (vst3.ClassInfo, error) {
	if err := i.loaded("classInfo"); err != nil {
		return vst3.ClassInfo{}, err
	}
	return i.class, nil
}

// Channels returns the negotiated main-bus channel counts. ProcessAudio
// accepts at most the larger of the two.
func (i *Instance) Channels() (in, out int32, err error) {
	if err := i.loaded("channels"); err != nil {
		return 0, 0, err
	}
	return i.layout.InputChannels(), i.layout.OutputChannels(), nil
}

// Stats returns the engine counters. It is zero before Initialize.
func (i *Instance) Stats() engine.Stats {
	if eng := i.eng.Load(); eng != nil {
		return eng.Stats()
	}
	return engine.Stats{}
}
