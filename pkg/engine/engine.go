// Package engine drives a component's realtime processing: it validates the
// caller's buffers, maps them onto the plugin's buses, delivers queued MIDI
// and pending parameter edits, and calls Process.
//
// Everything Process touches is allocated by New. The process path does not
// allocate, lock, log or perform I/O, and every error it returns is a shared
// sentinel from hosterr.
package engine

import (
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/agilira/go-timecache"

	"github.com/justyntemme/vst3host/pkg/framework/debug"
	"github.com/justyntemme/vst3host/pkg/hosterr"
	"github.com/justyntemme/vst3host/pkg/midi"
	"github.com/justyntemme/vst3host/pkg/registry"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// DefaultMaxEvents is the MIDI queue capacity when Config.MaxEvents is zero.
const DefaultMaxEvents = 512

// Component is the part of a plugin the engine calls.
type Component interface {
	Process(data *vst3.ProcessData) error
	PlainToNormalized(id vst3.ParamID, plain float64) float64
	NormalizedToPlain(id vst3.ParamID, normalized float64) float64
}

// Config fixes the block geometry for the lifetime of an engine.
type Config struct {
	SampleRate    float64
	MaxBlockSize  int32
	MaxEvents     int
	SplitAtEvents bool
}

// Layout is the negotiated channel count of every active audio bus.
type Layout struct {
	Inputs  []int32
	Outputs []int32
}

// InputChannels returns the total input channel count.
func (l Layout) InputChannels() int32 { return sum(l.Inputs) }

// OutputChannels returns the total output channel count.
func (l Layout) OutputChannels() int32 { return sum(l.Outputs) }

// MaxChannels is the largest numChannels a caller may pass.
func (l Layout) MaxChannels() int32 {
	return max(l.InputChannels(), l.OutputChannels())
}

func sum(v []int32) int32 {
	n := int32(0)
	for _, c := range v {
		n += c
	}
	return n
}

// Engine processes blocks for one component. It is not safe for concurrent
// use; the owning instance guarantees a single processing goroutine. Stats
// may be read from any goroutine.
type Engine struct {
	cfg    Config
	comp   Component
	params *registry.Registry
	layout Layout
	maxCh  int32

	queue   *midi.Queue
	events  *vst3.EventList
	sub     *vst3.EventList
	changes *vst3.ParameterChanges
	outPC   *vst3.ParameterChanges
	noPC    *vst3.ParameterChanges
	pending []int32

	data      vst3.ProcessData
	transport vst3.ProcessContext
	inBuses   []vst3.AudioBusBuffers
	outBuses  []vst3.AudioBusBuffers
	inFlat    [][]float32 // block views, one per plugin input channel
	outFlat   [][]float32
	scratch   [][]float32 // plugin outputs the caller did not ask for
	silence   []float32

	load       *debug.LoadMeter
	blocks     atomic.Uint64
	failures   atomic.Uint64
	busy       atomic.Uint64
	midiEvents atomic.Uint64
	samples    atomic.Uint64
	lastBlock  atomic.Int64
}

// New allocates an engine for cfg. The registry may be nil for plugins
// without parameters.
func New(cfg Config, comp Component, params *registry.Registry, layout Layout) (*Engine, error) {
	if comp == nil {
		return nil, hosterr.InvalidArgument("component", "Component is nil")
	}
	if !(cfg.SampleRate > 0) || cfg.MaxBlockSize <= 0 {
		return nil, hosterr.InvalidArgument("config", "Sample rate and block size must be positive").
			WithContext("sampleRate", cfg.SampleRate).
			WithContext("maxBlockSize", cfg.MaxBlockSize)
	}
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = DefaultMaxEvents
	}

	e := &Engine{
		cfg:    cfg,
		comp:   comp,
		params: params,
		layout: layout,
		maxCh:  layout.MaxChannels(),
		queue:  midi.NewQueue(cfg.MaxEvents, cfg.MaxBlockSize),
		events: vst3.NewEventList(cfg.MaxEvents),
		sub:    vst3.NewEventList(cfg.MaxEvents),
		noPC:   vst3.NewParameterChanges(0),
		load:   debug.NewLoadMeter(),
	}

	nParams := 0
	if params != nil {
		nParams = int(params.Count())
	}
	e.changes = vst3.NewParameterChanges(nParams)
	e.outPC = vst3.NewParameterChanges(max(4*nParams, 16))
	e.pending = make([]int32, 0, nParams)

	e.inBuses = makeBuses(layout.Inputs)
	e.outBuses = makeBuses(layout.Outputs)
	e.inFlat = make([][]float32, layout.InputChannels())
	e.outFlat = make([][]float32, layout.OutputChannels())
	e.scratch = make([][]float32, len(e.outFlat))
	for i := range e.scratch {
		e.scratch[i] = make([]float32, cfg.MaxBlockSize)
	}
	e.silence = make([]float32, cfg.MaxBlockSize)

	e.transport = vst3.ProcessContext{
		State:      vst3.ContextContTimeValid,
		SampleRate: cfg.SampleRate,
	}
	e.data = vst3.ProcessData{
		ProcessMode:            vst3.ProcessModeRealtime,
		SymbolicSampleSize:     vst3.SampleSize32,
		Inputs:                 e.inBuses,
		Outputs:                e.outBuses,
		OutputParameterChanges: e.outPC,
		Context:                &e.transport,
	}
	return e, nil
}

func makeBuses(channels []int32) []vst3.AudioBusBuffers {
	buses := make([]vst3.AudioBusBuffers, len(channels))
	for i, n := range channels {
		buses[i] = vst3.AudioBusBuffers{
			NumChannels: n,
			Channels:    make([][]float32, n),
		}
	}
	return buses
}

// Config returns the engine configuration with defaults applied.
func (e *Engine) Config() Config { return e.cfg }

// Layout returns the bus layout.
func (e *Engine) Layout() Layout { return e.layout }

// MaxChannels returns the largest accepted numChannels.
func (e *Engine) MaxChannels() int32 { return e.maxCh }

// QueueMidi validates events and queues them for the next block. The batch
// is queued entirely or not at all.
func (e *Engine) QueueMidi(events []midi.Event) error {
	return e.queue.Push(events)
}

// PendingMidi returns the number of queued events.
func (e *Engine) PendingMidi() int {
	return e.queue.Len()
}

// ClearMidi drops queued events.
func (e *Engine) ClearMidi() {
	e.queue.Reset()
}

// NoteBusy counts a block rejected because a control operation held the
// instance.
func (e *Engine) NoteBusy() {
	e.busy.Add(1)
}

// Process renders numSamples samples of numChannels channels. inputs may be
// nil, and individual input channels may be nil, for silence.
//
// On success every output channel is fully written; caller channels the
// plugin has no output for are zeroed. On failure the output is undefined,
// queued MIDI is kept, and parameter edits are redelivered with the next
// block.
func (e *Engine) Process(inputs, outputs [][]float32, numChannels, numSamples int32) error {
	if err := e.validate(inputs, outputs, numChannels, numSamples); err != nil {
		return err
	}
	if numSamples == 0 {
		return nil
	}

	mark := e.load.Begin()
	e.bind(inputs, outputs, numChannels, numSamples)
	e.collectEvents(numSamples)
	e.collectChanges()
	e.outPC.Reset()

	var err error
	if e.cfg.SplitAtEvents && e.events.Count() > 0 {
		err = e.processSplit(numSamples)
	} else {
		e.data.NumSamples = numSamples
		e.data.InputEvents = e.events
		e.data.InputParameterChanges = e.changes
		err = e.call()
	}

	if err != nil {
		for _, idx := range e.pending {
			e.params.MarkDirty(idx)
		}
		e.failures.Add(1)
		return err
	}

	for c := e.layout.OutputChannels(); c < numChannels; c++ {
		clear(outputs[c][:numSamples])
	}
	e.applyOutputChanges()
	e.midiEvents.Add(uint64(e.queue.Len()))
	e.queue.Reset()
	e.transport.ContinuousTimeSamples += int64(numSamples)

	e.blocks.Add(1)
	e.samples.Add(uint64(numSamples))
	e.lastBlock.Store(timecache.CachedTimeNano())
	e.load.End(mark, numSamples, e.cfg.SampleRate)
	return nil
}

func (e *Engine) validate(inputs, outputs [][]float32, numChannels, numSamples int32) error {
	switch {
	case numSamples < 0:
		return hosterr.ErrNegativeSamples
	case numSamples > e.cfg.MaxBlockSize:
		return hosterr.ErrBlockTooLarge
	case numChannels < 0:
		return hosterr.ErrNegativeChannels
	case numChannels > e.maxCh:
		return hosterr.ErrTooManyChannels
	case numSamples == 0:
		return nil
	case int32(len(outputs)) < numChannels:
		return hosterr.ErrShortOutputs
	case inputs != nil && int32(len(inputs)) < numChannels:
		return hosterr.ErrShortInputs
	}

	n := int(numSamples)
	for c := range numChannels {
		if len(outputs[c]) < n {
			return hosterr.ErrShortBuffer
		}
		if inputs != nil && inputs[c] != nil && len(inputs[c]) < n {
			return hosterr.ErrShortBuffer
		}
	}
	if inputs == nil {
		return nil
	}
	for i := range numChannels {
		if inputs[i] == nil {
			continue
		}
		for o := range numChannels {
			if overlaps(inputs[i][:n], outputs[o][:n]) {
				return hosterr.ErrAliasedBuffers
			}
		}
	}
	return nil
}

// overlaps reports whether two non-empty float slices share any element.
func overlaps(a, b []float32) bool {
	const size = unsafe.Sizeof(float32(0))
	pa := uintptr(unsafe.Pointer(unsafe.SliceData(a)))
	pb := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	return pa < pb+uintptr(len(b))*size && pb < pa+uintptr(len(a))*size
}

// bind points the bus channel views at the caller's buffers. Plugin inputs
// past the caller's channels read silence; plugin outputs past them write to
// scratch.
func (e *Engine) bind(inputs, outputs [][]float32, numChannels, numSamples int32) {
	clear(e.silence[:numSamples])
	for c := range e.inFlat {
		if int32(c) < numChannels && inputs != nil && inputs[c] != nil {
			e.inFlat[c] = inputs[c][:numSamples]
		} else {
			e.inFlat[c] = e.silence[:numSamples]
		}
	}
	for c := range e.outFlat {
		if int32(c) < numChannels {
			e.outFlat[c] = outputs[c][:numSamples]
		} else {
			e.outFlat[c] = e.scratch[c][:numSamples]
		}
	}
	e.sliceBuses(0, numSamples)
}

// sliceBuses exposes [start, end) of the flat channel views through the bus
// buffers.
func (e *Engine) sliceBuses(start, end int32) {
	spread(e.inBuses, e.inFlat, start, end)
	spread(e.outBuses, e.outFlat, start, end)
}

func spread(buses []vst3.AudioBusBuffers, flat [][]float32, start, end int32) {
	c := 0
	for i := range buses {
		for k := range buses[i].Channels {
			buses[i].Channels[k] = flat[c][start:end]
			c++
		}
	}
}

func (e *Engine) collectEvents(numSamples int32) {
	e.events.Reset()
	for _, m := range e.queue.Events() {
		ev, ok := convert(m)
		if !ok {
			continue
		}
		ev.SampleOffset = min(m.SampleOffset, numSamples-1)
		e.events.Add(ev)
	}
}

func (e *Engine) collectChanges() {
	e.changes.Reset()
	e.pending = e.pending[:0]
	if e.params == nil {
		return
	}
	for idx := range e.params.Count() {
		id, plain, ok := e.params.TakeDirty(idx)
		if !ok {
			continue
		}
		pid := vst3.ParamID(id)
		e.changes.Add(pid, 0, e.comp.PlainToNormalized(pid, plain))
		e.pending = append(e.pending, idx)
	}
}

// processSplit issues one Process call per run of samples between distinct
// event offsets. Events are rebased to the start of their sub-block and
// parameter changes ride on the first one.
func (e *Engine) processSplit(numSamples int32) error {
	events := e.events.Events()
	start, next := int32(0), 0
	first := true
	for start < numSamples {
		e.sub.Reset()
		for next < len(events) && events[next].SampleOffset <= start {
			ev := events[next]
			ev.SampleOffset = 0
			e.sub.Add(ev)
			next++
		}
		end := numSamples
		if next < len(events) {
			end = events[next].SampleOffset
		}

		e.sliceBuses(start, end)
		e.data.NumSamples = end - start
		e.data.InputEvents = e.sub
		e.data.InputParameterChanges = e.noPC
		if first {
			e.data.InputParameterChanges = e.changes
			first = false
		}
		if err := e.call(); err != nil {
			return err
		}
		start = end
	}
	return nil
}

// call invokes the plugin and converts failures to sentinels.
func (e *Engine) call() (err error) {
	defer func() {
		if recover() != nil {
			err = hosterr.ErrPluginPanic
		}
	}()
	if perr := e.comp.Process(&e.data); perr != nil {
		if perr == hosterr.ErrPluginPanic {
			return perr
		}
		return hosterr.ErrPluginRejected
	}
	return nil
}

// applyOutputChanges stores values the plugin reported without scheduling
// them for delivery back to it. Parameters the host edited during the block
// keep the host value.
func (e *Engine) applyOutputChanges() {
	if e.params == nil {
		return
	}
	for _, pc := range e.outPC.Points() {
		e.params.Store(int32(pc.ID), e.comp.NormalizedToPlain(pc.ID, pc.Value))
	}
}

// convert maps a channel-voice message onto a plugin event.
func convert(m midi.Event) (vst3.Event, bool) {
	ev := vst3.Event{Channel: int16(m.Channel())}
	switch m.Kind() {
	case midi.KindNoteOn:
		ev.Type = vst3.EventNoteOn
		if m.Data2 == 0 {
			ev.Type = vst3.EventNoteOff
		}
		ev.Pitch = int16(m.Data1)
		ev.Velocity = float32(m.Data2) / 127
		ev.NoteID = -1
	case midi.KindNoteOff:
		ev.Type = vst3.EventNoteOff
		ev.Pitch = int16(m.Data1)
		ev.Velocity = float32(m.Data2) / 127
		ev.NoteID = -1
	case midi.KindPolyPressure:
		ev.Type = vst3.EventPolyPressure
		ev.Pitch = int16(m.Data1)
		ev.Pressure = float32(m.Data2) / 127
		ev.NoteID = -1
	case midi.KindControlChange:
		ev.Type = vst3.EventLegacyMIDICCOut
		ev.ControlNumber = m.Data1
		ev.Value = int8(m.Data2)
	case midi.KindChannelPressure:
		ev.Type = vst3.EventLegacyMIDICCOut
		ev.ControlNumber = vst3.ControllerAfterTouch
		ev.Value = int8(m.Data1)
	case midi.KindPitchBend:
		ev.Type = vst3.EventLegacyMIDICCOut
		ev.ControlNumber = vst3.ControllerPitchBend
		ev.Value = int8(m.Data1)
		ev.Value2 = int8(m.Data2)
	case midi.KindProgramChange:
		ev.Type = vst3.EventLegacyMIDICCOut
		ev.ControlNumber = vst3.ControllerProgramChange
		ev.Value = int8(m.Data1)
	default:
		return vst3.Event{}, false
	}
	return ev, true
}

// Stats is a snapshot of engine counters.
type Stats struct {
	Blocks     uint64
	Failures   uint64
	Busy       uint64
	MidiEvents uint64
	Samples    uint64
	LastLoad   float64
	PeakLoad   float64
	AvgLoad    float64
	LastBlock  time.Time
}

// Stats returns the current counters. Safe from any goroutine.
func (e *Engine) Stats() Stats {
	load := e.load.Snapshot()
	s := Stats{
		Blocks:     e.blocks.Load(),
		Failures:   e.failures.Load(),
		Busy:       e.busy.Load(),
		MidiEvents: e.midiEvents.Load(),
		Samples:    e.samples.Load(),
		LastLoad:   load.LastLoad,
		PeakLoad:   load.PeakLoad,
		AvgLoad:    load.AvgLoad,
	}
	if ns := e.lastBlock.Load(); ns != 0 {
		s.LastBlock = time.Unix(0, ns)
	}
	return s
}
