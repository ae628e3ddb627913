// Package vst3test provides recording and faulty implementations of the
// vst3 module contract for host tests.
package vst3test

import (
	"bytes"
	"io"
	"strconv"
	"sync"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Param describes a parameter of a test plugin in plain units.
type Param struct {
	ID      vst3.ParamID
	Title   string
	Min     float64
	Max     float64
	Default float64
}

func (p Param) normalize(plain float64) float64 {
	if p.Max == p.Min {
		return 0
	}
	return (plain - p.Min) / (p.Max - p.Min)
}

// Call is one recorded Process invocation.
type Call struct {
	NumSamples int32
	Events     []vst3.Event
	Changes    []vst3.ParamValueChange
	Inputs     int
	Outputs    int
}

// Plugin is a configurable vst3.Plugin. Audio inputs are copied to the
// matching outputs; outputs without an input are filled with Fill.
//
// Fields set before the plugin is handed to a host configure it; the
// exported state fields are written by the contract methods.
type Plugin struct {
	Inputs     []int32
	Outputs    []int32
	EventInput bool
	Params     []Param
	Fill       float32
	Latency    uint32
	Tail       uint32
	View       vst3.PlugView

	// Report is returned as output parameter changes on every block.
	Report []vst3.ParamValueChange
	// During runs inside Process, before the outputs are written.
	During func()

	FailInitialize     bool
	FailSetup          bool
	FailActivate       bool
	FailProcess        bool
	PanicProcess       bool
	RejectArrangements bool

	mu           sync.Mutex
	values       map[vst3.ParamID]float64
	blob         []byte
	Host         vst3.HostContext
	Initialized  bool
	Terminated   int
	StateLoads   int
	Active       bool
	Processing   bool
	Setup        vst3.ProcessSetup
	Arrangements []vst3.SpeakerArrangement
	Calls        []Call

	activeBuses map[busKey]bool
}

type busKey struct {
	media vst3.MediaType
	dir   vst3.BusDirection
	index int32
}

var (
	_ vst3.Plugin         = (*Plugin)(nil)
	_ vst3.EditorProvider = (*Plugin)(nil)
)

// NewEffect returns a stereo in/out plugin with the given parameters.
func NewEffect(params ...Param) *Plugin {
	return &Plugin{Inputs: []int32{2}, Outputs: []int32{2}, Params: params}
}

// NewInstrument returns a plugin with an event input and a stereo output
// that renders Fill.
func NewInstrument(params ...Param) *Plugin {
	return &Plugin{Outputs: []int32{2}, EventInput: true, Params: params, Fill: 0.25}
}

func (p *Plugin) param(id vst3.ParamID) (Param, bool) {
	for _, prm := range p.Params {
		if prm.ID == id {
			return prm, true
		}
	}
	return Param{}, false
}

// Initialize implements vst3.PluginBase.
func (p *Plugin) Initialize(host vst3.HostContext) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailInitialize {
		return vst3.ErrFalse
	}
	p.Host = host
	p.Initialized = true
	p.values = make(map[vst3.ParamID]float64, len(p.Params))
	for _, prm := range p.Params {
		p.values[prm.ID] = prm.normalize(prm.Default)
	}
	p.activeBuses = make(map[busKey]bool)
	return nil
}

// Terminate implements vst3.PluginBase.
func (p *Plugin) Terminate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Terminated++
	p.Initialized = false
	p.Active = false
	p.Processing = false
	return nil
}

func (p *Plugin) channels(dir vst3.BusDirection) []int32 {
	if dir == vst3.BusDirectionInput {
		return p.Inputs
	}
	return p.Outputs
}

// BusCount implements vst3.Component.
func (p *Plugin) BusCount(media vst3.MediaType, dir vst3.BusDirection) int32 {
	if media == vst3.MediaTypeEvent {
		if p.EventInput && dir == vst3.BusDirectionInput {
			return 1
		}
		return 0
	}
	return int32(len(p.channels(dir)))
}

// BusInfo implements vst3.Component.
func (p *Plugin) BusInfo(media vst3.MediaType, dir vst3.BusDirection, index int32) (vst3.BusInfo, error) {
	if index < 0 || index >= p.BusCount(media, dir) {
		return vst3.BusInfo{}, vst3.ErrInvalidArgument
	}
	info := vst3.BusInfo{MediaType: media, Direction: dir, Name: "Bus " + strconv.Itoa(int(index)), Flags: vst3.BusDefaultActive}
	if media == vst3.MediaTypeAudio {
		info.ChannelCount = p.channels(dir)[index]
	} else {
		info.ChannelCount = 16
	}
	if index > 0 {
		info.BusType = vst3.BusTypeAux
	}
	return info, nil
}

// ActivateBus implements vst3.Component.
func (p *Plugin) ActivateBus(media vst3.MediaType, dir vst3.BusDirection, index int32, state bool) error {
	if index < 0 || index >= p.BusCount(media, dir) {
		return vst3.ErrInvalidArgument
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.activeBuses == nil {
		p.activeBuses = make(map[busKey]bool)
	}
	p.activeBuses[busKey{media, dir, index}] = state
	return nil
}

// BusActive reports whether the host activated a bus.
func (p *Plugin) BusActive(media vst3.MediaType, dir vst3.BusDirection, index int32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeBuses[busKey{media, dir, index}]
}

// SetActive implements vst3.Component.
func (p *Plugin) SetActive(state bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if state && (p.FailActivate || p.Setup.MaxSamplesPerBlock == 0) {
		return vst3.ErrNotInitialized
	}
	p.Active = state
	if !state {
		p.Processing = false
	}
	return nil
}

// SetState implements vst3.Component by keeping the raw bytes.
func (p *Plugin) SetState(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.blob = data
	p.StateLoads++
	p.mu.Unlock()
	return nil
}

// GetState implements vst3.Component.
func (p *Plugin) GetState(w io.Writer) error {
	p.mu.Lock()
	blob := bytes.Clone(p.blob)
	p.mu.Unlock()
	_, err := w.Write(blob)
	return err
}

// SetStateBlob sets the bytes GetState writes.
func (p *Plugin) SetStateBlob(b []byte) {
	p.mu.Lock()
	p.blob = b
	p.mu.Unlock()
}

// StateBlob returns the bytes last written by SetState.
func (p *Plugin) StateBlob() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.blob
}

// SetBusArrangements implements vst3.AudioProcessor.
func (p *Plugin) SetBusArrangements(inputs, outputs []vst3.SpeakerArrangement) error {
	if p.RejectArrangements {
		return vst3.ErrFalse
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Arrangements = append(append([]vst3.SpeakerArrangement(nil), inputs...), outputs...)
	return nil
}

// BusArrangement implements vst3.AudioProcessor.
func (p *Plugin) BusArrangement(dir vst3.BusDirection, index int32) (vst3.SpeakerArrangement, error) {
	ch := p.channels(dir)
	if index < 0 || int(index) >= len(ch) {
		return vst3.SpeakerEmpty, vst3.ErrInvalidArgument
	}
	return vst3.ArrangementForChannels(ch[index]), nil
}

// CanProcessSampleSize implements vst3.AudioProcessor.
func (p *Plugin) CanProcessSampleSize(size int32) bool {
	return size == vst3.SampleSize32
}

// LatencySamples implements vst3.AudioProcessor.
func (p *Plugin) LatencySamples() uint32 { return p.Latency }

// TailSamples implements vst3.AudioProcessor.
func (p *Plugin) TailSamples() uint32 { return p.Tail }

// SetupProcessing implements vst3.AudioProcessor.
func (p *Plugin) SetupProcessing(setup vst3.ProcessSetup) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailSetup || p.Active {
		return vst3.ErrFalse
	}
	p.Setup = setup
	return nil
}

// SetProcessing implements vst3.AudioProcessor.
func (p *Plugin) SetProcessing(state bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if state && !p.Active {
		return vst3.ErrNotInitialized
	}
	p.Processing = state
	return nil
}

// Process implements vst3.AudioProcessor.
func (p *Plugin) Process(data *vst3.ProcessData) error {
	if p.PanicProcess {
		panic("vst3test: process")
	}
	if p.FailProcess {
		return vst3.ErrFalse
	}
	if p.During != nil {
		p.During()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	call := Call{
		NumSamples: data.NumSamples,
		Events:     append([]vst3.Event(nil), data.InputEvents.Events()...),
		Changes:    append([]vst3.ParamValueChange(nil), data.InputParameterChanges.Points()...),
	}
	if p.values == nil {
		p.values = make(map[vst3.ParamID]float64)
	}
	for _, pc := range call.Changes {
		p.values[pc.ID] = pc.Value
	}

	var in [][]float32
	for _, b := range data.Inputs {
		in = append(in, b.Channels...)
	}
	call.Inputs = len(in)
	for _, b := range data.Outputs {
		for _, ch := range b.Channels {
			if call.Outputs < len(in) {
				copy(ch[:data.NumSamples], in[call.Outputs])
			} else {
				for i := range ch[:data.NumSamples] {
					ch[i] = p.Fill
				}
			}
			call.Outputs++
		}
	}
	p.Calls = append(p.Calls, call)

	if data.OutputParameterChanges != nil {
		for _, pc := range p.Report {
			data.OutputParameterChanges.Add(pc.ID, pc.SampleOffset, pc.Value)
		}
	}
	return nil
}

// Recorded returns a copy of the recorded process calls.
func (p *Plugin) Recorded() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.Calls...)
}

// ParameterCount implements vst3.EditController.
func (p *Plugin) ParameterCount() int32 {
	return int32(len(p.Params))
}

// ParameterInfo implements vst3.EditController.
func (p *Plugin) ParameterInfo(index int32) (vst3.ParameterInfo, error) {
	if index < 0 || int(index) >= len(p.Params) {
		return vst3.ParameterInfo{}, vst3.ErrInvalidArgument
	}
	prm := p.Params[index]
	return vst3.ParameterInfo{
		ID:           prm.ID,
		Title:        prm.Title,
		ShortTitle:   prm.Title,
		DefaultValue: prm.normalize(prm.Default),
		Flags:        vst3.ParameterCanAutomate,
	}, nil
}

// ParamStringByValue implements vst3.EditController.
func (p *Plugin) ParamStringByValue(id vst3.ParamID, normalized float64) (string, error) {
	if _, ok := p.param(id); !ok {
		return "", vst3.ErrInvalidArgument
	}
	return strconv.FormatFloat(p.NormalizedToPlain(id, normalized), 'f', 2, 64), nil
}

// NormalizedToPlain implements vst3.EditController.
func (p *Plugin) NormalizedToPlain(id vst3.ParamID, normalized float64) float64 {
	prm, ok := p.param(id)
	if !ok {
		return normalized
	}
	return prm.Min + normalized*(prm.Max-prm.Min)
}

// PlainToNormalized implements vst3.EditController.
func (p *Plugin) PlainToNormalized(id vst3.ParamID, plain float64) float64 {
	prm, ok := p.param(id)
	if !ok {
		return plain
	}
	return prm.normalize(plain)
}

// ParamNormalized implements vst3.EditController.
func (p *Plugin) ParamNormalized(id vst3.ParamID) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.values[id]
}

// SetParamNormalized implements vst3.EditController.
func (p *Plugin) SetParamNormalized(id vst3.ParamID, normalized float64) error {
	if _, ok := p.param(id); !ok {
		return vst3.ErrInvalidArgument
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.values == nil {
		p.values = make(map[vst3.ParamID]float64)
	}
	p.values[id] = normalized
	return nil
}

// CreateView implements vst3.EditorProvider.
func (p *Plugin) CreateView(name string) vst3.PlugView {
	if name != vst3.ViewTypeEditor {
		return nil
	}
	return p.View
}
