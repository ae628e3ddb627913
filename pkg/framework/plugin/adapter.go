package plugin

import (
	"io"

	"github.com/justyntemme/vst3host/pkg/framework/param"
	"github.com/justyntemme/vst3host/pkg/framework/process"
	"github.com/justyntemme/vst3host/pkg/framework/state"
	"github.com/justyntemme/vst3host/pkg/hosterr"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Adapter implements vst3.Plugin on top of a Processor. It applies
// parameter changes, renders the block in slices that start at each event
// offset, and persists parameters with the framework state layout.
type Adapter struct {
	info   Info
	proc   Processor
	params *param.Registry
	state  *state.Manager

	host        vst3.HostContext
	initialized bool
	active      bool
	processing  bool
	setup       vst3.ProcessSetup

	ctx    *process.Context
	inChs  [][]float32
	outChs [][]float32
}

var (
	_ vst3.Plugin         = (*Adapter)(nil)
	_ vst3.EditorProvider = (*Adapter)(nil)
)

// NewAdapter wraps proc.
func NewAdapter(info Info, proc Processor) *Adapter {
	a := &Adapter{
		info:   info,
		proc:   proc,
		params: proc.Parameters(),
	}
	a.state = state.NewManager(a.params)
	if sp, ok := proc.(StatefulProcessor); ok {
		a.state.SetCustomState(sp.SaveCustomState, sp.LoadCustomState)
	}
	return a
}

// Processor returns the wrapped processor.
func (a *Adapter) Processor() Processor {
	return a.proc
}

// Initialize implements vst3.PluginBase.
func (a *Adapter) Initialize(host vst3.HostContext) error {
	if a.initialized {
		return vst3.ErrFalse
	}
	a.host = host
	a.initialized = true
	return nil
}

// Terminate implements vst3.PluginBase.
func (a *Adapter) Terminate() error {
	if a.active {
		_ = a.SetActive(false)
	}
	a.initialized = false
	a.host = nil
	return nil
}

// BusCount implements vst3.Component.
func (a *Adapter) BusCount(media vst3.MediaType, dir vst3.BusDirection) int32 {
	return a.proc.Buses().BusCount(media, dir)
}

// BusInfo implements vst3.Component.
func (a *Adapter) BusInfo(media vst3.MediaType, dir vst3.BusDirection, index int32) (vst3.BusInfo, error) {
	return a.proc.Buses().BusInfo(media, dir, index)
}

// ActivateBus implements vst3.Component.
func (a *Adapter) ActivateBus(media vst3.MediaType, dir vst3.BusDirection, index int32, state bool) error {
	return a.proc.Buses().Activate(media, dir, index, state)
}

// SetActive implements vst3.Component. Activation requires SetupProcessing.
func (a *Adapter) SetActive(state bool) error {
	if state == a.active {
		return nil
	}
	if state && a.ctx == nil {
		return vst3.ErrNotInitialized
	}
	if err := a.proc.SetActive(state); err != nil {
		return err
	}
	a.active = state
	if !state {
		a.processing = false
	}
	return nil
}

// SetState implements vst3.Component.
func (a *Adapter) SetState(r io.Reader) error {
	_, err := a.state.Load(r)
	return err
}

// GetState implements vst3.Component.
func (a *Adapter) GetState(w io.Writer) error {
	return a.state.Save(w)
}

// SetBusArrangements implements vst3.AudioProcessor. Arrangements are fixed
// while active.
func (a *Adapter) SetBusArrangements(inputs, outputs []vst3.SpeakerArrangement) error {
	if a.active {
		return vst3.ErrFalse
	}
	return a.proc.Buses().SetArrangements(inputs, outputs)
}

// BusArrangement implements vst3.AudioProcessor.
func (a *Adapter) BusArrangement(dir vst3.BusDirection, index int32) (vst3.SpeakerArrangement, error) {
	return a.proc.Buses().Arrangement(dir, index)
}

// CanProcessSampleSize implements vst3.AudioProcessor. Only 32-bit float
// processing is supported.
func (a *Adapter) CanProcessSampleSize(symbolicSampleSize int32) bool {
	return symbolicSampleSize == vst3.SampleSize32
}

// LatencySamples implements vst3.AudioProcessor.
func (a *Adapter) LatencySamples() uint32 {
	return uint32(max(a.proc.LatencySamples(), 0))
}

// TailSamples implements vst3.AudioProcessor.
func (a *Adapter) TailSamples() uint32 {
	return uint32(max(a.proc.TailSamples(), 0))
}

// SetupProcessing implements vst3.AudioProcessor. It allocates everything
// Process needs for blocks up to setup.MaxSamplesPerBlock.
func (a *Adapter) SetupProcessing(setup vst3.ProcessSetup) error {
	if a.active {
		return vst3.ErrFalse
	}
	if setup.SampleRate <= 0 || setup.MaxSamplesPerBlock <= 0 || setup.SymbolicSampleSize != vst3.SampleSize32 {
		return vst3.ErrInvalidArgument
	}
	if err := a.proc.Initialize(setup.SampleRate, setup.MaxSamplesPerBlock); err != nil {
		return err
	}

	buses := a.proc.Buses()
	channels := int32(0)
	for _, dir := range []vst3.BusDirection{vst3.BusDirectionInput, vst3.BusDirectionOutput} {
		total := int32(0)
		for _, n := range buses.ChannelCounts(dir) {
			total += n
		}
		channels = max(channels, total)
	}

	a.setup = setup
	a.ctx = process.NewContext(int(setup.MaxSamplesPerBlock), int(channels), a.params)
	a.ctx.SampleRate = setup.SampleRate
	a.inChs = make([][]float32, 0, channels)
	a.outChs = make([][]float32, 0, channels)
	return nil
}

// SetProcessing implements vst3.AudioProcessor.
func (a *Adapter) SetProcessing(state bool) error {
	if state && !a.active {
		return vst3.ErrNotInitialized
	}
	a.processing = state
	return nil
}

// Process implements vst3.AudioProcessor. A panic in the processor is
// reported as an error instead of unwinding into the host.
func (a *Adapter) Process(data *vst3.ProcessData) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = hosterr.ErrPluginPanic
		}
	}()

	if a.ctx == nil || !a.active {
		return vst3.ErrNotInitialized
	}

	for _, pc := range data.InputParameterChanges.Points() {
		if p := a.params.Get(pc.ID); p != nil {
			p.SetValue(pc.Value)
		}
	}

	n := data.NumSamples
	if n <= 0 {
		return nil
	}
	if n > a.setup.MaxSamplesPerBlock {
		return vst3.ErrInvalidArgument
	}

	in := flatten(a.inChs[:0], data.Inputs)
	out := flatten(a.outChs[:0], data.Outputs)
	a.ctx.Transport = data.Context

	// Render [start, end) slices so that events land on the first sample of
	// the slice they belong to.
	events := data.InputEvents.Events()
	start, next := int32(0), 0
	for start < n {
		first := next
		for next < len(events) && events[next].SampleOffset <= start {
			next++
		}
		end := n
		if next < len(events) && events[next].SampleOffset < n {
			end = events[next].SampleOffset
		}
		a.ctx.SetSlice(in, out, start, end, events[first:next])
		a.proc.ProcessAudio(a.ctx)
		start = end
	}
	return nil
}

func flatten(dst [][]float32, buses []vst3.AudioBusBuffers) [][]float32 {
	for i := range buses {
		for _, ch := range buses[i].Channels {
			if len(dst) == cap(dst) {
				return dst
			}
			dst = append(dst, ch)
		}
	}
	return dst
}

// ParameterCount implements vst3.EditController.
func (a *Adapter) ParameterCount() int32 {
	return a.params.Count()
}

// ParameterInfo implements vst3.EditController.
func (a *Adapter) ParameterInfo(index int32) (vst3.ParameterInfo, error) {
	p := a.params.GetByIndex(index)
	if p == nil {
		return vst3.ParameterInfo{}, vst3.ErrInvalidArgument
	}
	return p.Info(), nil
}

// ParamStringByValue implements vst3.EditController.
func (a *Adapter) ParamStringByValue(id vst3.ParamID, normalized float64) (string, error) {
	p := a.params.Get(id)
	if p == nil {
		return "", vst3.ErrInvalidArgument
	}
	return p.FormatValue(normalized), nil
}

// NormalizedToPlain implements vst3.EditController.
func (a *Adapter) NormalizedToPlain(id vst3.ParamID, normalized float64) float64 {
	if p := a.params.Get(id); p != nil {
		return p.Denormalize(normalized)
	}
	return normalized
}

// PlainToNormalized implements vst3.EditController.
func (a *Adapter) PlainToNormalized(id vst3.ParamID, plain float64) float64 {
	if p := a.params.Get(id); p != nil {
		return p.Normalize(plain)
	}
	return plain
}

// ParamNormalized implements vst3.EditController.
func (a *Adapter) ParamNormalized(id vst3.ParamID) float64 {
	if p := a.params.Get(id); p != nil {
		return p.GetValue()
	}
	return 0
}

// SetParamNormalized implements vst3.EditController.
func (a *Adapter) SetParamNormalized(id vst3.ParamID, normalized float64) error {
	p := a.params.Get(id)
	if p == nil {
		return vst3.ErrInvalidArgument
	}
	p.SetValue(normalized)
	return nil
}

// CreateView implements vst3.EditorProvider by delegating to the processor
// when it has an editor.
func (a *Adapter) CreateView(name string) vst3.PlugView {
	if ep, ok := a.proc.(vst3.EditorProvider); ok {
		return ep.CreateView(name)
	}
	return nil
}
