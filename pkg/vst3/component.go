package vst3

import "io"

// HostContext is handed to a component on Initialize.
type HostContext interface {
	HostName() string
}

// PluginBase is the lifecycle every class implements.
type PluginBase interface {
	Initialize(host HostContext) error
	Terminate() error
}

// Component exposes bus topology, activation and persistent state.
type Component interface {
	PluginBase

	BusCount(media MediaType, dir BusDirection) int32
	BusInfo(media MediaType, dir BusDirection, index int32) (BusInfo, error)
	ActivateBus(media MediaType, dir BusDirection, index int32, state bool) error
	SetActive(state bool) error
	SetState(r io.Reader) error
	GetState(w io.Writer) error
}

// AudioProcessor negotiates arrangements and processes blocks.
//
// Process is called from the realtime thread. Implementations must not block
// or allocate inside it.
type AudioProcessor interface {
	SetBusArrangements(inputs, outputs []SpeakerArrangement) error
	BusArrangement(dir BusDirection, index int32) (SpeakerArrangement, error)
	CanProcessSampleSize(symbolicSampleSize int32) bool
	LatencySamples() uint32
	TailSamples() uint32
	SetupProcessing(setup ProcessSetup) error
	SetProcessing(state bool) error
	Process(data *ProcessData) error
}

// EditController exposes the parameter set.
type EditController interface {
	ParameterCount() int32
	ParameterInfo(index int32) (ParameterInfo, error)
	ParamStringByValue(id ParamID, normalized float64) (string, error)
	NormalizedToPlain(id ParamID, normalized float64) float64
	PlainToNormalized(id ParamID, plain float64) float64
	ParamNormalized(id ParamID) float64
	SetParamNormalized(id ParamID, normalized float64) error
}

// Plugin is a single-component class: processor and controller in one object.
type Plugin interface {
	Component
	AudioProcessor
	EditController
}

// ViewTypeEditor is the view name hosts request for the main editor.
const ViewTypeEditor = "editor"

// EditorProvider is implemented by plugins that have an editor.
// CreateView returns nil when no view of that name exists.
type EditorProvider interface {
	CreateView(name string) PlugView
}

// PlugView is a platform window attachment.
type PlugView interface {
	IsPlatformTypeSupported(platform string) bool
	Attached(parent uintptr, platform string) error
	Removed() error
	OnSize(rect ViewRect) error
	Size() ViewRect
	CanResize() bool
}

// PluginFactory enumerates and creates the classes of a module.
type PluginFactory interface {
	Info() FactoryInfo
	CountClasses() int32
	ClassInfo(index int32) (ClassInfo, error)
	CreateInstance(cid UID) (Plugin, error)
}
