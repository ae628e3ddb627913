package vst3

// MediaType distinguishes audio and event buses.
type MediaType int32

// BusDirection distinguishes input and output buses.
type BusDirection int32

// BusType distinguishes main and auxiliary buses.
type BusType int32

// Constants for media types
const (
	MediaTypeAudio MediaType = 0
	MediaTypeEvent MediaType = 1
)

// Constants for bus directions
const (
	BusDirectionInput  BusDirection = 0
	BusDirectionOutput BusDirection = 1
)

// Constants for bus types
const (
	BusTypeMain BusType = 0
	BusTypeAux  BusType = 1
)

// Bus flags
const (
	BusDefaultActive    uint32 = 1 << 0
	BusIsControlVoltage uint32 = 1 << 1
)

// Process modes
const (
	ProcessModeRealtime = 0
	ProcessModePrefetch = 1
	ProcessModeOffline  = 2
)

// Symbolic sample sizes
const (
	SampleSize32 = 0
	SampleSize64 = 1
)

// Constants for parameter flags
const (
	ParameterCanAutomate  int32 = 1 << 0
	ParameterIsReadOnly   int32 = 1 << 1
	ParameterIsWrapAround int32 = 1 << 2
	ParameterIsList       int32 = 1 << 3
	ParameterIsHidden     int32 = 1 << 4
	ParameterIsBypass     int32 = 1 << 16
)

// SpeakerArrangement is a bitmask of speaker positions.
type SpeakerArrangement uint64

// Common speaker arrangements
const (
	SpeakerEmpty  SpeakerArrangement = 0
	SpeakerMono   SpeakerArrangement = 1 << 19
	SpeakerStereo SpeakerArrangement = 1<<0 | 1<<1
)

// ChannelCount returns the number of speakers in the arrangement.
func (a SpeakerArrangement) ChannelCount() int32 {
	n := int32(0)
	for v := uint64(a); v != 0; v &= v - 1 {
		n++
	}
	return n
}

// ArrangementForChannels returns the default arrangement for a channel count.
func ArrangementForChannels(n int32) SpeakerArrangement {
	switch n {
	case 0:
		return SpeakerEmpty
	case 1:
		return SpeakerMono
	case 2:
		return SpeakerStereo
	}
	var a SpeakerArrangement
	for i := int32(0); i < n && i < 64; i++ {
		a |= 1 << uint(i)
	}
	return a
}

// ProcessSetup contains audio processing configuration
type ProcessSetup struct {
	ProcessMode        int32
	SymbolicSampleSize int32
	MaxSamplesPerBlock int32
	SampleRate         float64
}

// ParameterInfo describes a parameter
type ParameterInfo struct {
	ID           ParamID
	Title        string
	ShortTitle   string
	Units        string
	StepCount    int32
	DefaultValue float64 // normalized
	UnitID       int32
	Flags        int32
}

// BusInfo describes an audio or event bus
type BusInfo struct {
	MediaType    MediaType
	Direction    BusDirection
	ChannelCount int32
	Name         string
	BusType      BusType
	Flags        uint32
}

// FactoryInfo describes the vendor of a module.
type FactoryInfo struct {
	Vendor string
	URL    string
	Email  string
}

// ClassInfo describes one class a factory can create.
type ClassInfo struct {
	CID           UID
	Category      string
	Name          string
	Vendor        string
	Version       string
	SubCategories string
	SDKVersion    string
}

// ViewRect is an editor size in pixels.
type ViewRect struct {
	Left, Top, Right, Bottom int32
}

// Width returns the rectangle width.
func (r ViewRect) Width() int32 { return r.Right - r.Left }

// Height returns the rectangle height.
func (r ViewRect) Height() int32 { return r.Bottom - r.Top }
