package vst3

// AudioBusBuffers holds the channel views of one bus for one block.
type AudioBusBuffers struct {
	NumChannels  int32
	SilenceFlags uint64
	Channels     [][]float32
}

// Channel returns a channel view or nil.
func (b *AudioBusBuffers) Channel(index int) []float32 {
	if index < 0 || index >= len(b.Channels) {
		return nil
	}
	return b.Channels[index]
}

// Transport state flags
const (
	ContextPlaying          uint32 = 1 << 1
	ContextTempoValid       uint32 = 1 << 10
	ContextTimeSigValid     uint32 = 1 << 13
	ContextContTimeValid    uint32 = 1 << 17
	ContextProjectTimeValid uint32 = 1 << 9
)

// ProcessContext carries transport information for a block.
type ProcessContext struct {
	State                 uint32
	SampleRate            float64
	ProjectTimeSamples    int64
	ContinuousTimeSamples int64
	Tempo                 float64
	TimeSigNumerator      int32
	TimeSigDenominator    int32
}

// ProcessData is everything a processor receives for one block.
type ProcessData struct {
	ProcessMode        int32
	SymbolicSampleSize int32
	NumSamples         int32

	Inputs  []AudioBusBuffers
	Outputs []AudioBusBuffers

	InputParameterChanges  *ParameterChanges
	OutputParameterChanges *ParameterChanges
	InputEvents            *EventList
	OutputEvents           *EventList

	Context *ProcessContext
}

// ParamValueChange is one automation point.
type ParamValueChange struct {
	ID           ParamID
	SampleOffset int32
	Value        float64 // normalized
}

// ParameterChanges is a fixed-capacity list of automation points.
// Add never grows the backing array.
type ParameterChanges struct {
	points []ParamValueChange
}

// NewParameterChanges allocates a list with room for capacity points.
func NewParameterChanges(capacity int) *ParameterChanges {
	return &ParameterChanges{points: make([]ParamValueChange, 0, capacity)}
}

// Count returns the number of points.
func (c *ParameterChanges) Count() int32 {
	if c == nil {
		return 0
	}
	return int32(len(c.points))
}

// At returns the point at index.
func (c *ParameterChanges) At(index int32) ParamValueChange {
	return c.points[index]
}

// Points returns the live view of all points.
func (c *ParameterChanges) Points() []ParamValueChange {
	if c == nil {
		return nil
	}
	return c.points
}

// Add appends a point. It reports false when the list is full.
func (c *ParameterChanges) Add(id ParamID, sampleOffset int32, value float64) bool {
	if len(c.points) == cap(c.points) {
		return false
	}
	c.points = append(c.points, ParamValueChange{ID: id, SampleOffset: sampleOffset, Value: value})
	return true
}

// Reset empties the list, keeping its capacity.
func (c *ParameterChanges) Reset() {
	c.points = c.points[:0]
}
