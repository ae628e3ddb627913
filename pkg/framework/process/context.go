// Package process provides the per-block processing context handed to
// plugin processors.
package process

import (
	"github.com/justyntemme/vst3host/pkg/framework/param"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Context provides a clean API for audio processing with zero allocations.
//
// A Context describes one slice of the host block. When a block carries
// events, the block is rendered as consecutive slices that start at each
// event offset; Events then holds the events due at the first sample of the
// slice.
type Context struct {
	Input      [][]float32
	Output     [][]float32
	SampleRate float64
	Transport  *vst3.ProcessContext

	// Events due at the first sample of this slice.
	Events []vst3.Event

	offset     int32
	numSamples int

	inViews    [][]float32
	outViews   [][]float32
	workBuffer []float32

	params *param.Registry
}

// NewContext creates a context with room for maxChannels per direction.
func NewContext(maxBlockSize, maxChannels int, params *param.Registry) *Context {
	return &Context{
		inViews:    make([][]float32, maxChannels),
		outViews:   make([][]float32, maxChannels),
		workBuffer: make([]float32, maxBlockSize),
		params:     params,
	}
}

// SetSlice points the context at samples [start, end) of the given channels.
// Channels beyond the context capacity are ignored.
func (c *Context) SetSlice(inputs, outputs [][]float32, start, end int32, events []vst3.Event) {
	c.Input = sliceViews(c.inViews, inputs, start, end)
	c.Output = sliceViews(c.outViews, outputs, start, end)
	c.Events = events
	c.offset = start
	c.numSamples = int(end - start)
}

func sliceViews(dst, src [][]float32, start, end int32) [][]float32 {
	n := len(src)
	if n > len(dst) {
		n = len(dst)
	}
	for ch := 0; ch < n; ch++ {
		if src[ch] == nil {
			dst[ch] = nil
			continue
		}
		dst[ch] = src[ch][start:end]
	}
	return dst[:n]
}

// Offset returns the position of this slice within the host block.
func (c *Context) Offset() int32 {
	return c.offset
}

// Param returns the current value of a parameter (0-1 normalized)
func (c *Context) Param(id uint32) float64 {
	if p := c.params.Get(id); p != nil {
		return p.GetValue()
	}
	return 0
}

// ParamPlain returns the current plain value of a parameter
func (c *Context) ParamPlain(id uint32) float64 {
	if p := c.params.Get(id); p != nil {
		return p.GetPlainValue()
	}
	return 0
}

// NumSamples returns the number of samples to process
func (c *Context) NumSamples() int {
	return c.numSamples
}

// NumInputChannels returns the number of input channels
func (c *Context) NumInputChannels() int {
	return len(c.Input)
}

// NumOutputChannels returns the number of output channels
func (c *Context) NumOutputChannels() int {
	return len(c.Output)
}

// WorkBuffer returns a scratch slice sized to the current slice.
func (c *Context) WorkBuffer() []float32 {
	return c.workBuffer[:c.numSamples]
}

// PassThrough copies input to output. Missing inputs produce silence.
func (c *Context) PassThrough() {
	for ch, out := range c.Output {
		if ch < len(c.Input) && c.Input[ch] != nil {
			copy(out, c.Input[ch])
			continue
		}
		clear(out)
	}
}

// Clear zeros the output buffers
func (c *Context) Clear() {
	for _, out := range c.Output {
		clear(out)
	}
}
