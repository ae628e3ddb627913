package process

// ProcessChannels calls fn for each channel that has both an input and an
// output.
func (c *Context) ProcessChannels(fn func(ch int, input, output []float32)) {
	n := c.NumChannels()
	for ch := 0; ch < n; ch++ {
		fn(ch, c.Input[ch], c.Output[ch])
	}
}

// NumChannels returns the minimum of input and output channels
func (c *Context) NumChannels() int {
	return min(len(c.Input), len(c.Output))
}

// MixToOutputs adds mono into every output channel, scaled by gain.
func (c *Context) MixToOutputs(mono []float32, gain float32) {
	for _, out := range c.Output {
		for i := range out {
			out[i] += mono[i] * gain
		}
	}
}
