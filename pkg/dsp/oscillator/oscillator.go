// Package oscillator provides phase-accumulator oscillators for synthesis
// and test-signal generation.
package oscillator

import "math"

// Waveform selects the shape Next produces.
type Waveform int

const (
	WaveSine Waveform = iota
	WaveSaw
	WaveSquare
	WaveTriangle
)

// Oscillator generates periodic waveforms
type Oscillator struct {
	sampleRate float64
	frequency  float64
	phase      float64
	phaseInc   float64
	waveform   Waveform
}

// New creates a 440 Hz sine oscillator.
func New(sampleRate float64) *Oscillator {
	return &Oscillator{
		sampleRate: sampleRate,
		frequency:  440.0,
		phaseInc:   440.0 / sampleRate,
	}
}

// SetFrequency sets the oscillator frequency
func (o *Oscillator) SetFrequency(freq float64) {
	o.frequency = freq
	o.phaseInc = freq / o.sampleRate
}

// Frequency returns the current frequency in Hz.
func (o *Oscillator) Frequency() float64 {
	return o.frequency
}

// SetWaveform selects the waveform.
func (o *Oscillator) SetWaveform(w Waveform) {
	o.waveform = w
}

// SetPhase sets the oscillator phase (0-1)
func (o *Oscillator) SetPhase(phase float64) {
	o.phase = phase - math.Floor(phase)
}

// Reset resets the oscillator phase to 0
func (o *Oscillator) Reset() {
	o.phase = 0.0
}

func (o *Oscillator) advance() {
	o.phase += o.phaseInc
	if o.phase >= 1.0 {
		o.phase -= math.Floor(o.phase)
	}
}

// Next returns one sample of the selected waveform.
func (o *Oscillator) Next() float32 {
	var s float64
	switch o.waveform {
	case WaveSaw:
		s = 2.0*o.phase - 1.0
	case WaveSquare:
		s = 1.0
		if o.phase >= 0.5 {
			s = -1.0
		}
	case WaveTriangle:
		if o.phase < 0.5 {
			s = 4.0*o.phase - 1.0
		} else {
			s = 3.0 - 4.0*o.phase
		}
	default:
		s = math.Sin(2.0 * math.Pi * o.phase)
	}
	o.advance()
	return float32(s)
}

// Process fills buffer with amplitude-scaled samples - no allocations
func (o *Oscillator) Process(buffer []float32, amplitude float32) {
	for i := range buffer {
		buffer[i] = o.Next() * amplitude
	}
}

// ProcessAdd adds amplitude-scaled samples to buffer - no allocations
func (o *Oscillator) ProcessAdd(buffer []float32, amplitude float32) {
	for i := range buffer {
		buffer[i] += o.Next() * amplitude
	}
}
