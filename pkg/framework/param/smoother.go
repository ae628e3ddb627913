package param

import "math"

// SmoothingType defines different parameter smoothing algorithms.
type SmoothingType int

const (
	// LinearSmoothing ramps to the target over a fixed number of samples.
	LinearSmoothing SmoothingType = iota
	// ExponentialSmoothing is a one-pole lowpass toward the target.
	ExponentialSmoothing
)

// Smoother removes zipper noise from control changes. It holds no
// references and never allocates, so one can live per parameter per voice.
type Smoother struct {
	smoothingType SmoothingType
	current       float64
	target        float64
	rate          float64 // samples for linear, pole for exponential
	step          float64
	remaining     int
	threshold     float64
}

// NewSmoother creates a new parameter smoother.
// rate is a sample count for linear smoothing and a pole (0.9-0.999) for
// exponential smoothing.
func NewSmoother(smoothingType SmoothingType, rate float64) *Smoother {
	return &Smoother{
		smoothingType: smoothingType,
		rate:          rate,
		threshold:     1e-5,
	}
}

// NewSmootherForTime returns a linear smoother that ramps over timeMs.
func NewSmootherForTime(sampleRate, timeMs float64) *Smoother {
	return NewSmoother(LinearSmoothing, math.Max(1, math.Round(sampleRate*timeMs/1000)))
}

// SetTarget sets the target value for smoothing.
func (s *Smoother) SetTarget(target float64) {
	if target == s.target {
		return
	}
	s.target = target
	if s.smoothingType == LinearSmoothing {
		s.remaining = int(s.rate)
		if s.remaining < 1 {
			s.remaining = 1
		}
		s.step = (target - s.current) / float64(s.remaining)
	}
}

// Next returns the next smoothed value.
func (s *Smoother) Next() float64 {
	switch s.smoothingType {
	case LinearSmoothing:
		if s.remaining > 0 {
			s.remaining--
			s.current += s.step
			if s.remaining == 0 {
				s.current = s.target
			}
		}
	case ExponentialSmoothing:
		if s.current != s.target {
			s.current += (s.target - s.current) * (1.0 - s.rate)
			if math.Abs(s.current-s.target) < s.threshold {
				s.current = s.target
			}
		}
	}
	return s.current
}

// IsSmoothing reports whether the value is still moving.
func (s *Smoother) IsSmoothing() bool {
	return s.current != s.target
}

// Current returns the last value produced.
func (s *Smoother) Current() float64 {
	return s.current
}

// Reset jumps to value with no ramp.
func (s *Smoother) Reset(value float64) {
	s.current = value
	s.target = value
	s.remaining = 0
}
