// Package gain has level measurement and the output clipper used by the
// instruments.
package gain

import "math"

// SilenceDB is reported for a zero or negative amplitude.
const SilenceDB = -200.0

// ToDB converts a linear amplitude to decibels relative to full scale.
func ToDB(amplitude float64) float64 {
	if amplitude <= 0 {
		return SilenceDB
	}
	return max(20*math.Log10(amplitude), SilenceDB)
}

// Peak returns the largest absolute sample in buf.
func Peak(buf []float32) float32 {
	var peak float32
	for _, s := range buf {
		peak = max(peak, abs(s))
	}
	return peak
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// SoftClip passes x unchanged up to threshold and bends it smoothly toward
// threshold above that.
func SoftClip(x, threshold float32) float32 {
	if abs(x) <= threshold {
		return x
	}
	return threshold * tanh(x/threshold)
}

// SoftClipBuffer clips buf in place.
func SoftClipBuffer(buf []float32, threshold float32) {
	for i, s := range buf {
		buf[i] = SoftClip(s, threshold)
	}
}

// tanh is a rational approximation that saturates at +-3.
func tanh(x float32) float32 {
	switch {
	case x <= -3:
		return -1
	case x >= 3:
		return 1
	}
	x2 := x * x
	return x * (27 + x2) / (27 + 9*x2)
}
