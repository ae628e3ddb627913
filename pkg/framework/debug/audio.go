package debug

import (
	"math"
)

// AudioAnalyzer provides utilities for analyzing audio buffers.
type AudioAnalyzer struct {
	ClippingThreshold float32
	SilenceThreshold  float32
}

// NewAudioAnalyzer creates a new audio analyzer with default settings.
func NewAudioAnalyzer() *AudioAnalyzer {
	return &AudioAnalyzer{
		ClippingThreshold: 0.99,
		SilenceThreshold:  0.0001,
	}
}

// AnalysisResult contains the results of audio buffer analysis.
type AnalysisResult struct {
	Samples        int
	Peak           float32
	RMS            float32
	DC             float32
	ClippedSamples int
	NaNCount       int
	ZeroCrossings  int
	Silent         bool
}

// Clipping reports whether any sample reached the clipping threshold.
func (r AnalysisResult) Clipping() bool { return r.ClippedSamples > 0 }

// HasNaN reports whether any sample was NaN or infinite.
func (r AnalysisResult) HasNaN() bool { return r.NaNCount > 0 }

// Analyze measures a single channel.
func (a *AudioAnalyzer) Analyze(buffer []float32) AnalysisResult {
	return a.AnalyzeChannels([][]float32{buffer})
}

// AnalyzeChannels measures several channels as one signal.
func (a *AudioAnalyzer) AnalyzeChannels(channels [][]float32) AnalysisResult {
	var r AnalysisResult
	var sum, sumSquares float64

	for _, buf := range channels {
		var last float32
		for i, s := range buf {
			if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
				r.NaNCount++
				continue
			}
			r.Samples++
			abs := float32(math.Abs(float64(s)))
			if abs > r.Peak {
				r.Peak = abs
			}
			if abs >= a.ClippingThreshold {
				r.ClippedSamples++
			}
			sum += float64(s)
			sumSquares += float64(s) * float64(s)
			if i > 0 && (last < 0) != (s < 0) {
				r.ZeroCrossings++
			}
			last = s
		}
	}

	if r.Samples > 0 {
		r.RMS = float32(math.Sqrt(sumSquares / float64(r.Samples)))
		r.DC = float32(sum / float64(r.Samples))
	}
	r.Silent = r.RMS < a.SilenceThreshold
	return r
}

// AnalyzeBuffer analyzes a buffer with default settings.
func AnalyzeBuffer(buffer []float32) AnalysisResult {
	return NewAudioAnalyzer().Analyze(buffer)
}
