// Package param provides the plugin-side parameter model: parameters with
// lock-free normalized values, an ordered registry, a fluent builder and
// value smoothing.
package param

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Parameter represents a plugin parameter
type Parameter struct {
	ID           uint32
	Name         string
	ShortName    string
	Unit         string
	Min          float64
	Max          float64
	DefaultValue float64 // normalized
	StepCount    int32
	Flags        uint32
	UnitID       int32

	// normalized value bits, read from the audio thread
	value atomic.Uint64

	formatFunc func(float64) string
	parseFunc  func(string) (float64, error)
}

// Flags for parameters
const (
	CanAutomate     uint32 = 1 << 0
	IsReadOnly      uint32 = 1 << 1
	IsWrapAround    uint32 = 1 << 2
	IsList          uint32 = 1 << 3
	IsHidden        uint32 = 1 << 4
	IsProgramChange uint32 = 1 << 15
	IsBypass        uint32 = 1 << 16
)

// GetValue returns the current normalized value (0-1)
func (p *Parameter) GetValue() float64 {
	return math.Float64frombits(p.value.Load())
}

// SetValue sets the normalized value, clamped to 0-1.
func (p *Parameter) SetValue(value float64) {
	if math.IsNaN(value) {
		return
	}
	p.value.Store(math.Float64bits(clamp01(value)))
}

// GetPlainValue returns the current value in the parameter's own range.
func (p *Parameter) GetPlainValue() float64 {
	return p.Denormalize(p.GetValue())
}

// SetPlainValue sets the value from the parameter's own range.
func (p *Parameter) SetPlainValue(plain float64) {
	p.SetValue(p.Normalize(plain))
}

// SetFormatter sets custom value formatting
func (p *Parameter) SetFormatter(format func(float64) string, parse func(string) (float64, error)) {
	p.formatFunc = format
	p.parseFunc = parse
}

// FormatValue returns formatted parameter value
func (p *Parameter) FormatValue(normalized float64) string {
	plain := p.Denormalize(normalized)
	if p.formatFunc != nil {
		return p.formatFunc(plain)
	}
	if p.StepCount > 0 {
		return fmt.Sprintf("%.0f", plain)
	}
	return fmt.Sprintf("%.2f", plain)
}

// ParseValue parses string to normalized value
func (p *Parameter) ParseValue(str string) (float64, error) {
	parse := p.parseFunc
	if parse == nil {
		parse = func(s string) (float64, error) { return strconv.ParseFloat(s, 64) }
	}
	plain, err := parse(str)
	if err != nil {
		return 0, err
	}
	return p.Normalize(plain), nil
}

// Normalize converts plain value to normalized (0-1)
func (p *Parameter) Normalize(plain float64) float64 {
	if p.Max <= p.Min {
		return 0
	}
	return clamp01((plain - p.Min) / (p.Max - p.Min))
}

// Denormalize converts normalized (0-1) to plain value. Stepped parameters
// snap to the nearest step.
func (p *Parameter) Denormalize(normalized float64) float64 {
	normalized = clamp01(normalized)
	if p.StepCount > 0 {
		normalized = math.Round(normalized*float64(p.StepCount)) / float64(p.StepCount)
	}
	return p.Min + normalized*(p.Max-p.Min)
}

// Info describes the parameter in contract form.
func (p *Parameter) Info() vst3.ParameterInfo {
	return vst3.ParameterInfo{
		ID:           p.ID,
		Title:        p.Name,
		ShortTitle:   p.ShortName,
		Units:        p.Unit,
		StepCount:    p.StepCount,
		DefaultValue: p.DefaultValue,
		UnitID:       p.UnitID,
		Flags:        int32(p.Flags),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
