// Package plugin turns a Processor written against the framework into a
// component that satisfies the module contract in package vst3.
package plugin

import (
	"io"

	"github.com/justyntemme/vst3host/pkg/framework/bus"
	"github.com/justyntemme/vst3host/pkg/framework/param"
	"github.com/justyntemme/vst3host/pkg/framework/process"
)

// Processor is what a plugin implements.
type Processor interface {
	// Initialize is called from SetupProcessing, before activation.
	Initialize(sampleRate float64, maxBlockSize int32) error
	Parameters() *param.Registry
	Buses() *bus.Configuration
	// ProcessAudio renders one slice. Zero allocations allowed!
	ProcessAudio(ctx *process.Context)
	SetActive(active bool) error
	LatencySamples() int32
	TailSamples() int32
}

// StatefulProcessor persists data beyond its parameter values.
type StatefulProcessor interface {
	SaveCustomState(w io.Writer) error
	LoadCustomState(r io.Reader) error
}

// BaseProcessor holds the parameters, buses and sample rate every processor
// needs. Embed it and register callbacks instead of overriding methods.
type BaseProcessor struct {
	params     *param.Registry
	buses      *bus.Configuration
	sampleRate float64

	onInitialize func(sampleRate float64, maxBlockSize int32) error
	onSetActive  func(active bool) error
	onReset      func()
}

// NewBaseProcessor creates a base with the given buses, or a stereo effect
// layout when buses is nil.
func NewBaseProcessor(buses *bus.Configuration) *BaseProcessor {
	if buses == nil {
		buses = bus.NewEffectStereo()
	}
	return &BaseProcessor{
		params: param.NewRegistry(),
		buses:  buses,
	}
}

// Initialize records the sample rate and runs the OnInitialize callback.
func (b *BaseProcessor) Initialize(sampleRate float64, maxBlockSize int32) error {
	b.sampleRate = sampleRate
	if b.onInitialize != nil {
		return b.onInitialize(sampleRate, maxBlockSize)
	}
	return nil
}

func (b *BaseProcessor) Parameters() *param.Registry {
	return b.params
}

func (b *BaseProcessor) Buses() *bus.Configuration {
	return b.buses
}

// SetActive implements the Processor interface. Deactivation runs the reset
// callback first.
func (b *BaseProcessor) SetActive(active bool) error {
	if !active && b.onReset != nil {
		b.onReset()
	}
	if b.onSetActive != nil {
		return b.onSetActive(active)
	}
	return nil
}

// LatencySamples reports zero.
func (b *BaseProcessor) LatencySamples() int32 {
	return 0
}

// TailSamples reports zero.
func (b *BaseProcessor) TailSamples() int32 {
	return 0
}

// SampleRate is zero until Initialize.
func (b *BaseProcessor) SampleRate() float64 {
	return b.sampleRate
}

// OnInitialize runs fn from SetupProcessing, before activation.
func (b *BaseProcessor) OnInitialize(fn func(sampleRate float64, maxBlockSize int32) error) {
	b.onInitialize = fn
}

func (b *BaseProcessor) OnSetActive(fn func(active bool) error) {
	b.onSetActive = fn
}

// OnReset runs fn on deactivation, before the OnSetActive callback.
func (b *BaseProcessor) OnReset(fn func()) {
	b.onReset = fn
}

// SimpleProcessor is a BaseProcessor driven by a single function.
type SimpleProcessor struct {
	*BaseProcessor
	processFunc func(ctx *process.Context)
}

func NewSimpleProcessor(buses *bus.Configuration, processFunc func(ctx *process.Context)) *SimpleProcessor {
	return &SimpleProcessor{
		BaseProcessor: NewBaseProcessor(buses),
		processFunc:   processFunc,
	}
}

func (s *SimpleProcessor) ProcessAudio(ctx *process.Context) {
	if s.processFunc != nil {
		s.processFunc(ctx)
	}
}
