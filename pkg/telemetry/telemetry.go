// Package telemetry exports engine statistics as OpenTelemetry metrics.
//
// Counters and gauges are observable: they are read from each tracked
// instance when the reader collects, so the audio thread never touches the
// metric SDK. Block load is additionally recorded into a histogram by
// Sample, which control code calls between blocks.
package telemetry

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/justyntemme/vst3host/pkg/engine"
)

const instrumentationName = "github.com/justyntemme/vst3host"

// Source reports engine statistics. *host.Instance implements it.
type Source interface {
	Stats() engine.Stats
}

// Recorder owns the host instruments.
type Recorder struct {
	mu      sync.Mutex
	sources map[string]Source

	blocks     metric.Int64ObservableCounter
	failures   metric.Int64ObservableCounter
	busy       metric.Int64ObservableCounter
	midiEvents metric.Int64ObservableCounter
	samples    metric.Int64ObservableCounter
	peakLoad   metric.Float64ObservableGauge
	avgLoad    metric.Float64ObservableGauge
	load       metric.Float64Histogram

	reg metric.Registration
}

// New registers the instruments with mp. A nil mp uses the global provider.
func New(mp metric.MeterProvider) (*Recorder, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)
	r := &Recorder{sources: make(map[string]Source)}

	var err error
	counter := func(name, unit, desc string) metric.Int64ObservableCounter {
		if err != nil {
			return nil
		}
		var c metric.Int64ObservableCounter
		c, err = meter.Int64ObservableCounter(name, metric.WithUnit(unit), metric.WithDescription(desc))
		return c
	}
	gauge := func(name, desc string) metric.Float64ObservableGauge {
		if err != nil {
			return nil
		}
		var g metric.Float64ObservableGauge
		g, err = meter.Float64ObservableGauge(name, metric.WithUnit("1"), metric.WithDescription(desc))
		return g
	}

	r.blocks = counter("vst3host.engine.blocks", "{block}", "Blocks processed")
	r.failures = counter("vst3host.engine.failures", "{block}", "Blocks the plugin failed")
	r.busy = counter("vst3host.engine.busy", "{call}", "Process calls refused while a control operation held the instance")
	r.midiEvents = counter("vst3host.engine.midi_events", "{event}", "MIDI events delivered")
	r.samples = counter("vst3host.engine.samples", "{sample}", "Sample frames processed")
	r.peakLoad = gauge("vst3host.engine.load.peak", "Peak block time over the real-time budget")
	r.avgLoad = gauge("vst3host.engine.load.avg", "Average block time over the real-time budget")
	if err != nil {
		return nil, err
	}

	r.load, err = meter.Float64Histogram("vst3host.engine.load",
		metric.WithUnit("1"),
		metric.WithDescription("Block time over the real-time budget"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 0.75, 1, 2),
	)
	if err != nil {
		return nil, err
	}

	r.reg, err = meter.RegisterCallback(r.observe,
		r.blocks, r.failures, r.busy, r.midiEvents, r.samples, r.peakLoad, r.avgLoad)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Track starts reporting s under name. A second call with the same name
// replaces the source.
func (r *Recorder) Track(name string, s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[name] = s
}

// Untrack stops reporting name.
func (r *Recorder) Untrack(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sources, name)
}

type snapshot struct {
	attrs metric.MeasurementOption
	stats engine.Stats
}

func (r *Recorder) snapshot() []snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]snapshot, len(names))
	for i, name := range names {
		out[i] = snapshot{
			attrs: metric.WithAttributes(attribute.String("plugin", name)),
			stats: r.sources[name].Stats(),
		}
	}
	return out
}

func (r *Recorder) observe(_ context.Context, o metric.Observer) error {
	for _, s := range r.snapshot() {
		o.ObserveInt64(r.blocks, int64(s.stats.Blocks), s.attrs)
		o.ObserveInt64(r.failures, int64(s.stats.Failures), s.attrs)
		o.ObserveInt64(r.busy, int64(s.stats.Busy), s.attrs)
		o.ObserveInt64(r.midiEvents, int64(s.stats.MidiEvents), s.attrs)
		o.ObserveInt64(r.samples, int64(s.stats.Samples), s.attrs)
		o.ObserveFloat64(r.peakLoad, s.stats.PeakLoad, s.attrs)
		o.ObserveFloat64(r.avgLoad, s.stats.AvgLoad, s.attrs)
	}
	return nil
}

// Sample records the last block load of every tracked source that has
// processed at least one block.
func (r *Recorder) Sample(ctx context.Context) {
	for _, s := range r.snapshot() {
		if s.stats.Blocks == 0 {
			continue
		}
		r.load.Record(ctx, s.stats.LastLoad, s.attrs)
	}
}

// Close unregisters the observable callback.
func (r *Recorder) Close() error {
	return r.reg.Unregister()
}

// NewStdoutProvider returns a provider that periodically writes metrics to
// w as JSON. Shut it down to flush the final export.
func NewStdoutProvider(w io.Writer, interval time.Duration) (*sdkmetric.MeterProvider, error) {
	exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w), stdoutmetric.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	reader := sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)), nil
}
