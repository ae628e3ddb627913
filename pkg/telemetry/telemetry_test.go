package telemetry

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/justyntemme/vst3host/pkg/engine"
)

type fixedSource engine.Stats

func (s fixedSource) Stats() engine.Stats { return engine.Stats(s) }

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func newRecorder(t *testing.T) (*Recorder, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	r, err := New(provider)
	require.NoError(t, err)
	return r, reader
}

func TestObservedCounters(t *testing.T) {
	r, reader := newRecorder(t)
	r.Track("gainmix", fixedSource{Blocks: 10, Failures: 1, Samples: 5120, PeakLoad: 0.4, AvgLoad: 0.1})

	metrics := collect(t, reader)
	blocks, ok := metrics["vst3host.engine.blocks"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, blocks.DataPoints, 1)
	assert.Equal(t, int64(10), blocks.DataPoints[0].Value)
	assert.True(t, blocks.IsMonotonic)
	plugin, ok := blocks.DataPoints[0].Attributes.Value(attribute.Key("plugin"))
	require.True(t, ok)
	assert.Equal(t, "gainmix", plugin.AsString())

	samples := metrics["vst3host.engine.samples"].Data.(metricdata.Sum[int64])
	assert.Equal(t, int64(5120), samples.DataPoints[0].Value)

	peak, ok := metrics["vst3host.engine.load.peak"].Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	assert.InDelta(t, 0.4, peak.DataPoints[0].Value, 1e-9)
}

func TestUntrack(t *testing.T) {
	r, reader := newRecorder(t)
	r.Track("a", fixedSource{Blocks: 1})
	r.Track("b", fixedSource{Blocks: 2})
	r.Untrack("a")

	blocks := collect(t, reader)["vst3host.engine.blocks"].Data.(metricdata.Sum[int64])
	require.Len(t, blocks.DataPoints, 1)
	assert.Equal(t, int64(2), blocks.DataPoints[0].Value)
}

func TestSampleRecordsLoad(t *testing.T) {
	r, reader := newRecorder(t)
	r.Track("idle", fixedSource{})
	r.Track("busy", fixedSource{Blocks: 3, LastLoad: 0.3})

	r.Sample(context.Background())
	r.Sample(context.Background())

	hist, ok := collect(t, reader)["vst3host.engine.load"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1, "sources without blocks are skipped")
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
	assert.InDelta(t, 0.6, hist.DataPoints[0].Sum, 1e-9)
}

func TestClose(t *testing.T) {
	r, reader := newRecorder(t)
	r.Track("a", fixedSource{Blocks: 1})
	require.NoError(t, r.Close())

	_, ok := collect(t, reader)["vst3host.engine.blocks"]
	assert.False(t, ok, "no observations after close")
}

func TestStdoutProvider(t *testing.T) {
	var buf bytes.Buffer
	provider, err := NewStdoutProvider(&buf, time.Hour)
	require.NoError(t, err)

	r, err := New(provider)
	require.NoError(t, err)
	r.Track("synth", fixedSource{Blocks: 4})

	require.NoError(t, provider.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "vst3host.engine.blocks")
	assert.Contains(t, buf.String(), "synth")
}
