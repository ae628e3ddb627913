package debug

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	t.Run("BasicLogging", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, "TEST", FlagLevel|FlagPrefix)

		logger.Info("plugin loaded", "name", "GainMix", "params", 2)

		output := buf.String()
		assert.Contains(t, output, "[INFO]")
		assert.Contains(t, output, "[TEST]")
		assert.Contains(t, output, "plugin loaded name=GainMix params=2")
		assert.True(t, strings.HasSuffix(output, "\n"))
	})

	t.Run("LogLevels", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, "", FlagLevel)
		logger.SetLevel(LogLevelWarn)

		logger.Debug("debug message")
		logger.Info("info message")
		logger.Warn("warn message")
		logger.Error("error message")

		output := buf.String()
		assert.NotContains(t, output, "debug message")
		assert.NotContains(t, output, "info message")
		assert.Contains(t, output, "warn message")
		assert.Contains(t, output, "error message")
	})

	t.Run("WithSharesLevel", func(t *testing.T) {
		var buf bytes.Buffer
		parent := New(&buf, "host", FlagPrefix)
		child := parent.With("instance", 3)

		parent.SetLevel(LogLevelError)
		child.Info("hidden")
		assert.Empty(t, buf.String())

		parent.SetLevel(LogLevelDebug)
		child.Debug("shown", "state", "Loaded")
		assert.Contains(t, buf.String(), "[host] shown instance=3 state=Loaded")
	})

	t.Run("ValueQuoting", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, "", 0)
		logger.Warn("failed", "err", errors.New("no such file"), "path", "", "odd")

		output := buf.String()
		assert.Contains(t, output, `err="no such file"`)
		assert.Contains(t, output, `path=""`)
		assert.Contains(t, output, "odd=!MISSING")
	})

	t.Run("Discard", func(t *testing.T) {
		l := Discard()
		assert.False(t, l.Enabled(LogLevelError))
		l.Error("nothing")
	})

	t.Run("Timestamp", func(t *testing.T) {
		var buf bytes.Buffer
		New(&buf, "", FlagTime).Info("tick")
		assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3} tick`, buf.String())
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LogLevelDebug},
		{"INFO", LogLevelInfo},
		{"", LogLevelInfo},
		{"warning", LogLevelWarn},
		{"error", LogLevelError},
		{"off", LogLevelOff},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestDefaultLogger(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	var buf bytes.Buffer
	SetDefault(New(&buf, "", 0))
	Default().Info("hello")
	assert.Equal(t, "hello\n", buf.String())

	SetDefault(nil)
	assert.NotNil(t, Default())
}

func TestAudioAnalyzer(t *testing.T) {
	sine := make([]float32, 1000)
	for i := range sine {
		sine[i] = float32(0.5 * math.Sin(2*math.Pi*float64(i)/100))
	}

	r := AnalyzeBuffer(sine)
	assert.InDelta(t, 0.5, r.Peak, 0.001)
	assert.InDelta(t, 0.5/math.Sqrt2, r.RMS, 0.001)
	assert.InDelta(t, 0, r.DC, 0.001)
	assert.False(t, r.Silent)
	assert.False(t, r.Clipping())
	assert.Greater(t, r.ZeroCrossings, 15)

	silent := AnalyzeBuffer(make([]float32, 64))
	assert.True(t, silent.Silent)

	bad := AnalyzeBuffer([]float32{1, float32(math.NaN()), -1})
	assert.True(t, bad.HasNaN())
	assert.True(t, bad.Clipping())
	assert.Equal(t, 2, bad.Samples)
}

func TestLoadMeter(t *testing.T) {
	m := NewLoadMeter()

	mark := m.Begin()
	time.Sleep(2 * time.Millisecond)
	m.End(mark, 441, 44100) // 10ms budget

	s := m.Snapshot()
	assert.Equal(t, uint64(1), s.Blocks)
	assert.Greater(t, s.LastLoad, 0.1)
	assert.GreaterOrEqual(t, s.PeakLoad, s.LastLoad)
	assert.InDelta(t, s.LastLoad, s.AvgLoad, 1e-9)

	m.End(m.Begin(), 0, 44100)
	assert.Equal(t, uint64(1), m.Snapshot().Blocks, "empty blocks are not counted")

	m.Reset()
	assert.Zero(t, m.Snapshot().Blocks)
}
