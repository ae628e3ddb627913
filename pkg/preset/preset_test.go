package preset

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/vst3host/pkg/hosterr"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

func samplePreset() *Preset {
	return &Preset{
		ClassID:   vst3.UIDFromString("com.example.gainmix"),
		Params:    []byte{1, 2, 3, 4},
		Component: bytes.Repeat([]byte("state"), 100),
	}
}

func TestWriteRead(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, samplePreset()))
	assert.Less(t, buf.Len(), 500, "component state compresses")

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, samplePreset(), got)
}

func TestEmptySections(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, &Preset{}))
	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Empty(t, got.Params)
	assert.Empty(t, got.Component)
	assert.True(t, got.ClassID.IsZero())
}

func TestReadRejectsMalformed(t *testing.T) {
	var good bytes.Buffer
	require.NoError(t, Write(&good, samplePreset()))

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not zstd", []byte("plain text, not a frame")},
		{"truncated", good.Bytes()[:good.Len()/2]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.data))
			require.Error(t, err)
			assert.True(t, hosterr.Is(err, hosterr.CodeStateError))
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gain"+Extension)
	require.NoError(t, Save(path, samplePreset()))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, samplePreset().ClassID, got.ClassID)

	_, err = Load(filepath.Join(t.TempDir(), "missing"+Extension))
	assert.True(t, hosterr.Is(err, hosterr.CodeNotFound))
}

func TestWriteNil(t *testing.T) {
	err := Write(&bytes.Buffer{}, nil)
	assert.True(t, hosterr.Is(err, hosterr.CodeInvalidArgument))
}
