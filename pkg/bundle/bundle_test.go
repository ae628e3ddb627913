package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/vst3host/pkg/hosterr"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

const sampleInfo = `{
  "Name": "GainMix",
  "Version": "1.0.0",
  "Factory Info": {"Vendor": "vst3host", "URL": "https://example.org", "E-Mail": "dev@example.org"},
  "Classes": [
    {"CID": "5C2C2C6B1E9F5B0B8B6F0C9E9D1A2B3C", "Category": "Component Controller Class", "Name": "Controller"},
    {"CID": "not-a-uid", "Category": "Audio Module Class", "Name": "Broken"},
    {"CID": "6C2C2C6B1E9F5B0B8B6F0C9E9D1A2B3C", "Category": "Audio Module Class", "Name": "GainMix",
     "Sub Categories": ["Fx"], "SDK Version": "VST 3.7.9"}
  ]
}`

func makeBundle(t *testing.T, name string, withInfo bool) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), name+Extension)
	bin := filepath.Join(root, "Contents", PlatformDir())
	require.NoError(t, os.MkdirAll(bin, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bin, name+".so"), []byte("ELF"), 0o644))
	if withInfo {
		res := filepath.Join(root, "Contents", "Resources")
		require.NoError(t, os.MkdirAll(res, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(res, "moduleinfo.json"), []byte(sampleInfo), 0o644))
	}
	return root
}

func TestResolve(t *testing.T) {
	t.Run("Bundle", func(t *testing.T) {
		root := makeBundle(t, "GainMix", true)
		b, err := Resolve(root)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "Contents", PlatformDir(), "GainMix.so"), b.Binary)
		require.NotNil(t, b.Info)
		assert.Equal(t, "GainMix", b.Info.Name)
		assert.Equal(t, "dev@example.org", b.Info.FactoryInfo.Email)
	})

	t.Run("BundleWithoutInfo", func(t *testing.T) {
		b, err := Resolve(makeBundle(t, "Bare", false))
		require.NoError(t, err)
		assert.Nil(t, b.Info)
	})

	t.Run("PlainFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "plugin.so")
		require.NoError(t, os.WriteFile(path, nil, 0o644))
		b, err := Resolve(path)
		require.NoError(t, err)
		assert.Equal(t, path, b.Binary)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := Resolve(filepath.Join(t.TempDir(), "nope.vst3"))
		assert.True(t, hosterr.Is(err, hosterr.CodeNotFound))
	})

	t.Run("NoBinaryForPlatform", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "Empty.vst3")
		require.NoError(t, os.MkdirAll(filepath.Join(root, "Contents"), 0o755))
		_, err := Resolve(root)
		assert.True(t, hosterr.Is(err, hosterr.CodeLoadError))
	})

	t.Run("BadModuleInfo", func(t *testing.T) {
		root := makeBundle(t, "Bad", false)
		res := filepath.Join(root, "Contents", "Resources")
		require.NoError(t, os.MkdirAll(res, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(res, "moduleinfo.json"), []byte("{"), 0o644))
		_, err := Resolve(root)
		assert.True(t, hosterr.Is(err, hosterr.CodeLoadError))
	})
}

func TestModuleInfoAudioClass(t *testing.T) {
	info, err := ParseModuleInfo([]byte(sampleInfo))
	require.NoError(t, err)

	c, uid, ok := info.AudioClass()
	require.True(t, ok)
	assert.Equal(t, "GainMix", c.Name)
	assert.Equal(t, "6C2C2C6B1E9F5B0B8B6F0C9E9D1A2B3C", uid.String())
	assert.Equal(t, []string{vst3.SubCategoryFx}, c.SubCategories)

	var none *ModuleInfo
	_, _, ok = none.AudioClass()
	assert.False(t, ok)

	data, err := info.Marshal()
	require.NoError(t, err)
	again, err := ParseModuleInfo(data)
	require.NoError(t, err)
	assert.Equal(t, info, again)
}

func TestPlatformDir(t *testing.T) {
	assert.NotEmpty(t, Arch())
	assert.Contains(t, PlatformDir(), "-")
}
