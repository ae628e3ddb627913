package strcache

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/vst3host/pkg/hosterr"
)

type counter struct {
	mu    sync.Mutex
	calls map[Key]int
	fail  bool
}

func (c *counter) fill(k Key) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return "", errors.New("no class info")
	}
	c.calls[k]++
	return k.String() + "-value", nil
}

func TestCacheFillsLazily(t *testing.T) {
	c := &counter{calls: map[Key]int{}}
	cache := New(c.fill)

	v, err := cache.Get(KeyName)
	require.NoError(t, err)
	assert.Equal(t, "name-value", v)

	_, _ = cache.Get(KeyName)
	_, _ = cache.Get(KeyVendor)
	assert.Equal(t, 1, c.calls[KeyName])
	assert.Equal(t, 1, c.calls[KeyVendor])
	assert.Zero(t, c.calls[KeyInfo])
}

func TestClearInvalidatesRefs(t *testing.T) {
	c := &counter{calls: map[Key]int{}}
	cache := New(c.fill)

	ref, err := cache.Ref(KeyVersion)
	require.NoError(t, err)
	v, ok := ref.Value()
	assert.True(t, ok)
	assert.Equal(t, "version-value", v)
	assert.Equal(t, KeyVersion, ref.Key())

	gen := cache.Generation()
	cache.Clear()
	assert.Equal(t, gen+1, cache.Generation())

	_, ok = ref.Value()
	assert.False(t, ok)
	assert.False(t, ref.Valid())

	fresh, err := cache.Ref(KeyVersion)
	require.NoError(t, err)
	assert.True(t, fresh.Valid())
	assert.Equal(t, 2, c.calls[KeyVersion], "cleared entries are refilled")

	assert.False(t, Ref{}.Valid())
}

func TestFillErrorsAreNotCached(t *testing.T) {
	c := &counter{calls: map[Key]int{}, fail: true}
	cache := New(c.fill)

	_, err := cache.Get(KeyName)
	assert.Error(t, err)

	c.fail = false
	v, err := cache.Get(KeyName)
	require.NoError(t, err)
	assert.Equal(t, "name-value", v)
}

func TestUnknownKey(t *testing.T) {
	cache := New(func(Key) (string, error) { return "", nil })
	_, err := cache.Get(Key(42))
	assert.True(t, hosterr.Is(err, hosterr.CodeInvalidArgument))
	assert.Equal(t, "unknown", Key(42).String())
}
