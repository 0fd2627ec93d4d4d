package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemCache_Expiry(t *testing.T) {
	c := NewMemCache[string](time.Minute, 0)
	defer c.Close()

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("r1", "Alice")
	v, ok := c.Get("r1")
	require.True(t, ok)
	assert.Equal(t, "Alice", v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("r1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestMemCache_GetOrLoad(t *testing.T) {
	c := NewMemCache[string](0, 0)
	defer c.Close()

	calls := 0
	load := func() (string, error) {
		calls++
		return "Bob", nil
	}

	v, err := c.GetOrLoad("r2", load)
	require.NoError(t, err)
	assert.Equal(t, "Bob", v)
	_, _ = c.GetOrLoad("r2", load)
	assert.Equal(t, 1, calls)

	_, err = c.GetOrLoad("r3", func() (string, error) { return "", errors.New("boom") })
	assert.Error(t, err)
	_, ok := c.Get("r3")
	assert.False(t, ok)
}

func TestMemCache_CleanupLoopStops(t *testing.T) {
	c := NewMemCache[int](time.Millisecond, time.Millisecond)
	c.Set("k", 1)
	time.Sleep(10 * time.Millisecond)
	c.Close()
	c.Close()
	assert.Equal(t, 0, c.Len())
}
