package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCache_ServesUntilExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache[int](time.Second)
	c.now = func() time.Time { return now }

	calls := 0
	fetch := func() (int, error) {
		calls++
		return calls, nil
	}

	v, err := c.Get(fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	now = now.Add(500 * time.Millisecond)
	v, _ = c.Get(fetch)
	assert.Equal(t, 1, v)

	now = now.Add(time.Second)
	v, _ = c.Get(fetch)
	assert.Equal(t, 2, v)

	c.Clear()
	v, _ = c.Get(fetch)
	assert.Equal(t, 3, v)
}

func TestTTLCache_ErrorsAreNotCached(t *testing.T) {
	c := NewTTLCache[string](time.Minute)

	_, err := c.Get(func() (string, error) { return "", errors.New("core down") })
	require.Error(t, err)

	v, err := c.Get(func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestGetCachedSelfStatus(t *testing.T) {
	self, err := GetCachedSelfStatus()
	require.NoError(t, err)
	require.NotNil(t, self.Process)
	assert.Positive(t, self.Process.PID)
	assert.Positive(t, self.Goroutines)
}
