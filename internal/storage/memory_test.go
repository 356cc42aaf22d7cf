package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySetGet(t *testing.T) {
	m := NewMemory()

	_, ok, err := m.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set("k", "v"))
	v, ok, err := m.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestMemoryQuota(t *testing.T) {
	m := NewMemory()
	m.SetQuota(10)

	require.NoError(t, m.Set("a", "12345"))
	// Replacing a key only counts the new value.
	require.NoError(t, m.Set("a", "1234567890"))

	err := m.Set("b", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	_, ok, _ := m.Get("b")
	assert.False(t, ok, "rejected write must not be stored")

	m.SetQuota(0)
	assert.NoError(t, m.Set("b", "x"))
}
