package bitstring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	b := New(16384)

	for _, pos := range []int{0, 7, 8, 16383} {
		set, err := b.Get(pos)
		require.NoError(t, err)
		assert.False(t, set)

		require.NoError(t, b.Set(pos, true))

		set, err = b.Get(pos)
		require.NoError(t, err)
		assert.True(t, set, "position %d", pos)

		require.NoError(t, b.Set(pos, false))

		set, err = b.Get(pos)
		require.NoError(t, err)
		assert.False(t, set)
	}
}

func TestOutOfRange(t *testing.T) {
	b := New(64)

	assert.Error(t, b.Set(64, true))
	assert.Error(t, b.Set(-1, true))

	_, err := b.Get(64)
	assert.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	b := New(16384)
	revoked := []int{1, 42, 8191, 16383}
	for _, pos := range revoked {
		require.NoError(t, b.Set(pos, true))
	}

	encoded, err := b.Encode()
	require.NoError(t, err)

	decoded, err := Decode(encoded, 16384)
	require.NoError(t, err)
	assert.Equal(t, 16384, decoded.Len())

	for _, pos := range revoked {
		set, err := decoded.Get(pos)
		require.NoError(t, err)
		assert.True(t, set, "position %d", pos)
	}

	set, err := decoded.Get(2)
	require.NoError(t, err)
	assert.False(t, set)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode("!!!", 64)
	assert.Error(t, err)

	// Too short for the expected length.
	short, err := New(8).Encode()
	require.NoError(t, err)

	_, err = Decode(short, 16384)
	assert.Error(t, err)
}
