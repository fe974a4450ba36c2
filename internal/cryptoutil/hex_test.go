package cryptoutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsHexString(t *testing.T) {
	assert.True(t, IsHexString("0123456789abcdefABCDEF"))
	assert.True(t, IsHexString(""), "empty string is vacuously hex")
	assert.False(t, IsHexString("xyz"))
	assert.False(t, IsHexString("deadbeef "))
}

func TestResolveKeyRaw(t *testing.T) {
	key, err := ResolveKey("test-signing-key-1234567890123456", 32)
	require.NoError(t, err)
	assert.Len(t, key, 33, "raw keys pass through as bytes")
}

func TestResolveKeyHex(t *testing.T) {
	key, err := ResolveKey(strings.Repeat("ab", 32), 32)
	require.NoError(t, err)
	assert.Len(t, key, 32)
	assert.Equal(t, byte(0xab), key[0])
}

func TestResolveKeyShortRejected(t *testing.T) {
	_, err := ResolveKey("short", 32)
	require.Error(t, err)
}

func TestResolveKeyOddLengthHexTreatedAsRaw(t *testing.T) {
	// 65 hex chars: odd length, so taken as 65 raw bytes.
	key, err := ResolveKey(strings.Repeat("a", 65), 32)
	require.NoError(t, err)
	assert.Len(t, key, 65)
}

func TestResolveKeyLongNonHexTreatedAsRaw(t *testing.T) {
	raw := strings.Repeat("z", 64)
	key, err := ResolveKey(raw, 32)
	require.NoError(t, err)
	assert.Equal(t, []byte(raw), key)
}
