package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenOTPCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenOTPCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "non-digit in %q", code)
		}
		seen[code] = true
	}
	// 50 draws from a million values colliding every time would mean a
	// broken generator
	assert.Greater(t, len(seen), 1)
}

func TestGenResetToken(t *testing.T) {
	a, err := GenResetToken()
	require.NoError(t, err)
	b, err := GenResetToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2hunter2", hash)

	assert.True(t, CompareHashAndPassword(hash, "hunter2hunter2"))
	assert.False(t, CompareHashAndPassword(hash, "wrong-password"))
}
