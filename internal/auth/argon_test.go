package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("pass1234")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := VerifyPassword(hash, "pass1234")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword(hash, "wrongpass")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordRejectsShort(t *testing.T) {
	_, err := HashPassword("short")
	assert.Error(t, err)
}

func TestVerifyPasswordGarbageHash(t *testing.T) {
	ok, err := VerifyPassword("not-a-hash", "pass1234")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashesAreSalted(t *testing.T) {
	h1, err := HashPassword("pass1234")
	require.NoError(t, err)
	h2, err := HashPassword("pass1234")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}
