package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	passwords := []string{"secret", "", "päss wörd", "a", "correct horse battery staple"}

	for _, password := range passwords {
		digest, salt, err := HashPassword(password)
		require.NoError(t, err)
		assert.Len(t, salt, 32, "salt should be 16 bytes hex-encoded")
		assert.Len(t, digest, 64, "digest should be sha256 hex")

		assert.True(t, VerifyPassword(password, digest, salt))
		assert.False(t, VerifyPassword(password+"x", digest, salt))
	}
}

func TestHashPasswordWithSalt_Deterministic(t *testing.T) {
	a := HashPasswordWithSalt("secret", "00112233445566778899aabbccddeeff")
	b := HashPasswordWithSalt("secret", "00112233445566778899aabbccddeeff")
	assert.Equal(t, a, b)

	c := HashPasswordWithSalt("secret", "ffeeddccbbaa99887766554433221100")
	assert.NotEqual(t, a, c, "different salts must yield different digests")
}

func TestHashPassword_FreshSalt(t *testing.T) {
	_, salt1, err := HashPassword("secret")
	require.NoError(t, err)
	_, salt2, err := HashPassword("secret")
	require.NoError(t, err)
	assert.NotEqual(t, salt1, salt2)
}

func TestVerifyPassword_WrongSalt(t *testing.T) {
	digest, salt, err := HashPassword("secret")
	require.NoError(t, err)
	assert.False(t, VerifyPassword("secret", digest, salt[:len(salt)-1]+"0"))
}

func TestGeneratePasswordHash(t *testing.T) {
	fields, err := GeneratePasswordHash("secret")
	require.NoError(t, err)
	require.Contains(t, fields, "password_hash")
	require.Contains(t, fields, "salt")
	assert.True(t, VerifyPassword("secret", fields["password_hash"], fields["salt"]))
}
