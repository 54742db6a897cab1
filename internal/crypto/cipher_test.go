package crypto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher("unit-test-key")
	require.NoError(t, err)
	return c
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := newTestCipher(t)

	for _, plaintext := range []string{
		"hello",
		"",
		"многоязычный текст",
		"emoji 🎉🎊 and\nnewlines\ttabs",
		`{"looks":"like json"}`,
	} {
		env, err := c.Encrypt(plaintext)
		require.NoError(t, err)
		assert.NotEmpty(t, env.IV)
		assert.NotEmpty(t, env.AuthTag)
		assert.Equal(t, plaintext, c.Decrypt(env))
	}
}

func TestDecryptTamperedAuthTag(t *testing.T) {
	c := newTestCipher(t)

	env, err := c.Encrypt("secret message")
	require.NoError(t, err)

	env.AuthTag = "00" + env.AuthTag[2:]
	assert.Equal(t, DecryptionPlaceholder, c.Decrypt(env))
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	c := newTestCipher(t)

	env, err := c.Encrypt("secret message")
	require.NoError(t, err)

	env.Encrypted = "ff" + env.Encrypted[2:]
	assert.Equal(t, DecryptionPlaceholder, c.Decrypt(env))
}

func TestDecryptLegacyPlaintext(t *testing.T) {
	c := newTestCipher(t)

	// Content written before encryption was turned on has no iv/authTag.
	out := c.Decrypt(Envelope{Encrypted: "plain old message"})
	assert.Equal(t, "plain old message", out)
}

func TestDecryptGarbageEnvelope(t *testing.T) {
	c := newTestCipher(t)

	assert.Equal(t, DecryptionPlaceholder, c.DecryptFromString("not json at all"))
	assert.Equal(t, DecryptionPlaceholder, c.DecryptFromString(`{"encrypted":"zz","iv":"zz","authTag":"zz"}`))
}

func TestEncryptToStringStoresEnvelope(t *testing.T) {
	c := newTestCipher(t)

	stored, err := c.EncryptToString("round trip me")
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(stored), &env))
	assert.Equal(t, "round trip me", c.DecryptFromString(stored))
}

func TestNoncesAreUnique(t *testing.T) {
	c := newTestCipher(t)

	first, err := c.Encrypt("same plaintext")
	require.NoError(t, err)
	second, err := c.Encrypt("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, first.IV, second.IV)
	assert.NotEqual(t, first.Encrypted, second.Encrypted)
}
