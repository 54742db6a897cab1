package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

// DecryptionPlaceholder is returned instead of an error whenever stored
// ciphertext cannot be recovered, so chat history keeps rendering.
const DecryptionPlaceholder = "[Encrypted message]"

const nonceSize = 16

// Envelope is the at-rest form of an encrypted message body. It is stored
// as a JSON string in the message content column.
type Envelope struct {
	Encrypted string `json:"encrypted"`
	IV        string `json:"iv"`
	AuthTag   string `json:"authTag"`
}

type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives a 32-byte AES key from the configured secret with scrypt
// and prepares an AES-256-GCM cipher with a 16-byte nonce.
func NewCipher(secret string) (*Cipher, error) {
	key, err := scrypt.Key([]byte(secret), []byte("salt"), 32768, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to init GCM: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext with a fresh random nonce. The GCM seal output is
// ciphertext followed by the auth tag; the two are split so the stored
// envelope matches the {encrypted, iv, authTag} wire shape.
func (c *Cipher) Encrypt(plaintext string) (Envelope, error) {
	iv := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return Envelope{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	tagStart := len(sealed) - c.aead.Overhead()

	return Envelope{
		Encrypted: hex.EncodeToString(sealed[:tagStart]),
		IV:        hex.EncodeToString(iv),
		AuthTag:   hex.EncodeToString(sealed[tagStart:]),
	}, nil
}

// Decrypt opens an envelope. Corrupt data, a bad auth tag, or legacy content
// without iv/authTag never produce an error: legacy content is returned
// verbatim and anything unrecoverable degrades to the placeholder.
func (c *Cipher) Decrypt(env Envelope) string {
	if env.IV == "" || env.AuthTag == "" {
		// Unencrypted legacy content is stored as-is.
		return env.Encrypted
	}

	iv, err := hex.DecodeString(env.IV)
	if err != nil || len(iv) != nonceSize {
		return DecryptionPlaceholder
	}
	ciphertext, err := hex.DecodeString(env.Encrypted)
	if err != nil {
		return DecryptionPlaceholder
	}
	tag, err := hex.DecodeString(env.AuthTag)
	if err != nil {
		return DecryptionPlaceholder
	}

	plaintext, err := c.aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return DecryptionPlaceholder
	}
	return string(plaintext)
}

// EncryptToString seals plaintext and serializes the envelope for storage.
func (c *Cipher) EncryptToString(plaintext string) (string, error) {
	env, err := c.Encrypt(plaintext)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return string(data), nil
}

// DecryptFromString parses a stored envelope and decrypts it, degrading to
// the placeholder when the stored value is not a valid envelope.
func (c *Cipher) DecryptFromString(stored string) string {
	var env Envelope
	if err := json.Unmarshal([]byte(stored), &env); err != nil {
		return DecryptionPlaceholder
	}
	return c.Decrypt(env)
}
