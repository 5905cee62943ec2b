package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
)

// SecretBox seals and opens small secrets (TOTP seeds) with AES-256-GCM.
// The key is provided explicitly at construction; there is no ambient
// global key state.
type SecretBox struct {
	aead cipher.AEAD
}

// NewSecretBox derives a 32-byte AES key from the given key material via
// SHA-256 and returns a ready-to-use box. Key material must not be empty.
func NewSecretBox(keyMaterial []byte) (*SecretBox, error) {
	if len(keyMaterial) == 0 {
		return nil, errors.New("cryptox: empty secretbox key material")
	}

	key := sha256.Sum256(keyMaterial)

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &SecretBox{aead: aead}, nil
}

// Seal encrypts plaintext. Output format: [nonce][ciphertext+tag].
func (b *SecretBox) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return b.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts data produced by Seal, verifying the authentication tag.
func (b *SecretBox) Open(sealed []byte) ([]byte, error) {
	nonceSize := b.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, errors.New("cryptox: sealed data too short")
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]

	plaintext, err := b.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}
