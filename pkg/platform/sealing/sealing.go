// Package sealing encrypts sensitive document fields at rest with
// XChaCha20-Poly1305. A Sealer without a key passes data through unchanged,
// which keeps local development and memory-backed tests simple.
package sealing

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrInvalidKey        = errors.New("sealing key must decode to 32 bytes")
	ErrMalformedEnvelope = errors.New("sealed value is malformed")
)

// version byte prefixed to every sealed envelope
const envelopeV1 byte = 1

type Sealer struct {
	key []byte
}

// New builds a Sealer from a base64 (std encoding) 32-byte key. An empty key
// yields a passthrough Sealer.
func New(encodedKey string) (*Sealer, error) {
	if encodedKey == "" {
		return &Sealer{}, nil
	}
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode sealing key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}
	return &Sealer{key: key}, nil
}

// Enabled reports whether values are actually encrypted.
func (s *Sealer) Enabled() bool {
	return s != nil && len(s.key) > 0
}

// Seal encrypts plaintext, binding it to aad (usually the owning row id).
func (s *Sealer) Seal(plaintext, aad []byte) ([]byte, error) {
	if !s.Enabled() {
		return plaintext, nil
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), 1+aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	out := append([]byte{envelopeV1}, nonce...)
	return aead.Seal(out, nonce, plaintext, aad), nil
}

// Open reverses Seal. aad must match the value used when sealing.
func (s *Sealer) Open(sealed, aad []byte) ([]byte, error) {
	if !s.Enabled() {
		return sealed, nil
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}
	if len(sealed) < 1+aead.NonceSize()+aead.Overhead() || sealed[0] != envelopeV1 {
		return nil, ErrMalformedEnvelope
	}
	nonce := sealed[1 : 1+aead.NonceSize()]
	plaintext, err := aead.Open(nil, nonce, sealed[1+aead.NonceSize():], aad)
	if err != nil {
		return nil, fmt.Errorf("open sealed value: %w", err)
	}
	return plaintext, nil
}
