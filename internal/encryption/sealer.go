// Package encryption provides authenticated encryption for tokens and
// installation records at rest. AES-256-GCM with a random nonce prepended to
// the ciphertext, base64-framed so sealed values are safe in any backend.
package encryption

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/billyshambrook/frameio-kit/internal/log"
)

// EnvKey names the environment variable holding the base64 master key.
const EnvKey = "FRAMEIO_AUTH_ENCRYPTION_KEY"

// devKeyFile is read as a fallback during local development so restarts
// keep the same key without exporting it by hand.
const devKeyFile = ".frameio-kit-key"

var (
	// ErrTampered is returned when a sealed value fails authentication.
	ErrTampered = errors.New("encryption: ciphertext invalid or tampered")
	// ErrInvalidKey is returned when a provided key is not base64 or not 32 bytes.
	ErrInvalidKey = errors.New("encryption: key must be base64-encoded 32 bytes")
)

// Sealer encrypts and decrypts opaque byte payloads.
type Sealer struct {
	aead cipher.AEAD
}

// New builds a Sealer. The key resolution order is: the explicit key
// argument, the FRAMEIO_AUTH_ENCRYPTION_KEY environment variable, a local
// dev key file, and finally an ephemeral random key. Ephemeral keys mean
// all sealed data is lost on restart, so that path logs a warning.
func New(key string) (*Sealer, error) {
	if key != "" {
		return fromKey(key)
	}
	if envKey := os.Getenv(EnvKey); envKey != "" {
		return fromKey(envKey)
	}
	if fileKey := readDevKey(); fileKey != "" {
		s, err := fromKey(fileKey)
		if err == nil {
			return s, nil
		}
		log.Warn("ignoring invalid dev key file", "file", devKeyFile, "error", err)
	}

	ephemeral, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	log.Warn("no encryption key configured, using ephemeral key; stored tokens will not survive restart",
		"env", EnvKey)
	return fromKey(ephemeral)
}

func fromKey(key string) (*Sealer, error) {
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil || len(raw) != 32 {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("encryption: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("encryption: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

func readDevKey() string {
	data, err := os.ReadFile(filepath.Clean(devKeyFile))
	if err != nil {
		return ""
	}
	return string(bytes.TrimSpace(data))
}

// GenerateKey returns a fresh base64-encoded 32-byte key.
func GenerateKey() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("encryption: generating key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext).
func (s *Sealer) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("encryption: generating nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, plaintext, nil)
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sealed)))
	base64.StdEncoding.Encode(out, sealed)
	return out, nil
}

// Decrypt opens a value produced by Encrypt. Returns ErrTampered when the
// framing is broken or authentication fails.
func (s *Sealer) Decrypt(sealed []byte) ([]byte, error) {
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(sealed)))
	n, err := base64.StdEncoding.Decode(raw, sealed)
	if err != nil {
		return nil, ErrTampered
	}
	raw = raw[:n]

	nonceSize := s.aead.NonceSize()
	if len(raw) < nonceSize {
		return nil, ErrTampered
	}
	plaintext, err := s.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return nil, ErrTampered
	}
	return plaintext, nil
}
