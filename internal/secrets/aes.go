package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"runtime"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters for key derivation. Memory: 64MB, one pass, 4 lanes.
const (
	kdfMemory      = 64 * 1024
	kdfIterations  = 1
	kdfParallelism = 4
	kdfKeyLength   = 32
)

// keySalt is fixed: the derived key protects a local single-user store, the
// salt only separates this application's keys from other argon2 users.
var keySalt = []byte("llmgate-secret-store-v1")

// Encryptor provides encryption/decryption for values at rest.
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// AES implements AES-256-GCM encryption with an argon2id-derived key.
type AES struct {
	key []byte
}

// NewAES creates an encryptor with a key derived from LLMGATE_ENCRYPTION_KEY,
// falling back to a machine-derived passphrase.
func NewAES() (*AES, error) {
	passphrase := os.Getenv("LLMGATE_ENCRYPTION_KEY")
	if passphrase == "" {
		passphrase = deriveMachineKey()
	}

	key := argon2.IDKey([]byte(passphrase), keySalt, kdfIterations, kdfMemory, kdfParallelism, kdfKeyLength)
	return &AES{key: key}, nil
}

// NewAESWithKey creates an encryptor with a specific key (for testing).
func NewAESWithKey(key []byte) (*AES, error) {
	if len(key) != 32 {
		return nil, errors.New("key must be 32 bytes for AES-256")
	}
	return &AES{key: key}, nil
}

// Encrypt encrypts plaintext using AES-256-GCM.
func (e *AES) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts ciphertext using AES-256-GCM.
func (e *AES) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertextBytes := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertextBytes, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

// deriveMachineKey creates a machine-specific passphrase from available
// identifiers. Basic protection without requiring user configuration.
func deriveMachineKey() string {
	material := "llmgate-default-key"

	if hostname, err := os.Hostname(); err == nil {
		material += hostname
	}
	if home, err := os.UserHomeDir(); err == nil {
		material += home
	}
	material += runtime.GOOS + runtime.GOARCH

	return material
}
