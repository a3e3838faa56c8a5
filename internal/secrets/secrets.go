// Package secrets encrypts stored provider credentials with AES-256-GCM.
// Ciphertext, IV and authentication tag are kept as separate hex columns so a
// credential can never be read back without passing tag verification.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Bando358/neonmeter/internal/config"
	"go.uber.org/fx"
)

const (
	ivSize  = 16
	tagSize = 16
)

var (
	ErrInvalidKey = errors.New("encryption key must be a 64-character hex string (32 bytes)")
	// ErrDecrypt covers every decryption failure, tag mismatch included.
	// Callers must treat it as terminal and never return partial plaintext.
	ErrDecrypt = errors.New("credential decrypt failed")
)

// Module provides the credential encryptor.
var Module = fx.Module("secrets",
	fx.Provide(func(cfg config.Config) (*Encryptor, error) {
		return NewEncryptor(cfg.EncryptionKey)
	}),
)

type Encryptor struct {
	key []byte
}

func NewEncryptor(hexKey string) (*Encryptor, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidKey
	}
	return &Encryptor{key: key}, nil
}

// Encrypt returns hex-encoded ciphertext, IV and authentication tag.
func (e *Encryptor) Encrypt(plaintext string) (ciphertext, iv, tag string, err error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", "", "", fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return "", "", "", fmt.Errorf("new gcm: %w", err)
	}

	nonce := make([]byte, ivSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", "", "", fmt.Errorf("read nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	ct := sealed[:len(sealed)-tagSize]
	authTag := sealed[len(sealed)-tagSize:]

	return hex.EncodeToString(ct), hex.EncodeToString(nonce), hex.EncodeToString(authTag), nil
}

// Decrypt fails closed: any malformed input or tag mismatch yields ErrDecrypt.
func (e *Encryptor) Decrypt(ciphertext, iv, tag string) (string, error) {
	ct, err := hex.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecrypt
	}
	nonce, err := hex.DecodeString(iv)
	if err != nil || len(nonce) != ivSize {
		return "", ErrDecrypt
	}
	authTag, err := hex.DecodeString(tag)
	if err != nil || len(authTag) != tagSize {
		return "", ErrDecrypt
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", ErrDecrypt
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return "", ErrDecrypt
	}

	plain, err := gcm.Open(nil, nonce, append(ct, authTag...), nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}
