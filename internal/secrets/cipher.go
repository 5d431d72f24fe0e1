package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Key derivation parameters. Changing either invalidates stored ciphertexts.
const (
	deriveIterations = 100000
	deriveKeyLen     = 32
)

// deriveSalt is a fixed application salt for PBKDF2. The secret key itself is
// the high-entropy input; the salt only separates this deployment's keyspace.
var deriveSalt = []byte("aicore.credential.v1")

// ErrCiphertextInvalid indicates the stored ciphertext cannot be decrypted.
var ErrCiphertextInvalid = errors.New("secrets: invalid ciphertext")

// Cipher encrypts and decrypts credential secrets with AES-256-GCM.
// The 32-byte key is derived from the configured secret via PBKDF2.
type Cipher struct {
	key []byte
}

// NewCipher derives the encryption key from the configured secret.
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, errors.New("secrets: empty secret")
	}
	key := pbkdf2.Key([]byte(secret), deriveSalt, deriveIterations, deriveKeyLen, sha256.New)
	return &Cipher{key: key}, nil
}

// Encrypt seals the plaintext and returns base64 with the nonce prefixed.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if c == nil {
		return "", errors.New("secrets: nil cipher")
	}
	block, errCipher := aes.NewCipher(c.key)
	if errCipher != nil {
		return "", fmt.Errorf("secrets: new cipher: %w", errCipher)
	}
	aesGCM, errGCM := cipher.NewGCM(block)
	if errGCM != nil {
		return "", fmt.Errorf("secrets: new gcm: %w", errGCM)
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, errRead := io.ReadFull(rand.Reader, nonce); errRead != nil {
		return "", fmt.Errorf("secrets: nonce: %w", errRead)
	}

	ciphertext := aesGCM.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. Tampered or foreign ciphertexts return
// ErrCiphertextInvalid.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	if c == nil {
		return "", errors.New("secrets: nil cipher")
	}
	enc, errDecode := base64.StdEncoding.DecodeString(encoded)
	if errDecode != nil {
		return "", ErrCiphertextInvalid
	}

	block, errCipher := aes.NewCipher(c.key)
	if errCipher != nil {
		return "", fmt.Errorf("secrets: new cipher: %w", errCipher)
	}
	aesGCM, errGCM := cipher.NewGCM(block)
	if errGCM != nil {
		return "", fmt.Errorf("secrets: new gcm: %w", errGCM)
	}

	nonceSize := aesGCM.NonceSize()
	if len(enc) < nonceSize {
		return "", ErrCiphertextInvalid
	}

	nonce, ciphertext := enc[:nonceSize], enc[nonceSize:]
	plaintext, errOpen := aesGCM.Open(nil, nonce, ciphertext, nil)
	if errOpen != nil {
		return "", ErrCiphertextInvalid
	}
	return string(plaintext), nil
}

// Hint returns a masked preview of a secret for display, keeping the first
// four and last four characters of longer values.
func Hint(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
