package auth

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

var ErrCiphertext = errors.New("malformed or undecryptable ciphertext")

const (
	cipherSaltLen   = 16
	cipherKeyLen    = 32
	cipherKDFRounds = 4096
)

// PasswordCipher reversibly encrypts stored admin passwords with a shared
// secret so login can decrypt-then-compare. Reversible password storage is
// NOT a security best practice; a one-way hash with a constant-time compare
// is the better design. It is kept here because the login contract requires
// recovering the stored plaintext for comparison.
type PasswordCipher struct {
	secret string
}

func NewPasswordCipher(secret string) *PasswordCipher {
	return &PasswordCipher{secret: secret}
}

// Encrypt produces base64(salt || nonce || AES-GCM ciphertext). The key is
// derived per ciphertext from the shared secret and a random salt.
func (c *PasswordCipher) Encrypt(plain string) (string, error) {
	salt := make([]byte, cipherSaltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	aead, err := c.aead(salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, []byte(plain), nil)

	buf := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	buf = append(buf, salt...)
	buf = append(buf, nonce...)
	buf = append(buf, sealed...)

	return base64.StdEncoding.EncodeToString(buf), nil
}

// Decrypt recovers the plaintext. A wrong secret or mangled ciphertext
// yields ErrCiphertext; callers are expected to fail closed and report it
// exactly like a password mismatch.
func (c *PasswordCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrCiphertext
	}
	if len(raw) < cipherSaltLen {
		return "", ErrCiphertext
	}

	salt := raw[:cipherSaltLen]
	aead, err := c.aead(salt)
	if err != nil {
		return "", err
	}

	ns := aead.NonceSize()
	if len(raw) < cipherSaltLen+ns {
		return "", ErrCiphertext
	}
	nonce := raw[cipherSaltLen : cipherSaltLen+ns]

	plain, err := aead.Open(nil, nonce, raw[cipherSaltLen+ns:], nil)
	if err != nil {
		return "", ErrCiphertext
	}
	return string(plain), nil
}

func (c *PasswordCipher) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(c.secret), salt, cipherKDFRounds, cipherKeyLen, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
