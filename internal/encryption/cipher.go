package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/SankaiAI/ZeroTask/internal/util"

	"golang.org/x/crypto/pbkdf2"
)

// Key derivation parameters. The salt is fixed and application-specific so
// the same (machine ID, app secret) pair always derives the same key; the
// iteration count follows OWASP guidance for PBKDF2-SHA256.
const (
	keySalt       = "zerotask-salt-v1"
	keyIterations = 100000
	keyLength     = 32
)

// Cipher encrypts and decrypts token material with AES-256-GCM. The key is
// derived once at construction from the local machine identifier and the
// application secret; it is held in memory only and never persisted.
//
// Because the key depends on the machine identifier, ciphertext produced on
// one machine cannot be decrypted on another. This binding is intentional:
// copying the database file to a different host yields ErrDecryptionFailed,
// not usable credentials.
type Cipher struct {
	aead cipher.AEAD
}

// New derives the encryption key and prepares the AEAD. Both inputs are
// required; refusing to run with an empty secret beats silently deriving a
// guessable key.
func New(machineID, appSecret string) (*Cipher, error) {
	if machineID == "" || appSecret == "" {
		return nil, fmt.Errorf("encryption: machine ID and app secret are required")
	}

	password := []byte(machineID + ":" + appSecret)
	key := pbkdf2.Key(password, []byte(keySalt), keyIterations, keyLength, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("encryption: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("encryption: create GCM: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext and returns a base64 URL-safe string carrying
// nonce||ciphertext. An empty plaintext is rejected with ErrEmptyInput.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyInput
	}

	nonce, err := util.CryptoRandomBytes(int64(c.aead.NonceSize()))
	if err != nil {
		return "", fmt.Errorf("encryption: generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a payload produced by Encrypt. Any failure — wrong key,
// corrupted or truncated payload, bad encoding — is reported uniformly as
// ErrDecryptionFailed so callers cannot distinguish (and cannot leak) the
// failure mode.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", ErrEmptyInput
	}

	raw, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	if len(raw) < c.aead.NonceSize() {
		return "", ErrDecryptionFailed
	}

	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}
