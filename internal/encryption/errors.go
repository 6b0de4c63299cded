package encryption

import "errors"

var (
	// ErrEmptyInput is returned when encrypting or decrypting an empty value
	ErrEmptyInput = errors.New("encryption: input is empty")

	// ErrDecryptionFailed is returned when a ciphertext fails authentication
	// (wrong key, corruption, truncation). Callers must treat the underlying
	// credential as unusable; the payload is never partially returned.
	ErrDecryptionFailed = errors.New("encryption: decryption failed")
)
