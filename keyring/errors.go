package keyring

import "errors"

var (
	// ErrInvalidKey indicates private key material of the wrong size.
	ErrInvalidKey = errors.New("keyring: invalid private key")

	// ErrDecryptionFailed indicates the key file could not be decrypted,
	// from a wrong password or a malformed file.
	ErrDecryptionFailed = errors.New("keyring: decryption failed")

	// ErrChecksumMismatch indicates the decrypted key failed its checksum.
	ErrChecksumMismatch = errors.New("keyring: checksum mismatch")
)
