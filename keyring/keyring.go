// Package keyring manages operator key material: generating the secp256k1
// keypair behind an identity, and storing it at rest encrypted with a
// password.
//
// At-rest format: salt(16B) || nonce(12B) || AES-GCM(argon2id(password,salt),
// nonce, key||checksum), where the checksum is SHA256(key)[:4] so a wrong
// password is distinguished from a corrupted file.
package keyring

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"os"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"golang.org/x/crypto/argon2"

	"github.com/heresorg/libheres-go/identity"
)

const (
	// Argon2id parameters for key encryption.
	Argon2Time        = 3
	Argon2Memory      = 64 * 1024 // 64 MB
	Argon2Parallelism = 4
	Argon2KeyLen      = 32

	// Encryption format sizes.
	SaltLen     = 16
	NonceLen    = 12
	ChecksumLen = 4

	privateKeyLen = 32
)

// Keypair wraps a secp256k1 private key and its derived identity.
type Keypair struct {
	priv *ec.PrivateKey
}

// Generate creates a new random keypair.
func Generate() (*Keypair, error) {
	priv, err := ec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("keyring: failed to generate key: %w", err)
	}
	return &Keypair{priv: priv}, nil
}

// FromBytes reconstructs a keypair from a 32-byte private key.
func FromBytes(data []byte) (*Keypair, error) {
	if len(data) != privateKeyLen {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, privateKeyLen, len(data))
	}
	priv, _ := ec.PrivateKeyFromBytes(data)
	return &Keypair{priv: priv}, nil
}

// Bytes returns the 32-byte private key.
func (k *Keypair) Bytes() []byte {
	return k.priv.Serialize()
}

// Identity returns the 20-byte public key hash identity of the keypair.
func (k *Keypair) Identity() identity.Identity {
	var id identity.Identity
	copy(id[:], k.priv.PubKey().Hash())
	return id
}

// Address returns the base58check address of the keypair's identity.
func (k *Keypair) Address() (string, error) {
	return k.Identity().Address()
}

// PrivateKey exposes the underlying key for signing.
func (k *Keypair) PrivateKey() *ec.PrivateKey {
	return k.priv
}

// Encrypt seals the private key with Argon2id + AES-256-GCM.
func Encrypt(k *Keypair, password string) ([]byte, error) {
	key := k.Bytes()

	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("keyring: failed to generate salt: %w", err)
	}

	derivedKey := argon2.IDKey(
		[]byte(password),
		salt,
		Argon2Time,
		Argon2Memory,
		Argon2Parallelism,
		Argon2KeyLen,
	)

	keyHash := sha256.Sum256(key)
	plaintext := make([]byte, 0, len(key)+ChecksumLen)
	plaintext = append(plaintext, key...)
	plaintext = append(plaintext, keyHash[:ChecksumLen]...)

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("keyring: AES cipher creation failed: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("keyring: GCM creation failed: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("keyring: failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	result := make([]byte, 0, SaltLen+NonceLen+len(ciphertext))
	result = append(result, salt...)
	result = append(result, nonce...)
	result = append(result, ciphertext...)
	return result, nil
}

// Decrypt opens an encrypted private key and verifies its checksum.
func Decrypt(encrypted []byte, password string) (*Keypair, error) {
	minLen := SaltLen + NonceLen + ChecksumLen
	if len(encrypted) < minLen {
		return nil, ErrDecryptionFailed
	}

	salt := encrypted[:SaltLen]
	nonce := encrypted[SaltLen : SaltLen+NonceLen]
	ciphertext := encrypted[SaltLen+NonceLen:]

	derivedKey := argon2.IDKey(
		[]byte(password),
		salt,
		Argon2Time,
		Argon2Memory,
		Argon2Parallelism,
		Argon2KeyLen,
	)

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	if len(plaintext) != privateKeyLen+ChecksumLen {
		return nil, ErrDecryptionFailed
	}

	key := plaintext[:privateKeyLen]
	storedChecksum := plaintext[privateKeyLen:]

	keyHash := sha256.Sum256(key)
	for i := 0; i < ChecksumLen; i++ {
		if storedChecksum[i] != keyHash[i] {
			return nil, ErrChecksumMismatch
		}
	}

	return FromBytes(key)
}

// Save writes the encrypted keypair to path with owner-only permissions.
func Save(path string, k *Keypair, password string) error {
	encrypted, err := Encrypt(k, password)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, encrypted, 0o600); err != nil {
		return fmt.Errorf("keyring: failed to write key file: %w", err)
	}
	return nil
}

// Load reads and decrypts a keypair from path.
func Load(path, password string) (*Keypair, error) {
	encrypted, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keyring: failed to read key file: %w", err)
	}
	return Decrypt(encrypted, password)
}
