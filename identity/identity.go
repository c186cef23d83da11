// Package identity defines the principal identity type used across the
// capsule engine and the deterministic derivation of capsule and vault
// record keys from it.
//
// An identity is the 20-byte public key hash behind a base58check address.
// Capsule and vault records are addressed by tagged SHA256 hashes of the
// owner identity, so exactly one capsule/vault pair exists per owner.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/script"
)

// Size is the length of an identity in bytes.
const Size = 20

// Derivation tags for record keys. Changing these is a breaking change to
// every stored record key.
const (
	capsuleTag = "heres/intent_capsule"
	vaultTag   = "heres/capsule_vault"
)

// Identity is the 20-byte public key hash identifying a principal.
type Identity [Size]byte

// ParseAddress decodes a base58check address string into an Identity.
func ParseAddress(s string) (Identity, error) {
	var id Identity
	if s == "" {
		return id, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}
	addr, err := script.NewAddressFromString(s)
	if err != nil {
		return id, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, s, err)
	}
	pkh := []byte(addr.PublicKeyHash)
	if len(pkh) != Size {
		return id, fmt.Errorf("%w: %q: public key hash must be %d bytes, got %d",
			ErrInvalidAddress, s, Size, len(pkh))
	}
	copy(id[:], pkh)
	return id, nil
}

// Address formats the identity as a mainnet base58check address string.
func (id Identity) Address() (string, error) {
	addr, err := script.NewAddressFromPublicKeyHash(id[:], true)
	if err != nil {
		return "", fmt.Errorf("identity: encode address: %w", err)
	}
	return addr.AddressString, nil
}

// String returns the hex encoding of the identity for logging.
func (id Identity) String() string {
	return hex.EncodeToString(id[:])
}

// RecordKey is a 32-byte deterministic ledger record key.
type RecordKey [32]byte

// String returns the hex encoding of the record key.
func (k RecordKey) String() string {
	return hex.EncodeToString(k[:])
}

// CapsuleKey derives the capsule record key for an owner:
// SHA256("heres/intent_capsule" || owner).
func CapsuleKey(owner Identity) RecordKey {
	return taggedKey(capsuleTag, owner)
}

// VaultKey derives the vault record key for an owner:
// SHA256("heres/capsule_vault" || owner).
func VaultKey(owner Identity) RecordKey {
	return taggedKey(vaultTag, owner)
}

func taggedKey(tag string, owner Identity) RecordKey {
	h := sha256.New()
	h.Write([]byte(tag))
	h.Write(owner[:])
	var k RecordKey
	copy(k[:], h.Sum(nil))
	return k
}
