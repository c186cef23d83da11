package ledger

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/heresorg/libheres-go/identity"
)

// AuthoritySize is the length of a vault authority credential in bytes.
const AuthoritySize = 32

// authorityInfo is the constant info string for the authority derivation.
const authorityInfo = "heres-vault-authority"

// VaultAuthority is the derivation-based credential that authorizes
// outbound vault transfers without a human signer.
//
// The derivation is HKDF-SHA256(IKM=owner, Salt=vaultKey, Info=
// "heres-vault-authority"). It is DETERMINISTIC and derivable by anyone who
// knows the owner identity: it models the substrate's "vault acting as its
// own authority" signing mode, not a secret. A chain-backed ledger enforces
// the same gate with program-derived signatures instead.
type VaultAuthority [AuthoritySize]byte

// DeriveVaultAuthority derives the authority credential for the vault of
// the given owner.
func DeriveVaultAuthority(owner identity.Identity, vault identity.RecordKey) (VaultAuthority, error) {
	var auth VaultAuthority
	r := hkdf.New(sha256.New, owner[:], vault[:], []byte(authorityInfo))
	if _, err := io.ReadFull(r, auth[:]); err != nil {
		return auth, fmt.Errorf("ledger: derive vault authority: %w", err)
	}
	return auth, nil
}

// verifyVaultAuthority checks a presented credential against the one
// derived for the vault's stored owner.
func verifyVaultAuthority(owner identity.Identity, vault identity.RecordKey, presented VaultAuthority) error {
	expected, err := DeriveVaultAuthority(owner, vault)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(expected[:], presented[:]) != 1 {
		return fmt.Errorf("%w: vault %s", ErrVaultAuthority, vault)
	}
	return nil
}
