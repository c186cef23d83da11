// Package ledger provides the account and custody substrate the capsule
// engine runs on: deterministic record keys mapped to byte records, balance
// accounts, protocol-owned vaults, and atomic value transfers.
//
// Every engine operation executes inside a single Update transaction, so a
// failure at any point observes no partial mutation. Vault debits require
// the derivation-based vault authority credential; no user identity can
// debit a vault directly.
package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/heresorg/libheres-go/identity"
)

// FeeConfigKey is the fixed well-known record key of the fee configuration.
var FeeConfigKey = identity.RecordKey{
	0x68, 0x65, 0x72, 0x65, 0x73, 0x2f, 0x66, 0x65,
	0x65, 0x5f, 0x63, 0x6f, 0x6e, 0x66, 0x69, 0x67,
	// "heres/fee_config" padded with zeros to 32 bytes.
}

// Store is the ledger consumed by the capsule engine.
type Store interface {
	// View runs fn in a read-only transaction.
	View(fn func(tx Tx) error) error

	// Update runs fn in a single atomic read-write transaction. Returning
	// an error rolls back every mutation made inside fn.
	Update(fn func(tx Tx) error) error

	// Close releases the underlying database.
	Close() error
}

// Tx is a ledger transaction. All reads and writes made through a Tx are
// serialized by the store; two concurrent Update transactions never
// interleave.
type Tx interface {
	// Record returns the record stored at key, or ErrRecordNotFound.
	Record(key identity.RecordKey) ([]byte, error)

	// HasRecord reports whether a record exists at key.
	HasRecord(key identity.RecordKey) bool

	// PutRecord stores value at key, replacing any previous record.
	PutRecord(key identity.RecordKey, value []byte) error

	// ForEachRecord visits every stored record. Returning an error from fn
	// stops the iteration and propagates the error.
	ForEachRecord(fn func(key identity.RecordKey, value []byte) error) error

	// Balance returns the spendable balance of an identity account.
	Balance(id identity.Identity) (uint64, error)

	// Credit adds amount to an identity account, creating it if needed.
	Credit(id identity.Identity, amount uint64) error

	// Transfer atomically moves amount between identity accounts.
	// Fails with ErrInsufficientFunds without mutating either account.
	Transfer(from, to identity.Identity, amount uint64) error

	// Resolve checks that an identity maps to a valid account reference.
	Resolve(id identity.Identity) error

	// VaultBalance returns the locked balance of a vault, or
	// ErrRecordNotFound if the vault is not provisioned.
	VaultBalance(vault identity.RecordKey) (uint64, error)

	// FundVault debits amount from the funding identity and credits the
	// vault, provisioning the vault record for owner on first use.
	FundVault(from identity.Identity, vault identity.RecordKey, owner identity.Identity, amount uint64) error

	// DrainVault debits amount from the vault and credits the destination
	// identity. The caller must present the vault authority credential
	// derived for the vault's owner; anything else fails with
	// ErrVaultAuthority.
	DrainVault(vault identity.RecordKey, auth VaultAuthority, to identity.Identity, amount uint64) error
}

const vaultRecordSize = 28 // owner(20) + balance(8)

// vaultRecord is the stored custody state of a vault.
type vaultRecord struct {
	Owner   identity.Identity
	Balance uint64
}

func encodeVaultRecord(v *vaultRecord) []byte {
	buf := make([]byte, vaultRecordSize)
	copy(buf[0:20], v.Owner[:])
	binary.BigEndian.PutUint64(buf[20:28], v.Balance)
	return buf
}

func decodeVaultRecord(data []byte) (*vaultRecord, error) {
	if len(data) != vaultRecordSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidVaultData, vaultRecordSize, len(data))
	}
	v := &vaultRecord{}
	copy(v.Owner[:], data[0:20])
	v.Balance = binary.BigEndian.Uint64(data[20:28])
	return v, nil
}
