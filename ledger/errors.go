package ledger

import "errors"

var (
	// ErrRecordNotFound indicates no record exists at the requested key.
	ErrRecordNotFound = errors.New("ledger: record not found")

	// ErrInsufficientFunds indicates the source account cannot cover a transfer.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrUnknownAccount indicates an identity does not resolve to an account.
	ErrUnknownAccount = errors.New("ledger: unknown account")

	// ErrVaultAuthority indicates the presented vault credential is wrong.
	ErrVaultAuthority = errors.New("ledger: invalid vault authority")

	// ErrInvalidVaultData indicates a stored vault record is malformed.
	ErrInvalidVaultData = errors.New("ledger: invalid vault data")

	// ErrVaultOwnerMismatch indicates a vault is provisioned for another owner.
	ErrVaultOwnerMismatch = errors.New("ledger: vault owner mismatch")

	// ErrCorruptRecord indicates stored data does not match the expected layout.
	ErrCorruptRecord = errors.New("ledger: corrupt record")
)
