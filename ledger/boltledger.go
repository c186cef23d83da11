package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/heresorg/libheres-go/identity"
)

var (
	bucketRecords  = []byte("records")
	bucketBalances = []byte("balances")
	bucketVaults   = []byte("vaults")
)

// BoltStore is the bbolt-backed ledger implementation.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("ledger: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketRecords, bucketBalances, bucketVaults} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("ledger: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// View runs fn in a read-only transaction.
func (s *BoltStore) View(fn func(tx Tx) error) error {
	return s.db.View(func(btx *bbolt.Tx) error {
		return fn(&boltTx{tx: btx})
	})
}

// Update runs fn in a single atomic read-write transaction.
func (s *BoltStore) Update(fn func(tx Tx) error) error {
	return s.db.Update(func(btx *bbolt.Tx) error {
		return fn(&boltTx{tx: btx})
	})
}

// boltTx adapts a bbolt transaction to the ledger Tx interface.
type boltTx struct {
	tx *bbolt.Tx
}

var _ Tx = (*boltTx)(nil)

func (t *boltTx) Record(key identity.RecordKey) ([]byte, error) {
	v := t.tx.Bucket(bucketRecords).Get(key[:])
	if v == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, key)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (t *boltTx) HasRecord(key identity.RecordKey) bool {
	return t.tx.Bucket(bucketRecords).Get(key[:]) != nil
}

func (t *boltTx) PutRecord(key identity.RecordKey, value []byte) error {
	return t.tx.Bucket(bucketRecords).Put(key[:], value)
}

func (t *boltTx) ForEachRecord(fn func(key identity.RecordKey, value []byte) error) error {
	return t.tx.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
		var key identity.RecordKey
		if len(k) != len(key) {
			return fmt.Errorf("%w: record key is %d bytes", ErrCorruptRecord, len(k))
		}
		copy(key[:], k)
		return fn(key, v)
	})
}

func (t *boltTx) Balance(id identity.Identity) (uint64, error) {
	v := t.tx.Bucket(bucketBalances).Get(id[:])
	if v == nil {
		return 0, nil
	}
	if len(v) != 8 {
		return 0, fmt.Errorf("%w: balance record is %d bytes", ErrCorruptRecord, len(v))
	}
	return binary.BigEndian.Uint64(v), nil
}

func (t *boltTx) Credit(id identity.Identity, amount uint64) error {
	if err := t.Resolve(id); err != nil {
		return err
	}
	balance, err := t.Balance(id)
	if err != nil {
		return err
	}
	return t.putBalance(id, balance+amount)
}

func (t *boltTx) Transfer(from, to identity.Identity, amount uint64) error {
	if err := t.Resolve(to); err != nil {
		return err
	}
	balance, err := t.Balance(from)
	if err != nil {
		return err
	}
	if balance < amount {
		return fmt.Errorf("%w: account %s has %d, need %d", ErrInsufficientFunds, from, balance, amount)
	}
	if err := t.putBalance(from, balance-amount); err != nil {
		return err
	}
	return t.Credit(to, amount)
}

// Resolve rejects the zero identity; every other identity maps to a
// derivable account. A chain-backed substrate rejects unknown accounts here
// instead.
func (t *boltTx) Resolve(id identity.Identity) error {
	var zero identity.Identity
	if id == zero {
		return fmt.Errorf("%w: zero identity", ErrUnknownAccount)
	}
	return nil
}

func (t *boltTx) VaultBalance(vault identity.RecordKey) (uint64, error) {
	rec, err := t.vault(vault)
	if err != nil {
		return 0, err
	}
	return rec.Balance, nil
}

func (t *boltTx) FundVault(from identity.Identity, vault identity.RecordKey, owner identity.Identity, amount uint64) error {
	rec, err := t.vault(vault)
	if err != nil {
		if !isNotFound(err) {
			return err
		}
		rec = &vaultRecord{Owner: owner}
	}
	if rec.Owner != owner {
		return fmt.Errorf("%w: vault %s", ErrVaultOwnerMismatch, vault)
	}

	balance, err := t.Balance(from)
	if err != nil {
		return err
	}
	if balance < amount {
		return fmt.Errorf("%w: account %s has %d, need %d", ErrInsufficientFunds, from, balance, amount)
	}
	if err := t.putBalance(from, balance-amount); err != nil {
		return err
	}

	rec.Balance += amount
	return t.putVault(vault, rec)
}

func (t *boltTx) DrainVault(vault identity.RecordKey, auth VaultAuthority, to identity.Identity, amount uint64) error {
	rec, err := t.vault(vault)
	if err != nil {
		return err
	}
	if err := verifyVaultAuthority(rec.Owner, vault, auth); err != nil {
		return err
	}
	if rec.Balance < amount {
		return fmt.Errorf("%w: vault %s holds %d, need %d", ErrInsufficientFunds, vault, rec.Balance, amount)
	}

	rec.Balance -= amount
	if err := t.putVault(vault, rec); err != nil {
		return err
	}
	return t.Credit(to, amount)
}

func (t *boltTx) vault(vault identity.RecordKey) (*vaultRecord, error) {
	v := t.tx.Bucket(bucketVaults).Get(vault[:])
	if v == nil {
		return nil, fmt.Errorf("%w: vault %s", ErrRecordNotFound, vault)
	}
	return decodeVaultRecord(v)
}

func (t *boltTx) putVault(vault identity.RecordKey, rec *vaultRecord) error {
	return t.tx.Bucket(bucketVaults).Put(vault[:], encodeVaultRecord(rec))
}

func (t *boltTx) putBalance(id identity.Identity, balance uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, balance)
	return t.tx.Bucket(bucketBalances).Put(id[:], buf)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}
