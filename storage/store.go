// storage/store.go

// Package storage persists the vault's state in a BadgerDB key-value store.
// Each account is stored as one CBOR record under its address key, and the
// vault-wide counters live in a single metadata record; a full snapshot
// write replaces all of them in one atomic batch.

package storage

import "errors"

// ErrKeyNotFound marks a read of a key that is not stored
var ErrKeyNotFound = errors.New("key not found")

// Storage is the key-value interface the persistence layer builds on
type Storage interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	Batch(operations []BatchOperation) error
	Iterator(prefix []byte) Iterator
	Close() error
	RunGC(discardRatio float64) error
	Size() (int64, error)
}

// Iterator walks keys sharing a prefix
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Close()
}

type BatchOperationType int

const (
	BatchSet BatchOperationType = iota
	BatchDelete
)

// BatchOperation is one entry of an atomic batch
type BatchOperation struct {
	Type  BatchOperationType
	Key   []byte
	Value []byte
}

// Key prefixes for different record types
const (
	AccountPrefix = "acc:"
	MetaPrefix    = "meta:"
)

// AccountKey builds the storage key of one account record
func AccountKey(address string) []byte {
	return []byte(AccountPrefix + address)
}

// MetaKey is the storage key of the vault-wide metadata record
func MetaKey() []byte {
	return []byte(MetaPrefix + "vault")
}
