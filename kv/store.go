// Copyright (c) 2019 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package kv defines the key-value contracts the ledger persists through.
package kv

// Getter defines methods to read kv.
type Getter interface {
	// Get returns the value of the given key.
	// An error returned if key not found. It can be checked via IsNotFound.
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	IsNotFound(err error) bool
}

// Putter defines methods to write kv.
type Putter interface {
	Put(key, val []byte) error
	Delete(key []byte) error
}

// GetPutter reads and writes kv.
type GetPutter interface {
	Getter
	Putter
}

// Snapshot is a consistent read-only view of the store.
type Snapshot interface {
	Getter
	Release()
}

// Bulk collects writes and applies them atomically on Write.
type Bulk interface {
	Putter
	// Len returns the count of pending ops.
	Len() int
	Write() error
}

// Iterator iterates over kv pairs in key order.
type Iterator interface {
	First() bool
	Last() bool
	Next() bool
	Prev() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// Range is the key range.
type Range struct {
	Start []byte // start of key range (included)
	Limit []byte // limit of key range (excluded)
}

// Store defines the full functional kv store.
type Store interface {
	Getter
	Putter
	Snapshot() Snapshot
	Bulk() Bulk
	Iterate(r Range) Iterator
}
