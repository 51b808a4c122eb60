// Copyright (c) 2019 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package muxdb implements the storage layer for the ledger.
// It multiplexes the accounts trie node table and named kv stores into one
// leveldb instance, so a single bulk can commit both atomically.
package muxdb

import (
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
	dberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/vechain/ledger/kv"
	"github.com/vechain/ledger/log"
	"github.com/vechain/ledger/thor"
	"github.com/vechain/ledger/trie"
)

const (
	trieNodeSpace   = byte(0) // the key space for trie nodes, keyed by content hash.
	namedStoreSpace = byte(1) // the key space for named stores.
)

var (
	logger         = log.WithContext("pkg", "muxdb")
	errBulkWritten = errors.New("bulk already written")
)

// Options optional parameters for MuxDB.
type Options struct {
	// TrieNodeCacheSizeMB is the size of the cache for trie node blobs.
	TrieNodeCacheSizeMB int
	// OpenFilesCacheCapacity is the capacity of open files caching for underlying database.
	OpenFilesCacheCapacity int
	// ReadCacheMB is the size of read cache for underlying database.
	ReadCacheMB int
	// WriteBufferMB is the size of write buffer for underlying database.
	WriteBufferMB int
	// SyncWrite fsyncs every bulk write.
	SyncWrite bool
}

// MuxDB is the database to store the accounts trie and block-chain data.
type MuxDB struct {
	engine    *engine
	nodeCache *nodeCache
}

// Open opens or creates DB at the given path.
func Open(path string, options *Options) (*MuxDB, error) {
	ldbOpts := opt.Options{
		OpenFilesCacheCapacity: options.OpenFilesCacheCapacity,
		BlockCacheCapacity:     options.ReadCacheMB * opt.MiB,
		WriteBuffer:            options.WriteBufferMB * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
		BlockSize:              1024 * 32,
		CompactionTableSize:    4 * opt.MiB,
	}

	ldb, err := leveldb.OpenFile(path, &ldbOpts)
	if _, corrupted := err.(*dberrors.ErrCorrupted); corrupted {
		logger.Warn("database corrupted, try to recover", "path", path)
		ldb, err = leveldb.RecoverFile(path, &ldbOpts)
	}
	if err != nil {
		return nil, err
	}

	return &MuxDB{
		engine:    newEngine(ldb, options.SyncWrite),
		nodeCache: newNodeCache(options.TrieNodeCacheSizeMB),
	}, nil
}

// NewMem creates a memory-backed DB.
func NewMem() *MuxDB {
	ldb, _ := leveldb.Open(storage.NewMemStorage(), nil)
	return &MuxDB{
		engine: newEngine(ldb, false),
	}
}

// Close closes the DB.
func (db *MuxDB) Close() error {
	return db.engine.Close()
}

// IsNotFound returns whether the error indicates key not found.
func (db *MuxDB) IsNotFound(err error) bool {
	return db.engine.IsNotFound(err)
}

// NewStore creates named kv-store.
func (db *MuxDB) NewStore(name string) kv.Store {
	return kv.Bucket(string(namedStoreSpace) + name).NewStore(db.engine)
}

// NewBulk creates a bulk over the whole database. Pass it to named stores via
// NewStorePutter and to trie commits via NewTrieNodePutter to commit them atomically.
func (db *MuxDB) NewBulk() kv.Bulk {
	return db.engine.Bulk()
}

// NewStorePutter returns a putter writing into the named store through dst.
func (db *MuxDB) NewStorePutter(name string, dst kv.Putter) kv.Putter {
	return kv.Bucket(string(namedStoreSpace) + name).NewPutter(dst)
}

// NewTrieNodePutter returns a putter writing trie nodes through dst.
func (db *MuxDB) NewTrieNodePutter(dst kv.Putter) kv.Putter {
	return db.nodeCache.newPutter(kv.Bucket([]byte{trieNodeSpace}).NewPutter(dst))
}

// TrieNodeReader returns the raw trie node reader, bypassing caches.
func (db *MuxDB) TrieNodeReader() kv.Getter {
	return kv.Bucket([]byte{trieNodeSpace}).NewGetter(db.engine)
}

// NewTrie creates trie with existing root node.
//
// If root is zero or trie.EmptyRoot, the trie is initially empty.
func (db *MuxDB) NewTrie(root thor.Bytes32) *trie.Trie {
	return trie.New(root, db.nodeCache.newGetter(db.TrieNodeReader()))
}
