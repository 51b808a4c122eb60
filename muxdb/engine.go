// Copyright (c) 2022 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package muxdb

import (
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/vechain/ledger/kv"
)

var (
	writeOpt = opt.WriteOptions{}
	syncOpt  = opt.WriteOptions{Sync: true}
	readOpt  = opt.ReadOptions{}
	scanOpt  = opt.ReadOptions{DontFillCache: true}
)

// engine is the leveldb backed kv.Store every bucket of MuxDB lives in.
type engine struct {
	db        *leveldb.DB
	syncWrite bool
	batchPool sync.Pool
}

var _ kv.Store = (*engine)(nil)

func newEngine(db *leveldb.DB, syncWrite bool) *engine {
	return &engine{
		db:        db,
		syncWrite: syncWrite,
		batchPool: sync.Pool{
			New: func() any { return new(leveldb.Batch) },
		},
	}
}

func (e *engine) Close() error {
	return e.db.Close()
}

func (e *engine) IsNotFound(err error) bool {
	return err == leveldb.ErrNotFound
}

func (e *engine) Get(key []byte) ([]byte, error) {
	val, err := e.db.Get(key, &readOpt)
	// val will be []byte{} if error occurs, which is not expected
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (e *engine) Has(key []byte) (bool, error) {
	return e.db.Has(key, &readOpt)
}

func (e *engine) Put(key, val []byte) error {
	return e.db.Put(key, val, &writeOpt)
}

func (e *engine) Delete(key []byte) error {
	return e.db.Delete(key, &writeOpt)
}

func (e *engine) Snapshot() kv.Snapshot {
	s, err := e.db.GetSnapshot()
	return &struct {
		kv.GetFunc
		kv.HasFunc
		kv.IsNotFoundFunc
		kv.ReleaseFunc
	}{
		func(key []byte) ([]byte, error) {
			if err != nil {
				return nil, err
			}
			val, err := s.Get(key, &readOpt)
			if err != nil {
				return nil, err
			}
			return val, nil
		},
		func(key []byte) (bool, error) {
			if err != nil {
				return false, err
			}
			return s.Has(key, &readOpt)
		},
		e.IsNotFound,
		func() {
			if s != nil {
				s.Release()
			}
		},
	}
}

// Bulk returns an atomic batch. Nothing is visible to readers until Write
// returns nil, and a failed Write leaves the store untouched.
func (e *engine) Bulk() kv.Bulk {
	batch := e.batchPool.Get().(*leveldb.Batch)
	batch.Reset()
	written := false

	return &struct {
		kv.PutFunc
		kv.DeleteFunc
		kv.LenFunc
		kv.WriteFunc
	}{
		func(key, val []byte) error {
			batch.Put(key, val)
			return nil
		},
		func(key []byte) error {
			batch.Delete(key)
			return nil
		},
		batch.Len,
		func() error {
			if written {
				return errBulkWritten
			}
			written = true
			defer e.batchPool.Put(batch)

			if batch.Len() == 0 {
				return nil
			}
			wo := &writeOpt
			if e.syncWrite {
				wo = &syncOpt
			}
			return e.db.Write(batch, wo)
		},
	}
}

func (e *engine) Iterate(r kv.Range) kv.Iterator {
	return e.db.NewIterator((*util.Range)(&r), &scanOpt)
}
