// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"sync"

	"github.com/syndtr/goleveldb/leveldb/util"
)

// Bucket provides a logical table inside a kv store by prefixing keys.
type Bucket string

func (b Bucket) withKey(key []byte, fn func(k []byte)) {
	buf := bufPool.Get().(*[]byte)
	*buf = append(append((*buf)[:0], b...), key...)
	fn(*buf)
	bufPool.Put(buf)
}

// NewGetter creates a bucket getter from the source getter.
func (b Bucket) NewGetter(src Getter) Getter {
	return &struct {
		GetFunc
		HasFunc
		IsNotFoundFunc
	}{
		func(key []byte) (val []byte, err error) {
			b.withKey(key, func(k []byte) { val, err = src.Get(k) })
			return
		},
		func(key []byte) (has bool, err error) {
			b.withKey(key, func(k []byte) { has, err = src.Has(k) })
			return
		},
		src.IsNotFound,
	}
}

// NewPutter creates a bucket putter from the source putter.
// The source is usually a Bulk shared by several buckets, so that writes
// into different logical tables commit together.
func (b Bucket) NewPutter(src Putter) Putter {
	return &struct {
		PutFunc
		DeleteFunc
	}{
		func(key, val []byte) (err error) {
			b.withKey(key, func(k []byte) { err = src.Put(k, val) })
			return
		},
		func(key []byte) (err error) {
			b.withKey(key, func(k []byte) { err = src.Delete(k) })
			return
		},
	}
}

// NewStore creates a bucket store from the source store.
func (b Bucket) NewStore(src Store) Store {
	return &struct {
		Getter
		Putter
		SnapshotFunc
		BulkFunc
		IterateFunc
	}{
		b.NewGetter(src),
		b.NewPutter(src),
		func() Snapshot {
			snapshot := src.Snapshot()
			return &struct {
				Getter
				ReleaseFunc
			}{
				b.NewGetter(snapshot),
				snapshot.Release,
			}
		},
		func() Bulk {
			bulk := src.Bulk()
			return &struct {
				Putter
				LenFunc
				WriteFunc
			}{
				b.NewPutter(bulk),
				bulk.Len,
				bulk.Write,
			}
		},
		func(r Range) Iterator {
			prefixed := Range{
				Start: append([]byte(b), r.Start...),
			}
			if len(r.Limit) == 0 {
				prefixed.Limit = util.BytesPrefix([]byte(b)).Limit
			} else {
				prefixed.Limit = append([]byte(b), r.Limit...)
			}
			return &bucketIterator{src.Iterate(prefixed), len(b)}
		},
	}
}

type bucketIterator struct {
	Iterator
	prefixLen int
}

// Key strips the bucket prefix.
func (it *bucketIterator) Key() []byte {
	return it.Iterator.Key()[it.prefixLen:]
}

var bufPool = sync.Pool{
	New: func() any {
		return new([]byte)
	},
}
