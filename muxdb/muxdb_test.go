// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package muxdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/ledger/kv"
	"github.com/vechain/ledger/thor"
	"github.com/vechain/ledger/trie"
)

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.db")
	db, err := Open(path, &Options{
		TrieNodeCacheSizeMB:    16,
		OpenFilesCacheCapacity: 64,
		ReadCacheMB:            16,
		WriteBufferMB:          8,
	})
	require.Nil(t, err)

	store := db.NewStore("props")
	assert.Nil(t, store.Put([]byte("k"), []byte("v")))
	assert.Nil(t, db.Close())

	db, err = Open(path, &Options{})
	require.Nil(t, err)
	defer db.Close()

	v, err := db.NewStore("props").Get([]byte("k"))
	assert.Nil(t, err)
	assert.Equal(t, []byte("v"), v)
}

func TestNamedStoresAreIsolated(t *testing.T) {
	db := NewMem()
	defer db.Close()

	a := db.NewStore("a")
	b := db.NewStore("b")

	assert.Nil(t, a.Put([]byte("k"), []byte("1")))
	_, err := b.Get([]byte("k"))
	assert.True(t, b.IsNotFound(err))

	it := a.Iterate(kv.Range{})
	defer it.Release()
	assert.True(t, it.Next())
	assert.Equal(t, []byte("k"), it.Key())
	assert.False(t, it.Next())
}

func TestBulkIsAtomic(t *testing.T) {
	db := NewMem()
	defer db.Close()

	bulk := db.NewBulk()
	assert.Nil(t, db.NewStorePutter("blocks", bulk).Put([]byte("id"), []byte("block")))

	tr := db.NewTrie(thor.Bytes32{})
	assert.Nil(t, tr.Update([]byte{1, 2, 3, 4}, []byte("value")))
	root, err := tr.Commit(db.NewTrieNodePutter(bulk))
	assert.Nil(t, err)

	// nothing visible before write
	_, err = db.NewStore("blocks").Get([]byte("id"))
	assert.True(t, db.IsNotFound(err))
	_, err = db.NewTrie(root).Get([]byte{1, 2, 3, 4})
	assert.NotNil(t, err)

	assert.Equal(t, 2, bulk.Len())
	assert.Nil(t, bulk.Write())
	assert.NotNil(t, bulk.Write())

	v, err := db.NewStore("blocks").Get([]byte("id"))
	assert.Nil(t, err)
	assert.Equal(t, []byte("block"), v)

	v, err = db.NewTrie(root).Get([]byte{1, 2, 3, 4})
	assert.Nil(t, err)
	assert.Equal(t, []byte("value"), v)

	assert.Nil(t, trie.Verify(root, db.TrieNodeReader()))
}
