// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package block_test

import (
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/ledger/block"
	"github.com/vechain/ledger/thor"
	"github.com/vechain/ledger/trie"
	"github.com/vechain/ledger/tx"
)

func TestBlock(t *testing.T) {
	key, _ := crypto.GenerateKey()
	tx1 := tx.MustSign(new(tx.Builder).Value(1).Build(), key)
	tx2 := tx.MustSign(new(tx.Builder).Value(2).Build(), key)

	parentID := thor.Bytes32{0, 0, 0, 7}
	blk := new(block.Builder).
		ParentID(parentID).
		Timestamp(1000).
		Difficulty(3).
		Beneficiary(thor.BytesToAddress([]byte("miner"))).
		StateRoot(thor.Bytes32{1}).
		Extra([]byte("x")).
		Transaction(tx1).
		Transaction(tx2).
		Build()

	h := blk.Header()
	assert.Equal(t, uint32(8), h.Number())
	assert.Equal(t, uint32(8), block.Number(h.ID()))
	assert.Equal(t, tx.Transactions{tx1, tx2}.RootHash(), h.TxsRoot())
	assert.Equal(t, uint64(3), h.Difficulty())
	assert.Equal(t, []byte("x"), h.Extra())

	data, err := rlp.EncodeToBytes(blk)
	require.Nil(t, err)
	assert.Equal(t, uint64(len(data)), blk.Size())

	var decoded block.Block
	require.Nil(t, rlp.DecodeBytes(data, &decoded))
	assert.Equal(t, h.ID(), decoded.Header().ID())
	assert.Equal(t, uint64(len(data)), decoded.Size())
	require.Len(t, decoded.Transactions(), 2)
	assert.Equal(t, tx2.ID(), decoded.Transactions()[1].ID())
	assert.Equal(t, h.TxsRoot(), decoded.Transactions().RootHash())
}

func TestGenesisNumber(t *testing.T) {
	var parent thor.Bytes32
	parent[0], parent[1], parent[2], parent[3] = 0xff, 0xff, 0xff, 0xff
	assert.Equal(t, uint32(math.MaxUint32), block.Number(parent))

	blk := new(block.Builder).ParentID(parent).Build()
	assert.Equal(t, uint32(0), blk.Header().Number())
	assert.Equal(t, trie.EmptyRoot, blk.Header().TxsRoot())
}

func TestIDCommitsToFields(t *testing.T) {
	a := new(block.Builder).Difficulty(1).Build().Header().ID()
	b := new(block.Builder).Difficulty(2).Build().Header().ID()
	c := new(block.Builder).Difficulty(1).StateRoot(thor.Bytes32{9}).Build().Header().ID()
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, new(block.Builder).Difficulty(1).Build().Header().ID())
}
