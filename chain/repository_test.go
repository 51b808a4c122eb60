// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/ledger/block"
	"github.com/vechain/ledger/muxdb"
	"github.com/vechain/ledger/thor"
	"github.com/vechain/ledger/tx"
)

func newGenesis(extra string) *block.Block {
	return new(block.Builder).
		ParentID(thor.Bytes32{0xff, 0xff, 0xff, 0xff}).
		Timestamp(1526400000).
		Difficulty(1).
		Extra([]byte(extra)).
		Build()
}

func newBlock(parent *block.Block, difficulty uint64, txs ...*tx.Transaction) *block.Block {
	builder := new(block.Builder).
		ParentID(parent.Header().ID()).
		Timestamp(parent.Header().Timestamp() + thor.BlockInterval).
		Difficulty(difficulty)
	for _, trx := range txs {
		builder.Transaction(trx)
	}
	return builder.Build()
}

func newTestRepo(t *testing.T, opts ...Option) (*muxdb.MuxDB, *Repository) {
	db := muxdb.NewMem()
	repo, err := NewRepository(db, newGenesis("test"), opts...)
	require.Nil(t, err)
	return db, repo
}

// addBlocks saves blocks and makes the last one the best.
func addBlocks(t *testing.T, repo *Repository, blocks ...*block.Block) {
	batch := repo.NewBatch()
	for _, blk := range blocks {
		_, err := batch.AddBlock(blk, tx.Receipts{})
		require.Nil(t, err)
	}
	require.Nil(t, batch.SetBestBlockID(blocks[len(blocks)-1].Header().ID()))
	require.Nil(t, batch.Write())
}

func TestNewRepository(t *testing.T) {
	db, repo := newTestRepo(t)
	genesis := repo.GenesisBlock()

	best := repo.BestBlockSummary()
	assert.Equal(t, genesis.Header().ID(), best.Header.ID())
	assert.Equal(t, uint64(1), best.TotalWeight)

	b1 := newBlock(genesis, 2)
	addBlocks(t, repo, b1)

	// reopen
	repo2, err := NewRepository(db, genesis)
	require.Nil(t, err)
	assert.Equal(t, b1.Header().ID(), repo2.BestBlockSummary().Header.ID())
	assert.Equal(t, uint64(3), repo2.BestBlockSummary().TotalWeight)

	_, err = NewRepository(db, newGenesis("other"))
	assert.EqualError(t, err, "genesis mismatch")

	withTx := new(block.Builder).
		ParentID(thor.Bytes32{0xff, 0xff, 0xff, 0xff}).
		Transaction(new(tx.Builder).Build()).
		Build()
	_, err = NewRepository(muxdb.NewMem(), withTx)
	assert.NotNil(t, err)
}

func TestGetBlock(t *testing.T) {
	_, repo := newTestRepo(t)
	key, _ := crypto.GenerateKey()

	trx := tx.MustSign(new(tx.Builder).Value(1).Fee(1).Build(), key)
	b1 := newBlock(repo.GenesisBlock(), 1, trx)
	receipts := tx.Receipts{
		{Changes: []*tx.Change{{Address: thor.BytesToAddress([]byte("a")), Prior: []byte{1}}}},
		{},
	}

	batch := repo.NewBatch()
	summary, err := batch.AddBlock(b1, receipts)
	require.Nil(t, err)
	require.Nil(t, batch.Write())
	assert.Equal(t, []thor.Bytes32{trx.ID()}, summary.Txs)

	// not best
	assert.Equal(t, repo.GenesisBlock().Header().ID(), repo.BestBlockSummary().Header.ID())

	repo.caches.summaries.Purge()
	repo.caches.txs.Purge()
	repo.caches.receipts.Purge()

	blk, err := repo.GetBlock(b1.Header().ID())
	require.Nil(t, err)
	assert.Equal(t, b1.Header().ID(), blk.Header().ID())
	require.Len(t, blk.Transactions(), 1)
	assert.Equal(t, trx.ID(), blk.Transactions()[0].ID())

	gotReceipts, err := repo.GetBlockReceipts(b1.Header().ID())
	require.Nil(t, err)
	require.Len(t, gotReceipts, 2)
	assert.Equal(t, []byte{1}, gotReceipts[0].Changes[0].Prior)
	assert.Len(t, gotReceipts[1].Changes, 0)

	weight, err := repo.TotalWeight(b1.Header().ID())
	require.Nil(t, err)
	assert.Equal(t, uint64(2), weight)

	has, err := repo.HasBlock(b1.Header().ID())
	assert.Nil(t, err)
	assert.True(t, has)

	_, err = repo.GetBlockSummary(thor.Bytes32{1})
	assert.True(t, repo.IsNotFound(err))

	// unknown parent
	orphan := new(block.Builder).ParentID(thor.Bytes32{0, 0, 0, 5}).Build()
	_, err = repo.NewBatch().AddBlock(orphan, nil)
	assert.True(t, repo.IsNotFound(err))
}

func TestGetBlocksByNumber(t *testing.T) {
	_, repo := newTestRepo(t)
	g := repo.GenesisBlock()

	a1 := newBlock(g, 1)
	b1 := newBlock(g, 2)
	c1 := newBlock(g, 3)
	addBlocks(t, repo, a1, b1, c1)

	ids, err := repo.GetBlockIDsByNumber(1)
	require.Nil(t, err)
	assert.ElementsMatch(t, []thor.Bytes32{a1.Header().ID(), b1.Header().ID(), c1.Header().ID()}, ids)

	blocks, err := repo.GetBlocksByNumber(1)
	require.Nil(t, err)
	assert.Len(t, blocks, 3)

	ids, err = repo.GetBlockIDsByNumber(2)
	require.Nil(t, err)
	assert.Len(t, ids, 0)
}

func TestScanHeads(t *testing.T) {
	_, repo := newTestRepo(t)
	g := repo.GenesisBlock()

	heads, err := repo.ScanHeads(0)
	require.Nil(t, err)
	assert.Equal(t, []thor.Bytes32{g.Header().ID()}, heads)

	a1 := newBlock(g, 1)
	a2 := newBlock(a1, 1)
	b2 := newBlock(a1, 2)
	b3 := newBlock(b2, 1)
	addBlocks(t, repo, a1, a2, b2, b3)

	heads, err = repo.ScanHeads(0)
	require.Nil(t, err)
	assert.Equal(t, []thor.Bytes32{b3.Header().ID(), a2.Header().ID()}, heads)

	heads, err = repo.ScanHeads(3)
	require.Nil(t, err)
	assert.Equal(t, []thor.Bytes32{b3.Header().ID()}, heads)
}

func TestMarkInvalid(t *testing.T) {
	_, repo := newTestRepo(t)
	id := thor.Bytes32{0, 0, 0, 1, 2}

	invalid, err := repo.IsInvalid(id)
	require.Nil(t, err)
	assert.False(t, invalid)

	mark, err := repo.GetInvalidMark(id)
	require.Nil(t, err)
	assert.Nil(t, mark)

	batch := repo.NewBatch()
	require.Nil(t, batch.MarkInvalid(id, &InvalidMark{Kind: 7, Reason: "apply failed"}))
	require.Nil(t, batch.Write())

	invalid, err = repo.IsInvalid(id)
	require.Nil(t, err)
	assert.True(t, invalid)

	mark, err = repo.GetInvalidMark(id)
	require.Nil(t, err)
	assert.Equal(t, &InvalidMark{Kind: 7, Reason: "apply failed"}, mark)
}

func TestCustomWeight(t *testing.T) {
	_, repo := newTestRepo(t, WithWeight(func(*block.Header) uint64 { return 10 }))
	assert.Equal(t, uint64(10), repo.BestBlockSummary().TotalWeight)

	b1 := newBlock(repo.GenesisBlock(), 1)
	b2 := newBlock(b1, 1)
	addBlocks(t, repo, b1, b2)
	assert.Equal(t, uint64(30), repo.BestBlockSummary().TotalWeight)
	assert.Equal(t, uint64(10), repo.Weight(b2.Header()))
}

func TestTicker(t *testing.T) {
	_, repo := newTestRepo(t)
	ticker := repo.NewTicker()

	select {
	case <-ticker.C():
		t.Fatal("unexpected tick")
	default:
	}

	addBlocks(t, repo, newBlock(repo.GenesisBlock(), 1))
	select {
	case <-ticker.C():
	default:
		t.Fatal("expected tick")
	}
}
