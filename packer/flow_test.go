// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package packer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/ledger/consensus"
	"github.com/vechain/ledger/genesis"
	"github.com/vechain/ledger/packer"
	"github.com/vechain/ledger/test/testchain"
	"github.com/vechain/ledger/thor"
)

var (
	dev   = genesis.DevAccounts()
	carol = thor.BytesToAddress([]byte("carol"))
)

func newPacker(c *testchain.Chain) *packer.Packer {
	return packer.New(c.Repo(), c.Stater(), testchain.Beneficiary, c.Params())
}

func TestSchedule(t *testing.T) {
	c, err := testchain.NewDefault()
	require.Nil(t, err)
	best := c.Repo().BestBlockSummary()

	_, err = newPacker(c).Schedule(best, best.Header.Timestamp())
	assert.NotNil(t, err)

	flow, err := newPacker(c).Schedule(best, best.Header.Timestamp()+thor.BlockInterval)
	require.Nil(t, err)
	assert.Equal(t, uint32(1), flow.Number())
	assert.Equal(t, best.Header.Timestamp()+thor.BlockInterval, flow.When())
	assert.Equal(t, best.Header.ID(), flow.ParentHeader().ID())
}

func TestAdopt(t *testing.T) {
	c, err := testchain.NewDefault()
	require.Nil(t, err)
	best := c.Repo().BestBlockSummary()

	flow, err := newPacker(c).Schedule(best, best.Header.Timestamp()+thor.BlockInterval)
	require.Nil(t, err)

	trx := testchain.Transfer(dev[0], carol, 10, 1, 0)
	require.Nil(t, flow.Adopt(trx))
	assert.True(t, packer.IsKnownTx(flow.Adopt(trx)))

	assert.True(t, packer.IsTxNotAdoptableNow(flow.Adopt(testchain.Transfer(dev[1], carol, 10, 1, 2))))
	assert.True(t, packer.IsBadTx(flow.Adopt(testchain.Transfer(dev[1], carol, genesis.DevBalance, 1, 0))))
	assert.True(t, packer.IsBadTx(flow.Adopt(testchain.Transfer(dev[1], carol, 10, 0, 0).WithSignature(make([]byte, 65)))))

	require.Nil(t, flow.Adopt(testchain.Transfer(dev[1], carol, 20, 2, 0)))
	assert.Len(t, flow.Txs(), 2)

	blk, stage, receipts, err := flow.Pack(3, []byte("extra"))
	require.Nil(t, err)
	assert.Equal(t, uint32(1), blk.Header().Number())
	assert.Equal(t, uint64(3), blk.Header().Difficulty())
	assert.Equal(t, []byte("extra"), blk.Header().Extra())
	assert.Equal(t, stage.Hash(), blk.Header().StateRoot())
	assert.Len(t, receipts, 3)

	_, _, _, err = flow.Pack(3, nil)
	assert.NotNil(t, err, "packed twice")
	assert.NotNil(t, flow.Adopt(testchain.Transfer(dev[2], carol, 1, 0, 0)))

	// consensus agrees with the packed block
	cstage, creceipts, err := c.Consensus().Process(best, blk, blk.Header().Timestamp())
	require.Nil(t, err)
	assert.Equal(t, stage.Hash(), cstage.Hash())
	assert.Equal(t, receipts, creceipts)
}

func TestAdoptKnownOnChain(t *testing.T) {
	c, err := testchain.NewDefault()
	require.Nil(t, err)

	trx := testchain.Transfer(dev[0], carol, 10, 1, 0)
	_, err = c.MintBlock(trx)
	require.Nil(t, err)

	best := c.Repo().BestBlockSummary()
	flow, err := newPacker(c).Schedule(best, best.Header.Timestamp()+thor.BlockInterval)
	require.Nil(t, err)
	assert.True(t, packer.IsKnownTx(flow.Adopt(trx)))
}

func TestAdoptExpired(t *testing.T) {
	c, err := testchain.NewDefault()
	require.Nil(t, err)

	for j := uint32(0); j < thor.TxValidityWindow+1; j++ {
		_, err := c.MintBlock()
		require.Nil(t, err)
	}

	best := c.Repo().BestBlockSummary()
	flow, err := newPacker(c).Schedule(best, best.Header.Timestamp()+thor.BlockInterval)
	require.Nil(t, err)
	assert.True(t, packer.IsBadTx(flow.Adopt(testchain.Transfer(dev[0], carol, 1, 0, 0))))
}

func TestPackReward(t *testing.T) {
	params := consensus.DefaultParams()
	params.Issuance = consensus.FixedIssuance(500)
	c, err := testchain.NewWithParams(params)
	require.Nil(t, err)

	_, err = c.MintBlock(testchain.Transfer(dev[0], carol, 10, 4, 0))
	require.Nil(t, err)

	bal, err := c.Balance(testchain.Beneficiary)
	require.Nil(t, err)
	assert.Equal(t, uint64(504), bal)
}
