// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package consensus_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/ledger/account"
	"github.com/vechain/ledger/block"
	"github.com/vechain/ledger/consensus"
	"github.com/vechain/ledger/genesis"
	"github.com/vechain/ledger/state"
	"github.com/vechain/ledger/test/testchain"
	"github.com/vechain/ledger/thor"
	"github.com/vechain/ledger/tx"
)

const reward = 1000

var (
	alice = genesis.DevAccounts()[0]
	bob   = genesis.DevAccounts()[1]
	carol = thor.BytesToAddress([]byte("carol"))
)

func newChain(t *testing.T) *testchain.Chain {
	params := consensus.DefaultParams()
	params.Issuance = consensus.FixedIssuance(reward)
	c, err := testchain.NewWithParams(params)
	require.Nil(t, err)
	return c
}

// rebuild returns a builder preset with every field of blk.
func rebuild(blk *block.Block) *block.Builder {
	h := blk.Header()
	b := new(block.Builder).
		ParentID(h.ParentID()).
		Timestamp(h.Timestamp()).
		Difficulty(h.Difficulty()).
		Beneficiary(h.Beneficiary()).
		StateRoot(h.StateRoot()).
		Extra(h.Extra())
	for _, trx := range blk.Transactions() {
		b.Transaction(trx)
	}
	return b
}

func balanceOf(t *testing.T, st *state.State, addr thor.Address) uint64 {
	acc, err := st.GetAccount(addr)
	require.Nil(t, err)
	if acc == nil {
		return 0
	}
	return acc.Balance
}

func TestProcess(t *testing.T) {
	c := newChain(t)
	best := c.Repo().BestBlockSummary()

	trx := testchain.Transfer(alice, carol, 100, 5, 0)
	blk, _, _, err := c.NewBlock(best, 1, trx)
	require.Nil(t, err)

	stage, receipts, err := c.Consensus().Process(best, blk, blk.Header().Timestamp())
	require.Nil(t, err)
	assert.Equal(t, blk.Header().StateRoot(), stage.Hash())
	require.Len(t, receipts, 2, "one per tx plus reward")
	assert.True(t, receipts[0].Touched(alice.Address))
	assert.True(t, receipts[0].Touched(carol))
	assert.True(t, receipts[1].Touched(testchain.Beneficiary))

	require.Nil(t, c.AddBlock(blk, stage, receipts, true))
	bal, err := c.Balance(carol)
	require.Nil(t, err)
	assert.Equal(t, uint64(100), bal)
	bal, err = c.Balance(testchain.Beneficiary)
	require.Nil(t, err)
	assert.Equal(t, uint64(reward+5), bal)
	bal, err = c.Balance(alice.Address)
	require.Nil(t, err)
	assert.Equal(t, genesis.DevBalance-105, bal)
}

func TestValidateHeader(t *testing.T) {
	c := newChain(t)
	best := c.Repo().BestBlockSummary()
	blk, _, _, err := c.NewBlock(best, 1)
	require.Nil(t, err)

	tests := []struct {
		name  string
		blk   *block.Block
		now   uint64
		check func(error) bool
	}{
		{
			"timestamp behind parent",
			rebuild(blk).Timestamp(best.Header.Timestamp()).Build(),
			blk.Header().Timestamp(),
			consensus.IsMalformed,
		},
		{
			"future block",
			blk,
			blk.Header().Timestamp() - thor.MaxFutureBlockTime - 1,
			consensus.IsFutureBlock,
		},
		{
			"extra too large",
			rebuild(blk).Extra(bytes.Repeat([]byte{1}, thor.MaxBlockExtraSize+1)).Build(),
			blk.Header().Timestamp(),
			consensus.IsMalformed,
		},
		{
			"zero weight",
			rebuild(blk).Difficulty(0).Build(),
			blk.Header().Timestamp(),
			consensus.IsMalformed,
		},
		{
			"total weight overflow",
			rebuild(blk).Difficulty(math.MaxUint64).Build(),
			blk.Header().Timestamp(),
			consensus.IsMalformed,
		},
		{
			"unknown parent",
			rebuild(blk).ParentID(thor.Bytes32{0, 0, 0, 7}).Build(),
			blk.Header().Timestamp(),
			consensus.IsUnknownParent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := c.Consensus().Process(best, tt.blk, tt.now)
			require.NotNil(t, err)
			assert.True(t, tt.check(err), err.Error())
		})
	}

	// the block itself is fine within tolerated drift
	_, _, err = c.Consensus().Process(best, blk, blk.Header().Timestamp()-thor.MaxFutureBlockTime)
	assert.Nil(t, err)
}

func TestCheckDifficulty(t *testing.T) {
	params := consensus.DefaultParams()
	params.CheckDifficulty = func(parent, header *block.Header) error {
		if header.Difficulty() > parent.Difficulty()*100 {
			return errors.New("difficulty jumped")
		}
		return nil
	}
	c, err := testchain.NewWithParams(params)
	require.Nil(t, err)
	best := c.Repo().BestBlockSummary()

	// genesis difficulty is 1
	blk, _, _, err := c.NewBlock(best, 2)
	require.Nil(t, err)
	_, _, err = c.Consensus().Process(best, blk, blk.Header().Timestamp())
	assert.Nil(t, err)

	_, _, err = c.Consensus().Process(best, rebuild(blk).Difficulty(101).Build(), blk.Header().Timestamp())
	assert.True(t, consensus.IsMalformed(err))
}

func TestValidateBody(t *testing.T) {
	c := newChain(t)
	best := c.Repo().BestBlockSummary()

	trx := testchain.Transfer(alice, carol, 1, 0, 0)
	blk, _, _, err := c.NewBlock(best, 1, trx)
	require.Nil(t, err)
	now := blk.Header().Timestamp()

	t.Run("txs root mismatch", func(t *testing.T) {
		_, _, err := c.Consensus().Process(best, rebuild(blk).TxsRoot(thor.Bytes32{1}).Build(), now)
		assert.True(t, consensus.IsMalformed(err))
	})

	t.Run("bad signature", func(t *testing.T) {
		bad := testchain.Transfer(alice, carol, 2, 0, 0).WithSignature(make([]byte, 65))
		_, _, err := c.Consensus().Process(best, rebuild(blk).Transaction(bad).Build(), now)
		assert.True(t, consensus.IsInvalidTransaction(err))
	})

	t.Run("duplicated tx", func(t *testing.T) {
		_, _, err := c.Consensus().Process(best, rebuild(blk).Transaction(trx).Build(), now)
		assert.True(t, consensus.IsInvalidTransaction(err))
	})

	t.Run("tx not yet valid", func(t *testing.T) {
		future := testchain.Transfer(alice, carol, 3, 0, 50)
		_, _, err := c.Consensus().Process(best, rebuild(blk).Transaction(future).Build(), now)
		assert.True(t, consensus.IsInvalidTransaction(err))
	})

	t.Run("replayed tx", func(t *testing.T) {
		_, err := c.MintBlock(testchain.Transfer(alice, carol, 4, 0, 0))
		require.Nil(t, err)
		parent := c.Repo().BestBlockSummary()
		replayed := parent.Txs[0]
		blk1, err := c.Repo().GetBlock(parent.Header.ID())
		require.Nil(t, err)
		require.Equal(t, replayed, blk1.Transactions()[0].ID())

		next, _, _, err := c.NewBlock(parent, 1)
		require.Nil(t, err)
		_, _, err = c.Consensus().Process(parent, rebuild(next).Transaction(blk1.Transactions()[0]).Build(), next.Header().Timestamp())
		assert.True(t, consensus.IsInvalidTransaction(err))
	})
}

func TestStateRootMismatch(t *testing.T) {
	c := newChain(t)
	best := c.Repo().BestBlockSummary()

	blk, _, _, err := c.NewBlock(best, 1, testchain.Transfer(alice, carol, 1, 0, 0))
	require.Nil(t, err)

	_, _, err = c.Consensus().Process(best, rebuild(blk).StateRoot(thor.Bytes32{1}).Build(), blk.Header().Timestamp())
	assert.True(t, consensus.IsStateRootMismatch(err))
	assert.True(t, consensus.IsCritical(err))
}

func TestInsufficientBalance(t *testing.T) {
	c := newChain(t)
	best := c.Repo().BestBlockSummary()
	blk, _, _, err := c.NewBlock(best, 1)
	require.Nil(t, err)

	poorKey, _ := crypto.GenerateKey()
	poor := genesis.DevAccount{Address: thor.Address(crypto.PubkeyToAddress(poorKey.PublicKey)), PrivateKey: poorKey}

	for _, trx := range []*tx.Transaction{
		testchain.Transfer(poor, carol, 1, 0, 0),
		testchain.Transfer(alice, carol, genesis.DevBalance, 1, 0),
	} {
		st := c.Stater().NewState(best.Header.StateRoot())
		_, _, err := c.Consensus().ApplyBlock(st, rebuild(blk).Transaction(trx).Build())
		require.NotNil(t, err)
		assert.True(t, consensus.IsInvalidTransaction(err))
		assert.True(t, errors.Is(err, account.ErrInsufficientFunds), err.Error())

		// the state is left untouched
		stage, err := st.Stage()
		require.Nil(t, err)
		assert.Equal(t, best.Header.StateRoot(), stage.Hash())
	}
}

func TestApplyRevertRoundTrip(t *testing.T) {
	c := newChain(t)
	best := c.Repo().BestBlockSummary()
	parentRoot := best.Header.StateRoot()

	txs := []*tx.Transaction{
		testchain.Transfer(alice, carol, 300, 7, 0),
		testchain.Transfer(bob, carol, 200, 3, 0),
		testchain.Transfer(alice, bob.Address, 50, 0, 0),
	}
	blk, _, _, err := c.NewBlock(best, 1, txs...)
	require.Nil(t, err)

	// sums every account in the committed trie at root
	supply := func(root thor.Bytes32) (total uint64) {
		err := c.DB().NewTrie(root).Each(func(_, value []byte) bool {
			var acc account.Account
			require.Nil(t, rlp.DecodeBytes(value, &acc))
			total += acc.Balance
			return true
		})
		require.Nil(t, err)
		return
	}
	before := supply(parentRoot)
	assert.True(t, before > 0)

	st := c.Stater().NewState(parentRoot)
	stage, receipts, err := c.Consensus().ApplyBlock(st, blk)
	require.Nil(t, err)
	assert.Equal(t, blk.Header().StateRoot(), stage.Hash())
	assert.Equal(t, uint64(reward+10), balanceOf(t, st, testchain.Beneficiary))

	bulk := c.DB().NewBulk()
	root, err := stage.Commit(bulk)
	require.Nil(t, err)
	require.Nil(t, bulk.Write())
	assert.Equal(t, before+reward, supply(root), "only the reward is minted")

	stage, err = c.Consensus().RevertBlock(st, blk, receipts, parentRoot)
	require.Nil(t, err)
	assert.Equal(t, parentRoot, stage.Hash())

	// applying again reaches the same root
	stage, _, err = c.Consensus().ApplyBlock(st, blk)
	require.Nil(t, err)
	assert.Equal(t, blk.Header().StateRoot(), stage.Hash())

	// stored receipts revert as well
	require.Nil(t, c.AddBlock(blk, stage, receipts, true))
	stored, err := c.Repo().GetBlockReceipts(blk.Header().ID())
	require.Nil(t, err)
	st = c.Stater().NewState(blk.Header().StateRoot())
	stage, err = c.Consensus().RevertBlock(st, blk, stored, parentRoot)
	require.Nil(t, err)
	assert.Equal(t, parentRoot, stage.Hash())
}

func TestRevertBlockErrors(t *testing.T) {
	c := newChain(t)
	best := c.Repo().BestBlockSummary()
	blk, stage, receipts, err := c.NewBlock(best, 1, testchain.Transfer(alice, carol, 1, 0, 0))
	require.Nil(t, err)
	require.Nil(t, c.AddBlock(blk, stage, receipts, true))

	st := c.Stater().NewState(blk.Header().StateRoot())
	_, err = c.Consensus().RevertBlock(st, blk, receipts[:1], best.Header.StateRoot())
	assert.True(t, consensus.IsMalformed(err))

	_, err = c.Consensus().RevertBlock(st, blk, receipts, thor.Bytes32{1})
	assert.True(t, consensus.IsStateRootMismatch(err))

	// failed reverts leave the state untouched
	stage, err = st.Stage()
	require.Nil(t, err)
	assert.Equal(t, blk.Header().StateRoot(), stage.Hash())
}

func TestContracts(t *testing.T) {
	c := newChain(t)

	vesting := account.VestingContract{Owner: bob.Address, Start: 0, StepBlocks: 10, StepAmount: 100}
	data, err := rlp.EncodeToBytes(&vesting)
	require.Nil(t, err)

	create := tx.MustSign(new(tx.Builder).
		Sender(alice.Address).
		ValidityStart(0).
		Value(1000).
		Fee(1).
		Create(account.Vesting, data).
		Build(), alice.PrivateKey)

	_, err = c.MintBlock(create)
	require.Nil(t, err)

	acc, err := c.State().GetAccount(create.Recipient())
	require.Nil(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, account.Vesting, acc.Type)
	assert.Equal(t, uint64(1000), acc.Vesting.TotalAmount)

	// transfers into contracts are refused
	best := c.Repo().BestBlockSummary()
	_, _, _, err = c.NewBlock(best, 1, testchain.Transfer(alice, create.Recipient(), 1, 0, 0))
	assert.NotNil(t, err)
}
