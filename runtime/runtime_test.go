// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime_test

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/ledger/account"
	"github.com/vechain/ledger/muxdb"
	"github.com/vechain/ledger/runtime"
	"github.com/vechain/ledger/state"
	"github.com/vechain/ledger/thor"
	"github.com/vechain/ledger/tx"
)

type keyedAddr struct {
	key  *ecdsa.PrivateKey
	addr thor.Address
}

func newKeyed(t *testing.T) keyedAddr {
	key, err := crypto.GenerateKey()
	require.Nil(t, err)
	return keyedAddr{key, thor.Address(crypto.PubkeyToAddress(key.PublicKey))}
}

func stageHash(t *testing.T, st *state.State) thor.Bytes32 {
	stage, err := st.Stage()
	require.Nil(t, err)
	return stage.Hash()
}

func balance(t *testing.T, st *state.State, addr thor.Address) uint64 {
	acc, err := st.GetAccount(addr)
	require.Nil(t, err)
	if acc == nil {
		return 0
	}
	return acc.Balance
}

var (
	miner = thor.BytesToAddress([]byte("miner"))
	bob   = thor.BytesToAddress([]byte("bob"))
)

func TestTransferAndRevert(t *testing.T) {
	alice := newKeyed(t)
	st := state.New(muxdb.NewMem(), thor.Bytes32{})
	st.SetAccount(alice.addr, account.NewBasic(100))
	before := stageHash(t, st)

	rt := runtime.New(st, &runtime.Context{Number: 1, Beneficiary: miner})
	trx := tx.MustSign(new(tx.Builder).Sender(alice.addr).Recipient(bob).Value(30).Fee(5).Build(), alice.key)

	receipt, err := rt.ExecuteTransaction(trx)
	require.Nil(t, err)
	assert.Len(t, receipt.Changes, 3)
	assert.Equal(t, uint64(65), balance(t, st, alice.addr))
	assert.Equal(t, uint64(30), balance(t, st, bob))
	assert.Equal(t, uint64(5), balance(t, st, miner))

	require.Nil(t, runtime.RevertReceipt(st, receipt))
	assert.Equal(t, before, stageHash(t, st))
	assert.Equal(t, uint64(0), balance(t, st, bob))
}

func TestInsufficientBalance(t *testing.T) {
	alice := newKeyed(t)
	st := state.New(muxdb.NewMem(), thor.Bytes32{})
	st.SetAccount(alice.addr, account.NewBasic(10))
	before := stageHash(t, st)

	rt := runtime.New(st, &runtime.Context{Number: 1, Beneficiary: miner})
	trx := tx.MustSign(new(tx.Builder).Sender(alice.addr).Recipient(bob).Value(10).Fee(1).Build(), alice.key)

	_, err := rt.ExecuteTransaction(trx)
	assert.True(t, errors.Is(err, account.ErrInsufficientFunds))
	assert.Equal(t, before, stageHash(t, st))

	// absent sender
	nobody := newKeyed(t)
	trx = tx.MustSign(new(tx.Builder).Sender(nobody.addr).Recipient(bob).Value(1).Build(), nobody.key)
	_, err = rt.ExecuteTransaction(trx)
	assert.True(t, errors.Is(err, account.ErrInsufficientFunds))
}

func TestRejections(t *testing.T) {
	alice := newKeyed(t)
	mallory := newKeyed(t)
	st := state.New(muxdb.NewMem(), thor.Bytes32{})
	st.SetAccount(alice.addr, account.NewBasic(100))
	rt := runtime.New(st, &runtime.Context{Number: 200, Beneficiary: miner})

	unsigned := new(tx.Builder).Sender(alice.addr).Recipient(bob).Value(1).ValidityStart(200).Build()
	_, err := rt.ExecuteTransaction(unsigned)
	assert.True(t, errors.Is(err, runtime.ErrBadSignature))

	forged := tx.MustSign(unsigned, mallory.key)
	_, err = rt.ExecuteTransaction(forged)
	assert.True(t, errors.Is(err, account.ErrUnauthorized))

	stale := tx.MustSign(new(tx.Builder).Sender(alice.addr).Recipient(bob).Value(1).ValidityStart(200-thor.TxValidityWindow).Build(), alice.key)
	_, err = rt.ExecuteTransaction(stale)
	assert.True(t, errors.Is(err, runtime.ErrValidityWindow))

	future := tx.MustSign(new(tx.Builder).Sender(alice.addr).Recipient(bob).Value(1).ValidityStart(201).Build(), alice.key)
	_, err = rt.ExecuteTransaction(future)
	assert.True(t, errors.Is(err, runtime.ErrValidityWindow))

	assert.Equal(t, uint64(100), balance(t, st, alice.addr))
}

func TestVestingContract(t *testing.T) {
	alice := newKeyed(t)
	st := state.New(muxdb.NewMem(), thor.Bytes32{})
	st.SetAccount(alice.addr, account.NewBasic(1000))
	rt := runtime.New(st, &runtime.Context{Number: 10, Beneficiary: miner})

	data, _ := rlp.EncodeToBytes(&account.VestingContract{Owner: alice.addr, Start: 10, StepBlocks: 10, StepAmount: 100})
	create := tx.MustSign(new(tx.Builder).Sender(alice.addr).ValidityStart(10).Value(400).Fee(1).Create(account.Vesting, data).Build(), alice.key)
	contract := create.Recipient()

	_, err := rt.ExecuteTransaction(create)
	require.Nil(t, err)
	acc, _ := st.GetAccount(contract)
	require.NotNil(t, acc)
	assert.Equal(t, account.Vesting, acc.Type)
	assert.Equal(t, uint64(400), acc.Vesting.TotalAmount)

	// creating twice fails
	_, err = rt.ExecuteTransaction(create)
	assert.True(t, errors.Is(err, runtime.ErrCreation))

	// plain transfers into contracts are refused
	deposit := tx.MustSign(new(tx.Builder).Sender(alice.addr).Recipient(contract).Value(1).ValidityStart(10).Build(), alice.key)
	_, err = rt.ExecuteTransaction(deposit)
	assert.Equal(t, account.ErrContractTransfer, errors.Cause(err))

	// two steps vested at height 30
	rt = runtime.New(st, &runtime.Context{Number: 30, Beneficiary: miner})
	withdraw := tx.MustSign(new(tx.Builder).Sender(contract).Recipient(bob).Value(200).ValidityStart(30).Build(), alice.key)
	_, err = rt.ExecuteTransaction(withdraw)
	require.Nil(t, err)

	tooMuch := tx.MustSign(new(tx.Builder).Sender(contract).Recipient(bob).Value(1).ValidityStart(30).Build(), alice.key)
	_, err = rt.ExecuteTransaction(tooMuch)
	assert.True(t, errors.Is(err, account.ErrBelowMinCap))

	// wrong recipient for creation
	bad := tx.MustSign(new(tx.Builder).Sender(alice.addr).ValidityStart(30).Value(1).Create(account.Vesting, data).Recipient(bob).Build(), alice.key)
	_, err = rt.ExecuteTransaction(bad)
	assert.True(t, errors.Is(err, runtime.ErrCreation))
}

func TestHTLCContract(t *testing.T) {
	alice := newKeyed(t)
	carol := newKeyed(t)
	st := state.New(muxdb.NewMem(), thor.Bytes32{})
	st.SetAccount(alice.addr, account.NewBasic(1000))
	rt := runtime.New(st, &runtime.Context{Number: 1, Beneficiary: miner})

	preimage := thor.Blake2b([]byte("secret"))
	data, _ := rlp.EncodeToBytes(&account.HTLCContract{
		Sender:        alice.addr,
		Recipient:     carol.addr,
		HashAlgorithm: account.Sha256,
		HashRoot:      account.Sha256.Chain(preimage, 1),
		HashCount:     1,
		Timeout:       50,
	})
	create := tx.MustSign(new(tx.Builder).Sender(alice.addr).ValidityStart(1).Value(500).Create(account.HTLC, data).Build(), alice.key)
	_, err := rt.ExecuteTransaction(create)
	require.Nil(t, err)
	contract := create.Recipient()

	proof := (&account.HTLCProof{Kind: account.RegularTransfer, Depth: 1, PreImage: preimage}).Encode()
	redeem := tx.MustSign(new(tx.Builder).Sender(contract).Recipient(carol.addr).Value(500).ValidityStart(1).Proof(proof).Build(), carol.key)
	receipt, err := rt.ExecuteTransaction(redeem)
	require.Nil(t, err)

	assert.Equal(t, uint64(500), balance(t, st, carol.addr))
	exists, _ := st.Exists(contract)
	assert.False(t, exists, "drained contract is pruned")

	require.Nil(t, runtime.RevertReceipt(st, receipt))
	acc, _ := st.GetAccount(contract)
	require.NotNil(t, acc)
	assert.Equal(t, account.HTLC, acc.Type)
	assert.Equal(t, uint64(500), acc.Balance)
}

func TestApplyReward(t *testing.T) {
	st := state.New(muxdb.NewMem(), thor.Bytes32{})
	before := stageHash(t, st)

	rt := runtime.New(st, &runtime.Context{Number: 1, Beneficiary: miner})
	receipt, err := rt.ApplyReward(50)
	require.Nil(t, err)
	assert.Equal(t, uint64(50), balance(t, st, miner))

	require.Nil(t, runtime.RevertReceipt(st, receipt))
	assert.Equal(t, before, stageHash(t, st))
}
