// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/ledger/account"
	"github.com/vechain/ledger/muxdb"
	"github.com/vechain/ledger/thor"
	"github.com/vechain/ledger/trie"
)

var (
	addr1 = thor.BytesToAddress([]byte("addr1"))
	addr2 = thor.BytesToAddress([]byte("addr2"))
)

func commit(t *testing.T, db *muxdb.MuxDB, st *State) thor.Bytes32 {
	stage, err := st.Stage()
	require.Nil(t, err)
	bulk := db.NewBulk()
	root, err := stage.Commit(bulk)
	require.Nil(t, err)
	require.Nil(t, bulk.Write())
	return root
}

func TestStateReadWrite(t *testing.T) {
	db := muxdb.NewMem()
	st := New(db, thor.Bytes32{})

	acc, err := st.GetAccount(addr1)
	assert.Nil(t, err)
	assert.Nil(t, acc)

	st.SetAccount(addr1, account.NewBasic(10))
	acc, err = st.GetAccount(addr1)
	assert.Nil(t, err)
	assert.Equal(t, account.NewBasic(10), acc)

	// returned accounts are copies
	acc.Balance = 99
	acc, _ = st.GetAccount(addr1)
	assert.Equal(t, uint64(10), acc.Balance)

	exists, err := st.Exists(addr1)
	assert.Nil(t, err)
	assert.True(t, exists)

	// zero balance prunes
	st.SetAccount(addr1, account.NewBasic(0))
	exists, _ = st.Exists(addr1)
	assert.False(t, exists)

	stage, err := st.Stage()
	require.Nil(t, err)
	assert.Equal(t, trie.EmptyRoot, stage.Hash())
}

func TestStateCheckpoint(t *testing.T) {
	st := New(muxdb.NewMem(), thor.Bytes32{})

	st.SetAccount(addr1, account.NewBasic(1))
	cp := st.NewCheckpoint()
	st.SetAccount(addr1, account.NewBasic(2))
	st.SetAccount(addr2, account.NewBasic(3))

	st.RevertTo(cp)
	acc, _ := st.GetAccount(addr1)
	assert.Equal(t, uint64(1), acc.Balance)
	acc, _ = st.GetAccount(addr2)
	assert.Nil(t, acc)

	assert.Panics(t, func() { st.RevertTo(-1) })
}

func TestStateCommitAndReload(t *testing.T) {
	db := muxdb.NewMem()
	stater := NewStater(db)
	st := stater.NewState(thor.Bytes32{})

	st.SetAccount(addr1, account.NewBasic(10))
	st.SetAccount(addr2, &account.Account{Type: account.Vesting, Balance: 5, Vesting: &account.VestingContract{Owner: addr1}})
	stage, err := st.Stage()
	require.Nil(t, err)
	hash := stage.Hash()

	root := commit(t, db, st)
	assert.Equal(t, hash, root)
	assert.Nil(t, stater.Verify(root))

	reloaded := stater.NewState(root)
	assert.Equal(t, root, reloaded.Root())
	acc, err := reloaded.GetAccount(addr2)
	require.Nil(t, err)
	assert.Equal(t, account.Vesting, acc.Type)
	assert.Equal(t, addr1, acc.Vesting.Owner)

	raw, err := reloaded.GetRaw(addr1)
	require.Nil(t, err)
	empty := reloaded.Checkout(root)
	require.Nil(t, empty.SetRaw(addr1, nil))
	exists, _ := empty.Exists(addr1)
	assert.False(t, exists)
	require.Nil(t, empty.SetRaw(addr1, raw))
	stage, _ = empty.Stage()
	assert.Equal(t, root, stage.Hash())

	// proof against the committed root
	proof, err := reloaded.Prove(addr1)
	require.Nil(t, err)
	value, err := trie.VerifyProof(root, addr1[:], proof)
	require.Nil(t, err)
	assert.Equal(t, raw, value)
}

func TestStateMissingNode(t *testing.T) {
	db := muxdb.NewMem()
	st := New(db, thor.Blake2b([]byte("nowhere")))

	_, err := st.GetAccount(addr1)
	var stateErr *Error
	require.True(t, errors.As(err, &stateErr))
	var missing *trie.MissingNodeError
	assert.True(t, errors.As(err, &missing))

	assert.NotNil(t, NewStater(db).Verify(st.Root()))
}
