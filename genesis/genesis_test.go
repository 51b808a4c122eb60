// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/ledger/account"
	"github.com/vechain/ledger/genesis"
	"github.com/vechain/ledger/muxdb"
	"github.com/vechain/ledger/state"
	"github.com/vechain/ledger/thor"
)

func TestDevnet(t *testing.T) {
	gene := genesis.NewDevnet()
	assert.Equal(t, "devnet", gene.Name())
	assert.Equal(t, gene.ID(), genesis.NewDevnet().ID())

	db := muxdb.NewMem()
	blk, err := gene.Build(db)
	require.Nil(t, err)
	assert.Equal(t, gene.ID(), blk.Header().ID())
	assert.Equal(t, uint32(0), blk.Header().Number())

	st := state.NewStater(db).NewState(blk.Header().StateRoot())
	for _, a := range genesis.DevAccounts() {
		acc, err := st.GetAccount(a.Address)
		require.Nil(t, err)
		assert.Equal(t, account.NewBasic(genesis.DevBalance), acc)
	}
	assert.Nil(t, state.NewStater(db).Verify(blk.Header().StateRoot()))
}

const customYAML = `
launchTime: 1526400000
difficulty: 5
extraData: hello
accounts:
  - address: "0x0000000000000000000000000000000000000001"
    balance: 1000
  - address: "0x0000000000000000000000000000000000000002"
    balance: 600
    vesting:
      owner: "0x0000000000000000000000000000000000000001"
      start: 10
      stepBlocks: 5
      stepAmount: 100
  - address: "0x0000000000000000000000000000000000000003"
    balance: 50
    htlc:
      sender: "0x0000000000000000000000000000000000000001"
      recipient: "0x0000000000000000000000000000000000000002"
      hashAlgorithm: sha256
      hashRoot: "0x1111111111111111111111111111111111111111111111111111111111111111"
      hashCount: 2
      timeout: 100
`

func TestCustomNet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.Nil(t, os.WriteFile(path, []byte(customYAML), 0o600))

	gen, err := genesis.LoadCustomGenesis(path)
	require.Nil(t, err)
	require.Len(t, gen.Accounts, 3)

	gene, err := genesis.NewCustomNet(gen)
	require.Nil(t, err)
	assert.Equal(t, "customnet", gene.Name())

	db := muxdb.NewMem()
	blk, err := gene.Build(db)
	require.Nil(t, err)
	assert.Equal(t, uint64(5), blk.Header().Difficulty())
	assert.Equal(t, []byte("hello"), blk.Header().Extra())

	st := state.NewStater(db).NewState(blk.Header().StateRoot())

	vesting, err := st.GetAccount(thor.BytesToAddress([]byte{2}))
	require.Nil(t, err)
	assert.Equal(t, account.Vesting, vesting.Type)
	assert.Equal(t, uint64(600), vesting.Vesting.TotalAmount)
	assert.Equal(t, uint64(600), vesting.Vesting.MinCap(10))

	htlc, err := st.GetAccount(thor.BytesToAddress([]byte{3}))
	require.Nil(t, err)
	assert.Equal(t, account.HTLC, htlc.Type)
	assert.Equal(t, account.Sha256, htlc.HTLC.HashAlgorithm)
	assert.Equal(t, uint8(2), htlc.HTLC.HashCount)
}

func TestCustomNetErrors(t *testing.T) {
	addr := thor.BytesToAddress([]byte{1})

	_, err := genesis.NewCustomNet(&genesis.CustomGenesis{})
	assert.NotNil(t, err, "zero difficulty")

	_, err = genesis.NewCustomNet(&genesis.CustomGenesis{
		Difficulty: 1,
		Accounts:   []genesis.Account{{Address: addr}},
	})
	assert.NotNil(t, err, "zero balance")

	_, err = genesis.NewCustomNet(&genesis.CustomGenesis{
		Difficulty: 1,
		Accounts:   []genesis.Account{{Address: addr, Balance: 1}, {Address: addr, Balance: 2}},
	})
	assert.NotNil(t, err, "duplicated")

	_, err = genesis.NewCustomNet(&genesis.CustomGenesis{
		Difficulty: 1,
		Accounts: []genesis.Account{{
			Address: addr,
			Balance: 1,
			HTLC:    &genesis.HTLC{HashAlgorithm: account.Sha256},
		}},
	})
	assert.NotNil(t, err, "zero hash count")
}
