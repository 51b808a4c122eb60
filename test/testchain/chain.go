// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package testchain builds in-memory chains for tests.
package testchain

import (
	"fmt"

	"github.com/vechain/ledger/block"
	"github.com/vechain/ledger/chain"
	"github.com/vechain/ledger/consensus"
	"github.com/vechain/ledger/genesis"
	"github.com/vechain/ledger/muxdb"
	"github.com/vechain/ledger/packer"
	"github.com/vechain/ledger/state"
	"github.com/vechain/ledger/thor"
	"github.com/vechain/ledger/tx"
)

// Beneficiary receives rewards and fees of blocks packed by test chains.
var Beneficiary = thor.BytesToAddress([]byte("beneficiary"))

// Chain represents the blockchain structure.
type Chain struct {
	db           *muxdb.MuxDB
	genesis      *genesis.Genesis
	repo         *chain.Repository
	stater       *state.Stater
	cons         *consensus.Consensus
	params       consensus.Params
	genesisBlock *block.Block
}

// NewDefault creates a Chain with default consensus params over the devnet genesis.
func NewDefault() (*Chain, error) {
	return NewWithParams(consensus.DefaultParams())
}

// NewWithParams creates a Chain over the devnet genesis and an in-memory database.
func NewWithParams(params consensus.Params) (*Chain, error) {
	db := muxdb.NewMem()
	gene := genesis.NewDevnet()

	geneBlk, err := gene.Build(db)
	if err != nil {
		return nil, err
	}

	var opts []chain.Option
	if params.Weight != nil {
		opts = append(opts, chain.WithWeight(params.Weight))
	}
	repo, err := chain.NewRepository(db, geneBlk, opts...)
	if err != nil {
		return nil, err
	}

	stater := state.NewStater(db)
	return &Chain{
		db:           db,
		genesis:      gene,
		repo:         repo,
		stater:       stater,
		cons:         consensus.New(repo, stater, params),
		params:       params,
		genesisBlock: geneBlk,
	}, nil
}

// DB returns the database.
func (c *Chain) DB() *muxdb.MuxDB { return c.db }

// Genesis returns the genesis of the chain.
func (c *Chain) Genesis() *genesis.Genesis { return c.genesis }

// Repo returns the blockchain's repository, which stores blocks and other data.
func (c *Chain) Repo() *chain.Repository { return c.repo }

// Stater returns the state manager of the chain.
func (c *Chain) Stater() *state.Stater { return c.stater }

// Consensus returns the consensus engine.
func (c *Chain) Consensus() *consensus.Consensus { return c.cons }

// Params returns the consensus params.
func (c *Chain) Params() consensus.Params { return c.params }

// GenesisBlock returns the genesis block of the chain.
func (c *Chain) GenesisBlock() *block.Block { return c.genesisBlock }

// State returns the current state at the best block of the chain.
func (c *Chain) State() *state.State {
	return c.stater.NewState(c.repo.BestBlockSummary().Header.StateRoot())
}

// NewBlock packs a block with txs on top of parent, one interval after it.
// The block is not stored.
func (c *Chain) NewBlock(parent *chain.BlockSummary, difficulty uint64, txs ...*tx.Transaction) (*block.Block, *state.Stage, tx.Receipts, error) {
	return c.NewBlockAt(parent, parent.Header.Timestamp()+thor.BlockInterval, difficulty, txs...)
}

// NewBlockAt packs a block with txs on top of parent at the given timestamp.
func (c *Chain) NewBlockAt(parent *chain.BlockSummary, timestamp, difficulty uint64, txs ...*tx.Transaction) (*block.Block, *state.Stage, tx.Receipts, error) {
	flow, err := packer.New(c.repo, c.stater, Beneficiary, c.params).Schedule(parent, timestamp)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("unable to schedule packing: %w", err)
	}
	for _, trx := range txs {
		if err := flow.Adopt(trx); err != nil {
			return nil, nil, nil, fmt.Errorf("unable to adopt tx into block: %w", err)
		}
	}
	return flow.Pack(difficulty, nil)
}

// MintBlock packs txs on top of the best block, runs the block through
// consensus and adds it to the chain as the new best.
func (c *Chain) MintBlock(txs ...*tx.Transaction) (*block.Block, error) {
	best := c.repo.BestBlockSummary()
	blk, _, _, err := c.NewBlock(best, 1, txs...)
	if err != nil {
		return nil, err
	}

	stage, receipts, err := c.cons.Process(best, blk, blk.Header().Timestamp())
	if err != nil {
		return nil, fmt.Errorf("unable to process block: %w", err)
	}
	if err := c.AddBlock(blk, stage, receipts, true); err != nil {
		return nil, err
	}
	return blk, nil
}

// AddBlock stores the block with its state changes in one write.
func (c *Chain) AddBlock(blk *block.Block, stage *state.Stage, receipts tx.Receipts, asBest bool) error {
	batch := c.repo.NewBatch()
	if _, err := stage.Commit(batch.Putter()); err != nil {
		return fmt.Errorf("unable to commit state: %w", err)
	}
	if _, err := batch.AddBlock(blk, receipts); err != nil {
		return fmt.Errorf("unable to add block: %w", err)
	}
	if asBest {
		if err := batch.SetBestBlockID(blk.Header().ID()); err != nil {
			return err
		}
	}
	return batch.Write()
}

// Balance returns the balance of addr at the best block.
func (c *Chain) Balance(addr thor.Address) (uint64, error) {
	acc, err := c.State().GetAccount(addr)
	if err != nil {
		return 0, err
	}
	if acc == nil {
		return 0, nil
	}
	return acc.Balance, nil
}
