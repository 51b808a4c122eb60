// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package consensus validates blocks and moves account state forward and
// backward across them.
package consensus

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/vechain/ledger/block"
	"github.com/vechain/ledger/chain"
	"github.com/vechain/ledger/log"
	"github.com/vechain/ledger/runtime"
	"github.com/vechain/ledger/state"
	"github.com/vechain/ledger/thor"
	"github.com/vechain/ledger/tx"
)

var logger = log.WithContext("pkg", "consensus")

// Consensus check whether the block is verified,
// and predicate which trunk it belong to.
type Consensus struct {
	repo   *chain.Repository
	stater *state.Stater
	params Params
}

// New create a Consensus instance.
func New(repo *chain.Repository, stater *state.Stater, params Params) *Consensus {
	return &Consensus{
		repo:   repo,
		stater: stater,
		params: params.withDefaults(),
	}
}

// Params returns the consensus params in use.
func (c *Consensus) Params() Params {
	return c.params
}

// Process validates blk on top of parent, then applies it on the parent's state.
// It returns the staged state and the undo receipts of the block.
func (c *Consensus) Process(parent *chain.BlockSummary, blk *block.Block, nowTimestamp uint64) (*state.Stage, tx.Receipts, error) {
	stage, receipts, err := c.process(parent, blk, nowTimestamp)
	if err != nil {
		metricBlockValidationCount().AddWithLabel(1, map[string]string{"result": KindOf(err).String()})
		return nil, nil, err
	}
	metricBlockValidationCount().AddWithLabel(1, map[string]string{"result": "ok"})
	return stage, receipts, nil
}

func (c *Consensus) process(parent *chain.BlockSummary, blk *block.Block, nowTimestamp uint64) (*state.Stage, tx.Receipts, error) {
	header := blk.Header()
	if header.ParentID() != parent.Header.ID() {
		return nil, nil, errorf(UnknownParent, "parent mismatch: want %v, have %v", parent.Header.ID(), header.ParentID())
	}

	if err := c.validateBlockHeader(header, parent, nowTimestamp); err != nil {
		return nil, nil, err
	}
	if err := c.validateBlockBody(blk); err != nil {
		return nil, nil, err
	}

	st := c.stater.NewState(parent.Header.StateRoot())
	return c.ApplyBlock(st, blk)
}

// ApplyBlock executes the transactions of blk in order and then credits the
// block reward. The staged root must equal the declared state root.
//
// On success, changes stay in st so that following blocks can be applied on
// it. On failure, st is reverted to where it was.
func (c *Consensus) ApplyBlock(st *state.State, blk *block.Block) (*state.Stage, tx.Receipts, error) {
	header := blk.Header()
	checkpoint := st.NewCheckpoint()

	stage, receipts, err := c.applyBlock(st, blk)
	if err != nil {
		st.RevertTo(checkpoint)
		logger.Debug("failed to apply block", "id", header.ID(), "err", err)
		return nil, nil, err
	}
	return stage, receipts, nil
}

func (c *Consensus) applyBlock(st *state.State, blk *block.Block) (*state.Stage, tx.Receipts, error) {
	var (
		header = blk.Header()
		txs    = blk.Transactions()
		rt     = runtime.New(st, &runtime.Context{
			Number:      header.Number(),
			Beneficiary: header.Beneficiary(),
		})
		receipts = make(tx.Receipts, 0, len(txs)+1)
	)

	for i, trx := range txs {
		receipt, err := rt.ExecuteTransaction(trx)
		if err != nil {
			return nil, nil, txError(err, i)
		}
		receipts = append(receipts, receipt)
	}
	metricTxExecutedCount().Add(int64(len(txs)))

	reward, err := rt.ApplyReward(c.params.Issuance(header.Number()))
	if err != nil {
		if errors.As(err, new(*state.Error)) {
			return nil, nil, WrapError(StorageFailure, err, "apply reward")
		}
		return nil, nil, WrapError(MalformedBlock, err, "apply reward")
	}
	receipts = append(receipts, reward)

	stage, err := st.Stage()
	if err != nil {
		return nil, nil, storageError(err, "stage state")
	}
	if root := stage.Hash(); root != header.StateRoot() {
		return nil, nil, errorf(StateRootMismatch, "want %v, have %v", header.StateRoot(), root)
	}
	return stage, receipts, nil
}

// RevertBlock undoes blk on st using the receipts produced when it was applied,
// the reward first and then each tx from the last one. The resulting root
// must equal parentRoot.
//
// On failure, st is reverted to where it was.
func (c *Consensus) RevertBlock(st *state.State, blk *block.Block, receipts tx.Receipts, parentRoot thor.Bytes32) (*state.Stage, error) {
	if len(receipts) != len(blk.Transactions())+1 {
		return nil, errorf(MalformedBlock, "receipts count mismatch: want %v, have %v", len(blk.Transactions())+1, len(receipts))
	}

	checkpoint := st.NewCheckpoint()
	stage, err := func() (*state.Stage, error) {
		for i := len(receipts) - 1; i >= 0; i-- {
			if err := runtime.RevertReceipt(st, receipts[i]); err != nil {
				return nil, WrapError(MalformedBlock, err, fmt.Sprintf("revert receipt #%d", i))
			}
		}
		stage, err := st.Stage()
		if err != nil {
			return nil, storageError(err, "stage state")
		}
		if root := stage.Hash(); root != parentRoot {
			return nil, errorf(StateRootMismatch, "revert: want %v, have %v", parentRoot, root)
		}
		return stage, nil
	}()
	if err != nil {
		st.RevertTo(checkpoint)
		return nil, err
	}
	return stage, nil
}
