// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"github.com/ethereum/go-ethereum/common/mclock"

	"github.com/vechain/ledger/chain"
	"github.com/vechain/ledger/consensus"
)

// Recover checks that the state of the best block can be fully loaded. If a
// write was interrupted, it walks back to the latest block with intact
// state and re-applies the canonical blocks after it from stored bodies.
// A halted node is resumed on success.
func (n *Node) Recover() error {
	n.processLock.Lock()
	defer n.processLock.Unlock()

	best := n.repo.BestBlockSummary()
	err := n.stater.Verify(best.Header.StateRoot())
	if err == nil {
		n.fatal = nil
		n.setHead(best)
		logger.Debug("head state verified", "id", shortID(best.Header.ID()))
		return nil
	}
	logger.Warn("head state incomplete, recovering", "id", shortID(best.Header.ID()), "err", err)

	var (
		startTime = mclock.Now()
		canonical = n.repo.NewChain(best.Header.ID())
		base      *chain.BlockSummary
	)
	for num := best.Header.Number(); num > 0 && base == nil; {
		num--
		s, err := canonical.GetBlockSummary(num)
		if err != nil {
			return storageError(err, "get canonical block")
		}
		if n.stater.Verify(s.Header.StateRoot()) == nil {
			base = s
		}
	}
	if base == nil {
		return consensus.NewError(consensus.StorageFailure, "no intact state to recover from")
	}

	st := n.stater.NewState(base.Header.StateRoot())
	for num := base.Header.Number() + 1; num <= best.Header.Number(); num++ {
		id, err := canonical.GetBlockID(num)
		if err != nil {
			return storageError(err, "get canonical block id")
		}
		blk, err := n.repo.GetBlock(id)
		if err != nil {
			return storageError(err, "get canonical block")
		}
		stage, _, err := n.engine.ApplyBlock(st, blk)
		if err != nil {
			return consensus.WrapError(consensus.StorageFailure, err, "re-apply block "+shortID(id))
		}

		batch := n.repo.NewBatch()
		if _, err := stage.Commit(batch.Putter()); err != nil {
			return storageError(err, "commit state")
		}
		if err := batch.Write(); err != nil {
			return storageError(err, "write state")
		}
		st = n.stater.NewState(blk.Header().StateRoot())
	}

	n.fatal = nil
	n.setHead(best)
	logger.Info("head state recovered",
		"from", shortID(base.Header.ID()),
		"replayed", best.Header.Number()-base.Header.Number(),
		"elapsed", mclock.Now()-startTime)
	return nil
}
