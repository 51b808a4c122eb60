// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/mclock"
	"github.com/pkg/errors"

	"github.com/vechain/ledger/block"
	"github.com/vechain/ledger/chain"
	"github.com/vechain/ledger/consensus"
	"github.com/vechain/ledger/state"
	"github.com/vechain/ledger/thor"
	"github.com/vechain/ledger/tx"
)

type blockExecContext struct {
	prevBest  *chain.BlockSummary
	parent    *chain.BlockSummary
	newBlock  *block.Block
	receipts  tx.Receipts
	stage     *state.Stage
	stats     *blockStats
	startTime mclock.AbsTime
	execTime  mclock.AbsTime
}

func storageError(err error, reason string) error {
	if consensus.KindOf(err) != 0 {
		return err
	}
	return consensus.WrapError(consensus.StorageFailure, err, reason)
}

// AddBlock validates blk against its parent state, stores it and moves the
// head if blk outweighs it. Blocks with an unknown parent are held and
// processed once the parent arrives.
//
// A StorageFailure halts the node: the durable state has to be recovered
// before any further block is accepted.
func (n *Node) AddBlock(blk *block.Block) (*Result, error) {
	return n.addBlock(blk, &blockStats{})
}

// AddBlocks adds a chunk of blocks in order and logs the progress.
// It stops at the first failure.
func (n *Node) AddBlocks(blks []*block.Block) error {
	if len(blks) == 0 {
		return nil
	}
	stats := &blockStats{}
	for _, blk := range blks {
		if _, err := n.addBlock(blk, stats); err != nil {
			return err
		}
	}
	logger.Info("imported blocks", stats.LogContext(blks[len(blks)-1].Header())...)
	return nil
}

func (n *Node) addBlock(blk *block.Block, stats *blockStats) (*Result, error) {
	var (
		result *Result
		events []any
	)
	err := evalBlockReceivedMetrics(func() (err error) {
		n.processLock.Lock()
		defer n.processLock.Unlock()

		if n.fatal != nil {
			return consensus.WrapError(consensus.StorageFailure, n.fatal, "node halted")
		}

		result, events, err = n.processBlock(blk, stats)
		if err != nil {
			if consensus.IsStorageFailure(err) {
				n.fatal = err
				logger.Error("storage failure, node halted", "err", err)
			}
			return err
		}
		if result.Status == Pending || result.Status == Known {
			return nil
		}
		connected, more, err := n.connectOrphans(blk.Header(), stats)
		result.Connected = connected
		events = append(events, more...)
		return err
	})
	// sent out of the lock so that subscribers may call back
	n.notify(events)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// connectOrphans processes held blocks that descend from header.
// A StorageFailure stops it and is returned, blocks connected before stay.
func (n *Node) connectOrphans(header *block.Header, stats *blockStats) (connected []thor.Bytes32, events []any, err error) {
	queue := []*block.Header{header}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		for _, child := range n.orphans.PopChildren(parent) {
			result, evs, err := n.processBlock(child, stats)
			if err != nil {
				if consensus.IsStorageFailure(err) {
					n.fatal = err
					logger.Error("storage failure, node halted", "err", err)
					return connected, events, err
				}
				logger.Debug("failed to process orphan", "id", shortID(child.Header().ID()), "err", err)
				if consensus.IsCritical(err) {
					n.rejectOrphans(child.Header(), err)
				}
				continue
			}
			events = append(events, evs...)
			if result.Status != Known {
				connected = append(connected, child.Header().ID())
				queue = append(queue, child.Header())
			}
		}
	}
	return connected, events, nil
}

// rejectOrphans drops the held descendants of a rejected block and caches
// them as rejected.
func (n *Node) rejectOrphans(header *block.Header, cause error) {
	queue := []*block.Header{header}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		for _, child := range n.orphans.PopChildren(parent) {
			id := child.Header().ID()
			n.rejected.Add(id, consensus.WrapError(consensus.KindOf(cause), cause, "ancestor rejected"))
			logger.Debug("orphan dropped, ancestor rejected", "id", shortID(id))
			queue = append(queue, child.Header())
		}
	}
}

func (n *Node) processBlock(blk *block.Block, stats *blockStats) (*Result, []any, error) {
	header := blk.Header()
	id := header.ID()

	if err, ok := n.rejected.Get(id); ok {
		stats.UpdateIgnored(1)
		return nil, nil, err
	}
	if mark, err := n.repo.GetInvalidMark(id); err != nil {
		return nil, nil, storageError(err, "lookup invalid mark")
	} else if mark != nil {
		err := markError(mark)
		n.rejected.Add(id, err)
		return nil, nil, err
	}
	if has, err := n.repo.HasBlock(id); err != nil {
		return nil, nil, storageError(err, "lookup block")
	} else if has {
		stats.UpdateIgnored(1)
		return &Result{Status: Known}, nil, nil
	}

	if parentErr, ok := n.rejected.Get(header.ParentID()); ok {
		err := consensus.WrapError(consensus.KindOf(parentErr), parentErr, "parent rejected")
		n.rejected.Add(id, err)
		return nil, nil, err
	}
	parent, err := n.repo.GetBlockSummary(header.ParentID())
	if err != nil {
		if !n.repo.IsNotFound(err) {
			return nil, nil, storageError(err, "get parent")
		}
		if n.orphans.Add(blk) {
			logger.Debug("block held for unknown parent", "id", shortID(id), "parent", shortID(header.ParentID()))
		}
		stats.UpdateQueued(1)
		return &Result{Status: Pending}, nil, nil
	}
	if mark, err := n.repo.GetInvalidMark(parent.Header.ID()); err != nil {
		return nil, nil, storageError(err, "lookup invalid mark")
	} else if mark != nil {
		err := consensus.WrapError(consensus.Kind(mark.Kind), markError(mark), "parent marked invalid")
		n.rejected.Add(id, err)
		return nil, nil, err
	}

	ctx := &blockExecContext{
		prevBest:  n.repo.BestBlockSummary(),
		parent:    parent,
		newBlock:  blk,
		stats:     stats,
		startTime: mclock.Now(),
	}

	ctx.stage, ctx.receipts, err = n.engine.Process(parent, blk, n.now())
	if err != nil {
		if consensus.IsCritical(err) {
			n.rejected.Add(id, err)
			logger.Debug(fmt.Sprintf("block rejected\n%v\n", header), "err", err)
		}
		return nil, nil, err
	}
	ctx.execTime = mclock.Now() - ctx.startTime

	result, events, err := n.commitBlock(ctx)
	if err != nil {
		return nil, nil, err
	}
	stats.UpdateProcessed(1, len(blk.Transactions()), ctx.execTime, mclock.Now()-ctx.startTime-ctx.execTime)
	stats.UpdateReverted(len(result.Reverted))
	return result, events, nil
}

// commitBlock stores the processed block and runs the fork choice. The
// block, its state and the best pointer are written in one batch.
func (n *Node) commitBlock(ctx *blockExecContext) (*Result, []any, error) {
	var (
		header = ctx.newBlock.Header()
		id     = header.ID()
		batch  = n.repo.NewBatch()
	)

	if _, err := ctx.stage.Commit(batch.Putter()); err != nil {
		return nil, nil, storageError(err, "commit state")
	}
	summary, err := batch.AddBlock(ctx.newBlock, ctx.receipts)
	if err != nil {
		return nil, nil, storageError(err, "add block")
	}

	// equal weight keeps the head, the first seen wins
	if summary.TotalWeight <= ctx.prevBest.TotalWeight {
		if err := batch.Write(); err != nil {
			return nil, nil, storageError(err, "write block")
		}
		fork, err := n.repo.FindFork(id, ctx.prevBest.Header.ID())
		if err != nil {
			return nil, nil, storageError(err, "find fork")
		}
		metricChainForkCount().Add(1)
		logger.Debug("side block stored", "id", shortID(id), "weight", summary.TotalWeight, "best weight", ctx.prevBest.TotalWeight)
		return &Result{Status: Side}, []any{newForkDetected(fork)}, nil
	}

	if header.ParentID() == ctx.prevBest.Header.ID() {
		if err := batch.SetBestBlockID(id); err != nil {
			return nil, nil, storageError(err, "set best block")
		}
		if err := batch.Write(); err != nil {
			return nil, nil, storageError(err, "write block")
		}
		head := n.setHead(summary)
		applied := []thor.Bytes32{id}
		return &Result{Status: Extended, Applied: applied}, []any{&HeadChanged{Head: head, Applied: applied}}, nil
	}

	return n.reorganize(ctx, batch, summary)
}

// reorganize moves the head onto the branch ending with the new block.
// The old trunk is reverted down to the common ancestor and the branch
// applied on top, on one working state. If a branch block fails to apply,
// the head stays and the branch from that block on is marked invalid.
func (n *Node) reorganize(ctx *blockExecContext, batch *chain.Batch, summary *chain.BlockSummary) (*Result, []any, error) {
	var (
		header = ctx.newBlock.Header()
		id     = header.ID()
	)

	fork, err := n.repo.FindFork(header.ParentID(), ctx.prevBest.Header.ID())
	if err != nil {
		return nil, nil, storageError(err, "find fork")
	}
	branch := make([]*block.Block, 0, len(fork.Branch)+1)
	for _, s := range fork.Branch {
		blk, err := n.repo.GetBlock(s.Header.ID())
		if err != nil {
			return nil, nil, storageError(err, "get branch block")
		}
		branch = append(branch, blk)
	}
	branch = append(branch, ctx.newBlock)

	reverted, applied, err := n.switchBranch(ctx.prevBest, fork, branch)
	if err != nil {
		metricReorgCount().AddWithLabel(1, map[string]string{"status": "failed"})
		if consensus.IsStorageFailure(err) {
			return nil, nil, err
		}

		// the failed block and its descendants
		invalid := make([]thor.Bytes32, 0, len(branch))
		for _, blk := range branch[len(applied):] {
			invalid = append(invalid, blk.Header().ID())
		}
		var (
			marks = n.repo.NewBatch()
			mark  = newInvalidMark(err)
		)
		for _, bid := range invalid {
			if err := marks.MarkInvalid(bid, mark); err != nil {
				return nil, nil, storageError(err, "mark invalid")
			}
		}
		if err := marks.Write(); err != nil {
			return nil, nil, storageError(err, "mark invalid")
		}
		for _, bid := range invalid {
			n.rejected.Add(bid, err)
		}
		logger.Warn("reorg aborted, branch marked invalid",
			"ancestor", shortID(fork.Ancestor.Header.ID()),
			"head", shortID(ctx.prevBest.Header.ID()),
			"invalid", len(invalid),
			"err", err)
		return nil, nil, err
	}

	if err := batch.SetBestBlockID(id); err != nil {
		return nil, nil, storageError(err, "set best block")
	}
	if err := batch.Write(); err != nil {
		return nil, nil, storageError(err, "write block")
	}
	head := n.setHead(summary)
	metricReorgCount().AddWithLabel(1, map[string]string{"status": "ok"})
	metricChainForkSize().Set(int64(len(reverted)))

	if len(reverted) >= 2 {
		logger.Warn(fmt.Sprintf(
			`⑂⑂⑂⑂⑂⑂⑂⑂ FORK HAPPENED ⑂⑂⑂⑂⑂⑂⑂⑂
ancestor: %v
old-head: %v  reverted %v
new-head: %v  applied %v`,
			shortID(fork.Ancestor.Header.ID()),
			shortID(ctx.prevBest.Header.ID()), len(reverted),
			shortID(id), len(applied)))
	} else {
		logger.Debug("head switched", "ancestor", shortID(fork.Ancestor.Header.ID()), "reverted", len(reverted), "applied", len(applied))
	}

	detected := &ForkDetected{
		Ancestor: fork.Ancestor.Header.ID(),
		Trunk:    summaryIDs(fork.Trunk),
		Branch:   applied,
	}
	return &Result{Status: Reorganized, Reverted: reverted, Applied: applied},
		[]any{detected, &HeadChanged{Head: head, Reverted: reverted, Applied: applied}},
		nil
}

// switchBranch reverts the trunk of fork from head down to the ancestor,
// child before parent, then applies branch parent before child.
// It returns the ids reverted and applied so far.
func (n *Node) switchBranch(head *chain.BlockSummary, fork *chain.Fork, branch []*block.Block) (reverted, applied []thor.Bytes32, err error) {
	st := n.stater.NewState(head.Header.StateRoot())
	checkpoint := st.NewCheckpoint()
	defer func() {
		if err != nil {
			st.RevertTo(checkpoint)
		}
	}()

	for i := len(fork.Trunk) - 1; i >= 0; i-- {
		s := fork.Trunk[i]
		parentRoot := fork.Ancestor.Header.StateRoot()
		if i > 0 {
			parentRoot = fork.Trunk[i-1].Header.StateRoot()
		}

		blk, err := n.repo.GetBlock(s.Header.ID())
		if err != nil {
			return reverted, applied, storageError(err, "get trunk block")
		}
		receipts, err := n.repo.GetBlockReceipts(s.Header.ID())
		if err != nil {
			return reverted, applied, storageError(err, "get trunk receipts")
		}
		// stored data that can't be undone is corrupted
		if _, err := n.engine.RevertBlock(st, blk, receipts, parentRoot); err != nil {
			return reverted, applied, consensus.WrapError(consensus.StorageFailure, err, "revert block "+shortID(s.Header.ID()))
		}
		reverted = append(reverted, s.Header.ID())
	}

	for _, blk := range branch {
		if _, _, err := n.engine.ApplyBlock(st, blk); err != nil {
			if consensus.IsStorageFailure(err) {
				return reverted, applied, err
			}
			return reverted, applied, consensus.WrapError(consensus.ReorgFailure, err, "apply block "+shortID(blk.Header().ID()))
		}
		applied = append(applied, blk.Header().ID())
	}
	return reverted, applied, nil
}

func newInvalidMark(err error) *chain.InvalidMark {
	var e *consensus.Error
	if errors.As(err, &e) {
		return &chain.InvalidMark{Kind: uint(e.Kind), Reason: e.Detail()}
	}
	return &chain.InvalidMark{Kind: uint(consensus.MalformedBlock), Reason: err.Error()}
}

func markError(mark *chain.InvalidMark) error {
	return consensus.NewError(consensus.Kind(mark.Kind), mark.Reason)
}

func newForkDetected(fork *chain.Fork) *ForkDetected {
	return &ForkDetected{
		Ancestor: fork.Ancestor.Header.ID(),
		Trunk:    summaryIDs(fork.Trunk),
		Branch:   summaryIDs(fork.Branch),
	}
}

func summaryIDs(summaries []*chain.BlockSummary) []thor.Bytes32 {
	ids := make([]thor.Bytes32, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.Header.ID())
	}
	return ids
}
