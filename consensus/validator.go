// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package consensus

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/vechain/ledger/block"
	"github.com/vechain/ledger/chain"
	"github.com/vechain/ledger/thor"
)

func (c *Consensus) validateBlockHeader(header *block.Header, parentSummary *chain.BlockSummary, nowTimestamp uint64) error {
	parent := parentSummary.Header
	if header.Timestamp() <= parent.Timestamp() {
		return errorf(MalformedBlock, "block timestamp behind parents: parent %v, current %v", parent.Timestamp(), header.Timestamp())
	}

	if header.Timestamp() > nowTimestamp+thor.MaxFutureBlockTime {
		return errorf(FutureBlock, "block timestamp too far in the future: now %v, current %v", nowTimestamp, header.Timestamp())
	}

	if len(header.Extra()) > thor.MaxBlockExtraSize {
		return errorf(MalformedBlock, "block extra too large: max %v, have %v", thor.MaxBlockExtraSize, len(header.Extra()))
	}

	weight := c.params.Weight(header)
	if weight == 0 {
		return NewError(MalformedBlock, "block weight is zero")
	}
	if parentSummary.TotalWeight > math.MaxUint64-weight {
		return NewError(MalformedBlock, "total weight overflow")
	}

	if c.params.CheckDifficulty != nil {
		if err := c.params.CheckDifficulty(parent, header); err != nil {
			return WrapError(MalformedBlock, err, "block difficulty invalid")
		}
	}
	return nil
}

func (c *Consensus) validateBlockBody(blk *block.Block) error {
	header := blk.Header()
	txs := blk.Transactions()

	if len(txs) > thor.MaxTxsPerBlock {
		return errorf(MalformedBlock, "too many txs: max %v, have %v", thor.MaxTxsPerBlock, len(txs))
	}

	if root := txs.RootHash(); header.TxsRoot() != root {
		return errorf(MalformedBlock, "block txs root mismatch: want %v, have %v", header.TxsRoot(), root)
	}

	// recover signers in parallel, results are cached in txs
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, trx := range txs {
		i, trx := i, trx
		g.Go(func() error {
			if _, err := trx.Signer(); err != nil {
				return WrapError(InvalidTransaction, err, txIndexReason(i, "signer unavailable"))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	chain := c.repo.NewChain(header.ParentID())
	seen := make(map[thor.Bytes32]struct{}, len(txs))
	for i, trx := range txs {
		id := trx.ID()
		if _, ok := seen[id]; ok {
			return NewError(InvalidTransaction, txIndexReason(i, "duplicated in block"))
		}
		seen[id] = struct{}{}

		if !trx.IsValidAt(header.Number()) {
			return errorf(InvalidTransaction, "tx #%d not valid at %v: validity start %v", i, header.Number(), trx.ValidityStart())
		}

		found, err := chain.HasTransaction(id, trx.ValidityStart())
		if err != nil {
			return storageError(err, "lookup tx")
		}
		if found {
			return NewError(InvalidTransaction, txIndexReason(i, "already exists"))
		}
	}
	return nil
}

func txIndexReason(i int, reason string) string {
	return fmt.Sprintf("tx #%d %s", i, reason)
}
