// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain

import (
	"slices"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/vechain/ledger/block"
	"github.com/vechain/ledger/kv"
	"github.com/vechain/ledger/thor"
)

// Chain presents the linked blocks ending at a head block, which may be on a fork.
type Chain struct {
	repo   *Repository
	headID thor.Bytes32
}

// NewChain creates an instance of the chain ending at headID.
func (r *Repository) NewChain(headID thor.Bytes32) *Chain {
	return &Chain{r, headID}
}

// NewBestChain creates the chain ending at the current best block.
func (r *Repository) NewBestChain() *Chain {
	return r.NewChain(r.BestBlockSummary().Header.ID())
}

// HeadID returns the head block id.
func (c *Chain) HeadID() thor.Bytes32 {
	return c.headID
}

// GetBlockID returns block id by given block number.
// Parent links are walked until the canonical chain is met.
func (c *Chain) GetBlockID(num uint32) (thor.Bytes32, error) {
	if num > block.Number(c.headID) {
		return thor.Bytes32{}, errNotFound
	}

	id := c.headID
	for {
		curNum := block.Number(id)
		canonID, err := c.repo.canonicalID(curNum)
		if err != nil && !c.repo.IsNotFound(err) {
			return thor.Bytes32{}, err
		}
		if canonID == id {
			if curNum == num {
				return id, nil
			}
			return c.repo.canonicalID(num)
		}
		if curNum == num {
			return id, nil
		}
		summary, err := c.repo.GetBlockSummary(id)
		if err != nil {
			return thor.Bytes32{}, err
		}
		id = summary.Header.ParentID()
	}
}

// GetBlockSummary returns the summary of the block at num on this chain.
func (c *Chain) GetBlockSummary(num uint32) (*BlockSummary, error) {
	id, err := c.GetBlockID(num)
	if err != nil {
		return nil, err
	}
	return c.repo.GetBlockSummary(id)
}

// HasBlock check if the block with given id is on this chain.
func (c *Chain) HasBlock(id thor.Bytes32) (bool, error) {
	num := block.Number(id)
	if num > block.Number(c.headID) {
		return false, nil
	}
	found, err := c.GetBlockID(num)
	if err != nil {
		if c.repo.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return found == id, nil
}

// HasTransaction checks whether the tx is included by a block on this chain,
// numbered since or above.
func (c *Chain) HasTransaction(txid thor.Bytes32, since uint32) (bool, error) {
	iter := c.repo.txIndexer.Iterate(kv.Range(*util.BytesPrefix(txid[:])))
	defer iter.Release()

	for iter.Next() {
		key := iter.Key()
		if len(key) != 64 {
			continue
		}
		blockID := thor.BytesToBytes32(key[32:])
		if block.Number(blockID) < since {
			continue
		}
		has, err := c.HasBlock(blockID)
		if err != nil {
			return false, err
		}
		if has {
			return true, nil
		}
	}
	return false, iter.Error()
}

// FindCommonAncestor returns the latest block both chains share.
func (r *Repository) FindCommonAncestor(a, b thor.Bytes32) (*BlockSummary, error) {
	sa, err := r.GetBlockSummary(a)
	if err != nil {
		return nil, err
	}
	sb, err := r.GetBlockSummary(b)
	if err != nil {
		return nil, err
	}

	for sa.Header.Number() > sb.Header.Number() {
		if sa, err = r.GetBlockSummary(sa.Header.ParentID()); err != nil {
			return nil, err
		}
	}
	for sb.Header.Number() > sa.Header.Number() {
		if sb, err = r.GetBlockSummary(sb.Header.ParentID()); err != nil {
			return nil, err
		}
	}
	for sa.Header.ID() != sb.Header.ID() {
		if sa.Header.Number() == 0 {
			return nil, errors.New("no common ancestor")
		}
		if sa, err = r.GetBlockSummary(sa.Header.ParentID()); err != nil {
			return nil, err
		}
		if sb, err = r.GetBlockSummary(sb.Header.ParentID()); err != nil {
			return nil, err
		}
	}
	return sa, nil
}

// FindFork returns the common ancestor of the two heads, with the blocks
// only on the old chain as Trunk and those only on the new chain as Branch.
func (r *Repository) FindFork(newHead, oldHead thor.Bytes32) (*Fork, error) {
	ancestor, err := r.FindCommonAncestor(newHead, oldHead)
	if err != nil {
		return nil, err
	}
	trunk, err := r.collect(oldHead, ancestor.Header.ID())
	if err != nil {
		return nil, err
	}
	branch, err := r.collect(newHead, ancestor.Header.ID())
	if err != nil {
		return nil, err
	}
	return &Fork{Ancestor: ancestor, Trunk: trunk, Branch: branch}, nil
}

// collect returns blocks from the child of ancestor up to head, in ascending order.
func (r *Repository) collect(head, ancestor thor.Bytes32) ([]*BlockSummary, error) {
	var summaries []*BlockSummary
	for id := head; id != ancestor; {
		s, err := r.GetBlockSummary(id)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
		id = s.Header.ParentID()
	}
	slices.Reverse(summaries)
	return summaries, nil
}
