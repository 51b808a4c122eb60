// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"cmp"
	"slices"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"

	"github.com/vechain/ledger/block"
	"github.com/vechain/ledger/thor"
)

type orphan struct {
	blk *block.Block
	seq uint64
}

// orphanPool holds blocks whose parent is not stored yet, ordered by height.
// When full, the highest blocks are dropped first since they are the
// furthest from being connected.
type orphanPool struct {
	byHeight *treemap.Map // uint32 -> map[thor.Bytes32]*orphan
	size     int
	limit    int
	seq      uint64
}

func newOrphanPool(limit int) *orphanPool {
	return &orphanPool{
		byHeight: treemap.NewWith(utils.UInt32Comparator),
		limit:    limit,
	}
}

func (p *orphanPool) bucket(num uint32) map[thor.Bytes32]*orphan {
	if v, found := p.byHeight.Get(num); found {
		return v.(map[thor.Bytes32]*orphan)
	}
	return nil
}

// Add holds blk. It returns false if blk is already held.
func (p *orphanPool) Add(blk *block.Block) bool {
	header := blk.Header()
	bucket := p.bucket(header.Number())
	if bucket == nil {
		bucket = make(map[thor.Bytes32]*orphan)
		p.byHeight.Put(header.Number(), bucket)
	}
	if _, ok := bucket[header.ID()]; ok {
		return false
	}
	p.seq++
	bucket[header.ID()] = &orphan{blk, p.seq}
	p.size++

	for p.size > p.limit {
		p.dropHighest()
	}
	metricOrphanGauge().Set(int64(p.size))
	return true
}

func (p *orphanPool) dropHighest() {
	key, val := p.byHeight.Max()
	if key == nil {
		return
	}
	bucket := val.(map[thor.Bytes32]*orphan)
	for id := range bucket {
		delete(bucket, id)
		p.size--
		logger.Debug("orphan dropped", "id", shortID(id))
		break
	}
	if len(bucket) == 0 {
		p.byHeight.Remove(key)
	}
}

// Contains returns whether the block is held.
func (p *orphanPool) Contains(id thor.Bytes32) bool {
	_, ok := p.bucket(block.Number(id))[id]
	return ok
}

// PopChildren removes and returns held children of the given parent, in
// the order they were added.
func (p *orphanPool) PopChildren(parent *block.Header) []*block.Block {
	num := parent.Number() + 1
	bucket := p.bucket(num)
	if bucket == nil {
		return nil
	}

	var found []*orphan
	for id, o := range bucket {
		if o.blk.Header().ParentID() == parent.ID() {
			found = append(found, o)
			delete(bucket, id)
			p.size--
		}
	}
	if len(bucket) == 0 {
		p.byHeight.Remove(num)
	}
	metricOrphanGauge().Set(int64(p.size))

	slices.SortFunc(found, func(a, b *orphan) int { return cmp.Compare(a.seq, b.seq) })
	children := make([]*block.Block, 0, len(found))
	for _, o := range found {
		children = append(children, o.blk)
	}
	return children
}

// Len returns the count of held blocks.
func (p *orphanPool) Len() int {
	return p.size
}
