// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain

import (
	"math"

	"github.com/pkg/errors"

	"github.com/vechain/ledger/block"
	"github.com/vechain/ledger/kv"
	"github.com/vechain/ledger/thor"
	"github.com/vechain/ledger/tx"
)

type addedBlock struct {
	summary  *BlockSummary
	txs      tx.Transactions
	receipts tx.Receipts
}

// Batch collects chain writes and commits them in one atomic bulk.
// State trie nodes can join the same bulk through Putter.
type Batch struct {
	repo *Repository
	bulk kv.Bulk

	hdr, body, receipt, height, canon, txi, prop, head kv.Putter

	added   []addedBlock
	pending map[thor.Bytes32]*BlockSummary
	canonOf map[uint32]thor.Bytes32 // zero value for deleted entries
	invalid []thor.Bytes32
	best    *BlockSummary
}

// NewBatch creates an empty batch.
func (r *Repository) NewBatch() *Batch {
	bulk := r.db.NewBulk()
	return &Batch{
		repo:    r,
		bulk:    bulk,
		hdr:     r.db.NewStorePutter(hdrStoreName, bulk),
		body:    r.db.NewStorePutter(bodyStoreName, bulk),
		receipt: r.db.NewStorePutter(receiptStoreName, bulk),
		height:  r.db.NewStorePutter(heightStoreName, bulk),
		canon:   r.db.NewStorePutter(canonStoreName, bulk),
		txi:     r.db.NewStorePutter(txIndexStoreName, bulk),
		prop:    r.db.NewStorePutter(propStoreName, bulk),
		head:    r.db.NewStorePutter(headStoreName, bulk),
		pending: make(map[thor.Bytes32]*BlockSummary),
		canonOf: make(map[uint32]thor.Bytes32),
	}
}

// Putter returns the underlying bulk.
func (b *Batch) Putter() kv.Putter {
	return b.bulk
}

func (b *Batch) getSummary(id thor.Bytes32) (*BlockSummary, error) {
	if s, ok := b.pending[id]; ok {
		return s, nil
	}
	return b.repo.GetBlockSummary(id)
}

func (b *Batch) canonicalID(num uint32) (thor.Bytes32, error) {
	if id, ok := b.canonOf[num]; ok {
		return id, nil
	}
	id, err := b.repo.canonicalID(num)
	if err != nil && !b.repo.IsNotFound(err) {
		return thor.Bytes32{}, err
	}
	return id, nil
}

// AddBlock saves the block with its undo receipts.
// The parent must be stored already, or added earlier into this batch.
func (b *Batch) AddBlock(blk *block.Block, receipts tx.Receipts) (*BlockSummary, error) {
	parent, err := b.getSummary(blk.Header().ParentID())
	if err != nil {
		return nil, errors.Wrap(err, "get parent")
	}
	return b.addBlock(blk, receipts, parent)
}

func (b *Batch) addBlock(blk *block.Block, receipts tx.Receipts, parent *BlockSummary) (*BlockSummary, error) {
	var (
		header = blk.Header()
		id     = header.ID()
		txs    = blk.Transactions()
		weight = b.repo.weight(header)
		total  = weight
	)
	if parent != nil {
		if parent.TotalWeight > math.MaxUint64-weight {
			return nil, errors.New("total weight overflow")
		}
		total += parent.TotalWeight
	}

	txIDs := make([]thor.Bytes32, 0, len(txs))
	for _, trx := range txs {
		txid := trx.ID()
		txIDs = append(txIDs, txid)
		if err := b.txi.Put(txIndexKey(txid, id), nil); err != nil {
			return nil, err
		}
	}

	summary := &BlockSummary{
		Header:      header,
		Txs:         txIDs,
		Size:        blk.Size(),
		TotalWeight: total,
	}
	if err := saveBlockSummary(b.hdr, summary); err != nil {
		return nil, err
	}
	if err := saveSnappyRLP(b.body, id[:], txs); err != nil {
		return nil, err
	}
	if err := saveSnappyRLP(b.receipt, id[:], receipts); err != nil {
		return nil, err
	}
	if err := b.height.Put(id[:], nil); err != nil {
		return nil, err
	}
	if parent != nil {
		parentID := header.ParentID()
		if err := b.head.Delete(parentID[:]); err != nil {
			return nil, err
		}
	}
	if err := b.head.Put(id[:], nil); err != nil {
		return nil, err
	}

	b.pending[id] = summary
	b.added = append(b.added, addedBlock{summary, txs, receipts})
	metricBlockRepoCounter().AddWithLabel(1, map[string]string{"type": "write", "target": "block"})
	return summary, nil
}

// SetBestBlockID makes the given block the best block, and rewrites the
// canonical index down to the block where the new and old chains meet.
func (b *Batch) SetBestBlockID(id thor.Bytes32) error {
	summary, err := b.getSummary(id)
	if err != nil {
		return errors.Wrap(err, "get best block")
	}

	oldBest := b.best
	if oldBest == nil {
		oldBest = b.repo.BestBlockSummary()
	}

	for cur := summary; ; {
		var (
			curID  = cur.Header.ID()
			curNum = cur.Header.Number()
		)
		canonID, err := b.canonicalID(curNum)
		if err != nil {
			return err
		}
		if canonID == curID {
			break
		}
		if err := b.canon.Put(numberKey(curNum), curID[:]); err != nil {
			return err
		}
		b.canonOf[curNum] = curID
		if curNum == 0 {
			break
		}
		if cur, err = b.getSummary(cur.Header.ParentID()); err != nil {
			return err
		}
	}

	// the new chain is shorter
	if oldBest != nil {
		for num := oldBest.Header.Number(); num > summary.Header.Number(); num-- {
			if err := b.canon.Delete(numberKey(num)); err != nil {
				return err
			}
			b.canonOf[num] = thor.Bytes32{}
		}
	}

	if err := b.prop.Put(bestBlockIDKey, id[:]); err != nil {
		return err
	}
	b.best = summary
	return nil
}

// MarkInvalid records the block as invalid, together with why.
func (b *Batch) MarkInvalid(id thor.Bytes32, mark *InvalidMark) error {
	if err := saveRLP(b.prop, invalidKey(id), mark); err != nil {
		return err
	}
	b.invalid = append(b.invalid, id)
	return nil
}

// Len returns the count of pending ops.
func (b *Batch) Len() int {
	return b.bulk.Len()
}

// Write commits the batch. Caches and the best block are updated only if
// the write succeeds.
func (b *Batch) Write() error {
	if err := b.bulk.Write(); err != nil {
		return err
	}

	for _, added := range b.added {
		id := added.summary.Header.ID()
		b.repo.caches.summaries.Add(id, added.summary)
		b.repo.caches.txs.Add(id, added.txs)
		b.repo.caches.receipts.Add(id, added.receipts)
	}
	if len(b.invalid) > 0 {
		metricInvalidBlockCount().Add(int64(len(b.invalid)))
	}
	if b.best != nil {
		b.repo.bestSummary.Store(b.best)
		metricBestBlockGauge().Set(int64(b.best.Header.Number()))
		metricTotalWeightGauge().Set(int64(b.best.TotalWeight))
		b.repo.tick.Broadcast()
	}
	return nil
}
