// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain

import (
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/vechain/ledger/block"
	"github.com/vechain/ledger/cache"
	"github.com/vechain/ledger/co"
	"github.com/vechain/ledger/kv"
	"github.com/vechain/ledger/log"
	"github.com/vechain/ledger/muxdb"
	"github.com/vechain/ledger/thor"
	"github.com/vechain/ledger/tx"
)

var (
	logger      = log.WithContext("pkg", "chain")
	errNotFound = errors.New("not found")
)

// Repository stores block summaries, txs and receipts of every known block,
// and tracks the canonical chain.
//
// It's thread-safe.
type Repository struct {
	db           *muxdb.MuxDB
	hdrStore     kv.Store
	bodyStore    kv.Store
	receiptStore kv.Store
	heightStore  kv.Store
	canonStore   kv.Store
	txIndexer    kv.Store
	propStore    kv.Store
	headStore    kv.Store

	genesis *block.Block
	weight  WeightFunc

	bestSummary atomic.Pointer[BlockSummary]
	tick        co.Signal

	caches struct {
		summaries *cache.LRU[thor.Bytes32, *BlockSummary]
		txs       *cache.LRU[thor.Bytes32, tx.Transactions]
		receipts  *cache.LRU[thor.Bytes32, tx.Receipts]
	}
}

// Option configures the repository.
type Option func(*Repository)

// WithWeight sets the block weight function. It defaults to DifficultyWeight.
func WithWeight(fn WeightFunc) Option {
	return func(r *Repository) {
		r.weight = fn
	}
}

// NewRepository create an instance of repository.
// The genesis block is saved as best if the database is empty, otherwise the
// saved chain must descend from it.
func NewRepository(db *muxdb.MuxDB, genesis *block.Block, opts ...Option) (*Repository, error) {
	if genesis.Header().Number() != 0 {
		return nil, errors.New("genesis number != 0")
	}
	if len(genesis.Transactions()) != 0 {
		return nil, errors.New("genesis block should not have transactions")
	}

	genesisID := genesis.Header().ID()
	repo := &Repository{
		db:           db,
		hdrStore:     db.NewStore(hdrStoreName),
		bodyStore:    db.NewStore(bodyStoreName),
		receiptStore: db.NewStore(receiptStoreName),
		heightStore:  db.NewStore(heightStoreName),
		canonStore:   db.NewStore(canonStoreName),
		txIndexer:    db.NewStore(txIndexStoreName),
		propStore:    db.NewStore(propStoreName),
		headStore:    db.NewStore(headStoreName),
		genesis:      genesis,
		weight:       DifficultyWeight,
	}
	for _, opt := range opts {
		opt(repo)
	}

	repo.caches.summaries = cache.NewLRU[thor.Bytes32, *BlockSummary](512)
	repo.caches.txs = cache.NewLRU[thor.Bytes32, tx.Transactions](256)
	repo.caches.receipts = cache.NewLRU[thor.Bytes32, tx.Receipts](256)

	if val, err := repo.propStore.Get(bestBlockIDKey); err != nil {
		if !repo.propStore.IsNotFound(err) {
			return nil, err
		}

		batch := repo.NewBatch()
		if _, err := batch.addBlock(genesis, tx.Receipts{}, nil); err != nil {
			return nil, err
		}
		if err := batch.SetBestBlockID(genesisID); err != nil {
			return nil, err
		}
		if err := batch.Write(); err != nil {
			return nil, err
		}
	} else {
		bestID := thor.BytesToBytes32(val)
		existingGenesisID, err := repo.NewChain(bestID).GetBlockID(0)
		if err != nil {
			return nil, errors.Wrap(err, "get existing genesis id")
		}
		if existingGenesisID != genesisID {
			return nil, errors.New("genesis mismatch")
		}

		summary, err := repo.GetBlockSummary(bestID)
		if err != nil {
			return nil, errors.Wrap(err, "get best block")
		}
		repo.bestSummary.Store(summary)
	}
	return repo, nil
}

// GenesisBlock returns genesis block.
func (r *Repository) GenesisBlock() *block.Block {
	return r.genesis
}

// BestBlockSummary returns the summary of the best block, which is the newest block of canonical chain.
func (r *Repository) BestBlockSummary() *BlockSummary {
	return r.bestSummary.Load()
}

// Weight returns the weight blk adds to its chain.
func (r *Repository) Weight(header *block.Header) uint64 {
	return r.weight(header)
}

// IsNotFound returns if the given error means not found.
func (r *Repository) IsNotFound(err error) bool {
	return errors.Cause(err) == errNotFound || r.db.IsNotFound(errors.Cause(err))
}

// NewTicker create a signal Waiter to receive event that the best block changed.
func (r *Repository) NewTicker() co.Waiter {
	return r.tick.NewWaiter()
}

func (r *Repository) logCacheStats(name string, stats *cache.Stats) {
	if changed, hit, miss := stats.Stats(); changed {
		metricCacheHitMiss().SetWithLabel(hit, map[string]string{"type": name, "event": "hit"})
		metricCacheHitMiss().SetWithLabel(miss, map[string]string{"type": name, "event": "miss"})
	}
}

// GetBlockSummary get block summary by block id.
func (r *Repository) GetBlockSummary(id thor.Bytes32) (*BlockSummary, error) {
	summary, err := r.caches.summaries.GetOrLoad(id, func(id thor.Bytes32) (*BlockSummary, error) {
		metricBlockRepoCounter().AddWithLabel(1, map[string]string{"type": "read", "target": "summary"})
		return loadBlockSummary(r.hdrStore, id)
	})
	if err != nil {
		return nil, err
	}
	r.logCacheStats("summary", r.caches.summaries.Stats())
	return summary, nil
}

// HasBlock returns whether the block is stored.
func (r *Repository) HasBlock(id thor.Bytes32) (bool, error) {
	if r.caches.summaries.Contains(id) {
		return true, nil
	}
	return r.hdrStore.Has(id[:])
}

// TotalWeight returns the cumulated weight from genesis to the block.
func (r *Repository) TotalWeight(id thor.Bytes32) (uint64, error) {
	summary, err := r.GetBlockSummary(id)
	if err != nil {
		return 0, err
	}
	return summary.TotalWeight, nil
}

// GetBlockTransactions get all transactions of the block for given block id.
func (r *Repository) GetBlockTransactions(id thor.Bytes32) (tx.Transactions, error) {
	txs, err := r.caches.txs.GetOrLoad(id, func(id thor.Bytes32) (tx.Transactions, error) {
		metricBlockRepoCounter().AddWithLabel(1, map[string]string{"type": "read", "target": "body"})
		return loadTransactions(r.bodyStore, id)
	})
	if err != nil {
		return nil, err
	}
	r.logCacheStats("body", r.caches.txs.Stats())
	return txs, nil
}

// GetBlock get block by id.
func (r *Repository) GetBlock(id thor.Bytes32) (*block.Block, error) {
	summary, err := r.GetBlockSummary(id)
	if err != nil {
		return nil, err
	}
	txs, err := r.GetBlockTransactions(id)
	if err != nil {
		return nil, err
	}
	return block.Compose(summary.Header, txs), nil
}

// GetBlockReceipts get the undo receipts of the block for given block id.
func (r *Repository) GetBlockReceipts(id thor.Bytes32) (tx.Receipts, error) {
	receipts, err := r.caches.receipts.GetOrLoad(id, func(id thor.Bytes32) (tx.Receipts, error) {
		metricBlockRepoCounter().AddWithLabel(1, map[string]string{"type": "read", "target": "receipt"})
		return loadReceipts(r.receiptStore, id)
	})
	if err != nil {
		return nil, err
	}
	r.logCacheStats("receipt", r.caches.receipts.Stats())
	return receipts, nil
}

// GetBlockIDsByNumber returns ids of all known blocks at num, on any fork.
func (r *Repository) GetBlockIDsByNumber(num uint32) ([]thor.Bytes32, error) {
	iter := r.heightStore.Iterate(kv.Range(*util.BytesPrefix(numberKey(num))))
	defer iter.Release()

	var ids []thor.Bytes32
	for iter.Next() {
		ids = append(ids, thor.BytesToBytes32(iter.Key()))
	}
	return ids, iter.Error()
}

// GetBlocksByNumber returns all known blocks at num, on any fork.
func (r *Repository) GetBlocksByNumber(num uint32) ([]*block.Block, error) {
	ids, err := r.GetBlockIDsByNumber(num)
	if err != nil {
		return nil, err
	}
	blocks := make([]*block.Block, 0, len(ids))
	for _, id := range ids {
		blk, err := r.GetBlock(id)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, blk)
	}
	return blocks, nil
}

// ScanHeads returns all head blockIDs from the given blockNum(included) in descending order.
// It will return all fork's head block id stored in to local database after the given block number.
// The following example will return B' and C.
// A -> B -> C
//
//	\ -> B'
func (r *Repository) ScanHeads(from uint32) ([]thor.Bytes32, error) {
	iter := r.headStore.Iterate(kv.Range{Start: numberKey(from)})
	defer iter.Release()

	heads := make([]thor.Bytes32, 0, 16)
	for ok := iter.Last(); ok; ok = iter.Prev() {
		heads = append(heads, thor.BytesToBytes32(iter.Key()))
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return heads, nil
}

// IsInvalid returns whether the block was marked invalid.
func (r *Repository) IsInvalid(id thor.Bytes32) (bool, error) {
	return r.propStore.Has(invalidKey(id))
}

// GetInvalidMark returns the mark of an invalid block, nil if the block is
// not marked.
func (r *Repository) GetInvalidMark(id thor.Bytes32) (*InvalidMark, error) {
	var mark InvalidMark
	if err := loadRLP(r.propStore, invalidKey(id), &mark); err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &mark, nil
}

func (r *Repository) canonicalID(num uint32) (thor.Bytes32, error) {
	val, err := r.canonStore.Get(numberKey(num))
	if err != nil {
		return thor.Bytes32{}, err
	}
	return thor.BytesToBytes32(val), nil
}
