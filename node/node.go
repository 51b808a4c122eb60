// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package node is the facade of the ledger. It accepts blocks, selects the
// heaviest chain and keeps the head state in sync with it.
package node

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/event"

	"github.com/vechain/ledger/account"
	"github.com/vechain/ledger/block"
	"github.com/vechain/ledger/cache"
	"github.com/vechain/ledger/chain"
	"github.com/vechain/ledger/log"
	"github.com/vechain/ledger/state"
	"github.com/vechain/ledger/thor"
	"github.com/vechain/ledger/trie"
	"github.com/vechain/ledger/tx"
)

var logger = log.WithContext("pkg", "node")

const (
	defaultOrphanLimit   = 1024
	defaultRejectedLimit = 1024
)

// Engine validates blocks and moves states across them.
// *consensus.Consensus is the implementation.
type Engine interface {
	Process(parent *chain.BlockSummary, blk *block.Block, nowTimestamp uint64) (*state.Stage, tx.Receipts, error)
	ApplyBlock(st *state.State, blk *block.Block) (*state.Stage, tx.Receipts, error)
	RevertBlock(st *state.State, blk *block.Block, receipts tx.Receipts, parentRoot thor.Bytes32) (*state.Stage, error)
}

// Option configures a Node.
type Option func(*Node)

// WithOrphanLimit bounds the count of blocks held for unknown parents.
func WithOrphanLimit(limit int) Option {
	return func(n *Node) {
		n.orphans = newOrphanPool(limit)
	}
}

// WithClock sets the source of the current unix time.
func WithClock(now func() uint64) Option {
	return func(n *Node) {
		n.now = now
	}
}

// Node owns the head of the ledger. Blocks are added one at a time,
// reads run against the last committed head without locking.
type Node struct {
	repo   *chain.Repository
	stater *state.Stater
	engine Engine
	now    func() uint64

	processLock sync.Mutex
	orphans     *orphanPool
	rejected    *cache.LRU[thor.Bytes32, error]
	fatal       error

	head             atomic.Value // Head
	headChangedFeed  event.Feed
	forkDetectedFeed event.Feed
	scope            event.SubscriptionScope
}

// New creates a node on top of the best block of repo.
func New(repo *chain.Repository, stater *state.Stater, engine Engine, opts ...Option) *Node {
	n := &Node{
		repo:     repo,
		stater:   stater,
		engine:   engine,
		now:      func() uint64 { return uint64(time.Now().Unix()) },
		orphans:  newOrphanPool(defaultOrphanLimit),
		rejected: cache.NewLRU[thor.Bytes32, error](defaultRejectedLimit),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.setHead(repo.BestBlockSummary())
	return n
}

func (n *Node) setHead(summary *chain.BlockSummary) Head {
	head := Head{
		ID:        summary.Header.ID(),
		Number:    summary.Header.Number(),
		StateRoot: summary.Header.StateRoot(),
	}
	n.head.Store(head)
	return head
}

// CurrentHead returns the head block.
func (n *Node) CurrentHead() Head {
	return n.head.Load().(Head)
}

// Repo returns the chain repository.
func (n *Node) Repo() *chain.Repository {
	return n.repo
}

// State returns a snapshot of the head state.
func (n *Node) State() *state.State {
	return n.stater.NewState(n.CurrentHead().StateRoot)
}

// GetAccount returns the account at addr in the head state, nil if absent.
func (n *Node) GetAccount(addr thor.Address) (*account.Account, error) {
	return n.State().GetAccount(addr)
}

// Prove returns the proof of the account at addr against the head state root.
func (n *Node) Prove(addr thor.Address) (thor.Bytes32, trie.Proof, error) {
	st := n.State()
	proof, err := st.Prove(addr)
	if err != nil {
		return thor.Bytes32{}, nil, err
	}
	return st.Root(), proof, nil
}

// SubscribeHeadChanged subscribes to head changes.
func (n *Node) SubscribeHeadChanged(ch chan<- *HeadChanged) event.Subscription {
	return n.scope.Track(n.headChangedFeed.Subscribe(ch))
}

// SubscribeForkDetected subscribes to detected forks.
func (n *Node) SubscribeForkDetected(ch chan<- *ForkDetected) event.Subscription {
	return n.scope.Track(n.forkDetectedFeed.Subscribe(ch))
}

// Close unsubscribes all subscribers.
func (n *Node) Close() {
	n.scope.Close()
}

// OrphanCount returns the count of blocks held for unknown parents.
func (n *Node) OrphanCount() int {
	n.processLock.Lock()
	defer n.processLock.Unlock()
	return n.orphans.Len()
}

func (n *Node) notify(events []any) {
	for _, ev := range events {
		switch ev := ev.(type) {
		case *HeadChanged:
			n.headChangedFeed.Send(ev)
		case *ForkDetected:
			n.forkDetectedFeed.Send(ev)
		}
	}
}
