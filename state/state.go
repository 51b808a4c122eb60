// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/vechain/ledger/account"
	"github.com/vechain/ledger/muxdb"
	"github.com/vechain/ledger/stackedmap"
	"github.com/vechain/ledger/thor"
	"github.com/vechain/ledger/trie"
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// State manages the accounts state.
type State struct {
	db    *muxdb.MuxDB
	root  thor.Bytes32
	trie  *trie.Trie // the accounts trie reader
	// cache of accounts trie, nil for absent
	cache map[thor.Address]*account.Account
	// keeps revisions of accounts state
	sm    *stackedmap.StackedMap[thor.Address, *account.Account]
}

// New create state object.
func New(db *muxdb.MuxDB, root thor.Bytes32) *State {
	state := State{
		db:    db,
		root:  root,
		trie:  db.NewTrie(root),
		cache: make(map[thor.Address]*account.Account),
	}
	state.sm = stackedmap.New(state.cacheGetter)
	return &state
}

// Root returns the root the state was created at.
func (s *State) Root() thor.Bytes32 {
	return s.root
}

// Checkout checkouts to another state.
func (s *State) Checkout(root thor.Bytes32) *State {
	return New(s.db, root)
}

// cacheGetter implements stackedmap.MapGetter.
func (s *State) cacheGetter(addr thor.Address) (*account.Account, bool, error) {
	if acc, ok := s.cache[addr]; ok {
		metricAccountCounter().AddWithLabel(1, map[string]string{"type": "read", "target": "cache"})
		return acc, true, nil
	}
	metricAccountCounter().AddWithLabel(1, map[string]string{"type": "read", "target": "trie"})

	acc, err := loadAccount(s.trie, addr)
	if err != nil {
		return nil, false, err
	}
	s.cache[addr] = acc
	return acc, true, nil
}

func loadAccount(tr *trie.Trie, addr thor.Address) (*account.Account, error) {
	data, err := tr.Get(addr[:])
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var acc account.Account
	if err := rlp.DecodeBytes(data, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (s *State) getAccount(addr thor.Address) (*account.Account, error) {
	acc, _, err := s.sm.Get(addr)
	if err != nil {
		return nil, &Error{err}
	}
	return acc, nil
}

// GetAccount returns a copy of the account at addr, or nil if absent.
func (s *State) GetAccount(addr thor.Address) (*account.Account, error) {
	acc, err := s.getAccount(addr)
	if err != nil || acc == nil {
		return nil, err
	}
	return acc.Copy(), nil
}

// GetRaw returns the rlp encoded account at addr, or nil if absent.
func (s *State) GetRaw(addr thor.Address) ([]byte, error) {
	acc, err := s.getAccount(addr)
	if err != nil || acc == nil {
		return nil, err
	}
	return rlp.EncodeToBytes(acc)
}

// Exists returns whether an account exists at addr.
func (s *State) Exists(addr thor.Address) (bool, error) {
	acc, err := s.getAccount(addr)
	if err != nil {
		return false, err
	}
	return acc != nil, nil
}

// SetAccount sets the account at addr.
// An empty account removes the entry.
func (s *State) SetAccount(addr thor.Address, acc *account.Account) {
	if acc.IsEmpty() {
		s.sm.Put(addr, nil)
		return
	}
	s.sm.Put(addr, acc.Copy())
}

// SetRaw sets the account at addr from its rlp encoding.
// Empty data removes the entry.
func (s *State) SetRaw(addr thor.Address, data []byte) error {
	if len(data) == 0 {
		s.sm.Put(addr, nil)
		return nil
	}
	var acc account.Account
	if err := rlp.DecodeBytes(data, &acc); err != nil {
		return err
	}
	s.SetAccount(addr, &acc)
	return nil
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	if revision < 0 {
		panic("invalid revision")
	}
	s.sm.PopTo(revision)
}

// Prove produces the proof of the account at addr against Root.
// Pending changes are not reflected.
func (s *State) Prove(addr thor.Address) (trie.Proof, error) {
	proof, err := s.trie.Prove(addr[:])
	if err != nil {
		return nil, &Error{err}
	}
	return proof, nil
}

// Stage makes a stage object to compute hash of trie or commit all changes.
func (s *State) Stage() (*Stage, error) {
	changes := make(map[thor.Address]*account.Account)
	s.sm.Journal(func(addr thor.Address, acc *account.Account) bool {
		changes[addr] = acc
		return true
	})

	tr := s.db.NewTrie(s.root)
	for addr, acc := range changes {
		if err := saveAccount(tr, addr, acc); err != nil {
			return nil, &Error{err}
		}
	}
	return &Stage{db: s.db, trie: tr}, nil
}

func saveAccount(tr *trie.Trie, addr thor.Address, acc *account.Account) error {
	if acc.IsEmpty() {
		// delete if account is empty
		return tr.Delete(addr[:])
	}
	data, err := rlp.EncodeToBytes(acc)
	if err != nil {
		return err
	}
	return tr.Update(addr[:], data)
}
