// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/vechain/ledger/kv"
	"github.com/vechain/ledger/muxdb"
	"github.com/vechain/ledger/thor"
	"github.com/vechain/ledger/trie"
)

// Stage abstracts changes on the accounts trie.
type Stage struct {
	db   *muxdb.MuxDB
	trie *trie.Trie
}

// Hash computes hash of the changed trie.
func (s *Stage) Hash() thor.Bytes32 {
	return s.trie.Hash()
}

// Commit writes the dirty trie nodes through putter and returns the root.
// Pass a bulk putter to commit nodes together with other records.
func (s *Stage) Commit(putter kv.Putter) (thor.Bytes32, error) {
	root, err := s.trie.Commit(s.db.NewTrieNodePutter(putter))
	if err != nil {
		return thor.Bytes32{}, &Error{err}
	}
	return root, nil
}
