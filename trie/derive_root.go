// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trie

import (
	"github.com/qianbin/drlp"

	"github.com/vechain/ledger/thor"
)

// DerivableList is the interface of lists whose root can be derived.
type DerivableList interface {
	Len() int
	GetRlp(i int) []byte
}

// DeriveRoot commits list items into an in-memory trie keyed by the RLP
// encoding of their index, and returns its root.
func DeriveRoot(list DerivableList) thor.Bytes32 {
	var (
		trie Trie
		key  []byte
	)
	for i := 0; i < list.Len(); i++ {
		// rlp encoded indexes are prefix-free
		key = drlp.AppendUint(key[:0], uint64(i))
		// no database involved, the update never fails
		_ = trie.Update(key, list.GetRlp(i))
	}
	return trie.Hash()
}
