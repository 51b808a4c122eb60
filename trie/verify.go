// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trie

import (
	"fmt"

	"github.com/vechain/ledger/thor"
)

// Verify walks every node reachable from root and checks each is present
// and matches its content hash. It returns nil only if the whole trie under
// root can be rebuilt from db.
func Verify(root thor.Bytes32, db DatabaseReader) error {
	if root.IsZero() || root == EmptyRoot {
		return nil
	}

	type item struct {
		hash thor.Bytes32
		path []byte
	}
	stack := []item{{root, nil}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		blob, err := db.Get(it.hash[:])
		if err != nil {
			return &MissingNodeError{NodeHash: it.hash, Path: it.path, Err: err}
		}
		if h := thor.Blake2b(blob); h != it.hash {
			return fmt.Errorf("corrupted trie node %v (path %x): content hash %v", it.hash, it.path, h)
		}
		n, err := decodeNode(it.hash, blob)
		if err != nil {
			return err
		}
		if br, ok := n.(*branchNode); ok {
			for i, c := range br.Children {
				if c != nil {
					stack = append(stack, item{thor.Bytes32(c.(hashNode)), concat(it.path, br.Prefix, []byte{byte(i)})})
				}
			}
		}
	}
	return nil
}
