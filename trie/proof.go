// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trie

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"

	"github.com/vechain/ledger/thor"
)

// Proof is the list of encoded nodes on the path of a key, ordered from the
// deepest node up to the root. Each branch node carries the hashes of the
// siblings of the path, so the list is enough to recompute the root.
type Proof [][]byte

// Prove constructs a proof for key. The proof shows either the value of the
// key, or that the key is absent.
func (t *Trie) Prove(key []byte) (Proof, error) {
	// make sure every node on the path carries a hash
	t.Hash()

	var (
		proof Proof
		n     = t.root
		path  = keybytesToNibbles(key)
		pos   = 0
	)
	for n != nil {
		if h, ok := n.(hashNode); ok {
			rn, err := t.resolve(h, path[:pos])
			if err != nil {
				return nil, err
			}
			n = rn
		}
		enc, err := encodeToBytes(n)
		if err != nil {
			return nil, err
		}
		proof = append(proof, enc)

		switch cur := n.(type) {
		case *leafNode:
			n = nil
		case *branchNode:
			rest := path[pos:]
			if len(rest) <= len(cur.Prefix) || !bytes.HasPrefix(rest, cur.Prefix) {
				n = nil
				break
			}
			pos += len(cur.Prefix)
			n = cur.Children[path[pos]]
			pos++
		default:
			panic(fmt.Sprintf("%T: invalid node: %v", n, n))
		}
	}

	// leaf first
	for i, j := 0, len(proof)-1; i < j; i, j = i+1, j-1 {
		proof[i], proof[j] = proof[j], proof[i]
	}
	return proof, nil
}

// VerifyProof checks the proof against root and returns the value of key.
// A nil value with nil error means the proof shows the key is absent.
func VerifyProof(root thor.Bytes32, key []byte, proof Proof) ([]byte, error) {
	if root == EmptyRoot || root.IsZero() {
		if len(proof) != 0 {
			return nil, errors.New("non-empty proof for empty trie")
		}
		return nil, nil
	}

	var (
		want = root
		path = keybytesToNibbles(key)
		pos  = 0
	)
	for i := len(proof) - 1; i >= 0; i-- {
		blob := proof[i]
		if thor.Blake2b(blob) != want {
			return nil, fmt.Errorf("proof node %d: hash mismatch", len(proof)-1-i)
		}
		n, err := decodeNodeUnsafe(blob)
		if err != nil {
			return nil, errors.Wrapf(err, "proof node %d", len(proof)-1-i)
		}
		last := i == 0

		switch cur := n.(type) {
		case *leafNode:
			if !last {
				return nil, errors.New("proof continues past a leaf")
			}
			if bytes.Equal(cur.Key, path[pos:]) {
				return cur.Value, nil
			}
			return nil, nil
		case *branchNode:
			rest := path[pos:]
			if len(rest) <= len(cur.Prefix) || !bytes.HasPrefix(rest, cur.Prefix) {
				if !last {
					return nil, errors.New("proof continues past a divergent branch")
				}
				return nil, nil
			}
			pos += len(cur.Prefix)
			child := cur.Children[path[pos]]
			pos++
			if child == nil {
				if !last {
					return nil, errors.New("proof continues past an empty slot")
				}
				return nil, nil
			}
			want = thor.Bytes32(child.(hashNode))
		}
	}
	return nil, errors.New("proof is incomplete")
}
