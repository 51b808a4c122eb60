// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trie

import (
	"bytes"
	"sync"

	"github.com/vechain/ledger/thor"
)

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// hash computes the hash of n bottom up, caching hashes in copies of the
// visited nodes. Nodes above an unchanged subtree keep their cached hash, so
// only nodes on modified paths are rehashed.
//
// If w is not nil, every dirty node is written to it and marked clean.
func hash(n node, w DatabaseWriter) (thor.Bytes32, node, error) {
	switch n := n.(type) {
	case hashNode:
		return thor.Bytes32(n), n, nil

	case *leafNode:
		if n.flags.hash != nil && (!n.flags.dirty || w == nil) {
			return *n.flags.hash, n, nil
		}
		return store(n.copy(), w)

	case *branchNode:
		if n.flags.hash != nil && (!n.flags.dirty || w == nil) {
			return *n.flags.hash, n, nil
		}
		cached := n.copy()
		for i, child := range n.Children {
			if child == nil {
				continue
			}
			_, cc, err := hash(child, w)
			if err != nil {
				return thor.Bytes32{}, n, err
			}
			cached.Children[i] = cc
		}
		return store(cached, w)

	default:
		panic("hash: unexpected node")
	}
}

// store encodes n, sets its cached hash and writes it when w is given.
// n must be a private copy.
func store(n node, w DatabaseWriter) (thor.Bytes32, node, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	defer bufferPool.Put(buf)
	buf.Reset()

	if err := encodeNode(buf, n); err != nil {
		return thor.Bytes32{}, n, err
	}
	h := thor.Blake2b(buf.Bytes())

	var flag *nodeFlag
	switch n := n.(type) {
	case *leafNode:
		flag = &n.flags
	case *branchNode:
		flag = &n.flags
	}

	if flag.dirty && w != nil {
		if err := w.Put(h[:], buf.Bytes()); err != nil {
			return thor.Bytes32{}, n, err
		}
		flag.dirty = false
	}
	flag.hash = &h
	return h, n, nil
}
