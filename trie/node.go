// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trie

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/ledger/thor"
)

// node type tags, the first item of every encoded node.
const (
	leafTag   = uint(0)
	branchTag = uint(1)
)

var indices = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "a", "b", "c", "d", "e", "f"}

type node interface {
	fstring(string) string
}

type (
	// branchNode holds the nibbles shared by all keys below it and at least two children.
	branchNode struct {
		Prefix   []byte
		Children [16]node
		flags    nodeFlag
	}
	// leafNode holds the remaining nibbles of one key and its value.
	leafNode struct {
		Key   []byte
		Value []byte
		flags nodeFlag
	}
	// hashNode refers to a node not yet loaded from the database.
	hashNode thor.Bytes32
)

// nodeFlag contains caching-related metadata about a node.
type nodeFlag struct {
	hash  *thor.Bytes32 // cached hash of the node (may be nil)
	dirty bool          // whether the node must be written to the database
}

func newFlag() nodeFlag { return nodeFlag{dirty: true} }

func (n *branchNode) copy() *branchNode { copy := *n; return &copy }
func (n *leafNode) copy() *leafNode     { copy := *n; return &copy }

func (n *branchNode) String() string { return n.fstring("") }
func (n *leafNode) String() string   { return n.fstring("") }
func (n hashNode) String() string    { return n.fstring("") }

func (n *branchNode) fstring(ind string) string {
	resp := fmt.Sprintf("<%x>[\n%s  ", n.Prefix, ind)
	for i, child := range n.Children {
		if child != nil {
			resp += fmt.Sprintf("%s: %v", indices[i], child.fstring(ind+"  "))
		}
	}
	return resp + fmt.Sprintf("\n%s] ", ind)
}

func (n *leafNode) fstring(ind string) string {
	return fmt.Sprintf("{%x: %x} ", n.Key, n.Value)
}

func (n hashNode) fstring(ind string) string {
	return fmt.Sprintf("<%x> ", n[:])
}

type (
	encodedHead struct {
		Tag  uint
		Path []byte
		Rest rlp.RawValue
	}
	encodedLeaf struct {
		Tag   uint
		Key   []byte
		Value []byte
	}
	encodedBranch struct {
		Tag      uint
		Prefix   []byte
		Children [16][]byte
	}
)

// encodeNode writes the canonical encoding of n. Children of a branch must
// already carry a hash, either as hashNode or through their cached flag.
func encodeNode(w io.Writer, n node) error {
	switch n := n.(type) {
	case *leafNode:
		return rlp.Encode(w, &encodedLeaf{leafTag, compactEncode(n.Key), n.Value})
	case *branchNode:
		enc := encodedBranch{Tag: branchTag, Prefix: compactEncode(n.Prefix)}
		for i, child := range n.Children {
			switch c := child.(type) {
			case nil:
			case hashNode:
				enc.Children[i] = c[:]
			case *leafNode:
				if c.flags.hash == nil {
					return errors.New("encode branch: unhashed child")
				}
				enc.Children[i] = c.flags.hash[:]
			case *branchNode:
				if c.flags.hash == nil {
					return errors.New("encode branch: unhashed child")
				}
				enc.Children[i] = c.flags.hash[:]
			}
		}
		return rlp.Encode(w, &enc)
	default:
		return fmt.Errorf("encode: unexpected node %T", n)
	}
}

// decodeNode parses the encoded node whose content hash is hash.
func decodeNode(hash thor.Bytes32, blob []byte) (node, error) {
	n, err := decodeNodeUnsafe(blob)
	if err != nil {
		return nil, errors.Wrapf(err, "decode node %v", hash)
	}
	flags := nodeFlag{hash: &hash}
	switch n := n.(type) {
	case *leafNode:
		n.flags = flags
	case *branchNode:
		n.flags = flags
	}
	return n, nil
}

func decodeNodeUnsafe(blob []byte) (node, error) {
	var head encodedHead
	if err := rlp.DecodeBytes(blob, &head); err != nil {
		return nil, err
	}
	path, err := compactDecode(head.Path)
	if err != nil {
		return nil, err
	}

	switch head.Tag {
	case leafTag:
		var value []byte
		if err := rlp.DecodeBytes(head.Rest, &value); err != nil {
			return nil, err
		}
		if len(value) == 0 {
			return nil, errors.New("empty leaf value")
		}
		return &leafNode{Key: path, Value: value}, nil
	case branchTag:
		var children [16][]byte
		if err := rlp.DecodeBytes(head.Rest, &children); err != nil {
			return nil, err
		}
		n := &branchNode{Prefix: path}
		count := 0
		for i, c := range children {
			switch len(c) {
			case 0:
			case 32:
				n.Children[i] = hashNode(thor.BytesToBytes32(c))
				count++
			default:
				return nil, fmt.Errorf("invalid child ref length %d", len(c))
			}
		}
		if count < 2 {
			return nil, errors.New("branch with less than two children")
		}
		return n, nil
	default:
		return nil, fmt.Errorf("invalid node tag %d", head.Tag)
	}
}

// hashOf returns the cached hash of a resolved or unresolved node.
func hashOf(n node) (thor.Bytes32, bool) {
	switch n := n.(type) {
	case hashNode:
		return thor.Bytes32(n), true
	case *leafNode:
		if n.flags.hash != nil {
			return *n.flags.hash, true
		}
	case *branchNode:
		if n.flags.hash != nil {
			return *n.flags.hash, true
		}
	}
	return thor.Bytes32{}, false
}

func encodeToBytes(n node) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeNode(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
