// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package trie implements the Merkle patricia trie committing the account set.
//
// Keys are split into nibbles. A branch node carries the nibbles shared by
// every key below it (patricia compression) and at least two children, a leaf
// carries the rest of one key and its value. Children are always referenced
// by their content hash, so the hash of a node is a pure function of its
// subtree and the root hash commits the whole key set, independently of the
// order in which keys were inserted.
//
// Keys stored in one trie must be prefix-free (e.g. fixed length).
package trie

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/ledger/thor"
)

// EmptyRoot is the root hash of an empty trie.
var EmptyRoot = thor.Blake2b(rlp.EmptyString)

var errKeyPrefix = errors.New("key is a prefix of another key")

// DatabaseReader wraps the Get method of a backing store for the trie.
type DatabaseReader interface {
	Get(key []byte) ([]byte, error)
}

// DatabaseWriter wraps the Put method of a backing store for the trie.
type DatabaseWriter interface {
	// Put stores the mapping key->value in the database.
	// Implementations must not hold onto the value bytes, the trie
	// will reuse the slice across calls to Put.
	Put(key, value []byte) error
}

// MissingNodeError is returned by the trie functions (Get, Update, Delete)
// in the case where a trie node is not present in the local database.
type MissingNodeError struct {
	NodeHash thor.Bytes32 // hash of the missing node
	Path     []byte       // hex-encoded path to the missing node
	Err      error        // the actual error
}

func (err *MissingNodeError) Error() string {
	return fmt.Sprintf("missing trie node %v (path %x) reason: %v", err.NodeHash, err.Path, err.Err)
}

// Trie is a Merkle patricia trie.
// The zero value is an empty trie with no database.
// Use New to create a trie that sits on top of a database.
//
// Trie is not safe for concurrent use.
type Trie struct {
	root node
	db   DatabaseReader
}

// New creates a trie with an existing root node from db.
//
// If root is zero or EmptyRoot, the trie is initially empty.
// Accessing the trie loads nodes from db on demand.
func New(root thor.Bytes32, db DatabaseReader) *Trie {
	t := &Trie{db: db}
	if !root.IsZero() && root != EmptyRoot {
		t.root = hashNode(root)
	}
	return t
}

// Get returns the value for key stored in the trie.
// A nil value is returned if the key is absent.
func (t *Trie) Get(key []byte) ([]byte, error) {
	var (
		n    = t.root
		path = keybytesToNibbles(key)
		pos  = 0
	)
	for {
		switch cur := n.(type) {
		case nil:
			return nil, nil
		case *leafNode:
			if bytes.Equal(cur.Key, path[pos:]) {
				return cur.Value, nil
			}
			return nil, nil
		case *branchNode:
			rest := path[pos:]
			if len(rest) <= len(cur.Prefix) || !bytes.HasPrefix(rest, cur.Prefix) {
				return nil, nil
			}
			pos += len(cur.Prefix)
			n = cur.Children[path[pos]]
			pos++
		case hashNode:
			resolved, err := t.resolve(cur, path[:pos])
			if err != nil {
				return nil, err
			}
			n = resolved
		default:
			panic(fmt.Sprintf("%T: invalid node: %v", n, n))
		}
	}
}

// Update associates key with value in the trie. If value has length zero,
// any existing value is deleted from the trie.
//
// The value bytes must not be modified by the caller while they are
// stored in the trie.
func (t *Trie) Update(key, value []byte) error {
	k := keybytesToNibbles(key)
	if len(value) == 0 {
		_, n, err := t.delete(t.root, nil, k)
		if err != nil {
			return err
		}
		t.root = n
		return nil
	}
	_, n, err := t.insert(t.root, nil, k, value)
	if err != nil {
		return err
	}
	t.root = n
	return nil
}

// Delete removes any existing value for key from the trie.
func (t *Trie) Delete(key []byte) error {
	return t.Update(key, nil)
}

func (t *Trie) insert(n node, prefix, key, value []byte) (bool, node, error) {
	switch n := n.(type) {
	case nil:
		return true, &leafNode{Key: key, Value: value, flags: newFlag()}, nil

	case *leafNode:
		matchlen := commonPrefixLen(n.Key, key)
		if matchlen == len(n.Key) && matchlen == len(key) {
			if bytes.Equal(n.Value, value) {
				return false, n, nil
			}
			return true, &leafNode{Key: n.Key, Value: value, flags: newFlag()}, nil
		}
		if matchlen == len(n.Key) || matchlen == len(key) {
			return false, n, errKeyPrefix
		}
		// split into a branch holding both leaves
		branch := &branchNode{Prefix: key[:matchlen], flags: newFlag()}
		branch.Children[n.Key[matchlen]] = &leafNode{Key: n.Key[matchlen+1:], Value: n.Value, flags: newFlag()}
		branch.Children[key[matchlen]] = &leafNode{Key: key[matchlen+1:], Value: value, flags: newFlag()}
		return true, branch, nil

	case *branchNode:
		matchlen := commonPrefixLen(n.Prefix, key)
		if matchlen == len(key) {
			return false, n, errKeyPrefix
		}
		if matchlen < len(n.Prefix) {
			// the key diverges inside the compressed prefix, push the
			// current branch one level down.
			branch := &branchNode{Prefix: key[:matchlen], flags: newFlag()}
			branch.Children[n.Prefix[matchlen]] = &branchNode{
				Prefix:   n.Prefix[matchlen+1:],
				Children: n.Children,
				flags:    newFlag(),
			}
			branch.Children[key[matchlen]] = &leafNode{Key: key[matchlen+1:], Value: value, flags: newFlag()}
			return true, branch, nil
		}
		idx := key[matchlen]
		dirty, child, err := t.insert(n.Children[idx], concat(prefix, key[:matchlen+1]), key[matchlen+1:], value)
		if !dirty || err != nil {
			return false, n, err
		}
		n = n.copy()
		n.flags = newFlag()
		n.Children[idx] = child
		return true, n, nil

	case hashNode:
		rn, err := t.resolve(n, prefix)
		if err != nil {
			return false, n, err
		}
		dirty, nn, err := t.insert(rn, prefix, key, value)
		if !dirty || err != nil {
			return false, rn, err
		}
		return true, nn, nil

	default:
		panic(fmt.Sprintf("%T: invalid node: %v", n, n))
	}
}

func (t *Trie) delete(n node, prefix, key []byte) (bool, node, error) {
	switch n := n.(type) {
	case nil:
		return false, nil, nil

	case *leafNode:
		if bytes.Equal(n.Key, key) {
			return true, nil, nil
		}
		return false, n, nil

	case *branchNode:
		matchlen := commonPrefixLen(n.Prefix, key)
		if matchlen < len(n.Prefix) || matchlen == len(key) {
			return false, n, nil
		}
		idx := key[matchlen]
		childPrefix := concat(prefix, key[:matchlen+1])
		dirty, child, err := t.delete(n.Children[idx], childPrefix, key[matchlen+1:])
		if !dirty || err != nil {
			return false, n, err
		}
		n = n.copy()
		n.flags = newFlag()
		n.Children[idx] = child
		if child != nil {
			return true, n, nil
		}

		pos := -1
		for i, c := range n.Children {
			if c != nil {
				if pos >= 0 {
					// two or more children remain
					return true, n, nil
				}
				pos = i
			}
		}
		// only one child left, collapse this branch into it so that the
		// shape stays a function of the key set.
		only := n.Children[pos]
		if h, ok := only.(hashNode); ok {
			if only, err = t.resolve(h, concat(prefix, n.Prefix, []byte{byte(pos)})); err != nil {
				return false, nil, err
			}
		}
		switch c := only.(type) {
		case *leafNode:
			return true, &leafNode{
				Key:   concat(n.Prefix, []byte{byte(pos)}, c.Key),
				Value: c.Value,
				flags: newFlag(),
			}, nil
		case *branchNode:
			return true, &branchNode{
				Prefix:   concat(n.Prefix, []byte{byte(pos)}, c.Prefix),
				Children: c.Children,
				flags:    newFlag(),
			}, nil
		default:
			panic(fmt.Sprintf("%T: invalid node: %v", c, c))
		}

	case hashNode:
		rn, err := t.resolve(n, prefix)
		if err != nil {
			return false, n, err
		}
		dirty, nn, err := t.delete(rn, prefix, key)
		if !dirty || err != nil {
			return false, rn, err
		}
		return true, nn, nil

	default:
		panic(fmt.Sprintf("%T: invalid node: %v (%v)", n, n, key))
	}
}

func (t *Trie) resolve(n hashNode, prefix []byte) (node, error) {
	if t.db == nil {
		return nil, &MissingNodeError{NodeHash: thor.Bytes32(n), Path: prefix, Err: errors.New("no database")}
	}
	blob, err := t.db.Get(n[:])
	if err != nil {
		return nil, &MissingNodeError{NodeHash: thor.Bytes32(n), Path: prefix, Err: err}
	}
	return decodeNode(thor.Bytes32(n), blob)
}

// Hash returns the root hash of the trie. It does not write to the
// database and can be used even if the trie doesn't have one.
func (t *Trie) Hash() thor.Bytes32 {
	if t.root == nil {
		return EmptyRoot
	}
	// hashing without a writer cannot fail
	h, cached, _ := hash(t.root, nil)
	t.root = cached
	return h
}

// Commit writes all dirty nodes to the database and returns the root hash.
// Nodes are keyed by their content hash.
func (t *Trie) Commit(db DatabaseWriter) (thor.Bytes32, error) {
	if t.root == nil {
		return EmptyRoot, nil
	}
	h, cached, err := hash(t.root, db)
	if err != nil {
		return thor.Bytes32{}, err
	}
	t.root = cached
	return h, nil
}

// Each calls fn for every key/value pair in byte-lexicographic key order,
// until fn returns false.
func (t *Trie) Each(fn func(key, value []byte) bool) error {
	_, err := t.each(t.root, nil, fn)
	return err
}

func (t *Trie) each(n node, path []byte, fn func(key, value []byte) bool) (bool, error) {
	switch n := n.(type) {
	case nil:
		return true, nil
	case *leafNode:
		return fn(nibblesToKeybytes(concat(path, n.Key)), n.Value), nil
	case *branchNode:
		for i, c := range n.Children {
			if c == nil {
				continue
			}
			cont, err := t.each(c, concat(path, n.Prefix, []byte{byte(i)}), fn)
			if !cont || err != nil {
				return false, err
			}
		}
		return true, nil
	case hashNode:
		rn, err := t.resolve(n, path)
		if err != nil {
			return false, err
		}
		return t.each(rn, path, fn)
	default:
		panic(fmt.Sprintf("%T: invalid node: %v", n, n))
	}
}

// String dumps the in-memory structure, for debugging.
func (t *Trie) String() string {
	if t.root == nil {
		return "<empty>"
	}
	return t.root.fstring("")
}
