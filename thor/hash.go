// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

import (
	"hash"
	"io"
	"sync"

	"github.com/ethereum/go-ethereum/crypto/blake2b"
)

// NewBlake2b return blake2b-256 hash.
func NewBlake2b() hash.Hash {
	hash, _ := blake2b.New256(nil)
	return hash
}

// Blake2b computes blake2b-256 checksum for given data.
func Blake2b(data ...[]byte) Bytes32 {
	if len(data) == 1 {
		return blake2b.Sum256(data[0])
	}
	return Blake2bFn(func(w io.Writer) {
		for _, b := range data {
			w.Write(b)
		}
	})
}

// Blake2bFn computes blake2b-256 checksum for the content written by fn.
func Blake2bFn(fn func(w io.Writer)) (h Bytes32) {
	w := hasherPool.Get().(*hasher)
	fn(w)
	w.Sum(w.out[:0])
	h = w.out
	w.Reset()
	hasherPool.Put(w)
	return
}

type hasher struct {
	hash.Hash
	out Bytes32
}

var hasherPool = sync.Pool{
	New: func() any {
		return &hasher{Hash: NewBlake2b()}
	},
}
