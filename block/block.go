// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package block

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/vechain/ledger/tx"
)

// Block is an immutable block type.
type Block struct {
	header *Header
	txs    tx.Transactions

	cache struct {
		size atomic.Uint64
	}
}

// Compose compose a block with all needed components
// Note: This method is usually to recover a block by its portions, and the txs should be verified.
func Compose(header *Header, txs tx.Transactions) *Block {
	return &Block{
		header: header,
		txs:    append(tx.Transactions(nil), txs...),
	}
}

// Header returns the block header.
func (b *Block) Header() *Header {
	return b.header
}

// Transactions returns a copy of transactions.
func (b *Block) Transactions() tx.Transactions {
	return append(tx.Transactions(nil), b.txs...)
}

// EncodeRLP implements rlp.Encoder.
func (b *Block) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, []any{
		b.header,
		b.txs,
	})
}

// DecodeRLP implements rlp.Decoder.
func (b *Block) DecodeRLP(s *rlp.Stream) error {
	_, size, err := s.Kind()
	if err != nil {
		return err
	}

	payload := struct {
		Header Header
		Txs    tx.Transactions
	}{}

	if err := s.Decode(&payload); err != nil {
		return err
	}

	*b = Block{
		header: &payload.Header,
		txs:    payload.Txs,
	}
	b.cache.size.Store(rlp.ListSize(size))
	return nil
}

// Size returns block size in bytes.
func (b *Block) Size() uint64 {
	if cached := b.cache.size.Load(); cached != 0 {
		return cached
	}
	data, err := rlp.EncodeToBytes(b)
	if err != nil {
		panic(err)
	}
	b.cache.size.Store(uint64(len(data)))
	return uint64(len(data))
}

func (b *Block) String() string {
	return fmt.Sprintf(`Block(%v)
%v
Transactions: %v`, b.Size(), b.header, b.txs)
}
