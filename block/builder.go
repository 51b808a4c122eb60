// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package block

import (
	"github.com/vechain/ledger/thor"
	"github.com/vechain/ledger/tx"
)

// Builder to make it easy to build a block object.
type Builder struct {
	headerBody headerBody
	txs        tx.Transactions
}

// ParentID set parent id.
func (b *Builder) ParentID(id thor.Bytes32) *Builder {
	b.headerBody.ParentID = id
	return b
}

// Timestamp set timestamp.
func (b *Builder) Timestamp(ts uint64) *Builder {
	b.headerBody.Timestamp = ts
	return b
}

// Difficulty set difficulty.
func (b *Builder) Difficulty(difficulty uint64) *Builder {
	b.headerBody.Difficulty = difficulty
	return b
}

// Beneficiary set recipient of reward.
func (b *Builder) Beneficiary(addr thor.Address) *Builder {
	b.headerBody.Beneficiary = addr
	return b
}

// StateRoot set state root.
func (b *Builder) StateRoot(hash thor.Bytes32) *Builder {
	b.headerBody.StateRoot = hash
	return b
}

// Extra set extra data.
func (b *Builder) Extra(extra []byte) *Builder {
	b.headerBody.Extra = append([]byte(nil), extra...)
	return b
}

// Transaction add a transaction.
func (b *Builder) Transaction(tx *tx.Transaction) *Builder {
	b.txs = append(b.txs, tx)
	return b
}

// TxsRoot overrides the txs root which is otherwise derived from transactions.
func (b *Builder) TxsRoot(hash thor.Bytes32) *Builder {
	b.headerBody.TxsRoot = hash
	return b
}

// Build build a block object.
func (b *Builder) Build() *Block {
	header := Header{body: b.headerBody}
	if header.body.TxsRoot.IsZero() {
		header.body.TxsRoot = b.txs.RootHash()
	}

	return &Block{
		header: &header,
		txs:    b.txs,
	}
}
