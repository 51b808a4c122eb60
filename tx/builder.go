// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"github.com/vechain/ledger/account"
	"github.com/vechain/ledger/thor"
)

// Builder to make it easy to build transaction.
type Builder struct {
	body body
}

// Sender set the debited address.
func (b *Builder) Sender(addr thor.Address) *Builder {
	b.body.Sender = addr
	return b
}

// Recipient set the credited address.
func (b *Builder) Recipient(addr thor.Address) *Builder {
	b.body.Recipient = addr
	return b
}

// Value set the transferred amount.
func (b *Builder) Value(value uint64) *Builder {
	b.body.Value = value
	return b
}

// Fee set the fee paid to the block beneficiary.
func (b *Builder) Fee(fee uint64) *Builder {
	b.body.Fee = fee
	return b
}

// ValidityStart set the first height the tx is valid at.
func (b *Builder) ValidityStart(height uint32) *Builder {
	b.body.ValidityStart = height
	return b
}

// Proof set the proof unlocking the sender account.
func (b *Builder) Proof(proof []byte) *Builder {
	b.body.Proof = append([]byte(nil), proof...)
	return b
}

// Create turns the tx into a contract creation of typ with the given
// creation data. The recipient is set to the derived contract address, so
// Sender and ValidityStart must be set before.
func (b *Builder) Create(typ account.Type, data []byte) *Builder {
	b.body.Flags |= FlagCreation
	b.body.RecipientType = typ
	b.body.Data = append([]byte(nil), data...)
	b.body.Recipient = account.ContractAddress(b.body.Sender, b.body.ValidityStart, data)
	return b
}

// Build build tx object.
func (b *Builder) Build() *Transaction {
	tx := Transaction{body: b.body}
	return &tx
}
