// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package testchain

import (
	"github.com/vechain/ledger/genesis"
	"github.com/vechain/ledger/thor"
	"github.com/vechain/ledger/tx"
)

// Transfer builds a signed transfer from a dev account, valid from block start.
func Transfer(from genesis.DevAccount, to thor.Address, value, fee uint64, start uint32) *tx.Transaction {
	trx := new(tx.Builder).
		Sender(from.Address).
		Recipient(to).
		Value(value).
		Fee(fee).
		ValidityStart(start).
		Build()
	return tx.MustSign(trx, from.PrivateKey)
}
