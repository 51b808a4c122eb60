// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"github.com/vechain/ledger/thor"
)

// Change records an account as it was before being touched.
type Change struct {
	Address thor.Address
	// rlp encoded prior account, empty if the account was absent
	Prior []byte
}

// Receipt is the undo record of one state change unit, a transaction or a
// block reward. Changes are kept in the order accounts were first touched.
type Receipt struct {
	Changes []*Change
}

// Touched returns whether addr was recorded.
func (r *Receipt) Touched(addr thor.Address) bool {
	for _, c := range r.Changes {
		if c.Address == addr {
			return true
		}
	}
	return false
}

// Record appends the prior state of addr unless it was already recorded.
func (r *Receipt) Record(addr thor.Address, prior []byte) {
	if r.Touched(addr) {
		return
	}
	r.Changes = append(r.Changes, &Change{addr, append([]byte(nil), prior...)})
}

// Receipts slice of receipts.
// A block's receipts hold one receipt per transaction followed by the
// receipt of the block reward.
type Receipts []*Receipt
