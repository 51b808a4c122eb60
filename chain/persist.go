// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"

	"github.com/vechain/ledger/kv"
	"github.com/vechain/ledger/thor"
	"github.com/vechain/ledger/tx"
)

const (
	hdrStoreName     = "chain.hdr"     // for block summaries
	bodyStoreName    = "chain.body"    // for block bodies
	receiptStoreName = "chain.receipt" // for undo receipts
	heightStoreName  = "chain.height"  // for ids of every known block, which lead with the number
	canonStoreName   = "chain.canon"   // for number => id of canonical blocks
	txIndexStoreName = "chain.txi"     // for ( txid | block id )
	propStoreName    = "chain.props"   // for property-named blocks such as best block
	headStoreName    = "chain.heads"   // for ids of chain heads ( including forks )
)

var (
	bestBlockIDKey = []byte("best-block-id")
	invalidPrefix  = []byte("invalid")
)

func numberKey(num uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, num)
}

func txIndexKey(txid, blockID thor.Bytes32) []byte {
	return append(txid[:], blockID[:]...)
}

func invalidKey(id thor.Bytes32) []byte {
	return append(append([]byte(nil), invalidPrefix...), id[:]...)
}

func saveRLP(w kv.Putter, key []byte, val any) error {
	data, err := rlp.EncodeToBytes(val)
	if err != nil {
		return err
	}
	return w.Put(key, data)
}

func loadRLP(r kv.Getter, key []byte, val any) error {
	data, err := r.Get(key)
	if err != nil {
		return err
	}
	return rlp.DecodeBytes(data, val)
}

// bodies and receipts are stored snappy compressed.
func saveSnappyRLP(w kv.Putter, key []byte, val any) error {
	data, err := rlp.EncodeToBytes(val)
	if err != nil {
		return err
	}
	return w.Put(key, snappy.Encode(nil, data))
}

func loadSnappyRLP(r kv.Getter, key []byte, val any) error {
	data, err := r.Get(key)
	if err != nil {
		return err
	}
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return err
	}
	return rlp.DecodeBytes(raw, val)
}

func saveBlockSummary(w kv.Putter, summary *BlockSummary) error {
	id := summary.Header.ID()
	return saveRLP(w, id[:], summary)
}

func loadBlockSummary(r kv.Getter, id thor.Bytes32) (*BlockSummary, error) {
	var summary BlockSummary
	if err := loadRLP(r, id[:], &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func loadTransactions(r kv.Getter, id thor.Bytes32) (tx.Transactions, error) {
	var txs tx.Transactions
	if err := loadSnappyRLP(r, id[:], &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func loadReceipts(r kv.Getter, id thor.Bytes32) (tx.Receipts, error) {
	var receipts tx.Receipts
	if err := loadSnappyRLP(r, id[:], &receipts); err != nil {
		return nil, err
	}
	return receipts, nil
}
