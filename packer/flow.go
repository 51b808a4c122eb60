// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package packer

import (
	"github.com/pkg/errors"

	"github.com/vechain/ledger/block"
	"github.com/vechain/ledger/runtime"
	"github.com/vechain/ledger/state"
	"github.com/vechain/ledger/thor"
	"github.com/vechain/ledger/tx"
)

// Flow the flow of packing a new block.
type Flow struct {
	packer       *Packer
	parentHeader *block.Header
	runtime      *runtime.Runtime
	timestamp    uint64
	processedTxs map[thor.Bytes32]struct{}
	txs          tx.Transactions
	receipts     tx.Receipts
	packed       bool
}

func newFlow(packer *Packer, parentHeader *block.Header, runtime *runtime.Runtime, timestamp uint64) *Flow {
	return &Flow{
		packer:       packer,
		parentHeader: parentHeader,
		runtime:      runtime,
		timestamp:    timestamp,
		processedTxs: make(map[thor.Bytes32]struct{}),
	}
}

// ParentHeader returns parent block header.
func (f *Flow) ParentHeader() *block.Header {
	return f.parentHeader
}

// Number returns the number of the block being packed.
func (f *Flow) Number() uint32 {
	return f.runtime.Context().Number
}

// When the target time to do packing.
func (f *Flow) When() uint64 {
	return f.timestamp
}

// Txs returns adopted txs.
func (f *Flow) Txs() tx.Transactions {
	return f.txs
}

func (f *Flow) hasTx(txid thor.Bytes32, since uint32) (bool, error) {
	if _, ok := f.processedTxs[txid]; ok {
		return true, nil
	}
	return f.packer.repo.NewChain(f.parentHeader.ID()).HasTransaction(txid, since)
}

// Adopt try to execute the given transaction.
// If the tx is valid on current state, it will be adopted by the new block.
func (f *Flow) Adopt(trx *tx.Transaction) error {
	err := f.adopt(trx)
	result := "adopted"
	switch {
	case err == nil:
	case IsBadTx(err):
		result = "bad"
	default:
		result = "skipped"
	}
	metricTxAdoptCounter().AddWithLabel(1, map[string]string{"result": result})
	return err
}

func (f *Flow) adopt(trx *tx.Transaction) error {
	number := f.Number()
	switch {
	case f.packed:
		return errors.New("flow already packed")
	case len(f.txs) >= thor.MaxTxsPerBlock:
		return errBlockFull
	case number < trx.ValidityStart():
		return errTxNotAdoptableNow
	case !trx.IsValidAt(number):
		return badTxError{"expired"}
	}

	if found, err := f.hasTx(trx.ID(), trx.ValidityStart()); err != nil {
		return err
	} else if found {
		return errKnownTx
	}

	receipt, err := f.runtime.ExecuteTransaction(trx)
	if err != nil {
		if errors.As(err, new(*state.Error)) {
			return err
		}
		return badTxError{err.Error()}
	}
	f.processedTxs[trx.ID()] = struct{}{}
	f.receipts = append(f.receipts, receipt)
	f.txs = append(f.txs, trx)
	return nil
}

// Pack credits the block reward and builds the new block.
// The returned stage and receipts are those consensus computes for the block.
func (f *Flow) Pack(difficulty uint64, extra []byte) (*block.Block, *state.Stage, tx.Receipts, error) {
	if f.packed {
		return nil, nil, nil, errors.New("flow already packed")
	}
	f.packed = true

	reward, err := f.runtime.ApplyReward(f.packer.params.Issuance(f.Number()))
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "apply reward")
	}

	stage, err := f.runtime.State().Stage()
	if err != nil {
		return nil, nil, nil, err
	}

	builder := new(block.Builder).
		ParentID(f.parentHeader.ID()).
		Timestamp(f.timestamp).
		Difficulty(difficulty).
		Beneficiary(f.runtime.Context().Beneficiary).
		StateRoot(stage.Hash()).
		Extra(extra)
	for _, trx := range f.txs {
		builder.Transaction(trx)
	}
	metricPackedTxsGauge().Set(int64(len(f.txs)))

	receipts := make(tx.Receipts, 0, len(f.receipts)+1)
	receipts = append(append(receipts, f.receipts...), reward)
	return builder.Build(), stage, receipts, nil
}
