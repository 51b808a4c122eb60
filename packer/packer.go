// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package packer assembles new blocks from pending transactions.
package packer

import (
	"github.com/pkg/errors"

	"github.com/vechain/ledger/chain"
	"github.com/vechain/ledger/consensus"
	"github.com/vechain/ledger/runtime"
	"github.com/vechain/ledger/state"
	"github.com/vechain/ledger/thor"
)

// Packer to pack txs and build new blocks.
type Packer struct {
	repo        *chain.Repository
	stater      *state.Stater
	beneficiary thor.Address
	params      consensus.Params
}

// New create a new Packer instance.
func New(repo *chain.Repository, stater *state.Stater, beneficiary thor.Address, params consensus.Params) *Packer {
	if params.Issuance == nil {
		params.Issuance = consensus.FixedIssuance(0)
	}
	return &Packer{
		repo,
		stater,
		beneficiary,
		params,
	}
}

// Schedule creates a flow to pack a block on top of parent at the given timestamp.
func (p *Packer) Schedule(parent *chain.BlockSummary, timestamp uint64) (*Flow, error) {
	if timestamp <= parent.Header.Timestamp() {
		return nil, errors.Errorf("timestamp behind parent: parent %v, current %v", parent.Header.Timestamp(), timestamp)
	}

	st := p.stater.NewState(parent.Header.StateRoot())
	rt := runtime.New(st, &runtime.Context{
		Number:      parent.Header.Number() + 1,
		Beneficiary: p.beneficiary,
	})
	return newFlow(p, parent.Header, rt, timestamp), nil
}
