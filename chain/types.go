// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain

import (
	"github.com/vechain/ledger/block"
	"github.com/vechain/ledger/thor"
)

// BlockSummary presents block summary.
type BlockSummary struct {
	Header      *block.Header
	Txs         []thor.Bytes32
	Size        uint64
	TotalWeight uint64
}

// Fork describes forked chain.
// Trunk and Branch are ordered from the ancestor's child to the tip.
type Fork struct {
	Ancestor *BlockSummary
	Trunk    []*BlockSummary
	Branch   []*BlockSummary
}

// WeightFunc returns the weight a block adds to its chain.
type WeightFunc func(header *block.Header) uint64

// DifficultyWeight weighs a block by its difficulty.
func DifficultyWeight(header *block.Header) uint64 {
	return header.Difficulty()
}

// InvalidMark records why a block was marked invalid. Kind is the rejection
// class defined by the caller.
type InvalidMark struct {
	Kind   uint
	Reason string
}
