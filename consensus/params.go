// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package consensus

import (
	"github.com/vechain/ledger/block"
	"github.com/vechain/ledger/chain"
	"github.com/vechain/ledger/thor"
)

// IssuanceFunc returns the reward minted to the beneficiary of the block at number.
type IssuanceFunc func(number uint32) uint64

// Params holds the pluggable consensus rules.
type Params struct {
	Issuance IssuanceFunc
	Weight   chain.WeightFunc
	// CheckDifficulty validates the header difficulty against its parent. Optional.
	CheckDifficulty func(parent, header *block.Header) error
}

// DefaultParams returns params with the halving reward schedule and
// difficulty weighted blocks.
func DefaultParams() Params {
	return Params{
		Issuance: HalvingIssuance(thor.InitialBlockReward, thor.RewardHalvingInterval),
		Weight:   chain.DifficultyWeight,
	}
}

func (p Params) withDefaults() Params {
	if p.Issuance == nil {
		p.Issuance = FixedIssuance(0)
	}
	if p.Weight == nil {
		p.Weight = chain.DifficultyWeight
	}
	return p
}

// FixedIssuance rewards every block the same amount.
func FixedIssuance(amount uint64) IssuanceFunc {
	return func(uint32) uint64 { return amount }
}

// HalvingIssuance starts at initial and halves every interval blocks.
// Genesis is not rewarded.
func HalvingIssuance(initial uint64, interval uint32) IssuanceFunc {
	return func(number uint32) uint64 {
		if number == 0 {
			return 0
		}
		if interval == 0 {
			return initial
		}
		halvings := (number - 1) / interval
		if halvings >= 64 {
			return 0
		}
		return initial >> halvings
	}
}
