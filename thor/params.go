// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

// Constants of block chain.
const (
	BlockInterval      uint64 = 10                // seconds between two consecutive blocks.
	MaxFutureBlockTime uint64 = BlockInterval * 3 // tolerated clock drift of block timestamps.

	// TxValidityWindow is the number of blocks a transaction stays includable,
	// counted from its validity start height.
	TxValidityWindow uint32 = 120

	MaxTxsPerBlock    = 10000
	MaxBlockExtraSize = 32
)

// Block reward schedule.
const (
	InitialBlockReward    uint64 = 2_000_000_000 // reward of the first block, in the smallest unit.
	RewardHalvingInterval uint32 = 2_100_000     // reward halves every this many blocks.
)
