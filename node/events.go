// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"github.com/vechain/ledger/thor"
)

// Head is the block the node currently builds on.
type Head struct {
	ID        thor.Bytes32
	Number    uint32
	StateRoot thor.Bytes32
}

// HeadChanged is sent after the head moved.
// Reverted lists blocks undone from the old head down, Applied lists blocks
// applied from the fork point up to the new head.
type HeadChanged struct {
	Head
	Reverted []thor.Bytes32
	Applied  []thor.Bytes32
}

// ForkDetected is sent when a block is stored off the main chain, or when
// the main chain is switched to another branch.
type ForkDetected struct {
	Ancestor thor.Bytes32
	Trunk    []thor.Bytes32
	Branch   []thor.Bytes32
}

// Status is the outcome of adding a block.
type Status int

const (
	// Extended means the block extended the head.
	Extended Status = iota + 1
	// Reorganized means the block outweighed the head on another branch.
	Reorganized
	// Side means the block was stored as an inactive fork tip.
	Side
	// Pending means the parent is unknown and the block is held until it arrives.
	Pending
	// Known means the block is already stored.
	Known
)

func (s Status) String() string {
	switch s {
	case Extended:
		return "extended"
	case Reorganized:
		return "reorganized"
	case Side:
		return "side"
	case Pending:
		return "pending"
	case Known:
		return "known"
	default:
		return "unknown"
	}
}

// Result describes what happened to an added block.
type Result struct {
	Status   Status
	Reverted []thor.Bytes32
	Applied  []thor.Bytes32
	// held blocks that became processable after this one
	Connected []thor.Bytes32
}
