// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"github.com/vechain/ledger/block"
	"github.com/vechain/ledger/muxdb"
	"github.com/vechain/ledger/thor"
)

// Genesis to build genesis block.
type Genesis struct {
	builder *Builder
	id      thor.Bytes32
	name    string
}

// Build build the genesis block, and commits its state into db.
func (g *Genesis) Build(db *muxdb.MuxDB) (*block.Block, error) {
	blk, err := g.builder.Build(db)
	if err != nil {
		return nil, err
	}
	if blk.Header().ID() != g.id {
		panic("built genesis ID incorrect")
	}
	return blk, nil
}

// ID returns genesis block ID.
func (g *Genesis) ID() thor.Bytes32 {
	return g.id
}

// Name returns network name.
func (g *Genesis) Name() string {
	return g.name
}
