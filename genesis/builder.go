// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"github.com/pkg/errors"

	"github.com/vechain/ledger/block"
	"github.com/vechain/ledger/muxdb"
	"github.com/vechain/ledger/state"
	"github.com/vechain/ledger/thor"
)

// genesis blocks are numbered 0, so their parent is numbered 0xffffffff.
var parentID = thor.Bytes32{0xff, 0xff, 0xff, 0xff}

// Builder helper to build genesis block.
type Builder struct {
	timestamp  uint64
	difficulty uint64
	extra      []byte

	stateProcs []func(state *state.State) error
}

// Timestamp set timestamp.
func (b *Builder) Timestamp(t uint64) *Builder {
	b.timestamp = t
	return b
}

// Difficulty set difficulty, which is the weight of genesis by default.
func (b *Builder) Difficulty(d uint64) *Builder {
	b.difficulty = d
	return b
}

// Extra set extra data.
func (b *Builder) Extra(data []byte) *Builder {
	b.extra = append([]byte(nil), data...)
	return b
}

// State add a state process
func (b *Builder) State(proc func(state *state.State) error) *Builder {
	b.stateProcs = append(b.stateProcs, proc)
	return b
}

// ComputeID compute genesis ID.
func (b *Builder) ComputeID() (thor.Bytes32, error) {
	blk, err := b.Build(muxdb.NewMem())
	if err != nil {
		return thor.Bytes32{}, err
	}
	return blk.Header().ID(), nil
}

// Build build genesis block according to presets, and commits the genesis state into db.
func (b *Builder) Build(db *muxdb.MuxDB) (*block.Block, error) {
	if len(b.extra) > thor.MaxBlockExtraSize {
		return nil, errors.Errorf("extra data too large: max %v, have %v", thor.MaxBlockExtraSize, len(b.extra))
	}

	st := state.New(db, thor.Bytes32{})
	for _, proc := range b.stateProcs {
		if err := proc(st); err != nil {
			return nil, errors.Wrap(err, "state process")
		}
	}

	stage, err := st.Stage()
	if err != nil {
		return nil, errors.Wrap(err, "stage")
	}
	bulk := db.NewBulk()
	stateRoot, err := stage.Commit(bulk)
	if err != nil {
		return nil, errors.Wrap(err, "commit state")
	}
	if err := bulk.Write(); err != nil {
		return nil, errors.Wrap(err, "write state")
	}

	return new(block.Builder).
		ParentID(parentID).
		Timestamp(b.timestamp).
		Difficulty(b.difficulty).
		StateRoot(stateRoot).
		Extra(b.extra).
		Build(), nil
}
