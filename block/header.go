// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package block

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/vechain/ledger/thor"
)

// Header contains almost all information about a block, except block body.
// It's immutable.
type Header struct {
	body headerBody

	cache struct {
		id atomic.Pointer[thor.Bytes32]
	}
}

// headerBody body of header
type headerBody struct {
	ParentID    thor.Bytes32
	Timestamp   uint64
	Difficulty  uint64
	Beneficiary thor.Address

	TxsRoot   thor.Bytes32
	StateRoot thor.Bytes32

	Extra []byte
}

// ParentID returns id of parent block.
func (h *Header) ParentID() thor.Bytes32 {
	return h.body.ParentID
}

// Number returns sequential number of this block.
func (h *Header) Number() uint32 {
	// inferred from parent id
	return Number(h.body.ParentID) + 1
}

// Timestamp returns timestamp of this block.
func (h *Header) Timestamp() uint64 {
	return h.body.Timestamp
}

// Difficulty returns the difficulty the weight of this block derives from.
func (h *Header) Difficulty() uint64 {
	return h.body.Difficulty
}

// Beneficiary returns reward recipient.
func (h *Header) Beneficiary() thor.Address {
	return h.body.Beneficiary
}

// TxsRoot returns merkle root of txs contained in this block.
func (h *Header) TxsRoot() thor.Bytes32 {
	return h.body.TxsRoot
}

// StateRoot returns account state merkle root just after this block being applied.
func (h *Header) StateRoot() thor.Bytes32 {
	return h.body.StateRoot
}

// Extra returns a copy of the extra data.
func (h *Header) Extra() []byte {
	return append([]byte(nil), h.body.Extra...)
}

// ID computes id of block.
// The block ID is defined as: blockNumber + hash(header)[4:].
func (h *Header) ID() thor.Bytes32 {
	if cached := h.cache.id.Load(); cached != nil {
		return *cached
	}

	id := thor.Blake2bFn(func(w io.Writer) {
		if err := rlp.Encode(w, &h.body); err != nil {
			panic(err)
		}
	})
	// overwrite first 4 bytes of block hash to block number.
	binary.BigEndian.PutUint32(id[:], h.Number())
	h.cache.id.Store(&id)
	return id
}

// EncodeRLP implements rlp.Encoder
func (h *Header) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &h.body)
}

// DecodeRLP implements rlp.Decoder.
func (h *Header) DecodeRLP(s *rlp.Stream) error {
	var body headerBody

	if err := s.Decode(&body); err != nil {
		return err
	}
	*h = Header{body: body}
	return nil
}

func (h *Header) String() string {
	return fmt.Sprintf(`Header(%v):
	Number:         %v
	ParentID:       %v
	Timestamp:      %v
	Difficulty:     %v
	Beneficiary:    %v
	TxsRoot:        %v
	StateRoot:      %v
	Extra:          0x%x`, h.ID(), h.Number(), h.body.ParentID, h.body.Timestamp, h.body.Difficulty,
		h.body.Beneficiary, h.body.TxsRoot, h.body.StateRoot, h.body.Extra)
}

// Number extract block number from block id.
func Number(blockID thor.Bytes32) uint32 {
	// first 4 bytes are over written by block number (big endian).
	return binary.BigEndian.Uint32(blockID[:])
}
