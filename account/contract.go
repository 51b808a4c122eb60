// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package account

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/vechain/ledger/thor"
)

// VestingContract locks funds that unlock in steps over block heights.
type VestingContract struct {
	Owner       thor.Address
	Start       uint32
	StepBlocks  uint32
	StepAmount  uint64
	TotalAmount uint64
}

func (v *VestingContract) validate() error {
	if v.StepAmount > 0 && v.StepBlocks == 0 {
		return errors.Wrap(ErrInvalidContract, "vesting step blocks is zero")
	}
	return nil
}

// MinCap returns the amount still locked at height.
func (v *VestingContract) MinCap(height uint32) uint64 {
	if v.StepBlocks == 0 || v.StepAmount == 0 {
		return 0
	}
	if height < v.Start {
		return v.TotalAmount
	}
	steps := uint64((height - v.Start) / v.StepBlocks)

	vested := new(uint256.Int).Mul(uint256.NewInt(steps), uint256.NewInt(v.StepAmount))
	total := uint256.NewInt(v.TotalAmount)
	if !vested.Lt(total) {
		return 0
	}
	return total.Sub(total, vested).Uint64()
}

func (v *VestingContract) checkOutgoing(balance uint64, o *Outgoing) error {
	if o.Signer != v.Owner {
		return errors.Wrapf(ErrUnauthorized, "signer %v, owner %v", o.Signer, v.Owner)
	}
	if minCap := v.MinCap(o.Height); balance-o.Amount < minCap {
		return errors.Wrapf(ErrBelowMinCap, "remaining %d, min cap %d", balance-o.Amount, minCap)
	}
	return nil
}

// HashAlgorithm names the hash function of an HTLC hash chain.
type HashAlgorithm uint8

const (
	Blake2b HashAlgorithm = iota + 1
	Sha256
	Keccak256
)

// Valid returns whether the algorithm is known.
func (h HashAlgorithm) Valid() bool {
	return h >= Blake2b && h <= Keccak256
}

func (h HashAlgorithm) String() string {
	switch h {
	case Blake2b:
		return "blake2b"
	case Sha256:
		return "sha256"
	case Keccak256:
		return "keccak256"
	default:
		return fmt.Sprintf("hash(%d)", uint8(h))
	}
}

// UnmarshalText parses the algorithm name.
func (h *HashAlgorithm) UnmarshalText(text []byte) error {
	for _, alg := range []HashAlgorithm{Blake2b, Sha256, Keccak256} {
		if string(text) == alg.String() {
			*h = alg
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidContract, "unknown hash algorithm %q", text)
}

// Sum hashes data.
func (h HashAlgorithm) Sum(data []byte) (out thor.Bytes32) {
	switch h {
	case Blake2b:
		return blake2b.Sum256(data)
	case Sha256:
		return sha256.Sum256(data)
	case Keccak256:
		hasher := sha3.NewLegacyKeccak256()
		hasher.Write(data)
		hasher.Sum(out[:0])
		return
	default:
		panic("unknown hash algorithm")
	}
}

// Chain hashes preimage depth times.
func (h HashAlgorithm) Chain(preimage thor.Bytes32, depth uint8) thor.Bytes32 {
	for j := uint8(0); j < depth; j++ {
		preimage = h.Sum(preimage[:])
	}
	return preimage
}

// HTLCContract is a hashed time locked contract.
// Before Timeout the recipient may withdraw by revealing preimages of the
// hash chain ending at HashRoot; afterwards the sender may reclaim the funds.
type HTLCContract struct {
	Sender        thor.Address
	Recipient     thor.Address
	HashAlgorithm HashAlgorithm
	HashRoot      thor.Bytes32
	HashCount     uint8
	Timeout       uint32
	TotalAmount   uint64
}

func (h *HTLCContract) validate() error {
	if !h.HashAlgorithm.Valid() {
		return errors.Wrapf(ErrInvalidContract, "unknown hash algorithm %d", h.HashAlgorithm)
	}
	if h.HashCount == 0 {
		return errors.Wrap(ErrInvalidContract, "zero hash count")
	}
	return nil
}

// MinCap returns the amount still locked after revealing a preimage at depth.
func (h *HTLCContract) MinCap(depth uint8) uint64 {
	if depth >= h.HashCount {
		return 0
	}
	locked := new(uint256.Int).Mul(uint256.NewInt(h.TotalAmount), uint256.NewInt(uint64(h.HashCount-depth)))
	return locked.Div(locked, uint256.NewInt(uint64(h.HashCount))).Uint64()
}

func (h *HTLCContract) checkOutgoing(balance uint64, o *Outgoing) error {
	proof, err := DecodeHTLCProof(o.Proof)
	if err != nil {
		return err
	}

	switch proof.Kind {
	case RegularTransfer:
		if o.Signer != h.Recipient {
			return errors.Wrapf(ErrUnauthorized, "signer %v, recipient %v", o.Signer, h.Recipient)
		}
		if o.Height >= h.Timeout {
			return errors.Wrapf(ErrInvalidProof, "htlc timed out at %d", h.Timeout)
		}
		if proof.Depth == 0 || proof.Depth > h.HashCount {
			return errors.Wrapf(ErrInvalidProof, "hash depth %d out of range", proof.Depth)
		}
		if h.HashAlgorithm.Chain(proof.PreImage, proof.Depth) != h.HashRoot {
			return errors.Wrap(ErrInvalidProof, "preimage mismatch")
		}
		if minCap := h.MinCap(proof.Depth); balance-o.Amount < minCap {
			return errors.Wrapf(ErrBelowMinCap, "remaining %d, min cap %d", balance-o.Amount, minCap)
		}
		return nil
	case TimeoutResolve:
		if o.Signer != h.Sender {
			return errors.Wrapf(ErrUnauthorized, "signer %v, sender %v", o.Signer, h.Sender)
		}
		if o.Height < h.Timeout {
			return errors.Wrapf(ErrInvalidProof, "htlc locked until %d", h.Timeout)
		}
		return nil
	default:
		return errors.Wrapf(ErrInvalidProof, "unknown proof kind %d", proof.Kind)
	}
}

// ProofKind selects how an HTLC is unlocked.
type ProofKind uint8

const (
	RegularTransfer ProofKind = iota
	TimeoutResolve
)

// HTLCProof is carried in the proof field of a transaction spending an HTLC.
type HTLCProof struct {
	Kind     ProofKind
	Depth    uint8
	PreImage thor.Bytes32
}

// Encode returns the rlp encoding of the proof.
func (p *HTLCProof) Encode() []byte {
	data, err := rlp.EncodeToBytes(p)
	if err != nil {
		panic(err)
	}
	return data
}

// DecodeHTLCProof decodes a proof encoded by HTLCProof.Encode.
func DecodeHTLCProof(data []byte) (*HTLCProof, error) {
	if len(data) == 0 {
		return nil, errors.Wrap(ErrInvalidProof, "missing htlc proof")
	}
	var p HTLCProof
	if err := rlp.DecodeBytes(data, &p); err != nil {
		return nil, errors.Wrap(ErrInvalidProof, err.Error())
	}
	return &p, nil
}

// ContractAddress derives the address of the contract created by sender
// with a transaction valid from validityStart carrying data.
func ContractAddress(sender thor.Address, validityStart uint32, data []byte) thor.Address {
	var start [4]byte
	binary.BigEndian.PutUint32(start[:], validityStart)
	h := thor.Blake2b(sender[:], start[:], data)
	return thor.BytesToAddress(h[12:])
}

// NewContract creates a contract account of type typ funded with value.
// data is the rlp encoded VestingContract or HTLCContract. A zero
// TotalAmount is taken as value.
func NewContract(typ Type, data []byte, value uint64) (*Account, error) {
	acc := &Account{Type: typ, Balance: value}
	switch typ {
	case Vesting:
		var v VestingContract
		if err := rlp.DecodeBytes(data, &v); err != nil {
			return nil, errors.Wrap(ErrInvalidContract, err.Error())
		}
		if v.TotalAmount == 0 {
			v.TotalAmount = value
		}
		acc.Vesting = &v
	case HTLC:
		var h HTLCContract
		if err := rlp.DecodeBytes(data, &h); err != nil {
			return nil, errors.Wrap(ErrInvalidContract, err.Error())
		}
		if h.TotalAmount == 0 {
			h.TotalAmount = value
		}
		acc.HTLC = &h
	default:
		return nil, errors.Wrapf(ErrInvalidContract, "cannot create %v account", typ)
	}
	if err := acc.Validate(); err != nil {
		return nil, err
	}
	return acc, nil
}
