// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package account defines the account variants held in the accounts trie
// and the rules that govern moving value in and out of them.
package account

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/ledger/thor"
)

// Type is the variant tag of an account.
type Type uint8

const (
	Basic Type = iota
	Vesting
	HTLC
)

func (t Type) String() string {
	switch t {
	case Basic:
		return "basic"
	case Vesting:
		return "vesting"
	case HTLC:
		return "htlc"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// IsContract returns whether accounts of this type are contracts.
func (t Type) IsContract() bool {
	return t == Vesting || t == HTLC
}

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBalanceOverflow   = errors.New("balance overflow")
	ErrUnauthorized      = errors.New("signer not authorized")
	ErrBelowMinCap       = errors.New("balance would fall below minimum cap")
	ErrContractTransfer  = errors.New("contract accepts only its creation transaction")
	ErrInvalidProof      = errors.New("invalid proof")
	ErrInvalidContract   = errors.New("invalid contract")
	errUnknownType       = errors.New("unknown account type")
)

// Account is the consensus representation of an account.
// Exactly the payload matching Type is set.
type Account struct {
	Type    Type
	Balance uint64
	Vesting *VestingContract
	HTLC    *HTLCContract
}

// NewBasic creates a basic account holding balance.
func NewBasic(balance uint64) *Account {
	return &Account{Type: Basic, Balance: balance}
}

// IsEmpty returns if the account is absent from the trie.
// An account of any variant holding no balance is pruned.
func (a *Account) IsEmpty() bool {
	return a == nil || a.Balance == 0
}

// Copy returns a deep copy.
func (a *Account) Copy() *Account {
	cpy := *a
	if a.Vesting != nil {
		v := *a.Vesting
		cpy.Vesting = &v
	}
	if a.HTLC != nil {
		h := *a.HTLC
		cpy.HTLC = &h
	}
	return &cpy
}

// Credit adds amount to the balance.
func (a *Account) Credit(amount uint64) error {
	sum := a.Balance + amount
	if sum < a.Balance {
		return errors.Wrapf(ErrBalanceOverflow, "balance %d, credit %d", a.Balance, amount)
	}
	a.Balance = sum
	return nil
}

// Debit subtracts amount from the balance.
func (a *Account) Debit(amount uint64) error {
	if amount > a.Balance {
		return errors.Wrapf(ErrInsufficientFunds, "balance %d, required %d", a.Balance, amount)
	}
	a.Balance -= amount
	return nil
}

// Validate checks the payload matches the variant tag.
func (a *Account) Validate() error {
	switch a.Type {
	case Basic:
		if a.Vesting != nil || a.HTLC != nil {
			return errors.New("basic account with contract payload")
		}
	case Vesting:
		if a.Vesting == nil || a.HTLC != nil {
			return errors.New("vesting account with wrong payload")
		}
		return a.Vesting.validate()
	case HTLC:
		if a.HTLC == nil || a.Vesting != nil {
			return errors.New("htlc account with wrong payload")
		}
		return a.HTLC.validate()
	default:
		return errUnknownType
	}
	return nil
}

func (a *Account) String() string {
	switch a.Type {
	case Vesting:
		return fmt.Sprintf("%v(balance: %d, %+v)", a.Type, a.Balance, *a.Vesting)
	case HTLC:
		return fmt.Sprintf("%v(balance: %d, %+v)", a.Type, a.Balance, *a.HTLC)
	default:
		return fmt.Sprintf("%v(balance: %d)", a.Type, a.Balance)
	}
}

// EncodeRLP implements rlp.Encoder.
// The encoding is [type, balance, payload].
func (a *Account) EncodeRLP(w io.Writer) error {
	var payload any
	switch a.Type {
	case Basic:
		payload = rlp.RawValue(rlp.EmptyList)
	case Vesting:
		payload = a.Vesting
	case HTLC:
		payload = a.HTLC
	default:
		return errUnknownType
	}
	return rlp.Encode(w, []any{a.Type, a.Balance, payload})
}

// DecodeRLP implements rlp.Decoder.
func (a *Account) DecodeRLP(s *rlp.Stream) error {
	var obj struct {
		Type    Type
		Balance uint64
		Payload rlp.RawValue
	}
	if err := s.Decode(&obj); err != nil {
		return err
	}

	decoded := Account{Type: obj.Type, Balance: obj.Balance}
	switch obj.Type {
	case Basic:
		if !bytes.Equal(obj.Payload, rlp.EmptyList) {
			return errors.New("rlp: basic account with payload")
		}
	case Vesting:
		var v VestingContract
		if err := rlp.DecodeBytes(obj.Payload, &v); err != nil {
			return errors.Wrap(err, "rlp: vesting payload")
		}
		decoded.Vesting = &v
	case HTLC:
		var h HTLCContract
		if err := rlp.DecodeBytes(obj.Payload, &h); err != nil {
			return errors.Wrap(err, "rlp: htlc payload")
		}
		decoded.HTLC = &h
	default:
		return errUnknownType
	}
	*a = decoded
	return nil
}

// Outgoing describes a debit of Amount from the account at Address,
// requested by a transaction signed by Signer at block Height.
type Outgoing struct {
	Address thor.Address
	Signer  thor.Address
	Height  uint32
	Amount  uint64
	Proof   []byte
}

// CheckOutgoing verifies the account allows the debit described by o.
func (a *Account) CheckOutgoing(o *Outgoing) error {
	if o.Amount > a.Balance {
		return errors.Wrapf(ErrInsufficientFunds, "balance %d, required %d", a.Balance, o.Amount)
	}
	switch a.Type {
	case Basic:
		if o.Signer != o.Address {
			return errors.Wrapf(ErrUnauthorized, "signer %v", o.Signer)
		}
		return nil
	case Vesting:
		return a.Vesting.checkOutgoing(a.Balance, o)
	case HTLC:
		return a.HTLC.checkOutgoing(a.Balance, o)
	default:
		return errUnknownType
	}
}

// CheckIncoming verifies the existing account accepts a plain transfer.
func (a *Account) CheckIncoming() error {
	switch a.Type {
	case Basic:
		return nil
	case Vesting, HTLC:
		return ErrContractTransfer
	default:
		return errUnknownType
	}
}
