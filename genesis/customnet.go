// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"math"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vechain/ledger/account"
	"github.com/vechain/ledger/state"
	"github.com/vechain/ledger/thor"
)

// CustomGenesis is user customized genesis
type CustomGenesis struct {
	LaunchTime uint64    `yaml:"launchTime"`
	Difficulty uint64    `yaml:"difficulty"`
	ExtraData  string    `yaml:"extraData"`
	Accounts   []Account `yaml:"accounts"`
}

// Account is the account will set to the genesis block
type Account struct {
	Address thor.Address `yaml:"address"`
	Balance uint64       `yaml:"balance"`
	Vesting *Vesting     `yaml:"vesting,omitempty"`
	HTLC    *HTLC        `yaml:"htlc,omitempty"`
}

// Vesting makes the account a vesting contract locking its whole balance.
type Vesting struct {
	Owner      thor.Address `yaml:"owner"`
	Start      uint32       `yaml:"start"`
	StepBlocks uint32       `yaml:"stepBlocks"`
	StepAmount uint64       `yaml:"stepAmount"`
}

// HTLC makes the account a hashed time locked contract over its whole balance.
type HTLC struct {
	Sender        thor.Address          `yaml:"sender"`
	Recipient     thor.Address          `yaml:"recipient"`
	HashAlgorithm account.HashAlgorithm `yaml:"hashAlgorithm"`
	HashRoot      thor.Bytes32          `yaml:"hashRoot"`
	HashCount     uint8                 `yaml:"hashCount"`
	Timeout       uint32                `yaml:"timeout"`
}

// LoadCustomGenesis reads the YAML file at path.
func LoadCustomGenesis(path string) (*CustomGenesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var gen CustomGenesis
	if err := yaml.Unmarshal(data, &gen); err != nil {
		return nil, errors.Wrap(err, "decode genesis")
	}
	return &gen, nil
}

func (a *Account) toAccount() (*account.Account, error) {
	if a.Balance == 0 {
		return nil, errors.Errorf("%v: balance must be a non-zero integer", a.Address)
	}
	if a.Vesting != nil && a.HTLC != nil {
		return nil, errors.Errorf("%v: vesting and htlc are exclusive", a.Address)
	}

	acc := account.NewBasic(a.Balance)
	switch {
	case a.Vesting != nil:
		acc.Type = account.Vesting
		acc.Vesting = &account.VestingContract{
			Owner:       a.Vesting.Owner,
			Start:       a.Vesting.Start,
			StepBlocks:  a.Vesting.StepBlocks,
			StepAmount:  a.Vesting.StepAmount,
			TotalAmount: a.Balance,
		}
	case a.HTLC != nil:
		acc.Type = account.HTLC
		acc.HTLC = &account.HTLCContract{
			Sender:        a.HTLC.Sender,
			Recipient:     a.HTLC.Recipient,
			HashAlgorithm: a.HTLC.HashAlgorithm,
			HashRoot:      a.HTLC.HashRoot,
			HashCount:     a.HTLC.HashCount,
			Timeout:       a.HTLC.Timeout,
			TotalAmount:   a.Balance,
		}
	}
	if err := acc.Validate(); err != nil {
		return nil, errors.Wrapf(err, "%v", a.Address)
	}
	return acc, nil
}

// NewCustomNet create custom network genesis.
func NewCustomNet(gen *CustomGenesis) (*Genesis, error) {
	if gen.Difficulty == 0 {
		return nil, errors.New("difficulty must be a non-zero integer")
	}
	if len(gen.ExtraData) > thor.MaxBlockExtraSize {
		return nil, errors.Errorf("extraData too large: max %v", thor.MaxBlockExtraSize)
	}

	accounts := make(map[thor.Address]*account.Account, len(gen.Accounts))
	var supply uint64
	for i := range gen.Accounts {
		a := &gen.Accounts[i]
		if _, ok := accounts[a.Address]; ok {
			return nil, errors.Errorf("%v: duplicated account", a.Address)
		}
		acc, err := a.toAccount()
		if err != nil {
			return nil, err
		}
		if supply > math.MaxUint64-acc.Balance {
			return nil, errors.New("total supply overflow")
		}
		supply += acc.Balance
		accounts[a.Address] = acc
	}

	builder := new(Builder).
		Timestamp(gen.LaunchTime).
		Difficulty(gen.Difficulty).
		Extra([]byte(gen.ExtraData)).
		State(func(state *state.State) error {
			for addr, acc := range accounts {
				state.SetAccount(addr, acc)
			}
			return nil
		})

	id, err := builder.ComputeID()
	if err != nil {
		return nil, err
	}
	return &Genesis{builder, id, "customnet"}, nil
}
