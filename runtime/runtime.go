// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package runtime executes and reverts single state change units on a state.
package runtime

import (
	"github.com/pkg/errors"

	"github.com/vechain/ledger/account"
	"github.com/vechain/ledger/log"
	"github.com/vechain/ledger/state"
	"github.com/vechain/ledger/thor"
	"github.com/vechain/ledger/tx"
)

var logger = log.WithContext("pkg", "runtime")

var (
	ErrBadSignature   = errors.New("bad signature")
	ErrValidityWindow = errors.New("tx not valid at block height")
	ErrCreation       = errors.New("invalid contract creation")
)

// Context describes the block the runtime executes in.
type Context struct {
	Number      uint32
	Beneficiary thor.Address
}

// Runtime executes transactions and block rewards against a state.
type Runtime struct {
	state *state.State
	ctx   *Context
}

// New create a runtime object.
func New(state *state.State, ctx *Context) *Runtime {
	return &Runtime{state, ctx}
}

// State returns the state object.
func (rt *Runtime) State() *state.State {
	return rt.state
}

// Context returns the block context.
func (rt *Runtime) Context() *Context {
	return rt.ctx
}

// journal records prior states into a receipt before accounts are touched.
type journal struct {
	state   *state.State
	receipt tx.Receipt
}

func (j *journal) get(addr thor.Address) (*account.Account, error) {
	if !j.receipt.Touched(addr) {
		raw, err := j.state.GetRaw(addr)
		if err != nil {
			return nil, err
		}
		j.receipt.Record(addr, raw)
	}
	return j.state.GetAccount(addr)
}

func (j *journal) credit(addr thor.Address, amount uint64) error {
	acc, err := j.get(addr)
	if err != nil {
		return err
	}
	if acc == nil {
		acc = account.NewBasic(0)
	}
	if err := acc.Credit(amount); err != nil {
		return err
	}
	j.state.SetAccount(addr, acc)
	return nil
}

// ExecuteTransaction applies trx and returns the receipt that undoes it.
// The state is left untouched if an error is returned. Errors other than
// *state.Error mean the tx is invalid.
func (rt *Runtime) ExecuteTransaction(trx *tx.Transaction) (receipt *tx.Receipt, err error) {
	checkpoint := rt.state.NewCheckpoint()
	defer func() {
		if err != nil {
			rt.state.RevertTo(checkpoint)
		}
	}()

	signer, err := trx.Signer()
	if err != nil {
		return nil, errors.Wrap(ErrBadSignature, err.Error())
	}

	cost, err := trx.Cost()
	if err != nil {
		return nil, err
	}

	j := journal{state: rt.state}
	sender := trx.Sender()
	senderAcc, err := j.get(sender)
	if err != nil {
		return nil, err
	}
	if senderAcc == nil {
		// absent accounts hold nothing
		senderAcc = account.NewBasic(0)
	}
	if err := senderAcc.CheckOutgoing(&account.Outgoing{
		Address: sender,
		Signer:  signer,
		Height:  rt.ctx.Number,
		Amount:  cost,
		Proof:   trx.Proof(),
	}); err != nil {
		return nil, err
	}

	if !trx.IsValidAt(rt.ctx.Number) {
		return nil, errors.Wrapf(ErrValidityWindow, "start %d, height %d", trx.ValidityStart(), rt.ctx.Number)
	}

	if err := senderAcc.Debit(cost); err != nil {
		return nil, err
	}
	rt.state.SetAccount(sender, senderAcc)

	if trx.IsCreation() {
		if err := rt.create(&j, trx); err != nil {
			return nil, err
		}
	} else {
		if err := rt.transfer(&j, trx.Recipient(), trx.Value()); err != nil {
			return nil, err
		}
	}

	if err := j.credit(rt.ctx.Beneficiary, trx.Fee()); err != nil {
		return nil, err
	}

	logger.Trace("tx executed", "id", trx.ID(), "height", rt.ctx.Number, "changes", len(j.receipt.Changes))
	return &j.receipt, nil
}

func (rt *Runtime) transfer(j *journal, recipient thor.Address, value uint64) error {
	acc, err := j.get(recipient)
	if err != nil {
		return err
	}
	if acc != nil {
		if err := acc.CheckIncoming(); err != nil {
			return err
		}
	}
	return j.credit(recipient, value)
}

func (rt *Runtime) create(j *journal, trx *tx.Transaction) error {
	want := account.ContractAddress(trx.Sender(), trx.ValidityStart(), trx.Data())
	if trx.Recipient() != want {
		return errors.Wrapf(ErrCreation, "recipient %v, expected %v", trx.Recipient(), want)
	}
	if trx.Value() == 0 {
		return errors.Wrap(ErrCreation, "zero value")
	}
	existing, err := j.get(want)
	if err != nil {
		return err
	}
	if existing != nil {
		return errors.Wrapf(ErrCreation, "account %v exists", want)
	}

	contract, err := account.NewContract(trx.RecipientType(), trx.Data(), trx.Value())
	if err != nil {
		return err
	}
	rt.state.SetAccount(want, contract)
	return nil
}

// ApplyReward credits the block reward to the beneficiary and returns the
// receipt that undoes it.
func (rt *Runtime) ApplyReward(amount uint64) (*tx.Receipt, error) {
	j := journal{state: rt.state}
	if err := j.credit(rt.ctx.Beneficiary, amount); err != nil {
		return nil, err
	}
	return &j.receipt, nil
}

// RevertReceipt restores every account recorded in receipt to its prior
// state, the last recorded first.
func RevertReceipt(st *state.State, receipt *tx.Receipt) error {
	for i := len(receipt.Changes) - 1; i >= 0; i-- {
		c := receipt.Changes[i]
		if err := st.SetRaw(c.Address, c.Prior); err != nil {
			return errors.Wrapf(err, "restore %v", c.Address)
		}
	}
	return nil
}
