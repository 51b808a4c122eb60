// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package consensus

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/vechain/ledger/state"
)

// Kind classifies why a block was not accepted.
type Kind int

const (
	// MalformedBlock means the header or body violates a structural rule.
	MalformedBlock Kind = iota + 1
	// InvalidTransaction means a transaction in the block fails validation.
	InvalidTransaction
	// StateRootMismatch means the computed state root differs from the declared one.
	StateRootMismatch
	// UnknownParent means the parent block is not stored yet.
	UnknownParent
	// FutureBlock means the block timestamp is too far ahead of local time.
	FutureBlock
	// StorageFailure means the underlying store failed. It's fatal.
	StorageFailure
	// ReorgFailure means a block on the heavier branch failed while switching to it.
	ReorgFailure
)

func (k Kind) String() string {
	switch k {
	case MalformedBlock:
		return "malformed block"
	case InvalidTransaction:
		return "invalid transaction"
	case StateRootMismatch:
		return "state root mismatch"
	case UnknownParent:
		return "unknown parent"
	case FutureBlock:
		return "future block"
	case StorageFailure:
		return "storage failure"
	case ReorgFailure:
		return "reorg failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the error returned when a block is not accepted.
type Error struct {
	Kind   Kind
	Reason string
	cause  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.Detail())
}

// Detail returns the reason followed by the cause, without the kind.
func (e *Error) Detail() string {
	if e.cause != nil {
		return fmt.Sprintf("%v: %v", e.Reason, e.cause)
	}
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError creates an error of the given kind.
func NewError(kind Kind, reason string) error {
	return &Error{Kind: kind, Reason: reason}
}

// WrapError creates an error of the given kind with a cause.
func WrapError(kind Kind, cause error, reason string) error {
	return &Error{Kind: kind, Reason: reason, cause: cause}
}

func errorf(kind Kind, format string, args ...any) error {
	return NewError(kind, fmt.Sprintf(format, args...))
}

// storageError wraps an error returned by the chain store or the state.
// Errors already classified are returned as is.
func storageError(err error, reason string) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return WrapError(StorageFailure, err, reason)
}

// txError classifies an error returned by the runtime.
func txError(err error, index int) error {
	var se *state.Error
	if errors.As(err, &se) {
		return WrapError(StorageFailure, err, fmt.Sprintf("tx #%d", index))
	}
	return WrapError(InvalidTransaction, err, fmt.Sprintf("tx #%d", index))
}

// KindOf returns the kind of err, or 0 if err is not a consensus error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsMalformed returns whether the error means the block is malformed.
func IsMalformed(err error) bool { return KindOf(err) == MalformedBlock }

// IsInvalidTransaction returns whether the error is caused by an invalid tx.
func IsInvalidTransaction(err error) bool { return KindOf(err) == InvalidTransaction }

// IsStateRootMismatch returns whether the error is a state root mismatch.
func IsStateRootMismatch(err error) bool { return KindOf(err) == StateRootMismatch }

// IsUnknownParent returns whether the block's parent is missing.
func IsUnknownParent(err error) bool { return KindOf(err) == UnknownParent }

// IsFutureBlock returns whether the block is from the future.
func IsFutureBlock(err error) bool { return KindOf(err) == FutureBlock }

// IsStorageFailure returns whether the error is a storage failure.
func IsStorageFailure(err error) bool { return KindOf(err) == StorageFailure }

// IsReorgFailure returns whether the error is a reorg failure.
func IsReorgFailure(err error) bool { return KindOf(err) == ReorgFailure }

// IsCritical returns whether the block is invalid regardless of time and
// local storage, so it should never be retried.
func IsCritical(err error) bool {
	switch KindOf(err) {
	case MalformedBlock, InvalidTransaction, StateRootMismatch, ReorgFailure:
		return true
	}
	return false
}
