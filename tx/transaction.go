// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/ledger/account"
	"github.com/vechain/ledger/thor"
)

// FlagCreation marks a transaction that creates a contract at its recipient.
const FlagCreation uint8 = 1

var errCostOverflow = errors.New("value plus fee overflows")

// Transaction is an immutable tx type.
type Transaction struct {
	body body

	cache struct {
		signingHash atomic.Pointer[thor.Bytes32]
		signer      atomic.Pointer[thor.Address]
		id          atomic.Pointer[thor.Bytes32]
		size        atomic.Uint64
	}
}

// body describes details of a tx.
type body struct {
	Sender        thor.Address
	Recipient     thor.Address
	RecipientType account.Type
	Value         uint64
	Fee           uint64
	ValidityStart uint32
	Flags         uint8
	Data          []byte
	Proof         []byte
	Signature     []byte
}

// SigningHash returns hash of tx excludes signature.
func (t *Transaction) SigningHash() thor.Bytes32 {
	if cached := t.cache.signingHash.Load(); cached != nil {
		return *cached
	}

	hw := thor.NewBlake2b()
	err := rlp.Encode(hw, []any{
		t.body.Sender,
		t.body.Recipient,
		t.body.RecipientType,
		t.body.Value,
		t.body.Fee,
		t.body.ValidityStart,
		t.body.Flags,
		t.body.Data,
	})
	if err != nil {
		panic(err)
	}

	var h thor.Bytes32
	hw.Sum(h[:0])
	t.cache.signingHash.Store(&h)
	return h
}

// Signer returns the address recovered from the signature.
func (t *Transaction) Signer() (thor.Address, error) {
	if cached := t.cache.signer.Load(); cached != nil {
		return *cached, nil
	}

	hash := t.SigningHash()
	pub, err := crypto.SigToPub(hash[:], t.body.Signature)
	if err != nil {
		return thor.Address{}, errors.Wrap(err, "recover signer")
	}
	signer := thor.Address(crypto.PubkeyToAddress(*pub))
	t.cache.signer.Store(&signer)
	return signer, nil
}

// ID returns id of tx.
// ID = hash(signingHash, signer).
// It returns zero Bytes32 if signer not available.
func (t *Transaction) ID() thor.Bytes32 {
	if cached := t.cache.id.Load(); cached != nil {
		return *cached
	}
	signer, err := t.Signer()
	if err != nil {
		return thor.Bytes32{}
	}
	hash := t.SigningHash()
	id := thor.Blake2b(hash[:], signer[:])
	t.cache.id.Store(&id)
	return id
}

// Sender returns the address debited by the tx.
func (t *Transaction) Sender() thor.Address {
	return t.body.Sender
}

// Recipient returns the address credited by the tx.
func (t *Transaction) Recipient() thor.Address {
	return t.body.Recipient
}

// RecipientType returns the account type the recipient is created with.
// It's meaningful only for creation transactions.
func (t *Transaction) RecipientType() account.Type {
	return t.body.RecipientType
}

// Value returns the amount moved from sender to recipient.
func (t *Transaction) Value() uint64 {
	return t.body.Value
}

// Fee returns the fee credited to the block beneficiary.
func (t *Transaction) Fee() uint64 {
	return t.body.Fee
}

// Cost returns value plus fee, the amount debited from the sender.
func (t *Transaction) Cost() (uint64, error) {
	cost := t.body.Value + t.body.Fee
	if cost < t.body.Value {
		return 0, errCostOverflow
	}
	return cost, nil
}

// ValidityStart returns the first block height the tx may be included at.
func (t *Transaction) ValidityStart() uint32 {
	return t.body.ValidityStart
}

// IsValidAt returns whether the tx may be included in a block at height.
// The window is [ValidityStart, ValidityStart+TxValidityWindow).
func (t *Transaction) IsValidAt(height uint32) bool {
	return height >= t.body.ValidityStart &&
		uint64(height) < uint64(t.body.ValidityStart)+uint64(thor.TxValidityWindow)
}

// IsCreation returns whether the tx creates a contract at its recipient.
func (t *Transaction) IsCreation() bool {
	return t.body.Flags&FlagCreation != 0
}

// Data returns a copy of the data, which carries contract creation parameters.
func (t *Transaction) Data() []byte {
	return append([]byte(nil), t.body.Data...)
}

// Proof returns a copy of the proof used to unlock the sender account.
func (t *Transaction) Proof() []byte {
	return append([]byte(nil), t.body.Proof...)
}

// Signature returns signature.
func (t *Transaction) Signature() []byte {
	return append([]byte(nil), t.body.Signature...)
}

// WithSignature create a new tx with signature set.
func (t *Transaction) WithSignature(sig []byte) *Transaction {
	newTx := Transaction{
		body: t.body,
	}
	// copy sig
	newTx.body.Signature = append([]byte(nil), sig...)
	return &newTx
}

// Size returns size in bytes when RLP encoded.
func (t *Transaction) Size() uint64 {
	if cached := t.cache.size.Load(); cached != 0 {
		return cached
	}
	var c writeCounter
	if err := rlp.Encode(&c, t); err != nil {
		panic(err)
	}
	t.cache.size.Store(uint64(c))
	return uint64(c)
}

// EncodeRLP implements rlp.Encoder
func (t *Transaction) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &t.body)
}

// DecodeRLP implements rlp.Decoder
func (t *Transaction) DecodeRLP(s *rlp.Stream) error {
	var body body
	if err := s.Decode(&body); err != nil {
		return err
	}
	*t = Transaction{
		body: body,
	}
	return nil
}

func (t *Transaction) String() string {
	var signerStr string
	if signer, err := t.Signer(); err != nil {
		signerStr = "N/A"
	} else {
		signerStr = signer.String()
	}

	return fmt.Sprintf(`
	Tx(%v, %v)
	Signer:         %v
	Sender:         %v
	Recipient:      %v (%v)
	Value:          %v
	Fee:            %v
	ValidityStart:  %v
	Creation:       %v
	Data:           0x%x
	Proof:          0x%x
	Signature:      0x%x
`, t.ID(), t.Size(), signerStr, t.body.Sender, t.body.Recipient, t.body.RecipientType,
		t.body.Value, t.body.Fee, t.body.ValidityStart, t.IsCreation(), t.body.Data, t.body.Proof, t.body.Signature)
}

type writeCounter uint64

func (c *writeCounter) Write(b []byte) (int, error) {
	*c += writeCounter(len(b))
	return len(b), nil
}
