// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// MustSign signs a transaction using the provided private key.
// It panics if the signing process fails.
func MustSign(tx *Transaction, pk *ecdsa.PrivateKey) *Transaction {
	trx, err := Sign(tx, pk)
	if err != nil {
		panic(err)
	}
	return trx
}

// Sign signs a transaction using the provided private key.
// It returns the signed transaction or an error if the signing process fails.
func Sign(tx *Transaction, pk *ecdsa.PrivateKey) (*Transaction, error) {
	hash := tx.SigningHash()
	sig, err := crypto.Sign(hash[:], pk)
	if err != nil {
		return nil, errors.Wrap(err, "unable to sign transaction")
	}
	return tx.WithSignature(sig), nil
}
