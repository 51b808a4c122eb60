// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

import (
	"bytes"
	"encoding"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// AddressLength length of address in bytes.
const AddressLength = common.AddressLength

// Address identifies an account. It is the key space of the accounts trie.
type Address common.Address

var (
	_ encoding.TextMarshaler   = Address{}
	_ encoding.TextUnmarshaler = (*Address)(nil)
)

// String implements the stringer interface.
func (a Address) String() string {
	return hexutil.Encode(a[:])
}

// Bytes returns byte slice form of address.
func (a Address) Bytes() []byte {
	return a[:]
}

// IsZero returns if address has all zero bytes.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Compare compares two addresses in byte-lexicographic order.
func (a Address) Compare(other Address) int {
	return bytes.Compare(a[:], other[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress converts the hex presentation into Address. The 0x prefix is optional.
func ParseAddress(s string) (Address, error) {
	var a Address
	if err := parseFixedHex(s, a[:]); err != nil {
		return Address{}, err
	}
	return a, nil
}

// MustParseAddress convert string presented address into Address type, panic on error.
func MustParseAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// BytesToAddress converts bytes slice into address.
// If b is larger than address length, b will be cropped from the left.
// If b is smaller than address length, b will be padded from the left.
func BytesToAddress(b []byte) Address {
	return Address(common.BytesToAddress(b))
}
