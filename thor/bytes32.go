// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

import (
	"bytes"
	"encoding"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Bytes32 array of 32 bytes.
type Bytes32 [32]byte

var (
	_ encoding.TextMarshaler   = Bytes32{}
	_ encoding.TextUnmarshaler = (*Bytes32)(nil)
)

// String implements stringer.
func (b Bytes32) String() string {
	return hexutil.Encode(b[:])
}

// AbbrevString returns abbrev string presentation.
func (b Bytes32) AbbrevString() string {
	return fmt.Sprintf("0x%x…%x", b[:4], b[28:])
}

// Bytes returns byte slice form of Bytes32.
func (b Bytes32) Bytes() []byte {
	return b[:]
}

// IsZero returns if Bytes32 has all zero bytes.
func (b Bytes32) IsZero() bool {
	return b == Bytes32{}
}

// Compare compares two values in byte-lexicographic order.
func (b Bytes32) Compare(other Bytes32) int {
	return bytes.Compare(b[:], other[:])
}

// MarshalText implements encoding.TextMarshaler.
func (b Bytes32) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Bytes32) UnmarshalText(text []byte) error {
	parsed, err := ParseBytes32(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ParseBytes32 converts the hex presentation into Bytes32. The 0x prefix is optional.
func ParseBytes32(s string) (Bytes32, error) {
	var b Bytes32
	if err := parseFixedHex(s, b[:]); err != nil {
		return Bytes32{}, err
	}
	return b, nil
}

// MustParseBytes32 convert string presented into Bytes32 type, panic on error.
func MustParseBytes32(s string) Bytes32 {
	b32, err := ParseBytes32(s)
	if err != nil {
		panic(err)
	}
	return b32
}

// BytesToBytes32 converts bytes slice into Bytes32.
// If b is larger than Bytes32 length, b will be cropped from the left.
// If b is smaller than Bytes32 length, b will be padded from the left.
func BytesToBytes32(b []byte) (h Bytes32) {
	if len(b) > len(h) {
		b = b[len(b)-len(h):]
	}
	copy(h[len(h)-len(b):], b)
	return
}

func parseFixedHex(s string, out []byte) error {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s) != len(out)*2 {
		return fmt.Errorf("invalid length: want %d hex chars, got %d", len(out)*2, len(s))
	}
	dec, err := hexutil.Decode("0x" + s)
	if err != nil {
		return err
	}
	copy(out, dec)
	return nil
}
