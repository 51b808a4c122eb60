// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trie

import "errors"

var errInvalidCompact = errors.New("invalid compact nibbles")

// keybytesToNibbles splits each key byte into two nibbles, high first.
func keybytesToNibbles(key []byte) []byte {
	nibbles := make([]byte, len(key)*2)
	for i, b := range key {
		nibbles[i*2] = b >> 4
		nibbles[i*2+1] = b & 0x0f
	}
	return nibbles
}

// nibblesToKeybytes is the inverse of keybytesToNibbles. len(nibbles) must be even.
func nibblesToKeybytes(nibbles []byte) []byte {
	key := make([]byte, len(nibbles)/2)
	for i := range key {
		key[i] = nibbles[i*2]<<4 | nibbles[i*2+1]
	}
	return key
}

// compactEncode packs nibbles into bytes. The high nibble of the first byte
// flags odd length, in which case its low nibble carries the first nibble.
func compactEncode(nibbles []byte) []byte {
	buf := make([]byte, len(nibbles)/2+1)
	if len(nibbles)&1 == 1 {
		buf[0] = 0x10 | nibbles[0]
		nibbles = nibbles[1:]
	}
	for i := 0; i < len(nibbles); i += 2 {
		buf[i/2+1] = nibbles[i]<<4 | nibbles[i+1]
	}
	return buf
}

func compactDecode(buf []byte) ([]byte, error) {
	if len(buf) == 0 {
		return nil, errInvalidCompact
	}
	nibbles := make([]byte, 0, len(buf)*2)
	switch buf[0] >> 4 {
	case 0:
		if buf[0]&0x0f != 0 {
			return nil, errInvalidCompact
		}
	case 1:
		nibbles = append(nibbles, buf[0]&0x0f)
	default:
		return nil, errInvalidCompact
	}
	for _, b := range buf[1:] {
		nibbles = append(nibbles, b>>4, b&0x0f)
	}
	return nibbles, nil
}

func commonPrefixLen(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// concat returns a new slice holding all parts.
func concat(parts ...[]byte) []byte {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	out := make([]byte, 0, size)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
