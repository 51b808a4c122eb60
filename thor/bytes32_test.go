// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestParseBytes32(t *testing.T) {
	h := Blake2b([]byte("ledger"))

	parsed, err := ParseBytes32(h.String())
	assert.Nil(t, err)
	assert.Equal(t, h, parsed)

	parsed, err = ParseBytes32(h.String()[2:])
	assert.Nil(t, err)
	assert.Equal(t, h, parsed)

	_, err = ParseBytes32("0x1234")
	assert.NotNil(t, err)

	_, err = ParseBytes32("0x" + string(make([]byte, 64)))
	assert.NotNil(t, err)
}

func TestBytesToBytes32(t *testing.T) {
	assert.Equal(t, Bytes32{31: 1}, BytesToBytes32([]byte{1}))

	long := make([]byte, 40)
	long[39] = 7
	assert.Equal(t, Bytes32{31: 7}, BytesToBytes32(long))
}

func TestAddressText(t *testing.T) {
	addr := BytesToAddress([]byte("alice"))

	type doc struct {
		Addr Address `yaml:"addr"`
		Hash Bytes32 `yaml:"hash"`
	}
	in := doc{addr, Blake2b(addr[:])}

	data, err := yaml.Marshal(&in)
	assert.Nil(t, err)

	var out doc
	assert.Nil(t, yaml.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	assert.True(t, Address{}.IsZero())
	assert.Equal(t, -1, Address{0x01}.Compare(Address{0x02}))
}

func TestBlake2b(t *testing.T) {
	a, b := []byte("foo"), []byte("bar")
	assert.Equal(t, Blake2b(append(append([]byte{}, a...), b...)), Blake2b(a, b))
}
