// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stackedmap_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vechain/ledger/stackedmap"
)

func M(a ...any) []any {
	return a
}

func TestStackedMap(t *testing.T) {
	assert := assert.New(t)
	src := make(map[string]string)
	src["foo"] = "bar"

	sm := stackedmap.New(func(key string) (string, bool, error) {
		v, r := src[key]
		return v, r, nil
	})

	tests := []struct {
		f         func()
		depth     int
		putKey    string
		putValue  string
		getKey    string
		getReturn []any
	}{
		{func() {}, 1, "", "", "foo", []any{"bar", true, nil}},
		{func() { sm.Push() }, 2, "foo", "baz", "foo", []any{"baz", true, nil}},
		{func() {}, 2, "foo", "baz1", "foo", []any{"baz1", true, nil}},
		{func() { sm.Push() }, 3, "foo", "qux", "foo", []any{"qux", true, nil}},
		{func() { sm.Pop() }, 2, "", "", "foo", []any{"baz1", true, nil}},
		{func() { sm.Pop() }, 1, "", "", "foo", []any{"bar", true, nil}},

		{func() { sm.Push(); sm.Push() }, 3, "", "", "", nil},
		{func() { sm.PopTo(0) }, 0, "", "", "", nil},
	}

	for _, test := range tests {
		test.f()
		assert.Equal(test.depth, sm.Depth())
		if test.putKey != "" {
			sm.Put(test.putKey, test.putValue)
		}
		if test.getKey != "" {
			assert.Equal(test.getReturn, M(sm.Get(test.getKey)))
		}
	}
}

func TestStackedMapRepeatedPut(t *testing.T) {
	sm := stackedmap.New(func(string) (int, bool, error) { return 0, false, nil })

	sm.Push()
	sm.Put("a", 1)
	sm.Put("a", 2)
	sm.Push()
	sm.Put("a", 3)

	sm.Pop()
	v, ok, _ := sm.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	sm.Pop()
	v, ok, _ = sm.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, v)
}

func TestStackedMapSourceError(t *testing.T) {
	errSrc := errors.New("boom")
	sm := stackedmap.New(func(string) (int, bool, error) { return 0, false, errSrc })

	_, _, err := sm.Get("x")
	assert.Equal(t, errSrc, err)

	sm.Put("x", 1)
	v, ok, err := sm.Get("x")
	assert.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestStackedMapPuts(t *testing.T) {
	assert := assert.New(t)
	sm := stackedmap.New(func(string) (string, bool, error) {
		return "", false, nil
	})

	kvs := []struct {
		k, v string
	}{
		{"a", "b"},
		{"a", "b"},
		{"a1", "b1"},
		{"a2", "b2"},
		{"a3", "b3"},
		{"a4", "b4"},
	}

	for _, kv := range kvs {
		sm.Push()
		sm.Put(kv.k, kv.v)
	}
	i := 0
	sm.Journal(func(k, v string) bool {
		assert.Equal(kvs[i].k, k)
		assert.Equal(kvs[i].v, v)
		i++
		return true
	})
	assert.Equal(len(kvs), i, "Journal should traverse all")

	i = 0
	sm.Journal(func(k, v string) bool {
		i++
		return false
	})

	assert.Equal(1, i, "Journal traverse should abort")
}
