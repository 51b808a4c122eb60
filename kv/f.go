// Copyright (c) 2019 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

// function adapters, composed into anonymous structs to satisfy the interfaces.
type (
	GetFunc        func(key []byte) ([]byte, error)
	HasFunc        func(key []byte) (bool, error)
	IsNotFoundFunc func(err error) bool
	PutFunc        func(key, val []byte) error
	DeleteFunc     func(key []byte) error
	LenFunc        func() int
	WriteFunc      func() error
	ReleaseFunc    func()
	SnapshotFunc   func() Snapshot
	BulkFunc       func() Bulk
	IterateFunc    func(r Range) Iterator
)

func (f GetFunc) Get(key []byte) ([]byte, error)   { return f(key) }
func (f HasFunc) Has(key []byte) (bool, error)     { return f(key) }
func (f IsNotFoundFunc) IsNotFound(err error) bool { return f(err) }
func (f PutFunc) Put(key, val []byte) error        { return f(key, val) }
func (f DeleteFunc) Delete(key []byte) error       { return f(key) }
func (f LenFunc) Len() int                         { return f() }
func (f WriteFunc) Write() error                   { return f() }
func (f ReleaseFunc) Release()                     { f() }
func (f SnapshotFunc) Snapshot() Snapshot          { return f() }
func (f BulkFunc) Bulk() Bulk                      { return f() }
func (f IterateFunc) Iterate(r Range) Iterator     { return f(r) }
