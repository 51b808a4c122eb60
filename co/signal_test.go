// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignal(t *testing.T) {
	var sig Signal
	w := sig.NewWaiter()

	select {
	case <-w.C():
		t.Fatal("should block before broadcast")
	default:
	}

	sig.Broadcast()
	select {
	case <-w.C():
	case <-time.After(time.Second):
		t.Fatal("missed broadcast")
	}

	// the next wait blocks again
	select {
	case <-w.C():
		t.Fatal("should block")
	default:
	}
}

func TestGoes(t *testing.T) {
	var (
		goes Goes
		n    = make(chan int, 10)
	)
	for i := 0; i < 10; i++ {
		i := i
		goes.Go(func() { n <- i })
	}
	select {
	case <-goes.Done():
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
	assert.Len(t, n, 10)
}
