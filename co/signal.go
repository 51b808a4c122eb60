// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import "sync"

// Waiter waits for signals.
type Waiter interface {
	// C returns a channel closed on the next broadcast after the previous call of C.
	C() <-chan struct{}
}

// Signal broadcasts wake-ups to any number of waiters.
// The zero value is ready to use.
type Signal struct {
	lock sync.Mutex
	ch   chan struct{}
}

func (s *Signal) current() chan struct{} {
	if s.ch == nil {
		s.ch = make(chan struct{})
	}
	return s.ch
}

// Broadcast wakes up all waiters.
func (s *Signal) Broadcast() {
	s.lock.Lock()
	close(s.current())
	s.ch = make(chan struct{})
	s.lock.Unlock()
}

// NewWaiter creates a waiter. Broadcasts fired after creation are never lost:
// a waiter that missed one returns a closed channel on its next C call.
func (s *Signal) NewWaiter() Waiter {
	s.lock.Lock()
	ref := s.current()
	s.lock.Unlock()

	return waiterFunc(func() <-chan struct{} {
		ch := ref
		s.lock.Lock()
		ref = s.current()
		s.lock.Unlock()
		return ch
	})
}

type waiterFunc func() <-chan struct{}

func (w waiterFunc) C() <-chan struct{} { return w() }
