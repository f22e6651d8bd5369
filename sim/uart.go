// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import "sync/atomic"

const uartFIFO = 16

// uart is the receive FIFO: one producer (the host input) and one consumer
// (the console process), lock free.
type uart struct {
	_    [0]func() // no copying
	head atomic.Uint32
	tail atomic.Uint32
	fifo [uartFIFO]byte
}

// put queues b, or reports false if the FIFO is full (overrun).
func (u *uart) put(b byte) bool {
	head := u.head.Load()
	if head-u.tail.Load() >= uartFIFO {
		return false
	}
	u.fifo[head%uartFIFO] = b
	u.head.Store(head + 1)
	return true
}

func (u *uart) get() (byte, bool) {
	tail := u.tail.Load()
	if tail == u.head.Load() {
		return 0, false
	}
	b := u.fifo[tail%uartFIFO]
	u.tail.Store(tail + 1)
	return b, true
}
