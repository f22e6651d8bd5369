// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rtos

import "github.com/macce/myrtos/mem"

// send moves buf into inbox of process pid. The sender gives up the buffer.
func (k *Kernel) send(buf mem.Addr, pid, inbox int) {
	dest := k.lookup(pid)
	k.checkInbox(inbox)
	h := k.header(buf)
	k.checkBuffer(h, bufHeaderMagic)
	k.writeW(h+4, 0)

	mask := k.arch.Disable()
	defer k.arch.Restore(mask)

	if dest.inbox[inbox] == 0 {
		if dest.state == Receive && dest.receiveFrom == inbox {
			// The receiver is blocked on this very inbox:
			// its receive returns buf when it next runs.
			dest.Retval = uint32(buf)
			k.readyInsert(dest)
			if dest.pri < k.current.pri {
				k.preempt()
			}
			return
		}
		k.writeW(h, bufQueueMagic)
		dest.inbox[inbox] = h
		return
	}

	// Append to the queue. The receiver cannot be waiting on a
	// non-empty inbox, so nobody becomes ready here.
	// TODO: keep a tail pointer per inbox if queues get deep.
	t := dest.inbox[inbox]
	for n := 0; ; n++ {
		next := mem.Addr(k.readW(t + 4))
		if next == 0 {
			break
		}
		if n >= k.pool.carved || next == t {
			k.halt(FaultListCycle)
		}
		t = next
	}
	k.writeW(h, bufQueueMagic)
	k.writeW(t+4, uint32(h))
}

// receive takes the oldest buffer from inbox of the current process.
// If the inbox is empty the process blocks in RECEIVE and the result is
// delivered later, by the send that wakes it.
func (k *Kernel) receive(inbox int) mem.Addr {
	k.checkInbox(inbox)
	p := k.current

	mask := k.arch.Disable()
	defer k.arch.Restore(mask)

	if h := p.inbox[inbox]; h != 0 {
		k.checkBuffer(h, bufQueueMagic)
		p.inbox[inbox] = mem.Addr(k.readW(h + 4))
		k.writeW(h, bufHeaderMagic)
		k.writeW(h+4, 0)
		return h + BufHeaderSize
	}
	p.state = Receive
	p.receiveFrom = inbox
	k.arch.TriggerSwitch()
	return 0
}

func (k *Kernel) dispose(buf mem.Addr) {
	k.release(buf)
}

func (k *Kernel) checkInbox(inbox int) {
	if inbox < 0 || inbox >= NINBOX {
		k.halt(FaultBadInbox)
	}
}

// InboxLen returns the number of buffers queued in inbox of process pid.
func (k *Kernel) InboxLen(pid, inbox int) int {
	p := k.lookup(pid)
	k.checkInbox(inbox)
	n := 0
	for h := p.inbox[inbox]; h != 0; h = mem.Addr(k.readW(h + 4)) {
		if n++; n > k.pool.carved {
			k.halt(FaultListCycle)
		}
	}
	return n
}
