// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rtos

// The tick counter is 64 bits wide and never wraps in practice.

// clock advances time by one tick and readies every process whose delay
// has run out.
func (k *Kernel) clock() {
	k.checkLists()

	resched := false
	func() {
		mask := k.arch.Disable()
		defer k.arch.Restore(mask)

		k.tick++
		for p := k.delay.head; p != nil && p.delayUntil <= k.tick; p = k.delay.head {
			k.pop(&k.delay)
			k.readyInsert(p)
			if p.pri < k.current.pri {
				resched = true
			}
		}
	}()
	if resched {
		k.preempt()
	}

	k.checkLists()
}

// sleep blocks the current process for n ticks.
func (k *Kernel) sleep(n uint32) {
	k.checkLists()
	k.delayInsert(k.current, k.tick+uint64(n))
	k.arch.TriggerSwitch()
	k.checkLists()
}
