// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rtos

// Every process owns one counting semaphore, signalled by pid.

func (k *Kernel) waitPsem() {
	p := k.current
	if p.psem == 0 {
		p.state = SemWait
		k.arch.TriggerSwitch()
		return
	}
	p.psem--
}

// signalPsem hands the signal straight to a waiting owner, so the count
// stays zero; otherwise the count goes up.
func (k *Kernel) signalPsem(pid int) {
	p := k.lookup(pid)

	mask := k.arch.Disable()
	defer k.arch.Restore(mask)

	if p.state == SemWait {
		k.readyInsert(p)
		if p.pri < k.current.pri {
			k.preempt()
		}
		return
	}
	p.psem++
}
