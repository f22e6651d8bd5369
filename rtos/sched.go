// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rtos

import "fmt"

func (k *Kernel) yield() {
	k.readyInsert(k.current)
	k.arch.TriggerSwitch()
}

// preempt gives up the processor because a process of better priority
// became ready. A current process that already left RUNNING is queued
// or blocked elsewhere and must not be queued twice.
func (k *Kernel) preempt() {
	if k.current.state == Running {
		k.readyInsert(k.current)
	}
	k.arch.TriggerSwitch()
}

// Reschedule is the context-switch hook. The architecture calls it when it
// takes a switch requested by TriggerSwitch; it makes the head of the ready
// list the running process and returns it.
func (k *Kernel) Reschedule() *PCB {
	mask := k.arch.Disable()
	defer k.arch.Restore(mask)

	prev := k.current
	p := k.pop(&k.ready)
	if p == nil {
		k.halt(FaultNoReady)
	}
	p.state = Running
	k.current = p
	if p != prev {
		k.switches++
		if k.Trace != nil {
			fmt.Fprintf(k.Trace, "[pid %d] switch -> pid %d\n", prev.pid, p.pid)
		}
	}
	return p
}
