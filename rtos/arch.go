// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rtos

// A Mask is a saved interrupt mask, returned by Arch.Disable and handed
// back to Arch.Restore.
type Mask uint32

// An Arch is the architecture layer the portable kernel calls into.
//
// Disable raises the interrupt threshold to kernel level and returns the
// previous mask; Restore puts it back. Calls nest.
//
// TriggerSwitch requests a context switch to be taken once the kernel has
// left the current system call or interrupt. When the switch is taken the
// architecture calls Kernel.Reschedule and resumes the process it returns,
// handing it PCB.Retval as the result of its pending system call.
//
// Start enters the first process. On hardware it never returns.
//
// Halt reports a fatal fault. The kernel stops scheduling after calling it.
type Arch interface {
	InitStack(p *PCB)
	Start(p *PCB)
	TriggerSwitch()
	Disable() Mask
	Restore(m Mask)
	Halt(f Fault)
}
