// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rtos

import (
	"fmt"

	"github.com/macce/myrtos/mem"
)

// A Sysno is a system call number, the index into the dispatch table.
type Sysno uint32

const (
	SysYield Sysno = iota
	SysAlloc
	SysSend
	SysReceive
	SysDispose
	SysTick
	SysDelay
	SysWaitPsem
	SysSignalPsem
	SysCurrentPid
	nsys
)

func (no Sysno) String() string {
	if no < nsys {
		e := &sysent[no]
		for i := 0; i < len(e.name); i++ {
			if e.name[i] == '(' {
				return e.name[:i]
			}
		}
		return e.name
	}
	return fmt.Sprintf("Sysno(%d)", uint32(no))
}

type sysentry struct {
	args int
	ret  bool /* result goes to PCB.Retval */
	name string
	impl func(k *Kernel, a []uint32) uint32
}

var sysent [nsys]sysentry

func init() {
	sysent = [nsys]sysentry{
		{0, false, "yield()", sysyield},                /* 0 = yield */
		{1, true, "alloc(%d) = %p", sysalloc},          /* 1 = alloc */
		{3, false, "send(%p, %d, %d)", syssend},        /* 2 = send */
		{1, true, "receive(%d) = %p", sysreceive},      /* 3 = receive */
		{1, false, "dispose(%p)", sysdispose},          /* 4 = dispose */
		{0, false, "tick()", systick},                  /* 5 = tick */
		{1, false, "delay(%d)", sysdelay},              /* 6 = delay */
		{0, false, "wait_psem()", syswaitpsem},         /* 7 = wait_psem */
		{1, false, "signal_psem(%d)", syssignalpsem},   /* 8 = signal_psem */
		{0, true, "current_pid() = %d", syscurrentpid}, /* 9 = current_pid */
	}
}

func sysyield(k *Kernel, a []uint32) uint32 {
	k.yield()
	return 0
}

func sysalloc(k *Kernel, a []uint32) uint32 {
	return uint32(k.alloc(a[0]))
}

func syssend(k *Kernel, a []uint32) uint32 {
	k.send(mem.Addr(a[0]), int(a[1]), int(a[2]))
	return 0
}

func sysreceive(k *Kernel, a []uint32) uint32 {
	return uint32(k.receive(int(a[0])))
}

func sysdispose(k *Kernel, a []uint32) uint32 {
	k.dispose(mem.Addr(a[0]))
	return 0
}

func systick(k *Kernel, a []uint32) uint32 {
	k.clock()
	return 0
}

func sysdelay(k *Kernel, a []uint32) uint32 {
	k.sleep(a[0])
	return 0
}

func syswaitpsem(k *Kernel, a []uint32) uint32 {
	k.waitPsem()
	return 0
}

func syssignalpsem(k *Kernel, a []uint32) uint32 {
	k.signalPsem(int(a[0]))
	return 0
}

func syscurrentpid(k *Kernel, a []uint32) uint32 {
	return uint32(k.current.pid)
}
