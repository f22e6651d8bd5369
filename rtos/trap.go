// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rtos

import (
	"fmt"

	"github.com/macce/myrtos/mem"
)

// Trap runs system call no for the current process, or, for calls raised
// from an interrupt such as SysTick, on top of the interrupted process.
// The architecture calls Trap with the kernel entered; it returns the
// immediate result of the call. Calls that return a value also leave it in
// the caller's PCB.Retval, where a later direct delivery may replace it.
func (k *Kernel) Trap(no Sysno, args ...uint32) uint32 {
	if !k.booted {
		k.halt(FaultNotBooted)
	}
	if no >= nsys || len(args) < sysent[no].args {
		k.halt(FaultBadSyscall)
	}
	e := &sysent[no]
	p := k.current
	ret := e.impl(k, args)
	if e.ret {
		p.Retval = ret
	}
	if k.Trace != nil {
		k.trace(p, e, args, ret)
	}
	return ret
}

func (k *Kernel) trace(p *PCB, e *sysentry, args []uint32, ret uint32) {
	var desc []byte
	arg := 0
	i := 0
	for ; i < len(e.name); i++ {
		c := e.name[i]
		if c != '%' {
			desc = append(desc, c)
			if c == ')' {
				i++
				break
			}
			continue
		}
		i++
		desc = fmtArg(desc, e.name[i], args[arg])
		arg++
	}
	switch p.state {
	case Receive, Delay, SemWait:
		desc = append(desc, " blocked"...)
	default:
		for ; i < len(e.name); i++ {
			if c := e.name[i]; c != '%' {
				desc = append(desc, c)
				continue
			}
			i++
			desc = fmtArg(desc, e.name[i], ret)
		}
	}
	fmt.Fprintf(k.Trace, "[pid %d] %s\n", p.pid, desc)
}

func fmtArg(desc []byte, verb byte, v uint32) []byte {
	switch verb {
	case 'd':
		return fmt.Appendf(desc, "%d", v)
	case 'p':
		return fmt.Appendf(desc, "%v", mem.Addr(v))
	}
	return append(desc, '%', verb)
}
