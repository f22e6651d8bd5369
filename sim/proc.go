// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"fmt"

	"github.com/macce/myrtos/mem"
	"github.com/macce/myrtos/rtos"
)

// A Program is the body of a process. A program that returns leaves its
// process waiting on its semaphore forever.
type Program func(p *Proc)

type thread struct {
	name  string
	prio  uint8
	stack uint32
	prog  Program
	arg   []byte
	pid   int
	pcb   *rtos.PCB
	sched chan struct{}
}

func (m *Machine) run(t *thread) {
	m.wait(t)
	p := &Proc{m: m, t: t}
	t.prog(p)
	for {
		p.WaitPsem()
	}
}

// A Proc is a process's view of the machine: its system calls and devices.
// Its methods may only be called from the process's own goroutine.
type Proc struct {
	m *Machine
	t *thread
}

func (p *Proc) Name() string { return p.t.name }

// Arg returns the argument text the process was created with.
func (p *Proc) Arg() []byte { return p.t.arg }

// Pid returns the process id without entering the kernel.
func (p *Proc) Pid() int { return p.t.pid }

// Lookup returns the pid of the named process, or -1.
func (p *Proc) Lookup(name string) int {
	pid, _ := p.m.Lookup(name)
	return pid
}

// syscall is the supervisor call. A switch pending from an interrupt is
// taken first, as the hardware would have before the process got here.
func (p *Proc) syscall(no rtos.Sysno, args ...uint32) uint32 {
	m, t := p.m, p.t
	m.big.Lock()
	if m.dead() {
		m.big.Unlock()
		m.park()
	}
	m.pendSV(t)
	var ret uint32
	if !m.enter(func() { ret = m.K.Trap(no, args...) }) {
		m.big.Unlock()
		m.park()
	}
	if m.pendSV(t) {
		ret = t.pcb.Retval
	}
	m.big.Unlock()
	return ret
}

func (p *Proc) Yield() { p.syscall(rtos.SysYield) }

// Alloc returns a buffer of the pool's payload size. The size is advisory.
func (p *Proc) Alloc(size uint32) mem.Addr {
	return mem.Addr(p.syscall(rtos.SysAlloc, size))
}

// Send gives buf to inbox of process pid.
func (p *Proc) Send(buf mem.Addr, pid, inbox int) {
	p.syscall(rtos.SysSend, uint32(buf), uint32(pid), uint32(inbox))
}

// Receive returns the oldest buffer in inbox, blocking until there is one.
func (p *Proc) Receive(inbox int) mem.Addr {
	return mem.Addr(p.syscall(rtos.SysReceive, uint32(inbox)))
}

func (p *Proc) Dispose(buf mem.Addr) { p.syscall(rtos.SysDispose, uint32(buf)) }

// Delay blocks for n ticks.
func (p *Proc) Delay(n uint32) { p.syscall(rtos.SysDelay, n) }

func (p *Proc) WaitPsem() { p.syscall(rtos.SysWaitPsem) }

func (p *Proc) SignalPsem(pid int) { p.syscall(rtos.SysSignalPsem, uint32(pid)) }

func (p *Proc) CurrentPid() int { return int(p.syscall(rtos.SysCurrentPid)) }

// Idle waits for an interrupt, then takes any switch it requested.
func (p *Proc) Idle() {
	m, t := p.m, p.t
	m.big.Lock()
	switched := m.pendSV(t)
	m.big.Unlock()
	if switched {
		return
	}
	select {
	case <-m.wfi:
	case <-m.stopped:
		m.park()
	}
	m.big.Lock()
	if m.dead() {
		m.big.Unlock()
		m.park()
	}
	m.pendSV(t)
	m.big.Unlock()
}

// Write copies data into the payload of buf and returns the number of
// bytes copied.
func (p *Proc) Write(buf mem.Addr, data []byte) int {
	m := p.m
	m.big.Lock()
	defer m.big.Unlock()
	b, err := m.RAM.Slice(buf, m.payloadSize())
	if err != nil {
		return 0
	}
	return copy(b, data)
}

// Read returns a copy of the payload of buf.
func (p *Proc) Read(buf mem.Addr) []byte {
	m := p.m
	m.big.Lock()
	defer m.big.Unlock()
	b, err := m.RAM.Slice(buf, m.payloadSize())
	if err != nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func (m *Machine) payloadSize() uint32 {
	if n := m.cfg.Kernel.BufferSize; n != 0 {
		return n
	}
	return rtos.BSIZE
}

// Printf writes to the console.
func (p *Proc) Printf(format string, args ...any) {
	p.m.outMu.Lock()
	defer p.m.outMu.Unlock()
	fmt.Fprintf(p.m.cfg.Out, format, args...)
}

// Getc returns the next byte from the UART, waiting for input.
// Only the console process may call it. Input signals it once per byte,
// but bytes may also arrive unsignalled before boot, so the FIFO is
// checked first and a signal only means "look again".
func (p *Proc) Getc() byte {
	for {
		if b, ok := p.m.uart.get(); ok {
			return b
		}
		p.WaitPsem()
	}
}
