// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rtos is the portable core of a small preemptive, priority-based
// real-time kernel: ready and delay lists, inbox message passing over a
// fixed-size buffer pool, per-process semaphores and the system call table.
//
// All kernel memory comes from one permanent region that is never freed.
// Processes are created once, at boot, and never exit.
package rtos

import (
	"fmt"
	"io"

	"github.com/macce/myrtos/mem"
)

// Config describes the memory the kernel may use.
type Config struct {
	PoolStart  mem.Addr // first byte of the kernel pool (from the linker script)
	PoolEnd    mem.Addr // first byte past the kernel pool
	BufferSize uint32   // buffer payload size; 0 means BSIZE
	MaxProcs   int      // size of the PCB table; 0 means NPROC
}

// Hooks are the boot-time callbacks into the application and the board.
type Hooks struct {
	// CreateProcesses creates every process with Kernel.CreateProcess.
	CreateProcesses func(k *Kernel)
	// Start enables peripherals just before the first process runs.
	Start func()
}

type Kernel struct {
	Trace io.Writer // if non-nil, system calls and switches are logged here

	arch Arch
	ram  mem.Memory
	cfg  Config

	perm  permanent
	pool  bufferPool
	ready pcbList
	delay pcbList

	pcbs    []PCB
	nextPid int
	procs   []*PCB   /* process table, indexed by pid; built at boot */
	table   mem.Addr /* its copy in the permanent region */
	sealed  bool
	booted  bool
	current *PCB

	tick     uint64
	switches uint64
}

// New returns a kernel that allocates from cfg's pool inside ram and calls
// arch for everything architecture specific.
func New(cfg Config, ram mem.Memory, arch Arch) (*Kernel, error) {
	if cfg.BufferSize == 0 {
		cfg.BufferSize = BSIZE
	}
	if cfg.MaxProcs == 0 {
		cfg.MaxProcs = NPROC
	}
	if cfg.PoolStart == 0 || cfg.PoolStart >= cfg.PoolEnd {
		return nil, fmt.Errorf("rtos: bad pool [%v, %v)", cfg.PoolStart, cfg.PoolEnd)
	}
	if cfg.BufferSize%4 != 0 {
		return nil, fmt.Errorf("rtos: buffer size %d is not a multiple of 4", cfg.BufferSize)
	}
	if cfg.MaxProcs < 0 {
		return nil, fmt.Errorf("rtos: bad process limit %d", cfg.MaxProcs)
	}
	k := &Kernel{
		arch:  arch,
		ram:   ram,
		cfg:   cfg,
		perm:  permanent{start: cfg.PoolStart, ptr: cfg.PoolStart, end: cfg.PoolEnd},
		pool:  bufferPool{size: cfg.BufferSize},
		ready: newReadyList(),
		delay: newDelayList(),
		pcbs:  make([]PCB, cfg.MaxProcs),
	}
	return k, nil
}

// CreateProcess allocates a PCB and a stack of stackSize bytes, has the
// architecture prepare the stack, and makes the process ready.
// It returns the new pid. Pids are handed out 0, 1, 2, ...
// CreateProcess may only be called from Hooks.CreateProcesses.
func (k *Kernel) CreateProcess(entry any, stackSize uint32, priority uint8) int {
	if k.sealed {
		k.halt(FaultSealed)
	}
	if k.nextPid >= len(k.pcbs) {
		k.halt(FaultTooManyProcs)
	}
	pid := k.nextPid
	p := &k.pcbs[pid]
	addr := k.allocPermanent(PCBSize, pcbAlign)
	stack := k.allocPermanent(stackSize, stackAlgn)
	*p = PCB{
		Entry:    entry,
		StackTop: stack + mem.Addr(stackSize),
		pri:      priority,
		pid:      pid,
		addr:     addr,
		state:    Ready,
	}
	k.arch.InitStack(p)

	k.nextPid++
	k.readyInsert(p)
	return pid
}

// Boot brings the system up: the application creates its processes, the
// process table is built, the board starts its peripherals and the
// highest-priority process is entered.
func (k *Kernel) Boot(h Hooks) {
	if k.sealed {
		k.halt(FaultSealed)
	}
	if h.CreateProcesses != nil {
		h.CreateProcesses(k)
	}

	n := k.nextPid
	k.table = k.allocPermanent(uint32(4*n), 4)
	k.procs = make([]*PCB, n)
	for p := k.ready.head; p != nil; p = p.next {
		k.procs[p.pid] = p
		k.writeW(k.table+mem.Addr(4*p.pid), uint32(p.addr))
	}
	for _, p := range k.procs {
		k.assert(p != nil)
	}
	k.sealed = true

	if h.Start != nil {
		h.Start()
	}

	p := k.pop(&k.ready)
	if p == nil {
		k.halt(FaultNoReady)
	}
	p.state = Running
	k.current = p
	k.booted = true
	k.arch.Start(p)
}

func (k *Kernel) lookup(pid int) *PCB {
	if pid < 0 || pid >= len(k.procs) {
		k.halt(FaultBadPid)
	}
	return k.procs[pid]
}

// Current returns the running process, or nil before boot.
func (k *Kernel) Current() *PCB { return k.current }

// Tick returns the number of ticks since boot.
func (k *Kernel) Tick() uint64 { return k.tick }

// Proc returns the PCB of process pid.
func (k *Kernel) Proc(pid int) *PCB { return k.lookup(pid) }

// Procs returns the process table.
func (k *Kernel) Procs() []*PCB { return k.procs }

// ReadyList returns the ready list in scheduling order.
func (k *Kernel) ReadyList() []*PCB { return k.ready.slice() }

// DelayList returns the delay list in wake-up order.
func (k *Kernel) DelayList() []*PCB { return k.delay.slice() }

type Stats struct {
	Tick        uint64
	Switches    uint64
	Procs       int
	Buffers     int
	FreeBuffers int
	PoolStart   mem.Addr
	PoolUsed    uint32
	PoolFree    uint32
	Table       mem.Addr
}

func (k *Kernel) Stats() Stats {
	return Stats{
		Tick:        k.tick,
		Switches:    k.switches,
		Procs:       k.nextPid,
		Buffers:     k.pool.carved,
		FreeBuffers: k.pool.nfree,
		PoolStart:   k.perm.start,
		PoolUsed:    uint32(k.perm.ptr - k.perm.start),
		PoolFree:    uint32(k.perm.end - k.perm.ptr),
		Table:       k.table,
	}
}
