// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rtos

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/macce/myrtos/mem"
)

// testArch is a deterministic architecture: switches are only taken when
// the test asks for them.
type testArch struct {
	depth   int
	pending bool
	started *PCB
	inits   int
	halted  Fault
}

func (a *testArch) InitStack(p *PCB) { a.inits++; p.SP = p.StackTop - 64 }
func (a *testArch) Start(p *PCB) { a.started = p }
func (a *testArch) TriggerSwitch() { a.pending = true }
func (a *testArch) Disable() Mask { a.depth++; return Mask(a.depth - 1) }
func (a *testArch) Restore(m Mask) { a.depth = int(m) }
func (a *testArch) Halt(f Fault) { a.halted = f }

// switchTo takes a pending switch, as the architecture would on the way
// out of the kernel.
func (a *testArch) switchTo(k *Kernel) *PCB {
	if a.pending {
		a.pending = false
		k.Reschedule()
	}
	return k.Current()
}

const (
	testRAM  = 0x20000000
	testPool = testRAM + 0x100
	testEnd  = testRAM + 0x4000
)

func newKernel(t *testing.T) (*Kernel, *testArch) {
	t.Helper()
	a := new(testArch)
	k, err := New(Config{PoolStart: testPool, PoolEnd: testEnd}, mem.NewRAM(testRAM, testEnd-testRAM), a)
	if err != nil {
		t.Fatal(err)
	}
	return k, a
}

// bootKernel boots a kernel with one process per priority; pid i has prios[i].
func bootKernel(t *testing.T, prios ...uint8) (*Kernel, *testArch) {
	t.Helper()
	k, a := newKernel(t)
	k.Boot(Hooks{CreateProcesses: func(k *Kernel) {
		for i, pri := range prios {
			k.CreateProcess(i, 256, pri)
		}
	}})
	return k, a
}

func mustFault(t *testing.T, a *testArch, want Fault, f func()) {
	t.Helper()
	func() {
		defer func() {
			if r := recover(); r != want {
				t.Fatalf("recovered %v, want %v", r, want)
			}
		}()
		f()
	}()
	if a.halted != want {
		t.Fatalf("Halt(%v), want Halt(%v)", a.halted, want)
	}
	if a.depth != 0 {
		t.Fatalf("interrupt mask depth %d after fault, want 0", a.depth)
	}
}

func pids(list []*PCB) []int {
	var out []int
	for _, p := range list {
		out = append(out, p.pid)
	}
	return out
}

func TestNewConfig(t *testing.T) {
	ram := mem.NewRAM(testRAM, 0x1000)
	bad := []Config{
		{},
		{PoolStart: testPool, PoolEnd: testPool},
		{PoolStart: testPool, PoolEnd: testEnd, BufferSize: 62},
		{PoolStart: testPool, PoolEnd: testEnd, MaxProcs: -1},
	}
	for _, cfg := range bad {
		if _, err := New(cfg, ram, new(testArch)); err == nil {
			t.Errorf("New(%+v) succeeded, want error", cfg)
		}
	}
}

func TestReadyListOrder(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for trial := 0; trial < 100; trial++ {
		k, a := newKernel(t)
		n := 1 + r.Intn(len(k.pcbs))
		k.nextPid = n
		for i := 0; i < n; i++ {
			p := &k.pcbs[i]
			p.pid = i
			p.pri = uint8(r.Intn(4))
			k.readyInsert(p)
		}
		list := k.ReadyList()
		if len(list) != n {
			t.Fatalf("ready list has %d PCBs, want %d", len(list), n)
		}
		for i := 1; i < n; i++ {
			p, q := list[i-1], list[i]
			if p.pri > q.pri || p.pri == q.pri && p.pid > q.pid {
				t.Fatalf("trial %d: ready list %v out of order at %d", trial, pids(list), i)
			}
		}
		for _, p := range list {
			if p.state != Ready || p.on != onReady {
				t.Fatalf("pid %d: state %v on %d, want READY on ready list", p.pid, p.state, p.on)
			}
		}
		if a.depth != 0 {
			t.Fatalf("interrupt mask depth %d, want 0", a.depth)
		}
	}
}

func TestDelayListOrder(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for trial := 0; trial < 100; trial++ {
		k, _ := newKernel(t)
		n := 1 + r.Intn(len(k.pcbs))
		k.nextPid = n
		for i := 0; i < n; i++ {
			p := &k.pcbs[i]
			p.pid = i
			k.delayInsert(p, uint64(r.Intn(20)))
		}
		list := k.DelayList()
		for i := 1; i < n; i++ {
			p, q := list[i-1], list[i]
			if p.delayUntil > q.delayUntil || p.delayUntil == q.delayUntil && p.pid > q.pid {
				t.Fatalf("trial %d: delay list out of order at %d", trial, i)
			}
		}
	}
}

func TestListMember(t *testing.T) {
	k, a := newKernel(t)
	k.nextPid = 2
	p := &k.pcbs[0]
	k.readyInsert(p)
	mustFault(t, a, FaultListMember, func() { k.delayInsert(p, 5) })
}

func TestListCycle(t *testing.T) {
	k, a := newKernel(t)
	k.nextPid = 2
	p, q := &k.pcbs[0], &k.pcbs[1]
	k.readyInsert(p)
	k.readyInsert(q)
	q.next = p
	mustFault(t, a, FaultListCycle, func() { k.checkLists() })
}

func TestAllocPermanent(t *testing.T) {
	k, a := newKernel(t)
	if addr := k.allocPermanent(3, 4); addr != testPool {
		t.Fatalf("first allocation at %v, want %v", addr, mem.Addr(testPool))
	}
	if addr := k.allocPermanent(8, 8); addr != testPool+8 {
		t.Fatalf("aligned allocation at %v, want %v", addr, mem.Addr(testPool+8))
	}
	if addr := k.allocPermanent(1, 1); addr != testPool+16 {
		t.Fatalf("byte allocation at %v, want %v", addr, mem.Addr(testPool+16))
	}
	rest := uint32(testEnd - testPool - 20)
	if addr := k.allocPermanent(rest, 4); addr != testPool+20 {
		t.Fatalf("last allocation at %v, want %v", addr, mem.Addr(testPool+20))
	}
	mustFault(t, a, FaultPoolExhausted, func() { k.allocPermanent(1, 1) })
}

func TestBoot(t *testing.T) {
	k, a := bootKernel(t, 5, 1, 9, 1)
	if a.inits != 4 {
		t.Fatalf("InitStack called %d times, want 4", a.inits)
	}
	if a.started == nil || a.started.pid != 1 {
		t.Fatalf("started %v, want pid 1", a.started)
	}
	if cur := k.Current(); cur != a.started || cur.state != Running {
		t.Fatalf("current %v in %v, want pid 1 RUNNING", cur, cur.state)
	}
	if have, want := fmt.Sprint(pids(k.ReadyList())), "[3 0 2]"; have != want {
		t.Fatalf("ready list %s, want %s", have, want)
	}
	if len(k.Procs()) != 4 {
		t.Fatalf("process table has %d entries, want 4", len(k.Procs()))
	}
	for pid, p := range k.Procs() {
		if p.pid != pid {
			t.Fatalf("table[%d] = pid %d", pid, p.pid)
		}
		if p.StackTop&7 != 0 || p.StackTop-256 < p.addr+PCBSize {
			t.Fatalf("pid %d: stack top %v overlaps PCB at %v", pid, p.StackTop, p.addr)
		}
		w := k.readW(k.table + mem.Addr(4*pid))
		if mem.Addr(w) != p.addr {
			t.Fatalf("RAM table[%d] = %#x, want %v", pid, w, p.addr)
		}
	}
	mustFault(t, a, FaultSealed, func() { k.CreateProcess(nil, 64, 1) })
}

func TestBootNothingToRun(t *testing.T) {
	k, a := newKernel(t)
	mustFault(t, a, FaultNoReady, func() { k.Boot(Hooks{}) })
}

func TestBootHooksOrder(t *testing.T) {
	k, a := newKernel(t)
	var order []string
	k.Boot(Hooks{
		CreateProcesses: func(k *Kernel) {
			order = append(order, "create")
			k.CreateProcess(nil, 64, 3)
		},
		Start: func() {
			if k.procs == nil {
				t.Errorf("Start hook ran before the process table was built")
			}
			order = append(order, "start")
		},
	})
	if fmt.Sprint(order) != "[create start]" || a.started == nil {
		t.Fatalf("boot order %v, started %v", order, a.started)
	}
}

func TestTooManyProcs(t *testing.T) {
	a := new(testArch)
	k, err := New(Config{PoolStart: testPool, PoolEnd: testEnd, MaxProcs: 2}, mem.NewRAM(testRAM, testEnd-testRAM), a)
	if err != nil {
		t.Fatal(err)
	}
	mustFault(t, a, FaultTooManyProcs, func() {
		k.Boot(Hooks{CreateProcesses: func(k *Kernel) {
			for i := 0; i < 3; i++ {
				k.CreateProcess(nil, 64, 1)
			}
		}})
	})
}

func TestBufferRoundTrip(t *testing.T) {
	k, a := bootKernel(t, 1)
	buf := mem.Addr(k.Trap(SysAlloc, 200))
	if k.Current().Retval != uint32(buf) {
		t.Fatalf("Retval = %#x, want %v", k.Current().Retval, buf)
	}
	ram := k.ram.(*mem.RAM)
	payload, err := ram.Slice(buf, BSIZE)
	if err != nil {
		t.Fatal(err)
	}
	for i := range payload {
		payload[i] = 0xAA
	}
	k.Trap(SysDispose, uint32(buf))
	if st := k.Stats(); st.Buffers != 1 || st.FreeBuffers != 1 {
		t.Fatalf("stats %+v, want 1 buffer, 1 free", st)
	}

	again := mem.Addr(k.Trap(SysAlloc, 1))
	if again != buf {
		t.Fatalf("alloc after dispose = %v, want recycled %v", again, buf)
	}
	h := buf - BufHeaderSize
	if m := k.readW(h); m != bufHeaderMagic {
		t.Fatalf("header magic %#x, want %#x", m, bufHeaderMagic)
	}
	if m := k.readW(buf + BSIZE); m != bufTrailerMagic {
		t.Fatalf("trailer magic %#x, want %#x", m, bufTrailerMagic)
	}
	if next := k.readW(h + 4); next != 0 {
		t.Fatalf("header next = %#x on an owned buffer, want 0", next)
	}
	for i := range payload {
		payload[i] = byte(i)
	}
	if m := k.readW(buf + BSIZE); m != bufTrailerMagic {
		t.Fatalf("payload write reached the trailer")
	}
	if st := k.Stats(); st.Buffers != 1 || st.FreeBuffers != 0 {
		t.Fatalf("stats %+v, want 1 buffer, 0 free", st)
	}
	if a.depth != 0 {
		t.Fatalf("interrupt mask depth %d, want 0", a.depth)
	}
}

func TestBufferFreeListLIFO(t *testing.T) {
	k, _ := bootKernel(t, 1)
	b1 := k.Trap(SysAlloc, 0)
	b2 := k.Trap(SysAlloc, 0)
	if b2-b1 != BufHeaderSize+BSIZE+BufTrailerSize {
		t.Fatalf("buffers %#x, %#x not one stride apart", b1, b2)
	}
	k.Trap(SysDispose, b1)
	k.Trap(SysDispose, b2)
	if have := k.Trap(SysAlloc, 0); have != b2 {
		t.Fatalf("alloc = %#x, want most recently disposed %#x", have, b2)
	}
	if have := k.Trap(SysAlloc, 0); have != b1 {
		t.Fatalf("alloc = %#x, want %#x", have, b1)
	}
	if st := k.Stats(); st.Buffers != 2 {
		t.Fatalf("%d buffers carved, want 2", st.Buffers)
	}
}

func TestBufferOverrun(t *testing.T) {
	k, a := bootKernel(t, 1)
	buf := mem.Addr(k.Trap(SysAlloc, 0))
	k.writeW(buf+BSIZE, 0) // one word too far
	mustFault(t, a, FaultBufferMagic, func() { k.Trap(SysDispose, uint32(buf)) })
}

func TestBufferDoubleFree(t *testing.T) {
	k, a := bootKernel(t, 1)
	buf := k.Trap(SysAlloc, 0)
	k.Trap(SysDispose, buf)
	mustFault(t, a, FaultDoubleFree, func() { k.Trap(SysDispose, buf) })
}

func TestBufferDisposeQueued(t *testing.T) {
	k, a := bootKernel(t, 1, 2)
	buf := k.Trap(SysAlloc, 0)
	k.Trap(SysSend, buf, 1, 0)
	mustFault(t, a, FaultBufferQueued, func() { k.Trap(SysDispose, buf) })
	if n := k.InboxLen(1, 0); n != 1 {
		t.Fatalf("inbox holds %d buffers after refused dispose, want 1", n)
	}
	if st := k.Stats(); st.FreeBuffers != 0 {
		t.Fatalf("%d free buffers, want 0", st.FreeBuffers)
	}
}

func TestBufferSendQueued(t *testing.T) {
	k, a := bootKernel(t, 1, 2)
	buf := k.Trap(SysAlloc, 0)
	k.Trap(SysSend, buf, 1, 0)
	mustFault(t, a, FaultBufferQueued, func() { k.Trap(SysSend, buf, 1, 1) })
}

func TestBufferReceivedIsHeld(t *testing.T) {
	k, _ := bootKernel(t, 1)
	buf := k.Trap(SysAlloc, 0)
	k.Trap(SysSend, buf, 0, 0)
	if m := k.readW(mem.Addr(buf) - BufHeaderSize); m != bufQueueMagic {
		t.Fatalf("queued header magic %#x, want %#x", m, bufQueueMagic)
	}
	k.Trap(SysReceive, 0)
	if m := k.readW(mem.Addr(buf) - BufHeaderSize); m != bufHeaderMagic {
		t.Fatalf("received header magic %#x, want %#x", m, bufHeaderMagic)
	}
	k.Trap(SysDispose, buf)
	if st := k.Stats(); st.FreeBuffers != 1 {
		t.Fatalf("%d free buffers after dispose, want 1", st.FreeBuffers)
	}
}

func TestBufferUseAfterFree(t *testing.T) {
	k, a := bootKernel(t, 1)
	buf := mem.Addr(k.Trap(SysAlloc, 0))
	k.Trap(SysDispose, uint32(buf))
	k.writeW(buf-BufHeaderSize, 0xdeadbeef)
	mustFault(t, a, FaultBufferMagic, func() { k.Trap(SysAlloc, 0) })
}

func TestBadBuffer(t *testing.T) {
	k, a := bootKernel(t, 1)
	mustFault(t, a, FaultBadBuffer, func() { k.Trap(SysDispose, testPool) })
	buf := k.Trap(SysAlloc, 0)
	mustFault(t, a, FaultBadBuffer, func() { k.Trap(SysDispose, buf+4) })
	mustFault(t, a, FaultBadBuffer, func() { k.Trap(SysSend, buf+BSIZE+12, 0, 0) })
}

func TestSendReceiveSelf(t *testing.T) {
	k, a := bootKernel(t, 1, 2)
	for inbox := 0; inbox < NINBOX; inbox++ {
		buf := k.Trap(SysAlloc, 0)
		k.Trap(SysSend, buf, 0, uint32(inbox))
		if n := k.InboxLen(0, inbox); n != 1 {
			t.Fatalf("inbox %d holds %d buffers after send, want 1", inbox, n)
		}
		if have := k.Trap(SysReceive, uint32(inbox)); have != buf {
			t.Fatalf("receive(%d) = %#x, want %#x", inbox, have, buf)
		}
		if n := k.InboxLen(0, inbox); n != 0 {
			t.Fatalf("inbox %d holds %d buffers after receive, want 0", inbox, n)
		}
		if a.pending || k.Current().pid != 0 {
			t.Fatalf("send/receive to self switched away")
		}
	}
}

func TestInboxFIFO(t *testing.T) {
	k, a := bootKernel(t, 1, 2)
	// pid 1 is not receiving: the buffers queue up.
	var sent []uint32
	for i := 0; i < 3; i++ {
		buf := k.Trap(SysAlloc, 0)
		k.Trap(SysSend, buf, 1, 3)
		sent = append(sent, buf)
	}
	if n := k.InboxLen(1, 3); n != 3 {
		t.Fatalf("inbox holds %d buffers, want 3", n)
	}
	if a.pending {
		t.Fatalf("queueing a message requested a switch")
	}
	k.Trap(SysDelay, 1)
	if p := a.switchTo(k); p.pid != 1 {
		t.Fatalf("running %v, want pid 1", p)
	}
	for i, want := range sent {
		if have := k.Trap(SysReceive, 3); have != want {
			t.Fatalf("receive #%d = %#x, want %#x", i, have, want)
		}
	}
	if n := k.InboxLen(1, 3); n != 0 {
		t.Fatalf("inbox holds %d buffers, want 0", n)
	}
}

func TestDirectDelivery(t *testing.T) {
	// Each case blocks pid 0 (priority 1) in receive, lets something
	// happen on pid 1 (priority 5), then sends from pid 1.
	tests := []struct {
		name   string
		before func(t *testing.T, k *Kernel, a *testArch)
	}{
		{"immediate", func(t *testing.T, k *Kernel, a *testArch) {}},
		{"after tick", func(t *testing.T, k *Kernel, a *testArch) {
			k.Trap(SysTick)
			k.Trap(SysTick)
		}},
		{"after delay", func(t *testing.T, k *Kernel, a *testArch) {
			k.Trap(SysDelay, 2)
			if p := a.switchTo(k); p.pid != 2 {
				t.Fatalf("running %v during delay, want idle pid 2", p)
			}
			k.Trap(SysTick)
			k.Trap(SysTick)
			if p := a.switchTo(k); p.pid != 1 {
				t.Fatalf("running %v after delay, want pid 1", p)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, a := bootKernel(t, 1, 5, 9)
			if have := k.Trap(SysReceive, 2); have != 0 {
				t.Fatalf("blocking receive returned %#x, want 0", have)
			}
			if s := k.Proc(0).State(); s != Receive || k.Proc(0).ReceiveFrom() != 2 {
				t.Fatalf("receiver in %v on %d, want RECEIVE on 2", s, k.Proc(0).ReceiveFrom())
			}
			if p := a.switchTo(k); p.pid != 1 {
				t.Fatalf("running %v, want pid 1", p)
			}
			tt.before(t, k, a)

			buf := k.Trap(SysAlloc, 0)
			k.Trap(SysSend, buf, 0, 2)
			if !a.pending {
				t.Fatalf("waking a better process did not request a switch")
			}
			if k.Proc(1).State() != Ready {
				t.Fatalf("sender in %v, want READY", k.Proc(1).State())
			}
			p := a.switchTo(k)
			if p.pid != 0 || p.Retval != buf {
				t.Fatalf("resumed %v with %#x, want pid 0 with %#x", p, p.Retval, buf)
			}
			if n := k.InboxLen(0, 2); n != 0 {
				t.Fatalf("direct delivery queued %d buffers", n)
			}
		})
	}
}

func TestDirectDeliveryToWorsePriority(t *testing.T) {
	k, a := bootKernel(t, 1, 5, 9)
	k.Trap(SysDelay, 1)
	if p := a.switchTo(k); p.pid != 1 {
		t.Fatalf("running %v, want pid 1", p)
	}
	k.Trap(SysReceive, 1)
	a.switchTo(k)
	k.Trap(SysTick)
	if p := a.switchTo(k); p.pid != 0 {
		t.Fatalf("running %v after tick, want pid 0", p)
	}
	buf := k.Trap(SysAlloc, 0)
	k.Trap(SysSend, buf, 1, 1)
	if a.pending {
		t.Fatalf("waking a worse process requested a switch")
	}
	if p := k.Proc(1); p.State() != Ready || p.Retval != buf {
		t.Fatalf("receiver %v with %#x, want READY with %#x", p.State(), p.Retval, buf)
	}
	if k.Current().pid != 0 {
		t.Fatalf("sender lost the processor")
	}
}

func TestDelayScenario(t *testing.T) {
	k, a := bootKernel(t, 1, 5, 9)
	k.Trap(SysDelay, 10)
	a.switchTo(k)
	k.Trap(SysDelay, 10)
	if p := a.switchTo(k); p.pid != 2 {
		t.Fatalf("running %v, want idle", p)
	}
	for i := 0; i < 9; i++ {
		k.Trap(SysTick)
	}
	if a.pending || len(k.DelayList()) != 2 {
		t.Fatalf("processes woke early at tick %d", k.Tick())
	}
	k.Trap(SysTick)
	if len(k.DelayList()) != 0 {
		t.Fatalf("delay list %v at tick 10, want empty", pids(k.DelayList()))
	}
	if have := fmt.Sprint(pids(k.ReadyList())); have != "[0 1 2]" {
		t.Fatalf("ready list %s, want [0 1 2]", have)
	}
	if p := a.switchTo(k); p.pid != 0 {
		t.Fatalf("scheduled %v first, want the priority-1 process", p)
	}
}

func TestNothingReady(t *testing.T) {
	k, a := bootKernel(t, 1, 5)
	k.Trap(SysDelay, 1)
	a.switchTo(k)
	k.Trap(SysDelay, 3)
	mustFault(t, a, FaultNoReady, func() { a.switchTo(k) })
}

func TestSemaphore(t *testing.T) {
	k, a := bootKernel(t, 1, 5)
	if k.Proc(0).Psem() != 0 {
		t.Fatalf("semaphore starts at %d", k.Proc(0).Psem())
	}
	k.Trap(SysWaitPsem)
	if k.Proc(0).State() != SemWait || !a.pending {
		t.Fatalf("wait on zero did not block")
	}
	if p := a.switchTo(k); p.pid != 1 {
		t.Fatalf("running %v, want pid 1", p)
	}
	k.Trap(SysSignalPsem, 0)
	if p := a.switchTo(k); p.pid != 0 {
		t.Fatalf("running %v after signal, want the waiter", p)
	}
	if n := k.Proc(0).Psem(); n != 0 {
		t.Fatalf("counter %d after signal to a waiter, want 0", n)
	}

	k.Trap(SysSignalPsem, 0)
	k.Trap(SysSignalPsem, 0)
	if n := k.Proc(0).Psem(); n != 2 {
		t.Fatalf("counter %d after two signals, want 2", n)
	}
	k.Trap(SysWaitPsem)
	k.Trap(SysWaitPsem)
	if a.pending || k.Proc(0).Psem() != 0 {
		t.Fatalf("wait on a positive counter blocked")
	}
}

func TestCurrentPid(t *testing.T) {
	k, a := bootKernel(t, 3, 3)
	if pid := k.Trap(SysCurrentPid); pid != 0 {
		t.Fatalf("current_pid = %d, want 0", pid)
	}
	k.Trap(SysYield)
	a.switchTo(k)
	if pid := k.Trap(SysCurrentPid); pid != 1 {
		t.Fatalf("current_pid = %d after yield, want 1", pid)
	}
}

func TestTrapFaults(t *testing.T) {
	k, a := newKernel(t)
	mustFault(t, a, FaultNotBooted, func() { k.Trap(SysYield) })

	k, a = bootKernel(t, 1, 2)
	mustFault(t, a, FaultBadSyscall, func() { k.Trap(nsys) })
	mustFault(t, a, FaultBadSyscall, func() { k.Trap(SysSend, 1) })
	buf := k.Trap(SysAlloc, 0)
	mustFault(t, a, FaultBadPid, func() { k.Trap(SysSend, buf, 2, 0) })
	mustFault(t, a, FaultBadInbox, func() { k.Trap(SysSend, buf, 1, NINBOX) })
	mustFault(t, a, FaultBadInbox, func() { k.Trap(SysReceive, 7) })
	mustFault(t, a, FaultBadPid, func() { k.Trap(SysSignalPsem, 99) })
}

func TestTrace(t *testing.T) {
	k, a := bootKernel(t, 1, 5)
	var buf bytes.Buffer
	k.Trace = &buf
	b := k.Trap(SysAlloc, 10)
	k.Trap(SysSend, b, 1, 2)
	k.Trap(SysReceive, 0)
	a.switchTo(k)
	k.Trap(SysCurrentPid)

	want := fmt.Sprintf("[pid 0] alloc(10) = %v\n", mem.Addr(b)) +
		fmt.Sprintf("[pid 0] send(%v, 1, 2)\n", mem.Addr(b)) +
		"[pid 0] receive(0) blocked\n" +
		"[pid 0] switch -> pid 1\n" +
		"[pid 1] current_pid() = 1\n"
	if have := buf.String(); have != want {
		t.Fatalf("trace:\n%s\nwant:\n%s", have, want)
	}
}

func TestSysnoString(t *testing.T) {
	if s := SysSignalPsem.String(); s != "signal_psem" {
		t.Fatalf("SysSignalPsem = %q", s)
	}
	if s := Sysno(42).String(); s != "Sysno(42)" {
		t.Fatalf("Sysno(42) = %q", s)
	}
	if s := FaultBadInbox.Error(); s != "FaultBadInbox" {
		t.Fatalf("FaultBadInbox = %q", s)
	}
	if s := FaultBufferQueued.Error(); s != "FaultBufferQueued" {
		t.Fatalf("FaultBufferQueued = %q", s)
	}
}

func TestBuffers(t *testing.T) {
	k, _ := bootKernel(t, 1, 2)
	k.Trap(SysAlloc, 0)
	b1 := k.Trap(SysAlloc, 0)
	b2 := k.Trap(SysAlloc, 0)
	k.Trap(SysSend, b1, 1, 3)
	k.Trap(SysDispose, b2)

	want := []struct {
		state BufferState
		owner int
	}{
		{BufferHeld, -1},
		{BufferQueued, 1},
		{BufferFree, -1},
	}
	list := k.Buffers()
	if len(list) != len(want) {
		t.Fatalf("%d buffers, want %d", len(list), len(want))
	}
	for i, w := range want {
		if list[i].State != w.state || list[i].Owner != w.owner {
			t.Errorf("buffer %d: %v owner %d, want %v owner %d", i, list[i].State, list[i].Owner, w.state, w.owner)
		}
	}
	if list[1].Inbox != 3 {
		t.Errorf("queued buffer in inbox %d, want 3", list[1].Inbox)
	}
}
