// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sim runs the rtos kernel on the host.
//
// Every process is a goroutine. Exactly one of them holds the processor
// at a time; a context switch hands a token from one goroutine to the
// next. Entering the kernel, by a system call or an interrupt, takes the
// machine lock, which stands in for the kernel's exception priority.
// A switch the kernel requests is taken on the way out of a system call,
// or, if an interrupt requested it, when the running process next enters
// the kernel or waits for an interrupt.
package sim

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/macce/myrtos/mem"
	"github.com/macce/myrtos/rtos"
	"golang.org/x/sync/errgroup"
)

// Config describes a simulated board.
type Config struct {
	RAMBase   mem.Addr
	RAMSize   int
	Kernel    rtos.Config
	Hz        int    // tick rate for Run; 0 means ticks only come from Tick
	TickLimit uint64 // Run returns after this many ticks; 0 means no limit
	Console   string // process signalled for every UART input byte
	Out       io.Writer
	Trace     io.Writer
}

type Machine struct {
	RAM *mem.RAM
	K   *rtos.Kernel

	cfg     Config
	big     sync.Mutex
	depth   int  /* interrupt mask nesting, under big */
	pendsv  bool /* switch requested, under big */
	booted  bool
	threads []*thread
	first   *thread
	console int

	outMu sync.Mutex
	uart  uart
	gpio  gpio

	wfi      chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
	halted   chan struct{}
	haltOnce sync.Once
	fault    rtos.Fault
	faultPid int
}

// A HaltError reports the fault that stopped the machine.
type HaltError struct {
	Fault rtos.Fault
	Pid   int // running process when the fault hit, or -1
}

func (e *HaltError) Error() string {
	if e.Pid < 0 {
		return fmt.Sprintf("kernel halted: %v", e.Fault)
	}
	return fmt.Sprintf("kernel halted in pid %d: %v", e.Pid, e.Fault)
}

func (e *HaltError) Unwrap() error { return e.Fault }

func New(cfg Config) (*Machine, error) {
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	if cfg.RAMSize <= 0 {
		return nil, fmt.Errorf("sim: bad RAM size %d", cfg.RAMSize)
	}
	m := &Machine{
		RAM:     mem.NewRAM(cfg.RAMBase, cfg.RAMSize),
		cfg:     cfg,
		console: -1,
		wfi:     make(chan struct{}, 1),
		stopped: make(chan struct{}),
		halted:  make(chan struct{}),
	}
	if !m.RAM.Contains(cfg.Kernel.PoolStart, uint32(cfg.Kernel.PoolEnd-cfg.Kernel.PoolStart)) {
		return nil, fmt.Errorf("sim: pool [%v, %v) outside RAM [%v, %v)",
			cfg.Kernel.PoolStart, cfg.Kernel.PoolEnd, m.RAM.Base, m.RAM.End())
	}
	k, err := rtos.New(cfg.Kernel, m.RAM, m)
	if err != nil {
		return nil, err
	}
	k.Trace = cfg.Trace
	m.K = k
	return m, nil
}

// MinStack is the smallest process stack: room for the initial frame.
const MinStack = 128

// Add registers a process to be created at boot. Processes get pids in the
// order they are added.
func (m *Machine) Add(name string, prio uint8, stack uint32, prog Program, arg []byte) {
	if m.booted {
		panic("sim: Add after Boot")
	}
	if stack < MinStack {
		stack = MinStack
	}
	m.threads = append(m.threads, &thread{
		name:  name,
		prio:  prio,
		stack: stack,
		prog:  prog,
		arg:   arg,
		sched: make(chan struct{}),
	})
}

// Boot creates the processes and hands the processor to the first one.
func (m *Machine) Boot() error {
	m.big.Lock()
	ok := m.enter(func() {
		m.K.Boot(rtos.Hooks{
			CreateProcesses: m.createProcesses,
			Start:           m.startDevices,
		})
	})
	m.big.Unlock()
	if !ok {
		return m.Err()
	}
	m.handoff(m.first)
	return nil
}

func (m *Machine) createProcesses(k *rtos.Kernel) {
	for _, t := range m.threads {
		t.pid = k.CreateProcess(t, t.stack, t.prio)
	}
}

func (m *Machine) startDevices() {
	if m.cfg.Console == "" {
		return
	}
	for _, t := range m.threads {
		if t.name == m.cfg.Console {
			m.console = t.pid
		}
	}
}

// Run boots the machine and drives its clock until ctx is done, the tick
// limit is reached or the kernel halts. A halt is reported as a *HaltError.
func (m *Machine) Run(ctx context.Context) error {
	defer m.Stop()
	if err := m.Boot(); err != nil {
		return err
	}

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	if m.cfg.Hz > 0 {
		g.Go(func() error {
			tk := time.NewTicker(max(time.Second/time.Duration(m.cfg.Hz), 1))
			defer tk.Stop()
			for n := uint64(0); ; {
				select {
				case <-gctx.Done():
					return nil
				case <-tk.C:
				}
				if !m.Tick() {
					return nil
				}
				if n++; m.cfg.TickLimit > 0 && n >= m.cfg.TickLimit {
					cancel()
					return nil
				}
			}
		})
	}
	g.Go(func() error {
		select {
		case <-m.halted:
			return m.Err()
		case <-gctx.Done():
			return nil
		}
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return parent.Err()
}

// Tick raises the timer interrupt. It reports whether the kernel is still
// running.
func (m *Machine) Tick() bool {
	return m.interrupt(rtos.SysTick)
}

// Input queues a byte in the UART receive FIFO and interrupts the console
// process. It reports false if the byte was dropped.
func (m *Machine) Input(b byte) bool {
	if !m.uart.put(b) {
		return false
	}
	m.big.Lock()
	pid := m.console
	m.big.Unlock()
	if pid < 0 {
		return true
	}
	return m.interrupt(rtos.SysSignalPsem, uint32(pid))
}

// Inspect runs fn with the kernel entered, so that nothing else runs.
func (m *Machine) Inspect(fn func(k *rtos.Kernel)) {
	m.big.Lock()
	defer m.big.Unlock()
	fn(m.K)
}

// Stop ends every process goroutine. The machine cannot be restarted.
func (m *Machine) Stop() {
	m.stopOnce.Do(func() { close(m.stopped) })
}

// Stopped is closed once the machine has been stopped.
func (m *Machine) Stopped() <-chan struct{} { return m.stopped }

// Halted is closed when the kernel reports a fault.
func (m *Machine) Halted() <-chan struct{} { return m.halted }

// Err returns the fault that halted the machine, or nil.
func (m *Machine) Err() error {
	select {
	case <-m.halted:
	default:
		return nil
	}
	return &HaltError{Fault: m.fault, Pid: m.faultPid}
}

// Names returns the process names, indexed by pid.
func (m *Machine) Names() []string {
	var names []string
	for _, t := range m.threads {
		names = append(names, t.name)
	}
	return names
}

// Lookup returns the pid of the named process.
func (m *Machine) Lookup(name string) (int, bool) {
	for _, t := range m.threads {
		if t.name == name {
			return t.pid, true
		}
	}
	return -1, false
}

func (m *Machine) dead() bool {
	select {
	case <-m.halted:
		return true
	case <-m.stopped:
		return true
	default:
		return false
	}
}

// enter runs fn in the kernel, with big held, and reports whether it
// finished without a fault.
func (m *Machine) enter(fn func()) (ok bool) {
	defer func() {
		if e := recover(); e != nil {
			if _, isFault := e.(rtos.Fault); !isFault {
				panic(e)
			}
		}
	}()
	fn()
	return true
}

// interrupt runs a system call from interrupt context, on top of whatever
// process is running. A switch it requests is left pending for that
// process to take.
func (m *Machine) interrupt(no rtos.Sysno, args ...uint32) bool {
	m.big.Lock()
	if !m.booted || m.dead() {
		m.big.Unlock()
		return false
	}
	ok := m.enter(func() { m.K.Trap(no, args...) })
	pend := m.pendsv
	m.big.Unlock()
	if ok && pend {
		select {
		case m.wfi <- struct{}{}:
		default:
		}
	}
	return ok
}

// handoff gives the processor to t.
func (m *Machine) handoff(t *thread) {
	select {
	case t.sched <- struct{}{}:
	case <-m.stopped:
		runtime.Goexit()
	}
}

// wait blocks t until it is given the processor.
func (m *Machine) wait(t *thread) {
	select {
	case <-t.sched:
	case <-m.stopped:
		runtime.Goexit()
	}
}

// park retires a goroutine that has nothing left to do.
func (m *Machine) park() {
	<-m.stopped
	runtime.Goexit()
}

/*
 * pendSV takes pending switches for t, the process holding the processor.
 * It is called and returns with big held, t running again.
 * It reports whether t was switched out in between.
 */
func (m *Machine) pendSV(t *thread) (switched bool) {
	for m.pendsv {
		m.pendsv = false
		var next *rtos.PCB
		if !m.enter(func() { next = m.K.Reschedule() }) {
			m.big.Unlock()
			m.park()
		}
		nt := next.Entry.(*thread)
		if nt == t {
			continue
		}
		switched = true
		m.big.Unlock()
		m.handoff(nt)
		m.wait(t)
		m.big.Lock()
		if m.dead() {
			m.big.Unlock()
			m.park()
		}
	}
	return switched
}
