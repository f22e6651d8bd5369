// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"github.com/macce/myrtos/mem"
	"github.com/macce/myrtos/rtos"
)

// The machine is the kernel's architecture layer. The kernel only calls
// these with big held.

/*
 * Initial process stack, Cortex-M style:
 *
 *	StackTop-32: r0 r1 r2 r3 r12 lr pc xpsr   (stacked on exception entry)
 *	StackTop-64: r4 ... r11                    (saved by the switch code)
 *
 * r0 carries the pid to the entry point and the Thumb bit is set in xpsr.
 */
const (
	frameWords = 8
	xpsrThumb  = 0x01000000
	textBase   = 0x08000000 /* where entry tags point */
	exitTag    = 0xFFFFFFFE /* lr: returning from the entry point faults */
)

func (m *Machine) InitStack(p *rtos.PCB) {
	t := p.Entry.(*thread)
	t.pcb = p

	frame := (p.StackTop - 4*frameWords) &^ 7
	hw := [frameWords]uint32{
		0: uint32(p.Pid()),
		5: exitTag,
		6: textBase + 4*uint32(p.Pid()),
		7: xpsrThumb,
	}
	for i, w := range hw {
		m.writeW(frame+mem.Addr(4*i), w)
	}
	sp := frame - 4*frameWords
	for i := 0; i < frameWords; i++ {
		m.writeW(sp+mem.Addr(4*i), 0)
	}
	p.SP = sp

	go m.run(t)
}

func (m *Machine) writeW(addr mem.Addr, val uint32) {
	if err := m.RAM.WriteW(addr, val); err != nil {
		m.Halt(rtos.FaultMemory)
		panic(rtos.FaultMemory)
	}
}

func (m *Machine) Start(p *rtos.PCB) {
	m.first = p.Entry.(*thread)
	m.booted = true
}

func (m *Machine) TriggerSwitch() { m.pendsv = true }

func (m *Machine) Disable() rtos.Mask {
	m.depth++
	return rtos.Mask(m.depth - 1)
}

func (m *Machine) Restore(mask rtos.Mask) { m.depth = int(mask) }

func (m *Machine) Halt(f rtos.Fault) {
	m.haltOnce.Do(func() {
		m.fault = f
		m.faultPid = -1
		if p := m.K.Current(); p != nil {
			m.faultPid = p.Pid()
		}
		close(m.halted)
	})
}
