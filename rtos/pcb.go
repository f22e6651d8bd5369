// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rtos

import (
	"fmt"

	"github.com/macce/myrtos/mem"
)

type ProcState int8

const (
	Running ProcState = iota
	Ready
	Receive
	Delay
	SemWait
)

func (ps ProcState) String() string {
	switch ps {
	case Running:
		return "RUNNING"
	case Ready:
		return "READY"
	case Receive:
		return "RECEIVE"
	case Delay:
		return "DELAY"
	case SemWait:
		return "SEMAPHORE-WAIT"
	}
	return fmt.Sprintf("ProcState(%d)", ps)
}

// listRole names the list a PCB's link currently threads.
type listRole uint8

const (
	onNone listRole = iota
	onReady
	onDelay
)

// A PCB is a process control block. PCBs are created at boot and live for
// the lifetime of the system.
type PCB struct {
	// Owned by the architecture layer.
	Entry    any      // opaque entry point, interpreted by Arch.InitStack
	StackTop mem.Addr // first address past the process stack
	SP       mem.Addr // saved stack pointer
	Retval   uint32   // result of the pending system call

	next *PCB
	on   listRole

	pri   uint8 /* priority, lower is better */
	pid   int
	addr  mem.Addr /* footprint in the permanent region */
	state ProcState

	inbox       [NINBOX]mem.Addr /* header of first queued buffer */
	receiveFrom int
	delayUntil  uint64
	psem        uint32
}

func (p *PCB) Pid() int { return p.pid }
func (p *PCB) Priority() uint8 { return p.pri }
func (p *PCB) State() ProcState { return p.state }
func (p *PCB) ReceiveFrom() int { return p.receiveFrom }
func (p *PCB) DelayUntil() uint64 { return p.delayUntil }
func (p *PCB) Psem() uint32 { return p.psem }
func (p *PCB) Addr() mem.Addr { return p.addr }
func (p *PCB) String() string { return fmt.Sprintf("pid %d", p.pid) }
