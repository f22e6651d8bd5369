// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rtos

import "fmt"

// A Fault is a fatal kernel error. The kernel never returns a Fault to a
// process: it reports it through Arch.Halt and stops scheduling.
type Fault int8

const (
	FaultAssert        Fault = 1 + iota // internal consistency check failed
	FaultListCycle                      // ready, delay or inbox list loops
	FaultListMember                     // PCB on the wrong list or on two lists
	FaultBufferMagic                    // buffer header or trailer overwritten
	FaultDoubleFree                     // buffer disposed twice
	FaultBadBuffer                      // handle is not a pool buffer
	FaultPoolExhausted                  // permanent region used up
	FaultMemory                         // access outside RAM
	FaultBadPid                         // no such process
	FaultBadInbox                       // inbox index out of range
	FaultBadSyscall                     // unknown call or missing arguments
	FaultSealed                         // process created after boot
	FaultNotBooted                      // system call before boot
	FaultNoReady                        // nothing to run
	FaultTooManyProcs                   // process table full
	FaultBufferQueued                   // buffer still queued in an inbox
)

var fnames = []string{
	"",
	"FaultAssert",
	"FaultListCycle",
	"FaultListMember",
	"FaultBufferMagic",
	"FaultDoubleFree",
	"FaultBadBuffer",
	"FaultPoolExhausted",
	"FaultMemory",
	"FaultBadPid",
	"FaultBadInbox",
	"FaultBadSyscall",
	"FaultSealed",
	"FaultNotBooted",
	"FaultNoReady",
	"FaultTooManyProcs",
	"FaultBufferQueued",
}

func (f Fault) Error() string {
	if 0 < f && int(f) < len(fnames) {
		return fnames[f]
	}
	return fmt.Sprintf("Fault(%d)", int(f))
}

// halt reports f and abandons the current kernel operation.
// Interrupt masks taken with a deferred Restore are released as the
// panic unwinds; the architecture is expected to stop scheduling.
func (k *Kernel) halt(f Fault) {
	k.arch.Halt(f)
	panic(f)
}

func (k *Kernel) assert(ok bool) {
	if !ok {
		k.halt(FaultAssert)
	}
}
