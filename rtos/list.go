// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rtos

// A pcbList is a singly linked list of PCBs kept sorted by before.
// All PCB lists share the PCB next link; role records which list owns it.
type pcbList struct {
	head   *PCB
	role   listRole
	before func(p, q *PCB) bool /* p sorts strictly before q */
}

func newReadyList() pcbList {
	return pcbList{role: onReady, before: func(p, q *PCB) bool { return p.pri < q.pri }}
}

func newDelayList() pcbList {
	return pcbList{role: onDelay, before: func(p, q *PCB) bool { return p.delayUntil < q.delayUntil }}
}

/*
 * Splice p in front of the first PCB it sorts strictly before.
 * Equal keys go after the PCBs already there, so taking PCBs
 * from the head is round-robin within a key.
 */
func (k *Kernel) insert(l *pcbList, p *PCB) {
	if p.on != onNone {
		k.halt(FaultListMember)
	}
	pp := &l.head
	for *pp != nil && !l.before(p, *pp) {
		pp = &(*pp).next
	}
	p.next = *pp
	*pp = p
	p.on = l.role
	k.checkList(l)
}

func (k *Kernel) pop(l *pcbList) *PCB {
	p := l.head
	if p == nil {
		return nil
	}
	if p.on != l.role {
		k.halt(FaultListMember)
	}
	l.head = p.next
	p.next = nil
	p.on = onNone
	return p
}

// checkList verifies that l is finite, holds only its own PCBs and is sorted.
// No list can be longer than the number of processes.
func (k *Kernel) checkList(l *pcbList) {
	n := 0
	for p := l.head; p != nil; p = p.next {
		if n++; n > k.nextPid || p.next == p {
			k.halt(FaultListCycle)
		}
		if p.on != l.role {
			k.halt(FaultListMember)
		}
		if p.next != nil && l.before(p.next, p) {
			k.halt(FaultAssert)
		}
	}
}

func (k *Kernel) checkLists() {
	k.checkList(&k.ready)
	k.checkList(&k.delay)
}

func (l *pcbList) slice() []*PCB {
	var list []*PCB
	for p := l.head; p != nil; p = p.next {
		list = append(list, p)
	}
	return list
}

// readyInsert makes p READY and queues it behind every process of the same
// or better priority.
func (k *Kernel) readyInsert(p *PCB) {
	mask := k.arch.Disable()
	defer k.arch.Restore(mask)

	p.state = Ready
	k.insert(&k.ready, p)
}

// delayInsert puts p to sleep until tick until.
func (k *Kernel) delayInsert(p *PCB, until uint64) {
	mask := k.arch.Disable()
	defer k.arch.Restore(mask)

	p.delayUntil = until
	p.state = Delay
	k.insert(&k.delay, p)
}
