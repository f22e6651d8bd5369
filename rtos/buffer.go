// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rtos

import "github.com/macce/myrtos/mem"

/*
 * A buffer lives in the permanent region as
 *
 *	header:  magic, next
 *	payload: size bytes, the address handed to processes
 *	trailer: magic
 *
 * next links the free list or an inbox queue, whichever holds the
 * buffer; it is zero while a process owns it. The header magic says
 * which of the three holds it.
 * Buffers are carved one after another once the system is running,
 * so every header sits a whole stride from the first one.
 */
type bufferPool struct {
	size   uint32   /* payload bytes */
	free   mem.Addr /* header of first free buffer */
	first  mem.Addr /* header of first buffer carved */
	carved int
	nfree  int
}

func (b *bufferPool) stride() uint32 {
	return BufHeaderSize + b.size + BufTrailerSize
}

// alloc hands out a buffer and returns its payload address.
// The size argument is advisory: every buffer has the pool's single
// payload size.
func (k *Kernel) alloc(size uint32) mem.Addr {
	h, fresh := k.takeBuffer()
	if fresh {
		k.writeW(h+mem.Addr(BufHeaderSize+k.pool.size), bufTrailerMagic)
	} else {
		k.checkBuffer(h, bufFreeMagic)
	}
	k.writeW(h, bufHeaderMagic)
	k.writeW(h+4, 0)
	return h + BufHeaderSize
}

// takeBuffer pops the free list, or carves a new buffer when it is empty.
func (k *Kernel) takeBuffer() (h mem.Addr, fresh bool) {
	mask := k.arch.Disable()
	defer k.arch.Restore(mask)

	if h = k.pool.free; h != 0 {
		k.pool.free = mem.Addr(k.readW(h + 4))
		k.pool.nfree--
		return h, false
	}
	h = k.allocPermanent(k.pool.stride(), 4)
	if k.pool.carved == 0 {
		k.pool.first = h
	} else if h != k.pool.first+mem.Addr(uint32(k.pool.carved)*k.pool.stride()) {
		k.halt(FaultAssert)
	}
	k.pool.carved++
	return h, true
}

// release puts the buffer with payload address buf back on the free list.
func (k *Kernel) release(buf mem.Addr) {
	h := k.header(buf)
	k.checkBuffer(h, bufHeaderMagic)

	mask := k.arch.Disable()
	defer k.arch.Restore(mask)

	k.writeW(h, bufFreeMagic)
	k.writeW(h+4, uint32(k.pool.free))
	k.pool.free = h
	k.pool.nfree++
}

// header returns the header address of the buffer with payload address buf.
func (k *Kernel) header(buf mem.Addr) mem.Addr {
	h := buf - BufHeaderSize
	if k.pool.carved == 0 || buf < BufHeaderSize || h < k.pool.first {
		k.halt(FaultBadBuffer)
	}
	off := uint32(h - k.pool.first)
	if off%k.pool.stride() != 0 || off/k.pool.stride() >= uint32(k.pool.carved) {
		k.halt(FaultBadBuffer)
	}
	return h
}

// checkBuffer verifies the header magic is want and the trailer is intact.
func (k *Kernel) checkBuffer(h mem.Addr, want uint32) {
	magic := k.readW(h)
	if magic != want {
		switch magic {
		case bufFreeMagic:
			k.halt(FaultDoubleFree)
		case bufQueueMagic:
			k.halt(FaultBufferQueued)
		}
		k.halt(FaultBufferMagic)
	}
	if k.readW(h+mem.Addr(BufHeaderSize+k.pool.size)) != bufTrailerMagic {
		k.halt(FaultBufferMagic)
	}
}

// BufferState says who holds a buffer.
type BufferState int8

const (
	BufferHeld BufferState = iota
	BufferQueued
	BufferFree
	BufferCorrupt
)

func (s BufferState) String() string {
	switch s {
	case BufferHeld:
		return "held"
	case BufferQueued:
		return "queued"
	case BufferFree:
		return "free"
	}
	return "corrupt"
}

// A BufferInfo describes one carved buffer.
type BufferInfo struct {
	Payload mem.Addr
	State   BufferState
	Owner   int /* pid whose inbox queues it, or -1 */
	Inbox   int
}

// Buffers lists every buffer carved so far, in address order.
// It reads the pool without faulting, so it can describe a halted system.
func (k *Kernel) Buffers() []BufferInfo {
	list := make([]BufferInfo, k.pool.carved)
	for i := range list {
		h := k.pool.first + mem.Addr(uint32(i)*k.pool.stride())
		bi := &list[i]
		bi.Payload = h + BufHeaderSize
		bi.Owner = -1
		magic, err1 := k.ram.ReadW(h)
		trailer, err2 := k.ram.ReadW(h + mem.Addr(BufHeaderSize+k.pool.size))
		switch {
		case err1 != nil || err2 != nil || trailer != bufTrailerMagic:
			bi.State = BufferCorrupt
		case magic == bufFreeMagic:
			bi.State = BufferFree
		case magic == bufHeaderMagic:
			bi.State = BufferHeld
		case magic == bufQueueMagic:
			bi.State = BufferQueued
		default:
			bi.State = BufferCorrupt
		}
	}
	for _, p := range k.pcbs[:k.nextPid] {
		for inbox, h := range p.inbox {
			for n := 0; h != 0 && n < k.pool.carved; n++ {
				i := int(uint32(h-k.pool.first) / k.pool.stride())
				if h < k.pool.first || i >= len(list) {
					break
				}
				list[i].Owner = p.pid
				list[i].Inbox = inbox
				next, err := k.ram.ReadW(h + 4)
				if err != nil {
					break
				}
				h = mem.Addr(next)
			}
		}
	}
	return list
}
