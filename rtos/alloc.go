// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rtos

import "github.com/macce/myrtos/mem"

// permanent is a bump allocator over the kernel pool. Nothing is ever freed.
type permanent struct {
	start mem.Addr
	ptr   mem.Addr
	end   mem.Addr
}

// allocPermanent reserves size bytes aligned to align, a power of two.
func (k *Kernel) allocPermanent(size, align uint32) mem.Addr {
	mask := k.arch.Disable()
	defer k.arch.Restore(mask)

	base := mem.AlignUp(k.perm.ptr, align)
	if base < k.perm.ptr || uint64(base)+uint64(size) > uint64(k.perm.end) {
		k.halt(FaultPoolExhausted)
	}
	k.perm.ptr = base + mem.Addr(size)
	return base
}

func (k *Kernel) readW(addr mem.Addr) uint32 {
	w, err := k.ram.ReadW(addr)
	if err != nil {
		k.halt(FaultMemory)
	}
	return w
}

func (k *Kernel) writeW(addr mem.Addr, val uint32) {
	if err := k.ram.WriteW(addr, val); err != nil {
		k.halt(FaultMemory)
	}
}
