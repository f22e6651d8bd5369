// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mem models the physical memory of a small 32-bit microcontroller.
package mem

import (
	"encoding/binary"
	"fmt"
)

// An Addr is a 32-bit physical address. Addr 0 is never valid RAM and
// doubles as the nil link in kernel structures stored in memory.
type Addr uint32

func (a Addr) String() string {
	return fmt.Sprintf("%#08x", uint32(a))
}

// AlignUp rounds a up to the next multiple of align, which must be a power of two.
func AlignUp(a Addr, align uint32) Addr {
	if align == 0 || align&(align-1) != 0 {
		panic(fmt.Sprintf("mem: alignment %d is not a power of two", align))
	}
	return (a + Addr(align-1)) &^ Addr(align-1)
}

var ErrMem = fmt.Errorf("invalid memory access")

// A Memory is word-addressable little-endian memory.
type Memory interface {
	ReadB(addr Addr) (uint8, error)
	ReadW(addr Addr) (uint32, error)
	WriteB(addr Addr, val uint8) error
	WriteW(addr Addr, val uint32) error
}

// A RAM is a Memory backed by a byte slice mapped at Base.
// Accesses outside [Base, Base+len(Bytes)) fail with ErrMem.
// Word accesses must be 4-byte aligned.
type RAM struct {
	Base  Addr
	Bytes []byte
}

// NewRAM returns size bytes of zeroed RAM mapped at base.
func NewRAM(base Addr, size int) *RAM {
	return &RAM{Base: base, Bytes: make([]byte, size)}
}

// End returns the first address past the RAM.
func (m *RAM) End() Addr {
	return m.Base + Addr(len(m.Bytes))
}

// Contains reports whether [addr, addr+n) lies inside the RAM.
func (m *RAM) Contains(addr Addr, n uint32) bool {
	return addr >= m.Base && uint64(addr)+uint64(n) <= uint64(m.End())
}

func (m *RAM) off(addr Addr, n uint32) (int, error) {
	if !m.Contains(addr, n) {
		return 0, fmt.Errorf("%w at %v", ErrMem, addr)
	}
	return int(addr - m.Base), nil
}

func (m *RAM) ReadB(addr Addr) (uint8, error) {
	i, err := m.off(addr, 1)
	if err != nil {
		return 0, err
	}
	return m.Bytes[i], nil
}

func (m *RAM) ReadW(addr Addr) (uint32, error) {
	if addr&3 != 0 {
		return 0, fmt.Errorf("%w: unaligned word at %v", ErrMem, addr)
	}
	i, err := m.off(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.Bytes[i:]), nil
}

func (m *RAM) WriteB(addr Addr, val uint8) error {
	i, err := m.off(addr, 1)
	if err != nil {
		return err
	}
	m.Bytes[i] = val
	return nil
}

func (m *RAM) WriteW(addr Addr, val uint32) error {
	if addr&3 != 0 {
		return fmt.Errorf("%w: unaligned word at %v", ErrMem, addr)
	}
	i, err := m.off(addr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.Bytes[i:], val)
	return nil
}

// Slice returns the n bytes at addr, aliasing the RAM.
func (m *RAM) Slice(addr Addr, n uint32) ([]byte, error) {
	i, err := m.off(addr, n)
	if err != nil {
		return nil, err
	}
	return m.Bytes[i : i+int(n) : i+int(n)], nil
}
