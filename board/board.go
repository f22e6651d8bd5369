// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package board reads board manifests: which RAM the kernel runs in, how
// fast it ticks and which processes the application creates.
//
// A manifest is a txtar archive. Every file name is a header line
//
//	board NAME ram=ADDR size=N pool=ADDR [hz=N] [bsize=N] [nproc=N]
//	proc NAME prog=PROGRAM prio=N [stack=N]
//
// with numbers in Go syntax. There is exactly one board entry. Processes
// are created in file order, and a proc file's body is handed to its
// program as argument text.
package board

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/macce/myrtos/mem"
	"github.com/macce/myrtos/rtos"
	"golang.org/x/tools/txtar"
)

//go:embed default.txtar
var Default []byte

const defaultStack = 512

type Board struct {
	Comment    []byte
	Name       string
	RAM        mem.Addr // first byte of RAM
	Size       uint32   // bytes of RAM
	Pool       mem.Addr // kernel pool start; the pool runs to the end of RAM
	Hz         int      // tick rate
	BufferSize uint32
	MaxProcs   int
	Procs      []Proc
}

type Proc struct {
	Name  string
	Prog  string
	Prio  uint8
	Stack uint32
	Arg   []byte
}

func Parse(archive []byte) (*Board, error) {
	ar := txtar.Parse(archive)
	b := &Board{Comment: ar.Comment}
	seen := make(map[string]bool)
	nboard := 0
	for _, file := range ar.Files {
		f := strings.Fields(file.Name)
		if len(f) < 2 {
			return nil, fmt.Errorf("invalid manifest entry: %q", file.Name)
		}
		kind, name := f[0], f[1]
		switch kind {
		default:
			return nil, fmt.Errorf("invalid manifest entry: %q", file.Name)
		case "board":
			nboard++
			b.Name = name
			if err := b.parseBoard(f[2:]); err != nil {
				return nil, err
			}
		case "proc":
			if seen[name] {
				return nil, fmt.Errorf("duplicate proc %s", name)
			}
			seen[name] = true
			p := Proc{Name: name, Stack: defaultStack, Arg: file.Data}
			if err := p.parse(f[2:]); err != nil {
				return nil, err
			}
			b.Procs = append(b.Procs, p)
		}
	}
	if nboard != 1 {
		return nil, fmt.Errorf("manifest has %d board entries, want 1", nboard)
	}
	if b.Size == 0 || b.Pool < b.RAM || uint64(b.Pool) >= uint64(b.RAM)+uint64(b.Size) {
		return nil, fmt.Errorf("board %s: pool %v outside RAM [%v, +%#x)", b.Name, b.Pool, b.RAM, b.Size)
	}
	return b, nil
}

func (b *Board) parseBoard(args []string) error {
	for _, arg := range args {
		k, i, err := keyval(arg)
		if err != nil {
			return err
		}
		switch k {
		default:
			return fmt.Errorf("invalid board k=v: %s", arg)
		case "ram":
			b.RAM = mem.Addr(i)
		case "size":
			b.Size = uint32(i)
		case "pool":
			b.Pool = mem.Addr(i)
		case "hz":
			b.Hz = int(i)
		case "bsize":
			b.BufferSize = uint32(i)
		case "nproc":
			b.MaxProcs = int(i)
		}
	}
	return nil
}

func (p *Proc) parse(args []string) error {
	for _, arg := range args {
		if k, v, ok := strings.Cut(arg, "="); ok && k == "prog" {
			p.Prog = v
			continue
		}
		k, i, err := keyval(arg)
		if err != nil {
			return err
		}
		switch k {
		default:
			return fmt.Errorf("invalid proc k=v: %s", arg)
		case "prio":
			if i < 0 || i > 255 {
				return fmt.Errorf("proc %s: priority %d out of range", p.Name, i)
			}
			p.Prio = uint8(i)
		case "stack":
			if i <= 0 {
				return fmt.Errorf("proc %s: bad stack size %d", p.Name, i)
			}
			p.Stack = uint32(i)
		}
	}
	if p.Prog == "" {
		p.Prog = p.Name
	}
	return nil
}

func keyval(arg string) (string, int64, error) {
	k, v, ok := strings.Cut(arg, "=")
	if !ok {
		return "", 0, fmt.Errorf("invalid txtar k=v: %s", arg)
	}
	i, err := strconv.ParseInt(v, 0, 64)
	if err != nil || i < 0 || i > 1<<32-1 {
		return "", 0, fmt.Errorf("invalid txtar k=v: %s", arg)
	}
	return k, i, nil
}

// Kernel returns the kernel configuration for the board.
func (b *Board) Kernel() rtos.Config {
	return rtos.Config{
		PoolStart:  b.Pool,
		PoolEnd:    b.RAM + mem.Addr(b.Size),
		BufferSize: b.BufferSize,
		MaxProcs:   b.MaxProcs,
	}
}

// Format returns b as a manifest that Parse reads back.
func (b *Board) Format() []byte {
	ar := &txtar.Archive{Comment: b.Comment}
	hdr := fmt.Sprintf("board %s ram=%#x size=%#x pool=%#x", b.Name, uint32(b.RAM), b.Size, uint32(b.Pool))
	if b.Hz != 0 {
		hdr += fmt.Sprintf(" hz=%d", b.Hz)
	}
	if b.BufferSize != 0 {
		hdr += fmt.Sprintf(" bsize=%d", b.BufferSize)
	}
	if b.MaxProcs != 0 {
		hdr += fmt.Sprintf(" nproc=%d", b.MaxProcs)
	}
	ar.Files = append(ar.Files, txtar.File{Name: hdr})
	for _, p := range b.Procs {
		ar.Files = append(ar.Files, txtar.File{
			Name: fmt.Sprintf("proc %s prog=%s prio=%d stack=%d", p.Name, p.Prog, p.Prio, p.Stack),
			Data: p.Arg,
		})
	}
	return txtar.Format(ar)
}
