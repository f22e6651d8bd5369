// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Rtosdump boots a board on the host simulator, runs it for a while and
// writes a core dump of the kernel as a txtar archive.
//
// Usage:
//
//	rtosdump [-board manifest.txtar] [-ticks n] [-hz n] [-o core.txtar]
//
// The archive holds the board manifest, kernel statistics, the process
// table, the ready and delay lists, every buffer, a memory map of the
// kernel pool and a hex dump of its used part. If the kernel halted, a
// fault file names the fault.
//
// The -o flag specifies the name of the output file to write (default standard output).
package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/macce/myrtos/board"
	"github.com/macce/myrtos/demo"
	"github.com/macce/myrtos/mem"
	"github.com/macce/myrtos/rtos"
	"github.com/macce/myrtos/sim"
	"golang.org/x/tools/txtar"
)

var (
	boardFile = flag.String("board", "", "read the board manifest from `file`")
	ticks     = flag.Uint64("ticks", 100, "run for `n` ticks")
	hz        = flag.Int("hz", 1000, "tick `rate` while running")
	outfile   = flag.String("o", "", "write output txtar to `file` (default standard output)")
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: rtosdump [-board manifest.txtar] [-ticks n] [-hz n] [-o core.txtar]\n")
	os.Exit(2)
}

func main() {
	log.SetPrefix("rtosdump: ")
	log.SetFlags(0)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 0 || *ticks == 0 || *hz <= 0 {
		usage()
	}

	manifest := board.Default
	if *boardFile != "" {
		data, err := os.ReadFile(*boardFile)
		if err != nil {
			log.Fatal(err)
		}
		manifest = data
	}
	b, err := board.Parse(manifest)
	if err != nil {
		log.Fatal(err)
	}
	m, err := demo.Load(b, sim.Config{Hz: *hz, TickLimit: *ticks})
	if err != nil {
		log.Fatal(err)
	}
	err = m.Run(context.Background())
	var he *sim.HaltError
	if err != nil && !errors.As(err, &he) {
		log.Fatal(err)
	}

	ar := &txtar.Archive{
		Comment: []byte(fmt.Sprintf("core of board %s after %d ticks\n", b.Name, *ticks)),
	}
	add := func(name string, data []byte) {
		ar.Files = append(ar.Files, txtar.File{Name: name, Data: data})
	}
	add("board", b.Format())
	if he != nil {
		add("fault", []byte(he.Error()+"\n"))
	}
	m.Inspect(func(k *rtos.Kernel) {
		names := m.Names()
		add("stats", stats(k))
		add("procs", procs(k, names))
		add("ready", list(k.ReadyList(), names))
		add("delay", list(k.DelayList(), names))
		add("buffers", buffers(k, names))
		add("memory", memoryMap(k, names))
		st := k.Stats()
		used, err := m.RAM.Slice(st.PoolStart, st.PoolUsed)
		if err != nil {
			log.Fatal(err)
		}
		add("pool.hex", []byte(hex.Dump(used)))
	})

	data := txtar.Format(ar)
	if *outfile == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*outfile, data, 0666); err != nil {
		log.Fatal(err)
	}
}

func stats(k *rtos.Kernel) []byte {
	st := k.Stats()
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tick %d\n", st.Tick)
	fmt.Fprintf(&buf, "switches %d\n", st.Switches)
	fmt.Fprintf(&buf, "procs %d\n", st.Procs)
	fmt.Fprintf(&buf, "buffers %d\n", st.Buffers)
	fmt.Fprintf(&buf, "free %d\n", st.FreeBuffers)
	fmt.Fprintf(&buf, "pool %v used %d free %d\n", st.PoolStart, st.PoolUsed, st.PoolFree)
	return buf.Bytes()
}

func procs(k *rtos.Kernel, names []string) []byte {
	// Count queued buffers from the pool walk, which survives a
	// corrupted inbox.
	queued := make(map[[2]int]int)
	for _, bi := range k.Buffers() {
		if bi.Owner >= 0 {
			queued[[2]int{bi.Owner, bi.Inbox}]++
		}
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 8, 1, ' ', 0)
	fmt.Fprintf(w, "PID\tNAME\tPRI\tSTATE\tPCB\tSP\tSTACKTOP\tPSEM\tINBOX\tWAIT\n")
	for _, p := range k.Procs() {
		inbox := ""
		for i := 0; i < rtos.NINBOX; i++ {
			if i > 0 {
				inbox += ","
			}
			inbox += fmt.Sprint(queued[[2]int{p.Pid(), i}])
		}
		wait := "-"
		switch p.State() {
		case rtos.Receive:
			wait = fmt.Sprintf("inbox %d", p.ReceiveFrom())
		case rtos.Delay:
			wait = fmt.Sprintf("tick %d", p.DelayUntil())
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%v\t%v\t%v\t%v\t%d\t%s\t%s\n",
			p.Pid(), names[p.Pid()], p.Priority(), p.State(), p.Addr(), p.SP, p.StackTop, p.Psem(), inbox, wait)
	}
	w.Flush()
	return buf.Bytes()
}

func list(l []*rtos.PCB, names []string) []byte {
	var buf bytes.Buffer
	for _, p := range l {
		fmt.Fprintf(&buf, "%d %s\n", p.Pid(), names[p.Pid()])
	}
	return buf.Bytes()
}

func buffers(k *rtos.Kernel, names []string) []byte {
	var buf bytes.Buffer
	for _, bi := range k.Buffers() {
		fmt.Fprintf(&buf, "%v %v", bi.Payload, bi.State)
		if bi.Owner >= 0 {
			fmt.Fprintf(&buf, " %s inbox %d", names[bi.Owner], bi.Inbox)
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// memoryMap lists the regions of the kernel pool in address order.
func memoryMap(k *rtos.Kernel, names []string) []byte {
	type region struct {
		start, end mem.Addr
		what       string
	}
	var rs []region
	for _, p := range k.Procs() {
		name := names[p.Pid()]
		rs = append(rs, region{p.Addr(), p.Addr() + rtos.PCBSize, "pcb " + name})
		rs = append(rs, region{p.Addr() + rtos.PCBSize, p.StackTop, "stack " + name})
	}
	st := k.Stats()
	rs = append(rs, region{st.Table, st.Table + mem.Addr(4*st.Procs), "process table"})
	if bufs := k.Buffers(); len(bufs) > 0 {
		rs = append(rs, region{bufs[0].Payload - rtos.BufHeaderSize, st.PoolStart + mem.Addr(st.PoolUsed),
			fmt.Sprintf("buffers (%d)", len(bufs))})
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].start < rs[j].start })

	var buf bytes.Buffer
	for _, r := range rs {
		fmt.Fprintf(&buf, "%v-%v %s\n", r.start, r.end, r.what)
	}
	end := st.PoolStart + mem.Addr(st.PoolUsed)
	fmt.Fprintf(&buf, "%v-%v free\n", end, end+mem.Addr(st.PoolFree))
	return buf.Bytes()
}
