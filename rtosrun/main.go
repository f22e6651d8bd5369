// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Rtosrun boots a board on the host simulator.
//
// Usage:
//
//	rtosrun [-board manifest.txtar] [-hz n] [-ticks n] [-trace] [-cpuprofile file]
//
// Standard input is the board's UART; when it is a terminal it is put in
// raw mode. Typing Ctrl-\ stops the machine. Without -board the built-in
// demo board runs.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/pprof"

	"github.com/macce/myrtos/board"
	"github.com/macce/myrtos/demo"
	"github.com/macce/myrtos/rtos"
	"github.com/macce/myrtos/sim"
	"golang.org/x/term"
)

var (
	boardFile  = flag.String("board", "", "read the board manifest from `file`")
	hz         = flag.Int("hz", 0, "tick `rate` (default from the board)")
	ticks      = flag.Uint64("ticks", 0, "stop after `n` ticks")
	trace      = flag.Bool("trace", false, "trace every system call and context switch")
	cpuprofile = flag.String("cpuprofile", "", "write cpuprofile to `file`")
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: rtosrun [-board manifest.txtar] [-hz n] [-ticks n] [-trace]\n")
	os.Exit(2)
}

func main() {
	log.SetPrefix("rtosrun: ")
	log.SetFlags(0)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 0 {
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

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal(err)
		}
		defer pprof.StopCPUProfile()
	}

	var stdout, stderr io.Writer = os.Stdout, os.Stderr
	fixup := func() {}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			log.Fatal(err)
		}
		fixup = func() { term.Restore(fd, oldState) }
		stdout, stderr = crlf{os.Stdout}, crlf{os.Stderr}
		log.SetOutput(stderr)
	}
	defer fixup()

	cfg := sim.Config{Hz: *hz, TickLimit: *ticks, Out: stdout}
	if *trace {
		cfg.Trace = stderr
	}
	m, err := demo.Load(b, cfg)
	if err != nil {
		fixup()
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pump(ctx, os.Stdin, m, cancel)

	err = m.Run(ctx)
	var st rtos.Stats
	m.Inspect(func(k *rtos.Kernel) { st = k.Stats() })
	if err != nil && !errors.Is(err, context.Canceled) {
		fixup()
		log.Fatalf("%v (tick %d)", err, st.Tick)
	}
	log.Printf("%d ticks, %d switches, %d of %d buffers free", st.Tick, st.Switches, st.FreeBuffers, st.Buffers)
}

// pump feeds r to the machine's UART until r ends or Ctrl-\ is typed.
// A byte refused by a machine that is no longer running is dropped
// quietly; only a full FIFO on a live machine is an overrun.
func pump(ctx context.Context, r io.Reader, m *sim.Machine, quit func()) {
	buf := make([]byte, 100)
	for {
		n, err := r.Read(buf)
		for _, c := range buf[:n] {
			if c == 0x1c {
				quit()
				return
			}
			if !m.Input(c) {
				if !running(ctx, m) {
					return
				}
				log.Printf("uart overrun")
			}
		}
		if err != nil {
			if err != io.EOF {
				log.Printf("reading stdin: %v", err)
			}
			return
		}
	}
}

func running(ctx context.Context, m *sim.Machine) bool {
	select {
	case <-ctx.Done():
		return false
	case <-m.Halted():
		return false
	case <-m.Stopped():
		return false
	default:
		return true
	}
}

// crlf turns \n into \r\n for a terminal in raw mode.
type crlf struct {
	w io.Writer
}

func (c crlf) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
