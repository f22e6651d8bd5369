// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package demo is a small application for the kernel: a console that
// echoes its input, two processes that bounce a buffer between their
// inboxes, a blinker and the idle process.
package demo

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/macce/myrtos/board"
	"github.com/macce/myrtos/sim"
)

// Programs maps the prog= names a board manifest may use.
var Programs = map[string]sim.Program{
	"blink":   Blink,
	"console": Console,
	"idle":    Idle,
	"ping":    Ping,
	"pong":    Pong,
}

// Load builds a machine for b. Zero fields of cfg are filled in from the
// board; the console is the first process running the console program.
func Load(b *board.Board, cfg sim.Config) (*sim.Machine, error) {
	cfg.RAMBase = b.RAM
	cfg.RAMSize = int(b.Size)
	cfg.Kernel = b.Kernel()
	if cfg.Hz == 0 {
		cfg.Hz = b.Hz
	}
	for _, p := range b.Procs {
		if cfg.Console == "" && p.Prog == "console" {
			cfg.Console = p.Name
		}
	}
	m, err := sim.New(cfg)
	if err != nil {
		return nil, err
	}
	for _, p := range b.Procs {
		prog, ok := Programs[p.Prog]
		if !ok {
			return nil, fmt.Errorf("proc %s: unknown program %q", p.Name, p.Prog)
		}
		m.Add(p.Name, p.Prio, p.Stack, prog, p.Arg)
	}
	return m, nil
}

func Idle(p *sim.Proc) {
	for {
		p.Idle()
	}
}

// Console echoes UART input back to the console.
func Console(p *sim.Proc) {
	for {
		c := p.Getc()
		if c == '\r' {
			c = '\n'
		}
		p.Printf("%c", c)
	}
}

const (
	pingInbox = 0 /* where pong receives */
	pongInbox = 1 /* where ping receives */
)

// Ping sends a counter to its peer and waits for it to come back
// incremented, one round trip per tick. Its argument is "PEER ROUNDS":
// it reports every ROUNDS round trips.
func Ping(p *sim.Proc) {
	f := strings.Fields(string(p.Arg()))
	peer := "pong"
	rounds := 100
	if len(f) > 0 {
		peer = f[0]
	}
	if len(f) > 1 {
		if n, err := strconv.Atoi(f[1]); err == nil && n > 0 {
			rounds = n
		}
	}
	pid := p.Lookup(peer)
	if pid < 0 {
		p.Printf("%s: no peer %s\n", p.Name(), peer)
		return
	}

	var count uint32
	for {
		buf := p.Alloc(4)
		p.Write(buf, le32(count))
		p.Send(buf, pid, pingInbox)
		buf = p.Receive(pongInbox)
		next := get32(p.Read(buf))
		p.Dispose(buf)
		if next != count+1 {
			p.Printf("%s: sent %d, got back %d\n", p.Name(), count, next)
		}
		count = next
		if count%uint32(rounds) == 0 {
			p.Printf("%s: %d round trips\n", p.Name(), count)
		}
		p.Delay(1)
	}
}

// Pong returns every buffer it receives to the process named by its
// argument, with the counter in it incremented.
func Pong(p *sim.Proc) {
	peer := strings.TrimSpace(string(p.Arg()))
	if peer == "" {
		peer = "ping"
	}
	pid := p.Lookup(peer)
	if pid < 0 {
		p.Printf("%s: no peer %s\n", p.Name(), peer)
		return
	}
	for {
		buf := p.Receive(pingInbox)
		p.Write(buf, le32(get32(p.Read(buf))+1))
		p.Send(buf, pid, pongInbox)
	}
}

// Blink toggles an LED every PERIOD ticks, its argument (default 50).
func Blink(p *sim.Proc) {
	period := uint32(50)
	if n, err := strconv.ParseUint(strings.TrimSpace(string(p.Arg())), 0, 32); err == nil && n > 0 {
		period = uint32(n)
	}
	for on := true; ; on = !on {
		p.Delay(period)
		p.SetLED(on)
	}
}

func le32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

func get32(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}
