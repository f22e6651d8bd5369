// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import "sync/atomic"

// gpio is the board's single LED.
type gpio struct {
	led     atomic.Bool
	toggles atomic.Uint64
}

// SetLED drives the LED.
func (p *Proc) SetLED(on bool) {
	if p.m.gpio.led.Swap(on) != on {
		p.m.gpio.toggles.Add(1)
	}
}

// LED reports the LED state and how many times it has changed.
func (m *Machine) LED() (on bool, toggles uint64) {
	return m.gpio.led.Load(), m.gpio.toggles.Load()
}
