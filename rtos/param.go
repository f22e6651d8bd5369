// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rtos

/*
 * tunable variables
 */
const (
	NPROC  = 32 /* default max number of processes */
	NINBOX = 4  /* inboxes per process */
	BSIZE  = 64 /* default buffer payload size in bytes */
)

/*
 * buffer layout
 * dont change
 */
const (
	BufHeaderSize  = 8 /* magic, next */
	BufTrailerSize = 4 /* magic */

	bufHeaderMagic  uint32 = 0x11223344
	bufFreeMagic    uint32 = 0x44332211 /* header magic while on the free list */
	bufQueueMagic   uint32 = 0x11224433 /* header magic while queued in an inbox */
	bufTrailerMagic uint32 = 0x55667788
)

/*
 * permanent region footprints
 */
const (
	PCBSize   = 52 /* entry, stack top, sp, next, pri, pid, inbox[4], state, recv, delay, psem */
	pcbAlign  = 4
	stackAlgn = 8
)
