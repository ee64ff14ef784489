// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"sync"
	"sync/atomic"

	"github.com/usbarmory/GoSBI-nezha/internal/csr"
	"github.com/usbarmory/GoSBI-nezha/internal/platform"
)

// Timer represents a simulated machine timer, every read advances it by
// Step ticks.
type Timer struct {
	Step uint64

	now atomic.Uint64
}

// Time returns the current time and advances the timer.
func (t *Timer) Time() uint64 {
	return t.now.Add(t.Step)
}

// Now returns the current time without advancing it.
func (t *Timer) Now() uint64 {
	return t.now.Load()
}

// Advance moves the timer forward by d ticks.
func (t *Timer) Advance(d uint64) {
	t.now.Add(d)
}

// Write represents a logged bus write.
type Write struct {
	Addr uint64
	Val  uint32
}

// Bus represents a simulated device bus holding a CLINT, whose software and
// timer interrupt lines are wired to the hart register files.
type Bus struct {
	sync.Mutex

	// CLINT is the CLINT base address.
	CLINT uint64
	// Harts are the register files receiving CLINT interrupts.
	Harts []*CSR
	// Timer is the machine timer compared against mtimecmp.
	Timer *Timer

	regs map[uint64]uint32
	log  []Write
}

// Read32 implements platform.Registers.
func (b *Bus) Read32(addr uint64) uint32 {
	b.Lock()
	defer b.Unlock()

	return b.regs[addr]
}

// Write32 implements platform.Registers.
func (b *Bus) Write32(addr uint64, val uint32) {
	b.Lock()
	defer b.Unlock()

	if b.regs == nil {
		b.regs = make(map[uint64]uint32)
	}

	b.regs[addr] = val
	b.log = append(b.log, Write{addr, val})

	b.clint(addr)
}

// Writes returns all bus writes performed so far.
func (b *Bus) Writes() []Write {
	b.Lock()
	defer b.Unlock()

	return append([]Write(nil), b.log...)
}

// clint propagates CLINT register updates to the harts interrupt pending
// bits, it must be called with the bus locked.
func (b *Bus) clint(addr uint64) {
	if addr < b.CLINT {
		return
	}

	off := addr - b.CLINT

	switch {
	case off < platform.MTIMECMPL:
		if id := off / 4; off%4 == 0 && id < uint64(len(b.Harts)) {
			b.Harts[id].pending(csr.IP_MSIP, b.regs[addr]&1 != 0)
		}
	case off < platform.MTIMECMPL+8*uint64(len(b.Harts)):
		id := (off - platform.MTIMECMPL) / 8
		lo := b.CLINT + platform.MTIMECMPL + 8*id
		cmp := uint64(b.regs[lo+4])<<32 | uint64(b.regs[lo])

		var now uint64

		if b.Timer != nil {
			now = b.Timer.Now()
		}

		b.Harts[id].pending(csr.IP_MTIP, now >= cmp)
	}
}
