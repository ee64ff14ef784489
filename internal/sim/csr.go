// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sim provides a simulated hart register file, device bus, timer and
// supervisor, allowing the firmware core to run without privileged
// instructions.
package sim

import (
	"sync"

	"github.com/usbarmory/GoSBI-nezha/internal/csr"
	"github.com/usbarmory/GoSBI-nezha/internal/hart"
)

// misa value for RV64IMAFDCSU
const misa = 2<<62 | 1<<('I'-'A') | 1<<('M'-'A') | 1<<('A'-'A') | 1<<('F'-'A') |
	1<<('D'-'A') | 1<<('C'-'A') | 1<<('S'-'A') | 1<<('U'-'A')

// T-Head identification
const (
	VendorID = 0x5b7
	ArchID   = 0
	ImplID   = 0
)

// PLICBase is the value reported by the mapbaddr register.
const PLICBase = 0x10000000

// CSR represents the control and status registers of a simulated hart, it
// can be updated concurrently by device side effects.
type CSR struct {
	sync.Mutex

	regs   map[csr.Number]uint64
	writes map[csr.Number]int
}

// NewCSR returns the reset register file of hart id.
func NewCSR(id hart.ID) *CSR {
	return &CSR{
		regs: map[csr.Number]uint64{
			csr.MHARTID:   uint64(id),
			csr.MISA:      misa,
			csr.MVENDORID: VendorID,
			csr.MARCHID:   ArchID,
			csr.MIMPID:    ImplID,
			csr.MAPBADDR:  PLICBase,
			csr.MSTATUS:   uint64(csr.Machine) << csr.MSTATUS_MPP_SHIFT,
		},
		writes: make(map[csr.Number]int),
	}
}

// Read implements csr.Backend.
func (c *CSR) Read(n csr.Number) uint64 {
	c.Lock()
	defer c.Unlock()

	return c.regs[n]
}

// Write implements csr.Backend.
func (c *CSR) Write(n csr.Number, val uint64) {
	c.Lock()
	defer c.Unlock()

	c.regs[n] = val
	c.writes[n] += 1
}

// Set implements csr.Backend.
func (c *CSR) Set(n csr.Number, mask uint64) {
	c.Lock()
	defer c.Unlock()

	c.regs[n] |= mask
	c.writes[n] += 1
}

// Clear implements csr.Backend.
func (c *CSR) Clear(n csr.Number, mask uint64) {
	c.Lock()
	defer c.Unlock()

	c.regs[n] &^= mask
	c.writes[n] += 1
}

// Writes returns the number of writes performed on register n.
func (c *CSR) Writes(n csr.Number) int {
	c.Lock()
	defer c.Unlock()

	return c.writes[n]
}

// Snapshot returns a copy of all registers.
func (c *CSR) Snapshot() map[csr.Number]uint64 {
	c.Lock()
	defer c.Unlock()

	regs := make(map[csr.Number]uint64, len(c.regs))

	for n, v := range c.regs {
		regs[n] = v
	}

	return regs
}

// pending updates a mip bit on behalf of a device.
func (c *CSR) pending(bit uint64, on bool) {
	c.Lock()
	defer c.Unlock()

	if on {
		c.regs[csr.MIP] |= bit
	} else {
		c.regs[csr.MIP] &^= bit
	}
}
