// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package platform

import (
	"math"

	"github.com/usbarmory/GoSBI-nezha/internal/hart"
)

// CLINT registers
const (
	MSIP      = 0x0000
	MTIMECMPL = 0x4000
	MTIMECMPH = 0x4004
)

// CLINT represents a Core Local Interruptor with 32-bit register access, as
// found on the T-Head C906.
type CLINT struct {
	// Base is the CLINT base address.
	Base uint64
	// Registers is the register access primitive.
	Registers Registers
}

func (c *CLINT) msip(id hart.ID) uint64 {
	return c.Base + MSIP + 4*uint64(id)
}

func (c *CLINT) mtimecmp(id hart.ID) (lo uint64, hi uint64) {
	off := 8 * uint64(id)
	return c.Base + MTIMECMPL + off, c.Base + MTIMECMPH + off
}

// SetSoft raises the machine software interrupt of a hart.
func (c *CLINT) SetSoft(id hart.ID) {
	c.Registers.Write32(c.msip(id), 1)
}

// ClearSoft clears the machine software interrupt of a hart.
func (c *CLINT) ClearSoft(id hart.ID) {
	c.Registers.Write32(c.msip(id), 0)
}

// SetTimer programs the machine timer compare value of a hart.
func (c *CLINT) SetTimer(id hart.ID, t uint64) {
	lo, hi := c.mtimecmp(id)

	// prevent a spurious match while the low word is updated
	c.Registers.Write32(hi, math.MaxUint32)
	c.Registers.Write32(lo, uint32(t))
	c.Registers.Write32(hi, uint32(t>>32))
}

// ClearTimer clears the machine timer interrupt of a hart by moving its
// compare value to the end of time.
func (c *CLINT) ClearTimer(id hart.ID) {
	c.SetTimer(id, math.MaxUint64)
}

// Timer returns the programmed compare value of a hart.
func (c *CLINT) Timer(id hart.ID) uint64 {
	lo, hi := c.mtimecmp(id)
	return uint64(c.Registers.Read32(hi))<<32 | uint64(c.Registers.Read32(lo))
}
