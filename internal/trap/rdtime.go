// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package trap

import (
	"github.com/usbarmory/GoSBI-nezha/internal/csr"
	"github.com/usbarmory/GoSBI-nezha/internal/hart"
)

// instruction length of rdtime/rdtimeh (no compressed encoding exists)
const counterReadSize = 4

// Split returns the low and high halves of a 64-bit counter value.
func Split(t uint64) (lo uint32, hi uint32) {
	return uint32(t), uint32(t >> 32)
}

// emulateTimerRead serves rdtime (and rdtimeh on RV32) from the machine mode
// timer and resumes after the trapping instruction.
func (d *Dispatcher) emulateTimerRead(h *hart.Hart, r *Record) Action {
	rd, n, _ := decodeCounterRead(r.Instruction)

	t := d.Timer.Time()
	lo, hi := Split(t)

	switch {
	case n == csr.TIMEH:
		r.Context.SetReg(rd, uint64(hi))
	case d.XLEN == 32:
		r.Context.SetReg(rd, uint64(lo))
	default:
		r.Context.SetReg(rd, t)
	}

	r.Context.PC = r.PC + counterReadSize

	return Resume
}
