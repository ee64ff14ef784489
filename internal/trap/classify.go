// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package trap

import (
	"fmt"

	"github.com/usbarmory/GoSBI-nezha/internal/csr"
)

// Class selects the rule handling a retained trap.
type Class int

// Dispatch rules, each trap matches exactly one.
const (
	Unhandled Class = iota
	// Forward relays inter-hart and timer interrupts to supervisor mode.
	Forward
	// Transfer reflects exceptions to the supervisor trap vector.
	Transfer
	// PageFault reflects page faults to the supervisor trap vector.
	PageFault
	// TimerRead emulates time CSR reads.
	TimerRead
	// Call serves SBI calls.
	Call
)

func (c Class) String() string {
	switch c {
	case Unhandled:
		return "unhandled"
	case Forward:
		return "forward"
	case Transfer:
		return "transfer"
	case PageFault:
		return "page fault"
	case TimerRead:
		return "timer read"
	case Call:
		return "call"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

const (
	opcodeSystem = 0b1110011
	funct3CSRRS  = 0b010
)

// decodeCounterRead decodes `csrrs rd, time|timeh, x0` (rdtime/rdtimeh).
func decodeCounterRead(inst uint32) (rd int, n csr.Number, ok bool) {
	if inst&0x7f != opcodeSystem || (inst>>12)&0b111 != funct3CSRRS || (inst>>15)&0x1f != 0 {
		return
	}

	n = csr.Number(inst >> 20)

	if n != csr.TIME && n != csr.TIMEH {
		return
	}

	return int((inst >> 7) & 0x1f), n, true
}

// Classify returns the rule for a trap record taken from a supervisor of
// register width xlen (0 defaults to 64), traps taken from machine mode are
// never handled.
func Classify(r *Record, xlen int) Class {
	if r.Origin == csr.Machine {
		return Unhandled
	}

	return classify(r.Cause, r.Instruction, xlen)
}

func classify(c Cause, inst uint32, xlen int) Class {
	switch c {
	case MachineSoftInterrupt, MachineTimerInterrupt:
		return Forward
	case SupervisorEcall:
		return Call
	case IllegalInstruction:
		_, n, ok := decodeCounterRead(inst)

		// timeh only exists on RV32
		if !ok || (n == csr.TIMEH && xlen != 32) {
			return Transfer
		}

		return TimerRead
	case InstructionAccessFault, LoadMisaligned, LoadAccessFault, StoreMisaligned, StoreAccessFault:
		return Transfer
	case InstructionPageFault, LoadPageFault, StorePageFault:
		return PageFault
	default:
		return Unhandled
	}
}
