// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package trap implements the handling rules applied to traps retained by
// the firmware: interrupt forwarding, trap reflection, page fault
// redelegation, timer read emulation and SBI calls.
package trap

import (
	"github.com/usbarmory/GoSBI-nezha/internal/hart"
)

// Action tells the executor how to resume after dispatch.
type Action int

// Dispatch results
const (
	// Resume returns to the trapping context at its (possibly updated) PC.
	Resume Action = iota
	// Redirect resumes at the supervisor trap vector.
	Redirect
	// Halt stops the hart, supervisor execution is not resumed.
	Halt
)

func (a Action) String() string {
	switch a {
	case Resume:
		return "resume"
	case Redirect:
		return "redirect"
	case Halt:
		return "halt"
	default:
		return "unknown"
	}
}

// Timer represents the machine mode timer.
type Timer interface {
	Time() uint64
}

// Interrupts represents the machine mode interrupt pending sources.
type Interrupts interface {
	// ClearSoft clears the machine software interrupt of a hart.
	ClearSoft(id hart.ID)
	// ClearTimer clears the machine timer interrupt of a hart.
	ClearTimer(id hart.ID)
}

// Caller represents the SBI call boundary.
type Caller interface {
	Call(h *hart.Hart) Action
}

// Failer represents the fatal failure path, Fatal must not return on
// hardware.
type Failer interface {
	Fatal(id hart.ID, err error)
}

// Dispatcher routes trap records to their handling rule.
type Dispatcher struct {
	// Timer is the machine mode timer used for time CSR emulation.
	Timer Timer
	// Interrupts clears forwarded interrupt sources.
	Interrupts Interrupts
	// Calls serves ecalls from supervisor mode.
	Calls Caller
	// Fatal handles unrecognized traps.
	Fatal Failer
	// XLEN is the supervisor register width (32 or 64), it defaults to 64.
	XLEN int
}

// Dispatch handles a trap record on hart h.
func (d *Dispatcher) Dispatch(h *hart.Hart, r *Record) Action {
	switch Classify(r, d.XLEN) {
	case Forward:
		return d.forward(h, r)
	case Transfer:
		return d.transfer(h, r)
	case PageFault:
		return d.redelegate(h, r)
	case TimerRead:
		return d.emulateTimerRead(h, r)
	case Call:
		return d.Calls.Call(h)
	default:
		return d.fail(h, r, "")
	}
}

func (d *Dispatcher) fail(h *hart.Hart, r *Record, reason string) Action {
	d.Fatal.Fatal(h.ID, &UnhandledError{
		Record: *r,
		Reason: reason,
	})

	// only reached when the fatal path is simulated
	return Halt
}
