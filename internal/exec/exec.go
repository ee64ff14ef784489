// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package exec implements the privilege transitions between firmware and
// supervisor: the one-way initial jump and the round trip performed on every
// trap retained by the firmware.
package exec

import (
	"errors"
	"fmt"
	"log"

	"github.com/usbarmory/GoSBI-nezha/internal/csr"
	"github.com/usbarmory/GoSBI-nezha/internal/hart"
	"github.com/usbarmory/GoSBI-nezha/internal/trap"
)

var (
	// ErrEntered is returned when supervisor entry is requested twice.
	ErrEntered = errors.New("supervisor already entered")
	// ErrHalted is returned when a dispatch rule stops the hart.
	ErrHalted = errors.New("hart halted")
)

// Handler receives control from a Bootstrap.
type Handler interface {
	// Entered is invoked once the first privilege-downgrading return has
	// been performed.
	Entered()
	// Trap is invoked on every trap taken to machine mode, with the full
	// supervisor register file saved in the context. A nil return resumes
	// the context at mepc with privilege mstatus.MPP.
	Trap() error
}

// Bootstrap represents the calling-convention-free entry sequence.
//
// Run restores ctx general purpose registers and performs mret to mepc,
// every trap taken to machine mode saves all registers back to ctx before
// invoking h.Trap(). Run returns the first non-nil error returned by
// h.Trap().
type Bootstrap interface {
	Run(ctx *hart.Context, h Handler) error
}

// Executor drives privilege transitions for a single hart.
type Executor struct {
	// Hart is the executing hart.
	Hart *hart.Hart
	// Bootstrap performs the actual mode switches.
	Bootstrap Bootstrap
	// Dispatcher handles retained traps.
	Dispatcher *trap.Dispatcher
	// Fetch, if not nil, reads the instruction at a supervisor address
	// when mtval does not report it.
	Fetch func(h *hart.Hart, pc uint64) uint32
	// Debug enables logging of every trap.
	Debug bool
}

// Enter performs the initial transition to supervisor mode at entry, with
// a0 holding the hart ID and a1 the hardware description address. It
// returns only if the hart is halted.
func (e *Executor) Enter(entry uint64, blob uint64) (err error) {
	h := e.Hart

	if h.State() != hart.Booting {
		return ErrEntered
	}

	h.SetState(hart.EnteringSupervisor)

	status := h.CSR.Read(csr.MSTATUS)
	status = csr.WithPreviousPrivilege(status, csr.Supervisor)
	status &^= csr.MSTATUS_MPIE

	h.CSR.Write(csr.MSTATUS, status)
	h.CSR.Write(csr.MEPC, entry)

	ctx := &h.Context
	ctx.X = [32]uint64{}
	ctx.PC = entry
	ctx.Status = status
	ctx.SetReg(hart.A0, uint64(h.ID))
	ctx.SetReg(hart.A1, blob)

	log.Printf("SBI hart %d entering supervisor pc:%#.8x a1:%#.8x", h.ID, entry, blob)

	err = e.Bootstrap.Run(ctx, e)
	h.SetState(hart.Stopped)

	return
}

// Entered marks the hart as running in supervisor mode.
func (e *Executor) Entered() {
	e.Hart.SetState(hart.InSupervisor)
}

// Record reconstructs the trap record of the current trap.
func (e *Executor) Record() *trap.Record {
	h := e.Hart
	c := h.CSR

	status := c.Read(csr.MSTATUS)

	r := &trap.Record{
		Cause:   trap.Cause(c.Read(csr.MCAUSE)),
		Value:   c.Read(csr.MTVAL),
		Origin:  csr.PreviousPrivilege(status),
		PC:      c.Read(csr.MEPC),
		Context: &h.Context,
	}

	if r.Cause == trap.IllegalInstruction {
		r.Instruction = uint32(r.Value)

		if r.Instruction == 0 && e.Fetch != nil && r.Origin != csr.Machine {
			r.Instruction = e.Fetch(h, r.PC)
		}
	}

	return r
}

// Trap handles a trap retained by firmware and prepares the resume state.
func (e *Executor) Trap() (err error) {
	h := e.Hart
	r := e.Record()

	h.Context.PC = r.PC
	h.Context.Status = h.CSR.Read(csr.MSTATUS)

	action := e.Dispatcher.Dispatch(h, r)

	if e.Debug {
		log.Printf("SBI hart %d trap %s %v", h.ID, r, action)
	}

	switch action {
	case trap.Resume, trap.Redirect:
		h.CSR.Write(csr.MEPC, h.Context.PC)
		return
	case trap.Halt:
		return ErrHalted
	default:
		return fmt.Errorf("invalid dispatch action %d", action)
	}
}
