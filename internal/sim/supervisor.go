// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"github.com/usbarmory/GoSBI-nezha/internal/csr"
	"github.com/usbarmory/GoSBI-nezha/internal/exec"
	"github.com/usbarmory/GoSBI-nezha/internal/hart"
	"github.com/usbarmory/GoSBI-nezha/internal/trap"
)

// Event represents a supervisor action ending with a trap to machine mode.
type Event struct {
	// Before, if not nil, updates the context before the trap is raised.
	Before func(ctx *hart.Context)
	// Cause is the trap cause.
	Cause trap.Cause
	// Value is the trap value (mtval).
	Value uint64
	// User raises the trap from user mode instead of supervisor mode.
	User bool
	// After, if not nil, is invoked once the firmware resumes the
	// context.
	After func(ctx *hart.Context, mode csr.Privilege)
}

// Entry represents the state observed by the supervisor on its first
// instruction.
type Entry struct {
	PC   uint64
	Mode csr.Privilege
	A0   uint64
	A1   uint64
}

// Supervisor represents a scripted supervisor, it implements exec.Bootstrap
// on top of a simulated register file.
type Supervisor struct {
	// CSR is the hart register file.
	CSR *CSR
	// Events are raised in order after entry.
	Events []Event
	// Memory holds instructions returned by Fetch.
	Memory map[uint64]uint32

	// Entry is the state observed on the first mret.
	Entry Entry
	// Resumes counts the mret performed after a trap.
	Resumes int

	mode csr.Privilege
}

// mret emulates the privilege-downgrading return.
func (s *Supervisor) mret(ctx *hart.Context) {
	status := s.CSR.Read(csr.MSTATUS)

	s.mode = csr.PreviousPrivilege(status)
	ctx.PC = s.CSR.Read(csr.MEPC)

	if status&csr.MSTATUS_MPIE != 0 {
		status |= csr.MSTATUS_MIE
	} else {
		status &^= csr.MSTATUS_MIE
	}

	status |= csr.MSTATUS_MPIE
	status = csr.WithPreviousPrivilege(status, csr.User)

	s.CSR.Write(csr.MSTATUS, status)
}

// raise emulates the hardware trap entry to machine mode.
func (s *Supervisor) raise(ctx *hart.Context, ev Event) {
	if ev.User {
		s.mode = csr.User
	}

	status := s.CSR.Read(csr.MSTATUS)

	if status&csr.MSTATUS_MIE != 0 {
		status |= csr.MSTATUS_MPIE
	} else {
		status &^= csr.MSTATUS_MPIE
	}

	status &^= csr.MSTATUS_MIE
	status = csr.WithPreviousPrivilege(status, s.mode)

	s.CSR.Write(csr.MCAUSE, uint64(ev.Cause))
	s.CSR.Write(csr.MTVAL, ev.Value)
	s.CSR.Write(csr.MEPC, ctx.PC)
	s.CSR.Write(csr.MSTATUS, status)

	s.mode = csr.Machine
}

// Run implements exec.Bootstrap.
func (s *Supervisor) Run(ctx *hart.Context, h exec.Handler) (err error) {
	s.mret(ctx)

	s.Entry = Entry{
		PC:   ctx.PC,
		Mode: s.mode,
		A0:   ctx.Reg(hart.A0),
		A1:   ctx.Reg(hart.A1),
	}

	h.Entered()

	for _, ev := range s.Events {
		if ev.Before != nil {
			ev.Before(ctx)
		}

		s.raise(ctx, ev)

		if err = h.Trap(); err != nil {
			return
		}

		s.mret(ctx)
		s.Resumes += 1

		if ev.After != nil {
			ev.After(ctx, s.mode)
		}
	}

	return
}

// Mode returns the current simulated privilege level.
func (s *Supervisor) Mode() csr.Privilege {
	return s.mode
}

// Fetch returns the instruction at pc, it can be used as exec.Executor
// Fetch function.
func (s *Supervisor) Fetch(_ *hart.Hart, pc uint64) uint32 {
	return s.Memory[pc]
}
