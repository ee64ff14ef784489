// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package hart models the per-hart state owned by the firmware: the saved
// supervisor register file and the hart-indexed table passed to every
// component.
package hart

import (
	"fmt"
	"sync/atomic"

	"github.com/usbarmory/GoSBI-nezha/internal/csr"
)

// ID identifies a hardware thread.
type ID uint32

// Register aliases (ABI names) within Context.X
const (
	RA = 1
	SP = 2
	A0 = 10
	A1 = 11
	A6 = 16
	A7 = 17
)

// Context represents the supervisor execution context saved and restored at
// every firmware entry and exit.
type Context struct {
	// X holds the general purpose registers, X[0] is always zero.
	X [32]uint64
	// PC is the resume address.
	PC uint64
	// Status is the mstatus value captured at trap entry.
	Status uint64
}

// Reg returns general purpose register n.
func (ctx *Context) Reg(n int) uint64 {
	return ctx.X[n]
}

// SetReg sets general purpose register n, writes to X0 are discarded.
func (ctx *Context) SetReg(n int, val uint64) {
	if n == 0 {
		return
	}

	ctx.X[n] = val
}

// A0 returns argument register a0.
func (ctx *Context) A0() uint64 {
	return ctx.X[A0]
}

// A1 returns argument register a1.
func (ctx *Context) A1() uint64 {
	return ctx.X[A1]
}

func (ctx *Context) String() string {
	return fmt.Sprintf("pc:%#.16x ra:%#.16x sp:%#.16x a0:%#x a1:%#x a6:%#x a7:%#x",
		ctx.PC, ctx.X[RA], ctx.X[SP], ctx.X[A0], ctx.X[A1], ctx.X[A6], ctx.X[A7])
}

// State represents the privilege transition state of a hart.
type State uint32

// Hart states
const (
	Booting State = iota
	EnteringSupervisor
	InSupervisor
	Stopped
)

func (s State) String() string {
	switch s {
	case Booting:
		return "booting"
	case EnteringSupervisor:
		return "entering supervisor"
	case InSupervisor:
		return "in supervisor"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", uint32(s))
	}
}

// Hart represents a hardware thread and the resources it exclusively owns.
type Hart struct {
	// ID is the hart identifier (mhartid).
	ID ID
	// Context is the saved supervisor context.
	Context Context
	// CSR is the hart own register file.
	CSR csr.Backend

	state atomic.Uint32
}

// State returns the current hart state, it is safe to call from any hart.
func (h *Hart) State() State {
	return State(h.state.Load())
}

// SetState updates the hart state.
func (h *Hart) SetState(s State) {
	h.state.Store(uint32(s))
}

// Table is the hart-indexed state table.
type Table struct {
	harts []*Hart
}

// NewTable allocates the state table for n harts, backend returns the
// register file of each hart.
func NewTable(n int, backend func(ID) csr.Backend) *Table {
	t := &Table{
		harts: make([]*Hart, n),
	}

	for i := range t.harts {
		id := ID(i)

		t.harts[i] = &Hart{
			ID:  id,
			CSR: backend(id),
		}
	}

	return t
}

// Len returns the number of harts.
func (t *Table) Len() int {
	return len(t.harts)
}

// Hart returns the state of hart id, or nil if the hart does not exist.
func (t *Table) Hart(id ID) *Hart {
	if int(id) >= len(t.harts) {
		return nil
	}

	return t.harts[id]
}
