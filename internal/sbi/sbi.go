// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sbi implements the Supervisor Binary Interface call boundary:
// supervisor ecalls are dispatched by extension (a7) and function (a6) and
// return an (error, value) pair in a0 and a1.
package sbi

import (
	"log"

	"github.com/usbarmory/GoSBI-nezha/internal/hart"
	"github.com/usbarmory/GoSBI-nezha/internal/platform"
	"github.com/usbarmory/GoSBI-nezha/internal/trap"
)

// Extension IDs
const (
	EXT_SET_TIMER        = 0x00
	EXT_CONSOLE_PUTCHAR  = 0x01
	EXT_CONSOLE_GETCHAR  = 0x02
	EXT_CLEAR_IPI        = 0x03
	EXT_SEND_IPI         = 0x04
	EXT_REMOTE_FENCE_I   = 0x05
	EXT_REMOTE_SFENCE    = 0x06
	EXT_REMOTE_SFENCE_AS = 0x07
	EXT_SHUTDOWN         = 0x08

	EXT_BASE = 0x10
	EXT_TIME = 0x54494d45 // TIME
	EXT_IPI  = 0x735049   // sPI
	EXT_HSM  = 0x48534d   // HSM
	EXT_SRST = 0x53525354 // SRST
)

// Error codes
const (
	SUCCESS               = 0
	ERR_FAILED            = -1
	ERR_NOT_SUPPORTED     = -2
	ERR_INVALID_PARAM     = -3
	ERR_DENIED            = -4
	ERR_INVALID_ADDRESS   = -5
	ERR_ALREADY_AVAILABLE = -6
)

// SpecVersion is the implemented SBI specification version (v0.3).
const SpecVersion = 0<<24 | 3

// ecall instruction length
const ecallSize = 4

// Console represents the supervisor console.
type Console interface {
	Putchar(c byte)
	Getchar() (c byte, ok bool)
}

// Interrupts represents the machine timer and software interrupt sources.
type Interrupts interface {
	SetSoft(id hart.ID)
	SetTimer(id hart.ID, t uint64)
}

// Handler serves SBI calls issued by supervisor mode.
type Handler struct {
	// Harts is the hart state table.
	Harts *hart.Table
	// Interrupts programs inter-hart and timer interrupts.
	Interrupts Interrupts
	// Console is the supervisor console.
	Console Console
	// Reset is the platform reset controller.
	Reset platform.Reset

	// ImplID is the SBI implementation identifier.
	ImplID uint64
	// ImplVersion is the SBI implementation version.
	ImplVersion uint64

	// Debug enables logging of unsupported calls.
	Debug bool
}

// result represents an SBI call outcome, legacy calls only return err.
type result struct {
	err    int64
	val    uint64
	legacy bool
	action trap.Action
}

func ret(err int64, val uint64) result {
	return result{err: err, val: val}
}

// Call serves the ecall saved in the hart context and advances its PC past
// the ecall instruction.
func (s *Handler) Call(h *hart.Hart) trap.Action {
	ctx := &h.Context
	ext := ctx.Reg(hart.A7)
	fid := ctx.Reg(hart.A6)

	var res result

	switch {
	case ext < EXT_BASE:
		res = s.legacy(h, ext)
		res.legacy = true
	case ext == EXT_BASE:
		res = s.base(h, fid)
	case ext == EXT_TIME:
		res = s.time(h, fid)
	case ext == EXT_IPI:
		res = s.ipi(h, fid)
	case ext == EXT_HSM:
		res = s.hsm(h, fid)
	case ext == EXT_SRST:
		res = s.srst(h, fid)
	default:
		res = ret(ERR_NOT_SUPPORTED, 0)
	}

	if res.err == ERR_NOT_SUPPORTED && s.Debug {
		log.Printf("SBI hart %d unsupported call ext:%#x fid:%d", h.ID, ext, fid)
	}

	if res.action == trap.Halt {
		return trap.Halt
	}

	ctx.SetReg(hart.A0, uint64(res.err))

	if !res.legacy {
		ctx.SetReg(hart.A1, res.val)
	}

	ctx.PC += ecallSize

	return trap.Resume
}

// Supported reports whether an extension is implemented.
func (s *Handler) Supported(ext uint64) bool {
	switch ext {
	case EXT_SET_TIMER, EXT_CONSOLE_PUTCHAR, EXT_CONSOLE_GETCHAR, EXT_CLEAR_IPI, EXT_SHUTDOWN:
		return true
	case EXT_BASE, EXT_TIME, EXT_IPI, EXT_HSM, EXT_SRST:
		return true
	default:
		return false
	}
}
