// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package csr describes the RISC-V control and status registers handled by
// the firmware and the narrow primitive used to access them.
//
// All privileged register access goes through a Backend, the hardware one
// issues csrr/csrw instructions while tests run against a simulated register
// file.
package csr

// Number is a control and status register address.
type Number uint16

// Supervisor CSRs
const (
	SSTATUS Number = 0x100
	SIE     Number = 0x104
	STVEC   Number = 0x105
	SEPC    Number = 0x141
	SCAUSE  Number = 0x142
	STVAL   Number = 0x143
	SIP     Number = 0x144
)

// Machine CSRs
const (
	MSTATUS  Number = 0x300
	MISA     Number = 0x301
	MEDELEG  Number = 0x302
	MIDELEG  Number = 0x303
	MIE      Number = 0x304
	MTVEC    Number = 0x305
	MSCRATCH Number = 0x340
	MEPC     Number = 0x341
	MCAUSE   Number = 0x342
	MTVAL    Number = 0x343
	MIP      Number = 0x344

	PMPCFG0  Number = 0x3a0
	PMPCFG2  Number = 0x3a2
	PMPADDR0 Number = 0x3b0

	MVENDORID Number = 0xf11
	MARCHID   Number = 0xf12
	MIMPID    Number = 0xf13
	MHARTID   Number = 0xf14
)

// Unprivileged counters
const (
	TIME  Number = 0xc01
	TIMEH Number = 0xc81
)

// MAPBADDR is the T-Head C906 custom CSR holding the PLIC base address.
const MAPBADDR Number = 0xfc1

// mstatus fields
const (
	MSTATUS_SIE  = 1 << 1
	MSTATUS_MIE  = 1 << 3
	MSTATUS_SPIE = 1 << 5
	MSTATUS_MPIE = 1 << 7
	MSTATUS_SPP  = 1 << 8

	MSTATUS_MPP_SHIFT = 11
	MSTATUS_MPP       = 0b11 << MSTATUS_MPP_SHIFT
)

// mip/mie fields
const (
	IP_SSIP = 1 << 1
	IP_MSIP = 1 << 3
	IP_STIP = 1 << 5
	IP_MTIP = 1 << 7
	IP_SEIP = 1 << 9
	IP_MEIP = 1 << 11

	MIE_MSIE = IP_MSIP
	MIE_MTIE = IP_MTIP
)

// STVEC_MODE masks the stvec mode field, the remaining bits hold the trap
// vector base.
const STVEC_MODE = 0b11

// Privilege is a RISC-V privilege level.
type Privilege uint8

// Privilege levels
const (
	User       Privilege = 0
	Supervisor Privilege = 1
	Machine    Privilege = 3
)

func (p Privilege) String() string {
	switch p {
	case User:
		return "U"
	case Supervisor:
		return "S"
	case Machine:
		return "M"
	default:
		return "?"
	}
}

// Backend represents the control and status registers of the executing
// hart.
type Backend interface {
	// Read returns the register value (csrr).
	Read(n Number) uint64
	// Write sets the register value (csrw).
	Write(n Number, val uint64)
	// Set sets the bits in mask (csrs).
	Set(n Number, mask uint64)
	// Clear clears the bits in mask (csrc).
	Clear(n Number, mask uint64)
}

// PreviousPrivilege returns the mstatus.MPP field.
func PreviousPrivilege(mstatus uint64) Privilege {
	return Privilege((mstatus & MSTATUS_MPP) >> MSTATUS_MPP_SHIFT)
}

// WithPreviousPrivilege returns mstatus with the MPP field set to p.
func WithPreviousPrivilege(mstatus uint64, p Privilege) uint64 {
	return (mstatus &^ MSTATUS_MPP) | (uint64(p) << MSTATUS_MPP_SHIFT)
}
