// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package deleg selects which trap causes are delegated by hardware to
// supervisor mode and which ones are retained by the firmware.
package deleg

import (
	"fmt"

	"github.com/usbarmory/GoSBI-nezha/internal/csr"
	"github.com/usbarmory/GoSBI-nezha/internal/trap"
)

// Policy represents the trap delegation configuration of a hart.
type Policy struct {
	// Exceptions is the medeleg value.
	Exceptions uint64
	// Interrupts is the mideleg value.
	Interrupts uint64
	// Enable holds the mie bits enabled for firmware handled interrupts.
	Enable uint64
}

// Default is the delegation policy applied to all harts.
//
// Supervisor ecalls, illegal instructions (timer read emulation), misaligned
// and faulting accesses and page faults are retained, the firmware reflects
// the ones it does not emulate. Machine software interrupts are retained for
// inter-hart signalling, machine timer interrupts for SBI timer forwarding.
var Default = Policy{
	Exceptions: bit(trap.InstructionMisaligned) |
		bit(trap.Breakpoint) |
		bit(trap.UserEcall),
	Interrupts: csr.IP_SSIP | csr.IP_STIP | csr.IP_SEIP,
	Enable:     csr.MIE_MSIE,
}

func bit(c trap.Cause) uint64 {
	return 1 << c.Code()
}

// Configure programs the policy on a hart register file.
func (p Policy) Configure(c csr.Backend) {
	c.Write(csr.MEDELEG, p.Exceptions)
	c.Write(csr.MIDELEG, p.Interrupts)
	c.Set(csr.MIE, p.Enable)
}

// Delegated reports whether cause is handled directly by supervisor mode.
func (p Policy) Delegated(c trap.Cause) bool {
	if c.Code() >= 64 {
		return false
	}

	if c.Interrupt() {
		return p.Interrupts&(1<<c.Code()) != 0
	}

	return p.Exceptions&(1<<c.Code()) != 0
}

// Check verifies that no cause is both delegated and relied upon by
// firmware emulation.
func (p Policy) Check() error {
	for _, c := range trap.Retained {
		if p.Delegated(c) {
			return fmt.Errorf("%v is delegated but handled by firmware", c)
		}
	}

	for _, c := range trap.Causes {
		if !p.Delegated(c) && !c.Handled() {
			return fmt.Errorf("%v is retained without a handler", c)
		}
	}

	return nil
}
