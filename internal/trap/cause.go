// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package trap

import (
	"fmt"
)

// Cause is a raw mcause value.
type Cause uint64

const interruptFlag Cause = 1 << 63

// Exception causes
const (
	InstructionMisaligned  Cause = 0
	InstructionAccessFault Cause = 1
	IllegalInstruction     Cause = 2
	Breakpoint             Cause = 3
	LoadMisaligned         Cause = 4
	LoadAccessFault        Cause = 5
	StoreMisaligned        Cause = 6
	StoreAccessFault       Cause = 7
	UserEcall              Cause = 8
	SupervisorEcall        Cause = 9
	MachineEcall           Cause = 11
	InstructionPageFault   Cause = 12
	LoadPageFault          Cause = 13
	StorePageFault         Cause = 15
)

// Interrupt causes
const (
	SupervisorSoftInterrupt     = interruptFlag | 1
	MachineSoftInterrupt        = interruptFlag | 3
	SupervisorTimerInterrupt    = interruptFlag | 5
	MachineTimerInterrupt       = interruptFlag | 7
	SupervisorExternalInterrupt = interruptFlag | 9
	MachineExternalInterrupt    = interruptFlag | 11
)

// Causes lists every trap that code running below machine mode can raise
// on this platform. Machine ecalls can only originate from firmware and
// machine external interrupts are never enabled.
var Causes = []Cause{
	InstructionMisaligned,
	InstructionAccessFault,
	IllegalInstruction,
	Breakpoint,
	LoadMisaligned,
	LoadAccessFault,
	StoreMisaligned,
	StoreAccessFault,
	UserEcall,
	SupervisorEcall,
	InstructionPageFault,
	LoadPageFault,
	StorePageFault,
	SupervisorSoftInterrupt,
	MachineSoftInterrupt,
	SupervisorTimerInterrupt,
	MachineTimerInterrupt,
	SupervisorExternalInterrupt,
}

// Retained lists the causes firmware behaviour depends on intercepting,
// they must never be delegated.
var Retained = []Cause{
	SupervisorEcall,
	IllegalInstruction,
	MachineSoftInterrupt,
	MachineTimerInterrupt,
}

var names = map[Cause]string{
	InstructionMisaligned:       "instruction address misaligned",
	InstructionAccessFault:      "instruction access fault",
	IllegalInstruction:          "illegal instruction",
	Breakpoint:                  "breakpoint",
	LoadMisaligned:              "load address misaligned",
	LoadAccessFault:             "load access fault",
	StoreMisaligned:             "store address misaligned",
	StoreAccessFault:            "store access fault",
	UserEcall:                   "environment call from U-mode",
	SupervisorEcall:             "environment call from S-mode",
	MachineEcall:                "environment call from M-mode",
	InstructionPageFault:        "instruction page fault",
	LoadPageFault:               "load page fault",
	StorePageFault:              "store page fault",
	SupervisorSoftInterrupt:     "supervisor software interrupt",
	MachineSoftInterrupt:        "machine software interrupt",
	SupervisorTimerInterrupt:    "supervisor timer interrupt",
	MachineTimerInterrupt:       "machine timer interrupt",
	SupervisorExternalInterrupt: "supervisor external interrupt",
	MachineExternalInterrupt:    "machine external interrupt",
}

// Interrupt reports whether the cause is an interrupt.
func (c Cause) Interrupt() bool {
	return c&interruptFlag != 0
}

// Code returns the exception or interrupt code.
func (c Cause) Code() uint64 {
	return uint64(c &^ interruptFlag)
}

// Handled reports whether a dispatch rule exists for the cause when raised
// from a lower privilege level.
func (c Cause) Handled() bool {
	return classify(c, 0, 0) != Unhandled
}

func (c Cause) String() string {
	if s, ok := names[c]; ok {
		return s
	}

	if c.Interrupt() {
		return fmt.Sprintf("interrupt %d", c.Code())
	}

	return fmt.Sprintf("exception %d", c.Code())
}
