// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package trap

import (
	"fmt"

	"github.com/usbarmory/GoSBI-nezha/internal/csr"
	"github.com/usbarmory/GoSBI-nezha/internal/hart"
)

// Record represents a single trap taken to machine mode, it is valid for one
// dispatch only.
type Record struct {
	// Cause is the mcause value.
	Cause Cause
	// Value is the mtval value (faulting address or instruction).
	Value uint64
	// Origin is the privilege level the trap was taken from.
	Origin csr.Privilege
	// PC is the mepc value.
	PC uint64
	// Instruction is the trapping instruction, only set for illegal
	// instruction exceptions.
	Instruction uint32
	// Context is the saved context of the trapping hart.
	Context *hart.Context
}

func (r *Record) String() string {
	return fmt.Sprintf("cause:%#x (%v) tval:%#x pc:%#x mode:%v", uint64(r.Cause), r.Cause, r.Value, r.PC, r.Origin)
}

// UnhandledError is raised for traps matching no dispatch rule.
type UnhandledError struct {
	Record Record
	Reason string
}

func (e *UnhandledError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unhandled trap %s, %s", &e.Record, e.Reason)
	}

	return fmt.Sprintf("unhandled trap %s", &e.Record)
}
