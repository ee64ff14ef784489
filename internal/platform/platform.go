// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package platform defines the collaborators the firmware core relies upon:
// memory mapped register access, system reset and the core local
// interruptor.
package platform

import (
	"fmt"
)

// Registers represents address based access to memory mapped device
// registers.
type Registers interface {
	Read32(addr uint64) uint32
	Write32(addr uint64, val uint32)
}

// ResetType is an SBI system reset type.
type ResetType uint32

// Reset types
const (
	Shutdown   ResetType = 0
	ColdReboot ResetType = 1
	WarmReboot ResetType = 2
)

func (t ResetType) String() string {
	switch t {
	case Shutdown:
		return "shutdown"
	case ColdReboot:
		return "cold reboot"
	case WarmReboot:
		return "warm reboot"
	default:
		return fmt.Sprintf("reset type %#x", uint32(t))
	}
}

// ResetReason is an SBI system reset reason.
type ResetReason uint32

// Reset reasons
const (
	NoReason      ResetReason = 0
	SystemFailure ResetReason = 1
)

func (r ResetReason) String() string {
	switch r {
	case NoReason:
		return "requested"
	case SystemFailure:
		return "system failure"
	default:
		return fmt.Sprintf("reset reason %#x", uint32(r))
	}
}

// Reset represents the platform reset controller, SystemReset does not
// return when the request succeeds.
type Reset interface {
	SystemReset(t ResetType, r ResetReason) error
}
