// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sbi

import (
	"github.com/usbarmory/GoSBI-nezha/internal/hart"
	"github.com/usbarmory/GoSBI-nezha/internal/platform"
)

// Extension functions
const (
	TIME_SET_TIMER = 0

	IPI_SEND_IPI = 0

	HSM_HART_GET_STATUS = 2

	SRST_SYSTEM_RESET = 0
)

// HSM hart states
const (
	HSM_STARTED       = 0
	HSM_STOPPED       = 1
	HSM_START_PENDING = 2
)

// hartMaskAll selects every hart regardless of the hart mask.
const hartMaskAll = ^uint64(0)

func (s *Handler) time(h *hart.Hart, fid uint64) result {
	if fid != TIME_SET_TIMER {
		return ret(ERR_NOT_SUPPORTED, 0)
	}

	s.setTimer(h, h.Context.A0())

	return ret(SUCCESS, 0)
}

func (s *Handler) ipi(h *hart.Hart, fid uint64) result {
	if fid != IPI_SEND_IPI {
		return ret(ERR_NOT_SUPPORTED, 0)
	}

	mask := h.Context.A0()
	base := h.Context.A1()
	n := uint64(s.Harts.Len())

	if base == hartMaskAll {
		for id := uint64(0); id < n; id++ {
			s.Interrupts.SetSoft(hart.ID(id))
		}

		return ret(SUCCESS, 0)
	}

	// validate the whole mask before raising any interrupt
	for i := uint64(0); i < 64; i++ {
		if mask&(1<<i) != 0 && (base+i >= n || base+i < base) {
			return ret(ERR_INVALID_PARAM, 0)
		}
	}

	for i := uint64(0); i < 64; i++ {
		if mask&(1<<i) != 0 {
			s.Interrupts.SetSoft(hart.ID(base + i))
		}
	}

	return ret(SUCCESS, 0)
}

func (s *Handler) hsm(h *hart.Hart, fid uint64) result {
	if fid != HSM_HART_GET_STATUS {
		return ret(ERR_NOT_SUPPORTED, 0)
	}

	id := h.Context.A0()

	if id >= uint64(s.Harts.Len()) {
		return ret(ERR_INVALID_PARAM, 0)
	}

	switch s.Harts.Hart(hart.ID(id)).State() {
	case hart.InSupervisor:
		return ret(SUCCESS, HSM_STARTED)
	case hart.Stopped:
		return ret(SUCCESS, HSM_STOPPED)
	default:
		return ret(SUCCESS, HSM_START_PENDING)
	}
}

func (s *Handler) srst(h *hart.Hart, fid uint64) result {
	if fid != SRST_SYSTEM_RESET {
		return ret(ERR_NOT_SUPPORTED, 0)
	}

	t := platform.ResetType(h.Context.A0())
	r := platform.ResetReason(h.Context.A1())

	if h.Context.A0() > uint64(platform.WarmReboot) || h.Context.A1() > uint64(platform.SystemFailure) {
		return ret(ERR_INVALID_PARAM, 0)
	}

	return s.reset(t, r)
}
