// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sbi

import (
	"github.com/usbarmory/GoSBI-nezha/internal/csr"
	"github.com/usbarmory/GoSBI-nezha/internal/hart"
	"github.com/usbarmory/GoSBI-nezha/internal/platform"
	"github.com/usbarmory/GoSBI-nezha/internal/trap"
)

// legacy serves SBI v0.1 calls, where the extension ID selects the function.
func (s *Handler) legacy(h *hart.Hart, ext uint64) result {
	ctx := &h.Context

	switch ext {
	case EXT_SET_TIMER:
		s.setTimer(h, ctx.A0())
	case EXT_CONSOLE_PUTCHAR:
		if s.Console != nil {
			s.Console.Putchar(byte(ctx.A0()))
		}
	case EXT_CONSOLE_GETCHAR:
		if s.Console != nil {
			if c, ok := s.Console.Getchar(); ok {
				return ret(int64(c), 0)
			}
		}

		return ret(-1, 0)
	case EXT_CLEAR_IPI:
		h.CSR.Clear(csr.MIP, csr.IP_SSIP)
	case EXT_SHUTDOWN:
		return s.reset(platform.Shutdown, platform.NoReason)
	default:
		return ret(ERR_NOT_SUPPORTED, 0)
	}

	return ret(SUCCESS, 0)
}

// setTimer programs the next supervisor timer event, the machine timer
// interrupt is forwarded as STIP once it fires.
func (s *Handler) setTimer(h *hart.Hart, t uint64) {
	s.Interrupts.SetTimer(h.ID, t)
	h.CSR.Clear(csr.MIP, csr.IP_STIP)
	h.CSR.Set(csr.MIE, csr.MIE_MTIE)
}

func (s *Handler) reset(t platform.ResetType, r platform.ResetReason) result {
	if s.Reset == nil {
		return ret(ERR_NOT_SUPPORTED, 0)
	}

	if err := s.Reset.SystemReset(t, r); err != nil {
		return ret(ERR_FAILED, 0)
	}

	return result{action: trap.Halt}
}
