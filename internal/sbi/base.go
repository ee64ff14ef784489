// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sbi

import (
	"github.com/usbarmory/GoSBI-nezha/internal/csr"
	"github.com/usbarmory/GoSBI-nezha/internal/hart"
)

// Base extension functions
const (
	BASE_GET_SPEC_VERSION = 0
	BASE_GET_IMPL_ID      = 1
	BASE_GET_IMPL_VERSION = 2
	BASE_PROBE_EXTENSION  = 3
	BASE_GET_MVENDORID    = 4
	BASE_GET_MARCHID      = 5
	BASE_GET_MIMPID       = 6
)

func (s *Handler) base(h *hart.Hart, fid uint64) result {
	switch fid {
	case BASE_GET_SPEC_VERSION:
		return ret(SUCCESS, SpecVersion)
	case BASE_GET_IMPL_ID:
		return ret(SUCCESS, s.ImplID)
	case BASE_GET_IMPL_VERSION:
		return ret(SUCCESS, s.ImplVersion)
	case BASE_PROBE_EXTENSION:
		if s.Supported(h.Context.A0()) {
			return ret(SUCCESS, 1)
		}

		return ret(SUCCESS, 0)
	case BASE_GET_MVENDORID:
		return ret(SUCCESS, h.CSR.Read(csr.MVENDORID))
	case BASE_GET_MARCHID:
		return ret(SUCCESS, h.CSR.Read(csr.MARCHID))
	case BASE_GET_MIMPID:
		return ret(SUCCESS, h.CSR.Read(csr.MIMPID))
	default:
		return ret(ERR_NOT_SUPPORTED, 0)
	}
}
