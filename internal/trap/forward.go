// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package trap

import (
	"github.com/usbarmory/GoSBI-nezha/internal/csr"
	"github.com/usbarmory/GoSBI-nezha/internal/hart"
)

// forward relays a machine interrupt to supervisor mode by clearing its
// source and raising the matching supervisor pending bit, the interrupted
// context is resumed untouched.
func (d *Dispatcher) forward(h *hart.Hart, r *Record) Action {
	switch r.Cause {
	case MachineSoftInterrupt:
		d.Interrupts.ClearSoft(h.ID)
		h.CSR.Set(csr.MIP, csr.IP_SSIP)
	case MachineTimerInterrupt:
		d.Interrupts.ClearTimer(h.ID)
		h.CSR.Clear(csr.MIE, csr.MIE_MTIE)
		h.CSR.Set(csr.MIP, csr.IP_STIP)
	}

	return Resume
}
