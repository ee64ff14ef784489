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

// transfer synthesizes a supervisor trap as if the hardware had delegated
// it: cause, value and PC are reported through the supervisor trap CSRs,
// sstatus is updated as on trap entry and execution resumes at the
// supervisor trap vector.
func (d *Dispatcher) transfer(h *hart.Hart, r *Record) Action {
	c := h.CSR

	vector := c.Read(csr.STVEC) &^ csr.STVEC_MODE

	if vector == 0 {
		return d.fail(h, r, "supervisor trap vector not set")
	}

	c.Write(csr.SEPC, r.PC)
	c.Write(csr.SCAUSE, uint64(r.Cause))
	c.Write(csr.STVAL, r.Value)

	// sstatus is a restricted view of mstatus
	status := c.Read(csr.MSTATUS)
	status &^= csr.MSTATUS_SPP | csr.MSTATUS_SPIE

	if r.Origin == csr.Supervisor {
		status |= csr.MSTATUS_SPP
	}

	if status&csr.MSTATUS_SIE != 0 {
		status |= csr.MSTATUS_SPIE
	}

	status &^= csr.MSTATUS_SIE
	status = csr.WithPreviousPrivilege(status, csr.Supervisor)

	c.Write(csr.MSTATUS, status)

	r.Context.Status = status
	r.Context.PC = vector

	return Redirect
}

// redelegate presents a page fault the delegation hardware cannot route to
// supervisor mode, the faulting virtual address is passed through unchanged.
func (d *Dispatcher) redelegate(h *hart.Hart, r *Record) Action {
	return d.transfer(h, r)
}
