// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package platform

// PLIC_CTRL is the T-Head PLIC control register offset, setting bit 0 grants
// supervisor mode access to the PLIC registers.
const PLIC_CTRL = 0x001ffffc

// EnablePLIC grants supervisor mode access to the PLIC at base.
func EnablePLIC(r Registers, base uint64) {
	r.Write32(base+PLIC_CTRL, 1)
}
