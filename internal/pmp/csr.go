// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package pmp

import (
	"fmt"

	"github.com/usbarmory/GoSBI-nezha/internal/csr"
)

const (
	cfgR = 1 << 0
	cfgW = 1 << 1
	cfgX = 1 << 2
	cfgA = 3
	cfgL = 1 << 7

	cfgAShift = 3

	// RV64 packs 8 entries per pmpcfg register, only even registers exist
	entriesPerCfg = 8
	maxEntries    = 16
)

// CSRWriter programs PMP entries through raw pmpcfg/pmpaddr accesses on an
// RV64 hart.
type CSRWriter struct {
	CSR csr.Backend
}

func (c *CSRWriter) locate(i int) (cfg csr.Number, shift uint, err error) {
	if i < 0 || i >= maxEntries {
		return 0, 0, fmt.Errorf("invalid PMP index %d", i)
	}

	cfg = csr.PMPCFG0 + csr.Number(i/entriesPerCfg)*2
	shift = uint(i%entriesPerCfg) * 8

	return
}

// WritePMP programs PMP entry i, writes to locked entries are ignored as on
// hardware.
func (c *CSRWriter) WritePMP(i int, addr uint64, r bool, w bool, x bool, a int, l bool) (err error) {
	cfg, shift, err := c.locate(i)

	if err != nil {
		return
	}

	val := c.CSR.Read(cfg)

	if (val>>shift)&cfgL != 0 {
		return
	}

	var b uint64

	if r {
		b |= cfgR
	}

	if w {
		b |= cfgW
	}

	if x {
		b |= cfgX
	}

	if l {
		b |= cfgL
	}

	b |= uint64(a&cfgA) << cfgAShift

	c.CSR.Write(csr.PMPADDR0+csr.Number(i), addr>>2)
	c.CSR.Write(cfg, (val&^(0xff<<shift))|(b<<shift))

	return
}

// ReadPMP returns PMP entry i.
func (c *CSRWriter) ReadPMP(i int) (addr uint64, r bool, w bool, x bool, a int, l bool, err error) {
	cfg, shift, err := c.locate(i)

	if err != nil {
		return
	}

	b := (c.CSR.Read(cfg) >> shift) & 0xff

	addr = c.CSR.Read(csr.PMPADDR0+csr.Number(i)) << 2
	r = b&cfgR != 0
	w = b&cfgW != 0
	x = b&cfgX != 0
	a = int((b >> cfgAShift) & cfgA)
	l = b&cfgL != 0

	return
}
