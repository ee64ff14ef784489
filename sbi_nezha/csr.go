// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && riscv64

package main

import (
	"fmt"

	"github.com/usbarmory/GoSBI-nezha/internal/csr"
	"github.com/usbarmory/GoSBI-nezha/internal/hart"
)

// defined in csr.s
func read_sstatus() uint64
func write_sstatus(val uint64)
func read_sie() uint64
func write_sie(val uint64)
func read_stvec() uint64
func write_stvec(val uint64)
func read_sepc() uint64
func write_sepc(val uint64)
func read_scause() uint64
func write_scause(val uint64)
func read_stval() uint64
func write_stval(val uint64)
func read_sip() uint64
func write_sip(val uint64)
func read_mstatus() uint64
func write_mstatus(val uint64)
func set_mstatus(mask uint64)
func clear_mstatus(mask uint64)
func read_misa() uint64
func read_medeleg() uint64
func write_medeleg(val uint64)
func read_mideleg() uint64
func write_mideleg(val uint64)
func read_mie() uint64
func write_mie(val uint64)
func set_mie(mask uint64)
func clear_mie(mask uint64)
func read_mtvec() uint64
func write_mtvec(val uint64)
func read_mscratch() uint64
func write_mscratch(val uint64)
func read_mepc() uint64
func write_mepc(val uint64)
func read_mcause() uint64
func write_mcause(val uint64)
func read_mtval() uint64
func write_mtval(val uint64)
func read_mip() uint64
func write_mip(val uint64)
func set_mip(mask uint64)
func clear_mip(mask uint64)
func read_pmpcfg0() uint64
func write_pmpcfg0(val uint64)
func read_pmpcfg2() uint64
func write_pmpcfg2(val uint64)
func read_pmpaddr0() uint64
func write_pmpaddr0(val uint64)
func read_mvendorid() uint64
func read_marchid() uint64
func read_mimpid() uint64
func read_mhartid() uint64
func read_time() uint64
func read_mapbaddr() uint64
func fetch(pc uint64) uint32

var readers = map[csr.Number]func() uint64{
	csr.SSTATUS:   read_sstatus,
	csr.SIE:       read_sie,
	csr.STVEC:     read_stvec,
	csr.SEPC:      read_sepc,
	csr.SCAUSE:    read_scause,
	csr.STVAL:     read_stval,
	csr.SIP:       read_sip,
	csr.MSTATUS:   read_mstatus,
	csr.MISA:      read_misa,
	csr.MEDELEG:   read_medeleg,
	csr.MIDELEG:   read_mideleg,
	csr.MIE:       read_mie,
	csr.MTVEC:     read_mtvec,
	csr.MSCRATCH:  read_mscratch,
	csr.MEPC:      read_mepc,
	csr.MCAUSE:    read_mcause,
	csr.MTVAL:     read_mtval,
	csr.MIP:       read_mip,
	csr.PMPCFG0:   read_pmpcfg0,
	csr.PMPCFG2:   read_pmpcfg2,
	csr.PMPADDR0:  read_pmpaddr0,
	csr.MVENDORID: read_mvendorid,
	csr.MARCHID:   read_marchid,
	csr.MIMPID:    read_mimpid,
	csr.MHARTID:   read_mhartid,
	csr.TIME:      read_time,
	csr.MAPBADDR:  read_mapbaddr,
}

var writers = map[csr.Number]func(uint64){
	csr.SSTATUS:  write_sstatus,
	csr.SIE:      write_sie,
	csr.STVEC:    write_stvec,
	csr.SEPC:     write_sepc,
	csr.SCAUSE:   write_scause,
	csr.STVAL:    write_stval,
	csr.SIP:      write_sip,
	csr.MSTATUS:  write_mstatus,
	csr.MEDELEG:  write_medeleg,
	csr.MIDELEG:  write_mideleg,
	csr.MIE:      write_mie,
	csr.MTVEC:    write_mtvec,
	csr.MSCRATCH: write_mscratch,
	csr.MEPC:     write_mepc,
	csr.MCAUSE:   write_mcause,
	csr.MTVAL:    write_mtval,
	csr.MIP:      write_mip,
	csr.PMPCFG0:  write_pmpcfg0,
	csr.PMPCFG2:  write_pmpcfg2,
	csr.PMPADDR0: write_pmpaddr0,
}

// CSR implements csr.Backend on the executing hart.
type CSR struct{}

func (CSR) Read(n csr.Number) uint64 {
	if read, ok := readers[n]; ok {
		return read()
	}

	panic(fmt.Sprintf("unsupported CSR %#x", n))
}

func (CSR) Write(n csr.Number, val uint64) {
	if write, ok := writers[n]; ok {
		write(val)
		return
	}

	panic(fmt.Sprintf("read-only CSR %#x", n))
}

// Set uses csrs on registers also updated by hardware, the others are only
// modified by firmware.
func (c CSR) Set(n csr.Number, mask uint64) {
	switch n {
	case csr.MSTATUS:
		set_mstatus(mask)
	case csr.MIE:
		set_mie(mask)
	case csr.MIP:
		set_mip(mask)
	default:
		c.Write(n, c.Read(n)|mask)
	}
}

func (c CSR) Clear(n csr.Number, mask uint64) {
	switch n {
	case csr.MSTATUS:
		clear_mstatus(mask)
	case csr.MIE:
		clear_mie(mask)
	case csr.MIP:
		clear_mip(mask)
	default:
		c.Write(n, c.Read(n)&^mask)
	}
}

// Timer implements trap.Timer.
type Timer struct{}

func (Timer) Time() uint64 {
	return read_time()
}

// fetchInstruction reads the 32-bit instruction at a supervisor virtual
// address, with the translation and protection of the trapping mode.
func fetchInstruction(_ *hart.Hart, pc uint64) uint32 {
	return fetch(pc)
}
