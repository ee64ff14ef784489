// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && riscv64

package main

import (
	"log"
	"os"
	"runtime"
	_ "unsafe"

	"github.com/usbarmory/tamago/riscv64"

	"github.com/usbarmory/GoSBI-nezha/internal/sbi"
	"github.com/usbarmory/GoSBI-nezha/mem"
)

// C906 timer frequency (24MHz oscillator)
const timerFreq = 24000000

// TestAccess enables the memory protection test, it is set at link time
// (e.g. -ldflags "-X main.TestAccess=1").
var TestAccess string

//go:linkname ramStart runtime.ramStart
var ramStart uint64 = mem.SupervisorEntry

//go:linkname ramSize runtime.ramSize
var ramSize uint64 = mem.SupervisorStart + mem.SupervisorSize - mem.SupervisorEntry

var RV64 = &riscv64.CPU{}

//go:linkname hwinit runtime.hwinit
func hwinit() {
	RV64.InitSupervisor()
}

//go:linkname printk runtime.printk
func printk(c byte) {
	putchar(c)
}

// the time CSR read traps on the C906 and is emulated by the firmware
//
//go:linkname nanotime1 runtime.nanotime1
func nanotime1() int64 {
	return int64(rdtime() * 1000 / (timerFreq / 1000000))
}

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stdout)
}

func probe() {
	version, err := call(sbi.EXT_BASE, sbi.BASE_GET_SPEC_VERSION, 0, 0)

	if err != nil {
		log.Printf("supervisor could not probe SBI, %v", err)
		return
	}

	impl, _ := call(sbi.EXT_BASE, sbi.BASE_GET_IMPL_ID, 0, 0)
	log.Printf("supervisor found SBI v%d.%d impl:%#x", version>>24, version&0xffffff, impl)

	for _, ext := range []uint64{sbi.EXT_TIME, sbi.EXT_IPI, sbi.EXT_HSM, sbi.EXT_SRST} {
		available, _ := call(sbi.EXT_BASE, sbi.BASE_PROBE_EXTENSION, ext, 0)
		log.Printf("supervisor SBI extension %#x available:%v", ext, available != 0)
	}

	status, err := call(sbi.EXT_HSM, sbi.HSM_HART_GET_STATUS, mem.PrimaryHart, 0)
	log.Printf("supervisor hart %d status:%d err:%v", mem.PrimaryHart, status, err)
}

func main() {
	log.Printf("%s/%s (%s) • supervisor", runtime.GOOS, runtime.GOARCH, runtime.Version())

	probe()

	start := rdtime()
	end := rdtime()

	log.Printf("supervisor timer start:%d end:%d", start, end)

	if len(TestAccess) > 0 {
		mem.TestAccess("supervisor")
	}

	log.Printf("supervisor is about to request shutdown")
	shutdown()

	// this should be unreachable
	log.Printf("supervisor says goodbye")
}
