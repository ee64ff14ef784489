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

	"golang.org/x/term"

	"github.com/usbarmory/GoSBI-nezha/internal/boot"
	"github.com/usbarmory/GoSBI-nezha/internal/csr"
	"github.com/usbarmory/GoSBI-nezha/internal/deleg"
	"github.com/usbarmory/GoSBI-nezha/internal/exec"
	"github.com/usbarmory/GoSBI-nezha/internal/firmware"
	"github.com/usbarmory/GoSBI-nezha/internal/hart"
	"github.com/usbarmory/GoSBI-nezha/internal/platform"
	"github.com/usbarmory/GoSBI-nezha/internal/pmp"
	"github.com/usbarmory/GoSBI-nezha/mem"
	"github.com/usbarmory/GoSBI-nezha/util"
)

// D1 core local interruptor
const CLINT_BASE = 0x14000000

// Debug enables per-trap logging, it is set at link time (e.g.
// -ldflags "-X main.Debug=1").
var Debug string

var fw *firmware.Firmware

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stdout)

	initRegions()
}

func config() firmware.Config {
	return firmware.Config{
		Stack: boot.Layout{
			Base:      mem.StackStart,
			StackSize: mem.PerHartStackSize,
			Reserved:  mem.StackReserved,
			Harts:     mem.Harts,
		},
		Primary:         mem.PrimaryHart,
		Regions:         mem.Regions,
		PMPEntries:      mem.PMPEntries,
		Policy:          deleg.Default,
		SupervisorEntry: mem.SupervisorEntry,
		DeviceTree:      mem.DeviceTreeStart,
		XLEN:            64,
		Debug:           len(Debug) > 0,
	}
}

func bootstrap(_ *hart.Hart) exec.Bootstrap {
	return &Bootstrap{
		Region: SupervisorRegion,
		PMP:    RV64,
	}
}

func devices() firmware.Devices {
	console := &util.Console{
		Serial: UART0,
		Term:   term.NewTerminal(UART0, ""),
	}

	return firmware.Devices{
		CSR:       func(_ hart.ID) csr.Backend { return CSR{} },
		PMP:       func(_ *hart.Hart) pmp.Writer { return RV64 },
		Bootstrap: bootstrap,
		Fetch:     fetchInstruction,
		Registers: mmio{},
		CLINT:     &platform.CLINT{Base: CLINT_BASE, Registers: mmio{}},
		Timer:     Timer{},
		Reset:     &Reset{Registers: mmio{}},
		Console:   console,
		Heap:      HeapRegion,
		Steps: []boot.Step{
			{Name: "fdt", Fn: loadDeviceTree},
			{Name: "payload", Fn: loadSupervisor},
		},
		Halt:      halt,
		Symbolize: symbolize,
	}
}

func main() {
	log.Printf("%s/%s (%s) • SBI firmware (M-mode)", runtime.GOOS, runtime.GOARCH, runtime.Version())

	var err error

	if fw, err = firmware.New(config(), devices()); err != nil {
		log.Fatalf("SBI could not initialize, %v", err)
	}

	id := hart.ID(read_mhartid())

	if err = fw.Start(id); err != nil {
		log.Printf("SBI hart %d error, %v", id, err)
	}

	if c, ok := fw.Devices.Console.(*util.Console); ok {
		c.Flush()
	}

	log.Printf("SBI says goodbye")
	halt()
}
