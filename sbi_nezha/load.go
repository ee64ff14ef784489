// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && riscv64

package main

import (
	_ "embed"
	"fmt"
	"log"

	"github.com/usbarmory/tamago/dma"

	"github.com/usbarmory/armory-boot/exec"

	"github.com/usbarmory/GoSBI-nezha/mem"
	"github.com/usbarmory/GoSBI-nezha/util"
)

// This firmware embeds the supervisor ELF binary and its device tree within
// the firmware executable, using Go embed package.

//go:embed assets/test_kernel.elf
var osELF []byte

//go:embed assets/sunxi.dtb
var dtb []byte

var (
	// SupervisorRegion is the memory handed over to supervisor mode.
	SupervisorRegion *dma.Region
	// HeapRegion backs the firmware dynamic memory arena.
	HeapRegion *dma.Region
)

func initRegions() {
	SupervisorRegion, _ = dma.NewRegion(mem.SupervisorStart, mem.SupervisorSize, false)
	SupervisorRegion.Reserve(mem.SupervisorSize, 0)

	HeapRegion, _ = dma.NewRegion(mem.HeapStart, mem.HeapSize, false)
}

// loadDeviceTree stages the hardware description in the firmware arena and
// places it at its fixed address.
func loadDeviceTree() error {
	err := fw.LoadDeviceTree(fw.Config.Primary, dtb, mem.DeviceTreeSize, func(buf []byte) {
		SupervisorRegion.Write(mem.SupervisorStart, mem.DeviceTreeStart-mem.SupervisorStart, buf)
		log.Printf("SBI loaded device tree addr:%#x size:%d", mem.DeviceTreeStart, len(buf))
	})

	if err != nil {
		return fmt.Errorf("device tree, %v", err)
	}

	return nil
}

// loadSupervisor loads a TamaGo unikernel as supervisor.
func loadSupervisor() (err error) {
	image := &exec.ELFImage{
		Region: SupervisorRegion,
		ELF:    osELF,
	}

	if err = image.Load(); err != nil {
		return
	}

	if entry := image.Entry(); entry != mem.SupervisorEntry {
		return fmt.Errorf("supervisor entry %#x, expected %#x", entry, mem.SupervisorEntry)
	}

	log.Printf("SBI loaded supervisor addr:%#x size:%d entry:%#x", mem.SupervisorStart, len(osELF), image.Entry())

	return
}

// symbolize resolves a supervisor address against its embedded executable.
func symbolize(pc uint64) (string, error) {
	return util.PCToLine(osELF, pc)
}
