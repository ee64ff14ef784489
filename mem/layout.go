// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package mem defines the Allwinner D1 (Nezha) physical memory map used by
// the firmware and its supervisor payload.
package mem

import (
	"github.com/usbarmory/GoSBI-nezha/internal/pmp"
)

// This layout reserves the top 32MB of the 1GB DRAM for the firmware, the
// rest is handed to the supervisor.
const (
	// Device registers
	MMIOStart = 0x00000000
	MMIOSize  = 0x40000000

	// DRAM
	DRAMStart = 0x40000000
	DRAMSize  = 0x40000000 // 1GB

	// Supervisor
	SupervisorStart = DRAMStart
	SupervisorSize  = 0x3e000000 // 992MB

	// Supervisor entry point and hardware description, both fixed
	SupervisorEntry = 0x40200000
	DeviceTreeStart = 0x40100000
	DeviceTreeSize  = 0x00100000 // 1MB

	// Firmware (M-mode only)
	FirmwareStart = SupervisorStart + SupervisorSize
	FirmwareSize  = 0x02000000 // 32MB

	// Unpopulated address space, locked down
	GapStart = DRAMStart + DRAMSize
	GapSize  = 0x40000000

	// PhysicalStart and PhysicalEnd delimit the address space reachable
	// from supervisor mode through PMP regions.
	PhysicalStart = MMIOStart
	PhysicalEnd   = GapStart + GapSize
)

// Firmware region breakdown
const (
	// Go runtime
	RuntimeStart = FirmwareStart
	RuntimeSize  = 0x01b00000 // 27MB

	// Per-hart trap stacks, the top of each is published in mscratch
	StackStart       = RuntimeStart + RuntimeSize
	StackReserved    = 0x00100000 // 1MB
	PerHartStackSize = 0x2000     // 8KB

	// Dynamic memory arena
	HeapStart = StackStart + StackReserved
	HeapSize  = 0x00400000 // 4MB
)

// Harts is the number of harts brought up by the firmware (the T-Head C906
// is single core).
const Harts = 1

// PrimaryHart is the hart performing global initialization.
const PrimaryHart = 0

// PMPEntries is the number of PMP entries implemented by the C906.
const PMPEntries = 8

// hart stacks must fit their reservation
const _ uint = StackReserved - Harts*PerHartStackSize

// firmware breakdown must fill the firmware region
const _ uint = FirmwareSize - (RuntimeSize + StackReserved + HeapSize)
const _ uint = (RuntimeSize + StackReserved + HeapSize) - FirmwareSize

// Regions is the static PMP region table, programmed on every hart before
// entering supervisor mode.
var Regions = []pmp.Region{
	{
		Name: "mmio",
		Base: MMIOStart,
		Size: MMIOSize,
		Perm: pmp.RW,
	},
	{
		Name: "supervisor",
		Base: SupervisorStart,
		Size: SupervisorSize,
		Perm: pmp.RWX,
	},
	{
		Name: "firmware",
		Base: FirmwareStart,
		Size: FirmwareSize,
		Perm: pmp.None,
	},
	{
		Name:   "gap",
		Base:   GapStart,
		Size:   GapSize,
		Perm:   pmp.None,
		Locked: true,
	},
}
