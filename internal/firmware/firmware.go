// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package firmware composes the SBI firmware components and runs the
// per-hart bring-up pipeline: boot sequencing, memory protection, trap
// delegation and supervisor entry.
package firmware

import (
	"errors"
	"fmt"
	"log"

	"github.com/usbarmory/GoSBI-nezha/internal/boot"
	"github.com/usbarmory/GoSBI-nezha/internal/csr"
	"github.com/usbarmory/GoSBI-nezha/internal/deleg"
	"github.com/usbarmory/GoSBI-nezha/internal/exec"
	"github.com/usbarmory/GoSBI-nezha/internal/fatal"
	"github.com/usbarmory/GoSBI-nezha/internal/hart"
	"github.com/usbarmory/GoSBI-nezha/internal/heap"
	"github.com/usbarmory/GoSBI-nezha/internal/platform"
	"github.com/usbarmory/GoSBI-nezha/internal/pmp"
	"github.com/usbarmory/GoSBI-nezha/internal/sbi"
	"github.com/usbarmory/GoSBI-nezha/internal/trap"
)

// SBI implementation identification
const (
	ImplID      = 0x476f // "Go"
	ImplVersion = 0x000100
)

// Config represents the build configuration of the firmware.
type Config struct {
	// Stack is the per-hart stack layout, it also sets the hart count.
	Stack boot.Layout
	// Primary is the hart performing global initialization.
	Primary hart.ID
	// Regions is the static PMP region table.
	Regions []pmp.Region
	// PMPEntries is the number of PMP entries implemented by each hart.
	PMPEntries int
	// Policy is the trap delegation policy.
	Policy deleg.Policy
	// SupervisorEntry is the supervisor entry point.
	SupervisorEntry uint64
	// DeviceTree is the hardware description address passed in a1.
	DeviceTree uint64
	// XLEN is the supervisor register width.
	XLEN int
	// Debug enables per-trap and PMP logging.
	Debug bool
}

// Check verifies the configuration invariants.
func (c *Config) Check() (err error) {
	if err = c.Stack.Check(); err != nil {
		return
	}

	if int(c.Primary) >= c.Stack.Harts {
		return fmt.Errorf("primary hart %d out of range", c.Primary)
	}

	if err = pmp.Validate(c.Regions); err != nil {
		return
	}

	return c.Policy.Check()
}

// Devices represents the platform collaborators.
type Devices struct {
	// CSR returns the register file of a hart.
	CSR func(id hart.ID) csr.Backend
	// PMP returns the PMP programming primitive of a hart.
	PMP func(h *hart.Hart) pmp.Writer
	// Bootstrap returns the mode switch implementation of a hart.
	Bootstrap func(h *hart.Hart) exec.Bootstrap
	// Fetch, if not nil, reads supervisor instructions.
	Fetch func(h *hart.Hart, pc uint64) uint32

	// Registers is the device register access primitive.
	Registers platform.Registers
	// CLINT is the core local interruptor.
	CLINT *platform.CLINT
	// Timer is the machine mode timer.
	Timer trap.Timer
	// Reset is the platform reset controller.
	Reset platform.Reset
	// Console is the supervisor console.
	Console sbi.Console
	// Heap, if not nil, backs the dynamic memory arena.
	Heap heap.Allocator

	// Steps are platform specific global initialization steps, executed
	// after the arena and interrupt controller initialization.
	Steps []boot.Step
	// Halt parks a hart after a failed reset request.
	Halt func()
	// Symbolize, if not nil, resolves supervisor addresses on fatal
	// errors.
	Symbolize func(pc uint64) (string, error)
}

// Firmware represents the SBI firmware instance shared by all harts.
type Firmware struct {
	Config  Config
	Devices Devices

	Harts      *hart.Table
	Sequencer  *boot.Sequencer
	Dispatcher *trap.Dispatcher
	SBI        *sbi.Handler
	Fatal      *fatal.Handler
	Arena      *heap.Arena
}

// New validates the configuration and builds the firmware instance.
func New(cfg Config, dev Devices) (fw *Firmware, err error) {
	if err = cfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid configuration, %v", err)
	}

	if dev.CSR == nil || dev.PMP == nil || dev.Bootstrap == nil {
		return nil, errors.New("missing hart backend")
	}

	fw = &Firmware{
		Config:  cfg,
		Devices: dev,
		Harts:   hart.NewTable(cfg.Stack.Harts, dev.CSR),
		Fatal: &fatal.Handler{
			Reset:     dev.Reset,
			Halt:      dev.Halt,
			Symbolize: dev.Symbolize,
		},
	}

	fw.Arena = &heap.Arena{
		Exhausted: fw.Fatal.Fatal,
	}

	fw.SBI = &sbi.Handler{
		Harts:       fw.Harts,
		Interrupts:  dev.CLINT,
		Console:     dev.Console,
		Reset:       dev.Reset,
		ImplID:      ImplID,
		ImplVersion: ImplVersion,
		Debug:       cfg.Debug,
	}

	fw.Dispatcher = &trap.Dispatcher{
		Timer:      dev.Timer,
		Interrupts: dev.CLINT,
		Calls:      fw.SBI,
		Fatal:      fw.Fatal,
		XLEN:       cfg.XLEN,
	}

	fw.Sequencer = &boot.Sequencer{
		Layout:  cfg.Stack,
		Primary: cfg.Primary,
		Steps:   append(fw.globalSteps(), dev.Steps...),
	}

	return
}

func (fw *Firmware) globalSteps() []boot.Step {
	return []boot.Step{
		{
			Name: "heap",
			Fn: func() error {
				if fw.Devices.Heap != nil {
					fw.Arena.Init(fw.Devices.Heap)
				}

				return nil
			},
		},
		{
			Name: "plic",
			Fn: func() error {
				base := fw.Harts.Hart(fw.Config.Primary).CSR.Read(csr.MAPBADDR)

				if base == 0 {
					return errors.New("PLIC base address unavailable")
				}

				platform.EnablePLIC(fw.Devices.Registers, base)

				return nil
			},
		},
	}
}

// Start brings up hart id and enters supervisor mode, it returns only once
// the hart stops.
func (fw *Firmware) Start(id hart.ID) (err error) {
	h := fw.Harts.Hart(id)

	if h == nil {
		return fmt.Errorf("invalid hart %d", id)
	}

	if err = fw.Sequencer.Boot(id); err != nil {
		fw.Fatal.Fatal(id, fmt.Errorf("boot, %v", err))
		return
	}

	sp := fw.Config.Stack.Assign(h.CSR, id)

	if err = pmp.Configure(fw.Devices.PMP(h), fw.Config.Regions, fw.Config.PMPEntries); err != nil {
		fw.Fatal.Fatal(id, fmt.Errorf("PMP, %v", err))
		return
	}

	fw.Config.Policy.Configure(h.CSR)

	if id == fw.Config.Primary && fw.Config.Debug {
		if r, ok := fw.Devices.PMP(h).(pmp.Reader); ok {
			pmp.Dump(r, fw.Config.PMPEntries)
		}
	}

	log.Printf("SBI hart %d sp:%#x medeleg:%#x mideleg:%#x mie:%#x", id, sp,
		h.CSR.Read(csr.MEDELEG), h.CSR.Read(csr.MIDELEG), h.CSR.Read(csr.MIE))

	e := &exec.Executor{
		Hart:       h,
		Bootstrap:  fw.Devices.Bootstrap(h),
		Dispatcher: fw.Dispatcher,
		Fetch:      fw.Devices.Fetch,
		Debug:      fw.Config.Debug,
	}

	err = e.Enter(fw.Config.SupervisorEntry, fw.Config.DeviceTree)

	log.Printf("SBI hart %d stopped err:%v", id, err)

	return
}
