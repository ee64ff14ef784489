// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && riscv64

package main

import (
	"fmt"
	"log"

	"github.com/usbarmory/tamago/dma"

	"github.com/usbarmory/GoTEE/monitor"

	"github.com/usbarmory/GoSBI-nezha/internal/exec"
	"github.com/usbarmory/GoSBI-nezha/internal/hart"
	"github.com/usbarmory/GoSBI-nezha/internal/pmp"
	"github.com/usbarmory/GoSBI-nezha/mem"
)

// Bootstrap implements exec.Bootstrap on top of a GoTEE execution context,
// which performs the actual register save/restore and mret.
type Bootstrap struct {
	// Region is the supervisor memory.
	Region *dma.Region
	// PMP reprograms memory protection before every return to supervisor.
	PMP pmp.Writer
}

func registers(ctx *monitor.ExecCtx) []*uint64 {
	return []*uint64{
		nil, &ctx.X1, &ctx.X2, &ctx.X3, &ctx.X4, &ctx.X5, &ctx.X6, &ctx.X7,
		&ctx.X8, &ctx.X9, &ctx.X10, &ctx.X11, &ctx.X12, &ctx.X13, &ctx.X14, &ctx.X15,
		&ctx.X16, &ctx.X17, &ctx.X18, &ctx.X19, &ctx.X20, &ctx.X21, &ctx.X22, &ctx.X23,
		&ctx.X24, &ctx.X25, &ctx.X26, &ctx.X27, &ctx.X28, &ctx.X29, &ctx.X30, &ctx.X31,
	}
}

// restore loads the saved hart context into the execution context.
func restore(ctx *monitor.ExecCtx, hc *hart.Context) {
	for i, reg := range registers(ctx) {
		if reg != nil {
			*reg = hc.X[i]
		}
	}

	ctx.PC = hc.PC
}

// save stores the execution context registers into the hart context.
func save(ctx *monitor.ExecCtx, hc *hart.Context) {
	for i, reg := range registers(ctx) {
		if reg != nil {
			hc.SetReg(i, *reg)
		}
	}

	hc.PC = ctx.PC
}

// Run implements exec.Bootstrap.
func (b *Bootstrap) Run(hc *hart.Context, h exec.Handler) (err error) {
	ctx, err := monitor.Load(uint(hc.PC), b.Region, false)

	if err != nil {
		return fmt.Errorf("SBI could not load supervisor context, %v", err)
	}

	restore(ctx, hc)

	ctx.PMP = func(_ *monitor.ExecCtx, _ int) error {
		return pmp.Configure(b.PMP, mem.Regions, mem.PMPEntries)
	}

	// every trap taken from supervisor mode ends here
	ctx.Handler = func(ctx *monitor.ExecCtx) (err error) {
		save(ctx, hc)

		if err = h.Trap(); err != nil {
			return
		}

		restore(ctx, hc)

		return
	}

	h.Entered()

	err = ctx.Run()

	log.Printf("SBI supervisor stopped sp:%#.8x ra:%#.8x pc:%#.8x err:%v", ctx.X2, ctx.X1, ctx.PC, err)

	return
}
