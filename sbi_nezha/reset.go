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

	"github.com/usbarmory/GoSBI-nezha/internal/platform"
)

// D1 watchdog
const (
	WDOG_BASE     = 0x02050000
	WDOG_SOFT_RST = 0xa8

	WDOG_KEY    = 0x16aa << 16
	SOFT_RST_EN = 1
)

// defined in csr.s
func wfi()

// Reset implements platform.Reset. The D1 cannot remove its own power, a
// shutdown parks the calling hart.
type Reset struct {
	Registers platform.Registers
}

func (r *Reset) SystemReset(t platform.ResetType, reason platform.ResetReason) error {
	log.Printf("SBI system %v (%v)", t, reason)

	switch t {
	case platform.Shutdown:
		halt()
	case platform.ColdReboot, platform.WarmReboot:
		r.Registers.Write32(WDOG_BASE+WDOG_SOFT_RST, WDOG_KEY|SOFT_RST_EN)
		halt()
	}

	return fmt.Errorf("unsupported %v", t)
}

func halt() {
	for {
		wfi()
	}
}
