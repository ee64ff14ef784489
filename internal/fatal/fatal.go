// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package fatal implements the last resort failure path: report, request a
// system shutdown and never return.
package fatal

import (
	"errors"
	"log"
	"sync/atomic"

	"github.com/usbarmory/GoSBI-nezha/internal/hart"
	"github.com/usbarmory/GoSBI-nezha/internal/platform"
	"github.com/usbarmory/GoSBI-nezha/internal/trap"
)

// Handler represents the fatal failure handler, shared by all harts.
type Handler struct {
	// Reset is the platform reset controller.
	Reset platform.Reset
	// Halt parks the hart when the reset request returns, it defaults to
	// a tight loop.
	Halt func()
	// Symbolize, if not nil, resolves the supervisor program counter of
	// unhandled traps to a source line.
	Symbolize func(pc uint64) (string, error)

	count atomic.Uint32
}

// Fatal reports a failure on hart id and requests a system shutdown, it
// never returns.
func (h *Handler) Fatal(id hart.ID, err error) {
	h.count.Add(1)

	log.Printf("SBI hart %d fatal error: %v", id, err)

	var unhandled *trap.UnhandledError

	if errors.As(err, &unhandled) && h.Symbolize != nil {
		if line, err := h.Symbolize(unhandled.Record.PC); err == nil {
			log.Printf("SBI hart %d trapped at %s", id, line)
		}
	}

	log.Printf("SBI system shutdown scheduled due to firmware failure")

	if h.Reset != nil {
		if err := h.Reset.SystemReset(platform.Shutdown, platform.SystemFailure); err != nil {
			log.Printf("SBI hart %d could not reset system, %v", id, err)
		}
	}

	if h.Halt != nil {
		h.Halt()
	}

	for {
	}
}

// Count returns the number of fatal failures reported.
func (h *Handler) Count() int {
	return int(h.count.Load())
}
