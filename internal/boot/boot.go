// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package boot implements per-hart and one-time global bring-up ordering.
package boot

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync/atomic"

	"github.com/usbarmory/GoSBI-nezha/internal/csr"
	"github.com/usbarmory/GoSBI-nezha/internal/hart"
)

// Layout describes the per-hart stack reservation.
type Layout struct {
	// Base is the lowest address of the stack reservation.
	Base uint64
	// StackSize is the per-hart stack capacity.
	StackSize uint64
	// Reserved is the size of the stack reservation.
	Reserved uint64
	// Harts is the number of supported harts.
	Harts int
}

// Check verifies that the stack reservation can hold every hart stack.
func (l Layout) Check() error {
	if l.Harts <= 0 || l.StackSize == 0 {
		return errors.New("invalid stack layout")
	}

	if l.StackSize%16 != 0 {
		return fmt.Errorf("stack size %#x is not 16-byte aligned", l.StackSize)
	}

	if need := l.StackSize * uint64(l.Harts); need > l.Reserved {
		return fmt.Errorf("%d harts need %#x stack bytes, %#x reserved", l.Harts, need, l.Reserved)
	}

	return nil
}

// Stack returns the stack region of hart id, the stack grows downward from
// top.
func (l Layout) Stack(id hart.ID) (bottom uint64, top uint64) {
	top = l.Base + (uint64(id)+1)*l.StackSize
	bottom = top - l.StackSize

	return
}

// StackTop returns the initial stack pointer of hart id.
func (l Layout) StackTop(id hart.ID) uint64 {
	_, top := l.Stack(id)
	return top
}

// Assign hands hart id its private trap stack, the stack top is published
// in mscratch for the machine mode trap entry.
func (l Layout) Assign(c csr.Backend, id hart.ID) (top uint64) {
	top = l.StackTop(id)
	c.Write(csr.MSCRATCH, top)

	return
}

// Step represents one global initialization step, executed once by the
// primary hart.
type Step struct {
	Name string
	Fn   func() error
}

const (
	pending uint32 = iota
	done
	failed
)

// ErrGlobalInit is returned to secondary harts when the primary hart failed
// global initialization.
var ErrGlobalInit = errors.New("global initialization failed")

// Sequencer orders hart bring-up, the primary hart runs all global
// initialization steps while secondaries wait for their completion.
type Sequencer struct {
	// Layout is the stack layout.
	Layout Layout
	// Primary is the hart elected to run global initialization.
	Primary hart.ID
	// Steps are the global initialization steps.
	Steps []Step

	state atomic.Uint32
}

// Boot performs bring-up ordering for hart id, it returns only once global
// initialization has completed.
func (s *Sequencer) Boot(id hart.ID) (err error) {
	if int(id) >= s.Layout.Harts {
		return fmt.Errorf("hart %d exceeds supported count (%d)", id, s.Layout.Harts)
	}

	if id == s.Primary {
		return s.global()
	}

	for {
		switch s.state.Load() {
		case done:
			return
		case failed:
			return ErrGlobalInit
		}

		runtime.Gosched()
	}
}

// Done reports whether global initialization has completed successfully.
func (s *Sequencer) Done() bool {
	return s.state.Load() == done
}

func (s *Sequencer) global() (err error) {
	if s.state.Load() != pending {
		return errors.New("global initialization already performed")
	}

	for _, step := range s.Steps {
		if err = step.Fn(); err != nil {
			s.state.Store(failed)
			return fmt.Errorf("%s, %v", step.Name, err)
		}

		log.Printf("SBI init %s", step.Name)
	}

	s.state.Store(done)

	return
}
