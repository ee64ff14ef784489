// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package heap provides the process wide dynamic memory arena shared by all
// harts.
package heap

import (
	"errors"
	"fmt"
	"sync"

	"github.com/usbarmory/GoSBI-nezha/internal/hart"
)

// ErrExhausted is reported when the arena cannot satisfy an allocation.
var ErrExhausted = errors.New("memory arena exhausted")

// Allocator represents a physical memory allocator, a TamaGo dma.Region
// satisfies it.
type Allocator interface {
	Reserve(size int, align int) (addr uint, buf []byte)
	Release(addr uint)
}

// Arena serializes allocations from all harts and escalates exhaustion.
type Arena struct {
	sync.Mutex

	// Exhausted is invoked, with the arena unlocked, when an allocation
	// requested by hart id cannot be satisfied.
	Exhausted func(id hart.ID, err error)

	alloc Allocator
}

// Init sets the arena backing allocator.
func (a *Arena) Init(alloc Allocator) {
	a.Lock()
	defer a.Unlock()

	a.alloc = alloc
}

func (a *Arena) reserve(size int, align int) (addr uint, buf []byte, err error) {
	a.Lock()
	defer a.Unlock()

	if a.alloc == nil {
		return 0, nil, errors.New("memory arena not initialized")
	}

	defer func() {
		if r := recover(); r != nil {
			addr, buf, err = 0, nil, fmt.Errorf("%w (%v)", ErrExhausted, r)
		}
	}()

	if addr, buf = a.alloc.Reserve(size, align); addr == 0 || len(buf) < size {
		return 0, nil, fmt.Errorf("%w (%d bytes)", ErrExhausted, size)
	}

	return
}

// Reserve allocates size bytes aligned to align on behalf of hart id,
// exhaustion is escalated through Exhausted.
func (a *Arena) Reserve(id hart.ID, size int, align int) (addr uint, buf []byte, err error) {
	if addr, buf, err = a.reserve(size, align); err != nil && a.Exhausted != nil {
		a.Exhausted(id, err)
	}

	return
}

// Release frees an allocation.
func (a *Arena) Release(addr uint) {
	a.Lock()
	defer a.Unlock()

	if a.alloc != nil {
		a.alloc.Release(addr)
	}
}
